// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds a Config from defaults, an optional YAML file and the
// environment.
type Loader struct {
	path    string
	version string

	// ConsumedEnvKeys records every env key the last Load read.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader returns a loader for path. An empty path means env only.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version, ConsumedEnvKeys: make(map[string]struct{})}
}

// Path returns the config file path, if any.
func (l *Loader) Path() string { return l.path }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load applies defaults, then the file (strict), then env, then validates.
func (l *Loader) Load() (Config, error) {
	cfg := Default()
	l.ConsumedEnvKeys = make(map[string]struct{})

	if l.path != "" {
		fileCfg, err := l.loadFile(l.path)
		if err != nil {
			return cfg, fmt.Errorf("load file %s: %w", l.path, err)
		}
		mergeFile(&cfg, fileCfg)
	}

	l.mergeEnv(&cfg)
	cfg.Engine.FFprobeBin = ResolveFFprobeBin(cfg.Engine.FFprobeBin, cfg.Engine.FFmpegBin)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile parses the YAML file strictly: unknown keys and trailing
// documents are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- the config path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("strict config parse error: multiple YAML documents")
	}
	return &fileCfg, nil
}

func mergeFile(cfg *Config, f *FileConfig) {
	setIf(&cfg.LogLevel, f.LogLevel)
	setIf(&cfg.LogService, f.LogService)
	setIf(&cfg.DataDir, f.DataDir)
	setIf(&cfg.Listen, f.Listen)
	setIf(&cfg.RateLimitRPM, f.RateLimitRPM)

	if e := f.Engine; e != nil {
		setIf(&cfg.Engine.FFmpegBin, e.FFmpegBin)
		setIf(&cfg.Engine.FFprobeBin, e.FFprobeBin)
		setIf(&cfg.Engine.KillTimeout, e.KillTimeout)
		setIf(&cfg.Engine.ProbeTimeout, e.ProbeTimeout)
		setIf(&cfg.Engine.StallTimeout, e.StallTimeout)
		setIf(&cfg.Engine.ScaleWidth, e.ScaleWidth)
		setIf(&cfg.Engine.ScaleHeight, e.ScaleHeight)
	}
	if p := f.Player; p != nil {
		setIf(&cfg.Player.CapsTimeout, p.CapsTimeout)
		setIf(&cfg.Player.RestartOffset, p.RestartOffset)
		setIf(&cfg.Player.FrameQueue, p.FrameQueue)
	}

	cfg.Players = make([]PlayerSpec, 0, len(f.Players))
	for _, fp := range f.Players {
		spec := PlayerSpec{
			ID:        strings.TrimSpace(fp.ID),
			URI:       strings.TrimSpace(fp.URI),
			AutoStart: fp.AutoStart,
			Loop:      fp.Loop,
			Volume:    1,
			Muted:     fp.Muted,
			Rate:      1,
		}
		setIf(&spec.Volume, fp.Volume)
		setIf(&spec.Rate, fp.Rate)
		cfg.Players = append(cfg.Players, spec)
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.Listen = l.envString(EnvListen, cfg.Listen)
	cfg.RateLimitRPM = l.envInt(EnvRateLimitRPM, cfg.RateLimitRPM)

	cfg.Engine.FFmpegBin = l.envString(EnvFFmpegBin, cfg.Engine.FFmpegBin)
	cfg.Engine.FFprobeBin = l.envString(EnvFFprobeBin, cfg.Engine.FFprobeBin)
	cfg.Engine.KillTimeout = l.envDuration(EnvKillTimeout, cfg.Engine.KillTimeout)
	cfg.Engine.ProbeTimeout = l.envDuration(EnvProbeTimeout, cfg.Engine.ProbeTimeout)
	cfg.Engine.StallTimeout = l.envDuration(EnvStallTimeout, cfg.Engine.StallTimeout)
	cfg.Engine.ScaleWidth = l.envInt(EnvScaleWidth, cfg.Engine.ScaleWidth)
	cfg.Engine.ScaleHeight = l.envInt(EnvScaleHeight, cfg.Engine.ScaleHeight)

	cfg.Player.CapsTimeout = l.envDuration(EnvCapsTimeout, cfg.Player.CapsTimeout)
	cfg.Player.RestartOffset = l.envDuration(EnvRestartOffset, cfg.Player.RestartOffset)
	cfg.Player.FrameQueue = l.envInt(EnvFrameQueue, cfg.Player.FrameQueue)
}
