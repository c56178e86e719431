// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment key.
const EnvPrefix = "PLAYBIN_"

// Environment keys.
const (
	EnvLogLevel      = EnvPrefix + "LOG_LEVEL"
	EnvLogService    = EnvPrefix + "LOG_SERVICE"
	EnvDataDir       = EnvPrefix + "DATA"
	EnvListen        = EnvPrefix + "LISTEN"
	EnvRateLimitRPM  = EnvPrefix + "RATE_LIMIT_RPM"
	EnvFFmpegBin     = EnvPrefix + "FFMPEG_BIN"
	EnvFFprobeBin    = EnvPrefix + "FFPROBE_BIN"
	EnvKillTimeout   = EnvPrefix + "FFMPEG_KILL_TIMEOUT"
	EnvProbeTimeout  = EnvPrefix + "PROBE_TIMEOUT"
	EnvStallTimeout  = EnvPrefix + "STALL_TIMEOUT"
	EnvScaleWidth    = EnvPrefix + "SCALE_WIDTH"
	EnvScaleHeight   = EnvPrefix + "SCALE_HEIGHT"
	EnvCapsTimeout   = EnvPrefix + "CAPS_TIMEOUT"
	EnvRestartOffset = EnvPrefix + "RESTART_OFFSET"
	EnvFrameQueue    = EnvPrefix + "FRAME_QUEUE"
)

// ParseString reads a string from the environment or returns defaultValue.
// An empty variable counts as unset.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		logger.Debug().
			Str("key", key).
			Str("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Str("value", value).
		Str("source", "environment").
		Msg("using environment variable")
	return value
}

// ParseInt reads an integer, falling back to defaultValue on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseWith(key, defaultValue, strconv.Atoi, "integer")
}

// ParseFloat reads a float64, falling back to defaultValue on parse errors.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseWith(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, "float")
}

// ParseDuration reads a Go duration ("5s"), falling back to defaultValue on
// parse errors.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseWith(key, defaultValue, time.ParseDuration, "duration")
}

// ParseBool accepts true/false, 1/0 and yes/no, case-insensitive.
func ParseBool(key string, defaultValue bool) bool {
	return parseWith(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	}, "boolean")
}

func parseWith[T any](key string, defaultValue T, parse func(string) (T, error), kind string) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Interface("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	parsed, err := parse(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", defaultValue).
			Msgf("invalid %s in environment variable, using default", kind)
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}
