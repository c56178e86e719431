// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the playbin daemon configuration with precedence
// ENV > YAML file > defaults and hot-reloads the file.
package config

import "time"

// Config is the effective, validated configuration.
type Config struct {
	LogLevel     string
	LogService   string
	DataDir      string
	Listen       string
	RateLimitRPM int // 0 disables rate limiting of control routes

	Engine  EngineConfig
	Player  PlayerDefaults
	Players []PlayerSpec
}

// EngineConfig configures the ffmpeg runtime.
type EngineConfig struct {
	FFmpegBin    string
	FFprobeBin   string
	KillTimeout  time.Duration
	ProbeTimeout time.Duration
	StallTimeout time.Duration
	ScaleWidth   int // 0 keeps the source size
	ScaleHeight  int
}

// PlayerDefaults apply to every player the daemon starts.
type PlayerDefaults struct {
	CapsTimeout   time.Duration
	RestartOffset time.Duration
	FrameQueue    int
}

// PlayerSpec seeds one player at startup and on reload.
type PlayerSpec struct {
	ID        string
	URI       string
	AutoStart bool
	Loop      bool
	Volume    float64
	Muted     bool
	Rate      float64
}

// FileConfig is the YAML document. Pointer fields distinguish "unset" from
// the zero value so that defaults survive a partial file.
type FileConfig struct {
	LogLevel     *string          `yaml:"logLevel,omitempty"`
	LogService   *string          `yaml:"logService,omitempty"`
	DataDir      *string          `yaml:"dataDir,omitempty"`
	Listen       *string          `yaml:"listen,omitempty"`
	RateLimitRPM *int             `yaml:"rateLimitRPM,omitempty"`
	Engine       *FileEngine      `yaml:"engine,omitempty"`
	Player       *FilePlayer      `yaml:"player,omitempty"`
	Players      []FilePlayerSpec `yaml:"players,omitempty"`
}

type FileEngine struct {
	FFmpegBin    *string        `yaml:"ffmpegBin,omitempty"`
	FFprobeBin   *string        `yaml:"ffprobeBin,omitempty"`
	KillTimeout  *time.Duration `yaml:"killTimeout,omitempty"`
	ProbeTimeout *time.Duration `yaml:"probeTimeout,omitempty"`
	StallTimeout *time.Duration `yaml:"stallTimeout,omitempty"`
	ScaleWidth   *int           `yaml:"scaleWidth,omitempty"`
	ScaleHeight  *int           `yaml:"scaleHeight,omitempty"`
}

type FilePlayer struct {
	CapsTimeout   *time.Duration `yaml:"capsTimeout,omitempty"`
	RestartOffset *time.Duration `yaml:"restartOffset,omitempty"`
	FrameQueue    *int           `yaml:"frameQueue,omitempty"`
}

type FilePlayerSpec struct {
	ID        string   `yaml:"id"`
	URI       string   `yaml:"uri"`
	AutoStart bool     `yaml:"autoStart,omitempty"`
	Loop      bool     `yaml:"loop,omitempty"`
	Volume    *float64 `yaml:"volume,omitempty"`
	Muted     bool     `yaml:"muted,omitempty"`
	Rate      *float64 `yaml:"rate,omitempty"`
}

// Defaults.
const (
	DefaultLogLevel      = "info"
	DefaultLogService    = "playbind"
	DefaultDataDir       = "data"
	DefaultListen        = ":8088"
	DefaultRateLimitRPM  = 120
	DefaultFFmpegBin     = "ffmpeg"
	DefaultFFprobeBin    = "ffprobe"
	DefaultKillTimeout   = 5 * time.Second
	DefaultProbeTimeout  = 10 * time.Second
	DefaultStallTimeout  = 10 * time.Second
	DefaultCapsTimeout   = 5 * time.Second
	DefaultRestartOffset = 2 * time.Second
	DefaultFrameQueue    = 8
)

// Default returns the configuration used when neither file nor env set a key.
func Default() Config {
	return Config{
		LogLevel:     DefaultLogLevel,
		LogService:   DefaultLogService,
		DataDir:      DefaultDataDir,
		Listen:       DefaultListen,
		RateLimitRPM: DefaultRateLimitRPM,
		Engine: EngineConfig{
			FFmpegBin:    DefaultFFmpegBin,
			KillTimeout:  DefaultKillTimeout,
			ProbeTimeout: DefaultProbeTimeout,
			StallTimeout: DefaultStallTimeout,
		},
		Player: PlayerDefaults{
			CapsTimeout:   DefaultCapsTimeout,
			RestartOffset: DefaultRestartOffset,
			FrameQueue:    DefaultFrameQueue,
		},
	}
}
