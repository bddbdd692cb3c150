package config

import (
	"fmt"
	"net"
	"time"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Defaults applied when the document omits a value.
const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultWatchInterval = time.Second
	DefaultFollowLines   = 10
	DefaultListenAddr    = "127.0.0.1:7677"
	DefaultLogFormat     = "text"
	DefaultLogLevel      = "info"
)

// Config mirrors the vigil.yaml document structure.
type Config struct {
	Version string     `yaml:"version"`
	Poll    PollSpec   `yaml:"poll"`
	Watch   WatchSpec  `yaml:"watch"`
	Follow  FollowSpec `yaml:"follow"`
	Serve   ServeSpec  `yaml:"serve"`
	Log     LogSpec    `yaml:"log"`
}

// PollSpec tunes the bounded-wait exit polling.
type PollSpec struct {
	Interval Duration `yaml:"interval"`
}

// WatchSpec tunes the liveness poll loops run by follow, serve and tui.
type WatchSpec struct {
	Interval Duration `yaml:"interval"`
}

// FollowSpec carries defaults for the follow command.
type FollowSpec struct {
	Lines *int `yaml:"lines"`
}

// ServeSpec configures the watch daemon.
type ServeSpec struct {
	Listen string `yaml:"listen"`
	Lock   string `yaml:"lock"`
}

// LogSpec selects the diagnostic log handler.
type LogSpec struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills omitted values in place.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if !c.Poll.Interval.IsSet() {
		c.Poll.Interval = Duration{Duration: DefaultPollInterval}
	}
	if !c.Watch.Interval.IsSet() {
		c.Watch.Interval = Duration{Duration: DefaultWatchInterval}
	}
	if c.Follow.Lines == nil {
		lines := DefaultFollowLines
		c.Follow.Lines = &lines
	}
	if c.Serve.Listen == "" {
		c.Serve.Listen = DefaultListenAddr
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate rejects documents the commands cannot act on.
func (c *Config) Validate() error {
	if c.Version != "1" {
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
	if c.Poll.Interval.Duration <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Watch.Interval.Duration <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval)
	}
	if c.Follow.Lines != nil && *c.Follow.Lines < 0 {
		return fmt.Errorf("follow.lines must not be negative, got %d", *c.Follow.Lines)
	}
	if _, _, err := net.SplitHostPort(c.Serve.Listen); err != nil {
		return fmt.Errorf("serve.listen %q: %w", c.Serve.Listen, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// FollowLines returns the follow line-count default.
func (c *Config) FollowLines() int {
	if c.Follow.Lines == nil {
		return DefaultFollowLines
	}
	return *c.Follow.Lines
}
