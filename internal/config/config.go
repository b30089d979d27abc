package config

import (
	"errors"
	"time"
)

// Config holds client configuration values.
type Config struct {
	ServerURL      string `mapstructure:"server_url" yaml:"server_url"`
	Username       string `mapstructure:"username" yaml:"username"`
	Room           string `mapstructure:"room" yaml:"room"`
	Token          string `mapstructure:"token" yaml:"token"`
	LogLevel       string `mapstructure:"log_level" yaml:"log_level"`
	ControlAddr    string `mapstructure:"control_addr" yaml:"control_addr"`
	TranscriptPath string `mapstructure:"transcript_path" yaml:"transcript_path"`

	EditWindow         time.Duration `mapstructure:"edit_window" yaml:"edit_window"`
	TypingIdle         time.Duration `mapstructure:"typing_idle" yaml:"typing_idle"`
	TypingThrottle     time.Duration `mapstructure:"typing_throttle" yaml:"typing_throttle"`
	BannerDuration     time.Duration `mapstructure:"banner_duration" yaml:"banner_duration"`
	NoticeDuration     time.Duration `mapstructure:"notice_duration" yaml:"notice_duration"`
	BlinkFast          time.Duration `mapstructure:"blink_fast" yaml:"blink_fast"`
	BlinkSlow          time.Duration `mapstructure:"blink_slow" yaml:"blink_slow"`
	BlinkFastThreshold int           `mapstructure:"blink_fast_threshold" yaml:"blink_fast_threshold"`

	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	EmitTimeout       time.Duration `mapstructure:"emit_timeout" yaml:"emit_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:          "ws://localhost:8080/ws",
		Room:               "general",
		LogLevel:           "info",
		ControlAddr:        "127.0.0.1:7070",
		EditWindow:         5 * time.Minute,
		TypingIdle:         3 * time.Second,
		TypingThrottle:     time.Second,
		BannerDuration:     4 * time.Second,
		NoticeDuration:     4 * time.Second,
		BlinkFast:          600 * time.Millisecond,
		BlinkSlow:          1200 * time.Millisecond,
		BlinkFastThreshold: 10,
		RequestTimeout:     10 * time.Second,
		EmitTimeout:        5 * time.Second,
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	setString(&c.ServerURL, other.ServerURL)
	setString(&c.Username, other.Username)
	setString(&c.Room, other.Room)
	setString(&c.Token, other.Token)
	setString(&c.LogLevel, other.LogLevel)
	setString(&c.ControlAddr, other.ControlAddr)
	setString(&c.TranscriptPath, other.TranscriptPath)

	setDuration(&c.EditWindow, other.EditWindow)
	setDuration(&c.TypingIdle, other.TypingIdle)
	setDuration(&c.TypingThrottle, other.TypingThrottle)
	setDuration(&c.BannerDuration, other.BannerDuration)
	setDuration(&c.NoticeDuration, other.NoticeDuration)
	setDuration(&c.BlinkFast, other.BlinkFast)
	setDuration(&c.BlinkSlow, other.BlinkSlow)
	if other.BlinkFastThreshold != 0 {
		c.BlinkFastThreshold = other.BlinkFastThreshold
	}
	setDuration(&c.RequestTimeout, other.RequestTimeout)
	setDuration(&c.EmitTimeout, other.EmitTimeout)
	setDuration(&c.ReadHeaderTimeout, other.ReadHeaderTimeout)
	setDuration(&c.ShutdownTimeout, other.ShutdownTimeout)
}

// Validate checks the settings a session cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.ServerURL == "":
		return errors.New("server_url is required")
	case c.Room == "":
		return errors.New("room is required")
	case c.Username == "":
		return errors.New("username is required (set it or provide a token with a username claim)")
	case c.EditWindow <= 0:
		return errors.New("edit_window must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
