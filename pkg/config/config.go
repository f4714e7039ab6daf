// Package config holds the server's runtime settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds the server configuration.
type Config struct {
	MudName       string        `mapstructure:"mud_name" yaml:"mud_name"`
	Host          string        `mapstructure:"host" yaml:"host"`
	Port          int           `mapstructure:"port" yaml:"port"`
	TickInterval  time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	ProbeInterval time.Duration `mapstructure:"probe_interval" yaml:"probe_interval"`
	ReadChunk     int           `mapstructure:"read_chunk" yaml:"read_chunk"`
	NamePrompt    string        `mapstructure:"name_prompt" yaml:"name_prompt"`
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`
	MetricsAddr   string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`   // empty disables /metrics
	SessionDB     string        `mapstructure:"session_db" yaml:"session_db"`       // empty disables the journal
	GreetingFile  string        `mapstructure:"greeting_file" yaml:"greeting_file"` // overrides name_prompt, reloaded on change
}

// Default returns the stock settings: all interfaces on the telnet port,
// five ticks a second, a probe every five seconds.
func Default() Config {
	return Config{
		MudName:       "tickmud",
		Host:          "0.0.0.0",
		Port:          23,
		TickInterval:  200 * time.Millisecond,
		ProbeInterval: 5 * time.Second,
		ReadChunk:     4096,
		NamePrompt:    "What is your name?",
		LogLevel:      "info",
	}
}

// ListenAddr returns host:port for the telnet listener.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.ProbeInterval <= 0 {
		errs = append(errs, fmt.Errorf("probe_interval must be positive, got %s", c.ProbeInterval))
	}
	if c.ReadChunk <= 0 {
		errs = append(errs, fmt.Errorf("read_chunk must be positive, got %d", c.ReadChunk))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
