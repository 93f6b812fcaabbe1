package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// overrides are the settings that may come from the environment. Fields
// start at the file values; env.Parse replaces only those whose variable is
// set.
type overrides struct {
	Poll      time.Duration `env:"TRIGGER_POLL"`
	Heartbeat time.Duration `env:"TRIGGER_HEARTBEAT"`
	Broker    string        `env:"TRIGGER_BROKER"`
	HTTP      string        `env:"TRIGGER_HTTP"`
	LogLevel  string        `env:"TRIGGER_LOG_LEVEL"`
	LogFormat string        `env:"TRIGGER_LOG_FORMAT"`
	ClientID  string        `env:"TRIGGER_CLIENT_ID"`
	Chip      string        `env:"TRIGGER_CHIP"`
}

// ApplyEnv overrides runtime settings from TRIGGER_* variables. A variable
// set to a zero value selects the default, as it does in the file.
func (c *Config) ApplyEnv() error {
	o := overrides{
		Poll:      c.Poll,
		Heartbeat: c.Heartbeat,
		Broker:    c.Broker,
		HTTP:      c.HTTP,
		LogLevel:  c.LogLevel,
		LogFormat: c.LogFormat,
		ClientID:  c.ClientID,
		Chip:      c.Chip,
	}
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.Poll = o.Poll
	c.Heartbeat = o.Heartbeat
	c.Broker = o.Broker
	c.HTTP = o.HTTP
	c.LogLevel = o.LogLevel
	c.LogFormat = o.LogFormat
	c.ClientID = o.ClientID
	c.Chip = o.Chip
	c.applyDefaults()
	return nil
}
