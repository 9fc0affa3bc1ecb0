package identity

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		ProbeTimeout: 5 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}
	return nil
}
