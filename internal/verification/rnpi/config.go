package rnpi

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	NameMatchThreshold int           `mapstructure:"name_match_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:            15 * time.Second,
		NameMatchThreshold: 80,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.NameMatchThreshold < 0 || c.NameMatchThreshold > 100 {
		return fmt.Errorf("name_match_threshold must be in [0,100]")
	}
	return nil
}
