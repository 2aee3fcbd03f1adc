package config

import (
	"errors"
	"time"
)

var (
	errEmptyEndpoint = errors.New("config: endpoint is required")
	errNegativeScale = errors.New("config: scale must not be negative")
)

// SessionConfig is the on-disk shape of one configured RFB endpoint.
type SessionConfig struct {
	Name     string  `yaml:"name"`
	Endpoint string  `yaml:"endpoint"` // ws:// or wss:// URL
	Password string  `yaml:"password"`
	ViewOnly bool    `yaml:"view_only"`
	Scale    float64 `yaml:"scale"`
	Debug    bool    `yaml:"debug"`

	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
}

// GlobalConfig is the full configuration file: a named list of endpoints
// plus which one is currently active.
type GlobalConfig struct {
	Sessions    []*SessionConfig `yaml:"sessions"`
	ActiveID    string           `yaml:"active_id"`
	MetricsAddr string           `yaml:"metrics_addr"`
}

// Validate checks the fields Connect itself cannot recover from.
func (c *SessionConfig) Validate() error {
	if c.Endpoint == "" {
		return errEmptyEndpoint
	}
	if c.Scale < 0 {
		return errNegativeScale
	}
	return nil
}
