package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// LoadGlobalConfig reads config.yaml from configDir, applying defaults for
// anything left unset. A missing file is not an error: it returns an empty
// GlobalConfig ready to have sessions appended and Saved.
func LoadGlobalConfig(configDir string) (*GlobalConfig, error) {
	cfg := &GlobalConfig{Sessions: []*SessionConfig{}}

	path := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	for _, s := range cfg.Sessions {
		applySessionDefaults(s)
	}
	return cfg, nil
}

func applySessionDefaults(s *SessionConfig) {
	if s.Scale == 0 {
		s.Scale = 1
	}
	if s.ConnectTimeout == 0 {
		s.ConnectTimeout = 10 * time.Second
	}
	if s.MaxReconnectAttempts == 0 {
		s.MaxReconnectAttempts = 3
	}
}

// Save writes cfg back to configDir/config.yaml, creating the directory if
// needed.
func (c *GlobalConfig) Save(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", configDir, err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	path := filepath.Join(configDir, configFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// FindSession looks up a session by name or by its 1-based position in
// cfg.Sessions, as typed on the command line.
func FindSession(cfg *GlobalConfig, nameOrIndex string) (*SessionConfig, error) {
	for i, s := range cfg.Sessions {
		if s.Name == nameOrIndex || fmt.Sprintf("%d", i+1) == nameOrIndex {
			return s, nil
		}
	}
	return nil, fmt.Errorf("config: session not found: %s", nameOrIndex)
}
