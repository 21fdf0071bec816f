// Package settings manages persistent user settings for the netforge CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds persistent user preferences
type Settings struct {
	// EndpointsFile overrides the default endpoint registry file
	EndpointsFile string `json:"endpoints_file,omitempty"`

	// InventoryFile overrides the default device inventory file
	InventoryFile string `json:"inventory_file,omitempty"`

	// AttemptLog overrides the default attempt log path
	AttemptLog string `json:"attempt_log,omitempty"`

	// AttemptLogBackend selects the attempt log backend ("file" or "redis")
	AttemptLogBackend string `json:"attempt_log_backend,omitempty"`

	// RedisAddr is the Redis address for the redis attempt log backend
	RedisAddr string `json:"redis_addr,omitempty"`

	// MaxConcurrent is the default per-batch concurrency cap
	MaxConcurrent int `json:"max_concurrent,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "netforge_settings.json"
	}
	return filepath.Join(home, ".netforge", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetEndpointsFile returns the endpoints file (with fallback)
func (s *Settings) GetEndpointsFile() string {
	if s.EndpointsFile != "" {
		return s.EndpointsFile
	}
	return "/etc/netforge/endpoints.yaml"
}

// GetInventoryFile returns the inventory file (with fallback)
func (s *Settings) GetInventoryFile() string {
	if s.InventoryFile != "" {
		return s.InventoryFile
	}
	return "/etc/netforge/inventory.yaml"
}

// GetAttemptLog returns the attempt log path (with fallback)
func (s *Settings) GetAttemptLog() string {
	if s.AttemptLog != "" {
		return s.AttemptLog
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "netforge_attempts.log"
	}
	return filepath.Join(home, ".netforge", "attempts.log")
}

// GetAttemptLogBackend returns the attempt log backend (with fallback)
func (s *Settings) GetAttemptLogBackend() string {
	if s.AttemptLogBackend != "" {
		return s.AttemptLogBackend
	}
	return "file"
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
