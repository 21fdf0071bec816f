package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetEndpointsFile(); got != "/etc/netforge/endpoints.yaml" {
		t.Errorf("GetEndpointsFile() default = %q, want %q", got, "/etc/netforge/endpoints.yaml")
	}
	if got := s.GetInventoryFile(); got != "/etc/netforge/inventory.yaml" {
		t.Errorf("GetInventoryFile() default = %q, want %q", got, "/etc/netforge/inventory.yaml")
	}
	if got := s.GetAttemptLogBackend(); got != "file" {
		t.Errorf("GetAttemptLogBackend() default = %q, want %q", got, "file")
	}
	if s.RedisAddr != "" {
		t.Errorf("RedisAddr should be empty, got %q", s.RedisAddr)
	}
}

func TestSettings_Overrides(t *testing.T) {
	s := &Settings{
		EndpointsFile:     "/custom/endpoints.yaml",
		AttemptLogBackend: "redis",
		AttemptLog:        "/var/log/netforge/attempts.log",
	}

	if got := s.GetEndpointsFile(); got != "/custom/endpoints.yaml" {
		t.Errorf("GetEndpointsFile() = %q, want %q", got, "/custom/endpoints.yaml")
	}
	if got := s.GetAttemptLogBackend(); got != "redis" {
		t.Errorf("GetAttemptLogBackend() = %q, want %q", got, "redis")
	}
	if got := s.GetAttemptLog(); got != "/var/log/netforge/attempts.log" {
		t.Errorf("GetAttemptLog() = %q, want %q", got, "/var/log/netforge/attempts.log")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "settings.json")

	s := &Settings{
		EndpointsFile: "/opt/netforge/endpoints.yaml",
		MaxConcurrent: 8,
		RedisAddr:     "localhost:6379",
	}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if loaded.EndpointsFile != s.EndpointsFile {
		t.Errorf("EndpointsFile = %q, want %q", loaded.EndpointsFile, s.EndpointsFile)
	}
	if loaded.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", loaded.MaxConcurrent)
	}
	if loaded.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want %q", loaded.RedisAddr, "localhost:6379")
	}
}

func TestSettings_LoadMissingFile(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadFrom() on missing file: %v", err)
	}
	if s.EndpointsFile != "" {
		t.Errorf("missing file should yield empty settings, got %+v", s)
	}
}

func TestSettings_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() should fail on malformed JSON")
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{EndpointsFile: "/x", MaxConcurrent: 3}
	s.Clear()
	if s.EndpointsFile != "" || s.MaxConcurrent != 0 {
		t.Errorf("Clear() left values: %+v", s)
	}
}
