// Package endpoint holds the registry of centralized management endpoints:
// per-platform API configuration plus cached health state.
//
// Health state is mutated only by the registry's own health-check path,
// never by deployment code, so concurrent deployment tasks share it safely
// as read-mostly state.
package endpoint

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netforge-io/netforge/pkg/inventory"
)

// Config describes one centralized management endpoint.
type Config struct {
	Name          string             `yaml:"name" json:"name"`
	Platform      inventory.Platform `yaml:"platform" json:"platform"`
	BaseURL       string             `yaml:"base_url" json:"base_url"`
	CredentialRef string             `yaml:"credential_ref" json:"credential_ref"`
	Enabled       bool               `yaml:"enabled" json:"enabled"`
	Priority      int                `yaml:"priority" json:"priority"`

	// LoadErr records a configuration error found at load time. A bad entry
	// is kept visible for diagnostics but never offered as a candidate.
	LoadErr string `yaml:"-" json:"load_err,omitempty"`
}

// Available reports whether the endpoint can be offered to the resolver.
func (c Config) Available() bool {
	return c.Enabled && c.LoadErr == ""
}

// Health is the cached result of an endpoint reachability probe.
type Health string

const (
	Healthy   Health = "healthy"
	Unhealthy Health = "unhealthy"
	Unknown   Health = "unknown" // probe timed out or never ran; ranks as unhealthy
)

// Status pairs an endpoint's configuration with its current health view.
// Snapshots of these are what the resolver ranks — it never touches the
// registry's mutable state.
type Status struct {
	Config      Config    `json:"config"`
	Health      Health    `json:"health"`
	LastChecked time.Time `json:"last_checked,omitempty"`
	LastHealthy time.Time `json:"last_healthy,omitempty"`
}

// Prober performs the actual reachability test. Injected so tests never
// touch the network.
type Prober interface {
	Probe(ctx context.Context, cfg Config) error
}

// TCPProber dials the endpoint's host:port. The default production prober:
// cheap, no authentication, bounded by the caller's context.
type TCPProber struct{}

// Probe implements Prober.
func (TCPProber) Probe(ctx context.Context, cfg Config) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	host := u.Host
	if u.Port() == "" {
		port := "443"
		if u.Scheme == "http" {
			port = "80"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return err
	}
	return conn.Close()
}

// file schema for endpoints.yaml
type fileDoc struct {
	Endpoints []fileEntry `yaml:"endpoints"`
}

type fileEntry struct {
	Name          string `yaml:"name"`
	Platform      string `yaml:"platform"`
	BaseURL       string `yaml:"base_url"`
	CredentialRef string `yaml:"credential_ref"`
	Enabled       *bool  `yaml:"enabled"`
	Priority      int    `yaml:"priority"`
}

// LoadFile reads endpoint configuration from a YAML file. Malformed entries
// are returned with LoadErr set and marked unavailable; they never abort
// loading of the remaining endpoints.
func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("endpoint: read %s: %w", path, err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("endpoint: parse %s: %w", path, err)
	}

	configs := make([]Config, 0, len(doc.Endpoints))
	for _, e := range doc.Endpoints {
		cfg := Config{
			Name:          e.Name,
			Platform:      inventory.Platform(e.Platform),
			BaseURL:       e.BaseURL,
			CredentialRef: e.CredentialRef,
			Priority:      e.Priority,
			Enabled:       e.Enabled == nil || *e.Enabled,
		}
		cfg.LoadErr = validate(cfg)
		configs = append(configs, cfg)
	}
	return configs, nil
}

func validate(cfg Config) string {
	if cfg.Name == "" {
		return "missing name"
	}
	if !cfg.Platform.Valid() || cfg.Platform == inventory.PlatformUnknown {
		return fmt.Sprintf("unsupported platform %q", cfg.Platform)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Sprintf("malformed base_url %q", cfg.BaseURL)
	}
	if cfg.CredentialRef == "" {
		return "missing credential_ref"
	}
	return ""
}
