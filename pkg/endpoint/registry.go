package endpoint

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/netforge-io/netforge/pkg/inventory"
	"github.com/netforge-io/netforge/pkg/util"
)

const (
	// DefaultProbeTimeout bounds a single health probe. Probes sit on the
	// deployment critical path, so they stay short; on timeout the result
	// is Unknown, which ranks as unhealthy.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultHealthTTL is how long a probe result is served from cache.
	DefaultHealthTTL = 30 * time.Second
)

// Registry holds the configured centralized endpoints and their cached
// health. Constructed once at startup and passed by handle to the resolver
// and orchestrator — connector logic never reads ambient configuration.
//
// More than one endpoint may serve the same platform (multi-tenant case);
// the resolver breaks the tie by priority weight, then most recent
// successful health check.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry // keyed by endpoint name

	prober       Prober
	probeTimeout time.Duration
	healthTTL    time.Duration
}

type entry struct {
	cfg         Config
	health      Health
	lastChecked time.Time
	lastHealthy time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithProber overrides the reachability prober.
func WithProber(p Prober) Option {
	return func(r *Registry) { r.prober = p }
}

// WithProbeTimeout overrides the per-probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Registry) { r.probeTimeout = d }
}

// WithHealthTTL overrides the health cache TTL.
func WithHealthTTL(d time.Duration) Option {
	return func(r *Registry) { r.healthTTL = d }
}

// NewRegistry builds a registry from loaded configs. Entries with load
// errors are registered as permanently unavailable so they stay visible in
// diagnostics; they are never offered as candidates. Duplicate names keep
// the first entry seen.
func NewRegistry(configs []Config, opts ...Option) *Registry {
	r := &Registry{
		entries:      make(map[string]*entry, len(configs)),
		prober:       TCPProber{},
		probeTimeout: DefaultProbeTimeout,
		healthTTL:    DefaultHealthTTL,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, cfg := range configs {
		if cfg.LoadErr != "" {
			util.WithField("endpoint", cfg.Name).
				Warnf("endpoint marked unavailable: %s", cfg.LoadErr)
		}
		if _, ok := r.entries[cfg.Name]; ok {
			util.WithField("endpoint", cfg.Name).Warn("duplicate endpoint name, keeping first")
			continue
		}
		r.entries[cfg.Name] = &entry{cfg: cfg, health: Unknown}
	}
	return r
}

// Get returns the highest-priority available endpoint configured for a
// platform. The second return is false when none is configured — that is a
// normal condition, not an error.
func (r *Registry) Get(platform inventory.Platform) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entry
	for _, e := range r.entries {
		if e.cfg.Platform != platform || !e.cfg.Available() {
			continue
		}
		if best == nil || e.cfg.Priority > best.cfg.Priority {
			best = e
		}
	}
	if best == nil {
		return Config{}, false
	}
	return best.cfg, true
}

// List returns a snapshot of all endpoint statuses, sorted by platform then
// name. Diagnostics and resolver input.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]Status, 0, len(r.entries))
	for _, e := range r.entries {
		statuses = append(statuses, e.status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Config.Platform != statuses[j].Config.Platform {
			return statuses[i].Config.Platform < statuses[j].Config.Platform
		}
		return statuses[i].Config.Name < statuses[j].Config.Name
	})
	return statuses
}

func (e *entry) status() Status {
	return Status{
		Config:      e.cfg,
		Health:      e.health,
		LastChecked: e.lastChecked,
		LastHealthy: e.lastHealthy,
	}
}

// HealthCheck probes the named endpoint, serving cached results within the
// TTL. A probe that exceeds the probe timeout yields Unknown, which callers
// treat as unhealthy for ranking. Unavailable endpoints (disabled or
// load-broken) are always Unhealthy without probing.
func (r *Registry) HealthCheck(ctx context.Context, name string) Health {
	r.mu.RLock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.RUnlock()
		return Unknown
	}
	if !e.cfg.Available() {
		r.mu.RUnlock()
		return Unhealthy
	}
	if time.Since(e.lastChecked) < r.healthTTL {
		h := e.health
		r.mu.RUnlock()
		return h
	}
	cfg := e.cfg
	r.mu.RUnlock()

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	err := r.prober.Probe(probeCtx, cfg)

	health := Healthy
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		health = Unknown
	default:
		health = Unhealthy
	}

	r.mu.Lock()
	now := time.Now()
	e.health = health
	e.lastChecked = now
	if health == Healthy {
		e.lastHealthy = now
	}
	r.mu.Unlock()

	if health != Healthy {
		util.WithField("endpoint", cfg.Name).Debugf("health check: %s (%v)", health, err)
	}
	return health
}

// View health-checks every registered endpoint and returns the resulting
// status snapshot. This is what gets handed to the resolver: a plain value,
// so ranking stays pure and reproducible.
func (r *Registry) View(ctx context.Context) []Status {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	for _, name := range names {
		r.HealthCheck(ctx, name)
	}
	return r.List()
}
