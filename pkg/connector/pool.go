package connector

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/netforge-io/netforge/pkg/inventory"
)

// Dialer turns a resolver candidate into a live connector for a device.
// The orchestrator depends on this interface, never on concrete variants,
// which is what lets tests substitute scripted connectors.
type Dialer interface {
	Dial(ctx context.Context, cand Candidate, device inventory.Device) (Connector, error)
}

// Pool is the production Dialer. Centralized endpoints share one HTTP
// client per platform (connection reuse across devices); direct-session
// connectors are built fresh per device and never shared.
type Pool struct {
	mu      sync.Mutex
	clients map[inventory.Platform]*http.Client

	// ResolveCredentials maps a credential reference to credentials.
	// Defaults to CredentialsFromEnv.
	ResolveCredentials func(ref string) Credentials

	// DirectCredentialRef is the credential reference used for
	// direct-session connections (platform-independent fallback account).
	DirectCredentialRef string

	// DirectOptions are applied to every direct-session connector built.
	DirectOptions []DirectOption
}

// NewPool creates a connector pool. directRef names the credential
// reference for the direct-session fallback account.
func NewPool(directRef string, opts ...DirectOption) *Pool {
	return &Pool{
		clients:             make(map[inventory.Platform]*http.Client),
		ResolveCredentials:  CredentialsFromEnv,
		DirectCredentialRef: directRef,
		DirectOptions:       opts,
	}
}

// Dial implements Dialer.
func (p *Pool) Dial(ctx context.Context, cand Candidate, device inventory.Device) (Connector, error) {
	if cand.Kind == KindDirectSession {
		creds := p.ResolveCredentials(p.DirectCredentialRef)
		return NewDirectSession(device, creds, p.DirectOptions...), nil
	}

	if cand.Endpoint == nil {
		return nil, fmt.Errorf("connector: candidate %s has no endpoint config", cand.Kind)
	}
	creds := p.ResolveCredentials(cand.Endpoint.CredentialRef)
	return NewCentralized(cand.Kind, device, *cand.Endpoint, creds, p.clientFor(cand.Platform))
}

func (p *Pool) clientFor(platform inventory.Platform) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[platform]; ok {
		return c
	}
	c := sharedHTTPClient()
	p.clients[platform] = c
	return c
}
