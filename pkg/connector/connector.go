// Package connector implements the uniform device-reachability contract and
// its variants: one centralized-API connector per supported vendor platform
// and a direct SSH session connector as the universal fallback.
//
// Every variant exposes the same four independently fallible operations
// (Probe, Execute, Apply, Verify) and normalizes its transport errors into
// the closed ErrorKind set, so the orchestrator never sees vendor detail.
package connector

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/netforge-io/netforge/pkg/endpoint"
	"github.com/netforge-io/netforge/pkg/inventory"
)

// Kind identifies a connector variant. The set is closed: adding a vendor
// means adding a constant, a dialect, and one resolver rule.
type Kind string

const (
	KindCatalystCenter Kind = "catalyst-center"
	KindMistCloud      Kind = "mist-cloud"
	KindCloudVision    Kind = "cloudvision"
	KindFortiManager   Kind = "fortimanager"
	KindPanorama       Kind = "panorama"
	KindDirectSession  Kind = "direct-session"
)

// CentralizedKind returns the centralized connector kind serving a platform,
// or false when the platform has no centralized management variant.
func CentralizedKind(p inventory.Platform) (Kind, bool) {
	switch p {
	case inventory.PlatformCiscoIOS, inventory.PlatformCiscoNXOS:
		return KindCatalystCenter, true
	case inventory.PlatformJuniperMist:
		return KindMistCloud, true
	case inventory.PlatformAristaEOS:
		return KindCloudVision, true
	case inventory.PlatformFortinet:
		return KindFortiManager, true
	case inventory.PlatformPaloAlto:
		return KindPanorama, true
	}
	return "", false
}

// ApplyResult reports the outcome of a successful Apply.
type ApplyResult struct {
	Changed bool   `json:"changed"`
	Detail  string `json:"detail,omitempty"`
}

// VerifyResult reports the outcome of a successful Verify read-back.
type VerifyResult struct {
	Match  bool   `json:"match"`
	Detail string `json:"detail,omitempty"`
}

// Connector is the uniform capability contract shared by every variant.
// All operations are I/O boundaries and honor ctx deadlines; none of them
// retries internally — retry policy belongs to the caller.
type Connector interface {
	// Kind returns the connector variant.
	Kind() Kind

	// Probe is a cheap, bounded connectivity test. nil means reachable.
	Probe(ctx context.Context) error

	// Execute runs a read-only command and returns its output.
	Execute(ctx context.Context, command string) (string, error)

	// Apply pushes an opaque configuration payload. Safe for the caller to
	// retry, but never auto-retried here.
	Apply(ctx context.Context, payload []byte) (ApplyResult, error)

	// Verify reads back device state and compares it against an expectation
	// derived from the payload by the caller.
	Verify(ctx context.Context, expected []byte) (VerifyResult, error)
}

// Candidate is one ranked reachability option produced by the resolver.
// Endpoint is nil for the direct-session variant.
type Candidate struct {
	Kind     Kind
	Platform inventory.Platform
	Endpoint *endpoint.Config
}

// Credentials hold authentication material resolved from a credential
// reference. Secrets management proper is out of scope; only references
// enter configuration files, values come from the process environment.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// CredentialsFromEnv resolves a credential reference (an env var prefix,
// e.g. "CATALYST") into Credentials via <REF>_USERNAME, <REF>_PASSWORD and
// <REF>_TOKEN.
func CredentialsFromEnv(ref string) Credentials {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return Credentials{}
	}
	return Credentials{
		Username: os.Getenv(ref + "_USERNAME"),
		Password: os.Getenv(ref + "_PASSWORD"),
		Token:    os.Getenv(ref + "_TOKEN"),
	}
}

// Empty reports whether no authentication material was resolved.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == "" && c.Token == ""
}

// DefaultOpTimeout bounds a single connector operation when the caller's
// context carries no deadline of its own.
const DefaultOpTimeout = 30 * time.Second

func opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultOpTimeout)
}
