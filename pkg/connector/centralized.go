package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/netforge-io/netforge/pkg/endpoint"
	"github.com/netforge-io/netforge/pkg/inventory"
)

// dialect captures the per-vendor shape of a centralized management API:
// how to authenticate and which resource paths carry the generic operations.
// Real vendor protocols are richer; this is the minimal surface the uniform
// contract needs, and each dialect is replaceable without touching callers.
type dialect struct {
	probePath   string // GET, unauthenticated reachability/status
	executePath string // POST {device, command} -> {output}
	applyPath   string // POST {device, payload}
	verifyPath  string // POST {device} -> {config}
	bearerAuth  bool   // Authorization: Bearer <token>; otherwise basic auth
}

var dialects = map[Kind]dialect{
	KindCatalystCenter: {
		probePath:   "/dna/system/api/v1/health",
		executePath: "/dna/intent/api/v1/network-device-poller/cli/read-request",
		applyPath:   "/dna/intent/api/v1/template-programmer/template/deploy",
		verifyPath:  "/dna/intent/api/v1/network-device/config",
		bearerAuth:  false,
	},
	KindMistCloud: {
		probePath:   "/api/v1/self",
		executePath: "/api/v1/devices/cmd",
		applyPath:   "/api/v1/devices/config",
		verifyPath:  "/api/v1/devices/config",
		bearerAuth:  true,
	},
	KindCloudVision: {
		probePath:   "/cvpservice/cvpInfo/getCvpInfo.do",
		executePath: "/cvpservice/task/execCommand.do",
		applyPath:   "/cvpservice/configlet/applyConfiglet.do",
		verifyPath:  "/cvpservice/inventory/getDeviceConfig.do",
		bearerAuth:  false,
	},
	KindFortiManager: {
		probePath:   "/sys/status",
		executePath: "/sys/proxy/json",
		applyPath:   "/pm/config/device",
		verifyPath:  "/pm/config/device",
		bearerAuth:  true,
	},
	KindPanorama: {
		probePath:   "/api/?type=version",
		executePath: "/api/?type=op",
		applyPath:   "/api/?type=config&action=set",
		verifyPath:  "/api/?type=config&action=show",
		bearerAuth:  true,
	},
}

// Centralized is a device-bound view over a shared centralized management
// endpoint. The HTTP client (connection pool, auth) is shared per platform
// through the Pool; the wrapper pins the device identity so the uniform
// contract needs no device parameter.
type Centralized struct {
	kind    Kind
	device  inventory.Device
	cfg     endpoint.Config
	creds   Credentials
	client  *http.Client
	dialect dialect
}

// NewCentralized creates a centralized connector for one device. The http
// client may be shared across devices of the same platform.
func NewCentralized(kind Kind, device inventory.Device, cfg endpoint.Config, creds Credentials, client *http.Client) (*Centralized, error) {
	d, ok := dialects[kind]
	if !ok {
		return nil, fmt.Errorf("connector: no dialect for kind %q", kind)
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultOpTimeout}
	}
	return &Centralized{
		kind:    kind,
		device:  device,
		cfg:     cfg,
		creds:   creds,
		client:  client,
		dialect: d,
	}, nil
}

// Kind implements Connector.
func (c *Centralized) Kind() Kind {
	return c.kind
}

// Probe checks endpoint reachability and that this device is known to it.
func (c *Centralized) Probe(ctx context.Context) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := c.call(ctx, "probe", http.MethodGet, c.dialect.probePath, nil)
	return err
}

// Execute runs a read-only command through the management API.
func (c *Centralized) Execute(ctx context.Context, command string) (string, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	body, err := c.call(ctx, "execute", http.MethodPost, c.dialect.executePath, map[string]string{
		"device":  c.device.ID,
		"address": c.device.MgmtAddr,
		"command": command,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		Output string `json:"output"`
	}
	if jsonErr := json.Unmarshal(body, &out); jsonErr == nil && out.Output != "" {
		return out.Output, nil
	}
	return string(body), nil
}

// Apply pushes the payload through the management API's deploy operation.
func (c *Centralized) Apply(ctx context.Context, payload []byte) (ApplyResult, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	body, err := c.call(ctx, "apply", http.MethodPost, c.dialect.applyPath, map[string]string{
		"device":  c.device.ID,
		"address": c.device.MgmtAddr,
		"payload": string(payload),
	})
	if err != nil {
		return ApplyResult{}, err
	}
	var out struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &out)
	return ApplyResult{Changed: true, Detail: out.Detail}, nil
}

// Verify fetches the device's rendered configuration from the endpoint and
// compares it against the expectation the same way the direct connector
// does, so a verification mismatch means the same thing on every channel.
func (c *Centralized) Verify(ctx context.Context, expected []byte) (VerifyResult, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	body, err := c.call(ctx, "verify", http.MethodPost, c.dialect.verifyPath, map[string]string{
		"device":  c.device.ID,
		"address": c.device.MgmtAddr,
	})
	if err != nil {
		return VerifyResult{}, err
	}
	var out struct {
		Config string `json:"config"`
	}
	readback := string(body)
	if jsonErr := json.Unmarshal(body, &out); jsonErr == nil && out.Config != "" {
		readback = out.Config
	}
	return compareExpected(readback, expected), nil
}

// call performs one HTTP round trip and normalizes failures.
func (c *Centralized) call(ctx context.Context, op, method, path string, payload map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, NewError(RemoteRejected, c.kind, op, "encode request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, NewError(ConnectError, c.kind, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, normalizeNetErr(c.kind, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, normalizeNetErr(c.kind, op, err)
	}

	if kind, bad := classifyStatus(resp.StatusCode); bad {
		detail := fmt.Sprintf("%s %s: HTTP %d", method, path, resp.StatusCode)
		if len(body) > 0 {
			detail += ": " + truncate(string(body), 200)
		}
		return nil, NewError(kind, c.kind, op, detail, nil)
	}
	return body, nil
}

func (c *Centralized) authorize(req *http.Request) {
	switch {
	case c.dialect.bearerAuth && c.creds.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	case c.creds.Username != "":
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}
}

// classifyStatus maps HTTP status codes into the closed error set.
// 5xx ranks as a connectivity problem (retry another channel); operation
// rejections are terminal.
func classifyStatus(code int) (ErrorKind, bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return AuthError, true
	case code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented:
		return UnsupportedOperation, true
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return Timeout, true
	case code >= 500:
		return ConnectError, true
	default:
		return RemoteRejected, true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// sharedHTTPClient builds the per-platform HTTP client reused across
// devices. Kept here so the Pool owns no HTTP detail.
func sharedHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultOpTimeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
