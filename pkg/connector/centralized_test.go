package connector

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netforge-io/netforge/pkg/endpoint"
	"github.com/netforge-io/netforge/pkg/inventory"
)

func mistConnector(t *testing.T, handler http.Handler) *Centralized {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	device := inventory.Device{
		ID:       "ap-branch-12",
		Platform: inventory.PlatformJuniperMist,
		MgmtAddr: "10.20.0.12",
	}
	cfg := endpoint.Config{
		Name:          "mist-test",
		Platform:      inventory.PlatformJuniperMist,
		BaseURL:       srv.URL,
		CredentialRef: "MIST",
		Enabled:       true,
	}
	conn, err := NewCentralized(KindMistCloud, device, cfg, Credentials{Token: "tok-123"}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestCentralized_Probe(t *testing.T) {
	conn := mistConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/self" {
			t.Errorf("probe path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := conn.Probe(t.Context()); err != nil {
		t.Errorf("Probe() error: %v", err)
	}
}

func TestCentralized_BearerAuth(t *testing.T) {
	conn := mistConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := conn.Probe(t.Context()); err != nil {
		t.Errorf("Probe() error: %v", err)
	}
}

func TestCentralized_ExecuteDecodesOutput(t *testing.T) {
	conn := mistConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["device"] != "ap-branch-12" || req["command"] != "show version" {
			t.Errorf("request = %v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"output": "Mist OS 0.14"})
	}))

	out, err := conn.Execute(t.Context(), "show version")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "Mist OS 0.14" {
		t.Errorf("Execute() = %q, want decoded output field", out)
	}
}

func TestCentralized_ApplyAndVerify(t *testing.T) {
	applied := ""
	conn := mistConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if p, ok := req["payload"]; ok {
			applied = p
			w.WriteHeader(http.StatusOK)
			return
		}
		// verify path reads back whatever was applied
		json.NewEncoder(w).Encode(map[string]string{"config": applied})
	}))

	payload := []byte("set system hostname ap-branch-12\nset ntp server 10.0.0.5")
	if _, err := conn.Apply(t.Context(), payload); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	verdict, err := conn.Verify(t.Context(), payload)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !verdict.Match {
		t.Errorf("Verify() mismatch after apply: %s", verdict.Detail)
	}

	verdict, err = conn.Verify(t.Context(), []byte("set something never applied"))
	if err != nil {
		t.Fatal(err)
	}
	if verdict.Match {
		t.Error("Verify() matched an expectation that was never applied")
	}
}

func TestCentralized_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, AuthError},
		{http.StatusForbidden, AuthError},
		{http.StatusMethodNotAllowed, UnsupportedOperation},
		{http.StatusNotImplemented, UnsupportedOperation},
		{http.StatusRequestTimeout, Timeout},
		{http.StatusGatewayTimeout, Timeout},
		{http.StatusInternalServerError, ConnectError},
		{http.StatusBadGateway, ConnectError},
		{http.StatusBadRequest, RemoteRejected},
		{http.StatusConflict, RemoteRejected},
	}

	for _, tt := range tests {
		conn := mistConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		err := conn.Probe(t.Context())
		if err == nil {
			t.Errorf("HTTP %d: Probe() returned nil error", tt.status)
			continue
		}
		var ce *Error
		if !errors.As(err, &ce) {
			t.Errorf("HTTP %d: error %T is not a connector Error", tt.status, err)
			continue
		}
		if ce.Kind != tt.want {
			t.Errorf("HTTP %d mapped to %q, want %q", tt.status, ce.Kind, tt.want)
		}
	}
}

func TestCentralized_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // now nothing listens there

	device := inventory.Device{ID: "d", Platform: inventory.PlatformJuniperMist}
	cfg := endpoint.Config{Name: "gone", Platform: inventory.PlatformJuniperMist, BaseURL: url, Enabled: true}
	conn, err := NewCentralized(KindMistCloud, device, cfg, Credentials{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	err = conn.Probe(t.Context())
	if KindOf(err) != ConnectError {
		t.Errorf("refused connection mapped to %q, want %q", KindOf(err), ConnectError)
	}
	if !Retryable(err) {
		t.Error("connection refusal should be retryable")
	}
}

func TestNewCentralized_UnknownKind(t *testing.T) {
	_, err := NewCentralized(KindDirectSession, inventory.Device{}, endpoint.Config{}, Credentials{}, nil)
	if err == nil {
		t.Error("NewCentralized() should reject kinds without a dialect")
	}
}
