package deploy

import (
	"fmt"
	"time"

	"github.com/netforge-io/netforge/pkg/util"
)

// DefaultMaxConcurrent bounds in-flight devices per batch. Kept small to
// respect target-device and management-API rate limits.
const DefaultMaxConcurrent = 5

// PayloadSource supplies the rendered, opaque operation payload per device.
// Produced by the external templating collaborator; the engine never
// inspects or mutates payload contents.
type PayloadSource interface {
	// Payload returns the payload to apply to a device.
	Payload(deviceID string) ([]byte, error)

	// Prior returns the device's last known-good payload for rollback.
	// ok is false when the caller supplied none, which disables rollback
	// for that device.
	Prior(deviceID string) ([]byte, bool)
}

// StaticPayloads is the simplest PayloadSource: a default payload with
// optional per-device overrides and rollback payloads.
type StaticPayloads struct {
	Default   []byte
	PerDevice map[string][]byte
	Priors    map[string][]byte
}

// Payload implements PayloadSource.
func (s StaticPayloads) Payload(deviceID string) ([]byte, error) {
	if p, ok := s.PerDevice[deviceID]; ok {
		return p, nil
	}
	if s.Default == nil {
		return nil, fmt.Errorf("no payload for device %q", deviceID)
	}
	return s.Default, nil
}

// Prior implements PayloadSource.
func (s StaticPayloads) Prior(deviceID string) ([]byte, bool) {
	p, ok := s.Priors[deviceID]
	return p, ok
}

// Options tune one batch submission.
type Options struct {
	// MaxConcurrent caps concurrently active devices. 0 means the default.
	MaxConcurrent int

	// DryRun resolves and probes connectors but never applies. Tasks end
	// Skipped with their probe attempts recorded.
	DryRun bool
}

// BatchRequest is one deployment submission.
type BatchRequest struct {
	DeviceIDs []string
	Payloads  PayloadSource
	Options   Options
}

// Validate rejects malformed requests before any work starts. This is the
// only error path out of Submit — everything after submission is contained
// per device.
func (r BatchRequest) Validate() error {
	var v util.ValidationBuilder
	v.Add(len(r.DeviceIDs) > 0, "at least one device id required")
	v.Add(r.Payloads != nil, "payload source required")
	v.Add(r.Options.MaxConcurrent >= 0, "max_concurrent must not be negative")
	seen := make(map[string]bool, len(r.DeviceIDs))
	for _, id := range r.DeviceIDs {
		if id == "" {
			v.AddError("empty device id")
			continue
		}
		if seen[id] {
			v.AddErrorf("duplicate device id %q", id)
		}
		seen[id] = true
	}
	return v.Build()
}

// Counts aggregates terminal task states. The invariant
// Succeeded+Failed+RolledBack+Skipped == len(devices) holds once a batch
// finishes.
type Counts struct {
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	RolledBack int `json:"rolled_back"`
	Skipped    int `json:"skipped"`
}

// Total returns the sum of all terminal counts.
func (c Counts) Total() int {
	return c.Succeeded + c.Failed + c.RolledBack + c.Skipped
}

// TaskResult is the immutable per-device outcome exposed in batch reports.
type TaskResult struct {
	DeviceID       string    `json:"device_id"`
	State          State     `json:"state"`
	Reason         string    `json:"reason,omitempty"`
	RollbackFailed bool      `json:"rollback_failed,omitempty"`
	Attempts       []Attempt `json:"attempts"`
}

// BatchResult is the batch-level report. Snapshots taken while the batch
// runs are partial (Done false, non-terminal states present); the finalized
// result is read-only.
type BatchResult struct {
	BatchID   string       `json:"batch_id"`
	Started   time.Time    `json:"started"`
	Ended     time.Time    `json:"ended,omitempty"`
	Done      bool         `json:"done"`
	Cancelled bool         `json:"cancelled"`
	DryRun    bool         `json:"dry_run,omitempty"`
	Tasks     []TaskResult `json:"tasks"`
	Counts    Counts       `json:"counts"`
}
