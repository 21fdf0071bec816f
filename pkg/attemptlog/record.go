// Package attemptlog persists the per-batch connection-attempt log.
//
// Records are append-only and immutable: the log is sufficient to
// reconstruct exactly which connectors were tried for each device, in what
// order, with what outcome — the audit trail behind every batch report and
// the fixture source for deterministic replay in tests.
package attemptlog

import (
	"time"
)

// Outcome classifies how a connection attempt ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeConnectError Outcome = "connect-error"
	OutcomeAuthError    Outcome = "auth-error"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeRejected     Outcome = "rejected"
	OutcomeUnsupported  Outcome = "unsupported"
)

// Record is one connection attempt. Created once, never mutated.
type Record struct {
	BatchID   string        `json:"batch_id"`
	DeviceID  string        `json:"device_id"`
	Connector string        `json:"connector"`
	Operation string        `json:"operation"` // operation in flight when the attempt ended
	Outcome   Outcome       `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Started   time.Time     `json:"started"`
	Ended     time.Time     `json:"ended"`
	Latency   time.Duration `json:"latency"`
}

// Filter defines criteria for querying attempt records.
type Filter struct {
	BatchID   string
	DeviceID  string
	Connector string
	Outcome   Outcome
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

func (f Filter) matches(r *Record) bool {
	if f.BatchID != "" && r.BatchID != f.BatchID {
		return false
	}
	if f.DeviceID != "" && r.DeviceID != f.DeviceID {
		return false
	}
	if f.Connector != "" && r.Connector != f.Connector {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if !f.StartTime.IsZero() && r.Started.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && r.Started.After(f.EndTime) {
		return false
	}
	return true
}

func (f Filter) window(records []*Record) []*Record {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			records = nil
		} else {
			records = records[f.Offset:]
		}
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Logger is the attempt log backend contract.
type Logger interface {
	Log(record *Record) error
	Query(filter Filter) ([]*Record, error)
	Close() error
}
