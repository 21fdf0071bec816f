// Package deploy drives per-device deployment state machines concurrently
// across a batch: it resolves candidate connectors per device, attempts them
// strictly in order, falls back on retryable failures, verifies outcomes,
// rolls back on verification mismatch, and aggregates everything into an
// auditable batch report. Per-device errors never escape their task; a
// batch always completes with a result enumerating every device.
package deploy

import (
	"time"

	"github.com/netforge-io/netforge/pkg/attemptlog"
	"github.com/netforge-io/netforge/pkg/connector"
)

// State is a deployment task's position in its lifecycle.
//
//	Pending → Connecting → Applying → Verifying → {Succeeded | Failed | RolledBack}
//
// Skipped is terminal for tasks that never ran: dry-run probes and tasks
// cancelled before starting.
type State string

const (
	StatePending    State = "pending"
	StateConnecting State = "connecting"
	StateApplying   State = "applying"
	StateVerifying  State = "verifying"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateRolledBack State = "rolled-back"
	StateSkipped    State = "skipped"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateRolledBack, StateSkipped:
		return true
	}
	return false
}

// Attempt records one connector attempt against one device. Immutable once
// appended; the full slice is the task's audit trail.
type Attempt struct {
	Connector connector.Kind     `json:"connector"`
	Operation string             `json:"operation"` // operation in flight when the attempt ended
	Outcome   attemptlog.Outcome `json:"outcome"`
	Error     string             `json:"error,omitempty"`
	Started   time.Time          `json:"started"`
	Ended     time.Time          `json:"ended"`
}

// Task is the per-device deployment state machine. Owned exclusively by the
// orchestrator goroutine running it for the lifetime of the batch; snapshots
// cross the boundary, the Task itself never does.
type Task struct {
	DeviceID string
	Payload  []byte
	Prior    []byte // caller-supplied known-good payload for rollback; nil disables rollback

	State          State
	Attempts       []Attempt
	Reason         string // human-readable cause for Failed/Skipped/RolledBack
	RollbackFailed bool   // manual intervention required
}

// Tried reports whether a connector kind was already attempted. The
// attempted-connector list never contains the same connector twice in one
// batch run.
func (t *Task) Tried(kind connector.Kind) bool {
	for _, a := range t.Attempts {
		if a.Connector == kind {
			return true
		}
	}
	return false
}

// Result converts the task to its immutable snapshot form.
func (t *Task) Result() TaskResult {
	attempts := make([]Attempt, len(t.Attempts))
	copy(attempts, t.Attempts)
	return TaskResult{
		DeviceID:       t.DeviceID,
		State:          t.State,
		Reason:         t.Reason,
		RollbackFailed: t.RollbackFailed,
		Attempts:       attempts,
	}
}

// outcomeForError maps a connector error to the attempt outcome recorded in
// the audit log.
func outcomeForError(err error) attemptlog.Outcome {
	switch connector.KindOf(err) {
	case connector.AuthError:
		return attemptlog.OutcomeAuthError
	case connector.Timeout:
		return attemptlog.OutcomeTimeout
	case connector.RemoteRejected:
		return attemptlog.OutcomeRejected
	case connector.UnsupportedOperation:
		return attemptlog.OutcomeUnsupported
	default:
		return attemptlog.OutcomeConnectError
	}
}
