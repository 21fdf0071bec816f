package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/netforge-io/netforge/pkg/connector"
	"github.com/netforge-io/netforge/pkg/util"
)

// verifyAndRollback runs post-apply verification and, on mismatch, restores
// the caller-supplied prior payload through the SAME connector that applied
// the change. Verification runs exactly once and rollback is attempted at
// most once; a failed rollback leaves the device in an unknown state and is
// flagged for manual intervention.
func (o *Orchestrator) verifyAndRollback(ctx context.Context, run *batchRun, task *Task, conn connector.Connector, payload []byte) (State, string) {
	kind := conn.Kind()
	log := util.WithBatch(run.id).WithField("device", task.DeviceID).WithField("connector", string(kind))

	started := time.Now()
	verdict, err := conn.Verify(ctx, payload)
	o.recordAttempt(run, task, kind, "verify", started, err)
	if err != nil {
		// Verification never happened, so the applied state is simply
		// unconfirmed. Rolling back on an unconfirmed state risks undoing a
		// good deployment; report the failure instead.
		return StateFailed, fmt.Sprintf("verification error: %v", err)
	}
	if verdict.Match {
		return StateSucceeded, ""
	}

	log.Warnf("verification mismatch: %s", verdict.Detail)

	if task.Prior == nil {
		return StateFailed, fmt.Sprintf("verification mismatch, no rollback payload: %s", verdict.Detail)
	}

	started = time.Now()
	_, err = conn.Apply(ctx, task.Prior)
	o.recordAttempt(run, task, kind, "rollback", started, err)
	if err != nil {
		run.mu.Lock()
		task.RollbackFailed = true
		run.mu.Unlock()
		log.Errorf("rollback failed, manual intervention required: %v", err)
		return StateFailed, fmt.Sprintf("verification mismatch and rollback failed: %v", err)
	}

	return StateRolledBack, fmt.Sprintf("verification mismatch: %s", verdict.Detail)
}
