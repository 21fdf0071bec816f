package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netforge-io/netforge/pkg/attemptlog"
	"github.com/netforge-io/netforge/pkg/connector"
	"github.com/netforge-io/netforge/pkg/endpoint"
	"github.com/netforge-io/netforge/pkg/inventory"
	"github.com/netforge-io/netforge/pkg/resolver"
	"github.com/netforge-io/netforge/pkg/util"
)

// ErrBatchNotFound is returned for status/cancel calls on unknown batch ids.
var ErrBatchNotFound = errors.New("batch not found")

// Orchestrator runs deployment batches. One instance serves many batches;
// each batch gets its own bounded worker pool and its own cancellation
// scope. Construct once at startup with NewOrchestrator and share.
type Orchestrator struct {
	inventory inventory.Store
	registry  *endpoint.Registry
	dialer    connector.Dialer
	log       attemptlog.Logger // nil disables persistence

	mu      sync.RWMutex
	batches map[string]*batchRun
}

// NewOrchestrator wires the orchestrator to its collaborators. The attempt
// logger may be nil; attempts are then kept only in memory on the tasks.
func NewOrchestrator(inv inventory.Store, reg *endpoint.Registry, dialer connector.Dialer, log attemptlog.Logger) *Orchestrator {
	return &Orchestrator{
		inventory: inv,
		registry:  reg,
		dialer:    dialer,
		log:       log,
		batches:   make(map[string]*batchRun),
	}
}

// batchRun is the mutable spine of one running batch. Task structs are
// mutated only while holding mu; status snapshots copy under the same lock.
type batchRun struct {
	mu        sync.Mutex
	id        string
	started   time.Time
	ended     time.Time
	dryRun    bool
	cancelled bool
	tasks     []*Task
	done      chan struct{}
}

// Submit validates the request and starts the batch asynchronously. The
// only immediate failure is a malformed request; once a batch id is
// returned, every per-device failure is contained in the batch result.
func (o *Orchestrator) Submit(ctx context.Context, req BatchRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("submit batch: %w", err)
	}

	run := &batchRun{
		id:      uuid.NewString(),
		started: time.Now(),
		dryRun:  req.Options.DryRun,
		done:    make(chan struct{}),
	}
	for _, id := range req.DeviceIDs {
		run.tasks = append(run.tasks, &Task{DeviceID: id, State: StatePending})
	}

	o.mu.Lock()
	o.batches[run.id] = run
	o.mu.Unlock()

	maxConcurrent := req.Options.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	util.WithBatch(run.id).Infof("batch submitted: %d device(s), max_concurrent=%d, dry_run=%v",
		len(req.DeviceIDs), maxConcurrent, req.Options.DryRun)

	go o.runBatch(run, req, maxConcurrent)
	return run.id, nil
}

// BatchStatus returns a snapshot of the batch result, partial while the
// batch is still running.
func (o *Orchestrator) BatchStatus(batchID string) (BatchResult, error) {
	o.mu.RLock()
	run, ok := o.batches[batchID]
	o.mu.RUnlock()
	if !ok {
		return BatchResult{}, fmt.Errorf("status %q: %w", batchID, ErrBatchNotFound)
	}
	return run.snapshot(), nil
}

// Cancel requests batch cancellation: tasks not yet started will be
// skipped, in-flight tasks finish their current state transition (a task
// mid-apply completes verification) and then stop trying further
// candidates.
func (o *Orchestrator) Cancel(batchID string) error {
	o.mu.RLock()
	run, ok := o.batches[batchID]
	o.mu.RUnlock()
	if !ok {
		return fmt.Errorf("cancel %q: %w", batchID, ErrBatchNotFound)
	}
	run.mu.Lock()
	run.cancelled = true
	run.mu.Unlock()
	util.WithBatch(batchID).Warn("batch cancellation requested")
	return nil
}

// Wait blocks until the batch reaches its final state. Test and CLI helper.
func (o *Orchestrator) Wait(batchID string) (BatchResult, error) {
	o.mu.RLock()
	run, ok := o.batches[batchID]
	o.mu.RUnlock()
	if !ok {
		return BatchResult{}, fmt.Errorf("wait %q: %w", batchID, ErrBatchNotFound)
	}
	<-run.done
	return run.snapshot(), nil
}

// ProbeResult is one connector's pre-flight connectivity outcome.
type ProbeResult struct {
	Reachable bool          `json:"reachable"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency"`
}

// TestConnectivity probes every ranked candidate for a device without
// applying anything. Candidates are probed sequentially — the one-attempt-
// in-flight-per-device rule holds for diagnostics too.
func (o *Orchestrator) TestConnectivity(ctx context.Context, deviceID string) (map[connector.Kind]ProbeResult, error) {
	device, err := o.inventory.Lookup(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	results := make(map[connector.Kind]ProbeResult)
	for _, cand := range resolver.Rank(device, o.registry.View(ctx)) {
		started := time.Now()
		conn, err := o.dialer.Dial(ctx, cand, device)
		if err == nil {
			err = conn.Probe(ctx)
			closeConnector(conn)
		}
		res := ProbeResult{Reachable: err == nil, Latency: time.Since(started)}
		if err != nil {
			res.Error = err.Error()
		}
		results[cand.Kind] = res
	}
	return results, nil
}

// runBatch drives all tasks through the bounded worker pool and finalizes
// the result when the last task reaches a terminal state.
func (o *Orchestrator) runBatch(run *batchRun, req BatchRequest, maxConcurrent int) {
	slots := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for _, task := range run.tasks {
		slots <- struct{}{}

		if run.isCancelled() {
			run.setTerminal(task, StateSkipped, "batch cancelled before start")
			<-slots
			continue
		}

		wg.Add(1)
		go func(task *Task) {
			defer wg.Done()
			defer func() { <-slots }()
			o.runTask(run, req, task)
		}(task)
	}

	wg.Wait()
	run.mu.Lock()
	run.ended = time.Now()
	run.mu.Unlock()
	close(run.done)

	result := run.snapshot()
	util.WithBatch(run.id).Infof("batch finished: %d succeeded, %d failed, %d rolled back, %d skipped",
		result.Counts.Succeeded, result.Counts.Failed, result.Counts.RolledBack, result.Counts.Skipped)
}

// runTask walks one device through the deployment state machine. All
// connector operations run on a background-derived context: batch
// cancellation is honored only between operations, never by aborting one
// mid-flight, so a partial apply is always carried to its natural
// conclusion.
func (o *Orchestrator) runTask(run *batchRun, req BatchRequest, task *Task) {
	ctx := context.Background()
	log := util.WithBatch(run.id).WithField("device", task.DeviceID)

	device, err := o.inventory.Lookup(ctx, task.DeviceID)
	if err != nil {
		// Inventory misses fail the device immediately, without contacting
		// any connector, and never block sibling devices.
		run.setTerminal(task, StateFailed, fmt.Sprintf("device not found: %v", err))
		log.Warnf("skipping: %v", err)
		return
	}

	payload, err := req.Payloads.Payload(task.DeviceID)
	if err != nil {
		run.setTerminal(task, StateFailed, fmt.Sprintf("payload: %v", err))
		return
	}
	run.mu.Lock()
	task.Payload = payload
	if prior, ok := req.Payloads.Prior(task.DeviceID); ok {
		task.Prior = prior
	}
	run.mu.Unlock()

	candidates := resolver.Rank(device, o.registry.View(ctx))

	for i, cand := range candidates {
		if i > 0 && run.isCancelled() {
			run.setTerminal(task, StateFailed, "batch cancelled before next candidate")
			return
		}
		if task.Tried(cand.Kind) {
			continue
		}
		last := i == len(candidates)-1

		run.setState(task, StateConnecting)
		started := time.Now()

		conn, err := o.dialer.Dial(ctx, cand, device)
		if err != nil {
			o.recordAttempt(run, task, cand.Kind, "probe", started, err)
			if !last {
				continue
			}
			run.setTerminal(task, StateFailed, fmt.Sprintf("all candidate connectors exhausted, last error: %v", err))
			return
		}

		if err := conn.Probe(ctx); err != nil {
			o.recordAttempt(run, task, cand.Kind, "probe", started, err)
			closeConnector(conn)
			log.WithField("connector", string(cand.Kind)).Debugf("probe failed: %v", err)
			// A probe failure says this channel cannot reach the device,
			// whatever its error kind; the remaining candidates still can.
			// Only apply rejections are terminal across channels.
			if !last {
				continue
			}
			run.setTerminal(task, StateFailed, fmt.Sprintf("all candidate connectors exhausted, last error: %v", err))
			return
		}

		if run.dryRun {
			o.recordAttempt(run, task, cand.Kind, "probe", started, nil)
			closeConnector(conn)
			run.setTerminal(task, StateSkipped, "dry run")
			return
		}

		run.setState(task, StateApplying)
		started = time.Now()
		if _, err := conn.Apply(ctx, payload); err != nil {
			o.recordAttempt(run, task, cand.Kind, "apply", started, err)
			closeConnector(conn)
			if connector.Retryable(err) {
				if !last {
					continue
				}
				run.setTerminal(task, StateFailed, fmt.Sprintf("all candidate connectors exhausted, last error: %v", err))
				return
			}
			// RemoteRejected / UnsupportedOperation: the operation itself
			// was refused, another channel would refuse it too.
			run.setTerminal(task, StateFailed, fmt.Sprintf("apply rejected: %v", err))
			return
		}

		o.recordAttempt(run, task, cand.Kind, "apply", started, nil)

		run.setState(task, StateVerifying)
		state, reason := o.verifyAndRollback(ctx, run, task, conn, payload)
		closeConnector(conn)

		run.setTerminal(task, state, reason)
		log.Infof("task finished: %s", state)
		return
	}

	// Rank always includes the direct-session fallback, so the loop only
	// falls through when every candidate was already tried.
	run.setTerminal(task, StateFailed, "all candidate connectors exhausted")
}

// recordAttempt appends the attempt to the task and persists it.
func (o *Orchestrator) recordAttempt(run *batchRun, task *Task, kind connector.Kind, op string, started time.Time, err error) {
	ended := time.Now()
	outcome := attemptlog.OutcomeSuccess
	detail := ""
	if err != nil {
		outcome = outcomeForError(err)
		detail = err.Error()
	}

	run.mu.Lock()
	task.Attempts = append(task.Attempts, Attempt{
		Connector: kind,
		Operation: op,
		Outcome:   outcome,
		Error:     detail,
		Started:   started,
		Ended:     ended,
	})
	run.mu.Unlock()

	if o.log == nil {
		return
	}
	rec := &attemptlog.Record{
		BatchID:   run.id,
		DeviceID:  task.DeviceID,
		Connector: string(kind),
		Operation: op,
		Outcome:   outcome,
		Error:     detail,
		Started:   started,
		Ended:     ended,
		Latency:   ended.Sub(started),
	}
	if logErr := o.log.Log(rec); logErr != nil {
		util.WithBatch(run.id).Errorf("attempt log write failed: %v", logErr)
	}
}

func closeConnector(conn connector.Connector) {
	if c, ok := conn.(io.Closer); ok {
		c.Close()
	}
}

func (r *batchRun) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (r *batchRun) setState(task *Task, s State) {
	r.mu.Lock()
	task.State = s
	r.mu.Unlock()
}

func (r *batchRun) setTerminal(task *Task, s State, reason string) {
	r.mu.Lock()
	task.State = s
	task.Reason = reason
	r.mu.Unlock()
}

// snapshot copies the run into an immutable BatchResult.
func (r *batchRun) snapshot() BatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := BatchResult{
		BatchID:   r.id,
		Started:   r.started,
		Ended:     r.ended,
		Done:      !r.ended.IsZero(),
		Cancelled: r.cancelled,
		DryRun:    r.dryRun,
		Tasks:     make([]TaskResult, 0, len(r.tasks)),
	}
	for _, task := range r.tasks {
		result.Tasks = append(result.Tasks, task.Result())
		switch task.State {
		case StateSucceeded:
			result.Counts.Succeeded++
		case StateFailed:
			result.Counts.Failed++
		case StateRolledBack:
			result.Counts.RolledBack++
		case StateSkipped:
			result.Counts.Skipped++
		}
	}
	return result
}
