// Package pipeline drives a provisioning run: it resolves each stage's
// operation from the registry, executes it under a scoped-failure boundary,
// records the result, and asks the resolver what runs next.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
	"github.com/joshua-d-miller/enrollpipe/internal/db"
	"github.com/joshua-d-miller/enrollpipe/internal/runlog"
	"github.com/joshua-d-miller/enrollpipe/internal/stage"
)

// Pipeline-level errors. These are fatal and reported before any stage runs;
// stage-level failures are never surfaced as errors, only recorded.
var (
	ErrNilConfig         = errors.New("no provisioning config supplied")
	ErrUnknownStage      = errors.New("unknown start stage")
	ErrUnregisteredStage = errors.New("stage has no registered operation")
)

// Controller holds the stage registry and the advancement rule for one or more
// runs. Each Run owns its RunLog exclusively; a Controller may be reused but
// not shared between concurrent runs.
type Controller struct {
	registry *stage.Registry
	cfg      *config.Config

	timeout  time.Duration // per-stage; 0 = no timeout
	progress io.Writer     // live progress output; nil = silent
	store    *runlog.Store // optional run-log persistence
	events   *db.DB        // optional event log
}

// New creates a Controller.
func New(registry *stage.Registry, cfg *config.Config) *Controller {
	return &Controller{registry: registry, cfg: cfg}
}

// SetTimeout sets a per-stage timeout. Expiry is recorded as a stage failure;
// the chain continues.
func (c *Controller) SetTimeout(d time.Duration) {
	c.timeout = d
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (c *Controller) SetProgress(w io.Writer) {
	c.progress = w
}

// SetStore enables run-log persistence at the end of each run.
func (c *Controller) SetStore(s *runlog.Store) {
	c.store = s
}

// SetEventLog enables per-attempt event logging.
func (c *Controller) SetEventLog(d *db.DB) {
	c.events = d
}

// logf prints a progress line if a progress writer is configured.
func (c *Controller) logf(format string, args ...interface{}) {
	if c.progress != nil {
		fmt.Fprintf(c.progress, "  → "+format+"\n", args...)
	}
}

// Run executes the pipeline from start under the given mode and returns the
// accumulated RunLog. Stage failures are contained and recorded; only
// pipeline-level preconditions produce an error, always before the first
// stage executes.
func (c *Controller) Run(ctx context.Context, start stage.Stage, mode stage.Mode) (*stage.RunLog, error) {
	if c.cfg == nil {
		return nil, ErrNilConfig
	}
	if !stage.Known(start) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, start)
	}

	// Every stage this run can reach must be resolvable up front, so a
	// mis-wired registry fails before any irreversible work starts.
	reachable := []stage.Stage{start}
	if mode == stage.ModeChained {
		reachable = stage.From(start)
	}
	if missing := c.registry.Missing(reachable); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnregisteredStage, missing)
	}

	log := stage.NewRunLog(mode, start)
	c.logEvent(log.ID, "run_started", string(start), "", string(mode))
	c.logf("run %s: mode=%s start=%s", log.ID, mode, start)

	current := start
	for {
		result := c.attempt(ctx, log.ID, current)
		log.Append(result)

		decision := stage.Resolve(current, mode)
		if decision.Terminate {
			break
		}
		current = decision.Next
	}

	log.Finish()
	c.logEvent(log.ID, "run_finished", "", "", fmt.Sprintf("stages=%d failures=%d", len(log.Results), len(log.Failures())))
	c.logf("run %s finished: %d stages, %d failures", log.ID, len(log.Results), len(log.Failures()))

	if c.store != nil {
		if err := c.store.Save(log); err != nil {
			return log, fmt.Errorf("save run log: %w", err)
		}
	}
	return log, nil
}

// attempt executes one stage operation and converts whatever happens into a
// StageResult. Operation errors, panics, and timeouts all land here; nothing
// escapes to abort the run.
func (c *Controller) attempt(ctx context.Context, runID string, s stage.Stage) stage.StageResult {
	op, _ := c.registry.Lookup(s)

	c.logEvent(runID, "stage_started", string(s), "", "")
	c.logf("stage %s: starting", s)

	start := time.Now()
	err := c.invoke(ctx, op)
	elapsed := time.Since(start)

	result := stage.StageResult{
		Stage:     s,
		Outcome:   stage.OutcomeSuccess,
		Duration:  elapsed.Round(time.Millisecond).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		result.Outcome = stage.OutcomeFailure
		result.Message = err.Error()
		c.logf("stage %s: FAILED (%s)", s, err)
	} else {
		c.logf("stage %s: ok (%s)", s, result.Duration)
	}

	c.logEvent(runID, "stage_finished", string(s), string(result.Outcome), result.Message)
	return result
}

// invoke runs one operation with panic recovery and the optional per-stage
// timeout. The operation receives a context that expires with the timeout;
// once the deadline passes its result is discarded and the attempt is recorded
// as a failure, but the controller still waits for the operation to return
// before the next stage may start. Stages never overlap.
func (c *Controller) invoke(ctx context.Context, op stage.Operation) error {
	opCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("stage panicked: %v", r)
			}
		}()
		done <- op(opCtx, c.cfg)
	}()

	select {
	case err := <-done:
		return err
	case <-opCtx.Done():
		timedOut := c.timeout > 0 && ctx.Err() == nil
		// An operation that honors its context returns promptly here; one
		// that ignores it holds the run, which beats mutating the device
		// concurrently with its successor.
		<-done
		if timedOut {
			return fmt.Errorf("stage timed out after %s", c.timeout)
		}
		return fmt.Errorf("stage aborted: %v", opCtx.Err())
	}
}

// logEvent writes to the event log, best-effort.
func (c *Controller) logEvent(runID string, event string, stageName string, outcome string, detail string) {
	if c.events == nil {
		return
	}
	_ = c.events.LogEvent(runID, event, stageName, outcome, detail)
}
