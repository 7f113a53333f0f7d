package stage

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of one stage attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// StageResult records one stage attempt. Created by the controller immediately
// after the operation returns; never mutated afterwards.
type StageResult struct {
	Stage     Stage   `json:"stage"`
	Outcome   Outcome `json:"outcome"`
	Message   string  `json:"message,omitempty"`
	Duration  string  `json:"duration"`
	Timestamp string  `json:"timestamp"`
}

// Failed reports whether the attempt ended in failure.
func (r StageResult) Failed() bool {
	return r.Outcome == OutcomeFailure
}

// RunLog is the ordered record of every stage attempted in one pipeline run.
// Insertion order is execution order. A RunLog is exclusively owned by the run
// that produced it; concurrent runs use independent instances.
type RunLog struct {
	ID         string        `json:"id"`
	Mode       Mode          `json:"mode"`
	StartStage Stage         `json:"start_stage"`
	Results    []StageResult `json:"results"`
	StartedAt  string        `json:"started_at"`
	FinishedAt string        `json:"finished_at,omitempty"`
}

// NewRunLog creates an empty RunLog with a fresh run ID.
func NewRunLog(mode Mode, start Stage) *RunLog {
	return &RunLog{
		ID:         uuid.NewString(),
		Mode:       mode,
		StartStage: start,
		Results:    []StageResult{},
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Append adds a result. Results are never removed or rewritten.
func (l *RunLog) Append(r StageResult) {
	l.Results = append(l.Results, r)
}

// Finish stamps the end of the run.
func (l *RunLog) Finish() {
	l.FinishedAt = time.Now().UTC().Format(time.RFC3339)
}

// Failures returns the results that ended in failure, in execution order.
func (l *RunLog) Failures() []StageResult {
	var failed []StageResult
	for _, r := range l.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}
