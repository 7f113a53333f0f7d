package stage

import (
	"context"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

// Operation performs the real-world effect of one stage. A nil return means
// success; any error is contained at the controller boundary and recorded as a
// failure. Implementations should be idempotent enough to be safely re-invoked
// by an operator after a prior failure.
type Operation func(ctx context.Context, cfg *config.Config) error

// Registry maps stages to their operations. The pipeline never inspects what an
// operation actually does; a new stage or a reordering needs only a registry and
// Order change.
type Registry struct {
	ops map[Stage]Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[Stage]Operation)}
}

// Register binds an operation to a stage, replacing any previous binding.
func (r *Registry) Register(s Stage, op Operation) {
	r.ops[s] = op
}

// Lookup returns the operation for a stage.
func (r *Registry) Lookup(s Stage) (Operation, bool) {
	op, ok := r.ops[s]
	return op, ok
}

// Missing returns the subset of stages that have no registered operation,
// preserving the given order.
func (r *Registry) Missing(stages []Stage) []Stage {
	var missing []Stage
	for _, s := range stages {
		if _, ok := r.ops[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}
