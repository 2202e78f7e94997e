// Package pipeline provides the batch state machine and run reporting types.
package pipeline

import "fmt"

// Stage identifies a step in the per-batch pipeline.
type Stage int

// Stage values, in execution order.
const (
	StageLoaded Stage = iota
	StageNormalized
	StageUpserted
	StageTextIndexed
	StageEmbedded
	StageDone
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageNormalized:
		return "normalized"
	case StageUpserted:
		return "upserted"
	case StageTextIndexed:
		return "text_indexed"
	case StageEmbedded:
		return "embedded"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Next returns the stage that follows s.
func (s Stage) Next() Stage {
	if s >= StageDone {
		return StageDone
	}
	return s + 1
}

// BatchState tracks a single batch through the pipeline. A batch either
// reaches Done or terminates as failed at a specific stage; there is no
// partially-advanced terminal state because each stage commits atomically.
type BatchState struct {
	stage  Stage
	failed bool
	err    error
}

// NewBatchState creates a BatchState at StageLoaded.
func NewBatchState() BatchState {
	return BatchState{stage: StageLoaded}
}

// Stage returns the current (or failing) stage.
func (b BatchState) Stage() Stage { return b.stage }

// Failed reports whether the batch terminated in failure.
func (b BatchState) Failed() bool { return b.failed }

// Err returns the failure cause, nil unless Failed.
func (b BatchState) Err() error { return b.err }

// Advance moves to the next stage. Advancing a failed batch is a no-op.
func (b BatchState) Advance() BatchState {
	if b.failed {
		return b
	}
	b.stage = b.stage.Next()
	return b
}

// Fail marks the batch as terminally failed at its current stage.
func (b BatchState) Fail(err error) BatchState {
	b.failed = true
	b.err = err
	return b
}

// Done reports whether the batch completed every stage.
func (b BatchState) Done() bool {
	return !b.failed && b.stage == StageDone
}
