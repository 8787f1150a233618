package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evolvai/evolvai/internal/plan"
)

// Phase marks the furthest point a call has reached through the
// engine's four-phase state machine. Transitions are strictly
// forward.
type Phase string

const (
	PhasePreValidation Phase = "pre_validation"
	PhasePreExecution  Phase = "pre_execution"
	PhaseExecution     Phase = "execution"
	PhasePostExecution Phase = "post_execution"
)

// ExecutionContext is the per-call mutable state the engine owns for
// the lifetime of a single tool call. It is discarded once the audit
// record derived from it is appended.
type ExecutionContext struct {
	mu sync.Mutex

	ID        string
	ToolName  string
	Kwargs    map[string]any
	Plan      *plan.ExecutionPlan
	StartTime time.Time
	EndTime   time.Time
	Phase     Phase

	FilesProcessed int
	ChangesMade    int

	ConstraintViolations []plan.ValidationViolation

	EstimatedTokens int
	ActualTokens    int

	Result      string
	CallErr     error
	ShouldBatch bool
}

// NewExecutionContext starts a context for toolName at the current
// instant, in PhasePreValidation.
func NewExecutionContext(toolName string, kwargs map[string]any, execPlan *plan.ExecutionPlan) *ExecutionContext {
	return &ExecutionContext{
		ID:        uuid.NewString(),
		ToolName:  toolName,
		Kwargs:    kwargs,
		Plan:      execPlan,
		StartTime: time.Now(),
		Phase:     PhasePreValidation,
	}
}

// advance moves the context to phase. Transitions only ever move
// forward; the engine is the only caller and always calls them in
// order, so no cross-check is done here beyond recording the value.
func (c *ExecutionContext) advance(phase Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Phase = phase
}

// IncFilesProcessed bumps the files_processed counter by n.
func (c *ExecutionContext) IncFilesProcessed(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FilesProcessed += n
}

// IncChangesMade bumps the changes_made counter by n.
func (c *ExecutionContext) IncChangesMade(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ChangesMade += n
}

// CheckLimits is the runtime constraint probe a tool calls as it
// iterates. With no plan, or a plan with no limits, it is a no-op. It
// checks files_processed, then changes_made, then elapsed wall time,
// in that order, returning the first violated limit.
func (c *ExecutionContext) CheckLimits() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Plan == nil {
		return nil
	}
	limits := c.Plan.Limits()

	if limits.MaxFiles > 0 && c.FilesProcessed > limits.MaxFiles {
		return &FileLimitExceededError{FilesProcessed: c.FilesProcessed, MaxFiles: limits.MaxFiles}
	}
	if limits.MaxChanges > 0 && c.ChangesMade > limits.MaxChanges {
		return &ChangeLimitExceededError{ChangesMade: c.ChangesMade, MaxChanges: limits.MaxChanges}
	}
	if limits.TimeoutSeconds > 0 {
		elapsed := time.Since(c.StartTime).Seconds()
		if elapsed > float64(limits.TimeoutSeconds) {
			return &TimeoutError{ElapsedSeconds: elapsed, TimeoutSeconds: limits.TimeoutSeconds}
		}
	}
	return nil
}
