// Package plan implements the ExecutionPlan contract: a declarative,
// bounded description of what a tool call may do.
package plan

import (
	"fmt"
	"strings"
)

// RollbackStrategy is the closed set of ways a tool call can be undone.
type RollbackStrategy string

const (
	RollbackGitRevert  RollbackStrategy = "git_revert"
	RollbackFileBackup RollbackStrategy = "file_backup"
	RollbackManual     RollbackStrategy = "manual"
)

// Rollback describes how a tool call's effects can be undone.
type Rollback struct {
	Strategy RollbackStrategy
	Commands []string
}

// Limits bounds the resources a single tool call may consume.
type Limits struct {
	MaxFiles       int
	MaxChanges     int
	TimeoutSeconds int
}

const (
	minMaxFiles   = 1
	maxMaxFiles   = 100
	minMaxChanges = 1
	maxMaxChanges = 1000
	minTimeout    = 1
	maxTimeout    = 300
)

// ExecutionPlan is the declarative contract attached to a tool call.
// It is immutable once constructed: NewExecutionPlan is the only way
// to build one, and it enforces the structural invariants of the
// schema (bounded fields, manual rollback requires commands) before
// returning a value the rest of the system can trust.
type ExecutionPlan struct {
	dryRun           bool
	preConditions    []string
	expectedOutcomes []string
	rollback         Rollback
	limits           Limits
	batch            bool
}

// ConstructionError reports a structural violation caught at
// construction time, distinct from a ValidationViolation: the plan
// could not even be built, let alone semantically validated.
type ConstructionError struct {
	Field string
	Msg   string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("execution plan: %s: %s", e.Field, e.Msg)
}

// Option configures an ExecutionPlan under construction.
type Option func(*ExecutionPlan)

func WithDryRun(v bool) Option { return func(p *ExecutionPlan) { p.dryRun = v } }

func WithPreConditions(conds ...string) Option {
	return func(p *ExecutionPlan) { p.preConditions = append([]string(nil), conds...) }
}

func WithExpectedOutcomes(outcomes ...string) Option {
	return func(p *ExecutionPlan) { p.expectedOutcomes = append([]string(nil), outcomes...) }
}

func WithRollback(strategy RollbackStrategy, commands ...string) Option {
	return func(p *ExecutionPlan) {
		p.rollback = Rollback{Strategy: strategy, Commands: append([]string(nil), commands...)}
	}
}

func WithLimits(maxFiles, maxChanges, timeoutSeconds int) Option {
	return func(p *ExecutionPlan) {
		p.limits = Limits{MaxFiles: maxFiles, MaxChanges: maxChanges, TimeoutSeconds: timeoutSeconds}
	}
}

func WithBatch(v bool) Option { return func(p *ExecutionPlan) { p.batch = v } }

// NewExecutionPlan builds an ExecutionPlan, applying schema defaults
// and rejecting any structurally invalid document. Semantic checks
// (duplicate conditions, suspicious rollback commands, cross-field
// consistency) are the Validator's job, not this constructor's.
func NewExecutionPlan(opts ...Option) (*ExecutionPlan, error) {
	p := &ExecutionPlan{
		dryRun: true,
		limits: Limits{MaxFiles: 1, MaxChanges: 1, TimeoutSeconds: 30},
		rollback: Rollback{Strategy: RollbackGitRevert, Commands: nil},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.limits.MaxFiles < minMaxFiles || p.limits.MaxFiles > maxMaxFiles {
		return nil, &ConstructionError{
			Field: "limits.max_files",
			Msg:   fmt.Sprintf("must be between %d and %d, got %d", minMaxFiles, maxMaxFiles, p.limits.MaxFiles),
		}
	}
	if p.limits.MaxChanges < minMaxChanges || p.limits.MaxChanges > maxMaxChanges {
		return nil, &ConstructionError{
			Field: "limits.max_changes",
			Msg:   fmt.Sprintf("must be between %d and %d, got %d", minMaxChanges, maxMaxChanges, p.limits.MaxChanges),
		}
	}
	if p.limits.TimeoutSeconds < minTimeout || p.limits.TimeoutSeconds > maxTimeout {
		return nil, &ConstructionError{
			Field: "limits.timeout_seconds",
			Msg:   fmt.Sprintf("must be between %d and %d, got %d", minTimeout, maxTimeout, p.limits.TimeoutSeconds),
		}
	}
	if p.rollback.Strategy == RollbackManual && len(p.rollback.Commands) == 0 {
		return nil, &ConstructionError{
			Field: "rollback.commands",
			Msg:   "manual rollback strategy requires a non-empty command list",
		}
	}

	return p, nil
}

func (p *ExecutionPlan) DryRun() bool                 { return p.dryRun }
func (p *ExecutionPlan) PreConditions() []string      { return append([]string(nil), p.preConditions...) }
func (p *ExecutionPlan) ExpectedOutcomes() []string    { return append([]string(nil), p.expectedOutcomes...) }
func (p *ExecutionPlan) Rollback() Rollback           { return p.rollback }
func (p *ExecutionPlan) Limits() Limits               { return p.limits }
func (p *ExecutionPlan) Batch() bool                  { return p.batch }

// trimmedEmpty reports whether s is empty after trimming whitespace.
func trimmedEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
