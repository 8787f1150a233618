// Package engine implements the Tool Execution Engine: the four-phase
// state machine that wraps every tool call, enforces an ExecutionPlan
// at both validation and runtime, retries once on a transient
// language-server failure, and appends exactly one audit record per
// call.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/evolvai/evolvai/internal/plan"
	"github.com/evolvai/evolvai/internal/telemetry"
)

// Tool is the minimal contract the engine drives a call through,
// narrowed to what the engine itself needs to orchestrate a call; any
// surrounding registry, prompt rendering, or JSON schema machinery is
// the caller's concern.
type Tool interface {
	Name() string
	RequiresProject() bool
	RequiresLanguageServer() bool
	Call(ctx *ExecutionContext, kwargs map[string]any) (string, error)
}

// ProjectState reports whether a project is currently active, and
// names the known projects for an error message when it is not.
type ProjectState interface {
	Active() bool
	KnownProjects() []string
}

// LanguageServer is the minimal collaborator the engine needs to
// check readiness and request a restart.
type LanguageServer interface {
	Running() bool
	Restart() error
	FlushCache() error
}

// ToolSet reports which tool names are currently active, for Phase 1's
// activation check.
type ToolSet interface {
	ActiveToolNames() []string
}

// HostAgent receives the post-execution tool-usage notification.
type HostAgent interface {
	RecordToolUsage(c *ExecutionContext) error
}

// Engine orchestrates tool calls through the four-phase state machine
// and owns the audit log those calls are appended to.
type Engine struct {
	Tools              ToolSet
	Project            ProjectState
	LanguageServer     LanguageServer
	Host               HostAgent
	Audit              *AuditLog
	Logger             *telemetry.Logger
	ConstraintsEnabled bool
}

// New builds an Engine. logger may be nil, in which case a no-op
// Logger is used so callers never need a nil check.
func New(tools ToolSet, project ProjectState, ls LanguageServer, host HostAgent, logger *telemetry.Logger) *Engine {
	if logger == nil {
		logger, _ = telemetry.NewLogger("", false)
	}
	return &Engine{
		Tools:              tools,
		Project:            project,
		LanguageServer:     ls,
		Host:               host,
		Audit:              NewAuditLog(),
		Logger:             logger,
		ConstraintsEnabled: true,
	}
}

// Execute drives tool through all four phases and returns its result.
// Exactly one audit record is appended, on every exit path, before
// Execute returns.
func (e *Engine) Execute(tool Tool, kwargs map[string]any, execPlan *plan.ExecutionPlan) (result string, err error) {
	c := NewExecutionContext(tool.Name(), kwargs, execPlan)

	defer func() {
		c.EndTime = time.Now()
		c.Result = result
		c.CallErr = err
		e.Audit.append(newAuditRecord(c, err == nil))
		e.Logger.AuditAppended(tool.Name(), err == nil)
	}()

	if err = e.preValidate(c, tool); err != nil {
		return "", wrapExecutionFailure(err)
	}

	c.advance(PhasePreExecution)
	e.Logger.PhaseTransition(tool.Name(), string(PhasePreExecution))
	if err = e.preExecute(c, execPlan); err != nil {
		return "", wrapExecutionFailure(err)
	}

	c.advance(PhaseExecution)
	e.Logger.PhaseTransition(tool.Name(), string(PhaseExecution))
	result, err = e.execute(c, tool, kwargs)
	if err != nil {
		return "", wrapExecutionFailure(err)
	}

	c.advance(PhasePostExecution)
	e.Logger.PhaseTransition(tool.Name(), string(PhasePostExecution))
	e.postExecute(c)

	return result, nil
}

// preValidate implements Phase 1: tool activation, project
// requirement, and language-server readiness.
func (e *Engine) preValidate(c *ExecutionContext, tool Tool) error {
	e.Logger.PhaseTransition(tool.Name(), string(PhasePreValidation))

	if e.Tools != nil {
		active := e.Tools.ActiveToolNames()
		if !containsName(active, tool.Name()) {
			return fmt.Errorf("tool %q is not active; active tools are: %s", tool.Name(), strings.Join(active, ", "))
		}
	}

	if tool.RequiresProject() && e.Project != nil && !e.Project.Active() {
		known := e.Project.KnownProjects()
		return fmt.Errorf("tool %q requires an active project; known projects are: %s", tool.Name(), strings.Join(known, ", "))
	}

	if tool.RequiresLanguageServer() && e.LanguageServer != nil && !e.LanguageServer.Running() {
		if err := e.LanguageServer.Restart(); err != nil {
			return fmt.Errorf("tool %q requires a language server, restart failed: %w", tool.Name(), err)
		}
	}

	return nil
}

// preExecute implements Phase 2: the plan constraint gate. It is
// skipped when constraints are disabled or no plan was supplied.
func (e *Engine) preExecute(c *ExecutionContext, execPlan *plan.ExecutionPlan) error {
	if !e.ConstraintsEnabled || execPlan == nil {
		return nil
	}

	result := plan.Validate(execPlan)
	if result.IsValid() {
		return nil
	}

	c.ConstraintViolations = result.Violations
	e.Logger.ConstraintRejected(c.ToolName, result.ErrorCount())
	return &ConstraintViolationError{
		ConstraintType: "validation",
		Result:         result,
		Message:        fmt.Sprintf("execution plan rejected with %d error(s)", result.ErrorCount()),
	}
}

// execute implements Phase 3: invoke the tool, retrying exactly once
// if it reports the language server terminated mid-call.
func (e *Engine) execute(c *ExecutionContext, tool Tool, kwargs map[string]any) (string, error) {
	c.EstimatedTokens = estimateTokens(kwargs)

	result, err := tool.Call(c, kwargs)
	if err != nil && isLanguageServerTerminated(err) {
		if e.LanguageServer != nil {
			if restartErr := e.LanguageServer.Restart(); restartErr != nil {
				return "", fmt.Errorf("language server terminated and restart failed: %w", restartErr)
			}
		}
		result, err = tool.Call(c, kwargs)
	}
	if err != nil {
		return "", err
	}

	c.ActualTokens = len(result) / 4
	return result, nil
}

// postExecute implements Phase 4: notify the host agent and flush the
// language-server cache. Failures here are logged, never propagated.
func (e *Engine) postExecute(c *ExecutionContext) {
	if e.Host != nil {
		if err := e.Host.RecordToolUsage(c); err != nil {
			e.Logger.Warn("post-execution tool-usage recording failed", err)
		}
	}
	if e.LanguageServer != nil {
		if err := e.LanguageServer.FlushCache(); err != nil {
			e.Logger.Warn("post-execution language-server cache flush failed", err)
		}
	}
}

// wrapExecutionFailure implements the failure semantics of §4.2:
// ConstraintViolation and runtime constraint errors propagate
// verbatim; anything else is flattened to a human-readable string.
func wrapExecutionFailure(err error) error {
	switch err.(type) {
	case *ConstraintViolationError, *FileLimitExceededError, *ChangeLimitExceededError, *TimeoutError:
		return err
	default:
		return fmt.Errorf("Error executing tool: %v", err)
	}
}

func estimateTokens(kwargs map[string]any) int {
	return len(fmt.Sprint(kwargs)) / 4
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
