// Package feedback translates the structural error types raised by
// internal/plan, internal/engine, and internal/patcheditor into the
// uniform envelope an embedding surfaces to a user: one error_type, a
// one-line summary, a fix_suggestion built from a fixed per-kind
// template, and (for constraint errors) a violation_details map.
//
// Every error kind gets a fixed shape, and structured detail is merged
// into the output map rather than interpolated into prose.
package feedback

import (
	"fmt"

	"github.com/evolvai/evolvai/internal/engine"
	"github.com/evolvai/evolvai/internal/patcheditor"
	"github.com/evolvai/evolvai/internal/plan"
	"github.com/evolvai/evolvai/internal/safeexec"
)

// Suggestion is a fixed fix-it template: a headline, one illustrative
// code example, and a short list of alternative approaches.
type Suggestion struct {
	Headline     string
	CodeExample  string
	Alternatives []string
}

// Envelope is the uniform shape every translated error produces.
type Envelope struct {
	ErrorType        string
	Summary          string
	FixSuggestion    Suggestion
	ViolationDetails map[string]any
}

// Translate converts err into an Envelope. Unrecognized errors fall
// back to a generic envelope carrying err.Error() as the summary, so
// Translate never panics or drops information.
func Translate(err error) Envelope {
	if err == nil {
		return Envelope{}
	}

	switch e := err.(type) {
	case *plan.ConstructionError:
		return constructionEnvelope(e)
	case *engine.ConstraintViolationError:
		return constraintViolationEnvelope(e)
	case *engine.FileLimitExceededError:
		return fileLimitEnvelope(e)
	case *engine.ChangeLimitExceededError:
		return changeLimitEnvelope(e)
	case *engine.TimeoutError:
		return timeoutEnvelope(e)
	case *patcheditor.PatchNotFoundError:
		return patchNotFoundEnvelope(e)
	case *patcheditor.FileNotFoundError:
		return fileNotFoundEnvelope(e)
	case *patcheditor.NoChangesError:
		return noChangesEnvelope()
	case *safeexec.ConstraintViolationError:
		return safeExecEnvelope(e)
	default:
		return Envelope{
			ErrorType: "unknown",
			Summary:   err.Error(),
			FixSuggestion: Suggestion{
				Headline: "An unexpected error occurred.",
			},
		}
	}
}

func constructionEnvelope(e *plan.ConstructionError) Envelope {
	return Envelope{
		ErrorType: "plan_construction",
		Summary:   fmt.Sprintf("execution plan is malformed: %s", e.Field),
		FixSuggestion: Suggestion{
			Headline:    fmt.Sprintf("Fix the %q field of the execution plan.", e.Field),
			CodeExample: `plan.NewExecutionPlan(plan.WithLimits(10, 100, 30))`,
			Alternatives: []string{
				"Use plan.WithLimits with values inside the documented bounds (1-100 files, 1-1000 changes, 1-300 seconds).",
				"Use plan.WithRollback(plan.RollbackManual, commands...) with at least one command.",
			},
		},
		ViolationDetails: map[string]any{"field": e.Field, "reason": e.Msg},
	}
}

func constraintViolationEnvelope(e *engine.ConstraintViolationError) Envelope {
	details := map[string]any{"constraint_type": e.ConstraintType}
	if e.Result != nil {
		details["violation_count"] = len(e.Result.Violations)
	}
	return Envelope{
		ErrorType: "constraint_violation",
		Summary:   "the execution plan failed validation before the tool ran",
		FixSuggestion: Suggestion{
			Headline:    "Relax the plan or address the reported violations.",
			CodeExample: `plan.NewExecutionPlan(plan.WithLimits(20, 200, 60), plan.WithDryRun(true))`,
			Alternatives: []string{
				"Run with dry_run=true first to see what the tool would do.",
				"Increase limits.max_files / limits.max_changes if the task is genuinely larger.",
			},
		},
		ViolationDetails: details,
	}
}

func fileLimitEnvelope(e *engine.FileLimitExceededError) Envelope {
	return Envelope{
		ErrorType: "file_limit_exceeded",
		Summary:   e.Error(),
		FixSuggestion: Suggestion{
			Headline:    "Increase limits.max_files or narrow the tool's scope.",
			CodeExample: `plan.WithLimits(50, 200, 60)`,
			Alternatives: []string{
				"Split the task into smaller calls, each touching fewer files.",
				"Narrow the scope glob so fewer files match in the first place.",
			},
		},
		ViolationDetails: map[string]any{
			"files_processed": e.FilesProcessed,
			"max_files":       e.MaxFiles,
		},
	}
}

func changeLimitEnvelope(e *engine.ChangeLimitExceededError) Envelope {
	return Envelope{
		ErrorType: "change_limit_exceeded",
		Summary:   e.Error(),
		FixSuggestion: Suggestion{
			Headline:    "Increase limits.max_changes or split the edit into smaller patches.",
			CodeExample: `plan.WithLimits(50, 500, 60)`,
			Alternatives: []string{
				"Propose multiple narrower patches instead of one large one.",
			},
		},
		ViolationDetails: map[string]any{
			"changes_made": e.ChangesMade,
			"max_changes":  e.MaxChanges,
		},
	}
}

func timeoutEnvelope(e *engine.TimeoutError) Envelope {
	return Envelope{
		ErrorType: "timeout",
		Summary:   e.Error(),
		FixSuggestion: Suggestion{
			Headline:    "Increase limits.timeout_seconds or reduce the work per call.",
			CodeExample: `plan.WithLimits(20, 200, 180)`,
			Alternatives: []string{
				"Break the task into multiple smaller calls with shorter individual timeouts.",
			},
		},
		ViolationDetails: map[string]any{
			"elapsed_seconds": e.ElapsedSeconds,
			"timeout_seconds": e.TimeoutSeconds,
		},
	}
}

func patchNotFoundEnvelope(e *patcheditor.PatchNotFoundError) Envelope {
	return Envelope{
		ErrorType: "patch_not_found",
		Summary:   e.Error(),
		FixSuggestion: Suggestion{
			Headline:    "Call propose_edit again before apply_edit; patch ids are process-local.",
			CodeExample: `propose_edit(pattern, replacement, scope)`,
			Alternatives: []string{
				"Check the patch id was copied exactly as returned by propose_edit.",
				"Remember that patch ids do not survive a process restart.",
			},
		},
		ViolationDetails: map[string]any{"patch_id": e.PatchID},
	}
}

func fileNotFoundEnvelope(e *patcheditor.FileNotFoundError) Envelope {
	return Envelope{
		ErrorType: "no_files_matched",
		Summary:   e.Error(),
		FixSuggestion: Suggestion{
			Headline:    "Broaden the scope glob so it matches at least one file.",
			CodeExample: `propose_edit(pattern, replacement, "**/*.go")`,
			Alternatives: []string{
				"Double-check the scope is relative to the workspace root.",
			},
		},
		ViolationDetails: map[string]any{"scope": e.Scope},
	}
}

func safeExecEnvelope(e *safeexec.ConstraintViolationError) Envelope {
	return Envelope{
		ErrorType: "safe_exec_rejected",
		Summary:   e.Error(),
		FixSuggestion: Suggestion{
			Headline:    "The command was rejected before it ran; it never reached a shell.",
			CodeExample: `safe_exec("go test ./...", timeout_seconds=30)`,
			Alternatives: []string{
				"Check the command isn't empty and its first token resolves in PATH.",
				"If this looks like a false positive, rephrase the command without the flagged substring.",
			},
		},
		ViolationDetails: map[string]any{"reason": e.Reason},
	}
}

func noChangesEnvelope() Envelope {
	return Envelope{
		ErrorType: "no_changes",
		Summary:   "the pattern produced no diffs under the given scope",
		FixSuggestion: Suggestion{
			Headline:    "Check that the pattern actually matches content in the scoped files.",
			CodeExample: `propose_edit("func Old", "func New", "*.go")`,
			Alternatives: []string{
				"Confirm the files aren't binary or non-UTF-8 — those are skipped silently.",
			},
		},
	}
}
