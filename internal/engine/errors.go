package engine

import (
	"fmt"

	"github.com/evolvai/evolvai/internal/plan"
)

// ConstraintViolationError is returned when a plan fails validation at
// Phase 2 (pre-execution). Runtime limits exceeded during Phase 3 are
// reported by FileLimitExceededError, ChangeLimitExceededError and
// TimeoutError instead. It carries the full ValidationResult so a
// caller can render every violation, not just the first.
type ConstraintViolationError struct {
	ConstraintType string // "validation" for a Phase 2 rejection
	Result         *plan.ValidationResult
	Message        string
}

func (e *ConstraintViolationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("constraint violation: %s", e.ConstraintType)
}

// FileLimitExceededError reports that files_processed exceeded
// limits.max_files during check_limits.
type FileLimitExceededError struct {
	FilesProcessed int
	MaxFiles       int
}

func (e *FileLimitExceededError) Error() string {
	return fmt.Sprintf("file limit exceeded: processed %d files, max is %d", e.FilesProcessed, e.MaxFiles)
}

// ChangeLimitExceededError reports that changes_made exceeded
// limits.max_changes during check_limits.
type ChangeLimitExceededError struct {
	ChangesMade int
	MaxChanges  int
}

func (e *ChangeLimitExceededError) Error() string {
	return fmt.Sprintf("change limit exceeded: made %d changes, max is %d", e.ChangesMade, e.MaxChanges)
}

// TimeoutError reports that check_limits observed the call's elapsed
// time exceed limits.timeout_seconds.
type TimeoutError struct {
	ElapsedSeconds float64
	TimeoutSeconds int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout exceeded: elapsed %.2fs, limit is %ds", e.ElapsedSeconds, e.TimeoutSeconds)
}

// languageServerTerminatedError is the sentinel Phase 3 retries on
// exactly once before propagating.
type languageServerTerminatedError struct {
	cause error
}

func (e *languageServerTerminatedError) Error() string {
	return fmt.Sprintf("language server terminated: %v", e.cause)
}

func (e *languageServerTerminatedError) Unwrap() error { return e.cause }

// LanguageServerTerminated wraps cause as the sentinel error a Tool's
// Call returns to signal the language server died mid-call.
func LanguageServerTerminated(cause error) error {
	return &languageServerTerminatedError{cause: cause}
}

func isLanguageServerTerminated(err error) bool {
	_, ok := err.(*languageServerTerminatedError)
	return ok
}
