package feedback

import (
	"testing"

	"github.com/evolvai/evolvai/internal/engine"
	"github.com/evolvai/evolvai/internal/patcheditor"
	"github.com/evolvai/evolvai/internal/plan"
	"github.com/evolvai/evolvai/internal/safeexec"
)

func TestTranslate_FileLimitExceeded(t *testing.T) {
	env := Translate(&engine.FileLimitExceededError{FilesProcessed: 12, MaxFiles: 10})
	if env.ErrorType != "file_limit_exceeded" {
		t.Errorf("ErrorType = %q, want file_limit_exceeded", env.ErrorType)
	}
	if env.ViolationDetails["files_processed"] != 12 {
		t.Errorf("violation_details.files_processed = %v, want 12", env.ViolationDetails["files_processed"])
	}
	if env.FixSuggestion.Headline == "" {
		t.Error("expected a non-empty fix suggestion headline")
	}
}

func TestTranslate_ChangeLimitExceeded(t *testing.T) {
	env := Translate(&engine.ChangeLimitExceededError{ChangesMade: 500, MaxChanges: 100})
	if env.ErrorType != "change_limit_exceeded" {
		t.Errorf("ErrorType = %q, want change_limit_exceeded", env.ErrorType)
	}
	if env.ViolationDetails["max_changes"] != 100 {
		t.Errorf("violation_details.max_changes = %v, want 100", env.ViolationDetails["max_changes"])
	}
}

func TestTranslate_Timeout(t *testing.T) {
	env := Translate(&engine.TimeoutError{ElapsedSeconds: 12.5, TimeoutSeconds: 10})
	if env.ErrorType != "timeout" {
		t.Errorf("ErrorType = %q, want timeout", env.ErrorType)
	}
}

func TestTranslate_ConstructionError(t *testing.T) {
	env := Translate(&plan.ConstructionError{Field: "limits.max_files", Msg: "must be between 1 and 100"})
	if env.ErrorType != "plan_construction" {
		t.Errorf("ErrorType = %q, want plan_construction", env.ErrorType)
	}
	if env.ViolationDetails["field"] != "limits.max_files" {
		t.Errorf("violation_details.field = %v", env.ViolationDetails["field"])
	}
}

func TestTranslate_PatchNotFound(t *testing.T) {
	env := Translate(&patcheditor.PatchNotFoundError{PatchID: "patch_1_deadbeef"})
	if env.ErrorType != "patch_not_found" {
		t.Errorf("ErrorType = %q, want patch_not_found", env.ErrorType)
	}
	if env.ViolationDetails["patch_id"] != "patch_1_deadbeef" {
		t.Errorf("violation_details.patch_id = %v", env.ViolationDetails["patch_id"])
	}
}

func TestTranslate_FileNotFound(t *testing.T) {
	env := Translate(&patcheditor.FileNotFoundError{Scope: "*.rb"})
	if env.ErrorType != "no_files_matched" {
		t.Errorf("ErrorType = %q, want no_files_matched", env.ErrorType)
	}
}

func TestTranslate_NoChanges(t *testing.T) {
	env := Translate(&patcheditor.NoChangesError{})
	if env.ErrorType != "no_changes" {
		t.Errorf("ErrorType = %q, want no_changes", env.ErrorType)
	}
}

func TestTranslate_SafeExecRejected(t *testing.T) {
	env := Translate(&safeexec.ConstraintViolationError{Reason: "absurd_command", Message: "nope"})
	if env.ErrorType != "safe_exec_rejected" {
		t.Errorf("ErrorType = %q, want safe_exec_rejected", env.ErrorType)
	}
	if env.ViolationDetails["reason"] != "absurd_command" {
		t.Errorf("violation_details.reason = %v", env.ViolationDetails["reason"])
	}
}

func TestTranslate_UnknownErrorFallsBackGracefully(t *testing.T) {
	err := &customErr{msg: "something strange happened"}
	env := Translate(err)
	if env.ErrorType != "unknown" {
		t.Errorf("ErrorType = %q, want unknown", env.ErrorType)
	}
	if env.Summary != "something strange happened" {
		t.Errorf("Summary = %q", env.Summary)
	}
}

func TestTranslate_Nil(t *testing.T) {
	env := Translate(nil)
	if env.ErrorType != "" {
		t.Errorf("expected empty envelope for nil error, got %+v", env)
	}
}

type customErr struct{ msg string }

func (e *customErr) Error() string { return e.msg }
