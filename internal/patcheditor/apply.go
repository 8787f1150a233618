package patcheditor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/evolvai/evolvai/internal/config"
	"github.com/evolvai/evolvai/internal/plan"
)

// PatchNotFoundError reports that apply_edit was called with an
// unknown patch id.
type PatchNotFoundError struct {
	PatchID string
}

func (e *PatchNotFoundError) Error() string {
	return fmt.Sprintf("patch not found: %s", e.PatchID)
}

// ApplyResult is the outcome of apply_edit.
type ApplyResult struct {
	Success       bool
	ModifiedFiles []string
	StagingPath   string
	ErrorMessage  string
}

// Apply looks up patchID and, if execPlan is supplied, enforces its
// limits before ever touching the staging area. On success every
// affected file in the main tree reflects the new content; on any
// failure the main tree is left untouched.
func (e *Editor) Apply(patchID string, execPlan *plan.ExecutionPlan) (*ApplyResult, error) {
	patch, ok := e.store.get(patchID)
	if !ok {
		return nil, &PatchNotFoundError{PatchID: patchID}
	}

	if execPlan != nil {
		if err := enforcePlan(patch, execPlan); err != nil {
			return nil, err
		}
	}

	staging, cleanup, err := createStaging()
	if err != nil {
		return &ApplyResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	defer cleanup()

	startTime := time.Now()
	re, err := regexp.Compile(patch.Pattern)
	if err != nil {
		return &ApplyResult{Success: false, StagingPath: staging, ErrorMessage: err.Error()}, nil
	}

	staged := make(map[string]string, len(patch.AffectedFiles))
	for _, relPath := range patch.AffectedFiles {
		if execPlan != nil {
			timeout := time.Duration(execPlan.Limits().TimeoutSeconds) * time.Second
			if timeout > 0 && time.Since(startTime) > timeout {
				return nil, &timeoutDuringApplyError{Elapsed: time.Since(startTime)}
			}
		}

		mainPath := filepath.Join(e.root, relPath)

		if e.permission != nil {
			result, permErr := e.permission.CheckPathPermission(mainPath, config.AccessWrite)
			if result == config.PermissionDenied || result == config.PermissionReadOnly {
				msg := fmt.Sprintf("write denied for %s", relPath)
				if permErr != nil {
					msg = fmt.Sprintf("%s: %s", msg, permErr)
				}
				return &ApplyResult{Success: false, StagingPath: staging, ErrorMessage: msg}, nil
			}
		}

		data, err := os.ReadFile(mainPath)
		if err != nil {
			return &ApplyResult{Success: false, StagingPath: staging, ErrorMessage: err.Error()}, nil
		}

		updated := re.ReplaceAllString(string(data), patch.Replacement)

		stagingPath := filepath.Join(staging, relPath)
		if err := os.MkdirAll(filepath.Dir(stagingPath), 0755); err != nil {
			return &ApplyResult{Success: false, StagingPath: staging, ErrorMessage: err.Error()}, nil
		}
		if err := os.WriteFile(stagingPath, []byte(updated), 0644); err != nil {
			return &ApplyResult{Success: false, StagingPath: staging, ErrorMessage: err.Error()}, nil
		}
		staged[mainPath] = stagingPath
	}

	var modified []string
	for mainPath, stagingPath := range staged {
		if err := commitBack(mainPath, stagingPath); err != nil {
			return &ApplyResult{Success: false, StagingPath: staging, ErrorMessage: err.Error()}, nil
		}
		modified = append(modified, mainPath)
	}

	return &ApplyResult{Success: true, ModifiedFiles: modified, StagingPath: staging}, nil
}

// enforcePlan implements apply_edit's pre-apply plan enforcement: the
// affected-file count against max_files, and the total +/- line count
// in the stored diff against max_changes.
func enforcePlan(patch *PatchContent, execPlan *plan.ExecutionPlan) error {
	limits := execPlan.Limits()

	if limits.MaxFiles > 0 && len(patch.AffectedFiles) > limits.MaxFiles {
		return &planConstraintError{
			ConstraintType: "max_files",
			Message:        fmt.Sprintf("patch touches %d files, exceeding max_files=%d", len(patch.AffectedFiles), limits.MaxFiles),
		}
	}

	changed := countChangedLines(patch.UnifiedDiff)
	if limits.MaxChanges > 0 && changed > limits.MaxChanges {
		return &planConstraintError{
			ConstraintType: "max_changes",
			Message:        fmt.Sprintf("patch changes %d lines, exceeding max_changes=%d", changed, limits.MaxChanges),
		}
	}

	return nil
}

// planConstraintError is apply_edit's local ConstraintViolation shape,
// distinct from internal/engine's: it names the specific constraint
// the patch itself violated, not an ExecutionPlan validation failure.
type planConstraintError struct {
	ConstraintType string
	Message        string
}

func (e *planConstraintError) Error() string { return e.Message }

type timeoutDuringApplyError struct {
	Elapsed time.Duration
}

func (e *timeoutDuringApplyError) Error() string {
	return fmt.Sprintf("timeout during apply: elapsed %s", e.Elapsed)
}

// createStaging creates a plain-mirror scratch directory apply_edit
// writes candidate file content into before committing it back to the
// main tree: §4.3.3a only requires "a plain mirror of the relevant
// files", not a full isolated checkout, and unlike a git worktree this
// doesn't require the workspace itself to be a git repository — Apply
// already computes candidate content by reading the main tree and
// regex-replacing, so the staging directory is scratch space for the
// write-temp-then-rename handoff in commitBack, not a working copy
// anything is run against.
func createStaging() (path string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "evolvai-staging-*")
	if err != nil {
		return "", nil, fmt.Errorf("create staging dir: %w", err)
	}

	cleanup = func() {
		_ = os.RemoveAll(dir)
	}

	return dir, cleanup, nil
}

// commitBack copies stagingPath's content back to mainPath using a
// write-temp-then-rename protocol, so the file transitions atomically
// from the caller's point of view.
func commitBack(mainPath, stagingPath string) error {
	data, err := os.ReadFile(stagingPath)
	if err != nil {
		return fmt.Errorf("read staged file: %w", err)
	}

	dir := filepath.Dir(mainPath)
	tempFile, err := os.CreateTemp(dir, ".evolvai-apply-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if info, statErr := os.Stat(mainPath); statErr == nil {
		_ = os.Chmod(tempPath, info.Mode())
	} else {
		_ = os.Chmod(tempPath, 0644)
	}

	if err := os.Rename(tempPath, mainPath); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
