package patcheditor

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/evolvai/evolvai/internal/config"
)

// ProposalResult is the return value of ProposeEdit: a materialised,
// stored, but not-yet-applied patch.
type ProposalResult struct {
	PatchID       string
	UnifiedDiff   string
	AffectedFiles []string
	FilesModified int
	LinesChanged  int
	Pattern       string
	Replacement   string
	CreatedAt     time.Time
}

// FileNotFoundError reports that scope matched no files under root.
type FileNotFoundError struct {
	Scope string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("no files matched scope %q", e.Scope)
}

// NoChangesError reports that every file scope matched produced an
// unchanged result after the replace.
type NoChangesError struct{}

func (e *NoChangesError) Error() string { return "no changes: pattern produced no diffs under scope" }

// Editor owns the process-local patch store. Its address is the
// "editor object id" newPatchID salts ids with, so two Editor
// instances proposing in the same millisecond still produce distinct
// ids.
type Editor struct {
	root       string
	store      *store
	permission *config.Config
}

// Option configures optional Editor behavior.
type Option func(*Editor)

// WithPathPermission enables per-file AccessRead/AccessWrite checking
// against cfg's workspace denied/allowed path lists: ProposeEdit skips
// files CheckPathPermission denies read access to, and Apply refuses
// to write back any file it denies write access to (including paths
// cfg marks read-only).
func WithPathPermission(cfg *config.Config) Option {
	return func(e *Editor) { e.permission = cfg }
}

// New returns an Editor rooted at root, the project directory
// propose_edit and apply_edit resolve paths against.
func New(root string, opts ...Option) *Editor {
	e := &Editor{root: root, store: newStore()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// identity returns a salt unique to this Editor instance, derived from
// its address.
func (e *Editor) identity() uint64 {
	return uint64(reflect.ValueOf(e).Pointer())
}

// ProposeEdit enumerates files under e.root matching scope, replaces
// every match of pattern with replacement, and stores the resulting
// unified diff under a fresh patch id. The source tree is never
// modified by this call.
func (e *Editor) ProposeEdit(pattern, replacement, scope string) (*ProposalResult, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	matches, err := e.matchScope(scope)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, &FileNotFoundError{Scope: scope}
	}

	var diffBuilder strings.Builder
	var affected []string
	linesChanged := 0

	for _, relPath := range matches {
		fullPath := filepath.Join(e.root, relPath)

		if e.permission != nil {
			if result, _ := e.permission.CheckPathPermission(fullPath, config.AccessRead); result == config.PermissionDenied {
				continue
			}
		}

		info, err := os.Lstat(fullPath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		data, err := os.ReadFile(fullPath)
		if err != nil {
			continue
		}
		if !utf8.Valid(data) {
			continue
		}

		original := string(data)
		updated := re.ReplaceAllString(original, replacement)
		if updated == original {
			continue
		}

		normOriginal := normalizeTrailingNewline(original)
		normUpdated := normalizeTrailingNewline(updated)

		diff, err := unifiedDiff(normOriginal, normUpdated, relPath)
		if err != nil {
			continue
		}
		if diff == "" {
			continue
		}

		diffBuilder.WriteString(diff)
		affected = append(affected, relPath)
		linesChanged += countChangedLines(diff)
	}

	if len(affected) == 0 {
		return nil, &NoChangesError{}
	}

	now := time.Now()
	id := newPatchID(now, e.identity())
	patch := &PatchContent{
		ID:            id,
		UnifiedDiff:   diffBuilder.String(),
		AffectedFiles: affected,
		CreatedAt:     now,
		Pattern:       pattern,
		Replacement:   replacement,
		Scope:         scope,
	}
	e.store.put(patch)

	return &ProposalResult{
		PatchID:       id,
		UnifiedDiff:   patch.UnifiedDiff,
		AffectedFiles: affected,
		FilesModified: len(affected),
		LinesChanged:  linesChanged,
		Pattern:       pattern,
		Replacement:   replacement,
		CreatedAt:     now,
	}, nil
}

// matchScope returns every regular file under e.root whose
// root-relative path matches the scope glob.
func (e *Editor) matchScope(scope string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(e.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(e.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		ok, matchErr := doublestar.Match(scope, rel)
		if matchErr == nil && ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func normalizeTrailingNewline(s string) string {
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

func unifiedDiff(oldContent, newContent, relPath string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + relPath,
		ToFile:   "b/" + relPath,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// countChangedLines counts +/- lines in a unified diff body, excluding
// the +++/--- file headers.
func countChangedLines(diff string) int {
	count := 0
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
			count++
		}
	}
	return count
}
