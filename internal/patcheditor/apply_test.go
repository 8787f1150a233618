package patcheditor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evolvai/evolvai/internal/config"
	"github.com/evolvai/evolvai/internal/plan"
)

func TestApply_Success(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "main.go", "package main\n\nfunc Foo() {}\n")

	e := New(dir)
	proposal, err := e.ProposeEdit("Foo", "Bar", "*.go")
	if err != nil {
		t.Fatalf("ProposeEdit: %v", err)
	}

	result, err := e.Apply(proposal.PatchID, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success on a plain (non-git) workspace, got error: %s", result.ErrorMessage)
	}

	data, err := os.ReadFile(filepath.Join(dir, "main.go"))
	if err != nil {
		t.Fatalf("read applied file: %v", err)
	}
	if string(data) != "package main\n\nfunc Bar() {}\n" {
		t.Errorf("unexpected content after apply: %q", data)
	}
}

func TestApply_PatchNotFound(t *testing.T) {
	dir := t.TempDir()

	e := New(dir)
	_, err := e.Apply("patch_0_deadbeef", nil)
	if _, ok := err.(*PatchNotFoundError); !ok {
		t.Fatalf("expected PatchNotFoundError, got %T: %v", err, err)
	}
}

func TestApply_MaxFilesConstraintViolation(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.go", "target\n")
	writeTempFile(t, dir, "b.go", "target\n")

	e := New(dir)
	proposal, err := e.ProposeEdit("target", "replaced", "*.go")
	if err != nil {
		t.Fatalf("ProposeEdit: %v", err)
	}
	if proposal.FilesModified != 2 {
		t.Fatalf("expected 2 affected files, got %d", proposal.FilesModified)
	}

	p, err := plan.NewExecutionPlan(plan.WithLimits(1, 100, 30))
	if err != nil {
		t.Fatalf("NewExecutionPlan: %v", err)
	}

	_, err = e.Apply(proposal.PatchID, p)
	pce, ok := err.(*planConstraintError)
	if !ok {
		t.Fatalf("expected *planConstraintError, got %T: %v", err, err)
	}
	if pce.ConstraintType != "max_files" {
		t.Errorf("ConstraintType = %q, want max_files", pce.ConstraintType)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "a.go"))
	if string(data) != "target\n" {
		t.Error("main tree must be unchanged after a rejected apply")
	}
}

func TestApply_DeniedWritePathLeavesMainTreeUntouched(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "secret/locked.go", "target\n")

	cfg := &config.Config{Workspace: config.WorkspaceConfig{
		Root:        dir,
		DeniedPaths: []string{filepath.Join(dir, "secret")},
	}}

	// ProposeEdit runs without the permission guard so the patch still
	// targets the denied file; Apply is where the write-path check must
	// catch it.
	e := New(dir)
	proposal, err := e.ProposeEdit("target", "replaced", "**/*.go")
	if err != nil {
		t.Fatalf("ProposeEdit: %v", err)
	}

	guarded := New(dir, WithPathPermission(cfg))
	guarded.store = e.store

	result, err := guarded.Apply(proposal.PatchID, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Success {
		t.Fatal("expected Apply to refuse a write to a denied path")
	}

	data, _ := os.ReadFile(filepath.Join(dir, "secret", "locked.go"))
	if string(data) != "target\n" {
		t.Error("main tree must be unchanged after a denied write")
	}
}
