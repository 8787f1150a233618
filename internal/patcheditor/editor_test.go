package patcheditor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evolvai/evolvai/internal/config"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestProposeEdit_Success(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "main.go", "package main\n\nfunc Foo() {}\n")

	e := New(dir)
	result, err := e.ProposeEdit("Foo", "Bar", "*.go")
	if err != nil {
		t.Fatalf("ProposeEdit: %v", err)
	}
	if result.FilesModified != 1 {
		t.Errorf("FilesModified = %d, want 1", result.FilesModified)
	}
	if result.LinesChanged == 0 {
		t.Error("expected LinesChanged > 0")
	}
	if result.PatchID == "" {
		t.Error("expected a non-empty patch id")
	}

	data, _ := os.ReadFile(filepath.Join(dir, "main.go"))
	if string(data) != "package main\n\nfunc Foo() {}\n" {
		t.Error("ProposeEdit must not modify the source tree")
	}
}

func TestProposeEdit_NoFilesMatchScope(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	_, err := e.ProposeEdit("x", "y", "*.rb")
	if _, ok := err.(*FileNotFoundError); !ok {
		t.Fatalf("expected FileNotFoundError, got %T: %v", err, err)
	}
}

func TestProposeEdit_NoChanges(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "main.go", "package main\n")

	e := New(dir)
	_, err := e.ProposeEdit("nonexistent_pattern_xyz", "replacement", "*.go")
	if _, ok := err.(*NoChangesError); !ok {
		t.Fatalf("expected NoChangesError, got %T: %v", err, err)
	}
}

func TestProposeEdit_SkipsNonUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary.go")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x01}, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	e := New(dir)
	_, err := e.ProposeEdit(".", "x", "*.go")
	if _, ok := err.(*NoChangesError); !ok {
		t.Fatalf("expected non-UTF8 file to be skipped, got %T: %v", err, err)
	}
}

func TestProposeEdit_IDsUniqueWithinProcess(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.go", "aaa\n")
	writeTempFile(t, dir, "b.go", "aaa\n")

	e := New(dir)
	r1, err := e.ProposeEdit("aaa", "bbb", "a.go")
	if err != nil {
		t.Fatalf("ProposeEdit: %v", err)
	}
	r2, err := e.ProposeEdit("aaa", "bbb", "b.go")
	if err != nil {
		t.Fatalf("ProposeEdit: %v", err)
	}
	if r1.PatchID == r2.PatchID {
		t.Error("expected distinct patch ids")
	}
}

func TestProposeEdit_SkipsDeniedPath(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "allowed.go", "target\n")
	writeTempFile(t, dir, "secret/locked.go", "target\n")

	cfg := &config.Config{Workspace: config.WorkspaceConfig{
		Root:        dir,
		DeniedPaths: []string{filepath.Join(dir, "secret")},
	}}

	e := New(dir, WithPathPermission(cfg))
	result, err := e.ProposeEdit("target", "replaced", "**/*.go")
	if err != nil {
		t.Fatalf("ProposeEdit: %v", err)
	}
	if result.FilesModified != 1 {
		t.Fatalf("FilesModified = %d, want 1 (denied path must be skipped)", result.FilesModified)
	}
	if result.AffectedFiles[0] != "allowed.go" {
		t.Errorf("AffectedFiles = %v, want only allowed.go", result.AffectedFiles)
	}
}
