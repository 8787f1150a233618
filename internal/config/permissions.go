package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AccessType defines the type of file access being requested.
type AccessType int

const (
	AccessRead AccessType = iota
	AccessWrite
)

// PermissionResult indicates the result of a permission check.
type PermissionResult int

const (
	PermissionGranted PermissionResult = iota
	PermissionReadOnly
	PermissionDenied
	PermissionPromptRequired
)

// CheckPathPermission validates if a path can be accessed based on the
// workspace config, resolving relative paths against the workspace
// root rather than the process's current working directory.
func (c *Config) CheckPathPermission(path string, accessType AccessType) (PermissionResult, error) {
	var absPath string
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Clean(filepath.Join(c.Workspace.Root, path))
	}

	for _, denied := range c.Workspace.DeniedPaths {
		deniedAbs, _ := filepath.Abs(expandPath(denied))
		if strings.HasPrefix(absPath, deniedAbs) {
			return PermissionDenied, fmt.Errorf("path is in denied_paths")
		}
	}

	workspaceAbs, _ := filepath.Abs(c.Workspace.Root)
	if strings.HasPrefix(absPath, workspaceAbs) {
		return PermissionGranted, nil
	}

	for _, allowed := range c.Workspace.AllowedPaths {
		allowedAbs, _ := filepath.Abs(expandPath(allowed))
		if strings.HasPrefix(absPath, allowedAbs) {
			return PermissionGranted, nil
		}
	}

	for _, allowedRead := range c.Workspace.AllowedReadPaths {
		allowedReadAbs, _ := filepath.Abs(expandPath(allowedRead))
		if strings.HasPrefix(absPath, allowedReadAbs) {
			if accessType == AccessWrite {
				return PermissionReadOnly, fmt.Errorf("path is read-only")
			}
			return PermissionGranted, nil
		}
	}

	// Path is outside workspace and not in any allowed list. EvolvAI's
	// "warn" mode still grants access (CheckPathSafety logs it);
	// PermissionPromptRequired is kept for "block" vs allow-outside
	// disambiguation, not for an interactive prompt.
	switch c.Workspace.PathSafetyMode {
	case "warn":
		return PermissionPromptRequired, nil
	case "block":
		fallthrough
	default:
		if c.Workspace.AllowOutsideWorkspace {
			return PermissionPromptRequired, nil
		}
		return PermissionDenied, fmt.Errorf("path outside workspace")
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
