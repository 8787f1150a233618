// Package config loads EvolvAI's YAML configuration and provides the
// path-safety machinery shared by the engine, patch editor, and safe
// executor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document, loaded once at
// startup and passed by reference to every subsystem that needs it.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Engine    EngineConfig    `yaml:"engine"`
	SafeExec  SafeExecConfig  `yaml:"safe_exec"`
	Router    RouterConfig    `yaml:"router"`
}

// WorkspaceConfig describes the repository root EvolvAI is guarding and
// how it reacts to tool calls that reach outside it.
type WorkspaceConfig struct {
	Root                  string   `yaml:"root"`
	PathSafetyMode        string   `yaml:"path_safety_mode"` // "block" or "warn"
	AllowOutsideWorkspace bool     `yaml:"allow_outside_workspace"`
	AllowedPaths          []string `yaml:"allowed_paths"`
	AllowedReadPaths      []string `yaml:"allowed_read_paths"`
	DeniedPaths           []string `yaml:"denied_paths"`
}

// EngineConfig holds the Tool Execution Engine's settings. Load fills
// its defaults; of its fields only AuditLogPath is read elsewhere
// (cmd/evolvai passes it to the logger). engine.New does not take
// ConstraintsEnabled or the default limits from here.
type EngineConfig struct {
	ConstraintsEnabled bool   `yaml:"constraints_enabled"`
	DefaultMaxFiles    int    `yaml:"default_max_files"`
	DefaultMaxChanges  int    `yaml:"default_max_changes"`
	DefaultTimeout     int    `yaml:"default_timeout_seconds"`
	AuditLogPath       string `yaml:"audit_log_path"`
}

// SafeExecConfig holds a default timeout and additional
// reasoning-failure patterns for the Safe Executor. Load fills the
// default timeout; neither field is passed to safeexec.New by
// internal/mcp or cmd/evolvai.
type SafeExecConfig struct {
	DefaultTimeoutSeconds int      `yaml:"default_timeout_seconds"`
	ExtraAbsurdPatterns   []string `yaml:"extra_absurd_patterns"`
}

// RouterConfig controls the Query Router's default total file budget
// and the Area Detector's extension-sampling limit.
type RouterConfig struct {
	DefaultTotalBudget int `yaml:"default_total_budget"`
	SampleLimit        int `yaml:"sample_limit"`
}

// Load reads and parses the YAML document at path, filling in schema
// defaults for every block that omits them.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Workspace.Root != "" {
		absRoot, err := filepath.Abs(cfg.Workspace.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
		}
		cfg.Workspace.Root = absRoot
	}

	if cfg.Workspace.PathSafetyMode == "" {
		cfg.Workspace.PathSafetyMode = "block"
	}

	if cfg.Engine.DefaultMaxFiles == 0 {
		cfg.Engine.DefaultMaxFiles = 10
	}
	if cfg.Engine.DefaultMaxChanges == 0 {
		cfg.Engine.DefaultMaxChanges = 50
	}
	if cfg.Engine.DefaultTimeout == 0 {
		cfg.Engine.DefaultTimeout = 30
	}

	if cfg.SafeExec.DefaultTimeoutSeconds == 0 {
		cfg.SafeExec.DefaultTimeoutSeconds = 30
	}

	if cfg.Router.DefaultTotalBudget == 0 {
		cfg.Router.DefaultTotalBudget = 4000
	}
	if cfg.Router.SampleLimit == 0 {
		cfg.Router.SampleLimit = 200
	}

	return &cfg, nil
}

// CheckPathSafety performs the unified path-safety check EvolvAI's
// subsystems share: does identifier resolve outside Workspace.Root,
// and if so, is that tolerated by PathSafetyMode. EvolvAI runs
// unattended behind an AI agent with no TTY to prompt, so the closed
// set here is "block" (reject) and "warn" (log and allow) rather than
// an interactive per-access prompt.
func (c *Config) CheckPathSafety(toolName, identifier string) error {
	absPath, outside, err := NormalizeAndValidatePath(c.Workspace.Root, identifier)
	if err != nil {
		return err
	}
	if !outside || c.Workspace.AllowOutsideWorkspace {
		return nil
	}
	if pathInList(absPath, c.Workspace.AllowedPaths) || pathInList(absPath, c.Workspace.AllowedReadPaths) {
		return nil
	}
	if pathInList(absPath, c.Workspace.DeniedPaths) {
		return fmt.Errorf("access to path explicitly denied: %s", absPath)
	}

	switch c.Workspace.PathSafetyMode {
	case "warn":
		fmt.Fprintf(os.Stderr, "warning: %s accesses path outside workspace: %s\n", toolName, absPath)
		return nil
	case "block":
		fallthrough
	default:
		return fmt.Errorf("access to path outside workspace blocked (path_safety_mode=block): %s", absPath)
	}
}

// pathInList reports whether path is equal to, or nested under, any
// entry in list.
func pathInList(path string, list []string) bool {
	for _, entry := range list {
		absEntry, err := filepath.Abs(entry)
		if err != nil {
			continue
		}
		absEntry = filepath.Clean(absEntry)
		if path == absEntry || strings.HasPrefix(path, absEntry+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// NormalizeAndValidatePath resolves path to an absolute, cleaned form
// and reports whether it falls outside workspaceRoot.
func NormalizeAndValidatePath(workspaceRoot, path string) (absPath string, outside bool, err error) {
	absPath, err = filepath.Abs(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve path: %w", err)
	}
	absWorkspace, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	absPath = filepath.Clean(absPath)
	absWorkspace = filepath.Clean(absWorkspace)

	if absWorkspace == "" || absWorkspace == string(filepath.Separator) {
		return absPath, false, nil
	}
	if absPath != absWorkspace && !strings.HasPrefix(absPath, absWorkspace+string(filepath.Separator)) {
		return absPath, true, nil
	}
	return absPath, false, nil
}
