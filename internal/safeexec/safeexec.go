// Package safeexec implements the Safe Executor: a subprocess wrapper
// with a fast precondition gate and process-group-based timeout
// enforcement. The precondition phase is a reasoning-failure detector,
// not a security boundary — see absurdCommandPatterns below.
package safeexec

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/evolvai/evolvai/internal/config"
)

// ConstraintViolationError is SafeExec's own constraint error, raised
// during construction or the precondition phase. It is distinct from
// internal/engine's ConstraintViolationError: nothing here carries a
// plan ValidationResult, since SafeExec's checks are not plan-driven.
type ConstraintViolationError struct {
	Reason  string
	Message string
}

func (e *ConstraintViolationError) Error() string { return e.Message }

// absurdCommandPatterns is the small closed set the precondition scan
// matches case-insensitively as a plain substring. Matching one of
// these is treated as an AI reasoning failure — a signal the model is
// about to waste tokens on an operation it could not possibly have
// meant — not a security control. A determined attacker has countless
// ways around a substring scan; this is not that. Root deletion
// ("rm -rf /") is handled separately by rootDeletionPattern below,
// since it must anchor to end-of-line or it flags ordinary commands
// like "rm -rf /tmp/build".
var absurdCommandPatterns = []string{
	"rm -rf /*",
	"mkfs.",
	":(){ :|:& };:",
}

// rootDeletionPattern matches "rm -rf /" (or the long-flag spelling)
// only when the path argument is exactly "/" at the end of the
// command, so "rm -rf /tmp/build" or "rm -rf /var/cache" are left
// alone.
var rootDeletionPattern = regexp.MustCompile(`(?i)rm\s+(-rf|--recursive.*--force)\s+/\s*$`)

// shellBuiltins are the first-token commands Command Existence (step
// 3 of the precondition phase) never requires to resolve in PATH.
var shellBuiltins = map[string]bool{
	"cd": true, "echo": true, "export": true, "set": true,
	"pwd": true, "test": true, "[": true,
}

// ExecutionResult is the outcome of Execute.
type ExecutionResult struct {
	Success            bool
	ExitCode           int
	Stdout             string
	Stderr             string
	Duration           time.Duration
	PreconditionPassed bool
	TimeoutOccurred    bool
	ErrorMessage       string
}

// Stats accumulates counters across every call a SafeExec instance has
// made.
type Stats struct {
	mu         sync.Mutex
	Total      int
	Successful int
	Failed     int
	Blocked    int
	Duration   time.Duration
}

func (s *Stats) record(result *ExecutionResult, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Total++
	switch {
	case blocked:
		s.Blocked++
	case result.Success:
		s.Successful++
	default:
		s.Failed++
	}
	s.Duration += result.Duration
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Total: s.Total, Successful: s.Successful, Failed: s.Failed, Blocked: s.Blocked, Duration: s.Duration}
}

// SafeExec runs shell commands in a resolved working directory,
// gating every call with a precondition scan and enforcing a
// process-group timeout on execution.
type SafeExec struct {
	workingDir    string
	extraPatterns []string
	pathSafety    *config.Config
	stats         *Stats
}

// Option configures New.
type Option func(*SafeExec)

// WithPathSafety validates workingDir against cfg's workspace-root and
// path_safety_mode rules before SafeExec is constructed. A "block"
// mode working directory outside the workspace fails construction;
// "warn" logs and allows it, exactly as CheckPathSafety does for any
// other path.
func WithPathSafety(cfg *config.Config) Option {
	return func(s *SafeExec) { s.pathSafety = cfg }
}

// New resolves workingDir and constructs a SafeExec rooted there. The
// directory must exist and be a directory, otherwise construction
// fails fast with a ConstraintViolationError. With WithPathSafety,
// workingDir is additionally checked against the configured workspace
// root before anything else runs.
func New(workingDir string, opts ...Option) (*SafeExec, error) {
	if abs, err := filepath.Abs(workingDir); err == nil {
		workingDir = abs
	}
	s := &SafeExec{workingDir: workingDir, stats: &Stats{}}
	for _, opt := range opts {
		opt(s)
	}

	if s.pathSafety != nil {
		if err := s.pathSafety.CheckPathSafety("safe_exec", workingDir); err != nil {
			return nil, &ConstraintViolationError{Reason: "working_dir", Message: err.Error()}
		}
	}

	info, err := os.Stat(workingDir)
	if err != nil {
		return nil, &ConstraintViolationError{
			Reason:  "working_dir",
			Message: fmt.Sprintf("working directory does not exist: %s", workingDir),
		}
	}
	if !info.IsDir() {
		return nil, &ConstraintViolationError{
			Reason:  "working_dir",
			Message: fmt.Sprintf("working directory is not a directory: %s", workingDir),
		}
	}

	return s, nil
}

// WithAbsurdPatterns adds extra substrings the precondition scan
// treats as absurd, beyond the built-in closed set.
func WithAbsurdPatterns(patterns ...string) Option {
	return func(s *SafeExec) { s.extraPatterns = append(s.extraPatterns, patterns...) }
}

// Stats returns the accumulated execution counters.
func (s *SafeExec) Stats() Stats {
	return s.stats.Snapshot()
}

// Execute runs command with a hard deadline of timeout. The
// precondition phase runs first; a failure there never spawns a
// process.
func (s *SafeExec) Execute(command string, timeout time.Duration) (*ExecutionResult, error) {
	if err := s.checkPrecondition(command); err != nil {
		result := &ExecutionResult{Success: false, ExitCode: -1, PreconditionPassed: false, ErrorMessage: err.Error()}
		s.stats.record(result, true)
		return result, err
	}

	result := s.runCommand(command, timeout)
	result.PreconditionPassed = true
	s.stats.record(result, false)
	return result, nil
}

// checkPrecondition runs the three precondition checks in order:
// empty command, absurd-command scan, command existence.
func (s *SafeExec) checkPrecondition(command string) error {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return &ConstraintViolationError{Reason: "empty_command", Message: "command is empty"}
	}

	lower := strings.ToLower(trimmed)
	if rootDeletionPattern.MatchString(lower) {
		return &ConstraintViolationError{
			Reason: "absurd_command",
			Message: "AI reasoning failure detected: command resembles root deletion (\"rm -rf /\"). " +
				"This is not a security check — it is a token-waste guard against a command " +
				"no sound plan would ever issue.",
		}
	}

	patterns := append(append([]string(nil), absurdCommandPatterns...), s.extraPatterns...)
	for _, pattern := range patterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return &ConstraintViolationError{
				Reason: "absurd_command",
				Message: fmt.Sprintf(
					"AI reasoning failure detected: command resembles %q. "+
						"This is not a security check — it is a token-waste guard against a command "+
						"no sound plan would ever issue.", pattern),
			}
		}
	}

	if err := s.checkCommandExists(trimmed); err != nil {
		return err
	}

	return nil
}

// checkCommandExists implements step 3: the first whitespace-split
// token must either be a shell builtin, or the command line must
// contain a pipe/redirect (whose first token isn't necessarily what
// runs), or the first token must resolve in PATH.
func (s *SafeExec) checkCommandExists(command string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	first := fields[0]
	if shellBuiltins[first] {
		return nil
	}
	if strings.ContainsAny(command, "|><") {
		return nil
	}
	if _, err := exec.LookPath(first); err != nil {
		return &ConstraintViolationError{
			Reason:  "command_not_found",
			Message: fmt.Sprintf("command not found in PATH: %s", first),
		}
	}
	return nil
}

// runCommand spawns command in a new process group, under s.workingDir,
// enforcing timeout by signalling the whole group: SIGTERM first, then
// SIGKILL if it hasn't exited.
func (s *SafeExec) runCommand(command string, timeout time.Duration) *ExecutionResult {
	start := time.Now()

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = s.workingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return &ExecutionResult{
			Success: false, ExitCode: -1, Duration: time.Since(start),
			ErrorMessage: err.Error(), Stderr: err.Error(),
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		killProcessGroup(cmd, syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			killProcessGroup(cmd, syscall.SIGKILL)
			<-done
		}
		message := fmt.Sprintf("command timed out after %s", timeout)
		return &ExecutionResult{
			Success: false, ExitCode: -1, Duration: time.Since(start),
			Stdout: stdout.String(), Stderr: stderr.String() + "\n" + message,
			TimeoutOccurred: true, ErrorMessage: message,
		}
	case err := <-done:
		exitCode := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				return &ExecutionResult{
					Success: false, ExitCode: -1, Duration: time.Since(start),
					Stdout: stdout.String(), Stderr: stderr.String(),
					ErrorMessage: err.Error(),
				}
			}
		}
		result := &ExecutionResult{
			Success: exitCode == 0, ExitCode: exitCode, Duration: time.Since(start),
			Stdout: stdout.String(), Stderr: stderr.String(),
		}
		if !result.Success {
			result.ErrorMessage = stderr.String()
		}
		return result
	}
}

// killProcessGroup signals the entire process group a command was
// spawned into, falling back to signalling just the process if the
// group lookup fails.
func killProcessGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err == nil {
		_ = syscall.Kill(-pgid, sig)
		return
	}
	_ = cmd.Process.Signal(sig)
}
