// Command evolvai is a flag-based demo/smoke-test binary wiring every
// core component together without requiring a connection to an LLM.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/evolvai/evolvai/internal/config"
	"github.com/evolvai/evolvai/internal/engine"
	"github.com/evolvai/evolvai/internal/mcp"
	"github.com/evolvai/evolvai/internal/safeexec"
	"github.com/evolvai/evolvai/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	workspaceOverride := flag.String("workspace", "", "override workspace.root from config")

	proposePattern := flag.String("propose", "", "propose_edit: regex pattern to search for")
	proposeReplacement := flag.String("replace", "", "propose_edit: replacement text")
	proposeScope := flag.String("scope", "**/*", "propose_edit: glob scope to search under")

	applyPatchID := flag.String("apply", "", "apply_edit: patch id returned by -propose")

	execCommand := flag.String("exec", "", "safe_exec: command to run")
	execTimeout := flag.Int("exec-timeout", 30, "safe_exec: timeout in seconds")

	routeQuery := flag.String("query", "", "safe_search: natural-language query to route")
	routeBudget := flag.Int("budget", 0, "safe_search: total file budget (0 = config default)")

	hintRoot := flag.String("language-hint", "", "get_language_hint: root directory to classify")

	auditReport := flag.Bool("audit-report", false, "print the in-memory audit report and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *workspaceOverride != "" {
		cfg.Workspace.Root = *workspaceOverride
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}

	logger, err := telemetry.NewLogger(cfg.Engine.AuditLogPath, false)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Close()

	surface, err := mcp.New(cfg.Workspace.Root, cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	eng := engine.New(alwaysActiveTools{}, alwaysActiveProject{}, noopLanguageServer{}, noopHostAgent{}, logger)

	ranSomething := false

	if *proposePattern != "" {
		ranSomething = true
		fmt.Println(surface.ProposeEdit(*proposePattern, *proposeReplacement, *proposeScope))
	}

	if *applyPatchID != "" {
		ranSomething = true
		fmt.Println(surface.ApplyEdit(mcp.ApplyEditArgs{PatchID: *applyPatchID}))
	}

	if *execCommand != "" {
		ranSomething = true
		result, err := eng.Execute(&safeExecTool{exec: surface.SafeExec, command: *execCommand, timeout: time.Duration(*execTimeout) * time.Second}, nil, nil)
		if err != nil {
			fmt.Println(err)
		} else {
			fmt.Println(result)
		}
	}

	if *routeQuery != "" {
		ranSomething = true
		budget := *routeBudget
		if budget == 0 {
			budget = cfg.Router.DefaultTotalBudget
		}
		fmt.Println(surface.SafeSearch(mcp.SafeSearchArgs{
			Query:       *routeQuery,
			Root:        cfg.Workspace.Root,
			TotalBudget: budget,
			SampleLimit: cfg.Router.SampleLimit,
		}))
	}

	if *hintRoot != "" {
		ranSomething = true
		fmt.Println(surface.GetLanguageHint(mcp.GetLanguageHintArgs{Root: *hintRoot, SampleLimit: cfg.Router.SampleLimit}))
	}

	if *auditReport {
		ranSomething = true
		report := eng.Audit.Report(5 * time.Second)
		fmt.Printf("executions=%d success_rate=%.2f total_tokens=%d slow_tools=%d\n",
			report.TotalExecutions, report.SuccessRate, report.TotalTokens, len(report.SlowTools))
		for _, slow := range report.SlowTools {
			fmt.Printf("  slow: %s (%s)\n", slow.Tool, slow.Duration)
		}
	}

	if !ranSomething {
		fmt.Fprintln(os.Stderr, "Usage: evolvai [-propose pattern -replace text -scope glob] [-apply patch_id] [-exec command] [-query text] [-language-hint root] [-audit-report]")
		flag.PrintDefaults()
		os.Exit(1)
	}
}

// safeExecTool adapts safeexec.SafeExec.Execute to engine.Tool so a
// single safe_exec call runs through the engine's four phases and
// contributes an audit record, giving -audit-report something to
// summarize.
type safeExecTool struct {
	exec    *safeexec.SafeExec
	command string
	timeout time.Duration
}

func (t *safeExecTool) Name() string                { return "safe_exec" }
func (t *safeExecTool) RequiresProject() bool        { return false }
func (t *safeExecTool) RequiresLanguageServer() bool { return false }

func (t *safeExecTool) Call(c *engine.ExecutionContext, kwargs map[string]any) (string, error) {
	result, err := t.exec.Execute(t.command, t.timeout)
	if err != nil {
		return "", err
	}
	c.IncFilesProcessed(0)
	return fmt.Sprintf("exit_code=%d stdout=%q stderr=%q", result.ExitCode, result.Stdout, result.Stderr), nil
}

// alwaysActiveTools, alwaysActiveProject, noopLanguageServer, and
// noopHostAgent are the smallest possible collaborators that satisfy
// the engine's interfaces for a standalone demo binary with no
// surrounding agent/session/language-server infrastructure.
type alwaysActiveTools struct{}

func (alwaysActiveTools) ActiveToolNames() []string { return []string{"safe_exec", "propose_edit", "apply_edit"} }

type alwaysActiveProject struct{}

func (alwaysActiveProject) Active() bool            { return true }
func (alwaysActiveProject) KnownProjects() []string { return nil }

type noopLanguageServer struct{}

func (noopLanguageServer) Running() bool     { return true }
func (noopLanguageServer) Restart() error    { return nil }
func (noopLanguageServer) FlushCache() error { return nil }

type noopHostAgent struct{}

func (noopHostAgent) RecordToolUsage(c *engine.ExecutionContext) error { return nil }
