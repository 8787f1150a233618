// Package mcp exposes the thin JSON-in/JSON-out tool surface an MCP
// front-end drives: propose_edit, apply_edit, safe_search, safe_exec,
// and get_language_hint. Every function returns either the structured
// success payload or a {"error": {...}} envelope as a JSON string, so
// no handler ever raises past the tool boundary.
package mcp

import (
	"encoding/json"
	"time"

	"github.com/evolvai/evolvai/internal/area"
	"github.com/evolvai/evolvai/internal/config"
	"github.com/evolvai/evolvai/internal/feedback"
	"github.com/evolvai/evolvai/internal/patcheditor"
	"github.com/evolvai/evolvai/internal/plan"
	"github.com/evolvai/evolvai/internal/router"
	"github.com/evolvai/evolvai/internal/safeexec"
)

// Surface wires the components whose operations the MCP-facing
// functions expose. It owns no state beyond its collaborators; callers
// construct one Surface per workspace root.
type Surface struct {
	Editor   *patcheditor.Editor
	SafeExec *safeexec.SafeExec
	Detector *area.Detector
}

// New wires a Surface rooted at workspaceRoot. SafeExec's working
// directory defaults to the same root; callers that need a different
// one can still use internal/safeexec directly. cfg is optional: when
// non-nil, SafeExec's working directory is validated against cfg's
// workspace-root and path_safety_mode rules before construction
// succeeds.
func New(workspaceRoot string, cfg *config.Config) (*Surface, error) {
	var execOpts []safeexec.Option
	var editorOpts []patcheditor.Option
	if cfg != nil {
		execOpts = append(execOpts, safeexec.WithPathSafety(cfg))
		editorOpts = append(editorOpts, patcheditor.WithPathPermission(cfg))
	}
	exec, err := safeexec.New(workspaceRoot, execOpts...)
	if err != nil {
		return nil, err
	}
	return &Surface{
		Editor:   patcheditor.New(workspaceRoot, editorOpts...),
		SafeExec: exec,
		Detector: area.NewDetector(),
	}, nil
}

// errorEnvelope is the {"error": {...}} shape every MCP function
// returns on failure.
type errorEnvelope struct {
	Error struct {
		Type       string `json:"type"`
		Message    string `json:"message"`
		Suggestion string `json:"suggestion"`
	} `json:"error"`
}

func errorJSON(err error) string {
	env := feedback.Translate(err)
	var payload errorEnvelope
	payload.Error.Type = env.ErrorType
	payload.Error.Message = env.Summary
	payload.Error.Suggestion = env.FixSuggestion.Headline
	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return `{"error":{"type":"unknown","message":"failed to marshal error"}}`
	}
	return string(data)
}

func successJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return errorJSON(err)
	}
	return string(data)
}

// ProposeEdit mirrors internal/patcheditor.Editor.ProposeEdit.
func (s *Surface) ProposeEdit(pattern, replacement, scope string) string {
	result, err := s.Editor.ProposeEdit(pattern, replacement, scope)
	if err != nil {
		return errorJSON(err)
	}
	return successJSON(result)
}

// ApplyEditArgs is apply_edit's argument shape: a patch id and an
// optional execution plan, mirroring §4.3's `apply_edit(patch_id,
// execution_plan?)` signature.
type ApplyEditArgs struct {
	PatchID       string             `json:"patch_id"`
	ExecutionPlan *ExecutionPlanArgs `json:"execution_plan,omitempty"`
}

// ExecutionPlanArgs is the JSON document shape of §6: exact field
// names, lowercase snake_case enumerations.
type ExecutionPlanArgs struct {
	DryRun           bool     `json:"dry_run"`
	PreConditions    []string `json:"pre_conditions"`
	ExpectedOutcomes []string `json:"expected_outcomes"`
	Rollback         struct {
		Strategy string   `json:"strategy"`
		Commands []string `json:"commands"`
	} `json:"rollback"`
	Limits struct {
		MaxFiles       int `json:"max_files"`
		MaxChanges     int `json:"max_changes"`
		TimeoutSeconds int `json:"timeout_seconds"`
	} `json:"limits"`
	Batch bool `json:"batch"`
}

// toExecutionPlan builds an *plan.ExecutionPlan from the wire
// document, or returns nil if args is nil (apply_edit's plan is
// optional).
func toExecutionPlan(args *ExecutionPlanArgs) (*plan.ExecutionPlan, error) {
	if args == nil {
		return nil, nil
	}
	return plan.NewExecutionPlan(
		plan.WithDryRun(args.DryRun),
		plan.WithPreConditions(args.PreConditions...),
		plan.WithExpectedOutcomes(args.ExpectedOutcomes...),
		plan.WithRollback(plan.RollbackStrategy(args.Rollback.Strategy), args.Rollback.Commands...),
		plan.WithLimits(args.Limits.MaxFiles, args.Limits.MaxChanges, args.Limits.TimeoutSeconds),
		plan.WithBatch(args.Batch),
	)
}

// ApplyEdit mirrors internal/patcheditor.Editor.Apply.
func (s *Surface) ApplyEdit(args ApplyEditArgs) string {
	execPlan, err := toExecutionPlan(args.ExecutionPlan)
	if err != nil {
		return errorJSON(err)
	}
	result, err := s.Editor.Apply(args.PatchID, execPlan)
	if err != nil {
		return errorJSON(err)
	}
	return successJSON(result)
}

// SafeSearchArgs is safe_search's argument shape: a natural-language
// query, the root to detect areas under, and the total file budget to
// allocate across them.
type SafeSearchArgs struct {
	Query       string `json:"query"`
	Root        string `json:"root"`
	TotalBudget int    `json:"total_budget"`
	SampleLimit int    `json:"sample_limit"`
}

// SafeSearch detects the project's areas and routes query across them,
// returning the resulting QueryRouting.
func (s *Surface) SafeSearch(args SafeSearchArgs) string {
	sampleLimit := args.SampleLimit
	if sampleLimit == 0 {
		sampleLimit = 200
	}
	totalBudget := args.TotalBudget
	if totalBudget == 0 {
		totalBudget = 50
	}

	areas, err := s.Detector.DetectAreas(args.Root, sampleLimit)
	if err != nil {
		return errorJSON(err)
	}
	routing := router.RouteQuery(args.Query, areas, totalBudget)
	return successJSON(routing)
}

// SafeExecArgs is safe_exec's argument shape.
type SafeExecArgs struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SafeExec runs command through the wrapped SafeExec instance.
func (s *Surface) SafeExec(args SafeExecArgs) string {
	timeout := time.Duration(args.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	result, err := s.SafeExec.Execute(args.Command, timeout)
	if err != nil {
		return errorJSON(err)
	}
	return successJSON(result)
}

// GetLanguageHintArgs is get_language_hint's argument shape: the root
// to classify, and an optional sample limit for the extension-sampling
// fallback layer.
type GetLanguageHintArgs struct {
	Root        string `json:"root"`
	SampleLimit int    `json:"sample_limit"`
}

// languageHint is get_language_hint's success payload: the areas
// detected, in the order the detector returned them, with the single
// highest-confidence guess named separately for a caller that just
// wants one answer.
type languageHint struct {
	PrimaryLanguage string             `json:"primary_language"`
	Areas           []area.ProjectArea `json:"areas"`
}

// GetLanguageHint runs area detection and summarizes it as a single
// best-guess language plus the full area breakdown.
func (s *Surface) GetLanguageHint(args GetLanguageHintArgs) string {
	sampleLimit := args.SampleLimit
	if sampleLimit == 0 {
		sampleLimit = 200
	}

	areas, err := s.Detector.DetectAreas(args.Root, sampleLimit)
	if err != nil {
		return errorJSON(err)
	}

	best := bestConfidenceArea(areas)
	return successJSON(languageHint{PrimaryLanguage: best, Areas: areas})
}

var confidenceRank = map[area.Confidence]int{
	area.ConfidenceVeryHigh: 4,
	area.ConfidenceHigh:     3,
	area.ConfidenceMedium:   2,
	area.ConfidenceLow:      1,
}

func bestConfidenceArea(areas []area.ProjectArea) string {
	best := "unknown"
	bestRank := -1
	for _, a := range areas {
		if rank := confidenceRank[a.Confidence]; rank > bestRank {
			bestRank = rank
			best = a.Language
		}
	}
	return best
}
