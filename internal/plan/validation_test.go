package plan

import (
	"strings"
	"testing"
)

func mustPlan(t *testing.T, opts ...Option) *ExecutionPlan {
	t.Helper()
	p, err := NewExecutionPlan(opts...)
	if err != nil {
		t.Fatalf("NewExecutionPlan: %v", err)
	}
	return p
}

func TestValidate_DuplicatePreConditionsWarns(t *testing.T) {
	p := mustPlan(t, WithLimits(10, 10, 30), WithPreConditions("a", "a"))
	result := Validate(p)

	if !result.IsValid() {
		t.Errorf("expected valid, got errors: %+v", result.Violations)
	}
	if result.WarningCount() != 1 {
		t.Errorf("expected 1 warning, got %d: %+v", result.WarningCount(), result.Violations)
	}
	found := false
	for _, v := range result.Violations {
		if v.Severity == SeverityWarning {
			found = true
			if !strings.Contains(strings.ToLower(v.Message), "duplicate") {
				t.Errorf("expected duplicate message, got %q", v.Message)
			}
		}
	}
	if !found {
		t.Error("no warning violation found")
	}
}

func TestValidate_EmptyPreConditionIsError(t *testing.T) {
	p := mustPlan(t, WithLimits(10, 10, 30), WithPreConditions(""))
	result := Validate(p)

	if result.IsValid() {
		t.Error("expected invalid plan")
	}
	if result.ErrorCount() != 1 {
		t.Errorf("expected 1 error, got %d", result.ErrorCount())
	}
	if result.Violations[0].Field != "validation.pre_conditions[0]" {
		t.Errorf("unexpected field: %s", result.Violations[0].Field)
	}
}

func TestValidate_RollbackAdvisoryNeverBlocks(t *testing.T) {
	p := mustPlan(t, WithLimits(10, 10, 30), WithRollback(RollbackManual, "rm -rf /"))
	result := Validate(p)

	if !result.IsValid() {
		t.Errorf("advisory rollback scan must never produce an ERROR: %+v", result.Violations)
	}
	if result.InfoCount() != 1 {
		t.Errorf("expected 1 info violation, got %d", result.InfoCount())
	}
}

func TestValidate_BatchWithLowMaxFilesWarns(t *testing.T) {
	p := mustPlan(t, WithLimits(1, 10, 30), WithBatch(true))
	result := Validate(p)

	if !result.IsValid() {
		t.Errorf("should still be valid: %+v", result.Violations)
	}
	if result.WarningCount() == 0 {
		t.Error("expected a warning for batch=true with max_files<=1")
	}
}

func TestValidate_HighRatioWarns(t *testing.T) {
	p := mustPlan(t, WithLimits(100, 1000, 1))
	result := Validate(p)

	if result.WarningCount() == 0 {
		t.Error("expected a ratio warning for max_files*max_changes/timeout_seconds far above threshold")
	}
}

func TestValidate_Determinism(t *testing.T) {
	p := mustPlan(t, WithLimits(10, 10, 30), WithPreConditions("a"))
	r1 := Validate(p)
	r2 := Validate(p)
	if len(r1.Violations) != len(r2.Violations) {
		t.Errorf("validate should be pure: got %d vs %d violations", len(r1.Violations), len(r2.Violations))
	}
}
