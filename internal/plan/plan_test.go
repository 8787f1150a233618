package plan

import "testing"

func TestNewExecutionPlan_Defaults(t *testing.T) {
	p, err := NewExecutionPlan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.DryRun() {
		t.Errorf("expected dry_run default true")
	}
	if p.Rollback().Strategy != RollbackGitRevert {
		t.Errorf("expected default rollback strategy git_revert, got %s", p.Rollback().Strategy)
	}
}

func TestNewExecutionPlan_BoundaryMaxFiles(t *testing.T) {
	cases := []struct {
		maxFiles int
		wantErr  bool
	}{
		{0, true},
		{1, false},
		{100, false},
		{101, true},
	}
	for _, c := range cases {
		_, err := NewExecutionPlan(WithLimits(c.maxFiles, 10, 30))
		if c.wantErr && err == nil {
			t.Errorf("max_files=%d: expected error, got none", c.maxFiles)
		}
		if !c.wantErr && err != nil {
			t.Errorf("max_files=%d: unexpected error: %v", c.maxFiles, err)
		}
	}
}

func TestNewExecutionPlan_BoundaryMaxChanges(t *testing.T) {
	if _, err := NewExecutionPlan(WithLimits(10, 0, 30)); err == nil {
		t.Error("max_changes=0: expected error")
	}
	if _, err := NewExecutionPlan(WithLimits(10, 1001, 30)); err == nil {
		t.Error("max_changes=1001: expected error")
	}
	if _, err := NewExecutionPlan(WithLimits(10, 1000, 30)); err != nil {
		t.Errorf("max_changes=1000: unexpected error: %v", err)
	}
}

func TestNewExecutionPlan_BoundaryTimeout(t *testing.T) {
	if _, err := NewExecutionPlan(WithLimits(10, 10, 0)); err == nil {
		t.Error("timeout=0: expected error")
	}
	if _, err := NewExecutionPlan(WithLimits(10, 10, 301)); err == nil {
		t.Error("timeout=301: expected error")
	}
	if _, err := NewExecutionPlan(WithLimits(10, 10, 300)); err != nil {
		t.Errorf("timeout=300: unexpected error: %v", err)
	}
}

func TestNewExecutionPlan_ManualRollbackRequiresCommands(t *testing.T) {
	if _, err := NewExecutionPlan(WithLimits(1, 1, 1), WithRollback(RollbackManual)); err == nil {
		t.Error("expected error for manual rollback with no commands")
	}
	if _, err := NewExecutionPlan(WithLimits(1, 1, 1), WithRollback(RollbackManual, "git stash pop")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := NewExecutionPlan(WithLimits(1, 1, 1), WithRollback(RollbackGitRevert)); err != nil {
		t.Errorf("git_revert with no commands should be fine: %v", err)
	}
}
