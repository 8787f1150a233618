package engine

import (
	"testing"
	"time"

	"github.com/evolvai/evolvai/internal/plan"
)

func TestCheckLimits_NoPlanIsNoop(t *testing.T) {
	c := NewExecutionContext("tool", nil, nil)
	c.IncFilesProcessed(1000)
	if err := c.CheckLimits(); err != nil {
		t.Errorf("expected no-op without a plan, got: %v", err)
	}
}

func TestCheckLimits_FileLimitFirst(t *testing.T) {
	p, err := plan.NewExecutionPlan(plan.WithLimits(1, 1, 30))
	if err != nil {
		t.Fatalf("NewExecutionPlan: %v", err)
	}
	c := NewExecutionContext("tool", nil, p)
	c.IncFilesProcessed(2)
	c.IncChangesMade(2)

	err = c.CheckLimits()
	if _, ok := err.(*FileLimitExceededError); !ok {
		t.Fatalf("expected FileLimitExceededError to win, got %T: %v", err, err)
	}
}

func TestCheckLimits_ChangeLimitSecond(t *testing.T) {
	p, err := plan.NewExecutionPlan(plan.WithLimits(10, 1, 30))
	if err != nil {
		t.Fatalf("NewExecutionPlan: %v", err)
	}
	c := NewExecutionContext("tool", nil, p)
	c.IncChangesMade(2)

	err = c.CheckLimits()
	if _, ok := err.(*ChangeLimitExceededError); !ok {
		t.Fatalf("expected ChangeLimitExceededError, got %T: %v", err, err)
	}
}

func TestCheckLimits_TimeoutThird(t *testing.T) {
	p, err := plan.NewExecutionPlan(plan.WithLimits(10, 10, 1))
	if err != nil {
		t.Fatalf("NewExecutionPlan: %v", err)
	}
	c := NewExecutionContext("tool", nil, p)
	c.StartTime = time.Now().Add(-2 * time.Second)

	err = c.CheckLimits()
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
}

func TestCheckLimits_WithinBoundsIsNil(t *testing.T) {
	p, err := plan.NewExecutionPlan(plan.WithLimits(10, 10, 30))
	if err != nil {
		t.Fatalf("NewExecutionPlan: %v", err)
	}
	c := NewExecutionContext("tool", nil, p)
	c.IncFilesProcessed(1)
	c.IncChangesMade(1)

	if err := c.CheckLimits(); err != nil {
		t.Errorf("expected nil, got: %v", err)
	}
}
