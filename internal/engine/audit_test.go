package engine

import (
	"testing"
	"time"
)

func TestAuditLog_AppendAndRecords(t *testing.T) {
	l := NewAuditLog()
	l.append(AuditRecord{Tool: "read", Success: true})
	l.append(AuditRecord{Tool: "edit", Success: false})

	records := l.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestAuditLog_ByTool(t *testing.T) {
	l := NewAuditLog()
	l.append(AuditRecord{Tool: "read", Success: true})
	l.append(AuditRecord{Tool: "edit", Success: true})
	l.append(AuditRecord{Tool: "read", Success: false})

	reads := l.ByTool("read")
	if len(reads) != 2 {
		t.Fatalf("expected 2 read records, got %d", len(reads))
	}
}

func TestAuditLog_Clear(t *testing.T) {
	l := NewAuditLog()
	l.append(AuditRecord{Tool: "read"})
	l.Clear()
	if len(l.Records()) != 0 {
		t.Error("expected empty log after Clear")
	}
}

func TestAuditLog_Report(t *testing.T) {
	l := NewAuditLog()
	l.append(AuditRecord{Tool: "fast", Success: true, ActualTokens: 10, Duration: 1 * time.Millisecond})
	l.append(AuditRecord{Tool: "slow", Success: true, ActualTokens: 20, Duration: 500 * time.Millisecond})
	l.append(AuditRecord{Tool: "failed", Success: false, ActualTokens: 5, Duration: 2 * time.Millisecond})

	report := l.Report(100 * time.Millisecond)
	if report.TotalExecutions != 3 {
		t.Errorf("TotalExecutions = %d, want 3", report.TotalExecutions)
	}
	if report.TotalTokens != 35 {
		t.Errorf("TotalTokens = %d, want 35", report.TotalTokens)
	}
	wantRate := 2.0 / 3.0
	if report.SuccessRate != wantRate {
		t.Errorf("SuccessRate = %f, want %f", report.SuccessRate, wantRate)
	}
	if len(report.SlowTools) != 1 || report.SlowTools[0].Tool != "slow" {
		t.Errorf("SlowTools = %+v, want [slow]", report.SlowTools)
	}
}

func TestAuditLog_ReportEmpty(t *testing.T) {
	l := NewAuditLog()
	report := l.Report(time.Second)
	if report.TotalExecutions != 0 {
		t.Errorf("expected 0 executions on empty log, got %d", report.TotalExecutions)
	}
}
