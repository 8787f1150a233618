package engine

import (
	"sort"
	"sync"
	"time"
)

// AuditRecord is an immutable snapshot taken from an ExecutionContext
// at the moment the engine finalises a call.
type AuditRecord struct {
	Tool                 string
	Phase                Phase
	Duration             time.Duration
	ActualTokens         int
	Success              bool
	ConstraintViolations []map[string]any
	Batched              bool
	Timestamp            time.Time
}

func newAuditRecord(c *ExecutionContext, success bool) AuditRecord {
	violations := make([]map[string]any, 0, len(c.ConstraintViolations))
	for _, v := range c.ConstraintViolations {
		violations = append(violations, map[string]any{
			"field":          v.Field,
			"message":        v.Message,
			"severity":       string(v.Severity),
			"current_value":  v.CurrentValue,
			"expected_range": v.ExpectedRange,
		})
	}
	return AuditRecord{
		Tool:                 c.ToolName,
		Phase:                c.Phase,
		Duration:             c.EndTime.Sub(c.StartTime),
		ActualTokens:         c.ActualTokens,
		Success:              success,
		ConstraintViolations: violations,
		Batched:              c.ShouldBatch,
		Timestamp:            c.EndTime,
	}
}

// AuditLog is an append-only record of every call the engine has
// finalised. A single log is owned by exactly one engine instance.
// Appends and reads are mutex-guarded; the engine as a whole still
// expects its callers to serialise Execute calls.
type AuditLog struct {
	mu      sync.Mutex
	records []AuditRecord
}

// NewAuditLog returns an empty log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) append(r AuditRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// Records returns a copy of every record appended so far.
func (l *AuditLog) Records() []AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditRecord, len(l.records))
	copy(out, l.records)
	return out
}

// ByTool returns a copy of the records for one tool name, in append
// order.
func (l *AuditLog) ByTool(tool string) []AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []AuditRecord
	for _, r := range l.records {
		if r.Tool == tool {
			out = append(out, r)
		}
	}
	return out
}

// Clear empties the log. Explicit only; the engine never clears it on
// its own.
func (l *AuditLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}

// AuditReport is an aggregate summary over an AuditLog's records.
type AuditReport struct {
	TotalExecutions int
	SuccessRate     float64
	TotalTokens     int
	SlowTools       []SlowTool
}

// SlowTool names a call that exceeded the report's duration threshold.
type SlowTool struct {
	Tool     string
	Duration time.Duration
}

// Report summarizes the log's records, naming every call whose
// duration exceeded threshold, sorted descending by duration.
func (l *AuditLog) Report(threshold time.Duration) AuditReport {
	records := l.Records()

	report := AuditReport{TotalExecutions: len(records)}
	if len(records) == 0 {
		return report
	}

	successes := 0
	for _, r := range records {
		if r.Success {
			successes++
		}
		report.TotalTokens += r.ActualTokens
		if r.Duration > threshold {
			report.SlowTools = append(report.SlowTools, SlowTool{Tool: r.Tool, Duration: r.Duration})
		}
	}
	report.SuccessRate = float64(successes) / float64(len(records))

	sort.Slice(report.SlowTools, func(i, j int) bool {
		return report.SlowTools[i].Duration > report.SlowTools[j].Duration
	})

	return report
}
