package plan

import (
	"fmt"
	"strings"
)

// Severity classifies a ValidationViolation.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// ValidationViolation is one finding from Validate.
type ValidationViolation struct {
	Field         string
	Message       string
	Severity      Severity
	CurrentValue  any
	ExpectedRange string
}

// ValidationResult owns every violation found while validating a plan.
type ValidationResult struct {
	Violations []ValidationViolation
}

// IsValid is true iff no ERROR-level violation is present.
func (r *ValidationResult) IsValid() bool {
	return r.ErrorCount() == 0
}

func (r *ValidationResult) countSeverity(s Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == s {
			n++
		}
	}
	return n
}

func (r *ValidationResult) ErrorCount() int   { return r.countSeverity(SeverityError) }
func (r *ValidationResult) WarningCount() int { return r.countSeverity(SeverityWarning) }
func (r *ValidationResult) InfoCount() int    { return r.countSeverity(SeverityInfo) }

func (r *ValidationResult) add(v ValidationViolation) {
	r.Violations = append(r.Violations, v)
}

// catastrophicRollbackPatterns are reasoning-failure signals in a
// rollback command, not a security control.
var catastrophicRollbackPatterns = []string{
	"rm -rf /",
	"format c:",
	"del /f /s /q",
}

// crossFieldRatioThreshold is the implementation-chosen threshold for
// "max_files * max_changes large relative to timeout_seconds".
const crossFieldRatioThreshold = 10

// Validate is the pure function ExecutionPlan -> ValidationResult.
// It performs no I/O, is idempotent, and deliberately does not
// re-check what NewExecutionPlan already guarantees structurally
// (bounds, required fields, manual-with-commands).
func Validate(p *ExecutionPlan) *ValidationResult {
	result := &ValidationResult{}

	checkRollbackAdvisory(p, result)
	checkValidationConfig(p, result)
	checkCrossFieldConsistency(p, result)

	return result
}

// checkRollbackAdvisory scans rollback commands for catastrophic-intent
// shapes. Always INFO: it signals likely AI reasoning failure, never
// blocks the call.
func checkRollbackAdvisory(p *ExecutionPlan, result *ValidationResult) {
	for i, cmd := range p.rollback.Commands {
		lower := strings.ToLower(cmd)
		for _, pattern := range catastrophicRollbackPatterns {
			if strings.Contains(lower, pattern) {
				result.add(ValidationViolation{
					Field:        fmt.Sprintf("rollback.commands[%d]", i),
					Message:      fmt.Sprintf("command resembles a catastrophic operation (%q) — likely a reasoning failure, not blocked", pattern),
					Severity:     SeverityInfo,
					CurrentValue: cmd,
				})
			}
		}
	}
}

// checkValidationConfig flags empty-after-trim entries as ERROR and
// duplicate entries within a list as WARNING.
func checkValidationConfig(p *ExecutionPlan, result *ValidationResult) {
	checkList := func(field string, list []string) {
		seen := make(map[string]int)
		for i, item := range list {
			if trimmedEmpty(item) {
				result.add(ValidationViolation{
					Field:        fmt.Sprintf("%s[%d]", field, i),
					Message:      "must not be empty",
					Severity:     SeverityError,
					CurrentValue: item,
				})
				continue
			}
			normalized := strings.ToLower(strings.TrimSpace(item))
			if prev, ok := seen[normalized]; ok {
				result.add(ValidationViolation{
					Field:        fmt.Sprintf("%s[%d]", field, i),
					Message:      fmt.Sprintf("duplicate of entry %d", prev),
					Severity:     SeverityWarning,
					CurrentValue: item,
				})
				continue
			}
			seen[normalized] = i
		}
	}

	checkList("validation.pre_conditions", p.preConditions)
	checkList("validation.expected_outcomes", p.expectedOutcomes)
}

// checkCrossFieldConsistency emits WARNINGs for plan shapes that are
// legal but suspicious: batch mode with a trivial file cap, or limits
// that together dwarf the timeout budget.
func checkCrossFieldConsistency(p *ExecutionPlan, result *ValidationResult) {
	if p.batch && p.limits.MaxFiles <= 1 {
		result.add(ValidationViolation{
			Field:         "batch",
			Message:       "batch=true with max_files<=1 fuses sub-calls into a budget too small to be useful",
			Severity:      SeverityWarning,
			CurrentValue:  p.limits.MaxFiles,
			ExpectedRange: "max_files > 1 when batch=true",
		})
	}

	if p.limits.TimeoutSeconds > 0 {
		ratio := float64(p.limits.MaxFiles*p.limits.MaxChanges) / float64(p.limits.TimeoutSeconds)
		if ratio > crossFieldRatioThreshold {
			result.add(ValidationViolation{
				Field:         "limits",
				Message:       fmt.Sprintf("max_files * max_changes / timeout_seconds = %.1f exceeds the advisory ratio of %d", ratio, crossFieldRatioThreshold),
				Severity:      SeverityWarning,
				CurrentValue:  ratio,
				ExpectedRange: fmt.Sprintf("<= %d", crossFieldRatioThreshold),
			})
		}
	}
}
