// Package router allocates per-area file-search budgets for a query
// against the areas internal/area detected, and derives the glob
// patterns those budgets should be spent on.
package router

import (
	"sort"
	"strings"
	"time"

	"github.com/evolvai/evolvai/internal/area"
)

// AppliedArea is the per-query budget decision for one area.
type AppliedArea struct {
	AreaName     string
	BudgetFiles  int
	ScannedFiles int
	MatchCount   int
	Duration     time.Duration
	Score        int
}

// QueryRouting is the full result of RouteQuery.
type QueryRouting struct {
	Query         string
	Areas         []area.ProjectArea
	AppliedAreas  []AppliedArea
	FinalPatterns []string
}

// unscoredFloor is the fixed budget every unscored area receives when
// at least one other area scored positively.
const unscoredFloor = 2

// keywordsByLanguage is the closed keyword dictionary scoring is run
// against. Areas are scored by their detected language rather than
// their (project-specific) name, since the language set is the
// closed, stable vocabulary the sentinel dictionary already
// establishes; name-keyed scoring would require the dictionary to
// anticipate every possible "<language>-<subdir>" string a project
// could produce.
var keywordsByLanguage = map[string][]string{
	"go":         {"go", "golang", "backend", "server", "api", "database", "sql", "cli", "grpc"},
	"ruby":       {"ruby", "rails", "gem", "backend", "erb"},
	"typescript": {"typescript", "ts", "tsx", "react", "frontend", "ui", "component", "login", "css", "html", "javascript", "js", "vue", "node"},
	"python":     {"python", "py", "ml", "script", "data", "pandas", "numpy"},
}

// RouteQuery scores areas against query and allocates totalBudget
// files across them, returning the routing decision and the derived
// search patterns. The sum of every AppliedArea.BudgetFiles always
// equals totalBudget exactly.
func RouteQuery(query string, areas []area.ProjectArea, totalBudget int) QueryRouting {
	tokens := strings.Fields(strings.ToLower(query))
	scores := make([]int, len(areas))
	maxScore := 0
	anyPositive := false

	for i, a := range areas {
		scores[i] = scoreArea(a, tokens)
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
		if scores[i] > 0 {
			anyPositive = true
		}
	}

	var budgets []int
	if anyPositive {
		budgets = allocateScored(scores, maxScore, totalBudget)
	} else {
		budgets = allocateEven(len(areas), totalBudget)
	}

	applied := make([]AppliedArea, len(areas))
	var patterns []string
	seenPattern := make(map[string]bool)
	for i, a := range areas {
		applied[i] = AppliedArea{
			AreaName:    a.Name,
			BudgetFiles: budgets[i],
			Score:       scores[i],
		}
		for _, pattern := range areaPatterns(a) {
			if !seenPattern[pattern] {
				seenPattern[pattern] = true
				patterns = append(patterns, pattern)
			}
		}
	}

	return QueryRouting{
		Query:         query,
		Areas:         areas,
		AppliedAreas:  applied,
		FinalPatterns: patterns,
	}
}

// scoreArea counts how many query tokens occur in the area's
// language's keyword set. Areas whose language isn't in the
// dictionary score 0.
func scoreArea(a area.ProjectArea, tokens []string) int {
	keywords, ok := keywordsByLanguage[a.Language]
	if !ok {
		return 0
	}
	keywordSet := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		keywordSet[k] = true
	}
	score := 0
	for _, tok := range tokens {
		if keywordSet[tok] {
			score++
		}
	}
	return score
}

// allocateScored splits totalBudget across primary (max-score),
// secondary (positive but lower), and unscored areas. The unscored
// floor is deducted first since it's a fixed amount per area; the
// remainder is then split 75/25 between primary and secondary, so the
// total always sums to exactly totalBudget even when the floor would
// otherwise overrun a very small budget.
func allocateScored(scores []int, maxScore, totalBudget int) []int {
	budgets := make([]int, len(scores))

	var primary, secondary, unscored []int
	for i, s := range scores {
		switch {
		case s == maxScore:
			primary = append(primary, i)
		case s > 0:
			secondary = append(secondary, i)
		default:
			unscored = append(unscored, i)
		}
	}

	unscoredPool := unscoredFloor * len(unscored)
	if unscoredPool > totalBudget {
		unscoredPool = totalBudget
	}
	distribute(budgets, unscored, unscoredPool)

	remaining := totalBudget - unscoredPool
	primaryPool := remaining * 3 / 4
	secondaryPool := remaining - primaryPool

	if len(secondary) == 0 {
		// No secondary area to spend the remainder on; fold it into
		// the primary pool.
		distribute(budgets, primary, primaryPool+secondaryPool)
		return budgets
	}

	distribute(budgets, primary, primaryPool)
	distribute(budgets, secondary, secondaryPool)

	return budgets
}

// allocateEven divides totalBudget evenly across n areas with the
// remainder spread one-per-area in order.
func allocateEven(n, totalBudget int) []int {
	budgets := make([]int, n)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	distribute(budgets, indices, totalBudget)
	return budgets
}

// distribute divides pool evenly among the areas named by indices,
// adding budgets[i] in place, with any remainder spread one-per-area
// in order.
func distribute(budgets []int, indices []int, pool int) {
	if len(indices) == 0 {
		return
	}
	share := pool / len(indices)
	remainder := pool % len(indices)
	for rank, i := range indices {
		budgets[i] += share
		if rank < remainder {
			budgets[i]++
		}
	}
}

// areaPatterns returns the final glob patterns contributed by a: its
// Include globs when set, otherwise patterns derived from its language.
func areaPatterns(a area.ProjectArea) []string {
	if len(a.Include) > 0 {
		return a.Include
	}
	switch a.Language {
	case "go":
		return []string{"**/*.go"}
	case "typescript":
		return []string{"**/*.ts", "**/*.tsx"}
	case "ruby":
		return []string{"**/*.rb", "**/*.erb"}
	case "python":
		return []string{"**/*.py"}
	default:
		return []string{"**/*"}
	}
}

// SortByBudgetDesc returns a copy of applied sorted by descending
// budget, for presentation purposes.
func SortByBudgetDesc(applied []AppliedArea) []AppliedArea {
	sorted := make([]AppliedArea, len(applied))
	copy(sorted, applied)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BudgetFiles > sorted[j].BudgetFiles })
	return sorted
}
