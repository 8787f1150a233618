// Package area implements project-layout classification: a cheap,
// cache-friendly scan that assigns a confidence-rated area to each
// region of a project tree, feeding per-area search budgets to
// internal/router.
package area

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Confidence is the strength of evidence behind a detected area.
type Confidence string

const (
	ConfidenceVeryHigh Confidence = "VeryHigh"
	ConfidenceHigh     Confidence = "High"
	ConfidenceMedium   Confidence = "Medium"
	ConfidenceLow      Confidence = "Low"
)

// ProjectArea is one detected region of a project.
type ProjectArea struct {
	Name       string
	Language   string
	Root       string
	Confidence Confidence
	Evidence   []string
	Include    []string
	Exclude    []string
}

// sentinel is one entry of the closed sentinel-file dictionary: a
// language and the filenames/dirnames whose presence is High-confidence
// evidence of it.
type sentinel struct {
	language string
	names    []string
}

var sentinels = []sentinel{
	{language: "go", names: []string{"go.mod", "Makefile", "CMakeLists.txt", "src", "internal", "cmd"}},
	{language: "ruby", names: []string{"Gemfile", "Rakefile", ".ruby-version"}},
	{language: "typescript", names: []string{"package.json", "tsconfig.json"}},
	{language: "python", names: []string{"pyproject.toml", "requirements.txt", "setup.py"}},
}

var rubyGemspecSuffix = ".gemspec"

// ignoredDirs is the fixed ignore set extension sampling never descends
// into, beyond any directory starting with ".".
var ignoredDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"build":        true,
	"__pycache__":  true,
}

// includeGlobs gives every detected language its include-pattern set.
func includeGlobs(language string) []string {
	switch language {
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

type cacheKey struct {
	root        string
	sampleLimit int
}

// Detector caches DetectAreas results by (root, sampleLimit): a
// mutex-guarded map for values that are expensive to recompute and
// safe to share across callers.
type Detector struct {
	mu    sync.Mutex
	cache map[cacheKey][]ProjectArea
}

// NewDetector returns an empty, ready-to-use Detector.
func NewDetector() *Detector {
	return &Detector{cache: make(map[cacheKey][]ProjectArea)}
}

// DetectAreas returns the areas detected under root, sampling at most
// sampleLimit files in the extension-sampling fallback layer. Results
// are cached by (root, sampleLimit); detection is idempotent and the
// cache is write-once per key.
func (d *Detector) DetectAreas(root string, sampleLimit int) ([]ProjectArea, error) {
	key := cacheKey{root: root, sampleLimit: sampleLimit}

	d.mu.Lock()
	if cached, ok := d.cache[key]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	areas, err := detect(root, sampleLimit)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if cached, ok := d.cache[key]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.cache[key] = areas
	d.mu.Unlock()

	return areas, nil
}

// detect runs the three-layer cascade: explicit configuration (a
// reserved, currently-empty layer), sentinel-file scan, then extension
// sampling. The first non-empty layer wins.
func detect(root string, sampleLimit int) ([]ProjectArea, error) {
	if areas := scanSentinels(root); len(areas) > 0 {
		return areas, nil
	}

	areas, err := sampleExtensions(root, sampleLimit)
	if err != nil {
		return nil, err
	}
	if len(areas) == 0 {
		return []ProjectArea{{
			Name:       "unknown-area",
			Language:   "unknown",
			Root:       root,
			Confidence: ConfidenceLow,
			Include:    []string{"**/*"},
		}}, nil
	}
	return areas, nil
}

// scanSentinels inspects root and its immediate subdirectories for
// sentinel files. It stops after the first matching language per
// directory, so a directory carrying evidence for two languages at
// once is attributed to whichever sentinel is checked first.
func scanSentinels(root string) []ProjectArea {
	var areas []ProjectArea

	if language, evidence := matchSentinels(root); language != "" {
		areas = append(areas, newSentinelArea(language, root, language+"-area", evidence))
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return areas
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		subdir := filepath.Join(root, entry.Name())
		language, evidence := matchSentinels(subdir)
		if language == "" {
			continue
		}
		areas = append(areas, newSentinelArea(language, subdir, language+"-"+entry.Name(), evidence))
	}

	return areas
}

func newSentinelArea(language, dir, name string, evidence []string) ProjectArea {
	return ProjectArea{
		Name:       name,
		Language:   language,
		Root:       dir,
		Confidence: ConfidenceHigh,
		Evidence:   evidence,
		Include:    includeGlobs(language),
	}
}

// matchSentinels checks dir against the closed sentinel dictionary in
// declaration order and returns the first language with at least one
// piece of evidence, plus the evidence found.
func matchSentinels(dir string) (language string, evidence []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil
	}
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = true
	}

	for _, s := range sentinels {
		var found []string
		for _, name := range s.names {
			if present[name] {
				found = append(found, name)
			}
		}
		if s.language == "ruby" {
			for fileName := range present {
				if strings.HasSuffix(fileName, rubyGemspecSuffix) {
					found = append(found, fileName)
				}
			}
		}
		if len(found) > 0 {
			return s.language, found
		}
	}
	return "", nil
}

// sampleExtensions walks root, counting file extensions until
// sampleLimit files have been seen, skipping dot-directories and the
// fixed ignore set. Languages are bucketed by confidence: High (>10
// files), Medium (>3), Low (>=1).
func sampleExtensions(root string, sampleLimit int) ([]ProjectArea, error) {
	counts := make(map[string]int)
	seen := 0

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != root && d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") || ignoredDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if seen >= sampleLimit {
			return filepath.SkipAll
		}
		language := languageForExt(filepath.Ext(path))
		if language == "" {
			return nil
		}
		counts[language]++
		seen++
		return nil
	})
	if err != nil {
		return nil, err
	}

	var areas []ProjectArea
	for language, count := range counts {
		var confidence Confidence
		switch {
		case count > 10:
			confidence = ConfidenceHigh
		case count > 3:
			confidence = ConfidenceMedium
		default:
			confidence = ConfidenceLow
		}
		areas = append(areas, ProjectArea{
			Name:       language + "-area",
			Language:   language,
			Root:       root,
			Confidence: confidence,
			Include:    includeGlobs(language),
		})
	}

	sort.Slice(areas, func(i, j int) bool { return areas[i].Name < areas[j].Name })
	return areas, nil
}

func languageForExt(ext string) string {
	switch ext {
	case ".go":
		return "go"
	case ".rb", ".erb":
		return "ruby"
	case ".ts", ".tsx":
		return "typescript"
	case ".py":
		return "python"
	default:
		return ""
	}
}
