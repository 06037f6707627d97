package impact

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joescharf/upstream/internal/models"
)

// Graph traversal tunables.
const (
	maxTraversalDepth = 5
	criticalFanIn     = 5
)

// Complexity is the coarse blast-radius label derived from the BFS result.
type Complexity string

const (
	ComplexityMinimal  Complexity = "minimal"
	ComplexityLow      Complexity = "low"
	ComplexityMedium   Complexity = "medium"
	ComplexityHigh     Complexity = "high"
	ComplexityVeryHigh Complexity = "very-high"
)

// DependencyImpact is the output of one dependency-chain analysis. It is
// derived data and never persisted. Err carries a sub-analysis failure
// without aborting the batch it ran in.
type DependencyImpact struct {
	DirectDependents []string   `json:"directDependents"`
	AffectedFiles    []string   `json:"affectedFiles"`
	ImpactRadius     int        `json:"impactRadius"`
	CriticalPaths    []string   `json:"criticalPaths"`
	Complexity       Complexity `json:"complexity"`
	Err              string     `json:"error,omitempty"`
}

// Source extensions the import scanner understands, also tried in order
// when resolving an extensionless relative import.
var sourceExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".go", ".py"}

// Index fallbacks tried when a relative import resolves to a directory.
var indexFiles = []string{"index.js", "index.jsx", "index.ts", "index.tsx"}

// Directories never worth scanning.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*import\s+(?:[\w{}*,\s]+\s+from\s+)?['"]([^'"]+)['"]`),
	regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`(?m)^\s*from\s+(\.[\w.]*)\s+import\b`),
}

// AnalyzeDependencyChain builds a reverse-dependency map of the source
// tree and walks it breadth-first from the commit's changed files, capped
// at maxTraversalDepth. Cycles are handled by the visited set.
func (a *Analyzer) AnalyzeDependencyChain(commit *models.Commit, root string) *DependencyImpact {
	result := &DependencyImpact{Complexity: ComplexityMinimal}
	if len(commit.FilesChanged) == 0 {
		return result
	}

	reverse, err := buildReverseGraph(root)
	if err != nil {
		result.Err = "analysis failed: " + err.Error()
		return result
	}

	// Seed the BFS with the changed files, normalized to tree-relative paths.
	visited := map[string]bool{}
	var frontier []string
	for _, f := range commit.FilesChanged {
		rel := filepath.ToSlash(f)
		if !visited[rel] {
			visited[rel] = true
			frontier = append(frontier, rel)
		}
	}

	depth := 0
	for len(frontier) > 0 && depth < maxTraversalDepth {
		var next []string
		for _, f := range frontier {
			for _, dependent := range reverse[f] {
				if visited[dependent] {
					continue
				}
				visited[dependent] = true
				next = append(next, dependent)
				if depth == 0 {
					result.DirectDependents = append(result.DirectDependents, dependent)
				}
				result.AffectedFiles = append(result.AffectedFiles, dependent)
			}
		}
		if len(next) > 0 {
			depth++
		}
		frontier = next
	}
	result.ImpactRadius = depth

	// Files with many dependents of their own have outsized blast radius.
	for f := range visited {
		if len(reverse[f]) > criticalFanIn {
			result.CriticalPaths = append(result.CriticalPaths, f)
		}
	}
	sort.Strings(result.DirectDependents)
	sort.Strings(result.AffectedFiles)
	sort.Strings(result.CriticalPaths)

	result.Complexity = complexityTier(result.ImpactRadius, len(result.AffectedFiles), len(result.CriticalPaths))
	return result
}

// complexityTier is the fixed 5-tier threshold function over the BFS result.
func complexityTier(radius, affected, criticalPaths int) Complexity {
	switch {
	case radius >= 4 || affected > 50 || criticalPaths > 5:
		return ComplexityVeryHigh
	case radius >= 3 || affected > 20 || criticalPaths > 2:
		return ComplexityHigh
	case radius >= 2 || affected > 5:
		return ComplexityMedium
	case affected > 0:
		return ComplexityLow
	default:
		return ComplexityMinimal
	}
}

// buildReverseGraph scans every source file under root for import/require
// statements and inverts the edges: importedFile -> [files importing it].
// Only relative imports are resolved; package imports are ignored.
func buildReverseGraph(root string) (map[string][]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	reverse := map[string][]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !isSourceFile(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		for _, target := range scanImports(string(data)) {
			resolved := resolveImport(root, rel, target)
			if resolved == "" {
				continue
			}
			reverse[resolved] = append(reverse[resolved], rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reverse, nil
}

func isSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range sourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// scanImports extracts import targets from file content.
func scanImports(content string) []string {
	var targets []string
	for _, re := range importPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			targets = append(targets, m[1])
		}
	}
	return targets
}

// resolveImport maps a relative import in file (tree-relative) to the
// tree-relative path of the imported file, trying extensions and index
// fallbacks in order. Returns "" for package imports or unresolvable paths.
func resolveImport(root, file, target string) string {
	if !strings.HasPrefix(target, ".") {
		return ""
	}

	// Python-style "from .mod import x": dots become directory hops.
	if !strings.Contains(target, "/") && strings.HasPrefix(target, ".") && !strings.HasPrefix(target, "./") && !strings.HasPrefix(target, "../") {
		target = "./" + strings.TrimLeft(target, ".")
	}

	base := filepath.Join(filepath.Dir(file), filepath.FromSlash(target))

	candidates := []string{base}
	for _, ext := range sourceExtensions {
		candidates = append(candidates, base+ext)
	}
	for _, idx := range indexFiles {
		candidates = append(candidates, filepath.Join(base, idx))
	}

	for _, c := range candidates {
		info, err := os.Stat(filepath.Join(root, c))
		if err != nil || info.IsDir() {
			continue
		}
		return filepath.ToSlash(c)
	}
	return ""
}
