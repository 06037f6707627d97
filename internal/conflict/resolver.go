package conflict

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Resolver confidence levels per strategy. Closed set: every conflict
// type is handled by exactly one branch of resolve.
const (
	confidenceImportMerge     = 0.9
	confidenceVersionMerge    = 0.8
	confidenceSignatureReview = 0.7
	confidenceConfigManual    = 0.5
	confidenceCodeManual      = 0.4
	confidenceParseFailure    = 0.3
)

// resolve dispatches on the conflict's type. The type set is closed, so
// this switch is exhaustive by construction.
func resolve(c Conflict) Resolution {
	switch c.Type {
	case TypeImport:
		return mergeImports(c)
	case TypeDependency:
		return mergeDependencies(c)
	case TypeConfig:
		return Resolution{
			File: c.File, Type: c.Type,
			Strategy:     "manual-review",
			Confidence:   confidenceConfigManual,
			ManualReview: true,
			Description:  "config conflicts are never auto-merged; review both values",
		}
	case TypeCode:
		return compareSignatures(c)
	default:
		return Resolution{
			File: c.File, Type: c.Type,
			Strategy:     "manual-review",
			Confidence:   confidenceCodeManual,
			ManualReview: true,
			Description:  "unrecognized conflict content; manual review required",
		}
	}
}

// mergeImports unions both sides' import lines, deduplicated, head order
// first. Always succeeds.
func mergeImports(c Conflict) Resolution {
	seen := map[string]bool{}
	var merged []string
	for _, line := range append(append([]string{}, c.Head...), c.Incoming...) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		merged = append(merged, line)
	}

	return Resolution{
		File: c.File, Type: c.Type,
		Strategy:    "merge-imports",
		Merged:      merged,
		Confidence:  confidenceImportMerge,
		Description: "union of both sides' imports, deduplicated",
	}
}

// mergeDependencies parses both sides as "name": "version" pairs and
// keeps the higher version per package. Unparseable sides or
// incomparable versions flag the conflict for manual review.
func mergeDependencies(c Conflict) Resolution {
	head, errHead := parseDependencyLines(c.Head)
	incoming, errIncoming := parseDependencyLines(c.Incoming)
	if errHead != nil || errIncoming != nil {
		return Resolution{
			File: c.File, Type: c.Type,
			Strategy:     "manual-review",
			Confidence:   confidenceParseFailure,
			ManualReview: true,
			Description:  "could not parse dependency entries on both sides",
		}
	}

	merged := map[string]string{}
	for name, v := range head {
		merged[name] = v
	}
	for name, v := range incoming {
		existing, ok := merged[name]
		if !ok {
			merged[name] = v
			continue
		}
		higher, comparable := higherVersion(existing, v)
		if !comparable {
			return Resolution{
				File: c.File, Type: c.Type,
				Strategy:     "manual-review",
				Confidence:   confidenceParseFailure,
				ManualReview: true,
				Description:  fmt.Sprintf("versions of %q are not comparable (%s vs %s)", name, existing, v),
			}
		}
		merged[name] = higher
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf(`"%s": "%s",`, name, merged[name]))
	}

	return Resolution{
		File: c.File, Type: c.Type,
		Strategy:    "merge-versions",
		Merged:      lines,
		Confidence:  confidenceVersionMerge,
		Description: "kept the higher version of each package",
	}
}

var depLineRe = regexp.MustCompile(`"([^"]+)"\s*:\s*"([^"]+)"`)

// parseDependencyLines extracts "name": "version" pairs. Lines that are
// pure JSON syntax (braces, section keys) are ignored; a side with
// content but no parseable pair is an error.
func parseDependencyLines(lines []string) (map[string]string, error) {
	deps := map[string]string{}
	sawContent := false
	for _, line := range lines {
		trimmed := strings.Trim(strings.TrimSpace(line), ",{}")
		if trimmed == "" {
			continue
		}
		sawContent = true
		m := depLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if m[1] == "dependencies" || m[1] == "devDependencies" {
			continue
		}
		deps[m[1]] = m[2]
	}
	if sawContent && len(deps) == 0 {
		return nil, fmt.Errorf("no dependency entries found")
	}
	return deps, nil
}

// higherVersion compares two semver-ish strings numerically segment by
// segment, ignoring a leading ^ or ~. Returns comparable=false when
// either side isn't numeric.
func higherVersion(a, b string) (string, bool) {
	av, okA := versionSegments(a)
	bv, okB := versionSegments(b)
	if !okA || !okB {
		return "", false
	}

	for i := 0; i < len(av) || i < len(bv); i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x > y {
			return a, true
		}
		if y > x {
			return b, true
		}
	}
	return a, true // equal; keep ours
}

func versionSegments(v string) ([]int, bool) {
	v = strings.TrimLeft(v, "^~v")
	parts := strings.Split(v, ".")
	segments := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		segments = append(segments, n)
	}
	return segments, len(segments) > 0
}

var signatureRe = regexp.MustCompile(`(?:function\s+(\w+)|func\s+(?:\([^)]*\)\s*)?(\w+)\s*\(|def\s+(\w+)\s*\()`)

// compareSignatures extracts function names from both sides. A shared
// name means the signature changed in place and needs parameter/return
// review; otherwise it's a generic manual review.
func compareSignatures(c Conflict) Resolution {
	headNames := signatureNames(c.Head)
	for name := range signatureNames(c.Incoming) {
		if headNames[name] {
			return Resolution{
				File: c.File, Type: c.Type,
				Strategy:     "signature-review",
				Confidence:   confidenceSignatureReview,
				ManualReview: true,
				Description:  fmt.Sprintf("both sides modify %q; review parameters and return values", name),
			}
		}
	}
	return Resolution{
		File: c.File, Type: c.Type,
		Strategy:     "manual-review",
		Confidence:   confidenceCodeManual,
		ManualReview: true,
		Description:  "divergent code blocks; manual review required",
	}
}

func signatureNames(lines []string) map[string]bool {
	names := map[string]bool{}
	for _, line := range lines {
		for _, m := range signatureRe.FindAllStringSubmatch(line, -1) {
			for _, g := range m[1:] {
				if g != "" {
					names[g] = true
				}
			}
		}
	}
	return names
}
