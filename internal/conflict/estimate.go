package conflict

import (
	"fmt"
	"regexp"
)

// Per-conflict minute costs by resolution strategy. Generic merge
// conflicts cost the least; signature changes and conflicts in API
// surface files cost progressively more.
const (
	minutesGenericConflict = 15
	minutesSignatureChange = 30
	minutesDependencyMerge = 10
	minutesAPIChange       = 60
)

var apiFileRe = regexp.MustCompile(`(?i)(^|/)(api|routes?|controllers?|handlers?|endpoints?)(/|\.)`)

// estimateMinutes sums a fixed per-conflict cost by resolved strategy.
// Auto-merged imports are free; everything else scales with count, so the
// estimate is non-negative and monotonic in the number of conflicts.
func estimateMinutes(conflicts []Conflict, resolutions []Resolution) int {
	total := 0
	for i, r := range resolutions {
		switch {
		case r.Strategy == "merge-imports":
			// auto-resolved, no manual time
		case r.Strategy == "merge-versions":
			total += minutesDependencyMerge
		case i < len(conflicts) && apiFileRe.MatchString(conflicts[i].File):
			total += minutesAPIChange
		case r.Strategy == "signature-review":
			total += minutesSignatureChange
		default:
			total += minutesGenericConflict
		}
	}

	// Conflicts beyond the resolution list (the lists are kept
	// index-aligned) would cost the generic rate.
	if extra := len(conflicts) - len(resolutions); extra > 0 {
		total += extra * minutesGenericConflict
	}
	return total
}

// formatMinutes renders minutes directly under an hour, rounded-up hours
// above.
func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := (minutes + 59) / 60
	return fmt.Sprintf("%d hours", hours)
}
