package snapraid

import (
	"regexp"
	"strconv"
	"strings"
)

// DiffResult holds the change counts extracted from diff output. The Seen
// flags record whether the corresponding summary line was actually
// present; callers comparing against thresholds treat an unseen count as
// zero, not as an error.
type DiffResult struct {
	Removed     int
	Updated     int
	RemovedSeen bool
	UpdatedSeen bool
}

// diff output ends in a summary block with lines like "   12 removed"
// and "    3 updated", in unspecified order
var diffSummaryLine = regexp.MustCompile(`^\s+(\d+)\s+(removed|updated)`)

// ParseDiff extracts the removed and updated counts from diff output.
// The summary sits at the bottom, so lines are scanned backward and the
// scan stops as soon as both counts have been recorded; for each count
// the last occurrence in forward order wins. A dry run produces no
// output, so both counts default to zero there.
func ParseDiff(output string, dryRun bool) DiffResult {
	var result DiffResult

	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		m := diffSummaryLine.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		count, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		switch m[2] {
		case "removed":
			if !result.RemovedSeen {
				result.Removed = count
				result.RemovedSeen = true
			}
		case "updated":
			if !result.UpdatedSeen {
				result.Updated = count
				result.UpdatedSeen = true
			}
		}

		if result.RemovedSeen && result.UpdatedSeen {
			break
		}
	}

	if dryRun {
		result.RemovedSeen = true
		result.UpdatedSeen = true
	}

	return result
}
