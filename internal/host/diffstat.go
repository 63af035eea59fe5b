package host

import (
	"strings"
)

// DiffStats holds line counts computed from a unified diff
type DiffStats struct {
	Additions int
	Deletions int
	Changes   int
}

// ParseDiffStats computes additions and deletions from unified diff text.
// Header lines (+++/---/@@/diff/index) are excluded from the counts.
func ParseDiffStats(diffText string) DiffStats {
	if diffText == "" {
		return DiffStats{}
	}

	var additions, deletions int

	for _, line := range strings.Split(diffText, "\n") {
		// Skip diff headers and metadata
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") ||
			strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "diff ") ||
			strings.HasPrefix(line, "index ") {
			continue
		}

		if strings.HasPrefix(line, "+") {
			additions++
		} else if strings.HasPrefix(line, "-") {
			deletions++
		}
	}

	return DiffStats{
		Additions: additions,
		Deletions: deletions,
		Changes:   additions + deletions,
	}
}
