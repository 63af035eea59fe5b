package stage

import (
	"fmt"
	"strings"

	"github.com/tildaslashalef/revline/internal/host"
)

const headerRule = "================================================================================"

// FormatChanges renders a change set as text for LLM consumption. Both
// pull-request and merge-request sources arrive here in the same
// normalized shape.
func FormatChanges(files []host.FileChange) string {
	var b strings.Builder

	b.WriteString(headerRule + "\n")
	b.WriteString("MERGE REQUEST SUMMARY\n")
	fmt.Fprintf(&b, "Total files changed: %d\n", len(files))
	b.WriteString(headerRule + "\n")

	for _, f := range files {
		b.WriteString("\n" + headerRule + "\n")
		fmt.Fprintf(&b, "File: %s\n", f.Path)
		fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(string(f.Status)))
		fmt.Fprintf(&b, "Changes: +%d lines added, -%d lines removed\n", f.Additions, f.Deletions)
		if f.Language != "" {
			fmt.Fprintf(&b, "Language: %s\n", f.Language)
		}
		if f.Status == host.StatusRenamed && f.OldPath != "" {
			fmt.Fprintf(&b, "Renamed from: %s\n", f.OldPath)
		}
		b.WriteString(headerRule + "\n\n")

		if f.Diff != "" {
			b.WriteString("DIFF:\n")
			b.WriteString(f.Diff)
			if !strings.HasSuffix(f.Diff, "\n") {
				b.WriteString("\n")
			}
		} else {
			b.WriteString("No diff content available for this file\n")
		}
	}

	return b.String()
}
