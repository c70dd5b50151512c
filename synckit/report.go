package synckit

import (
	"fmt"
	"strings"
	"time"
)

// FormatReport renders res as a human-readable report.
func FormatReport(res *Result) string {
	if res == nil {
		return "Synchronization report\n  (no result)\n"
	}

	var b strings.Builder
	status := "SUCCESS"
	if !res.Success {
		status = "FAILED"
	}
	strategy := string(res.Strategy)
	if strategy == "" {
		strategy = "-"
	}

	b.WriteString("Synchronization report\n")
	field(&b, "Run", res.RunID)
	field(&b, "Status", status)
	field(&b, "Strategy", strategy)
	field(&b, "Processing time", res.ProcessingTime.Round(time.Millisecond).String())
	field(&b, "Changes", fmt.Sprintf("added=%d modified=%d deleted=%d unchanged=%d skipped=%d",
		res.Diff.Added, res.Diff.Modified, res.Diff.Deleted, res.Diff.Unchanged, res.Diff.Skipped))
	field(&b, "Synchronized", fmt.Sprint(res.Synchronized))
	field(&b, "Conflicts", fmt.Sprintf("%d (severity %s), %d resolved", res.Conflicts, res.ConflictSeverity, res.ConflictsResolved))
	field(&b, "Retries", fmt.Sprint(res.RetryCount))
	if !res.Success {
		field(&b, "Failed stage", string(res.Stage))
		if res.Err != nil {
			field(&b, "Error", res.Err.Error())
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("Warnings:\n")
		for _, w := range res.Warnings {
			b.WriteString("  - ")
			b.WriteString(w)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func field(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %-16s %s\n", name+":", value)
}
