package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rp-tools/rp-relay/session"
	"github.com/rp-tools/rp-relay/types"
)

// formatSummaryTable renders the final run accounting to the console.
func formatSummaryTable(summary session.Summary) string {
	var sb strings.Builder

	t := table.NewWriter()
	t.SetOutputMirror(&sb)
	t.SetTitle(fmt.Sprintf("Run Results (%s)", formatDuration(summary.EndTime.Sub(summary.StartTime))))

	t.AppendHeader(table.Row{
		"Scope", "Total", "Passed", "Failed", "Skipped",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Total", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	appendCounts(t, "Suites", summary.Suites)
	appendCounts(t, "Tests", summary.Tests)
	appendCounts(t, "Keywords", summary.Keywords)

	t.AppendFooter(table.Row{"Launch", "", "", "", getResultString(summary.LaunchStatus)})
	t.Render()

	if summary.Degraded {
		sb.WriteString("WARNING: some reporting calls failed, backend results are incomplete\n")
	}
	if summary.DroppedLogs > 0 {
		sb.WriteString(fmt.Sprintf("WARNING: %d log message(s) arrived outside any open scope and were dropped\n", summary.DroppedLogs))
	}
	return sb.String()
}

func appendCounts(t table.Writer, scope string, counts session.StatusCounts) {
	t.AppendRow(table.Row{
		scope,
		counts.Total,
		counts.Passed,
		counts.Failed,
		counts.Skipped,
	})
}

// getResultString returns a colored string representing the launch result
func getResultString(status types.Status) string {
	switch status {
	case types.StatusPassed:
		return "✓ pass"
	case types.StatusSkipped:
		return "- skip"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
