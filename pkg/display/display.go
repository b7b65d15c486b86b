// Package display renders diffs and report listings for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"page-monitor/pkg/domain"
)

var (
	Red    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F15F5F"))
	Green  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3DD68C"))
	Cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7FF"))
	Gray   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	Header = lipgloss.NewStyle().Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#8A8A8A")).
			Padding(0, 1)
)

// DiffLine colours one unified-diff line by its marker
func DiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return Header.Render(line)
	case strings.HasPrefix(line, "@@"):
		return Cyan.Render(line)
	case strings.HasPrefix(line, "+"):
		return Green.Render(line)
	case strings.HasPrefix(line, "-"):
		return Red.Render(line)
	default:
		return line
	}
}

// PrintDiff writes the coloured diff to w, one line per diff line
func PrintDiff(w io.Writer, diff []string) {
	for _, line := range diff {
		fmt.Fprintln(w, DiffLine(line))
	}
}

// PrintReport writes a stored report: a boxed header followed by the diff
func PrintReport(w io.Writer, report domain.ChangeReport) {
	header := fmt.Sprintf("Changes detected at %s\nURL: %s",
		report.Timestamp.Format(domain.ReportTimeLayout), report.URL)
	fmt.Fprintln(w, BoxStyle.Render(header))
	PrintDiff(w, report.Diff)
}

// PrintHistory writes one line per report: id, time, URL and line counts
func PrintHistory(w io.Writer, reports []domain.ChangeReport) {
	if len(reports) == 0 {
		fmt.Fprintln(w, Gray.Render("No change reports recorded."))
		return
	}
	for _, r := range reports {
		fmt.Fprintf(w, "%s  %s  %s  %s %s\n",
			r.ID,
			r.Timestamp.Format(domain.ReportTimeLayout),
			r.URL,
			Green.Render(fmt.Sprintf("+%d", r.Added())),
			Red.Render(fmt.Sprintf("-%d", r.Removed())),
		)
	}
}
