// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/vr-training-admin/internal/analytics"
	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/grid"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxEventsToShow is the number of answer events listed per moment
	maxEventsToShow = 3
	timeLayout      = "2006-01-02 15:04"
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, boxWidth-4), boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRecord outputs a normalized evaluation or training result.
func (p *Printer) PrintRecord(rec evaluation.Record) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("ID:       %s\n", rec.ID))
	sb.WriteString(fmt.Sprintf("Mode:     %s\n", orDash(string(rec.Mode))))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", rec.Status))
	sb.WriteString(fmt.Sprintf("Score:    %s\n", rec.Score))
	sb.WriteString(fmt.Sprintf("Started:  %s\n", formatTime(rec.StartTime)))
	sb.WriteString(fmt.Sprintf("Finished: %s\n", formatTime(rec.EndTime)))

	for _, ch := range rec.Chapters {
		sb.WriteString("\n")
		name := ch.Name
		if name == "" {
			name = fmt.Sprintf("Chapter %d", ch.ChapterIndex)
		}
		sb.WriteString(name + "\n")

		for _, m := range ch.Moments {
			label := m.Name
			if label == "" {
				label = fmt.Sprintf("moment %d", m.MomentIndex)
			}
			sb.WriteString(fmt.Sprintf("  • %s: %d event(s)", label, len(m.Answers)))
			if m.TotalTimeTaken != nil {
				sb.WriteString(fmt.Sprintf(", %s", (time.Duration(*m.TotalTimeTaken) * time.Millisecond).String()))
			}
			sb.WriteString("\n")

			count := min(len(m.Answers), maxEventsToShow)
			for i := 0; i < count; i++ {
				sb.WriteString(fmt.Sprintf("      %s\n", string(m.Answers[i])))
			}
			if len(m.Answers) > maxEventsToShow {
				sb.WriteString(fmt.Sprintf("      ... and %d more\n", len(m.Answers)-maxEventsToShow))
			}
		}
	}

	title := strings.ToUpper(string(rec.Kind))
	if title == "" {
		title = "RESULT"
	}
	p.printBox(title+" RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPage outputs one page of list rows as a table followed by a pagination footer.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintPage(page *apiclient.Page, params grid.Params) {
	if page == nil {
		return
	}

	headers := []string{"ID", "USER", "MODULE", "MODE", "STATUS", "SCORE", "STARTED"}
	rows := make([][]string, 0, len(page.Data))
	for _, r := range page.Data {
		rows = append(rows, []string{
			r.ID,
			orDash(r.UserName),
			orDash(r.Module),
			orDash(string(r.Mode)),
			string(r.Status),
			r.Score,
			formatTime(r.StartTime),
		})
	}
	p.printTable(headers, rows)

	pages := grid.PageCount(page.Total, params.PageSize)
	fmt.Fprintf(p.out, "\npage %d of %d · %d per page · %d total\n", params.PageIndex, max(pages, 1), params.PageSize, page.Total)
}

// PrintMetrics outputs a period comparison.
func (p *Printer) PrintMetrics(metrics []analytics.Metric) {
	if len(metrics) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %10s %10s %9s\n", "METRIC", "CURRENT", "PREVIOUS", "CHANGE"))
	for _, m := range metrics {
		sb.WriteString(fmt.Sprintf("%-18s %10s %10s %8.1f%%\n", m.Name, formatFloat(m.Current), formatFloat(m.Previous), m.Change))
	}
	p.printBox("ANALYTICS SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummary outputs the figures of a single period.
func (p *Printer) PrintSummary(s analytics.Summary) {
	rows := []struct {
		name  string
		value float64
	}{
		{"total", float64(s.Total)},
		{"passed", float64(s.Passed)},
		{"failed", float64(s.Failed)},
		{"pending", float64(s.Pending)},
		{"ongoing", float64(s.Ongoing)},
		{"completed", float64(s.Completed)},
		{"passRate", s.PassRate},
	}

	modes := make([]string, 0, len(s.ByMode))
	for m := range s.ByMode {
		modes = append(modes, string(m))
	}
	sort.Strings(modes)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %10s\n", "METRIC", "CURRENT"))
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%-18s %10s\n", r.name, formatFloat(r.value)))
	}
	for _, m := range modes {
		sb.WriteString(fmt.Sprintf("%-18s %10d\n", "mode."+m, s.ByMode[evaluation.Mode(m)]))
	}
	p.printBox("ANALYTICS SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPageSizes outputs the persisted page size of every table.
func (p *Printer) PrintPageSizes(sizes map[string]int) {
	if len(sizes) == 0 {
		p.printBox("PAGE SIZES", "no page sizes saved")
		return
	}

	tables := make([]string, 0, len(sizes))
	for t := range sizes {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var sb strings.Builder
	for _, t := range tables {
		sb.WriteString(fmt.Sprintf("%-24s %d\n", t, sizes[t]))
	}
	p.printBox("PAGE SIZES", strings.TrimSuffix(sb.String(), "\n"))
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], min(utf8.RuneCountInString(cell), 28))
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = pad(truncate(c, widths[i]), widths[i])
		}
		fmt.Fprintln(p.out, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(headers)
	if len(rows) == 0 {
		fmt.Fprintln(p.out, "(no rows)")
		return
	}
	for _, row := range rows {
		line(row)
	}
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= 3 {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-3]) + "..."
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return evaluation.NoScore
	}
	return t.UTC().Format(timeLayout)
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.1f", f)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
