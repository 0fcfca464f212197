package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/roadmap/pkg/colors"
	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/overdue"
	"github.com/harrisonrobin/roadmap/pkg/progress"
	"github.com/harrisonrobin/roadmap/pkg/syncer"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	laneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	todayStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	tickStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	lateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const nameWidth = 24

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Roadmap ")
	help := helpStyle.Render("tab: view | j/k: move | 1-4: spec/dev/test/ship | s: save | r: refresh | l/c/f: lane/category/status | q: quit")

	var body string
	if len(m.snap.Tasks) == 0 && m.snap.LastError == nil {
		body = "  Loading tasks..."
	} else if m.view == viewChart {
		body = m.renderChart()
	} else {
		body = m.renderChecklist()
	}

	return fmt.Sprintf("%s  %s\n\n%s\n\n%s\n%s", title, m.renderHeader(), body, m.renderStatus(), help)
}

func (m Model) renderHeader() string {
	p := progress.Compute(m.snap.Tasks, m.snap.Ticks)
	parts := []string{
		fmt.Sprintf("%d/%d milestones (%d%%)", p.Done, p.Total, p.Pct),
		m.snap.State.String(),
	}
	if !m.snap.LastRefresh.IsZero() {
		parts = append(parts, "updated "+m.snap.LastRefresh.In(m.location()).Format("15:04:05"))
	}
	if m.snap.Source == syncer.SourceCache {
		parts = append(parts, "offline copy")
	}
	if m.snap.Dirty {
		parts = append(parts, "unsaved changes")
	}
	return strings.Join(parts, "  ·  ")
}

func (m Model) renderStatus() string {
	var lines []string
	if m.snap.LastError != nil {
		lines = append(lines, errorStyle.Render("  "+m.snap.LastError.Error()))
	}
	if m.status != "" {
		lines = append(lines, "  "+m.status)
	}
	return strings.Join(lines, "\n")
}

func (m Model) location() *time.Location {
	if m.opts.Window.Location == nil {
		return time.Local
	}
	return m.opts.Window.Location
}

func (m Model) chartColumns() int {
	cols := m.width - nameWidth - 2
	if cols < 20 {
		cols = 20
	}
	return cols
}

func (m Model) renderChart() string {
	chart := timeline.Layout(m.snap.Tasks, m.opts.Window, m.opts.Lanes, m.opts.Geometry, m.opts.Now())
	cols := m.chartColumns()
	late := overdue.NewTable(m.snap.Tasks, m.snap.Ticks, m.opts.Now(), m.opts.Window.Location)

	marker := -1
	if chart.Today.Visible {
		marker = chart.Today.Column(cols)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", nameWidth))
	b.WriteString(faintStyle.Render(weekHeader(chart, cols)))
	b.WriteString("\n")
	for _, lane := range chart.Lanes {
		b.WriteString(laneStyle.Render(lane.Label))
		b.WriteString("\n")
		for _, bar := range lane.Bars {
			label := fit("  "+late.Label(bar.Key, bar.Name), nameWidth)
			if late.Is(bar.Key) {
				label = lateStyle.Render(label)
			}
			b.WriteString(label)
			b.WriteString(m.barRow(bar, cols, marker))
			b.WriteString("\n")
		}
	}
	if n := len(chart.Unassigned); n > 0 {
		b.WriteString(faintStyle.Render(fmt.Sprintf("%d task(s) match no lane", n)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) barRow(bar timeline.Bar, cols, marker int) string {
	from, to, ok := bar.Columns(cols)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Hex(m.opts.Palette.Slot(bar.Category))))
	var b strings.Builder
	for i := 0; i < cols; i++ {
		switch {
		case ok && i >= from && i < to:
			b.WriteString(style.Render("█"))
		case i == marker:
			b.WriteString(todayStyle.Render("│"))
		default:
			b.WriteString(faintStyle.Render("·"))
		}
	}
	return b.String()
}

func weekHeader(chart timeline.Chart, cols int) string {
	row := []rune(strings.Repeat(" ", cols))
	next := 0
	for _, wk := range chart.Weeks {
		col := int(wk.LeftPct * float64(cols) / 100)
		label := []rune(wk.Start.Format("01/02"))
		if col < next || col+len(label) > cols {
			continue
		}
		copy(row[col:], label)
		next = col + len(label) + 1
	}
	return string(row)
}

func (m Model) renderChecklist() string {
	rows := m.visible()
	late := overdue.NewTable(m.snap.Tasks, m.snap.Ticks, m.opts.Now(), m.opts.Window.Location)

	var b strings.Builder
	b.WriteString(faintStyle.Render(fmt.Sprintf("%-*s %-6s %-10s SPEC DEV  TEST SHIP", nameWidth, "TASK", "KEY", "CATEGORY")))
	b.WriteString("\n")

	start, end := m.scrollWindow(len(rows))
	for i := start; i < end; i++ {
		t := rows[i]
		tk := m.snap.Ticks[t.Key()]
		name := fit(late.Label(t.Key(), t.Name), nameWidth)
		if late.Is(t.Key()) {
			name = lateStyle.Render(name)
		}
		line := fmt.Sprintf("%s %-6s %-10s %s",
			name, fit(t.Key(), 6), fit(string(t.Category), 10), ticksCells(tk))
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(rows) == 0 {
		b.WriteString("  No tasks match the filter.\n")
	}

	p := progress.Filtered(m.snap.Tasks, m.snap.Ticks, m.filter, m.opts.Lanes)
	b.WriteString(faintStyle.Render(fmt.Sprintf("\n%s  ·  %d/%d milestones (%d%%) over %d task(s)",
		m.filter, p.Done, p.Total, p.Pct, p.Tasks)))
	return b.String()
}

func ticksCells(tk model.Ticks) string {
	cells := make([]string, 0, model.MilestonesPerTask)
	for _, ms := range model.Milestones {
		if tk.Get(ms) {
			cells = append(cells, tickStyle.Render(" ✓  "))
		} else {
			cells = append(cells, faintStyle.Render(" ·  "))
		}
	}
	return strings.Join(cells, " ")
}

// scrollWindow keeps the cursor on screen when the list is taller than the
// terminal.
func (m Model) scrollWindow(n int) (int, int) {
	visible := m.height - 10
	if visible <= 0 || n <= visible {
		return 0, n
	}
	start := m.cursor - visible/2
	if start < 0 {
		start = 0
	}
	if start+visible > n {
		start = n - visible
	}
	return start, start + visible
}

// fit truncates or pads s to exactly width runes.
func fit(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		r = append(r[:width-1], '…')
	}
	return string(r) + strings.Repeat(" ", width-len(r))
}
