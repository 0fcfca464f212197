// Package printers writes one-shot terminal renderings of the chart,
// checklist and progress, and machine-readable exports.
package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/harrisonrobin/roadmap/pkg/colors"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

const (
	barRune   = '█'
	emptyRune = '·'
	todayRune = '│'

	maxNameWidth = 28
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
	today = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Chart draws c as a text Gantt chart with cols cells for the window.
func Chart(w io.Writer, c timeline.Chart, palette *colors.Cache, cols int) {
	if cols < 10 {
		cols = 10
	}
	nameWidth := 0
	for _, lane := range c.Lanes {
		for _, b := range lane.Bars {
			nameWidth = max(nameWidth, len([]rune(b.Name))+2)
		}
	}
	nameWidth = min(max(nameWidth, 12), maxNameWidth)

	fmt.Fprintf(w, "%s  %s to %s, %d days, %d weeks\n",
		bold("Roadmap"), c.Start, c.End, c.TotalDays, c.WeekCount)
	fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", nameWidth), weekHeader(c, cols))

	marker := -1
	if c.Today.Visible {
		marker = c.Today.Column(cols)
	}
	for _, lane := range c.Lanes {
		fmt.Fprintln(w, bold(lane.Label))
		if len(lane.Bars) == 0 {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", nameWidth), faint("(no tasks)"))
			continue
		}
		for _, b := range lane.Bars {
			fmt.Fprintf(w, "%s%s\n", pad("  "+b.Name, nameWidth), barRow(b, cols, marker, palette))
		}
	}

	if n := len(c.Unassigned); n > 0 {
		fmt.Fprintln(w, faint(fmt.Sprintf("%d task(s) match no lane", n)))
	}
	if n := len(c.Unplaced); n > 0 {
		fmt.Fprintln(w, faint(fmt.Sprintf("%d task(s) without dates", n)))
	}
}

func weekHeader(c timeline.Chart, cols int) string {
	row := []rune(strings.Repeat(" ", cols))
	next := 0
	for _, wk := range c.Weeks {
		col := int(wk.LeftPct * float64(cols) / 100)
		label := []rune(wk.Start.Format("01/02"))
		if col < next || col+len(label) > cols {
			continue
		}
		copy(row[col:], label)
		next = col + len(label) + 1
	}
	return faint(string(row))
}

func barRow(b timeline.Bar, cols, marker int, palette *colors.Cache) string {
	from, to, ok := b.Columns(cols)
	var sb strings.Builder
	paint := colors.Color(palette.Slot(b.Category)).SprintFunc()
	for i := 0; i < cols; i++ {
		switch {
		case ok && i >= from && i < to:
			sb.WriteString(paint(string(barRune)))
		case i == marker:
			sb.WriteString(today(string(todayRune)))
		default:
			sb.WriteString(faint(string(emptyRune)))
		}
	}
	return sb.String()
}

// pad truncates or right-pads s to width runes.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width-1 {
		r = append(r[:width-2], '…')
	}
	return string(r) + strings.Repeat(" ", width-len(r))
}
