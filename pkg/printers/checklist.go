package printers

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/overdue"
	"github.com/harrisonrobin/roadmap/pkg/progress"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

var (
	tickOn  = color.New(color.FgGreen).Sprint("✓")
	tickOff = color.New(color.Faint).Sprint("·")
	late    = color.New(color.FgRed).SprintFunc()
)

// Checklist prints the tasks passing f with their four milestones, followed
// by progress over the filtered set.
func Checklist(w io.Writer, tasks []model.Task, ticks model.TickState, lanes []string, f progress.Filter, overdueTable *overdue.Table) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold("KEY"), bold("TASK"), bold("LANE"), bold("CATEGORY"),
		bold("SPEC"), bold("DEV"), bold("TEST"), bold("SHIP"), bold("END"))

	shown := f.Apply(tasks, ticks, lanes)
	for _, t := range shown {
		key := t.Key()
		lane, ok := timeline.LaneFor(t.Workstream, lanes)
		if !ok {
			lane = "-"
		}
		name := overdueTable.Label(key, t.Name)
		if overdueTable.Is(key) {
			name = late(name)
		}
		tk := ticks[key]
		tbl.AddRow(key, name, lane, string(t.Category),
			mark(tk.Spec), mark(tk.Dev), mark(tk.Test), mark(tk.Ship), t.End)
	}
	_, _ = fmt.Fprintln(w, tbl)

	p := progress.Compute(shown, ticks)
	Progress(w, "Filtered ("+f.String()+")", p)
}

func mark(on bool) string {
	if on {
		return tickOn
	}
	return tickOff
}

// Progress prints a labelled completion line with a small bar.
func Progress(w io.Writer, label string, p progress.Progress) {
	const width = 20
	filled := p.Pct * width / 100
	bar := color.New(color.FgGreen).Sprint(repeat('█', filled)) + faint(repeat('░', width-filled))
	fmt.Fprintf(w, "%s  %s  %d/%d milestones  %d%%  (%d tasks)\n", bold(label), bar, p.Done, p.Total, p.Pct, p.Tasks)
}

func repeat(r rune, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}
