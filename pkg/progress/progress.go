// Package progress aggregates milestone completion over a task set and
// implements the checklist filter.
//
// Two call sites use it with different denominators and must not be mixed
// up: Compute is the overall progress over every loaded task, Filtered only
// counts tasks passing a Filter.
package progress

import (
	"fmt"
	"math"
	"strings"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

// All disables a lane or category condition.
const All = "all"

// Status restricts tasks by shipped state.
type Status string

const (
	StatusAll  Status = "all"
	StatusOpen Status = "open"
	StatusDone Status = "done"
)

// ParseStatus accepts all, open or done.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusOpen:
		return StatusOpen, nil
	case StatusDone:
		return StatusDone, nil
	}
	return "", fmt.Errorf("unknown status filter %q (want all, open or done)", s)
}

// Progress is a completion count.
type Progress struct {
	Tasks int `json:"tasks" yaml:"tasks"`
	Total int `json:"total" yaml:"total"`
	Done  int `json:"done" yaml:"done"`
	Pct   int `json:"pct" yaml:"pct"`
}

// Compute counts completed milestones over every task. Missing tick entries
// count as nothing done.
func Compute(tasks []model.Task, ticks model.TickState) Progress {
	p := Progress{Tasks: len(tasks), Total: len(tasks) * model.MilestonesPerTask}
	for _, t := range tasks {
		p.Done += ticks[t.Key()].Count()
	}
	if p.Total > 0 {
		p.Pct = int(math.Round(float64(p.Done) / float64(p.Total) * 100))
	}
	return p
}

// Filter is a set of conditions that must all hold.
type Filter struct {
	Lane     string `json:"lane" yaml:"lane"`
	Category string `json:"category" yaml:"category"`
	Status   Status `json:"status" yaml:"status"`
}

// NoFilter lets every task through.
var NoFilter = Filter{Lane: All, Category: All, Status: StatusAll}

// Match reports whether task passes f given the current ticks and lane list.
func (f Filter) Match(task model.Task, ticks model.TickState, lanes []string) bool {
	if f.Lane != "" && f.Lane != All {
		lane, ok := timeline.LaneFor(task.Workstream, lanes)
		if !ok || lane != f.Lane {
			return false
		}
	}
	if f.Category != "" && f.Category != All && task.Category != model.ParseCategory(f.Category) {
		return false
	}
	done := ticks[task.Key()].Done()
	switch f.Status {
	case StatusOpen:
		return !done
	case StatusDone:
		return done
	}
	return true
}

// Apply returns the tasks passing f, in their original order.
func (f Filter) Apply(tasks []model.Task, ticks model.TickState, lanes []string) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t, ticks, lanes) {
			out = append(out, t)
		}
	}
	return out
}

// String renders the filter for status lines.
func (f Filter) String() string {
	return fmt.Sprintf("lane=%s category=%s status=%s", orAll(f.Lane), orAll(f.Category), orAll(string(f.Status)))
}

func orAll(s string) string {
	if s == "" {
		return All
	}
	return s
}

// Filtered computes progress over the tasks passing f only.
func Filtered(tasks []model.Task, ticks model.TickState, f Filter, lanes []string) Progress {
	return Compute(f.Apply(tasks, ticks, lanes), ticks)
}
