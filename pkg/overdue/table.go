package overdue

import (
	"sort"
	"time"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/util"
)

// Marker is prefixed to the name of an overdue task in listings.
const Marker = "! "

type Entry struct {
	Key      string     `json:"key" yaml:"key"`
	Name     string     `json:"name" yaml:"name"`
	End      model.Date `json:"end" yaml:"end"`
	DaysLate int        `json:"days_late" yaml:"days_late"`
}

// Table indexes the overdue tasks of one sweep by key.
type Table struct {
	Entries map[string]Entry `json:"entries"`
}

// Sweep returns the tasks whose End date is before today (in loc) and that
// are not shipped, oldest first. Tasks without an End date are never overdue.
func Sweep(tasks []model.Task, ticks model.TickState, today time.Time, loc *time.Location) []Entry {
	day := util.TruncateDay(util.WallClock(today, loc))

	var swept []Entry
	seen := make(map[string]bool)
	for _, t := range tasks {
		key := t.Key()
		if t.End.IsZero() || seen[key] {
			continue
		}
		if ticks[key].Done() {
			continue
		}
		end := t.End.Civil(loc)
		if end.Before(day) {
			seen[key] = true
			swept = append(swept, Entry{
				Key:      key,
				Name:     t.Name,
				End:      end,
				DaysLate: util.FloorDays(end.Time, day),
			})
		}
	}
	sort.SliceStable(swept, func(i, j int) bool {
		return swept[i].End.Before(swept[j].End.Time)
	})
	return swept
}

// NewTable sweeps tasks and indexes the result.
func NewTable(tasks []model.Task, ticks model.TickState, today time.Time, loc *time.Location) *Table {
	t := &Table{Entries: make(map[string]Entry)}
	for _, e := range Sweep(tasks, ticks, today, loc) {
		t.Entries[e.Key] = e
	}
	return t
}

// Is reports whether the task with key is overdue.
func (t *Table) Is(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Entries[key]
	return ok
}

// Label returns name with the overdue marker when key is overdue.
func (t *Table) Label(key, name string) string {
	if t.Is(key) {
		return Marker + name
	}
	return name
}
