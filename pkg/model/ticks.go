package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Milestone is one of the four completion checkpoints tracked per task.
type Milestone int

const (
	Spec Milestone = iota
	Dev
	Test
	Ship
)

// Milestones lists the checkpoints in order.
var Milestones = []Milestone{Spec, Dev, Test, Ship}

// MilestonesPerTask is the number of checkpoints each task contributes.
const MilestonesPerTask = 4

func (m Milestone) String() string {
	switch m {
	case Spec:
		return "Spec"
	case Dev:
		return "Dev"
	case Test:
		return "Test"
	case Ship:
		return "Ship"
	}
	return fmt.Sprintf("Milestone(%d)", int(m))
}

// ParseMilestone resolves a milestone by name, ignoring case.
func ParseMilestone(s string) (Milestone, error) {
	for _, m := range Milestones {
		if strings.EqualFold(strings.TrimSpace(s), m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown milestone %q (want one of Spec, Dev, Test, Ship)", s)
}

// Ticks records which milestones of a task are marked complete.
type Ticks struct {
	Spec bool `json:"spec" yaml:"spec"`
	Dev  bool `json:"dev" yaml:"dev"`
	Test bool `json:"test" yaml:"test"`
	Ship bool `json:"ship" yaml:"ship"`
}

// Get returns the state of milestone m.
func (t Ticks) Get(m Milestone) bool {
	switch m {
	case Spec:
		return t.Spec
	case Dev:
		return t.Dev
	case Test:
		return t.Test
	case Ship:
		return t.Ship
	}
	return false
}

// With returns a copy of t with milestone m set to v.
func (t Ticks) With(m Milestone, v bool) Ticks {
	switch m {
	case Spec:
		t.Spec = v
	case Dev:
		t.Dev = v
	case Test:
		t.Test = v
	case Ship:
		t.Ship = v
	}
	return t
}

// Count returns the number of completed milestones.
func (t Ticks) Count() int {
	n := 0
	for _, m := range Milestones {
		if t.Get(m) {
			n++
		}
	}
	return n
}

// Done reports whether the task has shipped. The other milestones do not matter.
func (t Ticks) Done() bool {
	return t.Ship
}

// TickState maps a task key to its milestone ticks.
type TickState map[string]Ticks

// Clone returns an independent copy of s.
func (s TickState) Clone() TickState {
	out := make(TickState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// TickRow is the persisted form of one task's ticks.
type TickRow struct {
	TaskID string `json:"TaskID" yaml:"taskId"`
	Spec   Flag   `json:"Spec" yaml:"spec"`
	Dev    Flag   `json:"Dev" yaml:"dev"`
	Test   Flag   `json:"Test" yaml:"test"`
	Ship   Flag   `json:"Ship" yaml:"ship"`
}

// NewTickRow flattens ticks for key into a row.
func NewTickRow(key string, t Ticks) TickRow {
	return TickRow{TaskID: key, Spec: Flag(t.Spec), Dev: Flag(t.Dev), Test: Flag(t.Test), Ship: Flag(t.Ship)}
}

// Ticks converts the row back into a tick record.
func (r TickRow) Ticks() Ticks {
	return Ticks{Spec: bool(r.Spec), Dev: bool(r.Dev), Test: bool(r.Test), Ship: bool(r.Ship)}
}

// Flag is a milestone cell. It is read leniently and always written as 0 or 1.
type Flag bool

// ParseFlag interprets a cell value as truthy or not.
func ParseFlag(s string) bool {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "0", "false", "no", "n", "-":
		return false
	case "true", "yes", "y", "x", "✓", "done":
		return true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return false
}

// UnmarshalJSON implements the json.Unmarshaler interface for Flag.
func (f *Flag) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("failed to decode milestone flag: %w", err)
	}
	switch x := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(x)
	case float64:
		*f = x != 0
	case string:
		*f = Flag(ParseFlag(x))
	default:
		return fmt.Errorf("unsupported milestone flag value %s", string(b))
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Flag.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// MarshalYAML writes the flag as 0 or 1.
func (f Flag) MarshalYAML() (interface{}, error) {
	return f.Int(), nil
}

// Int returns 1 for a set flag and 0 otherwise.
func (f Flag) Int() int {
	if f {
		return 1
	}
	return 0
}
