package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the kind of work a task represents. Values outside the known
// set are passed through untouched.
type Category string

const (
	BUILD   Category = "BUILD"
	ANALYZE Category = "ANALYZE"
	THINK   Category = "THINK"
	OPS     Category = "OPS"
	DOCS    Category = "DOCS"
)

// Categories lists the known categories in display order.
var Categories = []Category{BUILD, ANALYZE, THINK, OPS, DOCS}

// ParseCategory maps s onto a known category, ignoring case and surrounding
// whitespace. Unknown values are returned as-is.
func ParseCategory(s string) Category {
	trimmed := strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(trimmed, string(c)) {
			return c
		}
	}
	return Category(s)
}

// Known reports whether c is one of the fixed categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Task is a single row of the plan as delivered by the remote store.
type Task struct {
	ID               string   `json:"TaskID,omitempty"`
	Plan             string   `json:"Plan,omitempty"`
	Workstream       string   `json:"Workstream"`
	Category         Category `json:"Category"`
	Name             string   `json:"Task"`
	Start            Date     `json:"Start"`
	End              Date     `json:"End"`
	Deliverable      string   `json:"Deliverable,omitempty"`
	DefinitionOfDone string   `json:"DefinitionOfDone,omitempty"`
	Owner            string   `json:"Owner,omitempty"`
	Dependencies     string   `json:"Dependencies,omitempty"`
	Notes            string   `json:"Notes,omitempty"`
	// Milestone flags as embedded in the source record.
	Spec Flag `json:"Spec"`
	Dev  Flag `json:"Dev"`
	Test Flag `json:"Test"`
	Ship Flag `json:"Ship"`
	// Extra holds columns the model does not know about.
	Extra map[string]json.RawMessage `json:"-"`
}

// Key is the identity used to correlate a task with its tick state. An
// explicit TaskID wins over the display name.
func (t Task) Key() string {
	if id := strings.TrimSpace(t.ID); id != "" {
		return id
	}
	return t.Name
}

// Ticks returns the milestone flags embedded in the record.
func (t Task) Ticks() Ticks {
	return Ticks{Spec: bool(t.Spec), Dev: bool(t.Dev), Test: bool(t.Test), Ship: bool(t.Ship)}
}

// Placed reports whether the task has both dates and can be drawn.
func (t Task) Placed() bool {
	return !t.Start.IsZero() && !t.End.IsZero()
}

var knownFields = map[string]bool{
	"TaskID": true, "Plan": true, "Workstream": true, "Category": true, "Task": true,
	"Start": true, "End": true, "Deliverable": true, "DefinitionOfDone": true,
	"Owner": true, "Dependencies": true, "Notes": true,
	"Spec": true, "Dev": true, "Test": true, "Ship": true,
}

type taskAlias Task

// UnmarshalJSON decodes the known columns and keeps every other column in Extra.
func (t *Task) UnmarshalJSON(b []byte) error {
	var a struct {
		taskAlias
		// Spreadsheet-backed stores send numeric and boolean cells unquoted.
		ID               json.RawMessage `json:"TaskID,omitempty"`
		Plan             json.RawMessage `json:"Plan,omitempty"`
		Workstream       json.RawMessage `json:"Workstream"`
		Category         json.RawMessage `json:"Category"`
		Name             json.RawMessage `json:"Task"`
		Deliverable      json.RawMessage `json:"Deliverable,omitempty"`
		DefinitionOfDone json.RawMessage `json:"DefinitionOfDone,omitempty"`
		Owner            json.RawMessage `json:"Owner,omitempty"`
		Dependencies     json.RawMessage `json:"Dependencies,omitempty"`
		Notes            json.RawMessage `json:"Notes,omitempty"`
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return fmt.Errorf("failed to decode task: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed to decode task columns: %w", err)
	}

	task := Task(a.taskAlias)
	task.ID = rawString(a.ID)
	task.Plan = rawString(a.Plan)
	task.Workstream = rawString(a.Workstream)
	task.Category = ParseCategory(rawString(a.Category))
	task.Name = rawString(a.Name)
	task.Deliverable = rawString(a.Deliverable)
	task.DefinitionOfDone = rawString(a.DefinitionOfDone)
	task.Owner = rawString(a.Owner)
	task.Dependencies = rawString(a.Dependencies)
	task.Notes = rawString(a.Notes)
	for k, v := range raw {
		if knownFields[k] {
			continue
		}
		if task.Extra == nil {
			task.Extra = make(map[string]json.RawMessage)
		}
		task.Extra[k] = v
	}
	*t = task
	return nil
}

// MarshalJSON writes the known columns followed by any extra columns.
func (t Task) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(taskAlias(t))
	if err != nil {
		return nil, err
	}
	if len(t.Extra) == 0 {
		return b, nil
	}
	merged := make(map[string]json.RawMessage, len(t.Extra)+len(knownFields))
	for k, v := range t.Extra {
		merged[k] = v
	}
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}
