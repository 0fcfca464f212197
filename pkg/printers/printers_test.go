package printers

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/roadmap/pkg/colors"
	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/overdue"
	"github.com/harrisonrobin/roadmap/pkg/progress"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

var lanes = []string{"Data / ETL", "Model / Analytics"}

func fixture() ([]model.Task, model.TickState) {
	tasks := []model.Task{
		{ID: "1", Name: "Ingest", Workstream: "Data pipelines", Category: model.BUILD,
			Start: model.NewDate(2025, time.November, 17), End: model.NewDate(2025, time.November, 24)},
		{ID: "2", Name: "Train", Workstream: "Model", Category: model.ANALYZE,
			Start: model.NewDate(2025, time.December, 1), End: model.NewDate(2026, time.January, 12)},
		{ID: "3", Name: "Orphan", Workstream: "Sales", Category: "RESEARCH"},
	}
	ticks := model.TickState{"1": {Spec: true, Dev: true, Test: true, Ship: true}}
	return tasks, ticks
}

func window() timeline.Window {
	return timeline.Window{Start: model.NewDate(2025, time.November, 17), Weeks: 26, Location: time.UTC}
}

func TestChart(t *testing.T) {
	color.NoColor = true
	tasks, _ := fixture()
	chart := timeline.Layout(tasks, window(), lanes, timeline.DefaultGeometry, time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC))
	palette, _ := colors.NewCache("")

	var buf bytes.Buffer
	Chart(&buf, chart, palette, 52)
	out := buf.String()

	for _, want := range []string{"Roadmap", "2025-11-17", "Data / ETL", "Model / Analytics", "Ingest", "Train", "11/17", "1 task(s) match no lane"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected chart to contain %q:\n%s", want, out)
		}
	}
	if !strings.ContainsRune(out, todayRune) {
		t.Errorf("Expected today marker in chart:\n%s", out)
	}
}

func TestChecklist(t *testing.T) {
	color.NoColor = true
	tasks, ticks := fixture()
	late := overdue.NewTable(tasks, ticks, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.UTC)

	var buf bytes.Buffer
	Checklist(&buf, tasks, ticks, lanes, progress.Filter{Lane: progress.All, Category: progress.All, Status: progress.StatusOpen}, late)
	out := buf.String()

	if strings.Contains(out, "Ingest") {
		t.Errorf("Expected shipped task to be filtered out:\n%s", out)
	}
	if !strings.Contains(out, "! Train") {
		t.Errorf("Expected overdue marker on Train:\n%s", out)
	}
	if !strings.Contains(out, "0/8 milestones") {
		t.Errorf("Expected filtered progress 0/8:\n%s", out)
	}
}

func TestProgress(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	Progress(&buf, "Overall", progress.Progress{Tasks: 2, Total: 8, Done: 4, Pct: 50})
	if !strings.Contains(buf.String(), "4/8 milestones  50%") {
		t.Errorf("Unexpected progress line: %q", buf.String())
	}
}

func TestExport(t *testing.T) {
	tasks, ticks := fixture()
	report := Report{
		GeneratedAt: time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC),
		Chart:       timeline.Layout(tasks, window(), lanes, timeline.DefaultGeometry, time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)),
		Progress:    progress.Compute(tasks, ticks),
		Ticks:       []model.TickRow{model.NewTickRow("1", ticks["1"])},
	}

	var jbuf bytes.Buffer
	if err := Export(&jbuf, FormatJSON, report); err != nil {
		t.Fatalf("Export(json) failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(jbuf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	chart := decoded["chart"].(map[string]interface{})
	if chart["totalDays"].(float64) != 182 {
		t.Errorf("Expected totalDays 182, got %v", chart["totalDays"])
	}

	var ybuf bytes.Buffer
	if err := Export(&ybuf, FormatYAML, report); err != nil {
		t.Fatalf("Export(yaml) failed: %v", err)
	}
	var ydoc map[string]interface{}
	if err := yaml.Unmarshal(ybuf.Bytes(), &ydoc); err != nil {
		t.Fatalf("Invalid YAML: %v", err)
	}
	if !strings.Contains(ybuf.String(), "start: \"2025-11-17\"") && !strings.Contains(ybuf.String(), "start: 2025-11-17") {
		t.Errorf("Expected civil start date in YAML:\n%s", ybuf.String())
	}
	if !strings.Contains(ybuf.String(), "ship: 1") {
		t.Errorf("Expected flags as integers in YAML:\n%s", ybuf.String())
	}

	if err := Export(&ybuf, "xml", report); err == nil {
		t.Error("Expected error for unknown format")
	}
}
