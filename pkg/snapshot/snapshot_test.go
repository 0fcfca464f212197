package snapshot

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "snapshot.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLoadEmpty(t *testing.T) {
	c := openTemp(t)
	tasks, fetched, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if tasks != nil || !fetched.IsZero() {
		t.Errorf("Expected empty cache, got %d tasks at %s", len(tasks), fetched)
	}
}

func TestStoreAndLoad(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	var extra model.Task
	if err := json.Unmarshal([]byte(`{"TaskID":"7","Task":"Ingest","Workstream":"Data / ETL","Category":"BUILD","Start":"2025-11-17","End":"2025-11-24","Spec":1,"Priority":"P1"}`), &extra); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	tasks := []model.Task{
		extra,
		{Name: "Train", Category: model.ANALYZE, Start: model.NewDate(2025, time.December, 1)},
	}
	fetched := time.Date(2025, 11, 20, 9, 30, 0, 0, time.UTC)

	if err := c.Store(ctx, tasks, fetched); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	got, at, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !at.Equal(fetched) {
		t.Errorf("Expected fetch time %s, got %s", fetched, at)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(got))
	}
	if got[0].Key() != "7" || !bool(got[0].Spec) {
		t.Errorf("Unexpected first task: %+v", got[0])
	}
	if _, ok := got[0].Extra["Priority"]; !ok {
		t.Error("Expected extra column to survive the cache")
	}
	if got[1].Name != "Train" || !got[1].Start.Equal(tasks[1].Start.Time) {
		t.Errorf("Unexpected second task: %+v", got[1])
	}

	if err := c.Store(ctx, tasks[1:], fetched.Add(time.Hour)); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	got, at, err = c.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(got) != 1 || !at.Equal(fetched.Add(time.Hour)) {
		t.Errorf("Expected replaced snapshot, got %d tasks at %s", len(got), at)
	}
}
