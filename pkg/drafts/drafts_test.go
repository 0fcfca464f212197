package drafts

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

func TestLoadEmpty(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "drafts"), nil)
	edits, err := s.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(edits) != 0 {
		t.Errorf("Expected no drafts, got %v", edits)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drafts")
	s := Open(dir, nil)

	edits := model.TickState{
		"Data / ETL ingest": {Spec: true},
		"42":                {Spec: true, Dev: true, Ship: true},
	}
	if err := s.Save(edits); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := Open(dir, nil).Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 drafts, got %d", len(got))
	}
	for key, want := range edits {
		if got[key] != want {
			t.Errorf("Expected %q to be %+v, got %+v", key, want, got[key])
		}
	}
}

func TestSaveRemovesStale(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "drafts"), nil)
	if err := s.Save(model.TickState{"a": {Spec: true}, "b": {Dev: true}}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s.Save(model.TickState{"b": {Dev: true, Test: true}}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if _, ok := got["a"]; ok {
		t.Error("Expected draft for a to be removed")
	}
	if want := (model.Ticks{Dev: true, Test: true}); got["b"] != want {
		t.Errorf("Expected b to be %+v, got %+v", want, got["b"])
	}

	if err := s.Save(model.TickState{}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if got, _ := s.Load(); len(got) != 0 {
		t.Errorf("Expected drafts to be cleared, got %v", got)
	}
}

func TestLoadSkipsUnreadableDraft(t *testing.T) {
	var logs bytes.Buffer
	log := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Warn})
	s := Open(filepath.Join(t.TempDir(), "drafts"), log)
	if err := s.Save(model.TickState{"good": {Ship: true}}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s.d.Write(toFileKey("bad"), []byte("{")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(got) != 1 || !got["good"].Ship {
		t.Errorf("Expected only the good draft, got %v", got)
	}
	if !strings.Contains(logs.String(), "skipping unreadable draft") {
		t.Errorf("Expected a warning in the log, got %q", logs.String())
	}
}
