package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/remote"
	"github.com/harrisonrobin/roadmap/pkg/store"
	"github.com/harrisonrobin/roadmap/pkg/syncer"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

// MockEngine implements Engine for testing
type MockEngine struct {
	snap       syncer.Snapshot
	SaveFunc   func(ctx context.Context) error
	RefreshErr error
}

func newMockEngine() *MockEngine {
	return &MockEngine{snap: syncer.Snapshot{
		State:  syncer.Idle,
		Source: syncer.SourceRemote,
		Tasks: []model.Task{
			{ID: "1", Name: "Ingest", Workstream: "Data", Category: model.BUILD,
				Start: model.NewDate(2025, time.November, 17), End: model.NewDate(2025, time.November, 24)},
			{ID: "2", Name: "Train", Workstream: "Model", Category: model.ANALYZE,
				Start: model.NewDate(2025, time.December, 1), End: model.NewDate(2025, time.December, 22)},
		},
		Ticks: model.TickState{"1": {Spec: true, Dev: true, Test: true, Ship: true}},
	}}
}

func (m *MockEngine) Snapshot() syncer.Snapshot { return m.snap }

func (m *MockEngine) Toggle(key string, ms model.Milestone) (model.Ticks, error) {
	tk, ok := m.snap.Ticks[key]
	if !ok && key != "2" {
		return model.Ticks{}, fmt.Errorf("toggle %q: %w", key, store.ErrUnknownTask)
	}
	tk = tk.With(ms, !tk.Get(ms))
	m.snap.Ticks[key] = tk
	return tk, nil
}

func (m *MockEngine) Set(key string, ticks model.Ticks) error {
	m.snap.Ticks[key] = ticks
	return nil
}

func (m *MockEngine) Save(ctx context.Context) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx)
	}
	return nil
}

func (m *MockEngine) Refresh(ctx context.Context) error { return m.RefreshErr }

func newTestServer(e *MockEngine) *Server {
	return NewServer(e, Options{
		Window:   timeline.Window{Start: model.NewDate(2025, time.November, 17), Weeks: 26, Location: time.UTC},
		Lanes:    []string{"Data / ETL", "Model / Analytics"},
		Geometry: timeline.DefaultGeometry,
		Now:      func() time.Time { return time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC) },
	})
}

func do(t *testing.T, s *Server, method, target string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Invalid JSON from %s %s: %v (%s)", method, target, err, w.Body.String())
	}
	return w, out
}

func TestHandleState(t *testing.T) {
	s := newTestServer(newMockEngine())
	w, out := do(t, s, http.MethodGet, "/api/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if out["state"] != "idle" || out["source"] != "remote" {
		t.Errorf("Unexpected state response: %v", out)
	}
	ticks := out["ticks"].([]interface{})
	if len(ticks) != 2 {
		t.Fatalf("Expected 2 tick rows, got %d", len(ticks))
	}
	first := ticks[0].(map[string]interface{})
	if first["TaskID"] != "1" || first["Ship"].(float64) != 1 {
		t.Errorf("Unexpected first tick row: %v", first)
	}
}

func TestHandleStateError(t *testing.T) {
	e := newMockEngine()
	e.snap.LastError = &remote.RemoteError{Op: "list", Message: "sheet locked"}
	_, out := do(t, newTestServer(e), http.MethodGet, "/api/state", nil)
	if out["errorKind"] != "remote" {
		t.Errorf("Expected errorKind remote, got %v", out["errorKind"])
	}
}

func TestHandleChart(t *testing.T) {
	_, out := do(t, newTestServer(newMockEngine()), http.MethodGet, "/api/chart", nil)
	if out["totalDays"].(float64) != 182 {
		t.Errorf("Expected totalDays 182, got %v", out["totalDays"])
	}
	lanes := out["lanes"].([]interface{})
	if len(lanes) != 2 {
		t.Fatalf("Expected 2 lanes, got %d", len(lanes))
	}
	bars := lanes[0].(map[string]interface{})["bars"].([]interface{})
	if bar := bars[0].(map[string]interface{}); bar["leftPct"].(float64) != 0 {
		t.Errorf("Expected first bar at 0%%, got %v", bar["leftPct"])
	}
}

func TestHandleProgress(t *testing.T) {
	s := newTestServer(newMockEngine())

	_, out := do(t, s, http.MethodGet, "/api/progress?status=open", nil)
	overall := out["overall"].(map[string]interface{})
	if overall["total"].(float64) != 8 || overall["done"].(float64) != 4 || overall["pct"].(float64) != 50 {
		t.Errorf("Unexpected overall progress: %v", overall)
	}
	filtered := out["filtered"].(map[string]interface{})
	if filtered["tasks"].(float64) != 1 || filtered["done"].(float64) != 0 {
		t.Errorf("Unexpected filtered progress: %v", filtered)
	}

	w, _ := do(t, s, http.MethodGet, "/api/progress?status=maybe", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad status, got %d", w.Code)
	}
}

func TestHandleOverdue(t *testing.T) {
	_, out := do(t, newTestServer(newMockEngine()), http.MethodGet, "/api/overdue", nil)
	entries := out["overdue"].([]interface{})
	if len(entries) != 0 {
		t.Errorf("Expected nothing overdue on 2025-12-10, got %v", entries)
	}
}

func TestHandleTicks(t *testing.T) {
	e := newMockEngine()
	s := newTestServer(e)

	w, _ := do(t, s, http.MethodPost, "/api/ticks", map[string]string{"key": "2", "milestone": "dev"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !e.snap.Ticks["2"].Dev {
		t.Error("Expected Dev to be toggled on task 2")
	}

	w, _ = do(t, s, http.MethodPost, "/api/ticks", map[string]interface{}{"key": "2", "ticks": map[string]bool{"Spec": true}})
	if w.Code != http.StatusOK || e.snap.Ticks["2"] != (model.Ticks{Spec: true}) {
		t.Errorf("Expected ticks to be set, got %d %+v", w.Code, e.snap.Ticks["2"])
	}

	w, _ = do(t, s, http.MethodPost, "/api/ticks", map[string]string{"key": "missing", "milestone": "Spec"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown task, got %d", w.Code)
	}

	w, _ = do(t, s, http.MethodPost, "/api/ticks", map[string]string{"key": "2", "milestone": "Deploy"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown milestone, got %d", w.Code)
	}

	w, _ = do(t, s, http.MethodPost, "/api/ticks", map[string]string{"milestone": "Spec"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without key, got %d", w.Code)
	}
}

func TestHandleSave(t *testing.T) {
	e := newMockEngine()
	s := newTestServer(e)

	w, _ := do(t, s, http.MethodPost, "/api/save", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	e.SaveFunc = func(ctx context.Context) error { return syncer.ErrSaveInProgress }
	w, _ = do(t, s, http.MethodPost, "/api/save", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w.Code)
	}

	e.SaveFunc = func(ctx context.Context) error {
		return &remote.TransportError{Op: "saveticks", StatusCode: 500, Status: "500 Internal Server Error"}
	}
	w, out := do(t, s, http.MethodPost, "/api/save", nil)
	if w.Code != http.StatusBadGateway || out["kind"] != "transport" {
		t.Errorf("Expected 502 transport error, got %d %v", w.Code, out)
	}
}

func TestHandleRefreshBusy(t *testing.T) {
	e := newMockEngine()
	e.RefreshErr = syncer.ErrBusy
	w, _ := do(t, newTestServer(e), http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w.Code)
	}
}
