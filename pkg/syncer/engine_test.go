package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/remote"
)

// echoRemote stores saved rows back into its task list, so a reload returns
// what was last saved.
type echoRemote struct {
	mu      sync.Mutex
	tasks   []model.Task
	listErr error
	saveErr error
	lists   int
	saves   int

	// listHook runs after the response has been copied, outside the lock.
	listHook func(call int)
	// saveHook runs before rows are applied, outside the lock.
	saveHook func()
}

func newEchoRemote(names ...string) *echoRemote {
	r := &echoRemote{}
	for i, name := range names {
		r.tasks = append(r.tasks, model.Task{
			Name:       name,
			Workstream: "Data / ETL",
			Category:   model.BUILD,
			Start:      model.NewDate(2025, time.November, 17+i),
			End:        model.NewDate(2025, time.November, 24+i),
		})
	}
	return r
}

func (r *echoRemote) List(ctx context.Context) ([]model.Task, error) {
	r.mu.Lock()
	r.lists++
	call := r.lists
	err := r.listErr
	tasks := append([]model.Task(nil), r.tasks...)
	hook := r.listHook
	r.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *echoRemote) SaveTicks(ctx context.Context, rows []model.TickRow) error {
	if r.saveHook != nil {
		r.saveHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, row := range rows {
		for i := range r.tasks {
			if r.tasks[i].Key() == row.TaskID {
				r.tasks[i].Spec, r.tasks[i].Dev, r.tasks[i].Test, r.tasks[i].Ship = row.Spec, row.Dev, row.Test, row.Ship
			}
		}
	}
	return nil
}

func (r *echoRemote) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lists, r.saves
}

type memCache struct {
	mu     sync.Mutex
	tasks  []model.Task
	at     time.Time
	stores int
}

func (c *memCache) Load(ctx context.Context) ([]model.Task, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks, c.at, nil
}

func (c *memCache) Store(ctx context.Context, tasks []model.Task, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks, c.at = tasks, at
	c.stores++
	return nil
}

type memDrafts struct {
	mu    sync.Mutex
	edits model.TickState
}

func (d *memDrafts) Load() (model.TickState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.edits.Clone(), nil
}

func (d *memDrafts) Save(edits model.TickState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edits = edits.Clone()
	return nil
}

func TestSaveRoundTrip(t *testing.T) {
	r := newEchoRemote("Ingest", "Train")
	e := New(r, Options{})
	ctx := context.Background()

	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	want := model.Ticks{Spec: true, Dev: true}
	if err := e.Set("Ingest", want); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	snap := e.Snapshot()
	if got := snap.Ticks["Ingest"]; got != want {
		t.Errorf("Expected ticks %+v after reload, got %+v", want, got)
	}
	if snap.Dirty {
		t.Error("Expected no unsaved edits after a successful save")
	}
	if snap.State != Idle {
		t.Errorf("Expected state idle, got %s", snap.State)
	}
	lists, saves := r.counts()
	if lists != 2 || saves != 1 {
		t.Errorf("Expected 2 lists and 1 save, got %d and %d", lists, saves)
	}
}

func TestPollDuringSaveIsSkipped(t *testing.T) {
	r := newEchoRemote("Ingest")
	entered := make(chan struct{})
	release := make(chan struct{})
	e := New(r, Options{})
	ctx := context.Background()
	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	r.saveHook = func() {
		close(entered)
		<-release
	}
	if _, err := e.Toggle("Ingest", model.Spec); err != nil {
		t.Fatalf("Toggle() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Save(ctx) }()
	<-entered

	if err := e.Refresh(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy while saving, got %v", err)
	}
	if err := e.Save(ctx); !errors.Is(err, ErrSaveInProgress) {
		t.Errorf("Expected ErrSaveInProgress, got %v", err)
	}
	if got := e.State(); got != Saving {
		t.Errorf("Expected state saving, got %s", got)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if got := e.Snapshot().Ticks["Ingest"]; !got.Spec {
		t.Errorf("Expected Spec to survive the save, got %+v", got)
	}
}

func TestStaleReloadIsDiscarded(t *testing.T) {
	r := newEchoRemote("Ingest")
	e := New(r, Options{})
	ctx := context.Background()
	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	r.listHook = func(call int) {
		if call == 2 {
			close(entered)
			<-release
		}
	}

	refreshed := make(chan error, 1)
	go func() { refreshed <- e.Refresh(ctx) }()
	<-entered

	want := model.Ticks{Spec: true, Dev: true, Test: true}
	if err := e.Set("Ingest", want); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	close(release)
	if err := <-refreshed; err != nil {
		t.Fatalf("Expected stale refresh to return nil, got %v", err)
	}
	snap := e.Snapshot()
	if got := snap.Ticks["Ingest"]; got != want {
		t.Errorf("Expected stale reload to be discarded, got %+v", got)
	}
	if snap.State != Idle {
		t.Errorf("Expected state idle, got %s", snap.State)
	}
}

func TestFailedSaveKeepsEdits(t *testing.T) {
	r := newEchoRemote("Ingest")
	e := New(r, Options{})
	ctx := context.Background()
	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if _, err := e.Toggle("Ingest", model.Ship); err != nil {
		t.Fatalf("Toggle() failed: %v", err)
	}

	r.saveErr = &remote.TransportError{Op: "saveticks", StatusCode: 500, Status: "500 Internal Server Error", Body: "boom"}
	err := e.Save(ctx)
	var te *remote.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError, got %v", err)
	}

	snap := e.Snapshot()
	if !snap.Dirty || !snap.Ticks["Ingest"].Ship {
		t.Errorf("Expected local edit to survive failed save, got %+v", snap.Ticks["Ingest"])
	}
	if snap.LastError == nil {
		t.Error("Expected LastError to be set")
	}
	if snap.State != Idle {
		t.Errorf("Expected state idle, got %s", snap.State)
	}
	if lists, _ := r.counts(); lists != 1 {
		t.Errorf("Expected no reload after failed save, got %d lists", lists)
	}
}

func TestFailedRefreshKeepsPreviousTasks(t *testing.T) {
	r := newEchoRemote("Ingest", "Train")
	e := New(r, Options{})
	ctx := context.Background()
	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	r.listErr = &remote.ShapeError{Op: "list", Detail: "tasks is not an array"}
	if err := e.Refresh(ctx); err == nil {
		t.Fatal("Expected refresh error")
	}
	snap := e.Snapshot()
	if len(snap.Tasks) != 2 {
		t.Errorf("Expected previous 2 tasks to be kept, got %d", len(snap.Tasks))
	}
	if snap.Source != SourceRemote {
		t.Errorf("Expected source remote, got %q", snap.Source)
	}
	if remote.Kind(snap.LastError) != "shape" {
		t.Errorf("Expected shape error, got %v", snap.LastError)
	}

	r.mu.Lock()
	r.listErr = nil
	r.mu.Unlock()
	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if e.Snapshot().LastError != nil {
		t.Error("Expected LastError to clear after a good refresh")
	}
}

func TestEditsSurviveReload(t *testing.T) {
	r := newEchoRemote("Ingest")
	e := New(r, Options{})
	ctx := context.Background()
	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if _, err := e.Toggle("Ingest", model.Dev); err != nil {
		t.Fatalf("Toggle() failed: %v", err)
	}
	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	snap := e.Snapshot()
	if !snap.Ticks["Ingest"].Dev || !snap.Dirty {
		t.Errorf("Expected unsaved Dev tick to survive reload, got %+v", snap.Ticks["Ingest"])
	}
}

func TestToggleUnknownTask(t *testing.T) {
	e := New(newEchoRemote(), Options{})
	if _, err := e.Toggle("missing", model.Spec); err == nil {
		t.Error("Expected error toggling an unknown task")
	}
}

func TestCacheFallback(t *testing.T) {
	cache := &memCache{
		tasks: newEchoRemote("Cached").tasks,
		at:    time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC),
	}
	r := newEchoRemote("Live")
	r.listErr = &remote.TransportError{Op: "list", StatusCode: 502, Status: "502 Bad Gateway"}
	e := New(r, Options{Cache: cache})

	if err := e.Refresh(context.Background()); err == nil {
		t.Fatal("Expected refresh error")
	}
	snap := e.Snapshot()
	if snap.Source != SourceCache {
		t.Errorf("Expected source cache, got %q", snap.Source)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].Name != "Cached" {
		t.Errorf("Expected cached task, got %+v", snap.Tasks)
	}
	if !snap.LastRefresh.Equal(cache.at) {
		t.Errorf("Expected last refresh %s, got %s", cache.at, snap.LastRefresh)
	}

	r.mu.Lock()
	r.listErr = nil
	r.mu.Unlock()
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if cache.stores != 1 || cache.tasks[0].Name != "Live" {
		t.Errorf("Expected live tasks written to cache, got %d stores", cache.stores)
	}
}

func TestDraftsRestoredAndCleared(t *testing.T) {
	drafts := &memDrafts{edits: model.TickState{"Ingest": {Spec: true}}}
	r := newEchoRemote("Ingest")
	e := New(r, Options{Drafts: drafts})
	ctx := context.Background()

	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if !e.Snapshot().Ticks["Ingest"].Spec {
		t.Error("Expected draft tick to be restored")
	}

	if _, err := e.Toggle("Ingest", model.Dev); err != nil {
		t.Fatalf("Toggle() failed: %v", err)
	}
	if got := drafts.edits["Ingest"]; !got.Spec || !got.Dev {
		t.Errorf("Expected drafts to be written through, got %+v", got)
	}

	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if len(drafts.edits) != 0 {
		t.Errorf("Expected drafts cleared after save, got %v", drafts.edits)
	}
}

func TestDraftsForMissingTasksAreDropped(t *testing.T) {
	drafts := &memDrafts{edits: model.TickState{"Ingest": {Spec: true}, "Retired": {Ship: true}}}
	e := New(newEchoRemote("Ingest"), Options{Drafts: drafts})
	ctx := context.Background()

	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if _, ok := drafts.edits["Retired"]; ok {
		t.Errorf("Expected draft for a missing task to be dropped, got %v", drafts.edits)
	}
	if !drafts.edits["Ingest"].Spec {
		t.Errorf("Expected draft for a loaded task to stay, got %v", drafts.edits)
	}

	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if len(drafts.edits) != 0 {
		t.Errorf("Expected drafts cleared after save, got %v", drafts.edits)
	}
}

func TestSubscribe(t *testing.T) {
	e := New(newEchoRemote("Ingest"), Options{})
	events, cancel := e.Subscribe()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	var kinds []EventKind
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	want := []EventKind{EventState, EventState, EventRefreshed}
	if len(kinds) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Expected event %d to be %s, got %s", i, want[i], kinds[i])
		}
	}

	cancel()
	if _, ok := <-events; ok {
		t.Error("Expected channel to be closed after cancel")
	}
	cancel()
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	e := New(newEchoRemote("Ingest"), Options{})
	_, cancel := e.Subscribe()
	defer cancel()

	ctx := context.Background()
	if err := e.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	for i := 0; i < subscriberBuffer*2; i++ {
		if _, err := e.Toggle("Ingest", model.Spec); err != nil {
			t.Fatalf("Toggle() failed: %v", err)
		}
	}
}

func TestRunPolls(t *testing.T) {
	r := newEchoRemote("Ingest")
	e := New(r, Options{PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if lists, _ := r.counts(); lists >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected at least 3 polls")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{Idle: "idle", Refreshing: "refreshing", Saving: "saving", State(9): "State(9)"}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
