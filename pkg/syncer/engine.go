// Package syncer owns the refresh/edit/save lifecycle against the remote task
// store. An Engine is safe for concurrent use: the poll loop, user edits and
// saves may run from different goroutines.
//
// Refresh and save are serialised through a small state machine (Idle,
// Refreshing, Saving) plus a monotonic version counter. A poll that fires
// while the engine is busy is skipped, and a reload that was overtaken by a
// save is discarded when it completes instead of replacing newer state.
// Local tick edits that have not been saved survive reloads; they are cleared
// once a save that contains them succeeds.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/remote"
	"github.com/harrisonrobin/roadmap/pkg/store"
)

// DefaultPollInterval is used when Options.PollInterval is zero.
const DefaultPollInterval = 15 * time.Second

var (
	// ErrBusy is returned by Refresh when a refresh or save is already running.
	ErrBusy = errors.New("sync engine busy")
	// ErrSaveInProgress is returned by Save while another save is in flight.
	ErrSaveInProgress = errors.New("save already in progress")
)

// Remote is the authoritative task store.
type Remote interface {
	List(ctx context.Context) ([]model.Task, error)
	SaveTicks(ctx context.Context, rows []model.TickRow) error
}

// Cache keeps the last task list fetched successfully.
type Cache interface {
	Load(ctx context.Context) ([]model.Task, time.Time, error)
	Store(ctx context.Context, tasks []model.Task, fetched time.Time) error
}

// Drafts persists unsaved tick edits between runs.
type Drafts interface {
	Load() (model.TickState, error)
	Save(edits model.TickState) error
}

// Source tells where the tasks currently held came from.
type Source string

const (
	SourceNone   Source = ""
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

type Options struct {
	PollInterval time.Duration
	Logger       hclog.Logger
	Cache        Cache
	Drafts       Drafts
	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a consistent copy of the engine's observable state.
type Snapshot struct {
	State       State
	Tasks       []model.Task
	Ticks       model.TickState
	Dirty       bool
	LastError   error
	LastRefresh time.Time
	Source      Source
	Collisions  []string
	Version     uint64
}

type Engine struct {
	remote   Remote
	store    *store.TaskStore
	cache    Cache
	drafts   Drafts
	interval time.Duration
	log      hclog.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       State
	version     uint64
	lastErr     error
	lastRefresh time.Time
	source      Source

	subsMu sync.Mutex
	subs   map[chan Event]struct{}
}

// New builds an Engine around r. Saved drafts, if any, are restored
// immediately so they overlay the first reload.
func New(r Remote, opts Options) *Engine {
	e := &Engine{
		remote:   r,
		store:    store.New(),
		cache:    opts.Cache,
		drafts:   opts.Drafts,
		interval: opts.PollInterval,
		log:      opts.Logger,
		now:      opts.Now,
		subs:     make(map[chan Event]struct{}),
	}
	if e.interval <= 0 {
		e.interval = DefaultPollInterval
	}
	if e.log == nil {
		e.log = hclog.NewNullLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.drafts != nil {
		edits, err := e.drafts.Load()
		if err != nil {
			e.log.Warn("could not load draft ticks", "error", err)
		} else if len(edits) > 0 {
			e.store.Restore(edits)
			e.log.Info("restored draft ticks", "tasks", len(edits))
		}
	}
	return e
}

// Run refreshes immediately, then on every poll interval until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.poll(ctx)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

func (e *Engine) poll(ctx context.Context) {
	if err := e.Refresh(ctx); errors.Is(err, ErrBusy) {
		e.log.Debug("skipping poll", "state", e.State())
	}
}

// Refresh reloads tasks from the remote store. It returns ErrBusy when a
// refresh or save is already running, and nil when its result was discarded
// because a save started in the meantime.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Idle {
		e.mu.Unlock()
		return ErrBusy
	}
	v := e.version
	e.setStateLocked(Refreshing)
	e.mu.Unlock()
	return e.reload(ctx, v)
}

func (e *Engine) reload(ctx context.Context, version uint64) error {
	tasks, err := e.remote.List(ctx)

	var cached []model.Task
	var cachedAt time.Time
	if err != nil && e.cache != nil && e.store.Len() == 0 {
		var cerr error
		if cached, cachedAt, cerr = e.cache.Load(ctx); cerr != nil {
			e.log.Warn("could not read snapshot cache", "error", cerr)
			cached = nil
		}
	}

	e.mu.Lock()
	if e.version != version {
		e.mu.Unlock()
		e.log.Debug("discarding stale reload", "version", version)
		return nil
	}
	if err != nil {
		e.lastErr = err
		if cached != nil {
			e.store.Replace(cached)
			e.source = SourceCache
			e.lastRefresh = cachedAt
		}
		e.setStateLocked(Idle)
		e.mu.Unlock()

		e.log.Error("refresh failed", "kind", remote.Kind(err), "error", err)
		e.publish(Event{Kind: EventError, Err: err})
		if cached != nil {
			e.log.Info("loaded tasks from snapshot cache", "tasks", len(cached), "fetched", cachedAt)
			e.publish(Event{Kind: EventRefreshed})
		}
		return err
	}

	now := e.now()
	collisions := e.store.Replace(tasks)
	// The remote list is authoritative; edits for tasks it lacks can never be saved.
	orphans := e.store.DropOrphans()
	e.lastErr = nil
	e.lastRefresh = now
	e.source = SourceRemote
	e.setStateLocked(Idle)
	e.mu.Unlock()

	for _, key := range collisions {
		e.log.Warn("duplicate task key, ticks are shared", "key", key)
	}
	if len(orphans) > 0 {
		e.log.Warn("dropping edits for tasks no longer in the store", "keys", orphans)
		e.persistDrafts()
	}
	e.log.Debug("refreshed", "tasks", len(tasks))
	if e.cache != nil {
		if err := e.cache.Store(ctx, tasks, now); err != nil {
			e.log.Warn("could not write snapshot cache", "error", err)
		}
	}
	e.publish(Event{Kind: EventRefreshed})
	return nil
}

// Save sends the full tick state to the remote store and then reloads to
// reconcile. It returns once the reconciling reload has finished, with the
// error of whichever step failed. A failed save keeps local edits and does
// not reload.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.state == Saving {
		e.mu.Unlock()
		return ErrSaveInProgress
	}
	rows := e.store.Rows()
	e.version++
	v := e.version
	e.setStateLocked(Saving)
	e.mu.Unlock()

	e.log.Info("saving ticks", "rows", len(rows))
	if err := e.remote.SaveTicks(ctx, rows); err != nil {
		e.mu.Lock()
		e.lastErr = err
		if e.version == v {
			e.setStateLocked(Idle)
		}
		e.mu.Unlock()

		e.log.Error("save failed", "kind", remote.Kind(err), "error", err)
		e.publish(Event{Kind: EventError, Err: err})
		return fmt.Errorf("saving ticks: %w", err)
	}

	e.store.MarkSaved(rows)
	e.persistDrafts()

	e.mu.Lock()
	if e.version != v {
		e.mu.Unlock()
		return nil
	}
	e.setStateLocked(Refreshing)
	e.mu.Unlock()

	e.publish(Event{Kind: EventSaved})
	return e.reload(ctx, v)
}

// Toggle flips one milestone of a task and returns its new ticks.
func (e *Engine) Toggle(key string, m model.Milestone) (model.Ticks, error) {
	ticks, err := e.store.Toggle(key, m)
	if err != nil {
		return ticks, err
	}
	e.changed()
	return ticks, nil
}

// Set replaces all four milestones of a task.
func (e *Engine) Set(key string, ticks model.Ticks) error {
	if err := e.store.Set(key, ticks); err != nil {
		return err
	}
	e.changed()
	return nil
}

// Discard drops every unsaved edit.
func (e *Engine) Discard() {
	e.store.Discard()
	e.changed()
}

func (e *Engine) changed() {
	e.persistDrafts()
	e.publish(Event{Kind: EventChanged})
}

func (e *Engine) persistDrafts() {
	if e.drafts == nil {
		return
	}
	if err := e.drafts.Save(e.store.Pending()); err != nil {
		e.log.Warn("could not write draft ticks", "error", err)
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the engine's state, tasks and tick state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		State:       e.state,
		Tasks:       e.store.Tasks(),
		Ticks:       e.store.Ticks(),
		Dirty:       e.store.Dirty(),
		LastError:   e.lastErr,
		LastRefresh: e.lastRefresh,
		Source:      e.source,
		Collisions:  e.store.Collisions(),
		Version:     e.version,
	}
}

func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	e.log.Trace("state change", "from", e.state, "to", s)
	e.state = s
	e.publish(Event{Kind: EventState, State: s})
}
