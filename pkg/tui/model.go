// Package tui is the interactive terminal front end: a Gantt chart view and
// a milestone checklist, both driven by a running sync engine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harrisonrobin/roadmap/pkg/colors"
	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/progress"
	"github.com/harrisonrobin/roadmap/pkg/syncer"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

// Engine is the part of syncer.Engine the UI drives.
type Engine interface {
	Snapshot() syncer.Snapshot
	Toggle(key string, m model.Milestone) (model.Ticks, error)
	Save(ctx context.Context) error
	Refresh(ctx context.Context) error
	Subscribe() (<-chan syncer.Event, func())
}

type Options struct {
	Window   timeline.Window
	Lanes    []string
	Geometry timeline.Geometry
	Palette  *colors.Cache
	Now      func() time.Time
}

const (
	viewChart = iota
	viewChecklist
	viewCount
)

type Model struct {
	ctx    context.Context
	engine Engine
	opts   Options
	events <-chan syncer.Event

	view   int
	cursor int
	filter progress.Filter
	snap   syncer.Snapshot
	width  int
	height int
	status string
}

type eventMsg syncer.Event

type snapshotMsg syncer.Snapshot

type saveDoneMsg struct{ err error }

type refreshDoneMsg struct{ err error }

// New builds the UI model. The engine's poll loop is expected to be running
// already; the model only reacts to its events.
func New(ctx context.Context, e Engine, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Palette == nil {
		opts.Palette, _ = colors.NewCache("")
	}
	events, _ := e.Subscribe()
	return Model{
		ctx:    ctx,
		engine: e,
		opts:   opts,
		events: events,
		filter: progress.NoFilter,
		snap:   e.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.loadSnapshot())
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m Model) loadSnapshot() tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		return snapshotMsg(e.Snapshot())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		if msg.Kind == syncer.EventError && msg.Err != nil {
			m.status = "error: " + msg.Err.Error()
		}
		return m, tea.Batch(m.waitForEvent(), m.loadSnapshot())

	case snapshotMsg:
		m.snap = syncer.Snapshot(msg)
		m.clampCursor()
		return m, nil

	case saveDoneMsg:
		switch {
		case errors.Is(msg.err, syncer.ErrSaveInProgress):
			m.status = "save already in progress"
		case msg.err != nil:
			m.status = "save failed: " + msg.err.Error()
		default:
			m.status = "saved"
		}
		return m, m.loadSnapshot()

	case refreshDoneMsg:
		switch {
		case errors.Is(msg.err, syncer.ErrBusy):
			m.status = "busy, try again shortly"
		case msg.err != nil:
			m.status = "refresh failed: " + msg.err.Error()
		default:
			m.status = "refreshed"
		}
		return m, m.loadSnapshot()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.view = (m.view + 1) % viewCount
	case "shift+tab":
		m.view = (m.view - 1 + viewCount) % viewCount
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		m.cursor++
		m.clampCursor()
	case "1", "2", "3", "4":
		return m.toggle(model.Milestones[msg.String()[0]-'1'])
	case "s":
		if m.snap.State == syncer.Saving {
			m.status = "save already in progress"
			return m, nil
		}
		m.status = "saving..."
		return m, m.save()
	case "r":
		m.status = "refreshing..."
		return m, m.refresh()
	case "l":
		m.filter.Lane = cycle(m.filter.Lane, m.opts.Lanes)
		m.clampCursor()
	case "c":
		m.filter.Category = cycle(m.filter.Category, categoryNames())
		m.clampCursor()
	case "f":
		m.filter.Status = progress.Status(cycle(string(m.filter.Status), []string{string(progress.StatusOpen), string(progress.StatusDone)}))
		m.clampCursor()
	}
	return m, nil
}

func (m Model) toggle(ms model.Milestone) (tea.Model, tea.Cmd) {
	if m.view != viewChecklist {
		return m, nil
	}
	rows := m.visible()
	if m.cursor >= len(rows) {
		return m, nil
	}
	key := rows[m.cursor].Key()
	if _, err := m.engine.Toggle(key, ms); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = fmt.Sprintf("%s %s toggled", key, ms)
	return m, m.loadSnapshot()
}

func (m Model) save() tea.Cmd {
	ctx, e := m.ctx, m.engine
	return func() tea.Msg {
		return saveDoneMsg{err: e.Save(ctx)}
	}
}

func (m Model) refresh() tea.Cmd {
	ctx, e := m.ctx, m.engine
	return func() tea.Msg {
		return refreshDoneMsg{err: e.Refresh(ctx)}
	}
}

// visible returns the checklist rows under the current filter.
func (m Model) visible() []model.Task {
	return m.filter.Apply(m.snap.Tasks, m.snap.Ticks, m.opts.Lanes)
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// cycle steps through all, then each option in turn, then back to all.
func cycle(current string, options []string) string {
	if current == "" || current == progress.All {
		if len(options) == 0 {
			return progress.All
		}
		return options[0]
	}
	for i, o := range options {
		if o == current && i+1 < len(options) {
			return options[i+1]
		}
	}
	return progress.All
}

func categoryNames() []string {
	out := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		out[i] = string(c)
	}
	return out
}
