package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/overdue"
	"github.com/harrisonrobin/roadmap/pkg/progress"
	"github.com/harrisonrobin/roadmap/pkg/remote"
	"github.com/harrisonrobin/roadmap/pkg/store"
	"github.com/harrisonrobin/roadmap/pkg/syncer"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

type stateResponse struct {
	State       string          `json:"state"`
	Source      string          `json:"source"`
	Dirty       bool            `json:"dirty"`
	LastRefresh string          `json:"lastRefresh,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   string          `json:"errorKind,omitempty"`
	Collisions  []string        `json:"collisions,omitempty"`
	Tasks       []model.Task    `json:"tasks"`
	Ticks       []model.TickRow `json:"ticks"`
}

func (s *Server) handleState(c *gin.Context) {
	snap := s.engine.Snapshot()
	resp := stateResponse{
		State:      snap.State.String(),
		Source:     string(snap.Source),
		Dirty:      snap.Dirty,
		Collisions: snap.Collisions,
		Tasks:      snap.Tasks,
		Ticks:      make([]model.TickRow, 0, len(snap.Tasks)),
	}
	if resp.Tasks == nil {
		resp.Tasks = []model.Task{}
	}
	if !snap.LastRefresh.IsZero() {
		resp.LastRefresh = snap.LastRefresh.Format("2006-01-02T15:04:05Z07:00")
	}
	if snap.LastError != nil {
		resp.Error = snap.LastError.Error()
		resp.ErrorKind = remote.Kind(snap.LastError)
	}
	seen := make(map[string]bool)
	for _, t := range snap.Tasks {
		if key := t.Key(); !seen[key] {
			seen[key] = true
			resp.Ticks = append(resp.Ticks, model.NewTickRow(key, snap.Ticks[key]))
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleChart(c *gin.Context) {
	snap := s.engine.Snapshot()
	chart := timeline.Layout(snap.Tasks, s.opts.Window, s.opts.Lanes, s.opts.Geometry, s.opts.Now())
	c.JSON(http.StatusOK, chart)
}

func (s *Server) handleProgress(c *gin.Context) {
	status, err := progress.ParseStatus(c.DefaultQuery("status", string(progress.StatusAll)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f := progress.Filter{
		Lane:     c.DefaultQuery("lane", progress.All),
		Category: c.DefaultQuery("category", progress.All),
		Status:   status,
	}

	snap := s.engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"overall":  progress.Compute(snap.Tasks, snap.Ticks),
		"filtered": progress.Filtered(snap.Tasks, snap.Ticks, f, s.opts.Lanes),
		"filter":   f,
	})
}

func (s *Server) handleOverdue(c *gin.Context) {
	snap := s.engine.Snapshot()
	entries := overdue.Sweep(snap.Tasks, snap.Ticks, s.opts.Now(), s.opts.Window.Location)
	if entries == nil {
		entries = []overdue.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"overdue": entries})
}

type ticksRequest struct {
	Key       string       `json:"key" binding:"required"`
	Milestone string       `json:"milestone"`
	Ticks     *model.Ticks `json:"ticks"`
}

func (s *Server) handleTicks(c *gin.Context) {
	var req ticksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch {
	case req.Ticks != nil:
		if err := s.engine.Set(req.Key, *req.Ticks); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": req.Key, "ticks": *req.Ticks})
	case req.Milestone != "":
		m, err := model.ParseMilestone(req.Milestone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ticks, err := s.engine.Toggle(req.Key, m)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": req.Key, "ticks": ticks})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either milestone or ticks is required"})
	}
}

func (s *Server) handleSave(c *gin.Context) {
	if err := s.engine.Save(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if err := s.engine.Refresh(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrUnknownTask):
		status = http.StatusNotFound
	case errors.Is(err, syncer.ErrBusy), errors.Is(err, syncer.ErrSaveInProgress):
		status = http.StatusConflict
	case remote.Kind(err) != "unknown":
		status = http.StatusBadGateway
	}
	s.log.Warn("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(status, gin.H{"error": err.Error(), "kind": remote.Kind(err)})
}
