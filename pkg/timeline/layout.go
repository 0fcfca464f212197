// Package timeline maps tasks onto a fixed, week-scaled window: lane
// membership, bar geometry as percentages of the window, row stacking and
// the position of today's marker.
//
// Layout is a pure function of its inputs. Bars that start before the window
// or run past its end get geometry outside [0,100]; clipping is left to the
// renderer.
package timeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/util"
)

// Window is the calendar span the chart covers.
type Window struct {
	Start    model.Date
	Weeks    int
	Location *time.Location
}

// End is the first day after the window.
func (w Window) End() model.Date {
	return util.AddWeeks(w.start(), w.Weeks)
}

// TotalDays is the number of whole days in the window.
func (w Window) TotalDays() int {
	return util.CeilDays(w.start().Time, w.End().Time)
}

// WeekCount is the number of week columns needed to cover the window.
func (w Window) WeekCount() int {
	return int(math.Ceil(float64(w.TotalDays()) / 7))
}

func (w Window) start() model.Date {
	return w.Start.Civil(w.Location)
}

// Geometry controls vertical stacking inside a lane.
type Geometry struct {
	RowHeight int `json:"rowHeight" yaml:"rowHeight"`
	MinHeight int `json:"minHeight" yaml:"minHeight"`
	Padding   int `json:"padding" yaml:"padding"`
}

// DefaultGeometry is used when no geometry is configured.
var DefaultGeometry = Geometry{RowHeight: 26, MinHeight: 36, Padding: 10}

// Bar is one task drawn inside a lane.
type Bar struct {
	Key      string         `json:"key" yaml:"key"`
	Name     string         `json:"name" yaml:"name"`
	Category model.Category `json:"category" yaml:"category"`
	Start    model.Date     `json:"start" yaml:"start"`
	End      model.Date     `json:"end" yaml:"end"`
	Row      int            `json:"row" yaml:"row"`
	Top      int            `json:"top" yaml:"top"`
	LeftPct  float64        `json:"leftPct" yaml:"leftPct"`
	WidthPct float64        `json:"widthPct" yaml:"widthPct"`
}

// Lane is a horizontal bucket of bars.
type Lane struct {
	Label  string `json:"label" yaml:"label"`
	Height int    `json:"height" yaml:"height"`
	Bars   []Bar  `json:"bars" yaml:"bars"`
}

// TodayMarker locates today inside the window.
type TodayMarker struct {
	Offset   int     `json:"offset" yaml:"offset"`
	Fraction float64 `json:"fraction" yaml:"fraction"`
	// Visible is false when today lies outside the window and Offset was clamped.
	Visible bool `json:"visible" yaml:"visible"`
}

// WeekTick is a column header.
type WeekTick struct {
	Index   int        `json:"index" yaml:"index"`
	Start   model.Date `json:"start" yaml:"start"`
	LeftPct float64    `json:"leftPct" yaml:"leftPct"`
}

// Chart is the complete geometry for one render.
type Chart struct {
	Start     model.Date  `json:"start" yaml:"start"`
	End       model.Date  `json:"end" yaml:"end"`
	TotalDays int         `json:"totalDays" yaml:"totalDays"`
	WeekCount int         `json:"weekCount" yaml:"weekCount"`
	Weeks     []WeekTick  `json:"weeks" yaml:"weeks"`
	Lanes     []Lane      `json:"lanes" yaml:"lanes"`
	Today     TodayMarker `json:"today" yaml:"today"`
	// Unassigned holds keys of tasks whose workstream matched no lane.
	Unassigned []string `json:"unassigned,omitempty" yaml:"unassigned,omitempty"`
	// Unplaced holds keys of tasks in a lane that lack a start or end date.
	Unplaced []string `json:"unplaced,omitempty" yaml:"unplaced,omitempty"`
}

// LaneFor returns the first lane whose label starts with the first token of
// workstream. An empty workstream belongs to no lane.
func LaneFor(workstream string, lanes []string) (string, bool) {
	token := util.FirstToken(workstream)
	if token == "" {
		return "", false
	}
	for _, lane := range lanes {
		if strings.HasPrefix(lane, token) {
			return lane, true
		}
	}
	return "", false
}

// Layout computes the chart for tasks within w. today is an instant; its
// wall clock in the window's location decides the marker position.
func Layout(tasks []model.Task, w Window, lanes []string, g Geometry, today time.Time) Chart {
	start := w.start()
	total := w.TotalDays()

	chart := Chart{
		Start:     start,
		End:       w.End(),
		TotalDays: total,
		WeekCount: w.WeekCount(),
		Lanes:     make([]Lane, 0, len(lanes)),
		Today:     todayMarker(start, total, today, w.Location),
	}

	for i := 0; i < chart.WeekCount; i++ {
		ws := model.Date{Time: start.AddDate(0, 0, 7*i)}
		chart.Weeks = append(chart.Weeks, WeekTick{Index: i, Start: ws, LeftPct: pct(7*i, total)})
	}

	members := make(map[string][]model.Task, len(lanes))
	for _, t := range tasks {
		lane, ok := LaneFor(t.Workstream, lanes)
		if !ok {
			chart.Unassigned = append(chart.Unassigned, t.Key())
			continue
		}
		if !t.Placed() {
			chart.Unplaced = append(chart.Unplaced, t.Key())
			continue
		}
		members[lane] = append(members[lane], t)
	}

	for _, label := range lanes {
		laneTasks := members[label]
		sort.SliceStable(laneTasks, func(i, j int) bool {
			return laneTasks[i].Start.Civil(w.Location).Before(laneTasks[j].Start.Civil(w.Location).Time)
		})

		lane := Lane{Label: label, Height: laneHeight(len(laneTasks), g), Bars: make([]Bar, 0, len(laneTasks))}
		for i, t := range laneTasks {
			lane.Bars = append(lane.Bars, barFor(t, i, start, total, g, w.Location))
		}
		chart.Lanes = append(chart.Lanes, lane)
		// A label listed twice only collects its tasks once.
		delete(members, label)
	}

	return chart
}

func barFor(t model.Task, row int, windowStart model.Date, total int, g Geometry, loc *time.Location) Bar {
	s := t.Start.Civil(loc)
	e := t.End.Civil(loc)

	left := util.CeilDays(windowStart.Time, s.Time)
	span := util.CeilDays(s.Time, e.Time)
	if span < 1 {
		span = 1
	}

	return Bar{
		Key:      t.Key(),
		Name:     t.Name,
		Category: t.Category,
		Start:    s,
		End:      e,
		Row:      row,
		Top:      row * g.RowHeight,
		LeftPct:  pct(left, total),
		WidthPct: pct(span, total),
	}
}

func laneHeight(n int, g Geometry) int {
	h := n*g.RowHeight + g.Padding
	if h < g.MinHeight {
		return g.MinHeight
	}
	return h
}

func todayMarker(start model.Date, total int, today time.Time, loc *time.Location) TodayMarker {
	offset := util.FloorDays(start.Time, util.WallClock(today, loc))
	m := TodayMarker{Offset: offset, Visible: offset >= 0 && offset <= total}
	if m.Offset < 0 {
		m.Offset = 0
	}
	if m.Offset > total {
		m.Offset = total
	}
	if total > 0 {
		m.Fraction = float64(m.Offset) / float64(total)
	}
	return m
}

// pct expresses days as a percentage of total. An empty window yields 0.
func pct(days, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(days) / float64(total) * 100
}
