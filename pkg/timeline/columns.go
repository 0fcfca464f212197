package timeline

import "math"

// Columns maps the bar onto a row of cols character cells, clipped to the
// window. ok is false when the bar lies entirely outside it.
func (b Bar) Columns(cols int) (from, to int, ok bool) {
	if cols <= 0 {
		return 0, 0, false
	}
	from = int(math.Floor(b.LeftPct * float64(cols) / 100))
	to = int(math.Ceil((b.LeftPct + b.WidthPct) * float64(cols) / 100))
	if to <= from {
		to = from + 1
	}
	if to <= 0 || from >= cols {
		return 0, 0, false
	}
	if from < 0 {
		from = 0
	}
	if to > cols {
		to = cols
	}
	return from, to, true
}

// Column returns the cell of a row of cols cells holding the marker.
func (m TodayMarker) Column(cols int) int {
	c := int(math.Floor(m.Fraction * float64(cols)))
	if c >= cols {
		c = cols - 1
	}
	if c < 0 {
		c = 0
	}
	return c
}
