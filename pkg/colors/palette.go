// Package colors assigns display colours to task categories for the terminal
// printers and the interactive UI.
package colors

import (
	"github.com/fatih/color"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

// NoCategory is the grey slot used for tasks without a category.
const NoCategory = 0

type swatch struct {
	hex  string
	attr color.Attribute
}

var palette = []swatch{
	{"#8A8A8A", color.FgHiBlack},
	{"#4C78A8", color.FgBlue},    // BUILD
	{"#F58518", color.FgYellow},  // ANALYZE
	{"#B279A2", color.FgMagenta}, // THINK
	{"#E45756", color.FgRed},     // OPS
	{"#54A24B", color.FgGreen},   // DOCS
	{"#72B7B2", color.FgCyan},
	{"#EECA3B", color.FgHiYellow},
	{"#9D755D", color.FgHiRed},
	{"#FF9DA6", color.FgHiMagenta},
	{"#79C2F2", color.FgHiBlue},
	{"#88D27A", color.FgHiGreen},
}

var fixed = map[model.Category]int{
	model.BUILD:   1,
	model.ANALYZE: 2,
	model.THINK:   3,
	model.OPS:     4,
	model.DOCS:    5,
}

const firstSpare = 6

// Hex returns the #RRGGBB colour of a slot.
func Hex(slot int) string {
	return palette[clamp(slot)].hex
}

// Attribute returns the terminal colour of a slot.
func Attribute(slot int) color.Attribute {
	return palette[clamp(slot)].attr
}

// Color returns a fatih/color printer for a slot.
func Color(slot int) *color.Color {
	return color.New(Attribute(slot))
}

func clamp(slot int) int {
	if slot < 0 || slot >= len(palette) {
		return NoCategory
	}
	return slot
}
