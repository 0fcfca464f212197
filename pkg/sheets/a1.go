package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// sheetRange is a parsed A1 range. Only its top-left corner matters for
// addressing cells.
type sheetRange struct {
	raw   string
	sheet string
	col   int // 0-based
	row   int // 1-based
}

func parseRange(s string) (sheetRange, error) {
	r := sheetRange{raw: s, row: 1}
	ref := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		r.sheet = s[:i]
		ref = s[i+1:]
	} else {
		// A bare sheet name covers the whole sheet.
		r.sheet = s
		return r, nil
	}
	if r.sheet == "" {
		return r, fmt.Errorf("range %q has no sheet name", s)
	}
	start := strings.SplitN(ref, ":", 2)[0]
	letters := strings.TrimRight(strings.ToUpper(start), "0123456789")
	digits := start[len(letters):]
	if letters == "" {
		return r, fmt.Errorf("range %q has no start column", s)
	}
	col, err := columnIndex(letters)
	if err != nil {
		return r, fmt.Errorf("range %q: %w", s, err)
	}
	r.col = col
	if digits != "" {
		row, err := strconv.Atoi(digits)
		if err != nil || row < 1 {
			return r, fmt.Errorf("range %q has a bad start row", s)
		}
		r.row = row
	}
	return r, nil
}

// cell addresses the cell at column offset col and value-row offset i from
// the range's top-left corner.
func (r sheetRange) cell(col, i int) string {
	return fmt.Sprintf("%s!%s%d", quoteSheet(r.sheet), columnName(r.col+col), r.row+i)
}

func quoteSheet(name string) string {
	if strings.HasPrefix(name, "'") {
		return name
	}
	if strings.ContainsAny(name, " !'") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func columnIndex(letters string) (int, error) {
	n := 0
	for _, ch := range letters {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("bad column %q", letters)
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, nil
}

func columnName(i int) string {
	name := ""
	for i++; i > 0; i = (i - 1) / 26 {
		name = string(rune('A'+(i-1)%26)) + name
	}
	return name
}
