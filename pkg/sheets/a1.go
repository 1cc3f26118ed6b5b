package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// cellRange is a parsed A1 range. Columns and rows are 1-based; a zero end
// means the range is open in that direction.
type cellRange struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

func parseRange(a1 string) (cellRange, error) {
	sheet, cells, ok := strings.Cut(a1, "!")
	if !ok || sheet == "" {
		return cellRange{}, fmt.Errorf("invalid range %q: missing sheet name", a1)
	}
	sheet = strings.Trim(sheet, "'")

	start, end, isSpan := strings.Cut(cells, ":")
	r := cellRange{Sheet: sheet}

	var err error
	if r.StartCol, r.StartRow, err = parseCell(start); err != nil {
		return cellRange{}, fmt.Errorf("invalid range %q: %w", a1, err)
	}
	if r.StartCol == 0 {
		return cellRange{}, fmt.Errorf("invalid range %q: missing column", a1)
	}
	if r.StartRow == 0 {
		r.StartRow = 1
	}

	if !isSpan {
		r.EndCol = r.StartCol
		if strings.IndexAny(start, "0123456789") >= 0 {
			r.EndRow = r.StartRow
		}
		return r, nil
	}

	if r.EndCol, r.EndRow, err = parseCell(end); err != nil {
		return cellRange{}, fmt.Errorf("invalid range %q: %w", a1, err)
	}
	return r, nil
}

// parseCell splits "AB12" into column 28 and row 12. Either part may be
// missing.
func parseCell(s string) (col, row int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		col = col*26 + int(s[i]-'A'+1)
		i++
	}
	if i < len(s) {
		row, err = strconv.Atoi(s[i:])
		if err != nil || row < 1 {
			return 0, 0, fmt.Errorf("bad cell %q", s)
		}
	}
	return col, row, nil
}

// columnName converts a 1-based column index to its letters
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

// rowRange renders "Sheet!A5:J5"
func rowRange(sheet string, row, width int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, columnName(width), row)
}

// cellRef renders "Sheet!C5"
func cellRef(sheet string, col, row int) string {
	return fmt.Sprintf("%s!%s%d", sheet, columnName(col), row)
}
