package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryValues is an in-process spreadsheet
type MemoryValues struct {
	mu     sync.Mutex
	grids  map[string][][]string
	titles []string
}

// Ensure MemoryValues implements Values
var _ Values = (*MemoryValues)(nil)

// NewMemoryValues creates an empty spreadsheet. Tabs named in titles are
// created up front.
func NewMemoryValues(titles ...string) *MemoryValues {
	m := &MemoryValues{grids: make(map[string][][]string)}
	for _, t := range titles {
		m.grids[t] = nil
		m.titles = append(m.titles, t)
	}
	return m
}

func (m *MemoryValues) grid(sheet string) ([][]string, error) {
	g, ok := m.grids[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	return g, nil
}

// Get returns the values in the range. Trailing empty cells and rows are
// omitted, as the Sheets API does.
func (m *MemoryValues) Get(_ context.Context, a1Range string) ([][]string, error) {
	r, err := parseRange(a1Range)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.grid(r.Sheet)
	if err != nil {
		return nil, err
	}

	lastRow := len(g)
	if r.EndRow > 0 && r.EndRow < lastRow {
		lastRow = r.EndRow
	}

	var out [][]string
	for i := r.StartRow - 1; i < lastRow; i++ {
		row := g[i]
		lastCol := len(row)
		if r.EndCol > 0 && r.EndCol < lastCol {
			lastCol = r.EndCol
		}
		var cells []string
		if r.StartCol-1 < lastCol {
			cells = append(cells, row[r.StartCol-1:lastCol]...)
		}
		out = append(out, trimCells(cells))
	}

	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// Append writes rows after the last non-empty row of the sheet
func (m *MemoryValues) Append(_ context.Context, a1Range string, rows [][]string) error {
	r, err := parseRange(a1Range)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.grid(r.Sheet)
	if err != nil {
		return err
	}

	next := len(g)
	for next > 0 && len(trimCells(g[next-1])) == 0 {
		next--
	}
	m.grids[r.Sheet] = write(g[:next], next, r.StartCol-1, rows)
	return nil
}

// Update overwrites cells starting at the top left of the range
func (m *MemoryValues) Update(_ context.Context, a1Range string, rows [][]string) error {
	r, err := parseRange(a1Range)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.grid(r.Sheet)
	if err != nil {
		return err
	}
	m.grids[r.Sheet] = write(g, r.StartRow-1, r.StartCol-1, rows)
	return nil
}

// SheetTitles lists the tabs in creation order
func (m *MemoryValues) SheetTitles(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.titles...), nil
}

// AddSheet creates an empty tab
func (m *MemoryValues) AddSheet(_ context.Context, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.grids[title]; ok {
		return fmt.Errorf("a sheet with the name %q already exists", title)
	}
	m.grids[title] = nil
	m.titles = append(m.titles, title)
	return nil
}

// Rows returns a copy of every row in sheet, for tests and debugging
func (m *MemoryValues) Rows(sheet string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]string, 0, len(m.grids[sheet]))
	for _, row := range m.grids[sheet] {
		out = append(out, append([]string(nil), row...))
	}
	return out
}

func write(g [][]string, startRow, startCol int, rows [][]string) [][]string {
	for i, row := range rows {
		idx := startRow + i
		for len(g) <= idx {
			g = append(g, nil)
		}
		line := g[idx]
		for len(line) < startCol+len(row) {
			line = append(line, "")
		}
		copy(line[startCol:], row)
		g[idx] = line
	}
	return g
}

func trimCells(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	if end == 0 {
		return []string{}
	}
	return cells[:end]
}
