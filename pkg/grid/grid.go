// Package grid lays program output out on a fixed character grid.
package grid

import "sync"

// GetGridCoords converts a linear cell index into column/row coordinates.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Terminal is a scrolling text grid fed by raw output bytes. It is an
// io.Writer and is safe for one writer and concurrent readers.
type Terminal struct {
	Cols, Rows int

	mu     sync.Mutex
	cells  []byte
	cursor int // linear index of the next cell to write
}

func NewTerminal(cols, rows int) *Terminal {
	return &Terminal{Cols: cols, Rows: rows, cells: make([]byte, cols*rows)}
}

// Write places each byte at the cursor. '\n' moves to the next line, '\r' to
// the start of the line and '\b' erases the previous cell. Writing past the
// last row scrolls the grid up by one line.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, b := range p {
		x, _ := GetGridCoords(t.cursor, t.Cols)
		switch b {
		case '\n':
			t.cursor += t.Cols - x
		case '\r':
			t.cursor -= x
		case '\b':
			if t.cursor > 0 {
				t.cursor--
				t.cells[t.cursor] = 0
			}
			continue
		default:
			t.cells[t.cursor] = b
			t.cursor++
		}
		if t.cursor >= len(t.cells) {
			t.scroll()
		}
	}
	return len(p), nil
}

func (t *Terminal) scroll() {
	copy(t.cells, t.cells[t.Cols:])
	last := t.cells[len(t.cells)-t.Cols:]
	for i := range last {
		last[i] = 0
	}
	t.cursor -= t.Cols
}

// Lines returns the grid contents, one string per row, with empty cells as
// spaces and trailing spaces trimmed.
func (t *Terminal) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := make([]string, t.Rows)
	row := make([]byte, t.Cols)
	for y := 0; y < t.Rows; y++ {
		end := 0
		for x := 0; x < t.Cols; x++ {
			c := t.cells[y*t.Cols+x]
			if c == 0 {
				c = ' '
			} else {
				end = x + 1
			}
			row[x] = c
		}
		lines[y] = string(row[:end])
	}
	return lines
}

// Cursor returns the cursor position as column/row coordinates.
func (t *Terminal) Cursor() (x, y int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return GetGridCoords(t.cursor, t.Cols)
}
