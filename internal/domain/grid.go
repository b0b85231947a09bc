package domain

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-grid-etl/internal/geometry"
)

// Grid is a dense 2-D array of samples stored row-major. Row 0 is the first
// row in storage order; after [Grid.FlipRows] on NetCDF input it is the
// northernmost row.
type Grid struct {
	Rows   int
	Cols   int
	Values []float64
}

// NewGrid allocates a zero-filled grid.
func NewGrid(rows, cols int) Grid {
	return Grid{Rows: rows, Cols: cols, Values: make([]float64, rows*cols)}
}

// GridFromRows builds a grid from a slice of equal-length rows.
func GridFromRows(rows [][]float64) (Grid, error) {
	if len(rows) == 0 {
		return Grid{}, nil
	}
	cols := len(rows[0])
	g := NewGrid(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return Grid{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, r, len(row), cols)
		}
		copy(g.Values[r*cols:(r+1)*cols], row)
	}
	return g, nil
}

// Validate checks that the backing slice matches the declared shape.
func (g Grid) Validate() error {
	if g.Rows < 0 || g.Cols < 0 || len(g.Values) != g.Rows*g.Cols {
		return fmt.Errorf("%w: %d values for %dx%d grid", ErrShapeMismatch, len(g.Values), g.Rows, g.Cols)
	}
	return nil
}

// At returns the sample at (row, col).
func (g Grid) At(row, col int) float64 {
	return g.Values[row*g.Cols+col]
}

// Set stores v at (row, col).
func (g Grid) Set(row, col int, v float64) {
	g.Values[row*g.Cols+col] = v
}

// Row returns the samples of one row. The slice aliases the grid.
func (g Grid) Row(row int) []float64 {
	return g.Values[row*g.Cols : (row+1)*g.Cols]
}

// FlipRows returns a copy with row order reversed, turning a south-first
// grid into a north-first one.
func (g Grid) FlipRows() Grid {
	out := NewGrid(g.Rows, g.Cols)
	for r := 0; r < g.Rows; r++ {
		copy(out.Row(g.Rows-1-r), g.Row(r))
	}
	return out
}

// ReplaceMissing returns a copy where NaN cells and cells matching any of the
// fill values are replaced with nodata.
func (g Grid) ReplaceMissing(nodata float64, fills ...float64) Grid {
	out := Grid{Rows: g.Rows, Cols: g.Cols, Values: make([]float64, len(g.Values))}
	for i, v := range g.Values {
		if isMissing(v, fills) {
			v = nodata
		}
		out.Values[i] = v
	}
	return out
}

func isMissing(v float64, fills []float64) bool {
	if math.IsNaN(v) {
		return true
	}
	for _, f := range fills {
		if v == f {
			return true
		}
	}
	return false
}

// Window returns a copy of the sub-array covered by idx. Indices must already
// be bounds-checked; an out-of-range request returns ErrOutOfBoundsCrop rather
// than a partial slice.
func (g Grid) Window(idx geometry.Indices) (Grid, error) {
	if err := geometry.CheckBounds(idx, g.Cols, g.Rows); err != nil {
		return Grid{}, err
	}
	out := NewGrid(idx.Rows(), idx.Cols())
	for r := 0; r < out.Rows; r++ {
		src := g.Row(idx.RowStart + r)[idx.ColStart:idx.ColEnd]
		copy(out.Row(r), src)
	}
	return out, nil
}
