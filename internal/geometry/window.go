package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned when a requested window does not fit inside the
// source raster.
var ErrOutOfBounds = errors.New("crop window out of bounds")

// Window is a sub-region request expressed in real-world coordinates.
type Window struct {
	X, Y       float64 // lower-left corner
	Cols, Rows int
	DX, DY     float64 // cell size, both positive
}

// TopY returns the window's top edge.
func (w Window) TopY() float64 {
	return w.Y + float64(w.Rows)*w.DY
}

// Origin returns the window as a raster origin.
func (w Window) Origin() Origin {
	return NewOrigin(w.X, w.Y, w.DX, w.DY, w.Rows)
}

// Indices are half-open pixel offsets into a source array: the window covers
// rows [RowStart, RowEnd) and columns [ColStart, ColEnd).
type Indices struct {
	ColStart, RowStart int
	ColEnd, RowEnd     int
}

// Cols returns the number of columns covered.
func (i Indices) Cols() int { return i.ColEnd - i.ColStart }

// Rows returns the number of rows covered.
func (i Indices) Rows() int { return i.RowEnd - i.RowStart }

func (i Indices) String() string {
	return fmt.Sprintf("rows [%d:%d] cols [%d:%d]", i.RowStart, i.RowEnd, i.ColStart, i.ColEnd)
}

// OutOfBoundsError reports a window whose indices fall outside the source.
type OutOfBoundsError struct {
	Indices    Indices
	SourceCols int
	SourceRows int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%s: %s exceeds source %dx%d (cols x rows)",
		ErrOutOfBounds, e.Indices, e.SourceCols, e.SourceRows)
}

func (e *OutOfBoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// maxOffset bounds a window's offset and extent in cells. Anything larger
// cannot index a real raster and would overflow the end-index arithmetic.
const maxOffset = math.MaxInt32

// ComputeWindowIndices returns the pixel offsets of window w within a source
// raster whose lower-left origin and cell size are given by src. The row
// offset is measured from the source's top edge.
//
// Ratios are rounded half to even, so a window starting exactly halfway
// between two source cells snaps to the even index. The result is only
// meaningful for windows Locate accepts.
func ComputeWindowIndices(src Origin, w Window) Indices {
	col, row := cellOffsets(src, w)
	colStart, rowStart := int(col), int(row)
	return Indices{
		ColStart: colStart,
		RowStart: rowStart,
		ColEnd:   colStart + w.Cols,
		RowEnd:   rowStart + w.Rows,
	}
}

func cellOffsets(src Origin, w Window) (col, row float64) {
	col = math.RoundToEven((w.X - src.X) / src.DX)
	row = math.RoundToEven((src.TopY - w.TopY()) / src.DY)
	return col, row
}

func representable(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) <= maxOffset
}

// CheckBounds verifies that idx is non-empty and lies within a source of
// srcCols by srcRows. End indices are compared against their starts directly
// so wrapped arithmetic cannot pass as a positive extent.
func CheckBounds(idx Indices, srcCols, srcRows int) error {
	if idx.ColStart < 0 || idx.RowStart < 0 ||
		idx.ColStart >= srcCols || idx.RowStart >= srcRows ||
		idx.ColEnd <= idx.ColStart || idx.RowEnd <= idx.RowStart ||
		idx.ColEnd > srcCols || idx.RowEnd > srcRows {
		return &OutOfBoundsError{Indices: idx, SourceCols: srcCols, SourceRows: srcRows}
	}
	return nil
}

// Locate computes the indices of w inside a source raster and validates them.
// A window whose offset is not a finite cell count, or whose extent cannot be
// represented, is rejected before any index arithmetic happens.
func Locate(src Origin, srcCols, srcRows int, w Window) (Indices, error) {
	col, row := cellOffsets(src, w)
	if !representable(col) || !representable(row) ||
		w.Cols < 0 || w.Rows < 0 || w.Cols > maxOffset || w.Rows > maxOffset {
		return Indices{}, fmt.Errorf("%w: window at (%g, %g) sized %dx%d is %g, %g cells from the source origin",
			ErrOutOfBounds, w.X, w.Y, w.Cols, w.Rows, col, row)
	}
	idx := ComputeWindowIndices(src, w)
	if err := CheckBounds(idx, srcCols, srcRows); err != nil {
		return idx, err
	}
	return idx, nil
}
