// Package geometry maps between raster pixel indices and real-world
// coordinates.
//
// Rasters are stored north-up: row 0 is the northernmost row and rows advance
// southward. The affine transform therefore anchors at the top-left corner and
// carries a negative pixel height, while the text grid format and the
// configuration describe a raster by its lower-left corner and a positive cell
// height. Origin bridges the two.
//
// Every function in this package is pure.
package geometry

// Transform is a six-coefficient affine transform in GDAL order:
//
//	x = OriginX + col*PixelWidth + row*RowRotation
//	y = OriginY + col*ColRotation + row*PixelHeight
//
// For north-up rasters the rotations are zero and PixelHeight is negative.
type Transform struct {
	OriginX     float64
	PixelWidth  float64
	RowRotation float64
	OriginY     float64 // top edge
	ColRotation float64
	PixelHeight float64 // negative for north-up rasters
}

// FromCoefficients builds a Transform from the GDAL coefficient array.
func FromCoefficients(c [6]float64) Transform {
	return Transform{
		OriginX:     c[0],
		PixelWidth:  c[1],
		RowRotation: c[2],
		OriginY:     c[3],
		ColRotation: c[4],
		PixelHeight: c[5],
	}
}

// Coefficients returns the transform as the GDAL coefficient array.
func (t Transform) Coefficients() [6]float64 {
	return [6]float64{t.OriginX, t.PixelWidth, t.RowRotation, t.OriginY, t.ColRotation, t.PixelHeight}
}

// Origin describes a north-up raster by its lower-left corner and positive
// cell size. TopY is the top edge; it is kept alongside Y so that converting
// a transform to an Origin and back is exact.
type Origin struct {
	X, Y   float64 // lower-left corner
	DX, DY float64 // cell size, both positive
	TopY   float64
}

// NewOrigin returns the Origin of a raster with the given lower-left corner,
// cell size and row count.
func NewOrigin(x, y, dx, dy float64, rows int) Origin {
	return Origin{X: x, Y: y, DX: dx, DY: dy, TopY: y + dy*float64(rows)}
}

// DeriveOrigin converts a top-left anchored transform into the lower-left
// origin of a raster with rowCount rows.
func DeriveOrigin(t Transform, rowCount int) Origin {
	dy := -t.PixelHeight
	return Origin{
		X:    t.OriginX,
		Y:    t.OriginY - dy*float64(rowCount),
		DX:   t.PixelWidth,
		DY:   dy,
		TopY: t.OriginY,
	}
}

// Transform returns the north-up affine transform for the origin.
func (o Origin) Transform() Transform {
	return Transform{
		OriginX:     o.X,
		PixelWidth:  o.DX,
		OriginY:     o.TopY,
		PixelHeight: -o.DY,
	}
}

// PixelCenter returns the real-world coordinate of the center of the cell at
// (col, row), where row 0 is the top row.
func (o Origin) PixelCenter(col, row int) (x, y float64) {
	x = o.X + (float64(col)+0.5)*o.DX
	y = o.TopY - (float64(row)+0.5)*o.DY
	return x, y
}
