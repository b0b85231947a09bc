// Package ascgrid reads and writes the plain-text grid format: a seven line
// header followed by one line of space-separated samples per row, north row
// first.
//
//	ncols 2
//	nrows 2
//	xllcorner 0
//	yllcorner 0
//	dx 1
//	dy 1
//	NODATA_value -9999
//	1 2
//	3 4
package ascgrid

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
)

// Header keys, in file order.
var headerKeys = []string{"ncols", "nrows", "xllcorner", "yllcorner", "dx", "dy", "NODATA_value"}

// ErrMalformed is returned when a text grid cannot be parsed.
var ErrMalformed = errors.New("malformed text grid")

// Header is the georeferencing block of a text grid.
type Header struct {
	Cols, Rows int
	XLL, YLL   float64
	DX, DY     float64
	NoData     float64
}

// HeaderFor derives the header of r from its transform.
func HeaderFor(r domain.Raster) Header {
	o := r.Origin()
	return Header{Cols: r.Cols, Rows: r.Rows, XLL: o.X, YLL: o.Y, DX: o.DX, DY: o.DY, NoData: r.NoData}
}

// Encode writes the header and the grid body to w.
func Encode(w io.Writer, h Header, g domain.Grid) error {
	if g.Rows != h.Rows || g.Cols != h.Cols {
		return fmt.Errorf("%w: header %dx%d, grid %dx%d", domain.ErrShapeMismatch, h.Rows, h.Cols, g.Rows, g.Cols)
	}
	if err := g.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	values := []string{
		strconv.Itoa(h.Cols), strconv.Itoa(h.Rows),
		formatFloat(h.XLL), formatFloat(h.YLL),
		formatFloat(h.DX), formatFloat(h.DY),
		formatFloat(h.NoData),
	}
	for i, key := range headerKeys {
		bw.WriteString(key)
		bw.WriteByte(' ')
		bw.WriteString(values[i])
		bw.WriteByte('\n')
	}
	buf := make([]byte, 0, 32)
	for r := 0; r < g.Rows; r++ {
		for c, v := range g.Row(r) {
			if c > 0 {
				bw.WriteByte(' ')
			}
			buf = strconv.AppendFloat(buf[:0], v, 'f', -1, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Decode parses a text grid.
func Decode(r io.Reader) (Header, domain.Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var h Header
	fields := make([]string, len(headerKeys))
	for i, key := range headerKeys {
		if !sc.Scan() {
			return Header{}, domain.Grid{}, fmt.Errorf("%w: missing %s header", ErrMalformed, key)
		}
		parts := strings.Fields(sc.Text())
		if len(parts) != 2 || parts[0] != key {
			return Header{}, domain.Grid{}, fmt.Errorf("%w: header line %d: want %q, got %q", ErrMalformed, i+1, key, sc.Text())
		}
		fields[i] = parts[1]
	}
	var err error
	if h.Cols, err = strconv.Atoi(fields[0]); err != nil {
		return Header{}, domain.Grid{}, fmt.Errorf("%w: ncols: %v", ErrMalformed, err)
	}
	if h.Rows, err = strconv.Atoi(fields[1]); err != nil {
		return Header{}, domain.Grid{}, fmt.Errorf("%w: nrows: %v", ErrMalformed, err)
	}
	floats := []*float64{&h.XLL, &h.YLL, &h.DX, &h.DY, &h.NoData}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(fields[i+2], 64); err != nil {
			return Header{}, domain.Grid{}, fmt.Errorf("%w: %s: %v", ErrMalformed, headerKeys[i+2], err)
		}
	}
	if h.Cols < 0 || h.Rows < 0 {
		return Header{}, domain.Grid{}, fmt.Errorf("%w: negative dimensions", ErrMalformed)
	}

	g := domain.NewGrid(h.Rows, h.Cols)
	row := 0
	for sc.Scan() {
		line := strings.Fields(sc.Text())
		if len(line) == 0 {
			continue
		}
		if row >= h.Rows {
			return Header{}, domain.Grid{}, fmt.Errorf("%w: more than %d rows", ErrMalformed, h.Rows)
		}
		if len(line) != h.Cols {
			return Header{}, domain.Grid{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrMalformed, row, len(line), h.Cols)
		}
		dst := g.Row(row)
		for c, s := range line {
			if dst[c], err = strconv.ParseFloat(s, 64); err != nil {
				return Header{}, domain.Grid{}, fmt.Errorf("%w: row %d col %d: %v", ErrMalformed, row, c, err)
			}
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return Header{}, domain.Grid{}, err
	}
	if row != h.Rows {
		return Header{}, domain.Grid{}, fmt.Errorf("%w: %d rows, header says %d", ErrMalformed, row, h.Rows)
	}
	return h, g, nil
}

// ReadFile parses the text grid at path.
func ReadFile(path string) (Header, domain.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, domain.Grid{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Encoder implements stage.TextGridWriter.
type Encoder struct{}

// NewEncoder returns a text grid encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// WriteTextGrid writes r to path.
func (e *Encoder) WriteTextGrid(ctx context.Context, path string, r domain.Raster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFormatWrite, err)
	}
	if err := Encode(f, HeaderFor(r), r.Grid); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", domain.ErrFormatWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFormatWrite, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
