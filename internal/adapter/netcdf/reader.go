// Package netcdf reads gridded variables from NetCDF files with the pure-Go
// go-native-netcdf library.
package netcdf

import (
	"context"
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/couchcryptid/storm-grid-etl/internal/domain"
)

// Attributes whose values mark missing samples.
var fillAttributes = []string{"_FillValue", "missing_value"}

// Reader implements stage.VariableReader.
type Reader struct{}

// NewReader creates a NetCDF variable reader.
func NewReader() *Reader { return &Reader{} }

// ReadVariable returns the named variable as a grid in storage order. A 3-D
// variable (time, y, x) yields its first time slice.
func (r *Reader) ReadVariable(ctx context.Context, path, name string) (domain.Variable, error) {
	if err := ctx.Err(); err != nil {
		return domain.Variable{}, err
	}
	nc, err := netcdf.Open(path)
	if err != nil {
		return domain.Variable{}, fmt.Errorf("open netcdf %s: %w", path, err)
	}
	defer nc.Close()

	v, err := nc.GetVariable(name)
	if err != nil {
		return domain.Variable{}, fmt.Errorf("read variable %s: %w", name, err)
	}
	grid, err := ToGrid(v.Values)
	if err != nil {
		return domain.Variable{}, fmt.Errorf("variable %s: %w", name, err)
	}
	return domain.Variable{Name: name, Grid: grid, FillValues: FillValues(v.Attributes)}, nil
}

// ToGrid converts NetCDF array values into a grid. It accepts 2-D slices and
// 3-D slices, of which the first outer element is used, of any numeric type.
func ToGrid(values any) (domain.Grid, error) {
	v := reflect.ValueOf(values)
	if !v.IsValid() {
		return domain.Grid{}, fmt.Errorf("%w: no values", domain.ErrShapeMismatch)
	}
	switch depth(v.Type()) {
	case 3:
		if v.Len() == 0 {
			return domain.Grid{}, fmt.Errorf("%w: empty leading dimension", domain.ErrShapeMismatch)
		}
		v = v.Index(0)
	case 2:
	default:
		return domain.Grid{}, fmt.Errorf("%w: want a 2-D or 3-D array, got %T", domain.ErrShapeMismatch, values)
	}

	rows := v.Len()
	if rows == 0 {
		return domain.Grid{}, nil
	}
	cols := v.Index(0).Len()
	g := domain.NewGrid(rows, cols)
	for r := 0; r < rows; r++ {
		row := v.Index(r)
		if row.Len() != cols {
			return domain.Grid{}, fmt.Errorf("%w: row %d has %d columns, want %d", domain.ErrShapeMismatch, r, row.Len(), cols)
		}
		for c := 0; c < cols; c++ {
			f, ok := toFloat(row.Index(c))
			if !ok {
				return domain.Grid{}, fmt.Errorf("%w: unsupported element type %s", domain.ErrShapeMismatch, row.Index(c).Type())
			}
			g.Set(r, c, f)
		}
	}
	return g, nil
}

// FillValues extracts the numeric missing-value markers from attrs.
func FillValues(attrs api.AttributeMap) []float64 {
	if attrs == nil {
		return nil
	}
	var fills []float64
	for _, key := range fillAttributes {
		val, ok := attrs.Get(key)
		if !ok {
			continue
		}
		v := reflect.ValueOf(val)
		if v.Kind() == reflect.Slice {
			for i := 0; i < v.Len(); i++ {
				if f, ok := toFloat(v.Index(i)); ok {
					fills = append(fills, f)
				}
			}
			continue
		}
		if f, ok := toFloat(v); ok {
			fills = append(fills, f)
		}
	}
	return fills
}

func depth(t reflect.Type) int {
	n := 0
	for t.Kind() == reflect.Slice {
		n++
		t = t.Elem()
	}
	return n
}

func toFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	default:
		return 0, false
	}
}
