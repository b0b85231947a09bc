package netcdf

import (
	"fmt"
	"math"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/couchcryptid/storm-grid-etl/internal/domain"
)

// Dimensions of a variable written by WriteVariable, matching wgrib2 output.
var Dimensions = []string{"time", "latitude", "longitude"}

// WriteVariable writes g as a single time step of a float32 variable in
// classic NetCDF format. g is in storage order, south row first. NaN samples
// are stored as fill.
func WriteVariable(path, name string, g domain.Grid, fill float32) error {
	if err := g.Validate(); err != nil {
		return err
	}
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create netcdf %s: %w", path, err)
	}

	slice := make([][]float32, g.Rows)
	for r := range slice {
		row := make([]float32, g.Cols)
		for c, v := range g.Row(r) {
			if math.IsNaN(v) {
				row[c] = fill
				continue
			}
			row[c] = float32(v)
		}
		slice[r] = row
	}

	attrs, err := util.NewOrderedMap(
		[]string{"_FillValue", "short_name"},
		map[string]any{"_FillValue": fill, "short_name": name})
	if err != nil {
		cw.Close() //nolint:errcheck // already failing
		return fmt.Errorf("netcdf attributes: %w", err)
	}
	err = cw.AddVar(name, api.Variable{
		Values:     [][][]float32{slice},
		Dimensions: Dimensions,
		Attributes: attrs,
	})
	if err != nil {
		cw.Close() //nolint:errcheck // already failing
		return fmt.Errorf("add variable %s: %w", name, err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("%w: close netcdf %s: %v", domain.ErrFormatWrite, path, err)
	}
	return nil
}
