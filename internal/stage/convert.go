package stage

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	"github.com/couchcryptid/storm-grid-etl/internal/geometry"
)

// NetCDFConverter turns a raw GRIB file into a NetCDF file.
type NetCDFConverter interface {
	Convert(ctx context.Context, input, output string) error
}

// VariableReader reads a named 2-D variable from a NetCDF file.
type VariableReader interface {
	ReadVariable(ctx context.Context, path, name string) (domain.Variable, error)
}

// RasterReader reads the first band and georeferencing of a raster file.
type RasterReader interface {
	ReadRaster(ctx context.Context, path string) (domain.Raster, error)
}

// RasterWriter writes a raster as a georeferenced Float64 image.
type RasterWriter interface {
	WriteRaster(ctx context.Context, path string, r domain.Raster) error
}

// RasterCodec reads and writes rasters.
type RasterCodec interface {
	RasterReader
	RasterWriter
}

// TextGridWriter writes a raster as a plain-text grid.
type TextGridWriter interface {
	WriteTextGrid(ctx context.Context, path string, r domain.Raster) error
}

// GribToNetCDF returns the stage that runs the external converter. Its
// failures wrap domain.ErrExternalTool and abort the whole run.
func GribToNetCDF(conv NetCDFConverter, keepSource bool) *Stage {
	return &Stage{
		name:       NameGribToNetCDF,
		suffix:     ".nc",
		keepSource: keepSource,
		convert:    conv.Convert,
	}
}

// NetCDFToRaster returns the stage that reads variable from a NetCDF file,
// replaces missing values with spec.NoData, flips the rows so row 0 is the
// northernmost row, and writes a raster georeferenced by spec.
func NetCDFToRaster(vars VariableReader, rasters RasterWriter, variable string, spec domain.GridSpec, keepSource bool) *Stage {
	return &Stage{
		name:       NameNetCDFToRaster,
		suffix:     ".tif",
		keepSource: keepSource,
		convert: func(ctx context.Context, input, output string) error {
			v, err := vars.ReadVariable(ctx, input, variable)
			if err != nil {
				return err
			}
			if v.Grid.Rows != spec.Rows || v.Grid.Cols != spec.Cols {
				return fmt.Errorf("%w: variable %s is %dx%d (rows x cols), anal_data expects %dx%d",
					domain.ErrShapeMismatch, variable, v.Grid.Rows, v.Grid.Cols, spec.Rows, spec.Cols)
			}
			g := v.Grid.ReplaceMissing(spec.NoData, v.FillValues...).FlipRows()
			return rasters.WriteRaster(ctx, output, spec.NewRaster(g))
		},
	}
}

// ExtractRegion returns the stage that crops a raster to the window described
// by spec. A window that does not fit the source fails with
// domain.ErrOutOfBoundsCrop.
func ExtractRegion(rasters RasterCodec, spec domain.GridSpec, keepSource bool) *Stage {
	return &Stage{
		name:       NameExtractRegion,
		suffix:     "_extract.tif",
		keepSource: keepSource,
		convert: func(ctx context.Context, input, output string) error {
			src, err := rasters.ReadRaster(ctx, input)
			if err != nil {
				return err
			}
			idx, err := geometry.Locate(src.Origin(), src.Cols, src.Rows, spec.Window())
			if err != nil {
				return err
			}
			sub, err := src.Grid.Window(idx)
			if err != nil {
				return err
			}
			return rasters.WriteRaster(ctx, output, spec.NewRaster(sub))
		},
	}
}

// RasterToText returns the stage that writes a raster as a text grid. When
// the raster carries no nodata value, fallbackNoData is written instead.
func RasterToText(rasters RasterReader, text TextGridWriter, fallbackNoData float64, keepSource bool) *Stage {
	return &Stage{
		name:       NameRasterToText,
		suffix:     ".asc",
		keepSource: keepSource,
		convert: func(ctx context.Context, input, output string) error {
			r, err := rasters.ReadRaster(ctx, input)
			if err != nil {
				return err
			}
			if math.IsNaN(r.NoData) {
				r.NoData = fallbackNoData
			}
			return text.WriteTextGrid(ctx, output, r)
		},
	}
}
