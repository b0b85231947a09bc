package domain

import "github.com/couchcryptid/storm-grid-etl/internal/geometry"

// Raster is a grid with the georeferencing needed to write it as a tagged
// raster. EPSG is only required by the raster encoder.
type Raster struct {
	Grid
	Transform geometry.Transform
	Bands     int
	NoData    float64
	EPSG      int
}

// Origin returns the raster's lower-left origin.
func (r Raster) Origin() geometry.Origin {
	return geometry.DeriveOrigin(r.Transform, r.Rows)
}

// GridSpec describes the expected shape and georeferencing of a raster, as
// configured under anal_data and extract_data.
type GridSpec struct {
	Cols   int     `yaml:"cols" toml:"cols"`
	Rows   int     `yaml:"rows" toml:"rows"`
	Band   int     `yaml:"band" toml:"band"`
	XLL    float64 `yaml:"xll" toml:"xll"`
	YLL    float64 `yaml:"yll" toml:"yll"`
	DX     float64 `yaml:"cellsize_dx" toml:"cellsize_dx"`
	DY     float64 `yaml:"cellsize_dy" toml:"cellsize_dy"`
	NoData float64 `yaml:"nodata" toml:"nodata"`
	EPSG   int     `yaml:"epsg" toml:"epsg"`
}

// Origin returns the lower-left origin of a raster matching the spec.
func (s GridSpec) Origin() geometry.Origin {
	return geometry.NewOrigin(s.XLL, s.YLL, s.DX, s.DY, s.Rows)
}

// Window returns the spec as a crop request.
func (s GridSpec) Window() geometry.Window {
	return geometry.Window{X: s.XLL, Y: s.YLL, Cols: s.Cols, Rows: s.Rows, DX: s.DX, DY: s.DY}
}

// NewRaster georeferences g according to the spec.
func (s GridSpec) NewRaster(g Grid) Raster {
	return Raster{
		Grid:      g,
		Transform: s.Origin().Transform(),
		Bands:     s.Band,
		NoData:    s.NoData,
		EPSG:      s.EPSG,
	}
}

// Variable is a 2-D array read from a NetCDF dataset together with the
// values its attributes declare as missing (_FillValue, missing_value).
type Variable struct {
	Name       string
	Grid       Grid
	FillValues []float64
}
