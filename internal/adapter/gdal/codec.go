// Package gdal reads and writes georeferenced Float64 GeoTIFFs through the
// GDAL bindings in godal.
package gdal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	"github.com/couchcryptid/storm-grid-etl/internal/geometry"
)

var registerOnce sync.Once

// Register loads the GDAL drivers. It is safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// Available reports whether the GeoTIFF driver can be used.
func Available() bool {
	Register()
	_, ok := godal.RasterDriver(godal.GTiff)
	return ok
}

// Codec implements stage.RasterCodec on top of GDAL's GTiff driver.
type Codec struct{}

// NewCodec registers the GDAL drivers and returns a codec.
func NewCodec() *Codec {
	Register()
	return &Codec{}
}

// WriteRaster creates a GeoTIFF at path with r.Bands Float64 bands, writes
// the grid into band 1 and sets the transform, nodata value and, when
// r.EPSG is non-zero, the spatial reference.
func (c *Codec) WriteRaster(ctx context.Context, path string, r domain.Raster) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	bands := r.Bands
	if bands < 1 {
		bands = 1
	}

	ds, err := godal.Create(godal.GTiff, path, bands, godal.Float64, r.Cols, r.Rows)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrFormatWrite, path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %v", domain.ErrFormatWrite, path, cerr)
		}
	}()

	if err := ds.SetGeoTransform(r.Transform.Coefficients()); err != nil {
		return fmt.Errorf("%w: set geotransform: %v", domain.ErrFormatWrite, err)
	}
	if r.EPSG != 0 {
		sr, err := godal.NewSpatialRefFromEPSG(r.EPSG)
		if err != nil {
			return fmt.Errorf("%w: epsg %d: %v", domain.ErrFormatWrite, r.EPSG, err)
		}
		defer sr.Close()
		if err := ds.SetSpatialRef(sr); err != nil {
			return fmt.Errorf("%w: set spatial ref: %v", domain.ErrFormatWrite, err)
		}
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(r.NoData); err != nil {
		return fmt.Errorf("%w: set nodata: %v", domain.ErrFormatWrite, err)
	}
	if err := band.Write(0, 0, r.Values, r.Cols, r.Rows); err != nil {
		return fmt.Errorf("%w: write band: %v", domain.ErrFormatWrite, err)
	}
	return nil
}

// ReadRaster reads band 1 of the raster at path with its transform. NoData
// is NaN when the band declares none.
func (c *Codec) ReadRaster(ctx context.Context, path string) (domain.Raster, error) {
	if err := ctx.Err(); err != nil {
		return domain.Raster{}, err
	}
	ds, err := godal.Open(path)
	if err != nil {
		return domain.Raster{}, fmt.Errorf("open raster %s: %w", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < 1 {
		return domain.Raster{}, errors.New("raster has no bands")
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return domain.Raster{}, fmt.Errorf("read geotransform: %w", err)
	}

	g := domain.NewGrid(st.SizeY, st.SizeX)
	band := ds.Bands()[0]
	if err := band.Read(0, 0, g.Values, st.SizeX, st.SizeY); err != nil {
		return domain.Raster{}, fmt.Errorf("read band: %w", err)
	}
	noData, ok := band.NoData()
	if !ok {
		noData = math.NaN()
	}
	return domain.Raster{
		Grid:      g,
		Transform: geometry.FromCoefficients(gt),
		Bands:     st.NBands,
		NoData:    noData,
	}, nil
}
