// Package domain models the gridded meteorological data that flows through
// the conversion pipeline.
//
// # Data Source
//
// Raw inputs are GRIB2 analysis grids (for example JMA radar/raingauge
// analysed precipitation) delivered as one file per analysis time and stored
// under a date tree:
//
//	<data_dir>/<YYYY>/<MM>/<DD>/<name>.bin
//
// # Derived Files
//
// Every stage writes its output next to its input by appending a suffix, so a
// single raw file expands into:
//
//	<name>.bin                          raw GRIB2
//	<name>.bin.nc                       NetCDF written by wgrib2 -netcdf
//	<name>.bin.nc.tif                   GeoTIFF, north-up, Float64
//	<name>.bin.nc.tif_extract.tif       GeoTIFF cropped to the extract window
//	<name>.bin.nc.tif.asc               text grid of the full raster, or
//	<name>.bin.nc.tif_extract.tif.asc   text grid of the cropped raster
//
// # Row Order
//
// wgrib2 writes latitude ascending, so the first NetCDF row is the southern
// edge. Rasters are stored north-up: row 0 is the northernmost row. The flip
// happens once, explicitly, in [Grid.FlipRows] during NetCDF ingestion; all
// index math downstream assumes row 0 is north.
//
// # Missing Values
//
// NetCDF cells equal to the variable's _FillValue or missing_value attribute,
// and NaN cells, are missing. They become the configured nodata sentinel
// before the raster is written; see [Grid.ReplaceMissing].
//
// # Text Grid Format
//
// Seven header lines followed by one line per row, values separated by a
// single space:
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
//
// # Event IDs
//
// Conversion event IDs are deterministic SHA-256 hashes of the source path and
// the final output path, so re-running a date range re-emits the same IDs and
// downstream consumers can de-duplicate. See [generateID].
package domain
