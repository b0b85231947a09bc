package stage

import (
	"github.com/couchcryptid/storm-grid-etl/internal/config"
)

// Adapters bundles the format implementations the stages call into.
type Adapters struct {
	Converter NetCDFConverter
	Variables VariableReader
	Rasters   RasterCodec
	Text      TextGridWriter
}

// Build returns the stage chain configured by cfg, in execution order:
// grib2nc, nc2tif, then extract when cfg.Extract, then tif2asc when
// cfg.AscSave.
//
// Keep-source flags: grib2nc keeps the raw file per bin_save, nc2tif keeps
// the NetCDF file per nc_save, and both extract and tif2asc keep their input
// raster per tif_save. The final stage's output is never deleted.
func Build(cfg *config.Config, a Adapters) []*Stage {
	chain := []*Stage{
		GribToNetCDF(a.Converter, cfg.BinSave),
		NetCDFToRaster(a.Variables, a.Rasters, cfg.Variable, cfg.AnalData, cfg.NcSave),
	}
	noData := cfg.AnalData.NoData
	if cfg.Extract {
		chain = append(chain, ExtractRegion(a.Rasters, cfg.ExtractData, cfg.TifSave))
		noData = cfg.ExtractData.NoData
	}
	if cfg.AscSave {
		chain = append(chain, RasterToText(a.Rasters, a.Text, noData, cfg.TifSave))
	}
	return chain
}

// Outputs lists the files the chain derives from a raw input, in order.
func Outputs(chain []*Stage, input string) []string {
	out := make([]string, 0, len(chain))
	cur := input
	for _, s := range chain {
		cur = s.OutputPath(cur)
		out = append(out, cur)
	}
	return out
}
