// Command genmock writes a synthetic YYYY/MM/DD tree for local runs without
// wgrib2. Every raw placeholder gets a ready NetCDF intermediate next to it,
// so the first stage is a cache hit and the rest of the chain runs for real.
//
// Usage:
//
//	go run ./cmd/genmock -config config.yaml -per-day 4 -gap 3
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-grid-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-grid-etl/internal/config"
	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	"github.com/couchcryptid/storm-grid-etl/internal/pipeline"
)

// fillValue is stored for missing cells, as wgrib2 does.
const fillValue = float32(9.999e20)

type options struct {
	perDay int
	gap    int // every gap-th day is left out; 0 disables
}

func main() {
	configPath := flag.String("config", "", "run configuration file (data_dir, dates, anal_data, variable)")
	perDay := flag.Int("per-day", 4, "raw files per day (one per synoptic hour)")
	gap := flag.Int("gap", 0, "leave out every n-th day to exercise missing-day handling")
	flag.Parse()

	if *configPath == "" {
		flag.Usage()
		log.Fatal("missing required flag: -config")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	n, err := generate(cfg, options{perDay: *perDay, gap: *gap})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d raw files under %s", n, cfg.DataDir)
}

// generate writes the tree and returns the number of raw files created.
func generate(cfg *config.Config, opts options) (int, error) {
	if opts.perDay < 1 || opts.perDay > 24 {
		return 0, fmt.Errorf("per-day must be between 1 and 24, got %d", opts.perDay)
	}
	step := 24 / opts.perDay

	count := 0
	index := 0
	for day := cfg.StartDate; !day.After(cfg.EndDate.Time); day = day.Next() {
		index++
		if opts.gap > 0 && index%opts.gap == 0 {
			continue
		}
		dir := pipeline.DayDir(cfg.DataDir, day.Time)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return count, err
		}
		for i := range opts.perDay {
			valid := day.Add(time.Duration(i*step) * time.Hour)
			name := fmt.Sprintf("gsm_%s.bin", valid.Format("2006010215"))
			raw := filepath.Join(dir, name)
			if err := os.WriteFile(raw, []byte("GRIB placeholder\n"), 0o644); err != nil {
				return count, err
			}
			g := field(cfg.AnalData, valid)
			if err := netcdf.WriteVariable(raw+".nc", cfg.Variable, g, fillValue); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// field builds a smooth synthetic precipitation-like grid in storage order
// (south row first). A band along the western edge is missing.
func field(spec domain.GridSpec, valid time.Time) domain.Grid {
	g := domain.NewGrid(spec.Rows, spec.Cols)
	phase := float64(valid.Hour()) / 24 * 2 * math.Pi
	for r := range spec.Rows {
		for c := range spec.Cols {
			if c == 0 {
				g.Set(r, c, math.NaN())
				continue
			}
			x := float64(c) / float64(spec.Cols)
			y := float64(r) / float64(spec.Rows)
			v := 10 * math.Max(0, math.Sin(2*math.Pi*x+phase)*math.Cos(math.Pi*y))
			g.Set(r, c, math.Round(v*100)/100)
		}
	}
	return g
}
