// Command validate checks the text-grid products of a date range: every
// .asc file must parse, carry the configured shape and georeferencing, and
// no partial .tmp outputs may be left behind.
//
// Usage:
//
//	go run ./cmd/validate -config config.yaml
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/storm-grid-etl/internal/adapter/ascgrid"
	"github.com/couchcryptid/storm-grid-etl/internal/config"
	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	"github.com/couchcryptid/storm-grid-etl/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	checks int
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	configPath := flag.String("config", "", "run configuration file")
	flag.Parse()

	if *configPath == "" {
		flag.Usage()
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	phases := []*phase{
		checkTextGrids(cfg),
		checkPartialOutputs(cfg),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s (%d checked)\n", p.name, p.checks)
			continue
		}
		failed = true
		fmt.Printf("FAIL  %s (%d checked, %d errors)\n", p.name, p.checks, len(p.errors))
		for _, e := range p.errors {
			fmt.Printf("      %s\n", e)
		}
	}
	if failed {
		return 1
	}
	return 0
}

// expectedSpec is the grid the text stage writes: the extraction window when
// extraction is on, the full analysis grid otherwise.
func expectedSpec(cfg *config.Config) domain.GridSpec {
	if cfg.Extract {
		return cfg.ExtractData
	}
	return cfg.AnalData
}

func checkTextGrids(cfg *config.Config) *phase {
	p := &phase{name: "text grids"}
	spec := expectedSpec(cfg)
	for _, dir := range dayDirs(cfg) {
		files, _ := filepath.Glob(filepath.Join(dir, "*.asc"))
		for _, f := range files {
			p.checks++
			h, g, err := ascgrid.ReadFile(f)
			if err != nil {
				p.errorf("%s: %v", f, err)
				continue
			}
			for _, msg := range compareHeader(h, spec) {
				p.errorf("%s: %s", f, msg)
			}
			if n := countNaN(g); n > 0 {
				p.errorf("%s: %d NaN samples, missing cells must use NODATA_value", f, n)
			}
		}
	}
	return p
}

func checkPartialOutputs(cfg *config.Config) *phase {
	p := &phase{name: "partial outputs"}
	for _, dir := range dayDirs(cfg) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			p.errorf("%s: %v", dir, err)
			continue
		}
		for _, e := range entries {
			p.checks++
			if strings.HasSuffix(e.Name(), ".tmp") {
				p.errorf("%s: leftover partial output", filepath.Join(dir, e.Name()))
			}
		}
	}
	return p
}

// dayDirs lists the existing day directories of the configured range.
func dayDirs(cfg *config.Config) []string {
	var dirs []string
	for day := cfg.StartDate; !day.After(cfg.EndDate.Time); day = day.Next() {
		dir := pipeline.DayDir(cfg.DataDir, day.Time)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func compareHeader(h ascgrid.Header, spec domain.GridSpec) []string {
	var msgs []string
	if h.Cols != spec.Cols || h.Rows != spec.Rows {
		msgs = append(msgs, fmt.Sprintf("shape %dx%d, expected %dx%d (cols x rows)", h.Cols, h.Rows, spec.Cols, spec.Rows))
	}
	floats := []struct {
		key       string
		got, want float64
	}{
		{"xllcorner", h.XLL, spec.XLL},
		{"yllcorner", h.YLL, spec.YLL},
		{"dx", h.DX, spec.DX},
		{"dy", h.DY, spec.DY},
		{"NODATA_value", h.NoData, spec.NoData},
	}
	for _, f := range floats {
		if !almostEqual(f.got, f.want) {
			msgs = append(msgs, fmt.Sprintf("%s %g, expected %g", f.key, f.got, f.want))
		}
	}
	return msgs
}

func countNaN(g domain.Grid) int {
	n := 0
	for _, v := range g.Values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
