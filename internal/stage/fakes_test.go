package stage_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeConverter stands in for wgrib2: it copies the input with a prefix.
type fakeConverter struct {
	calls int
	err   error
	empty bool
}

func (f *fakeConverter) Convert(_ context.Context, input, output string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.empty {
		return nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, append([]byte("netcdf:"), data...), 0o644)
}

type fakeVariables struct {
	v     domain.Variable
	calls int
}

func (f *fakeVariables) ReadVariable(_ context.Context, _, name string) (domain.Variable, error) {
	f.calls++
	v := f.v
	v.Name = name
	return v, nil
}

// fakeRasters stores rasters as JSON files so they survive the tmp rename.
type fakeRasters struct {
	reads, writes int
	last          domain.Raster
}

func (f *fakeRasters) ReadRaster(_ context.Context, path string) (domain.Raster, error) {
	f.reads++
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Raster{}, err
	}
	var r domain.Raster
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Raster{}, err
	}
	return r, nil
}

func (f *fakeRasters) WriteRaster(_ context.Context, path string, r domain.Raster) error {
	f.writes++
	f.last = r
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type fakeText struct {
	last domain.Raster
}

func (f *fakeText) WriteTextGrid(_ context.Context, path string, r domain.Raster) error {
	f.last = r
	var b strings.Builder
	fmt.Fprintf(&b, "ncols %d\nnrows %d\nNODATA_value %v\n", r.Cols, r.Rows, r.NoData)
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// writeRaw creates a raw input file in a fresh directory.
func writeRaw(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jma_20240426.bin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeRaster(t *testing.T, codec *fakeRasters, path string, r domain.Raster) {
	t.Helper()
	require.NoError(t, codec.WriteRaster(context.Background(), path, r))
	codec.writes = 0
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
