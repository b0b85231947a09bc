package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
data_dir: /data/jma
start_date: 2024-04-26
end_date: "2024-04-28"
wgrib_path: /usr/local/bin/wgrib2
nc_save: false
tif_save: true
asc_save: true
extract: true
anal_data:
  cols: 2560
  rows: 3360
  band: 1
  xll: 118.0
  yll: 20.0
  cellsize_dx: 0.0125
  cellsize_dy: 0.008333333333333333
  nodata: -9999
  epsg: 4326
extract_data:
  cols: 80
  rows: 120
  band: 1
  xll: 139.0
  yll: 35.0
  cellsize_dx: 0.0125
  cellsize_dy: 0.008333333333333333
  nodata: -9999
  epsg: 4326
  tif_save: false
`

const testTOML = `
data_dir = "/data/jma"
start_date = 2024-04-26
end_date = 2024-04-28
asc_save = true
wgrib_timeout_seconds = 120

[anal_data]
cols = 2560
rows = 3360
band = 1
xll = 118.0
yll = 20.0
cellsize_dx = 0.0125
cellsize_dy = 0.008333333333333333
nodata = -9999
epsg = 4326

[kafka]
brokers = ["localhost:9092"]
topic = "jma-conversions"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "grib2tif.yaml", testYAML))
	require.NoError(t, err)

	assert.Equal(t, "/data/jma", cfg.DataDir)
	assert.Equal(t, NewDate(2024, 4, 26), cfg.StartDate)
	assert.Equal(t, NewDate(2024, 4, 28), cfg.EndDate)
	assert.Equal(t, 3, cfg.Days())
	assert.Equal(t, "/usr/local/bin/wgrib2", cfg.WgribPath)
	assert.True(t, cfg.BinSave, "bin_save defaults to true")
	assert.False(t, cfg.NcSave)
	assert.True(t, cfg.TifSave)
	assert.True(t, cfg.AscSave)
	assert.True(t, cfg.Extract)
	assert.Equal(t, 2560, cfg.AnalData.Cols)
	assert.InDelta(t, 0.008333333333333333, cfg.AnalData.DY, 0)
	assert.Equal(t, 4326, cfg.AnalData.EPSG)
	assert.InDelta(t, 139.0, cfg.ExtractData.XLL, 0)
	assert.Equal(t, 120, cfg.ExtractData.Rows)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_TOML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "gridetl.toml", testTOML))
	require.NoError(t, err)

	assert.Equal(t, NewDate(2024, 4, 26), cfg.StartDate)
	assert.Equal(t, NewDate(2024, 4, 28), cfg.EndDate)
	assert.Equal(t, 120*time.Second, cfg.WgribTimeout())
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "jma-conversions", cfg.Kafka.Topic)
	assert.False(t, cfg.Extract)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "grib2tif.yml", testYAML))
	require.NoError(t, err)

	assert.Equal(t, "*.bin", cfg.FilePattern)
	assert.Equal(t, "var0_1_200_surface", cfg.Variable)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Zero(t, cfg.WgribTimeout())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("METRICS_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load(writeConfig(t, "grib2tif.yaml", testYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "grid-conversions", cfg.Kafka.Topic)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load(writeConfig(t, "grib2tif.yaml", testYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_MalformedDate(t *testing.T) {
	_, err := Load(writeConfig(t, "bad.yaml", "data_dir: /d\nstart_date: 26/04/2024\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Parse([]byte(testYAML), ".yaml")
		require.NoError(t, err)
		cfg.normalize()
		require.NoError(t, cfg.Validate())
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"missing start", func(c *Config) { c.StartDate = Date{} }, "start_date"},
		{"missing end", func(c *Config) { c.EndDate = Date{} }, "end_date"},
		{"reversed range", func(c *Config) { c.EndDate = NewDate(2024, 4, 1) }, "before start_date"},
		{"negative timeout", func(c *Config) { c.WgribTimeoutSeconds = -1 }, "wgrib_timeout_seconds"},
		{"bad pattern", func(c *Config) { c.FilePattern = "[" }, "file_pattern"},
		{"anal cols", func(c *Config) { c.AnalData.Cols = 0 }, "anal_data.cols"},
		{"anal rows", func(c *Config) { c.AnalData.Rows = -1 }, "anal_data.rows"},
		{"anal band", func(c *Config) { c.AnalData.Band = 0 }, "anal_data.band"},
		{"anal dx", func(c *Config) { c.AnalData.DX = 0 }, "anal_data.cellsize_dx"},
		{"extract dy", func(c *Config) { c.ExtractData.DY = 0 }, "extract_data.cellsize_dy"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"kafka topic", func(c *Config) { c.Kafka = KafkaConfig{Brokers: []string{"b:9092"}} }, "kafka.topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("extract_data ignored when extract is off", func(t *testing.T) {
		cfg := valid()
		cfg.Extract = false
		cfg.ExtractData.Cols = 0
		require.NoError(t, cfg.Validate())
	})
}

func TestWithRange(t *testing.T) {
	cfg, err := Load(writeConfig(t, "grib2tif.yaml", testYAML))
	require.NoError(t, err)

	t.Run("replaces dates without mutating the original", func(t *testing.T) {
		out, err := cfg.WithRange(NewDate(2024, 5, 1), NewDate(2024, 5, 2))
		require.NoError(t, err)
		assert.Equal(t, NewDate(2024, 5, 1), out.StartDate)
		assert.Equal(t, 2, out.Days())
		assert.Equal(t, NewDate(2024, 4, 26), cfg.StartDate)
	})

	t.Run("zero keeps current value", func(t *testing.T) {
		out, err := cfg.WithRange(Date{}, NewDate(2024, 4, 26))
		require.NoError(t, err)
		assert.Equal(t, 1, out.Days())
	})

	t.Run("invalid range rejected", func(t *testing.T) {
		_, err := cfg.WithRange(NewDate(2024, 5, 2), NewDate(2024, 5, 1))
		require.Error(t, err)
	})
}

func TestWithDataDir(t *testing.T) {
	cfg, err := Load(writeConfig(t, "grib2tif.yaml", testYAML))
	require.NoError(t, err)

	out, err := cfg.WithDataDir(" /mnt/other ")
	require.NoError(t, err)
	assert.Equal(t, "/mnt/other", out.DataDir)
	assert.Equal(t, "/data/jma", cfg.DataDir)

	_, err = cfg.WithDataDir("")
	require.Error(t, err)
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.Next().String())
	assert.Equal(t, "2024-03-01", d.Next().Next().String())

	_, err = ParseDate("2024-13-01")
	require.Error(t, err)

	dt, err := ParseDate("2024-04-26T00:00:00")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, 4, 26), dt)

	assert.Empty(t, Date{}.String())
}
