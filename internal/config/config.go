// Package config loads the run configuration from a YAML or TOML file,
// applies environment overrides, and validates it once. The resulting Config
// is passed by pointer and never mutated afterwards; CLI overrides go through
// WithRange and WithDataDir, which return a new validated copy.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of a conversion run.
type Config struct {
	DataDir   string `yaml:"data_dir" toml:"data_dir"`
	StartDate Date   `yaml:"start_date" toml:"start_date"`
	EndDate   Date   `yaml:"end_date" toml:"end_date"`

	WgribPath           string `yaml:"wgrib_path" toml:"wgrib_path"`
	WgribTimeoutSeconds int    `yaml:"wgrib_timeout_seconds" toml:"wgrib_timeout_seconds"`
	FilePattern         string `yaml:"file_pattern" toml:"file_pattern"`
	Variable            string `yaml:"variable" toml:"variable"`

	// Keep-source flags: when false the stage deletes its input once its
	// output is valid.
	BinSave bool `yaml:"bin_save" toml:"bin_save"`
	NcSave  bool `yaml:"nc_save" toml:"nc_save"`
	TifSave bool `yaml:"tif_save" toml:"tif_save"`

	AscSave bool `yaml:"asc_save" toml:"asc_save"`
	Extract bool `yaml:"extract" toml:"extract"`

	AnalData    domain.GridSpec `yaml:"anal_data" toml:"anal_data"`
	ExtractData domain.GridSpec `yaml:"extract_data" toml:"extract_data"`

	LogLevel    string `yaml:"log_level" toml:"log_level"`
	LogFormat   string `yaml:"log_format" toml:"log_format"`
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`

	Kafka KafkaConfig `yaml:"kafka" toml:"kafka"`

	ShutdownTimeout time.Duration `yaml:"-" toml:"-"`
}

// KafkaConfig enables conversion event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" toml:"brokers"`
	Topic   string   `yaml:"topic" toml:"topic"`
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		WgribPath:   defaultWgribPath,
		FilePattern: defaultFilePattern,
		Variable:    defaultVariable,
		BinSave:     true,
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
		Kafka:       KafkaConfig{Topic: defaultKafkaTopic},
	}
}

// Load reads, overrides from the environment, and validates the configuration
// file at path. The format is chosen by extension: .toml is TOML, anything
// else YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration bytes on top of Default without validating.
// ext selects the format the way Load does.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	if strings.EqualFold(ext, ".toml") {
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return err
	}
	c.ShutdownTimeout = shutdownTimeout

	c.LogLevel = sharedcfg.EnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = sharedcfg.EnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.MetricsAddr = sharedcfg.EnvOrDefault("METRICS_ADDR", c.MetricsAddr)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = sharedcfg.ParseBrokers(v)
	}
	c.Kafka.Topic = sharedcfg.EnvOrDefault("KAFKA_TOPIC", c.Kafka.Topic)
	return nil
}

func (c *Config) normalize() {
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.WgribPath = strings.TrimSpace(c.WgribPath)
	if c.WgribPath == "" {
		c.WgribPath = defaultWgribPath
	}
	if strings.TrimSpace(c.FilePattern) == "" {
		c.FilePattern = defaultFilePattern
	}
	if strings.TrimSpace(c.Variable) == "" {
		c.Variable = defaultVariable
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
}

// WithRange returns a validated copy with the date range replaced. Zero dates
// keep the current value.
func (c *Config) WithRange(start, end Date) (*Config, error) {
	out := *c
	if !start.IsZero() {
		out.StartDate = start
	}
	if !end.IsZero() {
		out.EndDate = end
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// WithDataDir returns a validated copy rooted at dir.
func (c *Config) WithDataDir(dir string) (*Config, error) {
	out := *c
	out.DataDir = strings.TrimSpace(dir)
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// WgribTimeout returns the converter timeout; zero means none.
func (c *Config) WgribTimeout() time.Duration {
	return time.Duration(c.WgribTimeoutSeconds) * time.Second
}

// KafkaEnabled reports whether conversion events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// Days returns the number of calendar days in the inclusive range.
func (c *Config) Days() int {
	return int(c.EndDate.Sub(c.StartDate.Time)/(24*time.Hour)) + 1
}
