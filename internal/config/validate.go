package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRange(); err != nil {
		return err
	}
	if c.WgribTimeoutSeconds < 0 {
		return errors.New("wgrib_timeout_seconds must not be negative")
	}
	if _, err := filepath.Match(c.FilePattern, ""); err != nil {
		return fmt.Errorf("file_pattern %q is invalid: %w", c.FilePattern, err)
	}
	if err := validateGridSpec("anal_data", c.AnalData); err != nil {
		return err
	}
	if c.Extract {
		if err := validateGridSpec("extract_data", c.ExtractData); err != nil {
			return err
		}
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	if c.KafkaEnabled() && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when kafka.brokers is set")
	}
	return nil
}

func (c *Config) validateRange() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.StartDate.IsZero() {
		return errors.New("start_date is required")
	}
	if c.EndDate.IsZero() {
		return errors.New("end_date is required")
	}
	if c.EndDate.Before(c.StartDate.Time) {
		return fmt.Errorf("end_date %s is before start_date %s", c.EndDate, c.StartDate)
	}
	return nil
}

func validateGridSpec(key string, s domain.GridSpec) error {
	switch {
	case s.Cols <= 0:
		return fmt.Errorf("%s.cols must be positive", key)
	case s.Rows <= 0:
		return fmt.Errorf("%s.rows must be positive", key)
	case s.Band < 1:
		return fmt.Errorf("%s.band must be at least 1", key)
	case s.DX <= 0:
		return fmt.Errorf("%s.cellsize_dx must be positive", key)
	case s.DY <= 0:
		return fmt.Errorf("%s.cellsize_dy must be positive", key)
	}
	return nil
}
