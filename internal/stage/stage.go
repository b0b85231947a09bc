// Package stage implements the four file conversions of the grid pipeline.
//
// Every stage shares one contract: derive the output name from the input,
// skip the work when a valid output already exists, otherwise write the output
// atomically, and finally apply the stage's keep-source policy. The policy is
// evaluated on cache hits and misses alike, and only after the output is known
// to be valid.
package stage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
)

// Stage names, in pipeline order.
const (
	NameGribToNetCDF   = "grib2nc"
	NameNetCDFToRaster = "nc2tif"
	NameExtractRegion  = "extract"
	NameRasterToText   = "tif2asc"
)

const tmpSuffix = ".tmp"

// convertFunc writes the stage output for input to output.
type convertFunc func(ctx context.Context, input, output string) error

// Stage is one idempotent file conversion.
type Stage struct {
	name       string
	suffix     string
	keepSource bool
	convert    convertFunc
}

// Name returns the stage name used in logs and metrics.
func (s *Stage) Name() string { return s.name }

// OutputPath returns the file the stage produces for input.
func (s *Stage) OutputPath(input string) string { return input + s.suffix }

// KeepSource reports whether the stage leaves its input in place.
func (s *Stage) KeepSource() bool { return s.keepSource }

// Run converts input unless a valid output already exists, then applies the
// keep-source policy. Failures are returned as *domain.StageError.
func (s *Stage) Run(ctx context.Context, input string) (domain.StageResult, error) {
	res := domain.StageResult{Stage: s.name, Input: input, Output: s.OutputPath(input)}
	if err := ctx.Err(); err != nil {
		return res, s.fail(input, err)
	}

	hit, err := ValidOutput(res.Output)
	if err != nil {
		return res, s.fail(input, err)
	}
	res.CacheHit = hit

	if !hit {
		if err := s.produce(ctx, input, res.Output); err != nil {
			return res, s.fail(input, err)
		}
	}

	if !s.keepSource {
		removed, err := removeIfExists(input)
		if err != nil {
			return res, s.fail(input, fmt.Errorf("remove source: %w", err))
		}
		res.SourceRemoved = removed
	}
	return res, nil
}

func (s *Stage) produce(ctx context.Context, input, output string) error {
	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrMissingInput, input)
		}
		return err
	}

	tmp := output + tmpSuffix
	if _, err := removeIfExists(tmp); err != nil {
		return fmt.Errorf("clear stale %s: %w", tmp, err)
	}
	if err := s.convert(ctx, input, tmp); err != nil {
		_, _ = removeIfExists(tmp)
		return err
	}
	ok, err := ValidOutput(tmp)
	if err != nil {
		return err
	}
	if !ok {
		_, _ = removeIfExists(tmp)
		return fmt.Errorf("%w: %s is missing or empty", domain.ErrFormatWrite, tmp)
	}
	if err := os.Rename(tmp, output); err != nil {
		_, _ = removeIfExists(tmp)
		return fmt.Errorf("%w: %w", domain.ErrFormatWrite, err)
	}
	return nil
}

func (s *Stage) fail(input string, err error) error {
	return &domain.StageError{Stage: s.name, Input: input, Err: err}
}

// ValidOutput reports whether path is a regular, non-empty file. A missing
// file is not an error.
func ValidOutput(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

func removeIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
