// Package wgrib2 drives the external wgrib2 executable to convert raw GRIB
// files into NetCDF.
package wgrib2

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
)

// maxStderr bounds how much of the tool's stderr is kept for error reports.
const maxStderr = 4096

// Converter runs `<path> <input> -netcdf <output>`.
// It implements stage.NetCDFConverter.
type Converter struct {
	path    string
	timeout time.Duration // zero means no timeout
	logger  *slog.Logger
}

// NewConverter creates a converter for the wgrib2 binary at path.
func NewConverter(path string, timeout time.Duration, logger *slog.Logger) *Converter {
	return &Converter{path: path, timeout: timeout, logger: logger}
}

// Args returns the command-line arguments passed for one conversion.
func Args(input, output string) []string {
	return []string{input, "-netcdf", output}
}

// Convert runs the tool and waits for it. A non-zero exit, a failure to
// start, or a timeout is returned as *domain.ExternalToolError. Cancelling
// ctx kills the process and returns ctx.Err().
func (c *Converter) Convert(ctx context.Context, input, output string) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := Args(input, output)
	cmd := exec.CommandContext(runCtx, c.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		c.logger.Debug("wgrib2 finished", "input", input, "output", output, "duration", time.Since(start))
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	toolErr := &domain.ExternalToolError{
		Tool:     c.path,
		Args:     args,
		ExitCode: -1,
		Stderr:   tail(stderr.String()),
	}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		toolErr.Err = runCtx.Err()
	case errors.As(err, &exitErr):
		toolErr.ExitCode = exitErr.ExitCode()
	default:
		toolErr.Err = err
	}
	return toolErr
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[len(s)-maxStderr:]
	}
	return s
}
