package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/storm-grid-etl/internal/geometry"
)

var (
	// ErrExternalTool marks a failure of the external GRIB-to-NetCDF
	// converter. It is fatal to the whole run.
	ErrExternalTool = errors.New("external tool failure")

	// ErrOutOfBoundsCrop marks a crop window that does not fit the source.
	ErrOutOfBoundsCrop = geometry.ErrOutOfBounds

	// ErrMissingInput marks an absent input, such as a missing day directory.
	ErrMissingInput = errors.New("missing input")

	// ErrFormatWrite marks an encoder that could not write its output.
	ErrFormatWrite = errors.New("format write failure")

	// ErrShapeMismatch marks array data whose shape disagrees with its
	// declared or configured dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// ExternalToolError describes a non-zero exit (or failed start) of the
// external converter.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int // -1 when the process never ran to completion
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s %s: exit code %d", e.Tool, strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

func (e *ExternalToolError) Is(target error) bool { return target == ErrExternalTool }

// StageError attributes a failure to one stage and input file.
type StageError struct {
	Stage string
	Input string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Input, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort the whole run rather than just the
// current file.
func IsFatal(err error) bool {
	return errors.Is(err, ErrExternalTool)
}
