package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = "/data/2024/04/26/jma_20240426.bin"

func testStages(hits ...bool) []StageResult {
	names := []string{"grib2nc", "nc2tif", "extract", "tif2asc"}
	outputs := []string{
		testSource + ".nc",
		testSource + ".nc.tif",
		testSource + ".nc.tif_extract.tif",
		testSource + ".nc.tif_extract.tif.asc",
	}
	stages := make([]StageResult, len(hits))
	for i, hit := range hits {
		stages[i] = StageResult{Stage: names[i], Output: outputs[i], CacheHit: hit}
	}
	return stages
}

func TestStatusFor(t *testing.T) {
	t.Run("all cache hits is skipped", func(t *testing.T) {
		assert.Equal(t, FileSkipped, StatusFor(testStages(true, true, true), nil))
	})

	t.Run("any recompute is converted", func(t *testing.T) {
		assert.Equal(t, FileConverted, StatusFor(testStages(true, false, true), nil))
	})

	t.Run("error wins", func(t *testing.T) {
		assert.Equal(t, FileFailed, StatusFor(testStages(false), errors.New("boom")))
	})
}

func TestFileOutcomeOutputs(t *testing.T) {
	stages := testStages(false, false, false, false)
	stages[1].SourceRemoved = true // .nc removed by nc2tif
	stages[2].SourceRemoved = true // .tif removed by extract
	o := FileOutcome{Source: testSource, Stages: stages}

	assert.Equal(t, []string{
		testSource + ".nc.tif_extract.tif",
		testSource + ".nc.tif_extract.tif.asc",
	}, o.Outputs())
	assert.Equal(t, testSource+".nc.tif_extract.tif.asc", o.FinalOutput())
	assert.Empty(t, FileOutcome{}.FinalOutput())
}

func TestGenerateID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, generateID(testSource, "a.asc"), generateID(testSource, "a.asc"))
	})

	t.Run("different outputs produce different IDs", func(t *testing.T) {
		assert.NotEqual(t, generateID(testSource, "a.asc"), generateID(testSource, "b.asc"))
	})

	t.Run("fixed length hex", func(t *testing.T) {
		assert.Len(t, generateID("", ""), 16)
	})
}

func TestNewConversionEvent(t *testing.T) {
	fixedTime := time.Date(2024, 4, 27, 3, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	t.Cleanup(func() { SetClock(nil) })

	day := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)

	t.Run("converted file", func(t *testing.T) {
		stages := testStages(true, false)
		o := FileOutcome{Source: testSource, Date: day, Status: FileConverted, Stages: stages, Duration: 1500 * time.Millisecond}

		ev := NewConversionEvent("run-1", o)

		assert.Equal(t, generateID(testSource, testSource+".nc.tif"), ev.ID)
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, "2024-04-26", ev.Date)
		assert.Equal(t, FileConverted, ev.Status)
		assert.Equal(t, 1, ev.CacheHits)
		assert.Equal(t, int64(1500), ev.DurationMS)
		assert.Equal(t, fixedTime, ev.ProcessedAt)
		assert.Empty(t, ev.Error)
	})

	t.Run("failed file carries error", func(t *testing.T) {
		err := &StageError{Stage: "nc2tif", Input: testSource + ".nc", Err: ErrShapeMismatch}
		o := FileOutcome{Source: testSource, Date: day, Status: FileFailed, Stages: testStages(true), Err: err}

		ev := NewConversionEvent("run-1", o)

		assert.Equal(t, FileFailed, ev.Status)
		assert.Contains(t, ev.Error, "shape mismatch")
	})

	t.Run("json field names", func(t *testing.T) {
		ev := NewConversionEvent("run-1", FileOutcome{Source: testSource, Date: day, Status: FileSkipped})
		data, err := json.Marshal(ev)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Equal(t, "skipped", m["status"])
		assert.Equal(t, testSource, m["source"])
		assert.Equal(t, "2024-04-27T03:00:00Z", m["processed_at"])
		assert.NotContains(t, m, "error")
	})
}

func TestSetClock(t *testing.T) {
	fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	assert.Equal(t, fixedTime, clock.Now())

	SetClock(nil)
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}

func TestErrorTaxonomy(t *testing.T) {
	toolErr := &ExternalToolError{Tool: "wgrib2", Args: []string{"in.bin", "-netcdf", "in.bin.nc"}, ExitCode: 3, Stderr: "bad grib"}

	t.Run("external tool failure is fatal", func(t *testing.T) {
		wrapped := &StageError{Stage: "grib2nc", Input: "in.bin", Err: toolErr}
		assert.ErrorIs(t, wrapped, ErrExternalTool)
		assert.True(t, IsFatal(wrapped))
		assert.Contains(t, toolErr.Error(), "exit code 3")
		assert.Contains(t, toolErr.Error(), "bad grib")
	})

	t.Run("other failures are per file", func(t *testing.T) {
		assert.False(t, IsFatal(&StageError{Stage: "extract", Err: ErrOutOfBoundsCrop}))
		assert.False(t, IsFatal(ErrFormatWrite))
	})

	t.Run("stage error message", func(t *testing.T) {
		err := &StageError{Stage: "tif2asc", Input: "x.tif", Err: ErrFormatWrite}
		assert.Equal(t, "stage tif2asc (x.tif): format write failure", err.Error())
	})
}
