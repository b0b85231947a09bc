package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// StageResult is what a single stage reports after handling one input.
type StageResult struct {
	Stage         string
	Input         string
	Output        string
	CacheHit      bool // output already existed; nothing was recomputed
	SourceRemoved bool // input was deleted under the stage's keep policy
}

// FileStatus is the outcome of driving one raw file through the chain.
type FileStatus string

const (
	FileConverted FileStatus = "converted" // at least one stage recomputed its output
	FileSkipped   FileStatus = "skipped"   // every stage was a cache hit
	FileFailed    FileStatus = "failed"
)

// FileOutcome summarizes one raw file's trip through the stage chain.
type FileOutcome struct {
	Source   string
	Date     time.Time
	Status   FileStatus
	Stages   []StageResult
	Err      error
	Duration time.Duration
}

// FinalOutput returns the output of the last stage that ran, or "".
func (o FileOutcome) FinalOutput() string {
	if len(o.Stages) == 0 {
		return ""
	}
	return o.Stages[len(o.Stages)-1].Output
}

// Outputs lists every stage output that still exists on disk according to
// the stage results: an output survives unless a later stage removed it as
// its source.
func (o FileOutcome) Outputs() []string {
	out := make([]string, 0, len(o.Stages))
	for i, s := range o.Stages {
		if i+1 < len(o.Stages) && o.Stages[i+1].SourceRemoved {
			continue
		}
		out = append(out, s.Output)
	}
	return out
}

// StatusFor derives the file status from its stage results.
func StatusFor(stages []StageResult, err error) FileStatus {
	if err != nil {
		return FileFailed
	}
	for _, s := range stages {
		if !s.CacheHit {
			return FileConverted
		}
	}
	return FileSkipped
}

// ConversionEvent is the notification published for each processed file.
type ConversionEvent struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	Source      string     `json:"source"`
	Date        string     `json:"date"`
	Status      FileStatus `json:"status"`
	Outputs     []string   `json:"outputs,omitempty"`
	CacheHits   int        `json:"cache_hits"`
	Error       string     `json:"error,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	ProcessedAt time.Time  `json:"processed_at"`
}

// NewConversionEvent builds the notification for a file outcome.
func NewConversionEvent(runID string, o FileOutcome) ConversionEvent {
	hits := 0
	for _, s := range o.Stages {
		if s.CacheHit {
			hits++
		}
	}
	ev := ConversionEvent{
		ID:          generateID(o.Source, o.FinalOutput()),
		RunID:       runID,
		Source:      o.Source,
		Date:        o.Date.Format(time.DateOnly),
		Status:      o.Status,
		Outputs:     o.Outputs(),
		CacheHits:   hits,
		DurationMS:  o.Duration.Milliseconds(),
		ProcessedAt: clock.Now().UTC(),
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
	}
	return ev
}

// generateID produces a deterministic ID from the source and final output
// paths. Re-running the same file yields the same ID.
func generateID(source, output string) string {
	hash := sha256.Sum256([]byte(source + "|" + output))
	return hex.EncodeToString(hash[:8])
}
