package domain

import "time"

// RunSummary tallies the outcome of one batch run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Start       string        `json:"start_date"`
	End         string        `json:"end_date"`
	Days        int           `json:"days"`
	MissingDays int           `json:"missing_days"`
	Discovered  int           `json:"discovered"`
	Converted   int           `json:"converted"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	FailedFiles []string      `json:"failed_files,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// Record adds a file outcome to the tallies.
func (s *RunSummary) Record(o FileOutcome) {
	switch o.Status {
	case FileConverted:
		s.Converted++
	case FileSkipped:
		s.Skipped++
	case FileFailed:
		s.Failed++
		s.FailedFiles = append(s.FailedFiles, o.Source)
	}
}

// Processed returns the number of files that reached a final status.
func (s RunSummary) Processed() int {
	return s.Converted + s.Skipped + s.Failed
}

// Clone returns a copy that shares no slices with s.
func (s RunSummary) Clone() RunSummary {
	s.FailedFiles = append([]string(nil), s.FailedFiles...)
	return s
}
