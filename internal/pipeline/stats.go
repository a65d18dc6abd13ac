package pipeline

import "github.com/backmassage/tiffexport/internal/export"

// RunStats aggregates the export passes of one run, one per document.
type RunStats struct {
	Documents int
	export.Stats
}

// add folds the counters of one pass into s.
func (s *RunStats) add(o export.Stats) {
	s.Documents++
	s.Total += o.Total
	s.Selected += o.Selected
	s.Written += o.Written
	s.Skipped += o.Skipped
	s.Removed += o.Removed
	s.Failed += o.Failed
	s.BytesWritten += o.BytesWritten
}
