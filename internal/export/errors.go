package export

import "fmt"

// RecordError reports the record whose processing aborted a pass.
type RecordError struct {
	Index int
	Path  string // output path; empty when the failure came before naming
	Err   error
}

func (e *RecordError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
