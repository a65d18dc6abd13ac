package export

// Stats tracks what a pass did, record by record.
type Stats struct {
	Total        int // records in the header
	Selected     int
	Written      int // includes would-be writes under dry run
	Skipped      int
	Removed      int
	Failed       int
	BytesWritten int64
}

// Processed returns how many selected records reached a final state.
func (s *Stats) Processed() int {
	return s.Written + s.Skipped + s.Failed
}
