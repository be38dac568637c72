package domain

// SessionStats is mutated only by the session runner and reported once the
// session ends.
type SessionStats struct {
	Applied     int
	Skipped     int
	Errors      int
	SkipReasons map[string]int
}

func NewSessionStats() *SessionStats {
	return &SessionStats{SkipReasons: make(map[string]int)}
}

func (s *SessionStats) CountSkip(reason string) {
	s.Skipped++
	s.SkipReasons[reason]++
}
