package analysis

import "sync"

const (
	// MaxFailures caps the detailed analysis failure list.
	MaxFailures = 100
	// MaxTagErrors caps the detailed tag error list.
	MaxTagErrors = 50
)

// Failure describes one track that could not be analysed.
type Failure struct {
	ID    string
	Path  string
	Kind  string
	Error string
}

// FailureLog keeps the first Limit entries and counts the rest.
type FailureLog struct {
	mu      sync.Mutex
	limit   int
	entries []Failure
	total   int
}

// NewFailureLog returns a log holding at most limit entries.
func NewFailureLog(limit int) *FailureLog {
	return &FailureLog{limit: limit}
}

// Add records a failure.
func (l *FailureLog) Add(f Failure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total++
	if len(l.entries) < l.limit {
		l.entries = append(l.entries, f)
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (l *FailureLog) Entries() []Failure {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Failure, len(l.entries))
	copy(out, l.entries)
	return out
}

// Total returns the number of failures recorded, including dropped ones.
func (l *FailureLog) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
