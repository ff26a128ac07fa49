package logging

// ProgressSampler thins out progress logging when no terminal is attached to
// draw a bar. It reports true for the first update, whenever the completed
// share enters a new bucket, and once on completion.
type ProgressSampler struct {
	bucket     int
	lastBucket int
	finished   bool
}

// NewProgressSampler returns a sampler with buckets of percent points;
// values outside 1..100 select 5.
func NewProgressSampler(percent int) *ProgressSampler {
	if percent < 1 || percent > 100 {
		percent = 5
	}
	return &ProgressSampler{bucket: percent, lastBucket: -1}
}

// ShouldLog reports whether done of total deserves a log line. A nil sampler
// logs everything.
func (s *ProgressSampler) ShouldLog(done, total int) bool {
	if s == nil {
		return true
	}
	if total <= 0 || done >= total {
		if s.finished {
			return false
		}
		s.finished = true
		return true
	}
	current := done * 100 / total / s.bucket
	if current <= s.lastBucket {
		return false
	}
	s.lastBucket = current
	return true
}
