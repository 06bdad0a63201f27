package mullion

// frameMeter measures presentation cadence over a sliding window of
// recent frames. Reads and marks come from different goroutines (render
// thread marks, HUDs and tests read), so the ring is mutex-guarded; with
// 64 samples a 60 Hz window spans roughly one second.

import (
	"sync"
	"time"
)

const meterWindow = 64

type frameMeter struct {
	mu      sync.Mutex
	samples [meterWindow]time.Time
	head    int
	count   int
}

// mark records one presented frame.
func (m *frameMeter) mark(t time.Time) {
	m.mu.Lock()
	m.samples[m.head] = t
	m.head = (m.head + 1) % meterWindow
	if m.count < meterWindow {
		m.count++
	}
	m.mu.Unlock()
}

// rate returns frames per second over the sample window. Stale samples
// older than a second before now are ignored, so an idle window decays to
// zero instead of reporting its last burst forever.
func (m *frameMeter) rate(now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count < 2 {
		return 0
	}
	cutoff := now.Add(-time.Second)
	var oldest, newest time.Time
	n := 0
	for i := 0; i < m.count; i++ {
		s := m.samples[(m.head-1-i+2*meterWindow)%meterWindow]
		if s.Before(cutoff) {
			break
		}
		if n == 0 {
			newest = s
		}
		oldest = s
		n++
	}
	if n < 2 {
		return 0
	}
	span := newest.Sub(oldest).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(n-1) / span
}
