package mullion

import (
	"testing"
	"time"
)

func TestFrameMeterSteadyCadence(t *testing.T) {
	var m frameMeter
	base := time.Now()
	// 60 Hz cadence: one mark every 16ms.
	for i := 0; i < 30; i++ {
		m.mark(base.Add(time.Duration(i) * 16 * time.Millisecond))
	}
	now := base.Add(29 * 16 * time.Millisecond)

	got := m.rate(now)
	if got < 55 || got > 70 {
		t.Errorf("rate = %.1f for 16ms cadence, want ~62.5", got)
	}
}

func TestFrameMeterNeedsTwoSamples(t *testing.T) {
	var m frameMeter
	if got := m.rate(time.Now()); got != 0 {
		t.Errorf("rate with no samples = %v, want 0", got)
	}
	m.mark(time.Now())
	if got := m.rate(time.Now()); got != 0 {
		t.Errorf("rate with one sample = %v, want 0", got)
	}
}

func TestFrameMeterDecaysWhenIdle(t *testing.T) {
	var m frameMeter
	base := time.Now()
	for i := 0; i < 10; i++ {
		m.mark(base.Add(time.Duration(i) * 16 * time.Millisecond))
	}

	// Two seconds later every sample is stale and the window reads idle.
	if got := m.rate(base.Add(2 * time.Second)); got != 0 {
		t.Errorf("rate after going idle = %v, want 0", got)
	}
}

func TestFrameMeterIgnoresStaleBurst(t *testing.T) {
	var m frameMeter
	base := time.Now()
	// An old fast burst followed by two recent slow frames: only the recent
	// cadence counts.
	for i := 0; i < 10; i++ {
		m.mark(base.Add(time.Duration(i) * time.Millisecond))
	}
	m.mark(base.Add(3 * time.Second))
	m.mark(base.Add(3*time.Second + 100*time.Millisecond))

	got := m.rate(base.Add(3*time.Second + 100*time.Millisecond))
	if got < 8 || got > 12 {
		t.Errorf("rate = %.1f, want ~10 from the recent frames only", got)
	}
}

func TestFrameMeterRingWraps(t *testing.T) {
	var m frameMeter
	base := time.Now()
	// More marks than the ring holds; rate still reflects the newest window.
	for i := 0; i < meterWindow*2; i++ {
		m.mark(base.Add(time.Duration(i) * 10 * time.Millisecond))
	}
	now := base.Add(time.Duration(meterWindow*2-1) * 10 * time.Millisecond)

	got := m.rate(now)
	if got < 90 || got > 110 {
		t.Errorf("rate = %.1f for 10ms cadence after wrap, want ~100", got)
	}
}
