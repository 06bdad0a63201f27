package mullion

import (
	"sync"
	"sync/atomic"
	"time"
)

// wakeSignal is a binary edge signal with set-if-empty semantics: setting
// an already-set signal is a no-op, so producers can fire it at any rate
// and a blocked consumer wakes exactly once.
type wakeSignal chan struct{}

func newWakeSignal() wakeSignal { return make(wakeSignal, 1) }

func (s wakeSignal) set() {
	select {
	case s <- struct{}{}:
	default:
	}
}

// TickSource supplies display refresh pulses. Hosts with a real vblank
// callback push through ManualTickSource; without one the broadcaster falls
// back to a fixed-interval timer.
type TickSource interface {
	C() <-chan time.Time
	Close()
}

type tickerSource struct{ t *time.Ticker }

func (s tickerSource) C() <-chan time.Time { return s.t.C }
func (s tickerSource) Close()              { s.t.Stop() }

// ManualTickSource is a TickSource driven by explicit Tick calls: the
// bridge for host vblank callbacks, and the deterministic clock in tests.
type ManualTickSource struct {
	ch chan time.Time
}

func NewManualTickSource() *ManualTickSource {
	return &ManualTickSource{ch: make(chan time.Time, 1)}
}

// Tick delivers one pulse. Pulses fired while the previous one is still
// undelivered coalesce, like a missed vblank.
func (s *ManualTickSource) Tick() {
	select {
	case s.ch <- time.Now():
	default:
	}
}

func (s *ManualTickSource) C() <-chan time.Time { return s.ch }
func (s *ManualTickSource) Close()              {}

// VSyncBroadcaster fans one refresh clock out to every subscribed render
// loop. Subscription is a wake signal registration: each tick sets all
// registered signals, and a signal that is already set stays set — ticks
// never queue.
//
// Subscribe and Unsubscribe are idempotent and safe from any goroutine.
// Stop wakes all subscribers once more so blocked loops observe their stop
// flags instead of sleeping forever.
type VSyncBroadcaster struct {
	src TickSource

	mu   sync.Mutex
	subs map[wakeSignal]struct{}

	ticks    atomic.Uint64
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewVSyncBroadcaster creates a broadcaster from src, or from a timer at
// hz when src is nil.
func NewVSyncBroadcaster(src TickSource, hz int) *VSyncBroadcaster {
	if src == nil {
		if hz <= 0 {
			hz = 60
		}
		src = tickerSource{t: time.NewTicker(time.Second / time.Duration(hz))}
	}
	return &VSyncBroadcaster{
		src:  src,
		subs: make(map[wakeSignal]struct{}),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the tick goroutine.
func (b *VSyncBroadcaster) Start() {
	go b.run()
}

func (b *VSyncBroadcaster) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			b.broadcast() // final wake; loops observe their stop flags
			return
		case <-b.src.C():
			b.ticks.Add(1)
			b.broadcast()
		}
	}
}

func (b *VSyncBroadcaster) broadcast() {
	b.mu.Lock()
	for s := range b.subs {
		s.set()
	}
	b.mu.Unlock()
}

// Subscribe registers the signal. Re-subscribing is a no-op; a subscriber
// is never registered twice.
func (b *VSyncBroadcaster) Subscribe(s wakeSignal) {
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
}

// Unsubscribe removes the signal. Unknown signals are a no-op.
func (b *VSyncBroadcaster) Unsubscribe(s wakeSignal) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscribed reports whether the signal is currently registered.
func (b *VSyncBroadcaster) Subscribed(s wakeSignal) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[s]
	return ok
}

// Ticks returns the monotonic tick count.
func (b *VSyncBroadcaster) Ticks() uint64 {
	return b.ticks.Load()
}

// Stop halts the clock after one final broadcast and waits for the tick
// goroutine to exit.
func (b *VSyncBroadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		<-b.done
		b.src.Close()
	})
}
