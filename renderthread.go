package mullion

import (
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// renderLoop runs one window's frames on a dedicated goroutine pinned to an
// OS thread. It blocks on its wake signal and renders only while redraws are
// pending, keeping subscription to the refresh broadcaster demand-driven:
//
//   - A wake with a pending request subscribes (idempotent) before rendering,
//     then renders one frame. When the frame reports further work the request
//     re-arms itself and the next refresh tick drives the next frame.
//   - A wake with nothing pending unsubscribes and goes back to blocking.
//     RequestRedraw sets the signal directly, so an idle loop never needs
//     the broadcaster to come back to life.
//
// Because unsubscription happens on the first empty wake rather than after
// the last render, the frame after an animation settles still runs once and
// draws the settled scene before the loop idles. Keep that ordering: callers
// rely on the settled frame being presented.
//
// A panic inside the frame callback is logged with its stack and the loop
// keeps running; one bad frame must not take the window down.
type renderLoop struct {
	bc    *VSyncBroadcaster
	wake  wakeSignal
	frame func() bool // renders one frame; reports whether more work follows
	log   zerolog.Logger

	pending atomic.Bool
	halt    atomic.Bool
	frames  atomic.Uint64
	panics  atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

func newRenderLoop(bc *VSyncBroadcaster, frame func() bool, log zerolog.Logger) *renderLoop {
	return &renderLoop{
		bc:    bc,
		wake:  newWakeSignal(),
		frame: frame,
		log:   log,
		done:  make(chan struct{}),
	}
}

// Start launches the loop goroutine. Subsequent calls are no-ops.
func (l *renderLoop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// RequestRedraw marks a frame as wanted and wakes the loop. Safe from any
// goroutine; requests made while a frame is in flight coalesce into the
// next one.
func (l *renderLoop) RequestRedraw() {
	l.pending.Store(true)
	l.wake.set()
}

// Frames returns the number of frames rendered, panicked ones included.
func (l *renderLoop) Frames() uint64 { return l.frames.Load() }

// Panics returns the number of frames that ended in a recovered panic.
func (l *renderLoop) Panics() uint64 { return l.panics.Load() }

// Stop asks the loop to exit and waits up to timeout for it. On timeout the
// goroutine is abandoned mid-frame and ErrStopTimeout is returned; it still
// exits on its own once the stuck frame completes.
func (l *renderLoop) Stop(timeout time.Duration) error {
	l.stopOnce.Do(func() {
		l.halt.Store(true)
		l.wake.set()
	})
	select {
	case <-l.done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

func (l *renderLoop) run() {
	// GPU surfaces are thread-affine; every frame of this window runs on
	// the same OS thread for the life of the loop.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)
	defer l.bc.Unsubscribe(l.wake)

	for range l.wake {
		if l.halt.Load() {
			return
		}
		if !l.pending.Swap(false) {
			l.bc.Unsubscribe(l.wake)
			continue
		}
		l.bc.Subscribe(l.wake)
		if l.renderOne() {
			l.pending.Store(true)
		}
	}
}

func (l *renderLoop) renderOne() (more bool) {
	defer func() {
		l.frames.Add(1)
		if r := recover(); r != nil {
			l.panics.Add(1)
			more = false
			l.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("frame panicked; continuing")
		}
	}()
	return l.frame()
}
