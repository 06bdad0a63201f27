package mullion

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/recording"
	"github.com/gogpu/gg/text"
	"github.com/rs/zerolog"
)

// FrameContextState is the frame protocol position; see FrameContext.
type FrameContextState int32

const (
	FrameIdle      FrameContextState = iota // between frames
	FrameAcquired                           // drawing in progress
	FramePresented                          // submitted, not yet released
	FrameDisposed                           // terminal
)

// approximate retained bytes per recorded command, used for cache budgeting
const cacheBytesPerCommand = 112

// FrameContext owns one window's drawing target and the resources cached
// against it. Every frame follows Idle → FrameAcquired → Presented → Idle;
// BeginFrame refusals (wrong size mid-resize, disposed, still mid-frame)
// mean "skip this frame", never partial state.
//
// BeginFrame, FinishAndPresent, SetDrawableSize and Capture must be called
// from the window's render goroutine. ForceFullPurge, CacheStats and
// PurgeGeneration are safe from any goroutine.
type FrameContext struct {
	state atomic.Int32

	ctx    *gg.Context
	canvas *directCanvas
	replay *replayBackend
	face   text.Face

	presenter  Presenter
	background Color
	w, h       int

	ledger   cacheLedger
	purgeGen atomic.Uint64
	pool     scratchPool

	log zerolog.Logger
}

func newFrameContext(w, h int, presenter Presenter, face text.Face, budget int64, log zerolog.Logger) *FrameContext {
	fc := &FrameContext{
		ctx:        gg.NewContext(w, h),
		face:       face,
		presenter:  presenter,
		background: ColorWhite,
		w:          w,
		h:          h,
		log:        componentLogger(log, "framectx"),
	}
	fc.canvas = newDirectCanvas(fc.ctx, face)
	fc.replay = newReplayBackend(fc.canvas, face)
	fc.ledger.budget.Store(budget)
	return fc
}

// State reports the protocol position.
func (fc *FrameContext) State() FrameContextState {
	return FrameContextState(fc.state.Load())
}

// SetBackground sets the clear color applied at BeginFrame.
func (fc *FrameContext) SetBackground(c Color) {
	fc.background = c
}

// BeginFrame acquires the drawable for one frame. A false return means the
// frame must be skipped: the context is disposed, a frame is already open,
// or the requested size does not match the committed drawable size (the
// caller resolves resizes between frames, never mid-frame).
func (fc *FrameContext) BeginFrame(w, h int) bool {
	if !fc.state.CompareAndSwap(int32(FrameIdle), int32(FrameAcquired)) {
		return false
	}
	if w != fc.w || h != fc.h {
		fc.state.Store(int32(FrameIdle))
		return false
	}
	fc.ctx.Identity()
	fc.ctx.ResetClip()
	fc.ctx.ClearPath()
	fc.ctx.ClearWithColor(fc.background.gg())
	return true
}

// Canvas returns the live drawing surface for the open frame.
func (fc *FrameContext) Canvas() *directCanvas { return fc.canvas }

// FinishAndPresent flushes queued drawing, submits it synchronously and
// hands the finished pixmap to the presenter. The next BeginFrame cannot
// start before submission completes.
func (fc *FrameContext) FinishAndPresent() error {
	if !fc.state.CompareAndSwap(int32(FrameAcquired), int32(FramePresented)) {
		return ErrMidFrame
	}
	defer fc.state.Store(int32(FrameIdle))

	if err := fc.ctx.FlushGPU(); err != nil {
		fc.log.Warn().Err(err).Msg("gpu flush failed, presenting cpu raster")
	}
	if err := fc.canvas.takeErr(); err != nil {
		fc.log.Warn().Err(err).Msg("draw error during frame")
	}
	return fc.presenter.Present(fc.ctx.ResizeTarget())
}

// SetDrawableSize reallocates the drawable. Only legal between frames; a
// resize requested mid-frame is a protocol violation by construction, so it
// is refused rather than raced.
func (fc *FrameContext) SetDrawableSize(w, h int) error {
	s := fc.State()
	if s == FrameDisposed {
		return ErrContextDisposed
	}
	if s != FrameIdle {
		return ErrMidFrame
	}
	if w == fc.w && h == fc.h {
		return nil
	}
	if err := fc.ctx.Resize(w, h); err != nil {
		return err
	}
	fc.w, fc.h = w, h
	return nil
}

// DrawableSize returns the committed drawable size.
func (fc *FrameContext) DrawableSize() (int, int) { return fc.w, fc.h }

// Capture copies the last presented frame. Returns nil mid-frame.
func (fc *FrameContext) Capture() *image.RGBA {
	if fc.State() != FrameIdle {
		return nil
	}
	return fc.ctx.ResizeTarget().ToImage()
}

// ForceFullPurge drops every unlocked cached resource: the scratch pool is
// drained immediately and the purge generation is bumped so the renderer
// disposes its compiled draw lists at the next frame it runs. The cache
// budget is zeroed for the duration so concurrent stores fail instead of
// repopulating what is being evicted.
func (fc *FrameContext) ForceFullPurge() {
	old := fc.ledger.budget.Swap(0)
	fc.pool.drain()
	fc.purgeGen.Add(1)
	fc.ledger.budget.Store(old)
}

// PurgeGeneration counts ForceFullPurge calls. Draw lists stamped with an
// older generation are stale and must be disposed instead of replayed.
func (fc *FrameContext) PurgeGeneration() uint64 {
	return fc.purgeGen.Load()
}

// CacheStats are the live cache counters. Reads are single atomic loads:
// no locks, no allocation, safe at any frequency from any goroutine.
type CacheStats struct {
	Count int64 // live compiled draw lists
	Bytes int64 // estimated retained bytes
}

// CacheStats returns the current cache counters.
func (fc *FrameContext) CacheStats() CacheStats {
	return CacheStats{Count: fc.ledger.count.Load(), Bytes: fc.ledger.bytes.Load()}
}

// footprintBytes estimates the drawable plus pooled scratch memory, for
// memory accounting.
func (fc *FrameContext) footprintBytes() int64 {
	return int64(fc.w)*int64(fc.h)*4 + fc.pool.pooledBytes()
}

// Dispose tears the context down: refuse further frames, flush outstanding
// work, purge caches, then release the drawable. Safe to call twice.
func (fc *FrameContext) Dispose() error {
	prev := fc.state.Swap(int32(FrameDisposed))
	if prev == int32(FrameDisposed) {
		return nil
	}
	if err := fc.ctx.FlushGPU(); err != nil {
		fc.log.Debug().Err(err).Msg("gpu flush on dispose")
	}
	fc.pool.drain()
	fc.purgeGen.Add(1)
	return fc.ctx.Close()
}

// --- Compiled draw lists ---

// drawList is a stored recording with its cache accounting. Disposal is
// single-shot: ownership moves between frames by nulling the source
// reference, so whichever holder disposes first wins and the ledger is
// credited exactly once.
type drawList struct {
	rec    *recording.Recording
	faces  []text.Face
	bytes  int64
	gen    uint64 // purge generation at creation
	ledger *cacheLedger
}

func (d *drawList) dispose() {
	if d == nil || d.rec == nil {
		return
	}
	d.ledger.credit(d.bytes)
	d.rec = nil
	d.faces = nil
}

// estimateRecordingBytes approximates a recording's retained memory: a flat
// cost per command plus the pixels of any images its resource pool keeps
// alive.
func estimateRecordingBytes(rec *recording.Recording) int64 {
	n := int64(len(rec.Commands())) * cacheBytesPerCommand
	for _, cmd := range rec.Commands() {
		if c, ok := cmd.(recording.DrawImageCommand); ok {
			if img := rec.Resources().GetImage(c.Image); img != nil {
				b := img.Bounds()
				n += int64(b.Dx()) * int64(b.Dy()) * 4
			}
		}
	}
	return n
}

// --- Cache ledger ---

// cacheLedger tracks stored draw lists against a byte budget. All fields
// are atomics so render threads charge and the watchdog reads without
// locking.
type cacheLedger struct {
	count  atomic.Int64
	bytes  atomic.Int64
	budget atomic.Int64
}

// tryCharge reserves n bytes, failing when the budget would be exceeded.
// A zero or negative budget rejects everything, which is how purges block
// concurrent repopulation.
func (l *cacheLedger) tryCharge(n int64) bool {
	budget := l.budget.Load()
	for {
		cur := l.bytes.Load()
		if cur+n > budget {
			return false
		}
		if l.bytes.CompareAndSwap(cur, cur+n) {
			l.count.Add(1)
			return true
		}
	}
}

func (l *cacheLedger) credit(n int64) {
	l.bytes.Add(-n)
	l.count.Add(-1)
}

// --- Scratch pool ---

// scratch buffers kept per size class before new releases are dropped
const maxScratchPerBucket = 3

// scratchPool recycles raster buffers bucketed by power-of-two dimensions.
// Acquire rounds the request up to the bucket size and returns a buffer at
// least as large; callers draw into the sub-rectangle they asked for.
type scratchPool struct {
	mu      sync.Mutex
	buckets map[[2]int][]*image.RGBA
	bytes   int64
}

func (p *scratchPool) acquire(w, h int) *image.RGBA {
	pw, ph := nextPow2(w), nextPow2(h)
	p.mu.Lock()
	if bucket := p.buckets[[2]int{pw, ph}]; len(bucket) > 0 {
		img := bucket[len(bucket)-1]
		p.buckets[[2]int{pw, ph}] = bucket[:len(bucket)-1]
		p.bytes -= int64(pw) * int64(ph) * 4
		p.mu.Unlock()
		return img
	}
	p.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, pw, ph))
}

func (p *scratchPool) release(img *image.RGBA) {
	if img == nil {
		return
	}
	b := img.Bounds()
	key := [2]int{b.Dx(), b.Dy()}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buckets == nil {
		p.buckets = make(map[[2]int][]*image.RGBA)
	}
	if len(p.buckets[key]) >= maxScratchPerBucket {
		return // drop, let GC take it
	}
	p.buckets[key] = append(p.buckets[key], img)
	p.bytes += int64(key[0]) * int64(key[1]) * 4
}

func (p *scratchPool) drain() {
	p.mu.Lock()
	p.buckets = nil
	p.bytes = 0
	p.mu.Unlock()
}

func (p *scratchPool) pooledBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}

func nextPow2(v int) int {
	if v < 1 {
		return 1
	}
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}
