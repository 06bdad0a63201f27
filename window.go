package mullion

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg/text"
	"github.com/rs/zerolog"
)

// FrameState is the per-window, per-frame input snapshot handed to the
// content provider. The scheduling loop mutates it between frames; the
// render thread copies it under the window lock and passes the copy to
// BuildScene, so a provider never observes a half-updated state.
type FrameState struct {
	Width  int     // drawable width in pixels, frozen during interactive resize
	Height int     // drawable height in pixels
	Scale  float64 // host DPI scale

	PointerX, PointerY float64
	Buttons            PointerButtons
	ScrollDX, ScrollDY float64 // wheel deltas accumulated since the last frame

	Elapsed    time.Duration // since the window's first frame
	Delta      time.Duration // since the previous frame
	FrameCount uint64

	InContainer bool
	InTabGroup  bool
	AlwaysOnTop bool
}

// ManagedWindow is one logical window: a content provider, a frame context
// and a dedicated render loop. The compositor owns the arrangement a window
// participates in; the window owns its rendering.
//
// Locking: mu guards provider, input state, hit regions and the frame rect.
// The render thread holds mu for the full duration of a frame, so provider
// swaps and state writes always land between frames. prev and the hit
// scratch buffer are owned by the render thread alone.
type ManagedWindow struct {
	id    uint64
	title string

	mu        sync.Mutex
	provider  ContentProvider
	provType  string // registry factory name, "" when constructed directly
	direct    DirectDrawer
	anim      Animating
	scroll    ScrollHandler
	keys      KeyHandler
	state     FrameState
	frame     Rect // position+size on the virtual desktop
	visible   bool
	mode      LayoutMode
	container uint64 // owning bind container id, 0 = none
	group     uint64 // owning tab group id, 0 = none
	hits      []HitRegion

	wantW, wantH int // latest host drawable size
	resizedAt    time.Time

	resetTree atomic.Bool // drop the previous tree before the next diff

	fc   *FrameContext
	loop *renderLoop

	// Render-thread-owned.
	prev       *SceneNode
	hitScratch []HitRegion
	started    time.Time
	lastFrame  time.Time

	meter frameMeter

	cfg Config
	log zerolog.Logger
}

func newManagedWindow(id uint64, title string, p ContentProvider, provType string,
	pres Presenter, face text.Face, bc *VSyncBroadcaster, cfg Config, log zerolog.Logger) *ManagedWindow {

	w0, h0 := pres.DrawableSize()
	now := time.Now()
	w := &ManagedWindow{
		id:        id,
		title:     title,
		visible:   true,
		mode:      ModeStandalone,
		frame:     Rect{0, 0, float64(w0), float64(h0)},
		wantW:     w0,
		wantH:     h0,
		started:   now,
		lastFrame: now,
		cfg:       cfg,
		log:       componentLogger(log, "window").With().Uint64("id", id).Logger(),
	}
	w.state = FrameState{Width: w0, Height: h0, Scale: 1}
	w.fc = newFrameContext(w0, h0, pres, face, cfg.CacheBudgetBytes, w.log)
	w.loop = newRenderLoop(bc, w.renderFrame, w.log)
	w.setProviderLocked(p, provType)
	return w
}

func (w *ManagedWindow) start() { w.loop.Start() }

// --- Accessors ---

func (w *ManagedWindow) ID() uint64    { return w.id }
func (w *ManagedWindow) Title() string { return w.title }

// Frame returns the window's rect on the virtual desktop.
func (w *ManagedWindow) Frame() Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame
}

// SetFrame moves/sizes the window on the virtual desktop. The drawable is
// unaffected; hosts call SetSize when the surface itself changes.
func (w *ManagedWindow) SetFrame(r Rect) {
	w.mu.Lock()
	w.frame = r
	w.mu.Unlock()
}

// Visible reports whether the window currently renders.
func (w *ManagedWindow) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// SetVisible shows or hides the window. Hidden windows render nothing and
// their loops idle; showing requests a frame.
func (w *ManagedWindow) SetVisible(v bool) {
	w.mu.Lock()
	was := w.visible
	w.visible = v
	w.mu.Unlock()
	if v && !was {
		w.RequestRedraw()
	}
}

// Mode returns the window's current composition mode.
func (w *ManagedWindow) Mode() LayoutMode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// RequestRedraw schedules one frame. Safe from any goroutine.
func (w *ManagedWindow) RequestRedraw() { w.loop.RequestRedraw() }

// AlwaysOnTop reports whether the window floats above normal stacking.
func (w *ManagedWindow) AlwaysOnTop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.AlwaysOnTop
}

// SetAlwaysOnTop floats the window above normal stacking; desktop dispatch
// prefers it when frames overlap.
func (w *ManagedWindow) SetAlwaysOnTop(v bool) {
	w.mu.Lock()
	w.state.AlwaysOnTop = v
	w.mu.Unlock()
}

// CacheStats returns the window's live cache counters.
func (w *ManagedWindow) CacheStats() CacheStats { return w.fc.CacheStats() }

// Capture returns a copy of the last presented frame, or nil mid-frame.
func (w *ManagedWindow) Capture() *image.RGBA { return w.fc.Capture() }

// FPS reports the presented-frame rate over the last second. An idle window
// reads 0 once its frames age out of the measurement window.
func (w *ManagedWindow) FPS() float64 { return w.meter.rate(time.Now()) }

// --- Host events ---

// SetSize records a host drawable resize. The drawable itself stays frozen
// until resize activity quiesces for the debounce window; in between the
// presenter scales frozen frames to the host size.
func (w *ManagedWindow) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.mu.Lock()
	w.wantW, w.wantH = width, height
	w.resizedAt = time.Now()
	w.mu.Unlock()
	w.RequestRedraw()
}

// SetScale records the host DPI scale.
func (w *ManagedWindow) SetScale(s float64) {
	if s <= 0 {
		return
	}
	w.mu.Lock()
	w.state.Scale = s
	w.mu.Unlock()
	w.RequestRedraw()
}

// --- Input state (called by the scheduling loop) ---

func (w *ManagedWindow) pointerTo(x, y float64) {
	w.mu.Lock()
	w.state.PointerX, w.state.PointerY = x, y
	w.mu.Unlock()
}

func (w *ManagedWindow) setButtons(b PointerButtons) {
	w.mu.Lock()
	w.state.Buttons = b
	w.mu.Unlock()
}

func (w *ManagedWindow) addScroll(dx, dy float64) {
	w.mu.Lock()
	w.state.ScrollDX += dx
	w.state.ScrollDY += dy
	h := w.scroll
	w.mu.Unlock()
	if h != nil {
		h.HandleScroll(dx, dy)
	}
}

func (w *ManagedWindow) key(key string, down bool) {
	w.mu.Lock()
	h := w.keys
	w.mu.Unlock()
	if h != nil {
		h.HandleKey(key, down)
	}
}

// HitAt resolves the topmost hit region at window-local (x, y), falling
// back to the provider's coarse HitTest when no region matches.
func (w *ManagedWindow) HitAt(x, y float64) (action string, cursor Cursor, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r := hitTest(w.hits, x, y); r != nil {
		return r.Action, r.Cursor, true
	}
	if w.provider != nil {
		a, c := w.provider.HitTest(x, y, float64(w.state.Width), float64(w.state.Height))
		if a != "" {
			return a, c, true
		}
	}
	return "", CursorDefault, false
}

// --- Provider management ---

// setProviderLocked publishes a provider and caches its optional
// capabilities, the single place type assertions happen.
func (w *ManagedWindow) setProviderLocked(p ContentProvider, provType string) {
	w.provider = p
	w.provType = provType
	w.direct = nil
	w.anim = nil
	w.scroll = nil
	w.keys = nil
	if p == nil {
		return
	}
	if d, ok := p.(DirectDrawer); ok {
		w.direct = d
	}
	if a, ok := p.(Animating); ok {
		w.anim = a
	}
	if s, ok := p.(ScrollHandler); ok {
		w.scroll = s
	}
	if k, ok := p.(KeyHandler); ok {
		w.keys = k
	}
}

// swapProvider hot-swaps the provider, transferring state when both sides
// support it. The previous tree and its caches are dropped so the next
// frame starts from scratch.
func (w *ManagedWindow) swapProvider(p ContentProvider, provType string) {
	w.mu.Lock()
	old := w.provider
	if old != nil {
		transferState(old, p)
	}
	w.setProviderLocked(p, provType)
	w.resetTree.Store(true)
	w.mu.Unlock()
	if old != nil {
		old.Dispose()
	}
	w.RequestRedraw()
}

// setMode records the arrangement a window belongs to and mirrors it into
// the frame state flags providers read.
func (w *ManagedWindow) setMode(mode LayoutMode, container, group uint64) {
	w.mu.Lock()
	w.mode = mode
	w.container = container
	w.group = group
	w.state.InContainer = mode == ModeContainerSlot
	w.state.InTabGroup = mode == ModeTabGroup
	w.mu.Unlock()
}

// record snapshots the window for workspace capture. The provider's
// Config call runs outside the window lock, like input capability calls.
func (w *ManagedWindow) record() (provType string, frame Rect, config []byte) {
	w.mu.Lock()
	provType = w.provType
	frame = w.frame
	conf, _ := w.provider.(Configurable)
	w.mu.Unlock()
	if conf != nil {
		config = conf.Config()
	}
	return provType, frame, config
}

// applyConfig hands a captured config blob back to the provider.
func (w *ManagedWindow) applyConfig(blob []byte) {
	if len(blob) == 0 {
		return
	}
	w.mu.Lock()
	conf, _ := w.provider.(Configurable)
	w.mu.Unlock()
	if conf == nil {
		return
	}
	conf.ApplyConfig(blob)
	w.RequestRedraw()
}

// purgeCaches evicts the window's cached resources and schedules the frame
// that re-records what is still needed.
func (w *ManagedWindow) purgeCaches() {
	w.fc.ForceFullPurge()
	w.RequestRedraw()
}

// accountedBytes is the window's contribution to watchdog accounting:
// cached draw lists plus drawable and pooled scratch memory.
func (w *ManagedWindow) accountedBytes() int64 {
	return w.fc.CacheStats().Bytes + w.fc.footprintBytes()
}

// stop tears the window down: render loop join, then frame context, then
// provider. A timed-out join is logged and teardown continues; the stuck
// frame fails its next context call instead of blocking shutdown.
func (w *ManagedWindow) stop(timeout time.Duration) {
	if err := w.loop.Stop(timeout); err != nil {
		w.log.Error().Err(err).Msg("render loop did not stop in time")
	} else if w.prev != nil {
		w.prev.disposeCaches()
		w.prev = nil
	}
	if err := w.fc.Dispose(); err != nil {
		w.log.Debug().Err(err).Msg("frame context dispose")
	}
	w.mu.Lock()
	p := w.provider
	w.setProviderLocked(nil, "")
	w.mu.Unlock()
	if p != nil {
		p.Dispose()
	}
}

// --- Frame ---

// renderFrame runs one frame on the render thread and reports whether more
// frames should follow immediately. It holds the window lock end to end:
// every mutation from the scheduling loop lands on a frame boundary.
func (w *ManagedWindow) renderFrame() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.visible || w.provider == nil {
		return false
	}

	// Resolve resize between frames. While events are still arriving the
	// drawable stays frozen and the presenter scales; keep frames flowing
	// so the commit happens promptly once activity stops.
	more := false
	cw, ch := w.fc.DrawableSize()
	if w.wantW != cw || w.wantH != ch {
		if time.Since(w.resizedAt) >= w.cfg.ResizeDebounce {
			if err := w.fc.SetDrawableSize(w.wantW, w.wantH); err != nil {
				w.log.Warn().Err(err).Int("w", w.wantW).Int("h", w.wantH).Msg("drawable resize failed")
			} else {
				cw, ch = w.wantW, w.wantH
				w.state.Width, w.state.Height = cw, ch
			}
		} else {
			more = true
		}
	}

	now := time.Now()
	w.state.Delta = now.Sub(w.lastFrame)
	w.state.Elapsed = now.Sub(w.started)
	w.state.FrameCount++
	w.lastFrame = now

	if w.resetTree.Swap(false) {
		w.prev.disposeCaches()
		w.prev = nil
	}

	st := w.state
	w.state.ScrollDX, w.state.ScrollDY = 0, 0

	tree := w.provider.BuildScene(&st)

	if !w.fc.BeginFrame(cw, ch) {
		return more
	}
	switch {
	case tree != nil:
		Diff(w.prev, tree)
		renderTree(w.fc, tree)
		w.prev = tree
		w.hitScratch = collectHits(tree, 0, 0, w.hitScratch[:0])
		w.hits, w.hitScratch = w.hitScratch, w.hits
	case w.direct != nil:
		w.direct.DrawDirect(w.fc.canvas, &st)
		w.hits = w.hits[:0]
	default:
		w.hits = w.hits[:0]
	}
	if err := w.fc.FinishAndPresent(); err != nil {
		w.log.Warn().Err(err).Msg("present failed")
	} else {
		w.meter.mark(now)
	}

	if w.anim != nil && w.anim.Animating() {
		more = true
	}
	return more
}
