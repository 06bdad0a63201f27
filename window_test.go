package mullion

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func addWindowPres(t *testing.T, c *Compositor, title string, w, h int) (*ManagedWindow, *stubProvider, *SoftwarePresenter) {
	t.Helper()
	p := &stubProvider{fill: Color{0.3, 0.3, 0.3, 1}}
	pres := NewSoftwarePresenter(w, h)
	win := c.CreateWindow(title, p, pres)
	return win, p, pres
}

// probeProvider snapshots the frame state it was handed most recently.
type probeProvider struct {
	stubProvider
	last FrameState
}

func (p *probeProvider) BuildScene(st *FrameState) *SceneNode {
	p.mu.Lock()
	p.builds++
	p.last = *st
	p.mu.Unlock()
	return NewGroup(1, NewRect(2, 0, 0, float64(st.Width), float64(st.Height), ColorWhite))
}

func (p *probeProvider) snapshot() FrameState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func addProbeWindow(t *testing.T, c *Compositor, title string, w, h int) (*ManagedWindow, *probeProvider) {
	t.Helper()
	p := &probeProvider{}
	win := c.CreateWindow(title, p, NewSoftwarePresenter(w, h))
	return win, p
}

// --- Resize ---

func TestResizeFreezesDrawableWhileActive(t *testing.T) {
	cfg := testConfig()
	cfg.ResizeDebounce = time.Hour // never quiesces within the test
	c, err := NewCompositor(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCompositor: %v", err)
	}
	t.Cleanup(c.closeAllWindows)

	p := &stubProvider{}
	pres := NewSoftwarePresenter(200, 100)
	w := c.CreateWindow("frozen", p, pres)
	waitFrames(t, w, 1)

	// The host surface grows but the debounce window never expires, so the
	// drawable stays frozen and presented frames scale to fit.
	pres.SetDrawableSize(400, 300)
	w.SetSize(400, 300)
	pumpUntil(t, w, func() bool { return pres.ScaledPresents() >= 1 }, "scaled present")

	if gw, gh := w.fc.DrawableSize(); gw != 200 || gh != 100 {
		t.Errorf("drawable = %dx%d during resize, want frozen 200x100", gw, gh)
	}
	if gw, gh := p.lastSize(); gw != 200 || gh != 100 {
		t.Errorf("provider saw %dx%d during resize, want frozen 200x100", gw, gh)
	}
}

func TestResizeCommitsAfterQuiesce(t *testing.T) {
	c := newTestCompositor(t)
	w, p, pres := addWindowPres(t, c, "w", 200, 100)
	waitFrames(t, w, 1)

	pres.SetDrawableSize(400, 300)
	w.SetSize(400, 300)
	pumpUntil(t, w, func() bool {
		gw, gh := p.lastSize()
		return gw == 400 && gh == 300
	}, "resize commit")

	if gw, gh := w.fc.DrawableSize(); gw != 400 || gh != 300 {
		t.Errorf("drawable = %dx%d, want 400x300", gw, gh)
	}
}

func TestSetSizeRejectsNonPositive(t *testing.T) {
	c := newTestCompositor(t)
	w, p, _ := addWindowPres(t, c, "w", 200, 100)
	waitFrames(t, w, 1)

	w.SetSize(0, 300)
	w.SetSize(300, -1)
	n := w.loop.Frames()
	w.RequestRedraw()
	waitFrames(t, w, n+1)

	if gw, gh := p.lastSize(); gw != 200 || gh != 100 {
		t.Errorf("provider saw %dx%d, want unchanged 200x100", gw, gh)
	}
}

// --- Visibility ---

func TestHiddenWindowRendersNothing(t *testing.T) {
	c := newTestCompositor(t)
	w, p, pres := addWindowPres(t, c, "w", 64, 64)
	waitFrames(t, w, 1)

	w.SetVisible(false)
	builds := p.buildCount()
	frames := w.loop.Frames()
	presents := pres.Presented()

	// The loop still wakes for requests but the frame produces nothing.
	w.RequestRedraw()
	waitFrames(t, w, frames+1)
	if got := p.buildCount(); got != builds {
		t.Errorf("builds while hidden = %d, want %d", got, builds)
	}
	if got := pres.Presented(); got != presents {
		t.Errorf("presents while hidden = %d, want %d", got, presents)
	}

	// Showing schedules a frame by itself.
	w.SetVisible(true)
	waitFor(t, 2*time.Second, func() bool { return p.buildCount() > builds }, "frame after show")
}

// --- Hit regions ---

// hitSceneProvider marks one rect of its scene as actionable.
type hitSceneProvider struct {
	stubProvider
}

func (p *hitSceneProvider) BuildScene(st *FrameState) *SceneNode {
	p.mu.Lock()
	p.builds++
	p.mu.Unlock()
	return NewGroup(1,
		NewRect(2, 0, 0, float64(st.Width), float64(st.Height), ColorWhite),
		NewRect(3, 10, 10, 40, 20, Color{0.8, 0.2, 0.2, 1}).WithAction("press", CursorPointer),
	)
}

func TestHitRegionsResolveAfterFrame(t *testing.T) {
	c := newTestCompositor(t)
	p := &hitSceneProvider{}
	w := c.CreateWindow("hits", p, NewSoftwarePresenter(100, 100))
	waitFrames(t, w, 1)

	action, cursor, ok := w.HitAt(30, 20)
	if !ok || action != "press" || cursor != CursorPointer {
		t.Errorf("HitAt(30, 20) = %q/%v/%v, want press/CursorPointer/true", action, cursor, ok)
	}
	if _, _, ok := w.HitAt(80, 80); ok {
		t.Error("HitAt outside the actionable rect should miss")
	}
}

func TestHitAtFallsBackToProviderHitTest(t *testing.T) {
	c := newTestCompositor(t)
	w, p, _ := addWindowPres(t, c, "w", 100, 100)
	p.mu.Lock()
	p.action, p.cursor = "anywhere", CursorText
	p.mu.Unlock()
	waitFrames(t, w, 1)

	// The stub's scene carries no actionable nodes, so resolution falls
	// through to the provider's coarse hit test.
	action, cursor, ok := w.HitAt(50, 50)
	if !ok || action != "anywhere" || cursor != CursorText {
		t.Errorf("HitAt = %q/%v/%v, want anywhere/CursorText/true", action, cursor, ok)
	}
}

// --- Direct drawing ---

type directProvider struct {
	stubProvider
	draws int
}

func (p *directProvider) BuildScene(st *FrameState) *SceneNode { return nil }

func (p *directProvider) DrawDirect(c Canvas, st *FrameState) {
	p.mu.Lock()
	p.draws++
	p.mu.Unlock()
	c.SetColor(Color{0, 0.5, 0.2, 1})
	c.DrawRectangle(0, 0, float64(st.Width), float64(st.Height))
	c.Fill()
}

func TestDirectDrawerPaintsWhenSceneIsNil(t *testing.T) {
	c := newTestCompositor(t)
	p := &directProvider{}
	pres := NewSoftwarePresenter(64, 64)
	w := c.CreateWindow("direct", p, pres)
	waitFrames(t, w, 1)

	p.mu.Lock()
	draws := p.draws
	p.mu.Unlock()
	if draws < 1 {
		t.Errorf("draws = %d, want >= 1", draws)
	}
	if pres.Presented() < 1 {
		t.Error("direct frames should still present")
	}
}

// --- Panic containment ---

type bombProvider struct {
	stubProvider
	armed atomic.Bool
}

func (p *bombProvider) BuildScene(st *FrameState) *SceneNode {
	if p.armed.CompareAndSwap(true, false) {
		panic("scene build failed")
	}
	return p.stubProvider.BuildScene(st)
}

func TestProviderPanicIsContained(t *testing.T) {
	c := newTestCompositor(t)
	p := &bombProvider{}
	p.armed.Store(true)
	w := c.CreateWindow("bomb", p, NewSoftwarePresenter(64, 64))

	waitFor(t, 2*time.Second, func() bool { return w.loop.Panics() == 1 }, "recovered panic")

	// The window keeps rendering once the provider behaves again.
	w.RequestRedraw()
	waitFor(t, 2*time.Second, func() bool { return p.buildCount() >= 1 }, "frame after panic")
	if got := w.loop.Panics(); got != 1 {
		t.Errorf("Panics() = %d, want 1", got)
	}
}

// --- Frame state ---

func TestFrameStateProgression(t *testing.T) {
	c := newTestCompositor(t)
	w, p := addProbeWindow(t, c, "probe", 120, 80)
	waitFrames(t, w, 1)

	first := p.snapshot()
	if first.Width != 120 || first.Height != 80 {
		t.Errorf("state size = %dx%d, want 120x80", first.Width, first.Height)
	}
	if first.FrameCount == 0 {
		t.Error("FrameCount should start counting at the first frame")
	}
	if first.InContainer || first.InTabGroup {
		t.Error("standalone window should carry no arrangement flags")
	}

	builds := p.buildCount()
	w.RequestRedraw()
	waitFor(t, 2*time.Second, func() bool { return p.buildCount() > builds }, "second frame")
	second := p.snapshot()
	if second.FrameCount <= first.FrameCount {
		t.Errorf("FrameCount = %d after %d, want monotonic", second.FrameCount, first.FrameCount)
	}
	if second.Delta <= 0 {
		t.Errorf("Delta = %v, want > 0", second.Delta)
	}
	if second.Elapsed < first.Elapsed {
		t.Errorf("Elapsed went backwards: %v then %v", first.Elapsed, second.Elapsed)
	}
}

func TestScrollDeltasResetEachFrame(t *testing.T) {
	c := newTestCompositor(t)
	w, p := addProbeWindow(t, c, "probe", 64, 64)
	waitFrames(t, w, 1)

	w.addScroll(3, -4)
	builds := p.buildCount()
	w.RequestRedraw()
	waitFor(t, 2*time.Second, func() bool { return p.buildCount() > builds }, "frame with scroll")
	st := p.snapshot()
	if st.ScrollDX != 3 || st.ScrollDY != -4 {
		t.Errorf("scroll deltas = %v,%v, want 3,-4", st.ScrollDX, st.ScrollDY)
	}

	builds = p.buildCount()
	w.RequestRedraw()
	waitFor(t, 2*time.Second, func() bool { return p.buildCount() > builds }, "frame after scroll")
	st = p.snapshot()
	if st.ScrollDX != 0 || st.ScrollDY != 0 {
		t.Errorf("scroll deltas = %v,%v on the next frame, want reset to 0,0", st.ScrollDX, st.ScrollDY)
	}
}

func TestModeFlagsReachProvider(t *testing.T) {
	c := newTestCompositor(t)
	w1, p1 := addProbeWindow(t, c, "left", 400, 300)
	w2, _ := addProbeWindow(t, c, "right", 400, 300)

	if _, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 300}, w1.ID(), w2.ID()); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	pumpUntil(t, w1, func() bool { return p1.snapshot().InContainer }, "container flag")

	if err := c.RemoveFromContainer(w1.ID()); err != nil {
		t.Fatalf("RemoveFromContainer: %v", err)
	}
	pumpUntil(t, w1, func() bool { return !p1.snapshot().InContainer }, "container flag cleared")
}

func TestAlwaysOnTopMirroredToState(t *testing.T) {
	c := newTestCompositor(t)
	w, p := addProbeWindow(t, c, "float", 64, 64)
	waitFrames(t, w, 1)

	w.SetAlwaysOnTop(true)
	if !w.AlwaysOnTop() {
		t.Fatal("AlwaysOnTop() = false after SetAlwaysOnTop(true)")
	}
	pumpUntil(t, w, func() bool { return p.snapshot().AlwaysOnTop }, "flag in frame state")
}

func TestSetScaleReachesProvider(t *testing.T) {
	c := newTestCompositor(t)
	w, p := addProbeWindow(t, c, "hidpi", 64, 64)
	waitFrames(t, w, 1)

	w.SetScale(2.5)
	pumpUntil(t, w, func() bool { return p.snapshot().Scale == 2.5 }, "scale")

	// Non-positive scales are ignored.
	w.SetScale(0)
	builds := p.buildCount()
	w.RequestRedraw()
	waitFor(t, 2*time.Second, func() bool { return p.buildCount() > builds }, "frame")
	if got := p.snapshot().Scale; got != 2.5 {
		t.Errorf("scale after SetScale(0) = %v, want 2.5", got)
	}
}

// --- Capture ---

func TestCaptureReturnsLastFrame(t *testing.T) {
	c := newTestCompositor(t)
	w, _, _ := addWindowPres(t, c, "shot", 200, 100)
	waitFrames(t, w, 1)

	waitFor(t, 2*time.Second, func() bool { return w.Capture() != nil }, "idle capture")
	img := w.Capture()
	if img == nil {
		t.Fatal("Capture() = nil between frames")
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Errorf("capture size = %dx%d, want 200x100", img.Bounds().Dx(), img.Bounds().Dy())
	}
}
