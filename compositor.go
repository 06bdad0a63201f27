package mullion

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg/text"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ActionSink receives hit-test actions resolved on pointer-down. The host
// wires one in to react to clicks on interactive scene regions.
type ActionSink interface {
	HandleAction(windowID uint64, action string)
}

// ActionSinkFunc adapts a function to ActionSink.
type ActionSinkFunc func(windowID uint64, action string)

func (f ActionSinkFunc) HandleAction(windowID uint64, action string) { f(windowID, action) }

// Compositor is the runtime root: it owns the window registry, the refresh
// broadcaster, the arrangement state (bind containers and tab groups), the
// animator and the memory watchdog. The host drives it from one scheduling
// thread: input dispatch and arrangement mutations are called there, and
// Run's scheduling loop drains cross-thread tasks, advances animations and
// runs the watchdog cadence on the same serialized footing.
//
// Render threads never call back into the Compositor synchronously; work
// they need on the scheduling thread goes through Post or RunAndWait.
type Compositor struct {
	cfg      Config
	log      zerolog.Logger
	registry *ProviderRegistry
	face     text.Face

	bc   *VSyncBroadcaster
	anim *Animator
	wd   *MemoryWatchdog
	sink ActionSink

	mu         sync.Mutex
	windows    map[uint64]*ManagedWindow
	containers map[uint64]*BindContainer
	groups     map[uint64]*TabGroup
	nextID     atomic.Uint64

	divDrag dividerDrag
	tabDrag *tabDragState
	desktop desktopPointer

	injectMu sync.Mutex
	inject   []syntheticEvent
	injDown  bool
	script   *ScriptRunner

	tasks    chan task
	stopCh   chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

// task is one unit of cross-thread work executed on the scheduling loop.
type task struct {
	fn   func()
	done chan struct{} // nil for fire-and-forget
}

// NewCompositor builds a compositor from cfg. The configuration is
// validated; invalid settings are replaced by defaults or reported.
func NewCompositor(cfg Config, log zerolog.Logger) (*Compositor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Compositor{
		cfg:        cfg,
		log:        componentLogger(log, "compositor"),
		registry:   DefaultRegistry,
		face:       DefaultFace(defaultFontSize),
		bc:         NewVSyncBroadcaster(nil, cfg.RefreshHz),
		windows:    make(map[uint64]*ManagedWindow),
		containers: make(map[uint64]*BindContainer),
		groups:     make(map[uint64]*TabGroup),
		tasks:      make(chan task, 128),
		stopCh:     make(chan struct{}),
		loopDone:   make(chan struct{}),
	}
	c.anim = newAnimator(c.redrawWindow, componentLogger(log, "animator"))
	c.wd = newMemoryWatchdog(cfg.Watchdog, c.memoryUsage, c.purgeAllWindows, componentLogger(log, "watchdog"))
	return c, nil
}

// SetTickSource replaces the timer-fallback refresh clock with a host
// vblank source. Call before creating windows or Run.
func (c *Compositor) SetTickSource(src TickSource) {
	c.bc = NewVSyncBroadcaster(src, c.cfg.RefreshHz)
}

// SetActionSink wires the collaborator receiving resolved hit actions.
func (c *Compositor) SetActionSink(s ActionSink) { c.sink = s }

// SetRegistry replaces the provider factory table consulted by hot-swap
// and workspace restore.
func (c *Compositor) SetRegistry(r *ProviderRegistry) { c.registry = r }

// Registry returns the provider factory table in use.
func (c *Compositor) Registry() *ProviderRegistry { return c.registry }

// Animator returns the compositor's tween pump.
func (c *Compositor) Animator() *Animator { return c.anim }

// --- Lifecycle ---

// Run starts the refresh broadcaster and the scheduling loop, blocking
// until Stop is called or ctx is canceled, then tears every window down.
func (c *Compositor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.bc.Start()
		select {
		case <-ctx.Done():
		case <-c.stopCh:
		}
		c.bc.Stop()
		return nil
	})
	g.Go(func() error {
		return c.runLoop(ctx)
	})
	err := g.Wait()
	c.closeAllWindows()
	return err
}

// Stop asks Run to return. Safe from any goroutine, idempotent.
func (c *Compositor) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Compositor) runLoop(ctx context.Context) error {
	defer close(c.loopDone)
	tick := time.NewTicker(time.Second / time.Duration(c.cfg.RefreshHz))
	defer tick.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return ctx.Err()
		case <-c.stopCh:
			c.drainTasks()
			return nil
		case t := <-c.tasks:
			c.runTask(t)
		case now := <-tick.C:
			c.drainTasks()
			if c.script != nil {
				c.script.step(c)
			}
			c.StepInjected()
			c.anim.advance(float32(now.Sub(last).Seconds()))
			last = now
			c.wd.tick(now)
		}
	}
}

// Post enqueues fn for the scheduling loop. It blocks only when the queue
// is full and returns ErrLoopStopped once the loop has shut down.
func (c *Compositor) Post(fn func()) error {
	select {
	case <-c.stopCh:
		return ErrLoopStopped
	case c.tasks <- task{fn: fn}:
		return nil
	}
}

// RunAndWait executes fn on the scheduling loop and waits for it. For the
// rare render-thread operation that needs main-thread state synchronously.
func (c *Compositor) RunAndWait(fn func()) error {
	done := make(chan struct{})
	select {
	case <-c.stopCh:
		return ErrLoopStopped
	case c.tasks <- task{fn: fn, done: done}:
	}
	select {
	case <-c.stopCh:
		return ErrLoopStopped
	case <-done:
		return nil
	}
}

func (c *Compositor) drainTasks() {
	for {
		select {
		case t := <-c.tasks:
			c.runTask(t)
		default:
			return
		}
	}
}

func (c *Compositor) runTask(t task) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("task panicked")
		}
		if t.done != nil {
			close(t.done)
		}
	}()
	t.fn()
}

// --- Window registry ---

// CreateWindow registers a new managed window with a directly-constructed
// provider and starts its render loop.
func (c *Compositor) CreateWindow(title string, p ContentProvider, pres Presenter) *ManagedWindow {
	return c.createWindow(title, p, "", pres)
}

// CreateWindowFrom constructs the provider through the factory registry,
// so the window's type participates in workspace capture and restore.
func (c *Compositor) CreateWindowFrom(factory, title string, pres Presenter) (*ManagedWindow, error) {
	p, err := c.registry.New(factory)
	if err != nil {
		return nil, err
	}
	return c.createWindow(title, p, factory, pres), nil
}

func (c *Compositor) createWindow(title string, p ContentProvider, provType string, pres Presenter) *ManagedWindow {
	id := c.nextID.Add(1)
	w := newManagedWindow(id, title, p, provType, pres, c.face, c.bc, c.cfg, c.log)
	c.mu.Lock()
	c.windows[id] = w
	c.mu.Unlock()
	w.start()
	w.RequestRedraw()
	c.log.Debug().Uint64("window", id).Str("title", title).Msg("window created")
	return w
}

// Window returns the managed window with the given id.
func (c *Compositor) Window(id uint64) (*ManagedWindow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return w, nil
}

// Windows returns a snapshot of all managed windows.
func (c *Compositor) Windows() []*ManagedWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ManagedWindow, 0, len(c.windows))
	for _, w := range c.windows {
		out = append(out, w)
	}
	return out
}

// CloseWindow detaches the window from any arrangement, stops its render
// loop and removes it from the registry.
func (c *Compositor) CloseWindow(id uint64) error {
	w, err := c.Window(id)
	if err != nil {
		return err
	}
	c.detachWindow(w)
	c.mu.Lock()
	delete(c.windows, id)
	c.mu.Unlock()
	w.stop(c.cfg.StopTimeout)
	c.log.Debug().Uint64("window", id).Msg("window closed")
	return nil
}

// detachWindow removes the window from whichever arrangement holds it.
func (c *Compositor) detachWindow(w *ManagedWindow) {
	w.mu.Lock()
	cid, gid := w.container, w.group
	w.mu.Unlock()
	if cid != 0 {
		if err := c.RemoveFromContainer(cid, w.id); err != nil {
			c.log.Debug().Err(err).Uint64("window", w.id).Msg("container detach no-op")
		}
	}
	if gid != 0 {
		if err := c.LeaveTabGroup(gid, w.id); err != nil {
			c.log.Debug().Err(err).Uint64("window", w.id).Msg("tab group detach no-op")
		}
	}
}

func (c *Compositor) closeAllWindows() {
	c.mu.Lock()
	ws := make([]*ManagedWindow, 0, len(c.windows))
	for id, w := range c.windows {
		ws = append(ws, w)
		delete(c.windows, id)
	}
	c.mu.Unlock()

	var g errgroup.Group
	for _, w := range ws {
		g.Go(func() error {
			w.stop(c.cfg.StopTimeout)
			return nil
		})
	}
	_ = g.Wait()
}

// RequestRedraw schedules a frame for the window. Any thread.
func (c *Compositor) RequestRedraw(id uint64) error {
	w, err := c.Window(id)
	if err != nil {
		return err
	}
	w.RequestRedraw()
	return nil
}

// redrawWindow is the animator's redraw hook; unknown ids are no-ops
// because a tween can outlive its window by one tick.
func (c *Compositor) redrawWindow(id uint64) {
	if w, err := c.Window(id); err == nil {
		w.RequestRedraw()
	}
}

// SwapProvider hot-swaps a window's provider by factory name, transferring
// state when both providers support it.
func (c *Compositor) SwapProvider(windowID uint64, factory string) error {
	w, err := c.Window(windowID)
	if err != nil {
		return err
	}
	p, err := c.registry.New(factory)
	if err != nil {
		return err
	}
	w.swapProvider(p, factory)
	c.log.Debug().Uint64("window", windowID).Str("factory", factory).Msg("provider swapped")
	return nil
}

// --- Memory accounting ---

// memoryUsage sums every window's cache and drawable bytes for the
// watchdog.
func (c *Compositor) memoryUsage() int64 {
	var sum int64
	for _, w := range c.Windows() {
		sum += w.accountedBytes()
	}
	return sum
}

// purgeAllWindows force-purges every window's cached resources.
func (c *Compositor) purgeAllWindows() {
	for _, w := range c.Windows() {
		w.purgeCaches()
	}
}

// --- Pointer, scroll and key routing (window surfaces) ---

// PointerMove updates the window's pointer state and returns the cursor
// hint for the hovered region.
func (c *Compositor) PointerMove(windowID uint64, x, y float64) (Cursor, error) {
	w, err := c.Window(windowID)
	if err != nil {
		return CursorDefault, err
	}
	w.pointerTo(x, y)
	w.RequestRedraw()
	_, cursor, _ := w.HitAt(x, y)
	return cursor, nil
}

// PointerDown presses a button, resolves the hit under the pointer and
// dispatches its action to the sink.
func (c *Compositor) PointerDown(windowID uint64, x, y float64, b PointerButtons) error {
	w, err := c.Window(windowID)
	if err != nil {
		return err
	}
	w.pointerTo(x, y)
	w.mu.Lock()
	w.state.Buttons |= b
	w.mu.Unlock()
	w.RequestRedraw()

	if action, _, ok := w.HitAt(x, y); ok && c.sink != nil {
		c.sink.HandleAction(windowID, action)
	}
	return nil
}

// PointerUp releases a button.
func (c *Compositor) PointerUp(windowID uint64, x, y float64, b PointerButtons) error {
	w, err := c.Window(windowID)
	if err != nil {
		return err
	}
	w.pointerTo(x, y)
	w.mu.Lock()
	w.state.Buttons &^= b
	w.mu.Unlock()
	w.RequestRedraw()
	return nil
}

// Scroll routes wheel input to the window.
func (c *Compositor) Scroll(windowID uint64, dx, dy float64) error {
	w, err := c.Window(windowID)
	if err != nil {
		return err
	}
	w.addScroll(dx, dy)
	w.RequestRedraw()
	return nil
}

// Key routes key input to the window.
func (c *Compositor) Key(windowID uint64, key string, down bool) error {
	w, err := c.Window(windowID)
	if err != nil {
		return err
	}
	w.key(key, down)
	w.RequestRedraw()
	return nil
}
