package mullion

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ContentProvider supplies a window's content. The runtime calls BuildScene
// on the window's render thread once per frame; the provider returns a
// fresh scene tree each time and the runtime diffs it against the previous
// frame. Returning nil draws nothing, unless the provider also implements
// DirectDrawer, in which case the immediate-mode fallback runs instead.
//
// HitTest is the coarse provider-level fallback consulted when no scene
// hit region contains the point. Dispose releases provider resources; it is
// called exactly once, after the window's render loop has stopped.
type ContentProvider interface {
	BuildScene(st *FrameState) *SceneNode
	HitTest(x, y, w, h float64) (action string, cursor Cursor)
	Dispose()
}

// Optional capabilities. The runtime checks each with a type assertion at
// a single point — when the provider is attached to a window — and caches
// the result, so the render path never asserts.

// DirectDrawer is the immediate-mode escape hatch: when BuildScene returns
// nil, DrawDirect paints the frame straight into the live canvas with no
// diffing and no caching.
type DirectDrawer interface {
	DrawDirect(c Canvas, st *FrameState)
}

// Stateful providers carry state across hot-swaps: when both the outgoing
// and incoming provider implement it, the runtime moves the blob over.
type Stateful interface {
	SaveState() []byte
	RestoreState(state []byte)
}

// ScrollHandler receives wheel input routed to the provider's window.
type ScrollHandler interface {
	HandleScroll(dx, dy float64)
}

// KeyHandler receives key input routed to the provider's window. Key names
// follow the host's convention; down is false for release.
type KeyHandler interface {
	HandleKey(key string, down bool)
}

// Configurable providers contribute an opaque config blob to workspace
// records; ApplyConfig hands it back verbatim on restore.
type Configurable interface {
	Config() []byte
	ApplyConfig([]byte)
}

// Animating providers keep their window's render loop subscribed to the
// refresh clock: after each frame the runtime asks whether more frames
// should follow. Providers without it draw only on request.
type Animating interface {
	Animating() bool
}

// --- Factory registry ---

// ProviderFactory constructs a fresh provider instance.
type ProviderFactory func() ContentProvider

// ProviderRegistry is a versioned name-to-factory table. Hot-swapping and
// workspace restore construct providers through it; the version bumps on
// every registration so long-lived callers can detect a changed table.
type ProviderRegistry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	version   atomic.Uint64
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{factories: make(map[string]ProviderFactory)}
}

// Register adds or replaces a factory under name.
func (r *ProviderRegistry) Register(name string, f ProviderFactory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
	r.version.Add(1)
}

// New constructs a provider by factory name.
func (r *ProviderRegistry) New(name string) (ContentProvider, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrProviderFactoryUnknown
	}
	return f(), nil
}

// Has reports whether a factory is registered under name.
func (r *ProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered factory names, sorted.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Version returns the registration counter.
func (r *ProviderRegistry) Version() uint64 {
	return r.version.Load()
}

// DefaultRegistry is the package-level table used when a Compositor is not
// given its own.
var DefaultRegistry = NewProviderRegistry()

// RegisterProvider registers a factory in the default registry.
func RegisterProvider(name string, f ProviderFactory) {
	DefaultRegistry.Register(name, f)
}

// transferState moves provider state across a hot-swap when both sides
// support it.
func transferState(from, to ContentProvider) {
	src, ok := from.(Stateful)
	if !ok {
		return
	}
	dst, ok := to.(Stateful)
	if !ok {
		return
	}
	dst.RestoreState(src.SaveState())
}
