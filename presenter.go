package mullion

import (
	"image"
	"sync"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
)

// Presenter is the host-side sink for finished frames. The embedding
// application implements it over whatever surface it owns (an OS window,
// a wayland buffer, a texture upload); the runtime never creates native
// surfaces itself.
//
// Present receives the frame pixmap; it is valid only for the duration of
// the call, so hosts copy or upload before returning. When the pixmap size
// differs from DrawableSize the host is mid-resize and scales the frame to
// fit — the runtime freezes the drawable during interactive resizes and
// reallocates once resize activity quiesces.
type Presenter interface {
	Present(pm *gg.Pixmap) error
	DrawableSize() (int, int)
}

// SoftwarePresenter presents into an in-memory framebuffer at the host
// size, scaling with bilinear filtering when the frame arrives at another
// size. It stands in for a native surface in tests, examples and headless
// hosts.
type SoftwarePresenter struct {
	mu     sync.Mutex
	fb     *image.RGBA
	w, h   int
	frames int
	scaled int
}

var _ Presenter = (*SoftwarePresenter)(nil)

// NewSoftwarePresenter creates a presenter with a w by h framebuffer.
func NewSoftwarePresenter(w, h int) *SoftwarePresenter {
	return &SoftwarePresenter{w: w, h: h}
}

// Present copies or scales pm into the framebuffer.
func (p *SoftwarePresenter) Present(pm *gg.Pixmap) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fb == nil || p.fb.Bounds().Dx() != p.w || p.fb.Bounds().Dy() != p.h {
		p.fb = image.NewRGBA(image.Rect(0, 0, p.w, p.h))
	}
	if pm.Width() == p.w && pm.Height() == p.h {
		xdraw.Draw(p.fb, p.fb.Bounds(), pm, image.Point{}, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(p.fb, p.fb.Bounds(), pm, pm.Bounds(), xdraw.Src, nil)
		p.scaled++
	}
	p.frames++
	return nil
}

// DrawableSize returns the host surface size.
func (p *SoftwarePresenter) DrawableSize() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w, p.h
}

// SetDrawableSize simulates a host resize. The framebuffer reallocates at
// the next Present.
func (p *SoftwarePresenter) SetDrawableSize(w, h int) {
	p.mu.Lock()
	p.w, p.h = w, h
	p.mu.Unlock()
}

// Frame returns the framebuffer; valid until the next Present.
func (p *SoftwarePresenter) Frame() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fb
}

// Presented returns how many frames arrived.
func (p *SoftwarePresenter) Presented() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// ScaledPresents returns how many frames arrived at a mismatched size and
// were scaled to fit.
func (p *SoftwarePresenter) ScaledPresents() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scaled
}
