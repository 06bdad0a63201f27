package mullion

// Animator pumps tweens from the compositor's scheduling loop. It owns no
// goroutine: advance runs once per loop tick, applies values, requests
// redraws on the affected windows and drops finished tweens. Animate is
// safe from any goroutine.

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

type animation struct {
	windowID uint64
	tween    *gween.Tween
	apply    func(float32)
	done     func()
}

type Animator struct {
	mu     sync.Mutex
	active []*animation

	redraw func(windowID uint64)
	log    zerolog.Logger
}

func newAnimator(redraw func(uint64), log zerolog.Logger) *Animator {
	return &Animator{redraw: redraw, log: log}
}

// Animate tweens from→to over duration seconds, calling apply with each
// intermediate value and done once when finished. A windowID of 0 skips
// the per-tick redraw request; pass it when apply triggers redraws itself.
func (a *Animator) Animate(windowID uint64, from, to, duration float32, fn ease.TweenFunc, apply func(float32), done func()) {
	if apply == nil {
		panic("mullion: Animate requires an apply func")
	}
	if fn == nil {
		fn = ease.Linear
	}
	a.mu.Lock()
	a.active = append(a.active, &animation{
		windowID: windowID,
		tween:    gween.New(from, to, duration, fn),
		apply:    apply,
		done:     done,
	})
	a.mu.Unlock()
}

// Active returns the number of running tweens.
func (a *Animator) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.active)
}

type appliedValue struct {
	apply    func(float32)
	val      float32
	windowID uint64
}

// advance steps every tween by dt seconds. Values are applied outside the
// lock so an apply or done callback may call Animate again.
func (a *Animator) advance(dt float32) {
	if dt <= 0 {
		return
	}
	a.mu.Lock()
	if len(a.active) == 0 {
		a.mu.Unlock()
		return
	}
	applies := make([]appliedValue, 0, len(a.active))
	var dones []func()
	kept := a.active[:0]
	for _, an := range a.active {
		val, finished := an.tween.Update(dt)
		applies = append(applies, appliedValue{an.apply, val, an.windowID})
		if finished {
			if an.done != nil {
				dones = append(dones, an.done)
			}
		} else {
			kept = append(kept, an)
		}
	}
	for i := len(kept); i < len(a.active); i++ {
		a.active[i] = nil
	}
	a.active = kept
	a.mu.Unlock()

	for _, av := range applies {
		av.apply(av.val)
		if av.windowID != 0 {
			a.redraw(av.windowID)
		}
	}
	for _, fn := range dones {
		fn()
	}
}

// --- Compositor animation helpers ---

// AnimateWindowFrame glides a window's frame to the target rect, the snap
// used after a tab drop lands.
func (c *Compositor) AnimateWindowFrame(windowID uint64, to Rect, duration float32, fn ease.TweenFunc) error {
	w, err := c.Window(windowID)
	if err != nil {
		return err
	}
	from := w.Frame()
	c.anim.Animate(windowID, 0, 1, duration, fn, func(t float32) {
		k := float64(t)
		w.SetFrame(Rect{
			X:      from.X + (to.X-from.X)*k,
			Y:      from.Y + (to.Y-from.Y)*k,
			Width:  from.Width + (to.Width-from.Width)*k,
			Height: from.Height + (to.Height-from.Height)*k,
		})
	}, nil)
	return nil
}

// EqualizeContainer animates a container's slot ratios back to equal
// shares. Interpolating two valid ratio sets keeps the sum at one and
// every slot above the minimum throughout.
func (c *Compositor) EqualizeContainer(containerID uint64, duration float32, fn ease.TweenFunc) error {
	ct, err := c.Container(containerID)
	if err != nil {
		return err
	}
	from := ct.Ratios()
	if len(from) == 0 {
		return ErrGroupEmpty
	}
	target := 1 / float64(len(from))
	cur := make([]float64, len(from))
	c.anim.Animate(0, 0, 1, duration, fn, func(t float32) {
		k := float64(t)
		for i := range from {
			cur[i] = from[i] + (target-from[i])*k
		}
		if ct.setRatios(cur) {
			c.applyContainerLayout(ct)
		}
	}, nil)
	return nil
}
