package mullion

// Synthetic input: queued desktop pointer events consumed one per
// scheduling tick. A queued drag therefore spans real frames, hitting the
// same detach thresholds and debounce windows host input would.

type syntheticEvent struct {
	x, y    float64
	pressed bool
	button  PointerButtons
}

// InjectPress queues a left-button press at desktop coordinates. Consumed
// on the next scheduling tick.
func (c *Compositor) InjectPress(x, y float64) {
	c.injectMu.Lock()
	c.inject = append(c.inject, syntheticEvent{x: x, y: y, pressed: true, button: ButtonLeft})
	c.injectMu.Unlock()
}

// InjectMove queues a pointer move with the left button held. Use between
// InjectPress and InjectRelease to simulate a drag.
func (c *Compositor) InjectMove(x, y float64) {
	c.injectMu.Lock()
	c.inject = append(c.inject, syntheticEvent{x: x, y: y, pressed: true, button: ButtonLeft})
	c.injectMu.Unlock()
}

// InjectRelease queues a pointer release.
func (c *Compositor) InjectRelease(x, y float64) {
	c.injectMu.Lock()
	c.inject = append(c.inject, syntheticEvent{x: x, y: y, pressed: false, button: ButtonLeft})
	c.injectMu.Unlock()
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two ticks.
func (c *Compositor) InjectClick(x, y float64) {
	c.InjectPress(x, y)
	c.InjectRelease(x, y)
}

// InjectDrag queues a full drag: press at the start point, linearly
// interpolated moves, release at the end point. The sequence consumes
// `frames` ticks; the minimum is 2 (press and release).
func (c *Compositor) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	c.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		c.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	c.InjectRelease(toX, toY)
}

// injectPending reports whether queued synthetic events remain.
func (c *Compositor) injectPending() bool {
	c.injectMu.Lock()
	defer c.injectMu.Unlock()
	return len(c.inject) > 0
}

// StepInjected pops one queued event and replays it through desktop
// dispatch, reporting whether one was consumed. The scheduling loop calls
// it every tick; tests drive it directly for tick-exact sequences.
func (c *Compositor) StepInjected() bool {
	c.injectMu.Lock()
	if len(c.inject) == 0 {
		c.injectMu.Unlock()
		return false
	}
	evt := c.inject[0]
	copy(c.inject, c.inject[1:])
	c.inject = c.inject[:len(c.inject)-1]
	down := c.injDown
	c.injDown = evt.pressed
	c.injectMu.Unlock()

	var err error
	switch {
	case evt.pressed && !down:
		err = c.DesktopPointerDown(evt.x, evt.y, evt.button)
	case !evt.pressed && down:
		err = c.DesktopPointerUp(evt.x, evt.y, evt.button)
	default:
		_, err = c.DesktopPointerMove(evt.x, evt.y)
	}
	if err != nil {
		c.log.Debug().Err(err).Msg("injected event dropped")
	}
	return true
}
