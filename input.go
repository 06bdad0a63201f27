package mullion

// Desktop-level pointer dispatch. The host feeds raw pointer events in
// virtual-desktop coordinates and dispatch resolves what sits under the
// point: a container surface, a window title band, or window content. A
// left press in a title band arms a potential tab drag; the drag proper
// begins once the pointer crosses the detach threshold, exactly the dead
// zone contract interactive drags follow everywhere else.
//
// One pointer, one gesture: the interaction that claimed the press owns
// the pointer until release, so a drag that wanders over other windows
// never leaks events into them.

type desktopPhase int

const (
	desktopIdle      desktopPhase = iota
	desktopArmed                  // title-band press, below the detach threshold
	desktopTabDrag                // detached, chip in flight
	desktopToWindow               // content press, forwarding to one window
	desktopToSurface              // container press, forwarding to its surface
)

type desktopPointer struct {
	phase     desktopPhase
	window    uint64
	container uint64
}

// DesktopPointerDown dispatches a press. Containers win over free-floating
// windows, title bands win over window content.
func (c *Compositor) DesktopPointerDown(x, y float64, b PointerButtons) error {
	if ct := c.containerAt(x, y); ct != nil {
		f := ct.Frame()
		c.desktop = desktopPointer{phase: desktopToSurface, container: ct.ID()}
		return c.ContainerPointerDown(ct.ID(), x-f.X, y-f.Y, b)
	}
	w := c.windowAt(x, y)
	if w == nil {
		c.desktop = desktopPointer{}
		return nil
	}
	f := w.Frame()
	if b&ButtonLeft != 0 && y-f.Y <= c.cfg.TitleBandPx {
		c.desktop = desktopPointer{phase: desktopArmed, window: w.ID()}
		return c.BeginTabDrag(w.ID(), x, y)
	}
	c.desktop = desktopPointer{phase: desktopToWindow, window: w.ID()}
	return c.PointerDown(w.ID(), x-f.X, y-f.Y, b)
}

// DesktopPointerMove dispatches a move to whichever gesture owns the
// pointer, or resolves a hover cursor when none does.
func (c *Compositor) DesktopPointerMove(x, y float64) (Cursor, error) {
	switch c.desktop.phase {
	case desktopArmed, desktopTabDrag:
		c.UpdateTabDrag(x, y)
		if d := c.tabDrag; d != nil && d.detached {
			c.desktop.phase = desktopTabDrag
			return CursorGrab, nil
		}
		return CursorDefault, nil

	case desktopToSurface:
		ct, err := c.Container(c.desktop.container)
		if err != nil {
			return CursorDefault, err
		}
		f := ct.Frame()
		return c.ContainerPointerMove(ct.ID(), x-f.X, y-f.Y)

	case desktopToWindow:
		w, err := c.Window(c.desktop.window)
		if err != nil {
			return CursorDefault, err
		}
		f := w.Frame()
		return c.PointerMove(w.ID(), x-f.X, y-f.Y)
	}

	if ct := c.containerAt(x, y); ct != nil {
		f := ct.Frame()
		return c.ContainerPointerMove(ct.ID(), x-f.X, y-f.Y)
	}
	if w := c.windowAt(x, y); w != nil {
		f := w.Frame()
		if y-f.Y <= c.cfg.TitleBandPx {
			return CursorGrab, nil
		}
		return c.PointerMove(w.ID(), x-f.X, y-f.Y)
	}
	return CursorDefault, nil
}

// DesktopPointerUp finishes the gesture owning the pointer.
func (c *Compositor) DesktopPointerUp(x, y float64, b PointerButtons) error {
	d := c.desktop
	c.desktop = desktopPointer{}
	switch d.phase {
	case desktopArmed, desktopTabDrag:
		return c.EndTabDrag(x, y)

	case desktopToSurface:
		ct, err := c.Container(d.container)
		if err != nil {
			return err
		}
		f := ct.Frame()
		return c.ContainerPointerUp(ct.ID(), x-f.X, y-f.Y, b)

	case desktopToWindow:
		w, err := c.Window(d.window)
		if err != nil {
			return err
		}
		f := w.Frame()
		return c.PointerUp(w.ID(), x-f.X, y-f.Y, b)
	}
	return nil
}

// windowAt returns the visible free-floating window whose frame contains
// the point. Always-on-top windows win; among equals the youngest (highest
// id) does, standing in for real stacking order. Container slots are
// reached through their container, never directly.
func (c *Compositor) windowAt(x, y float64) *ManagedWindow {
	c.mu.Lock()
	ws := make([]*ManagedWindow, 0, len(c.windows))
	for _, w := range c.windows {
		ws = append(ws, w)
	}
	c.mu.Unlock()

	var best *ManagedWindow
	var bestTop bool
	for _, w := range ws {
		if !w.Visible() || w.Mode() == ModeContainerSlot {
			continue
		}
		f := w.Frame()
		if x < f.X || x > f.X+f.Width || y < f.Y || y > f.Y+f.Height {
			continue
		}
		top := w.AlwaysOnTop()
		if best == nil || (top && !bestTop) || (top == bestTop && w.ID() > best.ID()) {
			best, bestTop = w, top
		}
	}
	return best
}

// containerAt returns the container whose surface rect contains the point.
func (c *Compositor) containerAt(x, y float64) *BindContainer {
	c.mu.Lock()
	cts := make([]*BindContainer, 0, len(c.containers))
	for _, ct := range c.containers {
		cts = append(cts, ct)
	}
	c.mu.Unlock()

	var best *BindContainer
	for _, ct := range cts {
		f := ct.Frame()
		if x < f.X || x > f.X+f.Width || y < f.Y || y > f.Y+f.Height {
			continue
		}
		if best == nil || ct.ID() > best.ID() {
			best = ct
		}
	}
	return best
}
