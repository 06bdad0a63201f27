package mullion

// Tab groups stack window surfaces in one spot with exactly one member
// visible. Switching hides the outgoing surface before showing the
// incoming one, so two members are never visible at once. Tab drags move a
// lightweight title chip; the full window surface relocates once, at drop.

import (
	"image"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
)

type TabGroup struct {
	id uint64

	mu      sync.Mutex
	members []uint64 // window ids, tab order
	active  uint64
}

// ID returns the group id.
func (g *TabGroup) ID() uint64 { return g.id }

// Members returns the member window ids in tab order.
func (g *TabGroup) Members() []uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]uint64, len(g.members))
	copy(out, g.members)
	return out
}

// Active returns the visible member's window id.
func (g *TabGroup) Active() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *TabGroup) contains(id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.members {
		if m == id {
			return true
		}
	}
	return false
}

func (g *TabGroup) add(id uint64) {
	g.mu.Lock()
	g.members = append(g.members, id)
	g.mu.Unlock()
}

// remove drops a member and, when it was the active one, elects the next
// tab in order (or the new last). Returns the remaining count, the member
// to show if the active changed, and whether id was a member.
func (g *TabGroup) remove(id uint64) (remaining int, newActive uint64, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := -1
	for i, m := range g.members {
		if m == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(g.members), 0, false
	}
	g.members = append(g.members[:idx], g.members[idx+1:]...)
	if g.active == id && len(g.members) > 0 {
		if idx >= len(g.members) {
			idx = len(g.members) - 1
		}
		g.active = g.members[idx]
		return len(g.members), g.active, true
	}
	return len(g.members), 0, true
}

// --- Compositor tab group operations ---

// CreateTabGroup stacks standalone windows into a tab group. The first
// window becomes the active tab; the rest hide and adopt its frame.
func (c *Compositor) CreateTabGroup(windowIDs ...uint64) (*TabGroup, error) {
	if len(windowIDs) < 2 {
		return nil, ErrGroupEmpty
	}
	ws := make([]*ManagedWindow, 0, len(windowIDs))
	for _, id := range windowIDs {
		w, err := c.Window(id)
		if err != nil {
			return nil, err
		}
		if w.Mode() != ModeStandalone {
			return nil, ErrAlreadyAttached
		}
		ws = append(ws, w)
	}

	g := &TabGroup{
		id:      c.nextID.Add(1),
		members: append([]uint64(nil), windowIDs...),
		active:  windowIDs[0],
	}
	c.mu.Lock()
	c.groups[g.id] = g
	c.mu.Unlock()

	frame := ws[0].Frame()
	for i, w := range ws {
		w.setMode(ModeTabGroup, 0, g.id)
		if i == 0 {
			continue
		}
		w.SetVisible(false)
		w.SetFrame(frame)
		w.SetSize(int(frame.Width), int(frame.Height))
	}
	c.log.Debug().Uint64("group", g.id).Int("tabs", len(windowIDs)).Msg("tab group created")
	return g, nil
}

// TabGroup returns the tab group with the given id.
func (c *Compositor) TabGroup(id uint64) (*TabGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return g, nil
}

// ActivateTab makes a member the visible tab. The previous surface hides
// before the next one shows.
func (c *Compositor) ActivateTab(groupID, windowID uint64) error {
	g, err := c.TabGroup(groupID)
	if err != nil {
		return err
	}
	if !g.contains(windowID) {
		return ErrWindowNotFound
	}
	g.mu.Lock()
	prev := g.active
	if prev == windowID {
		g.mu.Unlock()
		return nil
	}
	g.active = windowID
	g.mu.Unlock()

	if w, err := c.Window(prev); err == nil {
		w.SetVisible(false)
	}
	if w, err := c.Window(windowID); err == nil {
		w.SetVisible(true)
	}
	return nil
}

// JoinTabGroup adds a standalone window as a new tab and activates it. The
// newcomer adopts the group's frame.
func (c *Compositor) JoinTabGroup(groupID, windowID uint64) error {
	g, err := c.TabGroup(groupID)
	if err != nil {
		return err
	}
	w, err := c.Window(windowID)
	if err != nil {
		return err
	}
	if w.Mode() != ModeStandalone {
		return ErrAlreadyAttached
	}

	var frame Rect
	if aw, err := c.Window(g.Active()); err == nil {
		frame = aw.Frame()
	}
	g.add(windowID)
	w.setMode(ModeTabGroup, 0, groupID)
	w.SetVisible(false)
	w.SetFrame(frame)
	w.SetSize(int(frame.Width), int(frame.Height))
	return c.ActivateTab(groupID, windowID)
}

// LeaveTabGroup removes a member, promoting it to a visible standalone
// window. A group reduced below two members dissolves, its survivor also
// promoted in place.
func (c *Compositor) LeaveTabGroup(groupID, windowID uint64) error {
	g, err := c.TabGroup(groupID)
	if err != nil {
		return err
	}
	remaining, newActive, was := g.remove(windowID)
	if !was {
		return ErrWindowNotFound
	}
	if w, err := c.Window(windowID); err == nil {
		w.setMode(ModeStandalone, 0, 0)
		w.SetVisible(true)
	}
	if newActive != 0 {
		if w, err := c.Window(newActive); err == nil {
			w.SetVisible(true)
		}
	}
	if remaining < 2 {
		if remaining == 1 {
			last := g.Members()[0]
			if w, err := c.Window(last); err == nil {
				w.setMode(ModeStandalone, 0, 0)
				w.SetVisible(true)
			}
		}
		c.mu.Lock()
		delete(c.groups, groupID)
		c.mu.Unlock()
		c.log.Debug().Uint64("group", groupID).Msg("tab group dissolved")
	}
	return nil
}

// --- Tab drag ---

// tabDragState tracks one in-flight title drag. Input routing is
// single-threaded from the host loop, like dividerDrag.
type tabDragState struct {
	window      uint64
	sourceGroup uint64 // 0 when the source was standalone
	startX      float64
	startY      float64
	grabDX      float64 // pointer offset inside the window frame
	grabDY      float64
	x, y        float64
	detached    bool
	hidden      bool // full surface hidden for the drag (multi-tab source)
	chip        *image.RGBA
	chipW       int
	chipH       int
}

const tabChipMaxPx = 160

// BeginTabDrag starts a potential tab drag from a press on a window's
// title, in virtual-desktop coordinates. Container slots are not
// draggable this way; detach them through their container.
func (c *Compositor) BeginTabDrag(windowID uint64, x, y float64) error {
	w, err := c.Window(windowID)
	if err != nil {
		return err
	}
	if w.Mode() == ModeContainerSlot {
		return ErrAlreadyAttached
	}
	var group uint64
	if w.Mode() == ModeTabGroup {
		w.mu.Lock()
		group = w.group
		w.mu.Unlock()
	}
	f := w.Frame()
	c.tabDrag = &tabDragState{
		window:      windowID,
		sourceGroup: group,
		startX:      x,
		startY:      y,
		grabDX:      x - f.X,
		grabDY:      y - f.Y,
		x:           x,
		y:           y,
	}
	return nil
}

// UpdateTabDrag moves the drag. Crossing the detach threshold turns it
// into a floating chip: a multi-tab source re-parents the dragged member
// standalone immediately and shows its next tab, while a lone window keeps
// its full surface visible in place until the drop.
func (c *Compositor) UpdateTabDrag(x, y float64) {
	d := c.tabDrag
	if d == nil {
		return
	}
	d.x, d.y = x, y
	if d.detached {
		return
	}
	if math.Hypot(x-d.startX, y-d.startY) < c.cfg.DetachThresholdPx {
		return
	}
	d.detached = true
	d.chip, d.chipW, d.chipH = c.dragChip(d.window)
	if d.sourceGroup != 0 {
		if err := c.LeaveTabGroup(d.sourceGroup, d.window); err != nil {
			c.log.Debug().Err(err).Uint64("window", d.window).Msg("tab detach: leave failed")
		}
		if w, err := c.Window(d.window); err == nil {
			w.SetVisible(false)
		}
		d.hidden = true
	}
	c.log.Debug().Uint64("window", d.window).Msg("tab detached")
}

// DragChip returns the floating chip image and its top-left position, or
// nil before the drag detaches. The chip alone follows the pointer; the
// full surface moves once, at drop.
func (c *Compositor) DragChip() (*image.RGBA, float64, float64) {
	d := c.tabDrag
	if d == nil || !d.detached {
		return nil, 0, 0
	}
	return d.chip, d.x - float64(d.chipW)/2, d.y - float64(d.chipH)/2
}

// EndTabDrag drops the drag at the given point. Landing in another
// window's title band joins that window's group, forming a fresh
// two-member group when it has none; the dragged tab becomes the active
// member. Anywhere else the window lands standalone at the drop point.
func (c *Compositor) EndTabDrag(x, y float64) error {
	d := c.tabDrag
	c.tabDrag = nil
	if d == nil || !d.detached {
		return nil
	}
	w, err := c.Window(d.window)
	if err != nil {
		return err
	}

	if target, ok := c.dropTarget(d.window, x, y); ok {
		tw, err := c.Window(target)
		if err != nil {
			return err
		}
		var gid uint64
		if tw.Mode() == ModeTabGroup {
			tw.mu.Lock()
			gid = tw.group
			tw.mu.Unlock()
		}
		if gid != 0 {
			return c.JoinTabGroup(gid, d.window)
		}
		g, err := c.CreateTabGroup(target, d.window)
		if err != nil {
			return err
		}
		return c.ActivateTab(g.ID(), d.window)
	}

	f := w.Frame()
	w.SetFrame(Rect{x - d.grabDX, y - d.grabDY, f.Width, f.Height})
	if d.hidden {
		w.SetVisible(true)
	}
	w.RequestRedraw()
	return nil
}

// dropTarget finds a window whose title band contains the point: x inside
// its horizontal extent, y within TitleBandPx below its top edge. Hidden
// tabs and container slots are not targets.
func (c *Compositor) dropTarget(dragged uint64, x, y float64) (uint64, bool) {
	c.mu.Lock()
	ws := make([]*ManagedWindow, 0, len(c.windows))
	for _, w := range c.windows {
		ws = append(ws, w)
	}
	c.mu.Unlock()

	for _, w := range ws {
		if w.ID() == dragged || !w.Visible() || w.Mode() == ModeContainerSlot {
			continue
		}
		f := w.Frame()
		if x >= f.X && x <= f.X+f.Width && y >= f.Y && y <= f.Y+c.cfg.TitleBandPx {
			return w.ID(), true
		}
	}
	return 0, false
}

// dragChip renders a pointer-sized thumbnail of the window's last
// presented frame. Falls back to a blank chip when no frame has been
// presented yet.
func (c *Compositor) dragChip(windowID uint64) (*image.RGBA, int, int) {
	cw, ch := tabChipMaxPx, tabChipMaxPx*9/16
	chip := image.NewRGBA(image.Rect(0, 0, cw, ch))
	w, err := c.Window(windowID)
	if err != nil {
		return chip, cw, ch
	}
	src := w.Capture()
	if src == nil || src.Bounds().Empty() {
		return chip, cw, ch
	}
	xdraw.ApproxBiLinear.Scale(chip, chip.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return chip, cw, ch
}
