package mullion

// BindContainer composes windows side by side in ratio-weighted slots.
// Slot i starts at cumsum(ratios[0..i)) of the container extent along the
// orientation axis and spans ratios[i] of it. The ratios always sum to 1
// and never fall below the configured minimum: divider drags move adjacent
// ratios in lockstep, removals redistribute the freed share equally.

import (
	"math"
	"sync"
)

type BindContainer struct {
	id     uint64
	orient Orientation

	mu       sync.Mutex
	members  []uint64 // window ids, slot order
	ratios   []float64
	frame    Rect // container surface rect on the virtual desktop
	minRatio float64
}

// ID returns the container id.
func (b *BindContainer) ID() uint64 { return b.id }

// Orientation returns the slot axis.
func (b *BindContainer) Orientation() Orientation { return b.orient }

// Members returns the member window ids in slot order.
func (b *BindContainer) Members() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint64, len(b.members))
	copy(out, b.members)
	return out
}

// Ratios returns a copy of the slot ratios.
func (b *BindContainer) Ratios() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float64, len(b.ratios))
	copy(out, b.ratios)
	return out
}

// Frame returns the container's surface rect.
func (b *BindContainer) Frame() Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// SlotRect returns slot i's rect in container coordinates.
func (b *BindContainer) SlotRect(i int) (Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.members) {
		return Rect{}, ErrSlotOutOfRange
	}
	return b.slotRectLocked(i), nil
}

func (b *BindContainer) slotRectLocked(i int) Rect {
	var start float64
	for k := 0; k < i; k++ {
		start += b.ratios[k]
	}
	if b.orient == Horizontal {
		return Rect{start * b.frame.Width, 0, b.ratios[i] * b.frame.Width, b.frame.Height}
	}
	return Rect{0, start * b.frame.Height, b.frame.Width, b.ratios[i] * b.frame.Height}
}

// dividerPosLocked returns the axis position of divider i (the boundary
// between slots i and i+1) in container coordinates.
func (b *BindContainer) dividerPosLocked(i int) float64 {
	var sum float64
	for k := 0; k <= i; k++ {
		sum += b.ratios[k]
	}
	return sum * b.extentLocked()
}

func (b *BindContainer) extentLocked() float64 {
	if b.orient == Horizontal {
		return b.frame.Width
	}
	return b.frame.Height
}

// dividerAt returns the divider whose grab band contains the point, if
// any. The band reaches band px to each side of the divider line; points
// beyond it belong to slot interiors even when visually close.
func (b *BindContainer) dividerAt(x, y float64, band float64) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := x
	if b.orient == Vertical {
		p = y
	}
	for i := 0; i < len(b.members)-1; i++ {
		if math.Abs(p-b.dividerPosLocked(i)) <= band {
			return i, true
		}
	}
	return -1, false
}

// slotAt returns the slot index containing the point.
func (b *BindContainer) slotAt(x, y float64) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || y < 0 || x > b.frame.Width || y > b.frame.Height {
		return -1, false
	}
	p, extent := x, b.frame.Width
	if b.orient == Vertical {
		p, extent = y, b.frame.Height
	}
	var start float64
	for i, r := range b.ratios {
		end := start + r*extent
		if p <= end || i == len(b.ratios)-1 {
			return i, true
		}
		start = end
	}
	return -1, false
}

// dragTo moves divider i so it sits at axis position pos, adjusting the
// two adjacent ratios in lockstep. Their sum is preserved exactly; each is
// clamped to the minimum ratio. Reports whether anything moved.
func (b *BindContainer) dragTo(i int, pos float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.members)-1 {
		return false
	}
	extent := b.extentLocked()
	if extent <= 0 {
		return false
	}
	var before float64
	for k := 0; k < i; k++ {
		before += b.ratios[k]
	}
	combined := b.ratios[i] + b.ratios[i+1]
	left := pos/extent - before
	if left < b.minRatio {
		left = b.minRatio
	}
	if left > combined-b.minRatio {
		left = combined - b.minRatio
	}
	if left == b.ratios[i] {
		return false
	}
	b.ratios[i] = left
	b.ratios[i+1] = combined - left
	return true
}

// setRatios replaces all ratios after validation.
func (b *BindContainer) setRatios(rs []float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(rs) != len(b.members) {
		return false
	}
	var sum float64
	for _, r := range rs {
		if r < b.minRatio {
			return false
		}
		sum += r
	}
	if math.Abs(sum-1) > 1e-6 {
		return false
	}
	b.ratios = append(b.ratios[:0], rs...)
	return true
}

// addSlot appends a window with an equal share: the new slot takes 1/n and
// existing ratios scale down proportionally, preserving their relations.
func (b *BindContainer) addSlot(windowID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := float64(len(b.members) + 1)
	scale := (n - 1) / n
	for i := range b.ratios {
		b.ratios[i] *= scale
	}
	b.members = append(b.members, windowID)
	b.ratios = append(b.ratios, 1/n)
}

// removeSlot drops a window's slot and spreads its ratio equally over the
// remaining slots. Returns how many slots remain and whether the window
// was a member.
func (b *BindContainer) removeSlot(windowID uint64) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := -1
	for i, m := range b.members {
		if m == windowID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(b.members), false
	}
	share := b.ratios[idx]
	b.members = append(b.members[:idx], b.members[idx+1:]...)
	b.ratios = append(b.ratios[:idx], b.ratios[idx+1:]...)
	if n := len(b.ratios); n > 0 {
		each := share / float64(n)
		for i := range b.ratios {
			b.ratios[i] += each
		}
	}
	return len(b.members), true
}

// --- Compositor container operations ---

// CreateContainer arranges windows into a new bind container with equal
// ratios, marking each as a container slot. Windows already in an
// arrangement are refused.
func (c *Compositor) CreateContainer(orient Orientation, frame Rect, windowIDs ...uint64) (*BindContainer, error) {
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

	ct := &BindContainer{
		id:       c.nextID.Add(1),
		orient:   orient,
		members:  append([]uint64(nil), windowIDs...),
		ratios:   make([]float64, len(windowIDs)),
		frame:    frame,
		minRatio: c.cfg.MinRatio,
	}
	for i := range ct.ratios {
		ct.ratios[i] = 1 / float64(len(ct.ratios))
	}
	c.mu.Lock()
	c.containers[ct.id] = ct
	c.mu.Unlock()

	for _, w := range ws {
		w.setMode(ModeContainerSlot, ct.id, 0)
	}
	c.applyContainerLayout(ct)
	c.log.Debug().Uint64("container", ct.id).Int("slots", len(windowIDs)).Msg("container created")
	return ct, nil
}

// Container returns the bind container with the given id.
func (c *Compositor) Container(id uint64) (*BindContainer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ct, ok := c.containers[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return ct, nil
}

// AddToContainer appends a standalone window as a new slot.
func (c *Compositor) AddToContainer(containerID, windowID uint64) error {
	ct, err := c.Container(containerID)
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
	ct.addSlot(windowID)
	w.setMode(ModeContainerSlot, containerID, 0)
	c.applyContainerLayout(ct)
	return nil
}

// RemoveFromContainer detaches a window from its container, redistributing
// its ratio equally. A container left with one slot dissolves and promotes
// the survivor to standalone; an empty one is disposed.
func (c *Compositor) RemoveFromContainer(containerID, windowID uint64) error {
	ct, err := c.Container(containerID)
	if err != nil {
		return err
	}
	remaining, was := ct.removeSlot(windowID)
	if !was {
		return ErrWindowNotFound
	}
	if w, err := c.Window(windowID); err == nil {
		w.setMode(ModeStandalone, 0, 0)
	}

	switch {
	case remaining >= 2:
		c.applyContainerLayout(ct)
	case remaining == 1:
		last := ct.Members()[0]
		if w, err := c.Window(last); err == nil {
			w.setMode(ModeStandalone, 0, 0)
			w.SetFrame(ct.Frame())
			w.RequestRedraw()
		}
		c.disposeContainer(ct.id)
	default:
		c.disposeContainer(ct.id)
	}
	return nil
}

func (c *Compositor) disposeContainer(id uint64) {
	c.mu.Lock()
	delete(c.containers, id)
	c.mu.Unlock()
	c.log.Debug().Uint64("container", id).Msg("container dissolved")
}

// SetContainerFrame resizes the container surface and relays out slots.
func (c *Compositor) SetContainerFrame(containerID uint64, frame Rect) error {
	ct, err := c.Container(containerID)
	if err != nil {
		return err
	}
	ct.mu.Lock()
	ct.frame = frame
	ct.mu.Unlock()
	c.applyContainerLayout(ct)
	return nil
}

// SetContainerRatios replaces the slot ratios, for workspace restore.
func (c *Compositor) SetContainerRatios(containerID uint64, ratios []float64) error {
	ct, err := c.Container(containerID)
	if err != nil {
		return err
	}
	if !ct.setRatios(ratios) {
		return ErrSlotOutOfRange
	}
	c.applyContainerLayout(ct)
	return nil
}

// DragDivider moves container divider i to axis position pos, in container
// coordinates. The adjacent slots resize in lockstep.
func (c *Compositor) DragDivider(containerID uint64, i int, pos float64) error {
	ct, err := c.Container(containerID)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(ct.Members())-1 {
		return ErrSlotOutOfRange
	}
	if ct.dragTo(i, pos) {
		c.applyContainerLayout(ct)
	}
	return nil
}

// applyContainerLayout pushes slot rects into member windows: frame for
// virtual-desktop placement, size for the drawable.
func (c *Compositor) applyContainerLayout(ct *BindContainer) {
	ct.mu.Lock()
	frame := ct.frame
	members := append([]uint64(nil), ct.members...)
	rects := make([]Rect, len(members))
	for i := range members {
		rects[i] = ct.slotRectLocked(i)
	}
	ct.mu.Unlock()

	for i, id := range members {
		w, err := c.Window(id)
		if err != nil {
			continue
		}
		r := rects[i]
		w.SetFrame(Rect{frame.X + r.X, frame.Y + r.Y, r.Width, r.Height})
		w.SetSize(int(r.Width), int(r.Height))
		w.RequestRedraw()
	}
}

// --- Container pointer routing ---

// dividerDrag is the live divider-drag gesture, owned by the scheduling
// thread.
type dividerDrag struct {
	container uint64
	index     int
	active    bool
}

// resizeCursor returns the divider hover cursor for the orientation.
func resizeCursor(o Orientation) Cursor {
	if o == Horizontal {
		return CursorResizeH
	}
	return CursorResizeV
}

// ContainerPointerDown routes a press on the container surface: a point in
// a divider band starts a drag, anything else forwards to the slot window
// in its local coordinates.
func (c *Compositor) ContainerPointerDown(containerID uint64, x, y float64, b PointerButtons) error {
	ct, err := c.Container(containerID)
	if err != nil {
		return err
	}
	if i, ok := ct.dividerAt(x, y, c.cfg.DividerBandPx); ok {
		c.divDrag = dividerDrag{container: containerID, index: i, active: true}
		return nil
	}
	return c.routeToSlot(ct, x, y, func(id uint64, lx, ly float64) error {
		return c.PointerDown(id, lx, ly, b)
	})
}

// ContainerPointerMove advances a divider drag, or forwards hover movement
// to the slot window. The returned cursor reflects divider bands.
func (c *Compositor) ContainerPointerMove(containerID uint64, x, y float64) (Cursor, error) {
	ct, err := c.Container(containerID)
	if err != nil {
		return CursorDefault, err
	}
	if c.divDrag.active && c.divDrag.container == containerID {
		pos := x
		if ct.Orientation() == Vertical {
			pos = y
		}
		if ct.dragTo(c.divDrag.index, pos) {
			c.applyContainerLayout(ct)
		}
		return resizeCursor(ct.Orientation()), nil
	}
	if _, ok := ct.dividerAt(x, y, c.cfg.DividerBandPx); ok {
		return resizeCursor(ct.Orientation()), nil
	}
	cursor := CursorDefault
	err = c.routeToSlot(ct, x, y, func(id uint64, lx, ly float64) error {
		cur, err := c.PointerMove(id, lx, ly)
		cursor = cur
		return err
	})
	return cursor, err
}

// ContainerPointerUp finishes a divider drag or forwards the release.
func (c *Compositor) ContainerPointerUp(containerID uint64, x, y float64, b PointerButtons) error {
	ct, err := c.Container(containerID)
	if err != nil {
		return err
	}
	if c.divDrag.active && c.divDrag.container == containerID {
		c.divDrag = dividerDrag{}
		return nil
	}
	return c.routeToSlot(ct, x, y, func(id uint64, lx, ly float64) error {
		return c.PointerUp(id, lx, ly, b)
	})
}

func (c *Compositor) routeToSlot(ct *BindContainer, x, y float64, fn func(id uint64, lx, ly float64) error) error {
	i, ok := ct.slotAt(x, y)
	if !ok {
		return nil
	}
	r, err := ct.SlotRect(i)
	if err != nil {
		return nil
	}
	members := ct.Members()
	if i >= len(members) {
		return nil
	}
	return fn(members[i], x-r.X, y-r.Y)
}
