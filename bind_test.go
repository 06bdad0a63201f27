package mullion

import (
	"math"
	"testing"
)

// testContainer builds a bare container with member ids 1..n, outside any
// compositor, for exercising the ratio math directly.
func testContainer(orient Orientation, frame Rect, ratios ...float64) *BindContainer {
	members := make([]uint64, len(ratios))
	for i := range members {
		members[i] = uint64(i + 1)
	}
	return &BindContainer{
		id:       1,
		orient:   orient,
		members:  members,
		ratios:   append([]float64(nil), ratios...),
		frame:    frame,
		minRatio: 0.1,
	}
}

func assertRatios(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ratio count = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("ratios[%d] = %v, want %v", i, got[i], want[i])
			return
		}
	}
}

func ratioSum(rs []float64) float64 {
	var sum float64
	for _, r := range rs {
		sum += r
	}
	return sum
}

func assertRectNear(t *testing.T, got, want Rect) {
	t.Helper()
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 ||
		math.Abs(got.Width-want.Width) > 1e-9 || math.Abs(got.Height-want.Height) > 1e-9 {
		t.Errorf("rect = %v, want %v", got, want)
	}
}

// --- Slot geometry ---

func TestSlotRectHorizontal(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.25, 0.5, 0.25)

	cases := []struct {
		i    int
		want Rect
	}{
		{0, Rect{0, 0, 200, 600}},
		{1, Rect{200, 0, 400, 600}},
		{2, Rect{600, 0, 200, 600}},
	}
	for _, tc := range cases {
		got, err := b.SlotRect(tc.i)
		if err != nil {
			t.Fatalf("SlotRect(%d): %v", tc.i, err)
		}
		if got != tc.want {
			t.Errorf("SlotRect(%d) = %v, want %v", tc.i, got, tc.want)
		}
	}
}

func TestSlotRectVertical(t *testing.T) {
	b := testContainer(Vertical, Rect{0, 0, 400, 1000}, 0.3, 0.7)

	got, err := b.SlotRect(1)
	if err != nil {
		t.Fatalf("SlotRect(1): %v", err)
	}
	want := Rect{0, 300, 400, 700}
	if got != want {
		t.Errorf("SlotRect(1) = %v, want %v", got, want)
	}
}

func TestSlotRectOutOfRange(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.5)
	if _, err := b.SlotRect(2); err != ErrSlotOutOfRange {
		t.Errorf("SlotRect(2) error = %v, want ErrSlotOutOfRange", err)
	}
	if _, err := b.SlotRect(-1); err != ErrSlotOutOfRange {
		t.Errorf("SlotRect(-1) error = %v, want ErrSlotOutOfRange", err)
	}
}

// --- Divider bands ---

func TestDividerAtWithinBand(t *testing.T) {
	// Thirds of 900px put dividers at x=300 and x=600.
	b := testContainer(Horizontal, Rect{0, 0, 900, 600}, 1.0/3, 1.0/3, 1.0/3)

	cases := []struct {
		x    float64
		want int
		ok   bool
	}{
		{300, 0, true},
		{292, 0, true}, // band edge, inclusive
		{308, 0, true},
		{289, -1, false}, // one px past the band
		{311, -1, false},
		{600, 1, true},
		{450, -1, false}, // slot interior
	}
	for _, tc := range cases {
		got, ok := b.dividerAt(tc.x, 50, 8)
		if ok != tc.ok || got != tc.want {
			t.Errorf("dividerAt(%v) = (%d, %v), want (%d, %v)", tc.x, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDividerAtVerticalUsesY(t *testing.T) {
	b := testContainer(Vertical, Rect{0, 0, 400, 600}, 0.5, 0.5)
	if _, ok := b.dividerAt(300, 50, 8); ok {
		t.Error("x should be ignored for vertical containers")
	}
	if i, ok := b.dividerAt(10, 300, 8); !ok || i != 0 {
		t.Errorf("dividerAt(y=300) = (%d, %v), want (0, true)", i, ok)
	}
}

func TestSlotAt(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.5)

	if i, ok := b.slotAt(100, 50); !ok || i != 0 {
		t.Errorf("slotAt(100) = (%d, %v), want (0, true)", i, ok)
	}
	if i, ok := b.slotAt(500, 50); !ok || i != 1 {
		t.Errorf("slotAt(500) = (%d, %v), want (1, true)", i, ok)
	}
	if _, ok := b.slotAt(-5, 50); ok {
		t.Error("points outside the container should miss")
	}
	if _, ok := b.slotAt(100, 700); ok {
		t.Error("points below the container should miss")
	}
	// Exact right edge still lands in the last slot.
	if i, ok := b.slotAt(800, 50); !ok || i != 1 {
		t.Errorf("slotAt(800) = (%d, %v), want (1, true)", i, ok)
	}
}

// --- Divider drags ---

func TestDragToPreservesSum(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.5)

	if !b.dragTo(0, 300) {
		t.Fatal("dragTo should report movement")
	}
	assertRatios(t, b.Ratios(), []float64{0.375, 0.625})
	if s := ratioSum(b.Ratios()); math.Abs(s-1) > 1e-9 {
		t.Errorf("ratio sum = %v, want 1", s)
	}
}

func TestDragToClampsToMinRatio(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.5)

	b.dragTo(0, 10) // far past the left minimum
	assertRatios(t, b.Ratios(), []float64{0.1, 0.9})

	b.dragTo(0, 790) // far past the right minimum
	assertRatios(t, b.Ratios(), []float64{0.9, 0.1})
}

func TestDragToOnlyMovesAdjacentPair(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 1000, 600}, 0.2, 0.3, 0.5)

	// Divider 1 sits at 500; moving it must leave slot 0 alone.
	if !b.dragTo(1, 600) {
		t.Fatal("dragTo should report movement")
	}
	assertRatios(t, b.Ratios(), []float64{0.2, 0.4, 0.4})
}

func TestDragToNoMovementReportsFalse(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.5)
	if b.dragTo(0, 400) {
		t.Error("dragging a divider to its current position should report false")
	}
}

func TestDragToRejectsBadInput(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.5)
	if b.dragTo(1, 300) {
		t.Error("last divider index is members-2; index 1 is out of range here")
	}
	if b.dragTo(-1, 300) {
		t.Error("negative index should be refused")
	}

	zero := testContainer(Horizontal, Rect{}, 0.5, 0.5)
	if zero.dragTo(0, 10) {
		t.Error("zero-extent container cannot be dragged")
	}
}

// --- Ratio replacement ---

func TestSetRatiosValidates(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.5)

	if b.setRatios([]float64{0.3, 0.3, 0.4}) {
		t.Error("length mismatch should be refused")
	}
	if b.setRatios([]float64{0.05, 0.95}) {
		t.Error("ratio below the minimum should be refused")
	}
	if b.setRatios([]float64{0.6, 0.5}) {
		t.Error("ratios not summing to 1 should be refused")
	}
	if !b.setRatios([]float64{0.3, 0.7}) {
		t.Error("valid ratios should be accepted")
	}
	assertRatios(t, b.Ratios(), []float64{0.3, 0.7})
}

// --- Slot addition and removal ---

func TestAddSlotScalesProportionally(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.6, 0.4)
	b.addSlot(42)

	got := b.Ratios()
	assertRatios(t, got, []float64{0.4, 4.0 / 15, 1.0 / 3})
	// The old slots keep their relative proportions.
	if math.Abs(got[0]/got[1]-1.5) > 1e-9 {
		t.Errorf("slot 0:1 proportion = %v, want 1.5", got[0]/got[1])
	}
	if members := b.Members(); members[len(members)-1] != 42 {
		t.Errorf("new member id = %d, want 42", members[len(members)-1])
	}
}

func TestRemoveSlotRedistributesEqually(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.3, 0.2)

	remaining, was := b.removeSlot(1) // slot 0, share 0.5
	if !was || remaining != 2 {
		t.Fatalf("removeSlot = (%d, %v), want (2, true)", remaining, was)
	}
	assertRatios(t, b.Ratios(), []float64{0.55, 0.45})
}

func TestRemoveSlotUnknownMember(t *testing.T) {
	b := testContainer(Horizontal, Rect{0, 0, 800, 600}, 0.5, 0.5)
	remaining, was := b.removeSlot(99)
	if was || remaining != 2 {
		t.Errorf("removeSlot(99) = (%d, %v), want (2, false)", remaining, was)
	}
}

// --- Compositor wiring ---

func TestCreateContainerEqualSlots(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "left", 300, 600)
	w2, _ := addWindow(t, c, "mid", 300, 600)
	w3, _ := addWindow(t, c, "right", 300, 600)

	ct, err := c.CreateContainer(Horizontal, Rect{0, 0, 900, 600}, w1.ID(), w2.ID(), w3.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}

	assertRatios(t, ct.Ratios(), []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
	for _, w := range []*ManagedWindow{w1, w2, w3} {
		if w.Mode() != ModeContainerSlot {
			t.Errorf("window %d mode = %v, want ModeContainerSlot", w.ID(), w.Mode())
		}
	}
	assertRectNear(t, w2.Frame(), Rect{300, 0, 300, 600})
}

func TestCreateContainerOffsetFrame(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 200, 200)
	w2, _ := addWindow(t, c, "b", 200, 200)

	// Slot rects are container-local; desktop frames add the origin.
	_, err := c.CreateContainer(Vertical, Rect{100, 50, 400, 600}, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if got, want := w1.Frame(), (Rect{100, 50, 400, 300}); got != want {
		t.Errorf("slot 0 frame = %v, want %v", got, want)
	}
	if got, want := w2.Frame(), (Rect{100, 350, 400, 300}); got != want {
		t.Errorf("slot 1 frame = %v, want %v", got, want)
	}
}

func TestCreateContainerRefusals(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 100, 100)
	w2, _ := addWindow(t, c, "b", 100, 100)

	if _, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 600}, w1.ID()); err != ErrGroupEmpty {
		t.Errorf("single window error = %v, want ErrGroupEmpty", err)
	}
	if _, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 600}, w1.ID(), 999); err != ErrWindowNotFound {
		t.Errorf("unknown window error = %v, want ErrWindowNotFound", err)
	}

	if _, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 600}, w1.ID(), w2.ID()); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	w3, _ := addWindow(t, c, "c", 100, 100)
	if _, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 600}, w1.ID(), w3.ID()); err != ErrAlreadyAttached {
		t.Errorf("attached window error = %v, want ErrAlreadyAttached", err)
	}
}

func TestAddToContainer(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 100, 100)
	w2, _ := addWindow(t, c, "b", 100, 100)
	w3, _ := addWindow(t, c, "c", 100, 100)

	ct, err := c.CreateContainer(Horizontal, Rect{0, 0, 900, 300}, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := c.AddToContainer(ct.ID(), w3.ID()); err != nil {
		t.Fatalf("AddToContainer: %v", err)
	}

	assertRatios(t, ct.Ratios(), []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
	if w3.Mode() != ModeContainerSlot {
		t.Error("added window should become a container slot")
	}
	if err := c.AddToContainer(ct.ID(), w3.ID()); err != ErrAlreadyAttached {
		t.Errorf("re-adding error = %v, want ErrAlreadyAttached", err)
	}
}

func TestRemoveFromContainerRedistributes(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 100, 100)
	w2, _ := addWindow(t, c, "b", 100, 100)
	w3, _ := addWindow(t, c, "c", 100, 100)

	ct, err := c.CreateContainer(Horizontal, Rect{0, 0, 900, 300}, w1.ID(), w2.ID(), w3.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := c.RemoveFromContainer(ct.ID(), w2.ID()); err != nil {
		t.Fatalf("RemoveFromContainer: %v", err)
	}

	assertRatios(t, ct.Ratios(), []float64{0.5, 0.5})
	if w2.Mode() != ModeStandalone {
		t.Error("removed window should be standalone")
	}
	if got := ct.Members(); len(got) != 2 || got[0] != w1.ID() || got[1] != w3.ID() {
		t.Errorf("members = %v, want [%d %d]", got, w1.ID(), w3.ID())
	}
}

func TestRemoveFromContainerDissolvesPair(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 100, 100)
	w2, _ := addWindow(t, c, "b", 100, 100)

	frame := Rect{20, 30, 600, 400}
	ct, err := c.CreateContainer(Horizontal, frame, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := c.RemoveFromContainer(ct.ID(), w1.ID()); err != nil {
		t.Fatalf("RemoveFromContainer: %v", err)
	}

	// One slot left: the container dissolves and the survivor takes over
	// the whole container frame.
	if _, err := c.Container(ct.ID()); err != ErrWindowNotFound {
		t.Error("container should be disposed after dissolving")
	}
	if w2.Mode() != ModeStandalone {
		t.Error("survivor should be standalone")
	}
	if got := w2.Frame(); got != frame {
		t.Errorf("survivor frame = %v, want %v", got, frame)
	}
}

func TestDragDividerUpdatesSlots(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 400, 600)
	w2, _ := addWindow(t, c, "b", 400, 600)

	ct, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 600}, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := c.DragDivider(ct.ID(), 0, 300); err != nil {
		t.Fatalf("DragDivider: %v", err)
	}

	assertRatios(t, ct.Ratios(), []float64{0.375, 0.625})
	if got, want := w1.Frame(), (Rect{0, 0, 300, 600}); got != want {
		t.Errorf("slot 0 frame = %v, want %v", got, want)
	}
	if got, want := w2.Frame(), (Rect{300, 0, 500, 600}); got != want {
		t.Errorf("slot 1 frame = %v, want %v", got, want)
	}

	if err := c.DragDivider(ct.ID(), 5, 300); err != ErrSlotOutOfRange {
		t.Errorf("out-of-range divider error = %v, want ErrSlotOutOfRange", err)
	}
}

func TestSetContainerFrameRelayout(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 100, 100)
	w2, _ := addWindow(t, c, "b", 100, 100)

	ct, err := c.CreateContainer(Horizontal, Rect{0, 0, 400, 300}, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := c.SetContainerFrame(ct.ID(), Rect{0, 0, 1000, 500}); err != nil {
		t.Fatalf("SetContainerFrame: %v", err)
	}
	if got, want := w2.Frame(), (Rect{500, 0, 500, 500}); got != want {
		t.Errorf("slot 1 frame = %v, want %v", got, want)
	}
}

func TestSetContainerRatios(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 100, 100)
	w2, _ := addWindow(t, c, "b", 100, 100)

	ct, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 300}, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := c.SetContainerRatios(ct.ID(), []float64{0.25, 0.75}); err != nil {
		t.Fatalf("SetContainerRatios: %v", err)
	}
	assertRatios(t, ct.Ratios(), []float64{0.25, 0.75})

	if err := c.SetContainerRatios(ct.ID(), []float64{0.25, 0.25}); err == nil {
		t.Error("ratios not summing to 1 should be refused")
	}
}

// --- Container pointer routing ---

func TestContainerDividerGesture(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 400, 600)
	w2, _ := addWindow(t, c, "b", 400, 600)

	ct, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 600}, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}

	// Press inside the divider band starts a drag.
	if err := c.ContainerPointerDown(ct.ID(), 403, 100, ButtonLeft); err != nil {
		t.Fatalf("ContainerPointerDown: %v", err)
	}
	if !c.divDrag.active {
		t.Fatal("press in the band should start a divider drag")
	}

	cur, err := c.ContainerPointerMove(ct.ID(), 200, 100)
	if err != nil {
		t.Fatalf("ContainerPointerMove: %v", err)
	}
	if cur != CursorResizeH {
		t.Errorf("drag cursor = %v, want CursorResizeH", cur)
	}
	assertRatios(t, ct.Ratios(), []float64{0.25, 0.75})

	if err := c.ContainerPointerUp(ct.ID(), 200, 100, ButtonLeft); err != nil {
		t.Fatalf("ContainerPointerUp: %v", err)
	}
	if c.divDrag.active {
		t.Error("release should end the divider drag")
	}
}

func TestContainerHoverCursorOverBand(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "a", 300, 600)
	w2, _ := addWindow(t, c, "b", 300, 600)

	ct, err := c.CreateContainer(Vertical, Rect{0, 0, 400, 600}, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	cur, err := c.ContainerPointerMove(ct.ID(), 200, 302)
	if err != nil {
		t.Fatalf("ContainerPointerMove: %v", err)
	}
	if cur != CursorResizeV {
		t.Errorf("hover cursor = %v, want CursorResizeV", cur)
	}
}

func TestContainerForwardsToSlotWindow(t *testing.T) {
	c := newTestCompositor(t)
	w1, p1 := addWindow(t, c, "a", 400, 600)
	w2, p2 := addWindow(t, c, "b", 400, 600)
	p1.mu.Lock()
	p1.action = "left-tap"
	p1.mu.Unlock()
	p2.mu.Lock()
	p2.action = "right-tap"
	p2.mu.Unlock()

	ct, err := c.CreateContainer(Horizontal, Rect{0, 0, 800, 600}, w1.ID(), w2.ID())
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}

	var gotWindow uint64
	var gotAction string
	c.SetActionSink(ActionSinkFunc(func(id uint64, action string) {
		gotWindow, gotAction = id, action
	}))

	// Deep in slot 1's interior, outside any divider band.
	if err := c.ContainerPointerDown(ct.ID(), 600, 100, ButtonLeft); err != nil {
		t.Fatalf("ContainerPointerDown: %v", err)
	}
	if gotWindow != w2.ID() || gotAction != "right-tap" {
		t.Errorf("sink got (%d, %q), want (%d, %q)", gotWindow, gotAction, w2.ID(), "right-tap")
	}

	// The slot window sees the press in its own coordinates.
	w2.mu.Lock()
	lx := w2.state.PointerX
	w2.mu.Unlock()
	if lx != 200 {
		t.Errorf("slot-local pointer x = %v, want 200", lx)
	}
}
