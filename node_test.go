package mullion

import (
	"image"
	"testing"
)

// --- Constructors ---

func TestConstructorsSetKindAndDirty(t *testing.T) {
	cases := []struct {
		name string
		node *SceneNode
		kind NodeKind
	}{
		{"group", NewGroup(1), KindGroup},
		{"rect", NewRect(2, 0, 0, 10, 10, ColorBlack), KindRect},
		{"text", NewText(3, "hi", 0, 0, ColorBlack), KindText},
		{"number", NewNumber(4, 3.14, 2, 0, 0, ColorBlack), KindNumber},
		{"line", NewLine(5, 0, 0, 10, 10, ColorBlack, 1), KindLine},
		{"image", NewImage(6, image.NewRGBA(image.Rect(0, 0, 4, 4)), 0, 0), KindImage},
		{"points", NewPoints(7, []Vec2{{0, 0}, {5, 5}}, ColorBlack, 1), KindPoints},
		{"path", NewPath(8, []PathSeg{{Op: PathMoveTo}}, ColorBlack), KindPath},
		{"layout", NewLayoutGroup(9, nil, Rect{0, 0, 50, 50}), KindLayoutGroup},
		{"canvas", NewCanvas(10, Rect{0, 0, 20, 20}, nil), KindCanvas},
	}
	for _, tc := range cases {
		if tc.node.Kind != tc.kind {
			t.Errorf("%s: kind = %v, want %v", tc.name, tc.node.Kind, tc.kind)
		}
		if !tc.node.Dirty() {
			t.Errorf("%s: new node should start dirty", tc.name)
		}
	}
}

// --- Tree building ---

func TestAddAppendsChildren(t *testing.T) {
	g := NewGroup(1).Add(NewRect(2, 0, 0, 1, 1, ColorBlack))
	g.Add(NewRect(3, 0, 0, 1, 1, ColorBlack), NewRect(4, 0, 0, 1, 1, ColorBlack))

	if len(g.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(g.Children))
	}
	for i, want := range []uint64{2, 3, 4} {
		if g.Children[i].ID != want {
			t.Errorf("child %d id = %d, want %d", i, g.Children[i].ID, want)
		}
	}
}

func TestAddOnLeafPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic") // should panic
		}
	}()
	NewRect(1, 0, 0, 1, 1, ColorBlack).Add(NewGroup(2))
}

func TestAddNilChildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic") // should panic
		}
	}()
	NewGroup(1).Add(nil)
}

func TestAddCyclePanics(t *testing.T) {
	root := NewGroup(1)
	mid := NewGroup(2)
	root.Add(mid)

	defer func() {
		if recover() == nil {
			t.Error("no panic") // should panic
		}
	}()
	mid.Add(root) // root's subtree already contains mid
}

func TestAddSelfPanics(t *testing.T) {
	g := NewGroup(1)
	defer func() {
		if recover() == nil {
			t.Error("no panic") // should panic
		}
	}()
	g.Add(g)
}

func TestChainingReturnsSameNode(t *testing.T) {
	n := NewRect(1, 0, 0, 10, 10, ColorBlack)
	if n.WithAction("go", CursorPointer) != n {
		t.Error("WithAction should return the receiver")
	}
	if n.Action != "go" || n.Cursor != CursorPointer {
		t.Errorf("action/cursor = %q/%v", n.Action, n.Cursor)
	}

	g := NewGroup(2)
	if g.WithClip(Rect{1, 2, 3, 4}) != g {
		t.Error("WithClip should return the receiver")
	}
	if g.Clip == nil || *g.Clip != (Rect{1, 2, 3, 4}) {
		t.Errorf("clip = %v, want {1 2 3 4}", g.Clip)
	}
}

// --- Bounds ---

func TestBoundsDerivation(t *testing.T) {
	cases := []struct {
		name string
		node *SceneNode
		want Rect
		ok   bool
	}{
		{"rect", NewRect(1, 5, 6, 20, 10, ColorBlack), Rect{5, 6, 20, 10}, true},
		{"zero rect", NewRect(1, 5, 6, 0, 10, ColorBlack), Rect{}, false},
		{"image", &SceneNode{Kind: KindImage, Pos: Vec2{1, 2}, Size: Vec2{8, 8}}, Rect{1, 2, 8, 8}, true},
		{"line", NewLine(1, 30, 5, 10, 25, ColorBlack, 1), Rect{10, 5, 20, 20}, true},
		{"layout", NewLayoutGroup(1, nil, Rect{3, 4, 50, 60}), Rect{3, 4, 50, 60}, true},
		{"canvas", NewCanvas(1, Rect{0, 0, 40, 40}, nil), Rect{0, 0, 40, 40}, true},
		{"clipped group", NewGroup(1).WithClip(Rect{0, 0, 30, 30}), Rect{0, 0, 30, 30}, true},
		{"plain group", NewGroup(1), Rect{}, false},
		{"text", NewText(1, "x", 0, 0, ColorBlack), Rect{}, false},
	}
	for _, tc := range cases {
		got, ok := tc.node.bounds()
		if ok != tc.ok {
			t.Errorf("%s: boundable = %v, want %v", tc.name, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("%s: bounds = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHitRectOverridesBounds(t *testing.T) {
	n := NewText(1, "wide target", 10, 10, ColorBlack)
	n.HitRect = Rect{0, 0, 200, 30}

	got, ok := n.bounds()
	if !ok || got != (Rect{0, 0, 200, 30}) {
		t.Errorf("bounds = %v, %v, want HitRect to make any node boundable", got, ok)
	}
}

// --- Cache lifecycle ---

func TestDisposeCachesReleasesSubtree(t *testing.T) {
	l := newLedger(1 << 20)
	root := NewGroup(1, NewGroup(2, NewRect(3, 0, 0, 1, 1, ColorBlack)))
	root.cache = chargedList(t, l, 100)
	root.Children[0].cache = chargedList(t, l, 50)

	root.disposeCaches()

	if l.bytes.Load() != 0 || l.count.Load() != 0 {
		t.Errorf("ledger = %d bytes, %d lists after dispose, want 0, 0",
			l.bytes.Load(), l.count.Load())
	}
	if root.Cached() || root.Children[0].Cached() {
		t.Error("nodes still report caches after disposal")
	}

	// Safe on nil receivers and already-disposed trees.
	root.disposeCaches()
	var nilNode *SceneNode
	nilNode.disposeCaches()
	if l.bytes.Load() != 0 {
		t.Errorf("double dispose credited the ledger again: %d", l.bytes.Load())
	}
}

func TestMarkSubtreeDirty(t *testing.T) {
	root := NewGroup(1, NewGroup(2, NewRect(3, 0, 0, 1, 1, ColorBlack)))
	root.dirty = false
	root.Children[0].dirty = false
	root.Children[0].Children[0].dirty = false

	root.markSubtreeDirty()

	if !root.dirty || !root.Children[0].dirty || !root.Children[0].Children[0].dirty {
		t.Error("markSubtreeDirty should reach every descendant")
	}

	var nilNode *SceneNode
	nilNode.markSubtreeDirty() // no-op
}

func TestCachedRequiresLiveRecording(t *testing.T) {
	n := NewGroup(1)
	if n.Cached() {
		t.Error("fresh node reports a cache")
	}

	l := newLedger(1 << 20)
	n.cache = chargedList(t, l, 10)
	if !n.Cached() {
		t.Error("node with a live list should report cached")
	}

	n.cache.dispose()
	if n.Cached() {
		t.Error("disposed list should not count as cached")
	}
}
