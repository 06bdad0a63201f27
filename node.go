package mullion

import (
	"image"

	"github.com/gogpu/gg/text"
)

// SceneNode is one node of a retained scene tree. A single flat struct
// backs every variant — the Kind tag selects which fields are meaningful.
// This avoids interface dispatch and per-variant allocations on the hot
// path; unused fields cost nothing.
//
// Content providers build a fresh tree every time they are asked for one.
// The runtime diffs it against the previous frame's tree, transfers or
// disposes compiled draw-list caches, and renders only what changed.
//
// ID semantics: ID > 0 is a stable identity — the node matches the
// previous-frame child with the same ID at the same tree level regardless
// of order. ID == 0 matches by child index. IDs also mark Groups as
// cache-worthy: only Groups with ID > 0 record draw lists.
type SceneNode struct {
	Kind NodeKind
	ID   uint64

	// Hit testing. A node with a non-empty Action registers a hit region
	// during rendering; Cursor is the hover hint for that region. HitRect
	// overrides the derived geometry when non-empty.
	Action  string
	Cursor  Cursor
	HitRect Rect

	// Group / LayoutGroup
	Children []*SceneNode
	Offset   Vec2
	Clip     *Rect // optional clip rect in local coordinates, nil = none

	// Geometry shared by Rect, Text, Number, Image (anchor), Line (first
	// endpoint via Pos, second via End).
	Pos  Vec2
	Size Vec2
	End  Vec2

	// Paint shared by drawable variants.
	Fill        Color
	Stroke      Color
	StrokeWidth float64
	Radius      float64 // rounded-rectangle corner radius

	// Text
	Text string
	Face text.Face // nil = renderer default face

	// Number
	Value    float64
	Decimals int

	// Image. Compared by reference between frames: swap the pointer to
	// invalidate.
	Image image.Image

	// Points / Path. Compared by reference (slice identity) between
	// frames: rebuild the slice to invalidate.
	Points []Vec2
	Segs   []PathSeg

	// LayoutGroup
	Layout     *LayoutTree
	LayoutRect Rect

	// Canvas. DrawFunc is invoked every frame with the live canvas and the
	// node's bounds; its output is never cached.
	DrawFunc func(c Canvas, bounds Rect)

	// Diff state. cache is valid only while dirty is false; ownership
	// transfers between frames by nulling the source reference. layoutGen
	// stamps the layout tree generation a LayoutGroup was last rendered at.
	dirty     bool
	cache     *drawList
	layoutGen uint64
}

// --- Constructors ---

// NewGroup creates a Group node. id > 0 makes the group's rendered output
// cache-worthy (recorded into a compiled draw list and replayed while
// clean); id == 0 groups draw their children directly.
func NewGroup(id uint64, children ...*SceneNode) *SceneNode {
	return &SceneNode{Kind: KindGroup, ID: id, Children: children, dirty: true}
}

// NewRect creates a filled rectangle node.
func NewRect(id uint64, x, y, w, h float64, fill Color) *SceneNode {
	return &SceneNode{
		Kind: KindRect, ID: id,
		Pos: Vec2{x, y}, Size: Vec2{w, h},
		Fill: fill, dirty: true,
	}
}

// NewText creates a text node anchored at (x, y) baseline.
func NewText(id uint64, s string, x, y float64, fill Color) *SceneNode {
	return &SceneNode{
		Kind: KindText, ID: id,
		Text: s, Pos: Vec2{x, y}, Fill: fill, dirty: true,
	}
}

// NewNumber creates a numeric node: value formatted with the given number
// of decimals at draw time, reusing the renderer's scratch buffer instead
// of going through fmt.
func NewNumber(id uint64, value float64, decimals int, x, y float64, fill Color) *SceneNode {
	return &SceneNode{
		Kind: KindNumber, ID: id,
		Value: value, Decimals: decimals,
		Pos: Vec2{x, y}, Fill: fill, dirty: true,
	}
}

// NewLine creates a line segment from (x1, y1) to (x2, y2).
func NewLine(id uint64, x1, y1, x2, y2 float64, stroke Color, width float64) *SceneNode {
	return &SceneNode{
		Kind: KindLine, ID: id,
		Pos: Vec2{x1, y1}, End: Vec2{x2, y2},
		Stroke: stroke, StrokeWidth: width, dirty: true,
	}
}

// NewImage creates an image node drawn with its top-left corner at (x, y).
// Size, when non-zero, scales the image to Size.X by Size.Y pixels.
func NewImage(id uint64, img image.Image, x, y float64) *SceneNode {
	return &SceneNode{
		Kind: KindImage, ID: id,
		Image: img, Pos: Vec2{x, y}, dirty: true,
	}
}

// NewPoints creates a polyline through pts.
func NewPoints(id uint64, pts []Vec2, stroke Color, width float64) *SceneNode {
	return &SceneNode{
		Kind: KindPoints, ID: id,
		Points: pts, Stroke: stroke, StrokeWidth: width, dirty: true,
	}
}

// NewPath creates a path node from segment ops. A zero-alpha Fill skips the
// fill pass; a positive StrokeWidth adds a stroke pass.
func NewPath(id uint64, segs []PathSeg, fill Color) *SceneNode {
	return &SceneNode{
		Kind: KindPath, ID: id,
		Segs: segs, Fill: fill, dirty: true,
	}
}

// NewLayoutGroup creates a node embedding a separately laid-out subtree.
// The layout engine computes child rectangles for rect's size; results are
// cached per viewport size, so a clean LayoutGroup skips layout entirely.
func NewLayoutGroup(id uint64, layout *LayoutTree, rect Rect) *SceneNode {
	return &SceneNode{
		Kind: KindLayoutGroup, ID: id,
		Layout: layout, LayoutRect: rect, dirty: true,
	}
}

// NewCanvas creates an opaque draw-callback node. The callback runs every
// frame — Canvas nodes are never cached because their draw logic is not
// introspectable.
func NewCanvas(id uint64, bounds Rect, draw func(c Canvas, bounds Rect)) *SceneNode {
	return &SceneNode{
		Kind: KindCanvas, ID: id,
		LayoutRect: bounds, DrawFunc: draw, dirty: true,
	}
}

// --- Tree building ---

// Add appends children and returns the node for chaining.
// Panics if the node kind cannot hold children, a child is nil, or a child's
// subtree already contains this node (cycle).
func (n *SceneNode) Add(children ...*SceneNode) *SceneNode {
	if n.Kind != KindGroup && n.Kind != KindLayoutGroup {
		panic("mullion: Add on a " + n.Kind.String() + " node")
	}
	for _, c := range children {
		if c == nil {
			panic("mullion: cannot add nil child")
		}
		if c.contains(n) {
			panic("mullion: adding child would create a cycle")
		}
	}
	n.Children = append(n.Children, children...)
	return n
}

// contains reports whether target is n or one of n's descendants.
func (n *SceneNode) contains(target *SceneNode) bool {
	if n == target {
		return true
	}
	for _, c := range n.Children {
		if c.contains(target) {
			return true
		}
	}
	return false
}

// WithAction attaches a hit-test action and cursor hint, returning the node
// for chaining.
func (n *SceneNode) WithAction(action string, cursor Cursor) *SceneNode {
	n.Action = action
	n.Cursor = cursor
	return n
}

// WithClip sets a Group's clip rect, returning the node for chaining.
func (n *SceneNode) WithClip(r Rect) *SceneNode {
	n.Clip = &r
	return n
}

// --- Diff state accessors ---

// Dirty reports whether the node must be re-rendered this frame.
func (n *SceneNode) Dirty() bool { return n.dirty }

// Cached reports whether the node holds a live compiled draw list.
func (n *SceneNode) Cached() bool { return n.cache != nil && n.cache.rec != nil }

// --- Cache disposal ---

// disposeCaches releases the compiled draw lists held by n and every
// descendant. Safe to call on nil and on nodes that hold no cache.
func (n *SceneNode) disposeCaches() {
	if n == nil {
		return
	}
	if n.cache != nil {
		n.cache.dispose()
		n.cache = nil
	}
	for _, c := range n.Children {
		c.disposeCaches()
	}
}

// markSubtreeDirty marks n and every descendant dirty without touching
// caches; callers dispose separately when invalidating.
func (n *SceneNode) markSubtreeDirty() {
	if n == nil {
		return
	}
	n.dirty = true
	for _, c := range n.Children {
		c.markSubtreeDirty()
	}
}

// bounds returns the node's hit/draw bounds in its local coordinate space,
// and whether bounds could be derived. HitRect wins when set; Groups
// require a clip rect to be boundable.
func (n *SceneNode) bounds() (Rect, bool) {
	if !n.HitRect.Empty() {
		return n.HitRect, true
	}
	switch n.Kind {
	case KindRect, KindImage:
		return Rect{n.Pos.X, n.Pos.Y, n.Size.X, n.Size.Y}, n.Size.X > 0 && n.Size.Y > 0
	case KindLine:
		x0, x1 := minMax(n.Pos.X, n.End.X)
		y0, y1 := minMax(n.Pos.Y, n.End.Y)
		return Rect{x0, y0, x1 - x0, y1 - y0}, true
	case KindLayoutGroup, KindCanvas:
		return n.LayoutRect, !n.LayoutRect.Empty()
	case KindGroup:
		if n.Clip != nil {
			return *n.Clip, true
		}
	}
	return Rect{}, false
}

func minMax(a, b float64) (float64, float64) {
	if a <= b {
		return a, b
	}
	return b, a
}
