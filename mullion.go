package mullion

import "github.com/gogpu/gg"

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Conversion to the drawing library's color type happens at draw submission.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default draw color.
var ColorWhite = Color{1, 1, 1, 1}

// ColorBlack is fully opaque black.
var ColorBlack = Color{0, 0, 0, 1}

// gg converts the color for submission to the drawing layer.
func (c Color) gg() gg.RGBA {
	return gg.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Vec2 is a 2D vector used for positions, offsets, and deltas.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// NodeKind distinguishes the variant of a SceneNode.
type NodeKind uint8

const (
	KindGroup       NodeKind = iota // children with a shared offset and optional clip
	KindRect                        // filled and/or stroked rectangle
	KindText                        // string drawn with the current face
	KindNumber                      // formatted numeric drawn without allocation
	KindLine                        // single line segment
	KindImage                       // raster image
	KindPoints                      // polyline through a point slice
	KindPath                        // arbitrary path from segment ops
	KindLayoutGroup                 // embeds a separately laid-out subtree
	KindCanvas                      // opaque per-frame draw callback, never cached
)

// String returns the variant name, for logs and test failures.
func (k NodeKind) String() string {
	switch k {
	case KindGroup:
		return "Group"
	case KindRect:
		return "Rect"
	case KindText:
		return "Text"
	case KindNumber:
		return "Number"
	case KindLine:
		return "Line"
	case KindImage:
		return "Image"
	case KindPoints:
		return "Points"
	case KindPath:
		return "Path"
	case KindLayoutGroup:
		return "LayoutGroup"
	case KindCanvas:
		return "Canvas"
	default:
		return "Unknown"
	}
}

// Orientation selects the split axis of a bind container.
type Orientation uint8

const (
	Horizontal Orientation = iota // slots side by side, dividers vertical
	Vertical                      // slots stacked, dividers horizontal
)

// String returns the orientation name.
func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// LayoutMode describes how a managed window participates in composition.
type LayoutMode uint8

const (
	ModeStandalone    LayoutMode = iota // owns its whole host surface
	ModeTabGroup                        // member of a tab group, one visible at a time
	ModeContainerSlot                   // renders into a slot of a bind container
)

// Cursor is a pointer-shape hint surfaced from hit testing.
type Cursor uint8

const (
	CursorDefault   Cursor = iota // platform arrow
	CursorPointer                 // clickable target
	CursorText                    // text caret
	CursorCrosshair               // precise selection
	CursorResizeH                 // horizontal resize (over vertical dividers)
	CursorResizeV                 // vertical resize (over horizontal dividers)
	CursorGrab                    // draggable target (tab title bands)
)

// PointerButtons is a bitmask of pressed pointer buttons, carried in FrameState.
// Values combine with bitwise OR.
type PointerButtons uint8

const (
	ButtonLeft   PointerButtons = 1 << iota // primary button
	ButtonRight                             // secondary button
	ButtonMiddle                            // middle button
)

// PathOp is a single segment operation inside a Path node.
type PathOp uint8

const (
	PathMoveTo  PathOp = iota // start a new subpath at (X1, Y1)
	PathLineTo                // line to (X1, Y1)
	PathQuadTo                // quadratic curve via (X1, Y1) to (X2, Y2)
	PathCubicTo               // cubic curve via (X1, Y1), (X2, Y2) to (X3, Y3)
	PathClose                 // close the current subpath
)

// PathSeg is one segment of a Path node's outline.
type PathSeg struct {
	Op             PathOp
	X1, Y1         float64
	X2, Y2         float64
	X3, Y3         float64
}
