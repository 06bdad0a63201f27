package mullion

import "math"

// LayoutTree is a retained layout tree. Providers build nodes once, mutate
// styles between frames, and the engine recomputes rectangles only when the
// tree generation or the viewport changed; an unchanged tree at an unchanged
// size is a cache hit that skips the whole pass.
//
// Handles index into an internal arena and stay valid for the life of the
// tree. Rectangles come back in layout space with the root at the origin;
// the renderer translates them into the embedding node's rectangle.
//
// The zero Style is usable: a flex row that sizes to content and neither
// grows nor shrinks. DefaultStyle returns the CSS-like defaults (shrink 1,
// stretch cross alignment) for callers porting stylesheet-shaped layouts.
type LayoutTree struct {
	nodes []layoutNode
	gen   uint64

	lastGen  uint64
	lastW    float64
	lastH    float64
	computed bool
}

// Handle names a node in a LayoutTree.
type Handle int

// NoHandle is the null handle.
const NoHandle Handle = -1

type layoutNode struct {
	style    Style
	parent   Handle
	children []Handle
	tag      int

	rect Rect // computed, absolute in layout space

	// auto-placement scratch, valid during one compute
	gridRow, gridCol, gridRowSpan, gridColSpan int
}

// --- Style model ---

// Display selects the layout algorithm a node applies to its children.
type Display uint8

const (
	DisplayFlex  Display = iota // flexbox; the default
	DisplayGrid                 // track-based grid
	DisplayBlock                // vertical stack, children take full width
	DisplayNone                 // removed from layout entirely
)

// Position selects in-flow versus inset-positioned placement.
type Position uint8

const (
	PositionRelative Position = iota // laid out in flow
	PositionAbsolute                 // positioned by Inset against the parent box
)

// FlexDirection sets the main axis of a flex container.
type FlexDirection uint8

const (
	FlexRow FlexDirection = iota
	FlexColumn
	FlexRowReverse
	FlexColumnReverse
)

// Align aligns children on the cross axis (AlignItems) or overrides it per
// child (AlignSelf).
type Align uint8

const (
	AlignAuto Align = iota // AlignItems: stretch; AlignSelf: inherit
	AlignStart
	AlignCenter
	AlignEnd
	AlignStretch
)

// Justify distributes free main-axis space between children.
type Justify uint8

const (
	JustifyStart Justify = iota
	JustifyCenter
	JustifyEnd
	JustifySpaceBetween
	JustifySpaceAround
	JustifySpaceEvenly
)

// Overflow controls whether children may paint outside the node's box.
type Overflow uint8

const (
	OverflowVisible Overflow = iota
	OverflowHidden
)

// DimKind tags a Dimension.
type DimKind uint8

const (
	DimAuto DimKind = iota // sized by content or stretch
	DimPx                  // absolute pixels
	DimPct                 // fraction of the parent extent, 0..1
)

// Dimension is an optionally-definite length. The zero value is auto.
type Dimension struct {
	Kind  DimKind
	Value float64
}

// Px returns an absolute pixel dimension.
func Px(v float64) Dimension { return Dimension{Kind: DimPx, Value: v} }

// Pct returns a dimension as a fraction (0..1) of the parent extent.
func Pct(v float64) Dimension { return Dimension{Kind: DimPct, Value: v} }

// Auto is the indefinite dimension.
var Auto = Dimension{}

// resolve returns the definite length against avail, or ok=false for auto.
func (d Dimension) resolve(avail float64) (float64, bool) {
	switch d.Kind {
	case DimPx:
		return d.Value, true
	case DimPct:
		return d.Value * avail, true
	}
	return 0, false
}

// Edges is a per-side pixel inset used for margin and padding.
type Edges struct {
	Left, Top, Right, Bottom float64
}

// UniformEdges returns Edges with the same value on every side.
func UniformEdges(v float64) Edges { return Edges{v, v, v, v} }

// Inset positions an absolute node against its parent's box. Auto sides
// are derived from the opposite side and the node's size.
type Inset struct {
	Left, Top, Right, Bottom Dimension
}

// TrackKind tags a grid Track.
type TrackKind uint8

const (
	TrackKindAuto TrackKind = iota // sized by content
	TrackKindPx                    // fixed pixels
	TrackKindFr                    // fraction of leftover space
)

// Track is one row or column of a grid template.
type Track struct {
	Kind  TrackKind
	Value float64
}

// TrackPx returns a fixed-size track.
func TrackPx(v float64) Track { return Track{Kind: TrackKindPx, Value: v} }

// TrackFr returns a fractional track taking v shares of leftover space.
func TrackFr(v float64) Track { return Track{Kind: TrackKindFr, Value: v} }

// TrackAuto returns a content-sized track.
func TrackAuto() Track { return Track{} }

// GridPlacement pins a grid child to a track line. Line is 1-based; zero
// means auto-placement. Span zero means one track.
type GridPlacement struct {
	Line int
	Span int
}

func (p GridPlacement) span() int {
	if p.Span < 1 {
		return 1
	}
	return p.Span
}

// Style holds every layout property of a node. Container properties apply
// to the node's children; child properties apply to the node inside its
// parent.
type Style struct {
	Display  Display
	Position Position
	Inset    Inset

	Width, Height       Dimension
	MinWidth, MinHeight Dimension
	MaxWidth, MaxHeight Dimension
	AspectRatio         float64 // width/height; 0 = none

	Margin  Edges
	Padding Edges

	// Flex container
	Direction      FlexDirection
	Wrap           bool
	AlignItems     Align
	JustifyContent Justify
	RowGap         float64
	ColumnGap      float64

	// Flex child
	Grow      float64
	Shrink    float64
	Basis     Dimension
	AlignSelf Align

	// Grid container
	TemplateRows    []Track
	TemplateColumns []Track

	// Grid child
	Row    GridPlacement
	Column GridPlacement

	Overflow Overflow
}

// DefaultStyle returns stylesheet-like defaults: shrink 1 and stretched
// cross alignment. The zero Style differs only in those two fields.
func DefaultStyle() Style {
	return Style{Shrink: 1, AlignItems: AlignStretch}
}

// --- Tree construction ---

// NewLayoutTree returns an empty tree.
func NewLayoutTree() *LayoutTree {
	return &LayoutTree{}
}

// NewNode adds a node with the given style and no parent.
func (t *LayoutTree) NewNode(s Style) Handle {
	t.nodes = append(t.nodes, layoutNode{style: s, parent: NoHandle, tag: -1})
	t.gen++
	return Handle(len(t.nodes) - 1)
}

// AddChild appends child to parent's child list.
func (t *LayoutTree) AddChild(parent, child Handle) {
	t.nodes[parent].children = append(t.nodes[parent].children, child)
	t.nodes[child].parent = parent
	t.gen++
}

// SetStyle replaces a node's style and invalidates computed results.
func (t *LayoutTree) SetStyle(h Handle, s Style) {
	t.nodes[h].style = s
	t.gen++
}

// Style returns the node's current style.
func (t *LayoutTree) Style(h Handle) Style {
	return t.nodes[h].style
}

// SetTag binds a scene child index to the node. The renderer draws the
// embedding LayoutGroup's child with this index inside the node's computed
// rectangle. Tag -1 (the default) marks pure structure.
func (t *LayoutTree) SetTag(h Handle, tag int) {
	t.nodes[h].tag = tag
	t.gen++
}

// Tag returns the node's scene child index, or -1.
func (t *LayoutTree) Tag(h Handle) int {
	return t.nodes[h].tag
}

// Generation counts mutations. Scene diffing compares generations to decide
// whether an embedded tree's cached pixels are stale.
func (t *LayoutTree) Generation() uint64 {
	return t.gen
}

// Root returns the first node created, the conventional layout root, or
// NoHandle for an empty tree.
func (t *LayoutTree) Root() Handle {
	if len(t.nodes) == 0 {
		return NoHandle
	}
	return 0
}

// --- Compute ---

// Compute lays out the subtree under root for the given viewport. Results
// are cached: recomputation happens only when the tree mutated or the
// viewport changed since the previous call.
func (t *LayoutTree) Compute(root Handle, availW, availH float64) {
	if t.computed && t.lastGen == t.gen && t.lastW == availW && t.lastH == availH {
		return
	}
	w, ok := t.nodes[root].style.Width.resolve(availW)
	if !ok {
		w = availW
	}
	h, ok := t.nodes[root].style.Height.resolve(availH)
	if !ok {
		h = availH
	}
	t.layout(root, 0, 0, w, h)
	t.lastGen, t.lastW, t.lastH = t.gen, availW, availH
	t.computed = true
}

// Rect returns the node's computed rectangle in layout space. Valid after
// Compute.
func (t *LayoutTree) Rect(h Handle) Rect {
	return t.nodes[h].rect
}

// Walk visits the subtree under root depth-first with each node's computed
// rectangle and tag.
func (t *LayoutTree) Walk(root Handle, fn func(h Handle, r Rect, tag int)) {
	n := &t.nodes[root]
	fn(root, n.rect, n.tag)
	for _, c := range n.children {
		t.Walk(c, fn)
	}
}

// --- Measurement ---

// measure returns the node's preferred outer content size, before margins.
func (t *LayoutTree) measure(h Handle, availW, availH float64) (float64, float64) {
	n := &t.nodes[h]
	s := &n.style
	if s.Display == DisplayNone {
		return 0, 0
	}

	w, wok := s.Width.resolve(availW)
	hh, hok := s.Height.resolve(availH)
	if wok && hok {
		return t.clampSize(h, w, hh, availW, availH)
	}

	var cw, ch float64
	switch s.Display {
	case DisplayFlex:
		cw, ch = t.measureFlexContent(h, availW, availH)
	case DisplayGrid:
		cw, ch = t.measureGridContent(h, availW, availH)
	default: // block
		cw, ch = t.measureBlockContent(h, availW, availH)
	}
	if !wok {
		w = cw + s.Padding.Left + s.Padding.Right
	}
	if !hok {
		hh = ch + s.Padding.Top + s.Padding.Bottom
	}

	// A definite axis plus an aspect ratio derives the other.
	if s.AspectRatio > 0 {
		if wok && !hok {
			hh = w / s.AspectRatio
		} else if hok && !wok {
			w = hh * s.AspectRatio
		}
	}
	return t.clampSize(h, w, hh, availW, availH)
}

func (t *LayoutTree) clampSize(h Handle, w, hh, availW, availH float64) (float64, float64) {
	s := &t.nodes[h].style
	if v, ok := s.MinWidth.resolve(availW); ok && w < v {
		w = v
	}
	if v, ok := s.MaxWidth.resolve(availW); ok && w > v {
		w = v
	}
	if v, ok := s.MinHeight.resolve(availH); ok && hh < v {
		hh = v
	}
	if v, ok := s.MaxHeight.resolve(availH); ok && hh > v {
		hh = v
	}
	return w, hh
}

func (t *LayoutTree) measureFlexContent(h Handle, availW, availH float64) (float64, float64) {
	n := &t.nodes[h]
	horiz := n.style.Direction == FlexRow || n.style.Direction == FlexRowReverse
	gap := n.style.ColumnGap
	if !horiz {
		gap = n.style.RowGap
	}
	var main, cross float64
	count := 0
	for _, c := range n.children {
		cs := &t.nodes[c].style
		if cs.Display == DisplayNone || cs.Position == PositionAbsolute {
			continue
		}
		cw, ch := t.measure(c, availW, availH)
		cw += cs.Margin.Left + cs.Margin.Right
		ch += cs.Margin.Top + cs.Margin.Bottom
		if horiz {
			main += cw
			cross = math.Max(cross, ch)
		} else {
			main += ch
			cross = math.Max(cross, cw)
		}
		count++
	}
	if count > 1 {
		main += gap * float64(count-1)
	}
	if horiz {
		return main, cross
	}
	return cross, main
}

func (t *LayoutTree) measureBlockContent(h Handle, availW, availH float64) (float64, float64) {
	n := &t.nodes[h]
	var w, hh float64
	for _, c := range n.children {
		cs := &t.nodes[c].style
		if cs.Display == DisplayNone || cs.Position == PositionAbsolute {
			continue
		}
		cw, ch := t.measure(c, availW, availH)
		w = math.Max(w, cw+cs.Margin.Left+cs.Margin.Right)
		hh += ch + cs.Margin.Top + cs.Margin.Bottom
	}
	return w, hh
}

func (t *LayoutTree) measureGridContent(h Handle, availW, availH float64) (float64, float64) {
	s := &t.nodes[h].style
	var w, hh float64
	for _, tr := range s.TemplateColumns {
		if tr.Kind == TrackKindPx {
			w += tr.Value
		}
	}
	for _, tr := range s.TemplateRows {
		if tr.Kind == TrackKindPx {
			hh += tr.Value
		}
	}
	if n := len(s.TemplateColumns); n > 1 {
		w += s.ColumnGap * float64(n-1)
	}
	if n := len(s.TemplateRows); n > 1 {
		hh += s.RowGap * float64(n-1)
	}
	return w, hh
}

// --- Placement ---

// layout assigns rects to the subtree; (x, y) is the node's top-left in
// layout space and (w, h) its final outer size.
func (t *LayoutTree) layout(h Handle, x, y, w, hh float64) {
	n := &t.nodes[h]
	n.rect = Rect{X: x, Y: y, Width: w, Height: hh}
	if n.style.Display == DisplayNone {
		n.rect = Rect{}
		return
	}

	// Content box.
	p := n.style.Padding
	cx, cy := x+p.Left, y+p.Top
	cw := math.Max(0, w-p.Left-p.Right)
	ch := math.Max(0, hh-p.Top-p.Bottom)

	switch n.style.Display {
	case DisplayFlex:
		t.layoutFlex(h, cx, cy, cw, ch)
	case DisplayGrid:
		t.layoutGrid(h, cx, cy, cw, ch)
	default:
		t.layoutBlock(h, cx, cy, cw, ch)
	}

	for _, c := range n.children {
		if t.nodes[c].style.Position == PositionAbsolute {
			t.layoutAbsolute(c, cx, cy, cw, ch)
		}
	}
}

// flexItem is per-child working state for one flex pass.
type flexItem struct {
	h          Handle
	basis      float64 // main size before grow/shrink
	main       float64 // final main size
	cross      float64 // final cross size, 0 = stretch pending
	mainMargin float64
}

func (t *LayoutTree) layoutFlex(h Handle, cx, cy, cw, ch float64) {
	n := &t.nodes[h]
	s := &n.style
	horiz := s.Direction == FlexRow || s.Direction == FlexRowReverse
	reverse := s.Direction == FlexRowReverse || s.Direction == FlexColumnReverse

	mainAvail, crossAvail := cw, ch
	gap := s.ColumnGap
	crossGap := s.RowGap
	if !horiz {
		mainAvail, crossAvail = ch, cw
		gap = s.RowGap
		crossGap = s.ColumnGap
	}

	items := make([]flexItem, 0, len(n.children))
	for _, c := range n.children {
		cs := &t.nodes[c].style
		if cs.Display == DisplayNone || cs.Position == PositionAbsolute {
			continue
		}
		it := flexItem{h: c}
		mw, mh := cs.Margin.Left+cs.Margin.Right, cs.Margin.Top+cs.Margin.Bottom
		if horiz {
			it.mainMargin = mw
		} else {
			it.mainMargin = mh
		}
		it.basis = t.flexBasis(c, horiz, mainAvail, crossAvail)
		items = append(items, it)
	}
	if len(items) == 0 {
		return
	}

	// Split into lines. Without wrap everything is one line.
	lineStart := 0
	crossPos := 0.0
	for lineStart < len(items) {
		lineEnd := len(items)
		if s.Wrap {
			used := 0.0
			for i := lineStart; i < len(items); i++ {
				add := items[i].basis + items[i].mainMargin
				if i > lineStart {
					add += gap
				}
				if i > lineStart && used+add > mainAvail {
					lineEnd = i
					break
				}
				used += add
			}
		}
		line := items[lineStart:lineEnd]
		lineCross := t.flexLine(line, s, horiz, reverse, cx, cy, crossPos, mainAvail, crossAvail, gap)
		crossPos += lineCross + crossGap
		lineStart = lineEnd
	}
}

// flexLine resolves and places one flex line, returning its cross extent.
func (t *LayoutTree) flexLine(line []flexItem, s *Style, horiz, reverse bool, cx, cy, crossPos, mainAvail, crossAvail, gap float64) float64 {
	gaps := gap * float64(len(line)-1)
	used := gaps
	var growSum, shrinkSum float64
	for i := range line {
		used += line[i].basis + line[i].mainMargin
		cs := &t.nodes[line[i].h].style
		growSum += cs.Grow
		shrinkSum += cs.Shrink * line[i].basis
	}

	free := mainAvail - used
	for i := range line {
		cs := &t.nodes[line[i].h].style
		m := line[i].basis
		if free > 0 && growSum > 0 {
			m += free * cs.Grow / growSum
		} else if free < 0 && shrinkSum > 0 {
			m += free * cs.Shrink * line[i].basis / shrinkSum
		}
		// Min/max clamp wins over the distribution; freed space is not
		// redistributed a second time.
		m = t.clampMain(line[i].h, horiz, m, mainAvail)
		line[i].main = m
	}

	// Leftover after distribution feeds justification.
	leftover := mainAvail - gaps
	for i := range line {
		leftover -= line[i].main + line[i].mainMargin
	}
	if leftover < 0 {
		leftover = 0
	}
	lead, between := justify(s.JustifyContent, leftover, len(line))

	// Cross sizes, then the line extent.
	lineCross := 0.0
	for i := range line {
		line[i].cross = t.flexCross(line[i].h, horiz, crossAvail)
		cs := &t.nodes[line[i].h].style
		cm := cs.Margin.Top + cs.Margin.Bottom
		if !horiz {
			cm = cs.Margin.Left + cs.Margin.Right
		}
		lineCross = math.Max(lineCross, line[i].cross+cm)
	}
	if len(line) > 0 && lineCross == 0 {
		lineCross = crossAvail - crossPos
	}

	pos := lead
	for idx := range line {
		i := idx
		if reverse {
			i = len(line) - 1 - idx
		}
		it := &line[i]
		cs := &t.nodes[it.h].style

		align := cs.AlignSelf
		if align == AlignAuto {
			align = s.AlignItems
			if align == AlignAuto {
				align = AlignStretch
			}
		}
		cross := it.cross
		var crossMarginLead, crossMarginSum float64
		if horiz {
			crossMarginLead = cs.Margin.Top
			crossMarginSum = cs.Margin.Top + cs.Margin.Bottom
		} else {
			crossMarginLead = cs.Margin.Left
			crossMarginSum = cs.Margin.Left + cs.Margin.Right
		}
		if cross == 0 && align == AlignStretch {
			cross = lineCross - crossMarginSum
		}
		crossOff := crossMarginLead
		switch align {
		case AlignCenter:
			crossOff += (lineCross - crossMarginSum - cross) / 2
		case AlignEnd:
			crossOff += lineCross - crossMarginSum - cross
		}

		var mainMarginLead float64
		if horiz {
			mainMarginLead = cs.Margin.Left
		} else {
			mainMarginLead = cs.Margin.Top
		}
		pos += mainMarginLead
		if horiz {
			t.layout(it.h, cx+pos, cy+crossPos+crossOff, it.main, cross)
		} else {
			t.layout(it.h, cx+crossPos+crossOff, cy+pos, cross, it.main)
		}
		pos += it.main + (it.mainMargin - mainMarginLead) + gap + between
	}
	return lineCross
}

// flexBasis resolves the starting main size of a flex child.
func (t *LayoutTree) flexBasis(c Handle, horiz bool, mainAvail, crossAvail float64) float64 {
	cs := &t.nodes[c].style
	if v, ok := cs.Basis.resolve(mainAvail); ok {
		return v
	}
	dim := cs.Width
	if !horiz {
		dim = cs.Height
	}
	if v, ok := dim.resolve(mainAvail); ok {
		return v
	}
	mw, mh := t.measure(c, mainAvail, crossAvail)
	if !horiz {
		return mh
	}
	return mw
}

func (t *LayoutTree) clampMain(c Handle, horiz bool, m, avail float64) float64 {
	cs := &t.nodes[c].style
	minD, maxD := cs.MinWidth, cs.MaxWidth
	if !horiz {
		minD, maxD = cs.MinHeight, cs.MaxHeight
	}
	if v, ok := minD.resolve(avail); ok && m < v {
		m = v
	}
	if v, ok := maxD.resolve(avail); ok && m > v {
		m = v
	}
	if m < 0 {
		m = 0
	}
	return m
}

// flexCross returns the child's definite cross size, or 0 for stretch.
func (t *LayoutTree) flexCross(c Handle, horiz bool, crossAvail float64) float64 {
	cs := &t.nodes[c].style
	dim := cs.Height
	if !horiz {
		dim = cs.Width
	}
	if v, ok := dim.resolve(crossAvail); ok {
		return v
	}
	if cs.AspectRatio > 0 {
		// Derived later from the main size would be ideal; a measured
		// fallback keeps the single-pass algorithm.
		mw, mh := t.measure(c, crossAvail, crossAvail)
		if horiz && mh > 0 {
			return mh
		}
		if !horiz && mw > 0 {
			return mw
		}
	}
	return 0
}

// justify converts leftover main space into a leading offset and an extra
// per-gap spacing.
func justify(j Justify, leftover float64, count int) (lead, between float64) {
	switch j {
	case JustifyCenter:
		return leftover / 2, 0
	case JustifyEnd:
		return leftover, 0
	case JustifySpaceBetween:
		if count > 1 {
			return 0, leftover / float64(count-1)
		}
		return 0, 0
	case JustifySpaceAround:
		s := leftover / float64(count)
		return s / 2, s
	case JustifySpaceEvenly:
		s := leftover / float64(count+1)
		return s, s
	}
	return 0, 0
}

func (t *LayoutTree) layoutBlock(h Handle, cx, cy, cw, ch float64) {
	n := &t.nodes[h]
	y := cy
	for _, c := range n.children {
		cs := &t.nodes[c].style
		if cs.Display == DisplayNone || cs.Position == PositionAbsolute {
			continue
		}
		w := cw - cs.Margin.Left - cs.Margin.Right
		if v, ok := cs.Width.resolve(cw); ok {
			w = v
		}
		_, mh := t.measure(c, cw, ch)
		if v, ok := cs.Height.resolve(ch); ok {
			mh = v
		}
		y += cs.Margin.Top
		t.layout(c, cx+cs.Margin.Left, y, w, mh)
		y += mh + cs.Margin.Bottom
	}
}

// --- Grid ---

func (t *LayoutTree) layoutGrid(h Handle, cx, cy, cw, ch float64) {
	n := &t.nodes[h]
	s := &n.style
	cols := s.TemplateColumns
	rows := s.TemplateRows
	if len(cols) == 0 {
		cols = []Track{TrackFr(1)}
	}
	if len(rows) == 0 {
		rows = []Track{TrackFr(1)}
	}

	rowCount := t.placeGridChildren(h, len(rows), len(cols))
	for len(rows) < rowCount {
		rows = append(rows, TrackAuto()) // implicit rows grow as needed
	}

	colSizes := t.sizeTracks(h, cols, cw, s.ColumnGap, false)
	rowSizes := t.sizeTracks(h, rows, ch, s.RowGap, true)

	colOff := offsets(colSizes, s.ColumnGap)
	rowOff := offsets(rowSizes, s.RowGap)

	for _, c := range n.children {
		cn := &t.nodes[c]
		cs := &cn.style
		if cs.Display == DisplayNone || cs.Position == PositionAbsolute {
			continue
		}
		x0 := colOff[cn.gridCol]
		y0 := rowOff[cn.gridRow]
		x1 := colOff[cn.gridCol+cn.gridColSpan-1] + colSizes[cn.gridCol+cn.gridColSpan-1]
		y1 := rowOff[cn.gridRow+cn.gridRowSpan-1] + rowSizes[cn.gridRow+cn.gridRowSpan-1]
		x := x0 + cs.Margin.Left
		y := y0 + cs.Margin.Top
		w := x1 - x0 - cs.Margin.Left - cs.Margin.Right
		hh := y1 - y0 - cs.Margin.Top - cs.Margin.Bottom
		if v, ok := cs.Width.resolve(w); ok {
			w = v
		}
		if v, ok := cs.Height.resolve(hh); ok {
			hh = v
		}
		t.layout(c, cx+x, cy+y, math.Max(0, w), math.Max(0, hh))
	}
}

// placeGridChildren resolves explicit placements and auto-places the rest
// row-major, growing implicit rows. Returns the total row count.
func (t *LayoutTree) placeGridChildren(h Handle, rowCount, colCount int) int {
	n := &t.nodes[h]
	type cell struct{ r, c int }
	taken := make(map[cell]bool)

	// Explicit placements claim cells first.
	for _, c := range n.children {
		cn := &t.nodes[c]
		cs := &cn.style
		if cs.Display == DisplayNone || cs.Position == PositionAbsolute {
			continue
		}
		if cs.Row.Line > 0 || cs.Column.Line > 0 {
			cn.gridRow = max(cs.Row.Line-1, 0)
			cn.gridCol = max(cs.Column.Line-1, 0)
			cn.gridRowSpan = cs.Row.span()
			cn.gridColSpan = cs.Column.span()
			if cn.gridCol+cn.gridColSpan > colCount {
				cn.gridCol = max(colCount-cn.gridColSpan, 0)
			}
			for r := cn.gridRow; r < cn.gridRow+cn.gridRowSpan; r++ {
				for cc := cn.gridCol; cc < cn.gridCol+cn.gridColSpan; cc++ {
					taken[cell{r, cc}] = true
				}
			}
			rowCount = max(rowCount, cn.gridRow+cn.gridRowSpan)
		}
	}

	// Auto placement scans row-major for the first free span.
	r, cc := 0, 0
	for _, c := range n.children {
		cn := &t.nodes[c]
		cs := &cn.style
		if cs.Display == DisplayNone || cs.Position == PositionAbsolute {
			continue
		}
		if cs.Row.Line > 0 || cs.Column.Line > 0 {
			continue
		}
		span := cs.Column.span()
		if span > colCount {
			span = colCount
		}
		for {
			if cc+span > colCount {
				cc = 0
				r++
			}
			free := true
			for k := cc; k < cc+span; k++ {
				if taken[cell{r, k}] {
					free = false
					break
				}
			}
			if free {
				break
			}
			cc++
		}
		cn.gridRow, cn.gridCol = r, cc
		cn.gridRowSpan, cn.gridColSpan = cs.Row.span(), span
		for rr := r; rr < r+cn.gridRowSpan; rr++ {
			for k := cc; k < cc+span; k++ {
				taken[cell{rr, k}] = true
			}
		}
		rowCount = max(rowCount, r+cn.gridRowSpan)
		cc += span
	}
	return rowCount
}

// sizeTracks resolves track extents: fixed pixels, then content-sized auto
// tracks, then fractional shares of whatever remains.
func (t *LayoutTree) sizeTracks(h Handle, tracks []Track, avail, gap float64, rowAxis bool) []float64 {
	n := &t.nodes[h]
	sizes := make([]float64, len(tracks))
	remaining := avail - gap*float64(len(tracks)-1)
	var frSum float64

	for i, tr := range tracks {
		switch tr.Kind {
		case TrackKindPx:
			sizes[i] = tr.Value
			remaining -= tr.Value
		case TrackKindFr:
			frSum += tr.Value
		case TrackKindAuto:
			// Content size: the largest measure of a child occupying only
			// this track on the axis.
			m := 0.0
			for _, c := range n.children {
				cn := &t.nodes[c]
				cs := &cn.style
				if cs.Display == DisplayNone || cs.Position == PositionAbsolute {
					continue
				}
				idx, span := cn.gridCol, cn.gridColSpan
				if rowAxis {
					idx, span = cn.gridRow, cn.gridRowSpan
				}
				if idx != i || span != 1 {
					continue
				}
				mw, mh := t.measure(c, avail, avail)
				if rowAxis {
					m = math.Max(m, mh+cs.Margin.Top+cs.Margin.Bottom)
				} else {
					m = math.Max(m, mw+cs.Margin.Left+cs.Margin.Right)
				}
			}
			sizes[i] = m
			remaining -= m
		}
	}
	if frSum > 0 && remaining > 0 {
		per := remaining / frSum
		for i, tr := range tracks {
			if tr.Kind == TrackKindFr {
				sizes[i] = per * tr.Value
			}
		}
	}
	return sizes
}

func offsets(sizes []float64, gap float64) []float64 {
	off := make([]float64, len(sizes))
	pos := 0.0
	for i, s := range sizes {
		off[i] = pos
		pos += s + gap
	}
	return off
}

// --- Absolute positioning ---

func (t *LayoutTree) layoutAbsolute(c Handle, cx, cy, cw, ch float64) {
	cs := &t.nodes[c].style

	l, lok := cs.Inset.Left.resolve(cw)
	r, rok := cs.Inset.Right.resolve(cw)
	tp, tok := cs.Inset.Top.resolve(ch)
	b, bok := cs.Inset.Bottom.resolve(ch)

	w, wok := cs.Width.resolve(cw)
	if !wok {
		if lok && rok {
			w = cw - l - r
		} else {
			w, _ = t.measure(c, cw, ch)
		}
	}
	hh, hok := cs.Height.resolve(ch)
	if !hok {
		if tok && bok {
			hh = ch - tp - b
		} else {
			_, hh = t.measure(c, cw, ch)
		}
	}

	x := 0.0
	switch {
	case lok:
		x = l
	case rok:
		x = cw - r - w
	}
	y := 0.0
	switch {
	case tok:
		y = tp
	case bok:
		y = ch - b - hh
	}
	t.layout(c, cx+x+cs.Margin.Left, cy+y+cs.Margin.Top, math.Max(0, w), math.Max(0, hh))
}
