package mullion

import (
	"strconv"

	"github.com/gogpu/gg"
)

// The renderer walks a diffed scene tree and draws it into a frame
// context's live surface. One walk serves two targets: direct drawing
// routes through the context, re-recording routes through a recorder, and
// both speak the Canvas interface, so every node kind draws identically
// whether its pixels end up on screen or in a compiled draw list.
//
// Cache policy for containers with ID > 0:
//
//   - clean with a live list: replay the list, skip the subtree.
//   - dirty: re-record the subtree (clean cached descendants splice their
//     own lists into the new recording), charge the ledger, store.
//   - a recording that does not fit the budget is dropped and the subtree
//     draws directly; it stays uncached until its content changes again.
//
// A purge generation bump invalidates every stored list: the next walk
// disposes them on sight and re-records.

// renderTree draws root into fc's live surface. The tree must already be
// diffed against the previous frame so dirty flags and cache ownership are
// current.
func renderTree(fc *FrameContext, root *SceneNode) {
	drawNode(fc, fc.canvas, root)
}

func drawNode(fc *FrameContext, c Canvas, n *SceneNode) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindGroup, KindLayoutGroup:
		drawContainer(fc, c, n)
	case KindCanvas:
		drawCallback(c, n)
	default:
		drawLeaf(c, n)
	}
}

// --- Containers ---

func drawContainer(fc *FrameContext, c Canvas, n *SceneNode) {
	if dl := ensureCache(fc, n); dl != nil {
		replayList(fc, c, dl)
		return
	}
	drawContainerContent(fc, c, n)
}

// ensureCache returns the live compiled draw list for a cache-worthy
// container, recording a fresh one when the node is dirty. nil means draw
// directly: the node has no identity, it is clean but was never cached, or
// its recording did not fit the budget.
func ensureCache(fc *FrameContext, n *SceneNode) *drawList {
	if n.ID == 0 {
		return nil
	}
	if n.cache != nil && n.cache.gen != fc.PurgeGeneration() {
		// Evicted by a purge since it was recorded. Repopulate.
		n.cache.dispose()
		n.cache = nil
		n.dirty = true
	}
	if !n.dirty {
		return n.cache
	}
	if n.cache != nil {
		n.cache.dispose()
		n.cache = nil
	}
	w, h := fc.DrawableSize()
	rc := newRecordCanvas(w, h, fc.face)
	drawContainerContent(fc, rc, n)
	rec, faces := rc.finish()
	bytes := estimateRecordingBytes(rec)
	if !fc.ledger.tryCharge(bytes) {
		fc.log.Debug().Uint64("node", n.ID).Int64("bytes", bytes).
			Msg("draw list over cache budget, drawing direct")
		return nil
	}
	n.cache = &drawList{
		rec:    rec,
		faces:  faces,
		bytes:  bytes,
		gen:    fc.PurgeGeneration(),
		ledger: &fc.ledger,
	}
	n.dirty = false
	return n.cache
}

// drawContainerContent draws the container's frame and children onto c.
// Recorded through a recordCanvas this produces the node's compiled draw
// list; the frame (offset, clip) is part of the recording, so replaying it
// needs only the parent's coordinate space to be current.
func drawContainerContent(fc *FrameContext, c Canvas, n *SceneNode) {
	c.Save()
	if n.Kind == KindLayoutGroup {
		c.Translate(n.LayoutRect.X, n.LayoutRect.Y)
		if layoutClips(n) {
			c.ClipRect(0, 0, n.LayoutRect.Width, n.LayoutRect.Height)
		}
		c.Translate(n.Offset.X, n.Offset.Y)
		drawLayoutChildren(fc, c, n)
	} else {
		c.Translate(n.Offset.X, n.Offset.Y)
		if n.Clip != nil {
			c.ClipRect(n.Clip.X, n.Clip.Y, n.Clip.Width, n.Clip.Height)
		}
		for _, ch := range n.Children {
			drawNode(fc, c, ch)
		}
	}
	c.Restore()
}

// drawLayoutChildren computes the embedded layout for the node's viewport
// and draws each tagged cell's scene child inside its rectangle. The tag is
// the child index; untagged cells are pure structure.
func drawLayoutChildren(fc *FrameContext, c Canvas, n *SceneNode) {
	t := n.Layout
	if t == nil || t.Root() == NoHandle {
		return
	}
	root := t.Root()
	t.Compute(root, n.LayoutRect.Width, n.LayoutRect.Height)
	t.Walk(root, func(h Handle, r Rect, tag int) {
		if tag < 0 || tag >= len(n.Children) {
			return
		}
		c.Save()
		if t.Style(h).Overflow == OverflowHidden {
			c.ClipRect(r.X, r.Y, r.Width, r.Height)
		}
		c.Translate(r.X, r.Y)
		drawNode(fc, c, n.Children[tag])
		c.Restore()
	})
	n.layoutGen = t.Generation()
}

func layoutClips(n *SceneNode) bool {
	t := n.Layout
	if t == nil || t.Root() == NoHandle {
		return false
	}
	return t.Style(t.Root()).Overflow == OverflowHidden
}

// replayList plays a compiled draw list into the current target. On the
// live surface that is a backend playback through the context; inside a
// re-recording the list splices into the destination recorder instead.
func replayList(fc *FrameContext, c Canvas, dl *drawList) {
	switch t := c.(type) {
	case *directCanvas:
		t.ctx.Push()
		t.keep(fc.replay.play(dl.rec, dl.faces))
		t.ctx.Pop()
		// Push/Pop covers transform, clip and mask; dash and fill rule
		// are plain paint state and must be reset by hand.
		t.ctx.ClearDash()
		t.ctx.SetFillRule(gg.FillRuleNonZero)
	case *recordCanvas:
		t.rec.Save()
		spliceRecording(t, dl)
		t.rec.Restore()
	}
}

// --- Callback nodes ---

func drawCallback(c Canvas, n *SceneNode) {
	if n.DrawFunc == nil {
		return
	}
	c.Save()
	if n.Clip != nil {
		c.ClipRect(n.Clip.X, n.Clip.Y, n.Clip.Width, n.Clip.Height)
	}
	n.DrawFunc(c, n.LayoutRect)
	c.Restore()
	c.ClearDash()
	c.ClearPath()
}

// --- Leaves ---

func drawLeaf(c Canvas, n *SceneNode) {
	switch n.Kind {
	case KindRect:
		if n.Radius > 0 {
			c.DrawRoundedRectangle(n.Pos.X, n.Pos.Y, n.Size.X, n.Size.Y, n.Radius)
		} else {
			c.DrawRectangle(n.Pos.X, n.Pos.Y, n.Size.X, n.Size.Y)
		}
		paintShape(c, n.Fill, n.Stroke, n.StrokeWidth)

	case KindText:
		c.SetFont(n.Face)
		c.SetColor(n.Fill)
		c.DrawString(n.Text, n.Pos.X, n.Pos.Y)

	case KindNumber:
		var buf [24]byte
		s := strconv.AppendFloat(buf[:0], n.Value, 'f', n.Decimals, 64)
		c.SetFont(n.Face)
		c.SetColor(n.Fill)
		c.DrawString(string(s), n.Pos.X, n.Pos.Y)

	case KindLine:
		c.DrawLine(n.Pos.X, n.Pos.Y, n.End.X, n.End.Y)
		c.SetColor(n.Stroke)
		c.SetLineWidth(n.StrokeWidth)
		c.Stroke()

	case KindImage:
		if n.Image == nil {
			return
		}
		if n.Size.X > 0 && n.Size.Y > 0 {
			c.DrawImageScaled(n.Image, n.Pos.X, n.Pos.Y, n.Size.X, n.Size.Y)
		} else {
			c.DrawImage(n.Image, n.Pos.X, n.Pos.Y)
		}

	case KindPoints:
		if len(n.Points) < 2 {
			return
		}
		c.MoveTo(n.Points[0].X, n.Points[0].Y)
		for _, p := range n.Points[1:] {
			c.LineTo(p.X, p.Y)
		}
		c.SetColor(n.Stroke)
		c.SetLineWidth(n.StrokeWidth)
		c.Stroke()

	case KindPath:
		for _, s := range n.Segs {
			switch s.Op {
			case PathMoveTo:
				c.MoveTo(s.X1, s.Y1)
			case PathLineTo:
				c.LineTo(s.X1, s.Y1)
			case PathQuadTo:
				c.QuadraticTo(s.X1, s.Y1, s.X2, s.Y2)
			case PathCubicTo:
				c.CubicTo(s.X1, s.Y1, s.X2, s.Y2, s.X3, s.Y3)
			case PathClose:
				c.ClosePath()
			}
		}
		paintShape(c, n.Fill, n.Stroke, n.StrokeWidth)
	}
}

// paintShape fills and strokes the current path per the node's paint
// fields. A zero-alpha fill skips the fill pass; a stroke needs both a
// visible color and a positive width. With neither, the path is discarded.
func paintShape(c Canvas, fill, stroke Color, width float64) {
	hasFill := fill.A > 0
	hasStroke := stroke.A > 0 && width > 0
	switch {
	case hasFill && hasStroke:
		c.SetColor(fill)
		c.FillPreserve()
		c.SetColor(stroke)
		c.SetLineWidth(width)
		c.Stroke()
	case hasFill:
		c.SetColor(fill)
		c.Fill()
	case hasStroke:
		c.SetColor(stroke)
		c.SetLineWidth(width)
		c.Stroke()
	default:
		c.ClearPath()
	}
}

// --- Hit regions ---

// HitRegion is one interactive region registered during a frame, in window
// coordinates. Regions accumulate in draw order, so the last region
// containing a point is the topmost and wins hit tests.
type HitRegion struct {
	NodeID uint64
	Action string
	Cursor Cursor
	Bounds Rect
}

// collectHits appends the subtree's hit regions to dst, offset by the
// accumulated container translation (dx, dy). It walks the full tree every
// frame: cached containers contribute regions at their current offsets even
// while their pixels replay from a compiled list, which is why hit metadata
// is not part of the change detection.
func collectHits(n *SceneNode, dx, dy float64, dst []HitRegion) []HitRegion {
	if n == nil {
		return dst
	}
	if n.Action != "" {
		if b, ok := n.bounds(); ok {
			ox, oy := dx, dy
			if n.Kind == KindGroup && n.HitRect.Empty() {
				// Clip-derived bounds live inside the group's own frame.
				ox += n.Offset.X
				oy += n.Offset.Y
			}
			dst = append(dst, HitRegion{
				NodeID: n.ID,
				Action: n.Action,
				Cursor: n.Cursor,
				Bounds: Rect{b.X + ox, b.Y + oy, b.Width, b.Height},
			})
		}
	}
	switch n.Kind {
	case KindGroup:
		for _, ch := range n.Children {
			dst = collectHits(ch, dx+n.Offset.X, dy+n.Offset.Y, dst)
		}
	case KindLayoutGroup:
		t := n.Layout
		if t == nil || t.Root() == NoHandle {
			break
		}
		root := t.Root()
		t.Compute(root, n.LayoutRect.Width, n.LayoutRect.Height)
		bx := dx + n.LayoutRect.X + n.Offset.X
		by := dy + n.LayoutRect.Y + n.Offset.Y
		t.Walk(root, func(h Handle, r Rect, tag int) {
			if tag < 0 || tag >= len(n.Children) {
				return
			}
			dst = collectHits(n.Children[tag], bx+r.X, by+r.Y, dst)
		})
	}
	return dst
}

// hitTest returns the topmost region containing (x, y), or nil.
func hitTest(regions []HitRegion, x, y float64) *HitRegion {
	for i := len(regions) - 1; i >= 0; i-- {
		if regions[i].Bounds.Contains(x, y) {
			return &regions[i]
		}
	}
	return nil
}
