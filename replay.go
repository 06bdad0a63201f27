package mullion

import (
	"image"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/recording"
	"github.com/gogpu/gg/text"
)

// replayBackend plays a compiled draw list into a live frame surface.
//
// Recorded commands carry coordinates already flattened into the recording's
// local space, so the renderer positions a replay by installing a plain
// translation matrix on the context before playback and the backend routes
// every coordinate through that matrix. Transform commands from the stream
// are ignored: honoring them would apply the record-time transform twice.
type replayBackend struct {
	ctx *gg.Context
	dc  *directCanvas // shares the image conversion cache with direct drawing
	def text.Face

	faces []text.Face // face per DrawText, in command order
	next  int
}

var _ recording.Backend = (*replayBackend)(nil)

func newReplayBackend(dc *directCanvas, def text.Face) *replayBackend {
	return &replayBackend{ctx: dc.ctx, dc: dc, def: def}
}

// play replays rec with its text faces. The caller has already pushed state
// and installed the offset transform; play leaves balancing to the caller's
// Pop so a panicking command cannot strand the context mid-state.
func (b *replayBackend) play(rec *recording.Recording, faces []text.Face) error {
	b.faces = faces
	b.next = 0
	err := rec.Playback(b)
	b.faces = nil
	return err
}

func (b *replayBackend) Begin(width, height int) error { return nil }
func (b *replayBackend) End() error                    { return nil }

func (b *replayBackend) Save()    { b.ctx.Push() }
func (b *replayBackend) Restore() { b.ctx.Pop() }

// SetTransform is intentionally a no-op; see the type comment.
func (b *replayBackend) SetTransform(m recording.Matrix) {}

func (b *replayBackend) SetClip(path *gg.Path, rule recording.FillRule) {
	if path == nil {
		return
	}
	b.ctx.ClearPath()
	b.setPath(path)
	b.ctx.SetFillRule(replayFillRule(rule))
	b.ctx.Clip()
}

// ClearClip is a no-op: resetting the clip stack would also drop the
// window-level clip installed around the replay, and recordings produced by
// the runtime never emit it.
func (b *replayBackend) ClearClip() {}

func (b *replayBackend) FillPath(path *gg.Path, brush recording.Brush, rule recording.FillRule) {
	if path == nil {
		return
	}
	b.applyBrush(brush)
	b.ctx.SetFillRule(replayFillRule(rule))
	b.setPath(path)
	b.dc.keep(b.ctx.Fill())
}

func (b *replayBackend) StrokePath(path *gg.Path, brush recording.Brush, stroke recording.Stroke) {
	if path == nil {
		return
	}
	b.applyBrush(brush)
	b.applyStroke(stroke)
	b.setPath(path)
	b.dc.keep(b.ctx.Stroke())
}

func (b *replayBackend) FillRect(rect recording.Rect, brush recording.Brush) {
	b.applyBrush(brush)
	b.ctx.DrawRectangle(rect.MinX, rect.MinY, rect.Width(), rect.Height())
	b.dc.keep(b.ctx.Fill())
}

func (b *replayBackend) DrawImage(img image.Image, src, dst recording.Rect, _ recording.ImageOptions) {
	if img == nil {
		return
	}
	opts := gg.DrawImageOptions{
		X: dst.MinX, Y: dst.MinY,
		DstWidth: dst.Width(), DstHeight: dst.Height(),
	}
	if src.Width() > 0 && src.Height() > 0 {
		r := image.Rect(int(src.MinX), int(src.MinY), int(src.MinX+src.Width()), int(src.MinY+src.Height()))
		if r != img.Bounds() {
			opts.SrcRect = &r
		}
	}
	b.ctx.DrawImageEx(b.dc.buf(img), opts)
}

func (b *replayBackend) DrawText(s string, x, y float64, face text.Face, brush recording.Brush) {
	// The command stream drops faces; consume the side list recorded
	// alongside the draw list, in the same order the strings were drawn.
	if face == nil {
		if b.next < len(b.faces) {
			face = b.faces[b.next]
		}
		if face == nil {
			face = b.def
		}
	}
	b.next++
	b.applyBrush(brush)
	b.ctx.SetFont(face)
	px, py := b.ctx.TransformPoint(x, y)
	b.ctx.DrawString(s, px, py)
}

// setPath rebuilds the recorded path on the context. Element coordinates
// pass through the context matrix, which holds the replay offset.
func (b *replayBackend) setPath(path *gg.Path) {
	b.ctx.ClearPath()
	for _, elem := range path.Elements() {
		switch e := elem.(type) {
		case gg.MoveTo:
			b.ctx.MoveTo(e.Point.X, e.Point.Y)
		case gg.LineTo:
			b.ctx.LineTo(e.Point.X, e.Point.Y)
		case gg.QuadTo:
			b.ctx.QuadraticTo(e.Control.X, e.Control.Y, e.Point.X, e.Point.Y)
		case gg.CubicTo:
			b.ctx.CubicTo(e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y)
		case gg.Close:
			b.ctx.ClosePath()
		}
	}
}

func (b *replayBackend) applyBrush(brush recording.Brush) {
	switch br := brush.(type) {
	case recording.SolidBrush:
		b.ctx.SetFillBrush(gg.Solid(br.Color))
	case *recording.LinearGradientBrush:
		grad := gg.NewLinearGradientBrush(br.Start.X, br.Start.Y, br.End.X, br.End.Y)
		for _, stop := range br.Stops {
			grad.AddColorStop(stop.Offset, stop.Color)
		}
		grad.SetExtend(gg.ExtendMode(br.Extend))
		b.ctx.SetFillBrush(grad)
	case *recording.RadialGradientBrush:
		grad := gg.NewRadialGradientBrush(br.Center.X, br.Center.Y, br.StartRadius, br.EndRadius)
		grad.SetFocus(br.Focus.X, br.Focus.Y)
		for _, stop := range br.Stops {
			grad.AddColorStop(stop.Offset, stop.Color)
		}
		grad.SetExtend(gg.ExtendMode(br.Extend))
		b.ctx.SetFillBrush(grad)
	case *recording.SweepGradientBrush:
		grad := gg.NewSweepGradientBrush(br.Center.X, br.Center.Y, br.StartAngle)
		grad.SetEndAngle(br.EndAngle)
		for _, stop := range br.Stops {
			grad.AddColorStop(stop.Offset, stop.Color)
		}
		grad.SetExtend(gg.ExtendMode(br.Extend))
		b.ctx.SetFillBrush(grad)
	default:
		b.ctx.SetFillBrush(gg.Solid(gg.Black))
	}
}

func (b *replayBackend) applyStroke(stroke recording.Stroke) {
	b.ctx.SetLineWidth(stroke.Width)
	b.ctx.SetLineCap(replayLineCap(stroke.Cap))
	b.ctx.SetLineJoin(replayLineJoin(stroke.Join))
	b.ctx.SetMiterLimit(stroke.MiterLimit)
	if len(stroke.DashPattern) > 0 {
		b.ctx.SetDash(stroke.DashPattern...)
		b.ctx.SetDashOffset(stroke.DashOffset)
	} else {
		b.ctx.ClearDash()
	}
}

func replayFillRule(rule recording.FillRule) gg.FillRule {
	if rule == recording.FillRuleEvenOdd {
		return gg.FillRuleEvenOdd
	}
	return gg.FillRuleNonZero
}

func replayLineCap(lc recording.LineCap) gg.LineCap {
	switch lc {
	case recording.LineCapRound:
		return gg.LineCapRound
	case recording.LineCapSquare:
		return gg.LineCapSquare
	default:
		return gg.LineCapButt
	}
}

func replayLineJoin(join recording.LineJoin) gg.LineJoin {
	switch join {
	case recording.LineJoinRound:
		return gg.LineJoinRound
	case recording.LineJoinBevel:
		return gg.LineJoinBevel
	default:
		return gg.LineJoinMiter
	}
}

// --- Splicing into a re-recording ---

// recorderBackend replays a compiled draw list into another recording, so
// a container that re-records can splice a clean descendant's list in
// without walking the descendant's subtree. Coordinates pass through the
// destination recorder's transform, which holds the descendant's parent
// space at splice time; transform commands are ignored for the same reason
// the live replay ignores them.
type recorderBackend struct {
	dst   *recordCanvas
	faces []text.Face
	next  int
}

var _ recording.Backend = (*recorderBackend)(nil)

// spliceRecording re-records dl into dst. The caller brackets the splice
// with Save/Restore; recorder state changes cannot leak.
func spliceRecording(dst *recordCanvas, dl *drawList) {
	b := recorderBackend{dst: dst, faces: dl.faces}
	// Playback into a recorder cannot fail; the error path belongs to
	// rasterizing backends.
	_ = dl.rec.Playback(&b)
}

func (b *recorderBackend) Begin(width, height int) error { return nil }
func (b *recorderBackend) End() error                    { return nil }

func (b *recorderBackend) Save()    { b.dst.rec.Save() }
func (b *recorderBackend) Restore() { b.dst.rec.Restore() }

func (b *recorderBackend) SetTransform(m recording.Matrix) {}

func (b *recorderBackend) SetClip(path *gg.Path, rule recording.FillRule) {
	if path == nil {
		return
	}
	b.setPath(path)
	b.dst.rec.SetFillRule(rule)
	b.dst.rec.Clip()
}

func (b *recorderBackend) ClearClip() {}

func (b *recorderBackend) FillPath(path *gg.Path, brush recording.Brush, rule recording.FillRule) {
	if path == nil {
		return
	}
	b.dst.rec.SetFillStyle(brush)
	b.dst.rec.SetFillRule(rule)
	b.setPath(path)
	b.dst.rec.Fill()
}

func (b *recorderBackend) StrokePath(path *gg.Path, brush recording.Brush, stroke recording.Stroke) {
	if path == nil {
		return
	}
	b.dst.rec.SetStrokeStyle(brush)
	b.dst.rec.SetLineWidth(stroke.Width)
	b.dst.rec.SetLineCap(stroke.Cap)
	b.dst.rec.SetLineJoin(stroke.Join)
	b.dst.rec.SetMiterLimit(stroke.MiterLimit)
	if len(stroke.DashPattern) > 0 {
		b.dst.rec.SetDash(stroke.DashPattern...)
		b.dst.rec.SetDashOffset(stroke.DashOffset)
	} else {
		b.dst.rec.ClearDash()
	}
	b.setPath(path)
	b.dst.rec.Stroke()
}

func (b *recorderBackend) FillRect(rect recording.Rect, brush recording.Brush) {
	b.dst.rec.SetFillStyle(brush)
	b.dst.rec.FillRectangle(rect.MinX, rect.MinY, rect.Width(), rect.Height())
}

func (b *recorderBackend) DrawImage(img image.Image, src, dst recording.Rect, _ recording.ImageOptions) {
	if img == nil {
		return
	}
	if src.Width() > 0 && src.Height() > 0 {
		r := image.Rect(int(src.MinX), int(src.MinY), int(src.MaxX), int(src.MaxY))
		if r != img.Bounds() {
			if sub, ok := img.(interface {
				SubImage(image.Rectangle) image.Image
			}); ok {
				img = sub.SubImage(r)
			}
		}
	}
	b.dst.rec.DrawImageScaled(img, dst.MinX, dst.MinY, dst.Width(), dst.Height())
}

func (b *recorderBackend) DrawText(s string, x, y float64, face text.Face, brush recording.Brush) {
	// Carry the face across: the destination's side list must stay in
	// command order, so append here rather than through the canvas.
	var f text.Face
	if b.next < len(b.faces) {
		f = b.faces[b.next]
	}
	b.next++
	b.dst.rec.SetFillStyle(brush)
	b.dst.faces = append(b.dst.faces, f)
	b.dst.rec.DrawString(s, x, y)
}

func (b *recorderBackend) setPath(path *gg.Path) {
	rec := b.dst.rec
	rec.ClearPath()
	for _, elem := range path.Elements() {
		switch e := elem.(type) {
		case gg.MoveTo:
			rec.MoveTo(e.Point.X, e.Point.Y)
		case gg.LineTo:
			rec.LineTo(e.Point.X, e.Point.Y)
		case gg.QuadTo:
			rec.QuadraticTo(e.Control.X, e.Control.Y, e.Point.X, e.Point.Y)
		case gg.CubicTo:
			rec.CubicTo(e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y)
		case gg.Close:
			rec.ClosePath()
		}
	}
}
