package mullion

import (
	"image"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/recording"
	"github.com/gogpu/gg/text"
)

// Canvas is the drawing surface handed to renderers, Canvas-node callbacks
// and immediate-draw providers. Method names and semantics follow gg: shape
// helpers append to the current path, Fill and Stroke consume it.
//
// Two implementations exist. The direct canvas paints straight into a
// window's frame surface; the recording canvas captures the same calls into
// a compiled draw list that later frames replay without re-executing any
// provider code. Code drawing through Canvas cannot tell which one it got.
type Canvas interface {
	// State. Save/Restore nest; ClipRect intersects with the current clip
	// and is undone by Restore.
	Save()
	Restore()
	Translate(x, y float64)
	Scale(sx, sy float64)
	Rotate(angle float64)
	ClipRect(x, y, w, h float64)

	// Style.
	SetColor(c Color)
	SetLineWidth(w float64)
	SetDash(lengths ...float64)
	ClearDash()

	// Path building.
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadraticTo(cx, cy, x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	ClosePath()
	ClearPath()
	Fill()
	Stroke()
	FillPreserve()
	StrokePreserve()

	// Shape helpers. These append to the path; call Fill or Stroke after.
	DrawRectangle(x, y, w, h float64)
	DrawRoundedRectangle(x, y, w, h, r float64)
	DrawCircle(x, y, r float64)
	DrawLine(x1, y1, x2, y2 float64)

	// Images.
	DrawImage(img image.Image, x, y float64)
	DrawImageScaled(img image.Image, x, y, w, h float64)

	// Text. A nil face selects the runtime default.
	SetFont(face text.Face)
	DrawString(s string, x, y float64)
	MeasureString(s string) (w, h float64)
}

var (
	_ Canvas = (*directCanvas)(nil)
	_ Canvas = (*recordCanvas)(nil)
)

// --- Direct canvas ---

// directCanvas draws immediately into a live gg context. It keeps the first
// draw error of the frame; the render loop reads and clears it after each
// frame rather than threading error returns through every draw call.
type directCanvas struct {
	ctx  *gg.Context
	def  text.Face
	imgs map[image.Image]*gg.ImageBuf
	err  error
}

func newDirectCanvas(ctx *gg.Context, def text.Face) *directCanvas {
	return &directCanvas{ctx: ctx, def: def, imgs: make(map[image.Image]*gg.ImageBuf)}
}

// takeErr returns and clears the first draw error seen since the last call.
func (d *directCanvas) takeErr() error {
	err := d.err
	d.err = nil
	return err
}

func (d *directCanvas) keep(err error) {
	if err != nil && d.err == nil {
		d.err = err
	}
}

func (d *directCanvas) Save()                  { d.ctx.Push() }
func (d *directCanvas) Restore()               { d.ctx.Pop() }
func (d *directCanvas) Translate(x, y float64) { d.ctx.Translate(x, y) }
func (d *directCanvas) Scale(sx, sy float64)   { d.ctx.Scale(sx, sy) }
func (d *directCanvas) Rotate(angle float64)   { d.ctx.Rotate(angle) }

func (d *directCanvas) ClipRect(x, y, w, h float64) { d.ctx.ClipRect(x, y, w, h) }

func (d *directCanvas) SetColor(c Color)             { d.ctx.SetRGBA(c.R, c.G, c.B, c.A) }
func (d *directCanvas) SetLineWidth(w float64)       { d.ctx.SetLineWidth(w) }
func (d *directCanvas) SetDash(lengths ...float64)   { d.ctx.SetDash(lengths...) }
func (d *directCanvas) ClearDash()                   { d.ctx.ClearDash() }

func (d *directCanvas) MoveTo(x, y float64)          { d.ctx.MoveTo(x, y) }
func (d *directCanvas) LineTo(x, y float64)          { d.ctx.LineTo(x, y) }
func (d *directCanvas) QuadraticTo(cx, cy, x, y float64) {
	d.ctx.QuadraticTo(cx, cy, x, y)
}
func (d *directCanvas) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	d.ctx.CubicTo(c1x, c1y, c2x, c2y, x, y)
}
func (d *directCanvas) ClosePath() { d.ctx.ClosePath() }
func (d *directCanvas) ClearPath() { d.ctx.ClearPath() }

func (d *directCanvas) Fill()           { d.keep(d.ctx.Fill()) }
func (d *directCanvas) Stroke()         { d.keep(d.ctx.Stroke()) }
func (d *directCanvas) FillPreserve()   { d.keep(d.ctx.FillPreserve()) }
func (d *directCanvas) StrokePreserve() { d.keep(d.ctx.StrokePreserve()) }

func (d *directCanvas) DrawRectangle(x, y, w, h float64) { d.ctx.DrawRectangle(x, y, w, h) }
func (d *directCanvas) DrawRoundedRectangle(x, y, w, h, r float64) {
	d.ctx.DrawRoundedRectangle(x, y, w, h, r)
}
func (d *directCanvas) DrawCircle(x, y, r float64)        { d.ctx.DrawCircle(x, y, r) }
func (d *directCanvas) DrawLine(x1, y1, x2, y2 float64)   { d.ctx.DrawLine(x1, y1, x2, y2) }

func (d *directCanvas) DrawImage(img image.Image, x, y float64) {
	if img == nil {
		return
	}
	d.ctx.DrawImage(d.buf(img), x, y)
}

func (d *directCanvas) DrawImageScaled(img image.Image, x, y, w, h float64) {
	if img == nil {
		return
	}
	d.ctx.DrawImageEx(d.buf(img), gg.DrawImageOptions{
		X: x, Y: y, DstWidth: w, DstHeight: h,
	})
}

// buf converts through a small identity-keyed cache. Node images are
// compared by reference between frames, so the same image.Image repeats
// across many frames and re-converting it every draw would dominate.
func (d *directCanvas) buf(img image.Image) *gg.ImageBuf {
	if b, ok := d.imgs[img]; ok {
		return b
	}
	if len(d.imgs) >= 64 {
		clear(d.imgs)
	}
	b := gg.ImageBufFromImage(img)
	d.imgs[img] = b
	return b
}

func (d *directCanvas) SetFont(face text.Face) {
	if face == nil {
		face = d.def
	}
	d.ctx.SetFont(face)
}

func (d *directCanvas) DrawString(s string, x, y float64) {
	// Text rasterizes at device coordinates, bypassing the context matrix;
	// route the anchor through it so strings land with the node's geometry.
	px, py := d.ctx.TransformPoint(x, y)
	d.ctx.DrawString(s, px, py)
}

func (d *directCanvas) MeasureString(s string) (w, h float64) {
	return d.ctx.MeasureString(s)
}

// --- Recording canvas ---

// recordCanvas captures draw calls into a recording for later replay.
// Recorded commands bake the active transform into their coordinates, so a
// replayed list only needs a translation to land at the node's new position.
//
// The recording command stream does not carry font faces, so the canvas
// keeps a parallel list with one entry per DrawString in call order; replay
// consumes it the same way.
type recordCanvas struct {
	rec   *recording.Recorder
	def   text.Face
	face  text.Face
	faces []text.Face
}

func newRecordCanvas(w, h int, def text.Face) *recordCanvas {
	rc := &recordCanvas{rec: recording.NewRecorder(w, h), def: def, face: def}
	rc.rec.SetFont(def)
	return rc
}

// finish seals the recording and returns it with the face list.
func (r *recordCanvas) finish() (*recording.Recording, []text.Face) {
	return r.rec.FinishRecording(), r.faces
}

func (r *recordCanvas) Save()                  { r.rec.Save() }
func (r *recordCanvas) Restore()               { r.rec.Restore() }
func (r *recordCanvas) Translate(x, y float64) { r.rec.Translate(x, y) }
func (r *recordCanvas) Scale(sx, sy float64)   { r.rec.Scale(sx, sy) }
func (r *recordCanvas) Rotate(angle float64)   { r.rec.Rotate(angle) }

func (r *recordCanvas) ClipRect(x, y, w, h float64) {
	r.rec.DrawRectangle(x, y, w, h)
	r.rec.Clip()
}

func (r *recordCanvas) SetColor(c Color) { r.rec.SetColor(c.gg()) }

func (r *recordCanvas) SetLineWidth(w float64)     { r.rec.SetLineWidth(w) }
func (r *recordCanvas) SetDash(lengths ...float64) { r.rec.SetDash(lengths...) }
func (r *recordCanvas) ClearDash()                 { r.rec.ClearDash() }

func (r *recordCanvas) MoveTo(x, y float64) { r.rec.MoveTo(x, y) }
func (r *recordCanvas) LineTo(x, y float64) { r.rec.LineTo(x, y) }
func (r *recordCanvas) QuadraticTo(cx, cy, x, y float64) {
	r.rec.QuadraticTo(cx, cy, x, y)
}
func (r *recordCanvas) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	r.rec.CubicTo(c1x, c1y, c2x, c2y, x, y)
}
func (r *recordCanvas) ClosePath() { r.rec.ClosePath() }
func (r *recordCanvas) ClearPath() { r.rec.ClearPath() }

func (r *recordCanvas) Fill()           { r.rec.Fill() }
func (r *recordCanvas) Stroke()         { r.rec.Stroke() }
func (r *recordCanvas) FillPreserve()   { r.rec.FillPreserve() }
func (r *recordCanvas) StrokePreserve() { r.rec.StrokePreserve() }

func (r *recordCanvas) DrawRectangle(x, y, w, h float64) { r.rec.DrawRectangle(x, y, w, h) }
func (r *recordCanvas) DrawRoundedRectangle(x, y, w, h, rad float64) {
	r.rec.DrawRoundedRectangle(x, y, w, h, rad)
}
func (r *recordCanvas) DrawCircle(x, y, rad float64)      { r.rec.DrawCircle(x, y, rad) }
func (r *recordCanvas) DrawLine(x1, y1, x2, y2 float64)   { r.rec.DrawLine(x1, y1, x2, y2) }

func (r *recordCanvas) DrawImage(img image.Image, x, y float64) {
	if img == nil {
		return
	}
	// DrawImageScaled keeps fractional positions; the plain recorder call
	// truncates to ints.
	b := img.Bounds()
	r.rec.DrawImageScaled(img, x, y, float64(b.Dx()), float64(b.Dy()))
}

func (r *recordCanvas) DrawImageScaled(img image.Image, x, y, w, h float64) {
	if img == nil {
		return
	}
	r.rec.DrawImageScaled(img, x, y, w, h)
}

func (r *recordCanvas) SetFont(face text.Face) {
	if face == nil {
		face = r.def
	}
	r.face = face
	r.rec.SetFont(face)
}

func (r *recordCanvas) DrawString(s string, x, y float64) {
	r.faces = append(r.faces, r.face)
	r.rec.DrawString(s, x, y)
}

func (r *recordCanvas) MeasureString(s string) (w, h float64) {
	return r.rec.MeasureString(s)
}
