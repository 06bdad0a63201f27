package mullion

import (
	"fmt"
	"sort"
)

// HUD palette.
var (
	hudBackground = Color{0.08, 0.09, 0.11, 0.94}
	hudHeading    = Color{0.95, 0.96, 0.98, 1}
	hudRow        = Color{0.72, 0.76, 0.82, 1}
	hudAccent     = Color{0.38, 0.78, 0.49, 1}
	hudRule       = Color{1, 1, 1, 0.14}
)

// Stable node ids for the HUD tree. Per-window rows derive theirs from the
// window id so rows keep their caches as windows come and go.
const (
	hudBackgroundID uint64 = 1
	hudHeaderID     uint64 = 2
	hudRuleID       uint64 = 3
	hudRowBase      uint64 = 1 << 32
)

// DebugHUDProvider renders live compositor statistics: one row per managed
// window with its presented frame rate and cache counters, plus totals and
// the watchdog's purge count. Give it a window of its own:
//
//	c.CreateWindow("stats", mullion.NewDebugHUD(c), pres)
//
// It reports Animating so the numbers stay current without any caller
// having to request redraws.
type DebugHUDProvider struct {
	comp *Compositor
}

// NewDebugHUD returns a provider showing live statistics for c.
func NewDebugHUD(c *Compositor) *DebugHUDProvider {
	if c == nil {
		panic("mullion: NewDebugHUD requires a compositor")
	}
	return &DebugHUDProvider{comp: c}
}

// Animating keeps the HUD redrawing every frame.
func (p *DebugHUDProvider) Animating() bool { return true }

// HitTest reports no interactive regions; the HUD is read-only.
func (p *DebugHUDProvider) HitTest(x, y, w, h float64) (string, Cursor) {
	return "", CursorDefault
}

// Dispose releases nothing; the HUD holds no caches of its own.
func (p *DebugHUDProvider) Dispose() {}

// BuildScene assembles the statistics tree. Everything it reads — window
// snapshot, cache counters, frame rates, purge count — is safe from this
// window's render thread.
func (p *DebugHUDProvider) BuildScene(st *FrameState) *SceneNode {
	windows := p.comp.Windows()
	sort.Slice(windows, func(i, j int) bool { return windows[i].ID() < windows[j].ID() })

	face := p.comp.face
	lh := LineHeight(face)
	pad := lh * 0.75

	var totalBytes int64
	for _, w := range windows {
		totalBytes += w.CacheStats().Bytes
	}

	root := NewGroup(0,
		NewRect(hudBackgroundID, 0, 0, float64(st.Width), float64(st.Height), hudBackground),
	)

	y := pad + lh
	header := fmt.Sprintf("%d windows   cache %d KB   purges %d",
		len(windows), totalBytes>>10, p.comp.wd.Purges())
	root.Add(NewText(hudHeaderID, header, pad, y, hudHeading))
	y += lh * 0.5
	root.Add(NewLine(hudRuleID, pad, y, float64(st.Width)-pad, y, hudRule, 1))
	y += lh

	// Columns: title, frame rate, cache. The title column takes what the
	// fixed columns leave over.
	fpsCol := float64(st.Width) - pad - 220
	cacheCol := fpsCol + 90
	titleW := fpsCol - pad - 2*lh

	for _, w := range windows {
		cs := w.CacheStats()
		base := hudRowBase + w.ID()*4
		label := fmt.Sprintf("#%d %s", w.ID(), w.Title())
		label = TruncateText(face, label, titleW)
		root.Add(
			NewText(base, label, pad, y, hudRow),
			NewNumber(base+1, w.FPS(), 1, fpsCol, y, hudAccent),
			NewText(base+2,
				fmt.Sprintf("%d / %d KB", cs.Count, cs.Bytes>>10), cacheCol, y, hudRow),
		)
		y += lh
	}
	return root
}
