// Package mullion is a multi-window rendering and composition runtime
// built on the [gg] vector drawing library.
//
// Mullion manages a set of windows, each with its own render thread and
// retained scene tree, and composes them on a virtual desktop: windows
// bind into split-pane containers with draggable dividers, stack into tab
// groups with drag-to-detach and drag-to-merge, and capture into
// workspace snapshots that restore a whole arrangement later. Rendering
// is demand-driven: a window with an unchanged tree replays compiled
// draw lists instead of re-rendering, and goes fully idle when nothing
// changes.
//
// # Quick start
//
// Create a compositor, give each window a content provider and a
// presenter, and run the scheduling loop:
//
//	c, err := mullion.NewCompositor(mullion.DefaultConfig(), log)
//	if err != nil {
//		// ...
//	}
//	w := c.CreateWindow("clock", clockProvider, presenter)
//	w.SetFrame(mullion.Rect{X: 40, Y: 40, Width: 480, Height: 320})
//	err = c.Run(ctx)
//
// The provider rebuilds its scene every frame; the differ decides what
// actually re-renders:
//
//	func (p *clock) BuildScene(st *mullion.FrameState) *mullion.SceneNode {
//		return mullion.NewGroup(0,
//			mullion.NewRect(1, 0, 0, float64(st.Width), float64(st.Height), bg),
//			mullion.NewText(2, time.Now().Format("15:04:05"), 20, 40, fg),
//		)
//	}
//
// # Scene trees
//
// Every visual element is a [SceneNode] built with typed constructors:
// [NewGroup], [NewRect], [NewText], [NewNumber], [NewLine], [NewImage],
// [NewPoints], [NewPath], [NewLayoutGroup], [NewCanvas]. Node identity is
// the id: give a node the same id across frames and its compiled
// draw list carries over whenever its fields are unchanged. Heavy
// payloads (images, point slices) compare by reference, so swapping the
// pointer is how a provider invalidates them.
//
// # Window composition
//
// [Compositor.CreateContainer] splits a frame into ratio-weighted slots
// with draggable dividers; [Compositor.CreateTabGroup] stacks windows
// with exactly one visible member. Pointer input enters through the
// desktop dispatch entry points ([Compositor.DesktopPointerDown] and
// friends), which route to dividers, title bands or window content.
// [CaptureWorkspace] and [RestoreWorkspace] snapshot and rebuild whole
// arrangements.
//
// # Key features
//
// Per-window render threads with vsync broadcast pacing, diff-driven
// draw-list caching with byte-budget eviction, tween animation (via
// [gween]), a resident-memory watchdog, synthetic input injection and
// JSON-scripted interaction runs, and TOML configuration.
//
// [gg]: https://github.com/gogpu/gg
// [gween]: https://github.com/tanema/gween
package mullion
