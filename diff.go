package mullion

// Diff reconciles the previous frame's tree with the freshly built one,
// deciding per node whether last frame's pixels can be reused.
//
// Rules, applied at each matched pair:
//
//   - Kind or child-count mismatch is structural: every cache under prev is
//     disposed, the whole cur subtree is marked dirty, and matching stops
//     there.
//   - Otherwise fields are compared: scalars by value, heavy payloads
//     (images, point and segment slices, layout roots) by reference —
//     swapping the pointer is the invalidation protocol.
//   - A clean node inherits prev's compiled draw list; prev's reference is
//     nulled on hand-off so exactly one owner ever disposes it.
//   - A dirty child makes its parent dirty. The flag climbs level by level
//     through the recursion but never descends: clean siblings keep their
//     caches and are replayed into the parent's re-recording.
//   - Canvas nodes are always dirty; their draw callbacks are opaque.
//
// Children with ID > 0 match the prev child carrying the same ID anywhere
// at that level; ID == 0 children match by index, and only against an
// ID == 0 slot. After Diff returns, prev holds no live caches: each one has
// either moved to cur or been disposed.
func Diff(prev, cur *SceneNode) {
	diffNode(prev, cur)
}

// diffNode reports whether cur must be re-rendered.
func diffNode(prev, cur *SceneNode) bool {
	if cur == nil {
		prev.disposeCaches()
		return false
	}
	if prev == nil {
		cur.markSubtreeDirty()
		return true
	}
	if prev.Kind != cur.Kind || len(prev.Children) != len(cur.Children) {
		prev.disposeCaches()
		cur.markSubtreeDirty()
		return true
	}

	dirty := nodeChanged(prev, cur)

	// Match and diff children. The scan-based matching allocates nothing;
	// child lists in scene trees are short enough that the quadratic
	// fallback on reorder never shows up in profiles.
	for i, cc := range cur.Children {
		pc := matchChild(prev.Children, i, cc.ID)
		if diffNode(pc, cc) {
			dirty = true
		}
	}
	// Prev children no cur child claimed still hold caches to release.
	for j, pc := range prev.Children {
		if !claimed(cur.Children, j, pc.ID) {
			pc.disposeCaches()
		}
	}

	cur.dirty = dirty
	if dirty {
		if prev.cache != nil {
			prev.cache.dispose()
			prev.cache = nil
		}
		return true
	}

	// Clean: take over the compiled draw list and the layout stamp.
	if prev.cache != nil {
		cur.cache = prev.cache
		prev.cache = nil
	}
	cur.layoutGen = prev.layoutGen
	return false
}

// matchChild finds the prev child that cur child i (with the given ID)
// continues. Same-index is the fast path; reordered identities fall back to
// a scan.
func matchChild(prev []*SceneNode, i int, id uint64) *SceneNode {
	if id == 0 {
		if prev[i].ID == 0 {
			return prev[i]
		}
		return nil
	}
	if prev[i].ID == id {
		return prev[i]
	}
	for _, pc := range prev {
		if pc.ID == id {
			return pc
		}
	}
	return nil
}

// claimed reports whether prev child j was matched by some cur child.
func claimed(cur []*SceneNode, j int, id uint64) bool {
	if id == 0 {
		return cur[j].ID == 0
	}
	for _, cc := range cur {
		if cc.ID == id {
			return true
		}
	}
	return false
}

// nodeChanged compares the fields that affect this node's own pixels.
// Hit metadata is deliberately excluded: regions are re-registered from the
// current tree every frame, so Action and Cursor edits never force a paint.
func nodeChanged(prev, cur *SceneNode) bool {
	switch cur.Kind {
	case KindGroup:
		return prev.Offset != cur.Offset || !clipEqual(prev.Clip, cur.Clip)
	case KindRect:
		return prev.Pos != cur.Pos || prev.Size != cur.Size ||
			prev.Fill != cur.Fill || prev.Stroke != cur.Stroke ||
			prev.StrokeWidth != cur.StrokeWidth || prev.Radius != cur.Radius
	case KindText:
		return prev.Text != cur.Text || prev.Pos != cur.Pos ||
			prev.Fill != cur.Fill || prev.Face != cur.Face
	case KindNumber:
		return prev.Value != cur.Value || prev.Decimals != cur.Decimals ||
			prev.Pos != cur.Pos || prev.Fill != cur.Fill || prev.Face != cur.Face
	case KindLine:
		return prev.Pos != cur.Pos || prev.End != cur.End ||
			prev.Stroke != cur.Stroke || prev.StrokeWidth != cur.StrokeWidth
	case KindImage:
		return prev.Image != cur.Image || prev.Pos != cur.Pos || prev.Size != cur.Size
	case KindPoints:
		return !sameSlice(prev.Points, cur.Points) ||
			prev.Stroke != cur.Stroke || prev.StrokeWidth != cur.StrokeWidth
	case KindPath:
		return !sameSlice(prev.Segs, cur.Segs) ||
			prev.Fill != cur.Fill || prev.Stroke != cur.Stroke ||
			prev.StrokeWidth != cur.StrokeWidth
	case KindLayoutGroup:
		if prev.Layout != cur.Layout || prev.LayoutRect != cur.LayoutRect ||
			prev.Offset != cur.Offset {
			return true
		}
		// Same tree by reference: stale if mutated since last render.
		return cur.Layout != nil && cur.Layout.Generation() != prev.layoutGen
	case KindCanvas:
		return true
	}
	return true
}

func clipEqual(a, b *Rect) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// sameSlice reports slice identity: same backing array and length.
func sameSlice[E any](a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
