package mullion

// Workspace capture turns the live arrangement into plain record values a
// host can hold onto or serialize however it likes; restore rebuilds the
// arrangement from them. Only windows created through the factory registry
// carry a type and so survive the round trip.

import (
	"errors"
	"fmt"
	"sort"
)

// WindowRecord captures one standalone window.
type WindowRecord struct {
	Type   string
	Title  string
	Frame  Rect
	Config []byte
}

// MemberRecord captures one arrangement member; its frame is derived from
// the arrangement on restore.
type MemberRecord struct {
	Type   string
	Title  string
	Config []byte
}

// TabGroupRecord captures a tab group: members in tab order and which of
// them was active.
type TabGroupRecord struct {
	Frame   Rect
	Members []MemberRecord
	Active  int
}

// ContainerRecord captures a bind container: slot order, ratios and the
// surface rect.
type ContainerRecord struct {
	Orientation Orientation
	Frame       Rect
	Ratios      []float64
	Members     []MemberRecord
}

// Workspace is a full arrangement snapshot.
type Workspace struct {
	Standalone []WindowRecord
	TabGroups  []TabGroupRecord
	Containers []ContainerRecord
}

// CaptureWorkspace snapshots the current arrangement. Iteration is sorted
// by id so repeated captures of an unchanged desktop are identical.
func (c *Compositor) CaptureWorkspace() Workspace {
	c.mu.Lock()
	windows := make(map[uint64]*ManagedWindow, len(c.windows))
	for id, w := range c.windows {
		windows[id] = w
	}
	groups := make([]*TabGroup, 0, len(c.groups))
	for _, g := range c.groups {
		groups = append(groups, g)
	}
	containers := make([]*BindContainer, 0, len(c.containers))
	for _, ct := range c.containers {
		containers = append(containers, ct)
	}
	c.mu.Unlock()
	sort.Slice(groups, func(i, j int) bool { return groups[i].id < groups[j].id })
	sort.Slice(containers, func(i, j int) bool { return containers[i].id < containers[j].id })

	var ws Workspace
	arranged := make(map[uint64]bool)

	for _, g := range groups {
		members := g.Members()
		active := g.Active()
		rec := TabGroupRecord{Members: make([]MemberRecord, 0, len(members))}
		for _, id := range members {
			arranged[id] = true
			w, ok := windows[id]
			if !ok {
				continue
			}
			provType, frame, blob := w.record()
			if provType == "" {
				continue
			}
			if id == active {
				rec.Active = len(rec.Members)
				rec.Frame = frame
			}
			rec.Members = append(rec.Members, MemberRecord{Type: provType, Title: w.Title(), Config: blob})
		}
		ws.TabGroups = append(ws.TabGroups, rec)
	}

	for _, ct := range containers {
		rec := ContainerRecord{
			Orientation: ct.Orientation(),
			Frame:       ct.Frame(),
			Ratios:      ct.Ratios(),
		}
		for _, id := range ct.Members() {
			arranged[id] = true
			w, ok := windows[id]
			if !ok {
				continue
			}
			provType, _, blob := w.record()
			if provType == "" {
				continue
			}
			rec.Members = append(rec.Members, MemberRecord{Type: provType, Title: w.Title(), Config: blob})
		}
		ws.Containers = append(ws.Containers, rec)
	}

	ids := make([]uint64, 0, len(windows))
	for id := range windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		w := windows[id]
		if arranged[id] || w.Mode() != ModeStandalone {
			continue
		}
		provType, frame, blob := w.record()
		if provType == "" {
			continue
		}
		ws.Standalone = append(ws.Standalone, WindowRecord{
			Type:   provType,
			Title:  w.Title(),
			Frame:  frame,
			Config: blob,
		})
	}
	return ws
}

// windowPool hands out restored windows by provider type, first available
// in creation order, so two records of the same type consume two distinct
// windows.
type windowPool map[string][]uint64

func (p windowPool) take(typ string) (uint64, bool) {
	ids := p[typ]
	if len(ids) == 0 {
		return 0, false
	}
	p[typ] = ids[1:]
	return ids[0], true
}

// RestoreWorkspace rebuilds a captured arrangement. Pass one creates every
// recorded window through the factory registry and re-applies its config
// blob; pass two rebuilds groups and containers, matching created windows
// to arrangement slots by type. Records whose type is no longer registered
// are skipped and reported; arrangements short of two resolvable members
// leave their survivors standalone.
func (c *Compositor) RestoreWorkspace(ws Workspace, newPresenter func() Presenter) error {
	if newPresenter == nil {
		return errors.New("mullion: RestoreWorkspace requires a presenter factory")
	}

	pool := make(windowPool)
	var errs []error
	create := func(typ, title string, blob []byte) {
		w, err := c.CreateWindowFrom(typ, title, newPresenter())
		if err != nil {
			c.log.Warn().Err(err).Str("type", typ).Msg("workspace restore: window skipped")
			errs = append(errs, fmt.Errorf("restore %q: %w", typ, err))
			return
		}
		w.applyConfig(blob)
		pool[typ] = append(pool[typ], w.ID())
	}

	for _, rec := range ws.Standalone {
		create(rec.Type, rec.Title, rec.Config)
	}
	for _, rec := range ws.TabGroups {
		for _, m := range rec.Members {
			create(m.Type, m.Title, m.Config)
		}
	}
	for _, rec := range ws.Containers {
		for _, m := range rec.Members {
			create(m.Type, m.Title, m.Config)
		}
	}

	for _, rec := range ws.Standalone {
		id, ok := pool.take(rec.Type)
		if !ok {
			continue
		}
		if w, err := c.Window(id); err == nil {
			w.SetFrame(rec.Frame)
			w.SetSize(int(rec.Frame.Width), int(rec.Frame.Height))
		}
	}

	for _, rec := range ws.TabGroups {
		ids := make([]uint64, 0, len(rec.Members))
		activeID := uint64(0)
		for i, m := range rec.Members {
			id, ok := pool.take(m.Type)
			if !ok {
				continue
			}
			ids = append(ids, id)
			if i == rec.Active {
				activeID = id
			}
		}
		if len(ids) < 2 {
			c.log.Warn().Int("members", len(ids)).Msg("workspace restore: tab group skipped")
			continue
		}
		if w, err := c.Window(ids[0]); err == nil {
			w.SetFrame(rec.Frame)
			w.SetSize(int(rec.Frame.Width), int(rec.Frame.Height))
		}
		g, err := c.CreateTabGroup(ids...)
		if err != nil {
			errs = append(errs, fmt.Errorf("restore tab group: %w", err))
			continue
		}
		if activeID != 0 {
			if err := c.ActivateTab(g.ID(), activeID); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, rec := range ws.Containers {
		ids := make([]uint64, 0, len(rec.Members))
		for _, m := range rec.Members {
			id, ok := pool.take(m.Type)
			if !ok {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) < 2 {
			c.log.Warn().Int("members", len(ids)).Msg("workspace restore: container skipped")
			continue
		}
		ct, err := c.CreateContainer(rec.Orientation, rec.Frame, ids...)
		if err != nil {
			errs = append(errs, fmt.Errorf("restore container: %w", err))
			continue
		}
		if len(rec.Ratios) == len(ids) {
			if err := c.SetContainerRatios(ct.ID(), rec.Ratios); err != nil {
				c.log.Debug().Err(err).Msg("workspace restore: ratios rejected, kept equal")
			}
		}
	}

	return errors.Join(errs...)
}
