package mullion

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewDebugHUDRequiresCompositor(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewDebugHUD with a nil compositor should panic")
		}
	}()
	NewDebugHUD(nil) // should panic
}

func TestDebugHUDAnimates(t *testing.T) {
	c := newTestCompositor(t)
	if !NewDebugHUD(c).Animating() {
		t.Error("HUD must report Animating so its numbers stay current")
	}
}

func TestDebugHUDSceneListsWindows(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "alpha", 300, 200)
	w2, _ := addWindow(t, c, "beta", 300, 200)

	hud := NewDebugHUD(c)
	root := hud.BuildScene(&FrameState{Width: 800, Height: 600})

	// Background, header, rule, then three nodes per window.
	if got, want := len(root.Children), 3+3*2; got != want {
		t.Fatalf("scene has %d nodes, want %d", got, want)
	}

	bg := root.Children[0]
	if bg.Kind != KindRect || bg.ID != hudBackgroundID {
		t.Errorf("first node = kind %v id %d, want background rect", bg.Kind, bg.ID)
	}
	if bg.Size != (Vec2{800, 600}) {
		t.Errorf("background size = %v, want full frame", bg.Size)
	}

	header := root.Children[1]
	if header.Kind != KindText || header.ID != hudHeaderID {
		t.Fatalf("second node = kind %v id %d, want header text", header.Kind, header.ID)
	}
	if !strings.Contains(header.Text, "2 windows") || !strings.Contains(header.Text, "purges 0") {
		t.Errorf("header = %q, want window count and purge count", header.Text)
	}
	if root.Children[2].Kind != KindLine {
		t.Errorf("third node kind = %v, want rule line", root.Children[2].Kind)
	}

	// Rows come out in window-id order with derived, per-window node ids.
	for i, w := range []*ManagedWindow{w1, w2} {
		title := root.Children[3+3*i]
		fps := root.Children[4+3*i]
		cache := root.Children[5+3*i]
		base := hudRowBase + w.ID()*4
		if title.ID != base || fps.ID != base+1 || cache.ID != base+2 {
			t.Errorf("window %d row ids = %d/%d/%d, want %d..%d",
				w.ID(), title.ID, fps.ID, cache.ID, base, base+2)
		}
		if want := fmt.Sprintf("#%d %s", w.ID(), w.Title()); title.Text != want {
			t.Errorf("row title = %q, want %q", title.Text, want)
		}
		if fps.Kind != KindNumber {
			t.Errorf("fps node kind = %v, want KindNumber", fps.Kind)
		}
		if !strings.Contains(cache.Text, "KB") {
			t.Errorf("cache cell = %q, want a KB figure", cache.Text)
		}
	}
}

func TestDebugHUDRowIDsSurviveWindowChurn(t *testing.T) {
	c := newTestCompositor(t)
	w1, _ := addWindow(t, c, "keep", 300, 200)
	w2, _ := addWindow(t, c, "drop", 300, 200)

	hud := NewDebugHUD(c)
	st := &FrameState{Width: 640, Height: 480}
	first := hud.BuildScene(st)
	if got, want := len(first.Children), 3+3*2; got != want {
		t.Fatalf("scene has %d nodes, want %d", got, want)
	}

	if err := c.CloseWindow(w2.ID()); err != nil {
		t.Fatalf("CloseWindow: %v", err)
	}
	second := hud.BuildScene(st)

	if got, want := len(second.Children), 3+3*1; got != want {
		t.Fatalf("scene after close has %d nodes, want %d", got, want)
	}
	// The surviving row keeps its node id, so its text caches carry over.
	if got, want := second.Children[3].ID, hudRowBase+w1.ID()*4; got != want {
		t.Errorf("surviving row id = %d, want %d", got, want)
	}
	if !strings.Contains(second.Children[1].Text, "1 windows") {
		t.Errorf("header = %q, want updated window count", second.Children[1].Text)
	}
}
