package mullion

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// scriptStep is one action in an automation script.
type scriptStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	Window uint64  `json:"window,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	FromX  float64 `json:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

// scriptFile is the top-level JSON structure.
type scriptFile struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner sequences injected desktop input and screenshots across
// scheduling ticks, for scripted interaction runs. Attach with
// SetScriptRunner before Run.
//
// Actions: "click" (x, y), "drag" (fromX, fromY, toX, toY, frames),
// "wait" (frames), "screenshot" (label, window; window 0 captures every
// visible window).
type ScriptRunner struct {
	Dir string // screenshot directory, DefaultScreenshotDir when empty

	steps     []scriptStep
	cursor    int
	waitCount int
	done      atomic.Bool
}

// LoadScript parses a JSON automation script.
func LoadScript(data []byte) (*ScriptRunner, error) {
	var sf scriptFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(sf.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	return &ScriptRunner{steps: sf.Steps}, nil
}

// SetScriptRunner attaches a runner to the compositor's scheduling loop.
// Call before Run; the loop advances the runner once per tick.
func (c *Compositor) SetScriptRunner(r *ScriptRunner) {
	c.script = r
}

// Done reports whether every step has executed and its input has drained.
// Safe from any goroutine; hosts poll it to decide when to stop.
func (r *ScriptRunner) Done() bool { return r.done.Load() }

// step advances by at most one action per scheduling tick. Pending
// injected input drains before the next action fires, so a queued drag
// completes before a screenshot observes its result.
func (r *ScriptRunner) step(c *Compositor) {
	if r.done.Load() {
		return
	}
	if c.injectPending() {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done.Store(true)
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		c.InjectClick(st.X, st.Y)
	case "drag":
		frames := st.Frames
		if frames < 2 {
			frames = 2
		}
		c.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, frames)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this tick counts as one
		}
	case "screenshot":
		r.screenshot(c, st)
	default:
		c.log.Warn().Str("action", st.Action).Msg("unknown script action skipped")
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && !c.injectPending() {
		r.done.Store(true)
	}
}

func (r *ScriptRunner) screenshot(c *Compositor, st scriptStep) {
	ids := []uint64{st.Window}
	if st.Window == 0 {
		ids = ids[:0]
		for _, w := range c.Windows() {
			if w.Visible() {
				ids = append(ids, w.ID())
			}
		}
	}
	for _, id := range ids {
		path, err := c.SaveScreenshot(id, r.Dir, st.Label)
		if err != nil {
			c.log.Warn().Err(err).Uint64("window", id).Msg("screenshot failed")
			continue
		}
		c.log.Info().Str("path", path).Msg("screenshot written")
	}
}
