package mullion

// Text measurement helpers for providers sizing scene nodes before they
// build them. Measurement runs through the face's shaped advances, the
// same path the renderer draws with, so measured and painted text agree.

import (
	"strings"

	"github.com/gogpu/gg/text"
)

// LineHeight returns the face's baseline-to-baseline distance, or 0 for a
// nil face.
func LineHeight(face text.Face) float64 {
	if face == nil {
		return 0
	}
	return face.Metrics().LineHeight()
}

// MeasureText returns the bounding size of multi-line text: the widest
// line's advance by line count times line height.
func MeasureText(face text.Face, s string) (w, h float64) {
	if face == nil || s == "" {
		return 0, 0
	}
	lh := face.Metrics().LineHeight()
	lines := 0
	for line := range strings.Lines(s) {
		lines++
		if adv := face.Advance(strings.TrimSuffix(line, "\n")); adv > w {
			w = adv
		}
	}
	if lines == 0 {
		lines = 1
	}
	return w, float64(lines) * lh
}

// WrapText greedily wraps words so each line's advance fits maxWidth.
// Words wider than maxWidth get a line of their own rather than being
// split mid-word. Explicit newlines are kept.
func WrapText(face text.Face, s string, maxWidth float64) []string {
	if s == "" {
		return nil
	}
	if face == nil || maxWidth <= 0 {
		return strings.Split(s, "\n")
	}
	var out []string
	for para := range strings.SplitSeq(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			joined := line + " " + word
			if face.Advance(joined) <= maxWidth {
				line = joined
				continue
			}
			out = append(out, line)
			line = word
		}
		out = append(out, line)
	}
	return out
}

// TruncateText shortens s with a trailing ellipsis until it fits
// maxWidth, the treatment tab titles get in narrow title bands. The
// ellipsis survives even when nothing else does.
func TruncateText(face text.Face, s string, maxWidth float64) string {
	if face == nil || maxWidth <= 0 || s == "" {
		return s
	}
	if face.Advance(s) <= maxWidth {
		return s
	}
	const ellipsis = "…"
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		cut := string(runes[:n]) + ellipsis
		if face.Advance(cut) <= maxWidth {
			return cut
		}
	}
	return ellipsis
}
