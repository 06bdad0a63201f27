package mullion

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultScreenshotDir is where SaveScreenshot writes when no directory
// is given.
const DefaultScreenshotDir = "screenshots"

// SaveScreenshot writes the window's last presented frame to a PNG under
// dir and returns the written path. The filename carries a timestamp, the
// sanitized label and the window id. Fails when the window has not
// presented yet.
func (c *Compositor) SaveScreenshot(windowID uint64, dir, label string) (string, error) {
	w, err := c.Window(windowID)
	if err != nil {
		return "", err
	}
	img := w.Capture()
	if img == nil || img.Bounds().Empty() {
		return "", fmt.Errorf("screenshot: window %d has no presented frame", windowID)
	}
	if dir == "" {
		dir = DefaultScreenshotDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("%s_%s_w%d.png", stamp, sanitizeLabel(label), windowID)
	path := filepath.Join(dir, name)
	if err := writePNG(path, img); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	return path, nil
}

// writePNG encodes an image to a PNG file at the given path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
