package mullion

import (
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// defaultFontSize is the point size of the runtime fallback face.
const defaultFontSize = 14

var (
	fontOnce   sync.Once
	fontSource *text.FontSource
)

// DefaultFace returns a face for the bundled fallback font at the given
// size. Text nodes and providers that set no face render with it. Returns
// nil only if the embedded font fails to parse, in which case affected text
// draws nothing rather than failing the frame.
func DefaultFace(size float64) text.Face {
	fontOnce.Do(func() {
		src, err := text.NewFontSource(goregular.TTF)
		if err == nil {
			fontSource = src
		}
	})
	if fontSource == nil {
		return nil
	}
	return fontSource.Face(size)
}
