package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/achilleasa/raystream/types"
)

// The canvas collects traced pixel colors for a single frame. Every pixel
// must be written exactly once.
type Canvas struct {
	img     *image.RGBA
	written []bool
	count   int
}

// Create a canvas with the given dims.
func NewCanvas(frameW, frameH uint32) *Canvas {
	return &Canvas{
		img:     image.NewRGBA(image.Rect(0, 0, int(frameW), int(frameH))),
		written: make([]bool, int(frameW)*int(frameH)),
	}
}

// Set the color of pixel (x, y). Color components are clamped to [0, 1].
func (c *Canvas) Set(x, y uint32, col types.Vec3) error {
	bounds := c.img.Bounds()
	if int(x) >= bounds.Dx() || int(y) >= bounds.Dy() {
		return fmt.Errorf("%w: (%d, %d) not in %dx%d", ErrPixelOutOfBounds, x, y, bounds.Dx(), bounds.Dy())
	}

	offset := int(y)*bounds.Dx() + int(x)
	if c.written[offset] {
		return fmt.Errorf("%w: (%d, %d)", ErrDuplicatePixel, x, y)
	}
	c.written[offset] = true
	c.count++

	c.img.SetRGBA(int(x), int(y), toRGBA(col))
	return nil
}

// Returns true if all pixels have been written.
func (c *Canvas) Complete() bool {
	return c.count == len(c.written)
}

// Get the number of unwritten pixels.
func (c *Canvas) Missing() int {
	return len(c.written) - c.count
}

// Get the canvas image.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func toRGBA(col types.Vec3) color.RGBA {
	col = col.Clamp(0, 1)
	return color.RGBA{
		R: uint8(col[0]*255 + 0.5),
		G: uint8(col[1]*255 + 0.5),
		B: uint8(col[2]*255 + 0.5),
		A: 255,
	}
}
