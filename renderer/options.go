package renderer

import (
	"fmt"

	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/tracer"
)

const (
	DefaultTileCapacity  = 250000
	DefaultQueueCapacity = 20
)

type Options struct {
	// Frame dims. Scenes passed to RenderFrame must have the same raster
	// size; RenderAnimation builds its scenes with these dims.
	FrameW uint32
	FrameH uint32

	// Number of rays per tile; must be a perfect square.
	TileCapacity int

	// Number of tiles that may be buffered between two pipeline stages.
	QueueCapacity int

	// Keep rendering the remaining animation frames when a frame fails.
	ContinueOnError bool
}

// Get the default renderer options for the given frame dims.
func DefaultOptions(frameW, frameH uint32) Options {
	return Options{
		FrameW:        frameW,
		FrameH:        frameH,
		TileCapacity:  DefaultTileCapacity,
		QueueCapacity: DefaultQueueCapacity,
	}
}

// Validate options.
func (o Options) Validate() error {
	if o.FrameW == 0 || o.FrameH == 0 {
		return fmt.Errorf("%w: frame dimensions must be positive; got %dx%d", scene.ErrInvalidConfig, o.FrameW, o.FrameH)
	}
	if err := tracer.ValidateTileCapacity(o.TileCapacity); err != nil {
		return err
	}
	if o.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue capacity must be positive; got %d", tracer.ErrInvalidConfig, o.QueueCapacity)
	}
	return nil
}
