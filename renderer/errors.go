package renderer

import (
	"errors"
	"fmt"
)

var (
	ErrSceneNotDefined    = errors.New("renderer: no scene defined")
	ErrGeometryNotDefined = errors.New("renderer: no geometry defined")
	ErrNoBackend          = errors.New("renderer: no compute backend attached")
	ErrInterrupted        = errors.New("renderer: interrupted while rendering")
	ErrBackend            = errors.New("renderer: compute backend failure")
	ErrDuplicatePixel     = errors.New("renderer: pixel written more than once")
	ErrPixelOutOfBounds   = errors.New("renderer: pixel outside of frame")
	ErrIncompleteFrame    = errors.New("renderer: frame has unwritten pixels")
	ErrFramesFailed       = errors.New("renderer: one or more animation frames failed")
)

// A BackendError is returned when the compute backend fails to process a
// tile. It matches ErrBackend and unwraps to the backend error.
type BackendError struct {
	Frame   uint32
	Tile    int
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("renderer: backend %q failed on frame %d tile %d: %v", e.Backend, e.Frame, e.Tile, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}
