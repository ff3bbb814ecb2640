package scene

import (
	"fmt"

	"github.com/achilleasa/raystream/types"
)

// A Scene captures everything needed to generate the primary rays for a
// single frame. Scenes are immutable once created.
type Scene struct {
	Eye    types.Vec3
	Camera Camera

	FrameW uint32
	FrameH uint32
}

// Create a new scene and validate its camera setup.
func NewScene(eye types.Vec3, frameW, frameH uint32, cam Camera) (*Scene, error) {
	if frameW == 0 || frameH == 0 {
		return nil, fmt.Errorf("%w: frame dimensions must be positive; got %dx%d", ErrInvalidConfig, frameW, frameH)
	}

	viewDir := cam.LookAt.Sub(eye)
	if viewDir.Len() < 1e-6 {
		return nil, fmt.Errorf("%w: camera eye %v coincides with look-at point", ErrInvalidConfig, eye)
	}

	if cam.Up.Cross(viewDir.Normalize()).Len() < 1e-6 {
		return nil, fmt.Errorf("%w: camera up vector %v is parallel to the view direction", ErrInvalidConfig, cam.Up)
	}

	if cam.FOV <= 0 || cam.FOV >= 180 {
		return nil, fmt.Errorf("%w: camera FOV must be in (0, 180) degrees; got %f", ErrInvalidConfig, cam.FOV)
	}

	return &Scene{
		Eye:    eye,
		Camera: cam,
		FrameW: frameW,
		FrameH: frameH,
	}, nil
}

// Derive the camera basis for this scene.
func (s *Scene) Basis() Basis {
	return NewBasis(s.Eye, s.Camera, s.FrameW, s.FrameH)
}

// Get the number of pixels in the scene raster.
func (s *Scene) PixelCount() int {
	return int(s.FrameW) * int(s.FrameH)
}
