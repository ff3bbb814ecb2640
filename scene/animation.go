package scene

import (
	"fmt"

	"github.com/achilleasa/raystream/types"
)

// An animation moves the camera eye along a straight line. Frame 0 is
// placed at From and frame N at To.
type Animation struct {
	From types.Vec3
	To   types.Vec3

	frames uint32
}

// Create a new animation spanning the given number of frames.
func NewAnimation(from, to types.Vec3, frames uint32) (*Animation, error) {
	if frames == 0 {
		return nil, fmt.Errorf("%w: animation frame count must be positive", ErrInvalidConfig)
	}

	return &Animation{
		From:   from,
		To:     to,
		frames: frames,
	}, nil
}

// Get the animation frame count N. Valid frame indices are [0, N].
func (a *Animation) Frames() uint32 {
	return a.frames
}

// Get the eye position for a frame.
func (a *Animation) EyeAt(frame uint32) (types.Vec3, error) {
	switch {
	case frame > a.frames:
		return types.Vec3{}, fmt.Errorf("%w: frame %d not in [0, %d]", ErrFrameOutOfRange, frame, a.frames)
	case frame == a.frames:
		return a.To, nil
	}

	return a.From.Lerp(a.To, float32(frame)/float32(a.frames)), nil
}

// Create the scene for a frame.
func (a *Animation) SceneAt(frame, frameW, frameH uint32, cam Camera) (*Scene, error) {
	eye, err := a.EyeAt(frame)
	if err != nil {
		return nil, err
	}

	return NewScene(eye, frameW, frameH, cam)
}
