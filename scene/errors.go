package scene

import "errors"

var (
	ErrInvalidConfig   = errors.New("scene: invalid configuration")
	ErrFrameOutOfRange = errors.New("scene: frame index out of range")
)
