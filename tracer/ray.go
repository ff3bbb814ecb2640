package tracer

import (
	"unsafe"

	"github.com/achilleasa/raystream/types"
)

// A primary ray together with the pixel it contributes to. The padding
// fields give the struct the same 64 byte layout as the ray struct used by
// the device kernels so ray slices can be copied to device memory as-is.
type Ray struct {
	Origin    types.Vec3
	_         uint32
	Direction types.Vec3
	_         uint32

	// The accumulated color; filled in by the compute backend.
	Color types.Vec3

	PixelX uint32
	PixelY uint32
	_      [3]uint32
}

// The size of a Ray in bytes.
const RaySize = int(unsafe.Sizeof(Ray{}))

// Create a ray with a zero color.
func NewRay(origin, dir types.Vec3, pixelX, pixelY uint32) Ray {
	return Ray{
		Origin:    origin,
		Direction: dir,
		PixelX:    pixelX,
		PixelY:    pixelY,
	}
}
