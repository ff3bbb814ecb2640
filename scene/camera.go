package scene

import (
	"fmt"
	"math"

	"github.com/achilleasa/raystream/types"
)

// The camera type holds the static part of a pinhole camera. The eye
// position lives in the Scene as it changes from frame to frame.
type Camera struct {
	LookAt types.Vec3
	Up     types.Vec3

	// Vertical field of view in degrees.
	FOV float32
}

// Create a camera looking down the negative Z axis with Y pointing up.
func DefaultCamera() Camera {
	return Camera{
		LookAt: types.Vec3{0, 0, -1},
		Up:     types.Vec3{0, 1, 0},
		FOV:    90,
	}
}

// The camera basis maps raster coordinates to points on the viewport plane.
// PixelOrigin is the upper-left corner of the viewport, which is where pixel
// (0, 0) is sampled; stepping by PixelDeltaU moves one pixel right and
// stepping by PixelDeltaV moves one pixel down.
type Basis struct {
	PixelOrigin types.Vec3
	PixelDeltaU types.Vec3
	PixelDeltaV types.Vec3
}

func (b Basis) String() string {
	return fmt.Sprintf(
		"Camera basis:\norigin  : (%3.3f, %3.3f, %3.3f)\ndelta u : (%3.6f, %3.6f, %3.6f)\ndelta v : (%3.6f, %3.6f, %3.6f)",
		b.PixelOrigin[0], b.PixelOrigin[1], b.PixelOrigin[2],
		b.PixelDeltaU[0], b.PixelDeltaU[1], b.PixelDeltaU[2],
		b.PixelDeltaV[0], b.PixelDeltaV[1], b.PixelDeltaV[2],
	)
}

// Derive the camera basis for the given eye position and raster dims. Inputs
// are expected to have been validated by NewScene; the function performs no
// checks of its own.
func NewBasis(eye types.Vec3, cam Camera, frameW, frameH uint32) Basis {
	// The camera looks towards -forward.
	forward := eye.Sub(cam.LookAt).Normalize()
	right := cam.Up.Cross(forward).Normalize()
	trueUp := forward.Cross(right)

	focalLength := eye.Distance(cam.LookAt)
	halfHeight := float32(math.Tan(float64(cam.FOV) * math.Pi / 360.0))
	viewportH := 2 * halfHeight * focalLength
	viewportW := viewportH * float32(frameW) / float32(frameH)

	viewportU := right.Mul(viewportW)
	viewportV := trueUp.Mul(-viewportH)

	deltaU := viewportU.Div(float32(frameW))
	deltaV := viewportV.Div(float32(frameH))

	upperLeft := eye.
		Sub(forward.Mul(focalLength)).
		Sub(viewportU.Mul(0.5)).
		Sub(viewportV.Mul(0.5))

	return Basis{
		PixelOrigin: upperLeft,
		PixelDeltaU: deltaU,
		PixelDeltaV: deltaV,
	}
}

// Get the viewport point sampled for pixel (x, y).
func (b Basis) PixelPoint(x, y uint32) types.Vec3 {
	return b.PixelOrigin.
		Add(b.PixelDeltaU.Mul(float32(x))).
		Add(b.PixelDeltaV.Mul(float32(y)))
}
