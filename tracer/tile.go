package tracer

import (
	"fmt"
	"math"
)

// The 2D work grid a backend uses for a single tile dispatch.
type DispatchShape struct {
	W uint32
	H uint32
}

// Get the number of work items in the grid.
func (s DispatchShape) Size() int {
	return int(s.W) * int(s.H)
}

func (s DispatchShape) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// A batch of rays that is dispatched to a compute backend in one go.
type Tile struct {
	// Sequence number of the tile within its frame.
	Index int

	Rays []Ray

	// The capacity requested when the raster was partitioned. All tiles
	// except possibly the last one contain exactly Capacity rays.
	Capacity int
}

// Returns true if the tile holds exactly Capacity rays.
func (t *Tile) IsFull() bool {
	return len(t.Rays) == t.Capacity
}

// Get the dispatch shape for this tile. Full tiles map to a square grid;
// remainder tiles map to a single row strip.
func (t *Tile) DispatchShape() DispatchShape {
	if t.IsFull() {
		side, _ := squareSide(t.Capacity)
		return DispatchShape{W: side, H: side}
	}
	return DispatchShape{W: uint32(len(t.Rays)), H: 1}
}

// Get the side of a square with the given area. The second return value is
// false if area is not a positive perfect square.
func squareSide(area int) (uint32, bool) {
	if area <= 0 {
		return 0, false
	}

	side := int(math.Sqrt(float64(area)))
	// Correct any rounding in the float sqrt
	for side*side > area {
		side--
	}
	for (side+1)*(side+1) <= area {
		side++
	}
	return uint32(side), side*side == area
}

// Check that a tile capacity can be mapped to a square dispatch grid.
func ValidateTileCapacity(capacity int) error {
	if _, ok := squareSide(capacity); !ok {
		return fmt.Errorf("%w: tile capacity %d is not a positive perfect square", ErrInvalidConfig, capacity)
	}
	return nil
}
