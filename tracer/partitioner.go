package tracer

import (
	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/types"
)

// The Partitioner walks the scene raster in row-major order and emits tiles
// of primary rays. Tiles are generated lazily on each call to Next. The
// partitioner is single-use and must not be shared between goroutines.
type Partitioner struct {
	eye    types.Vec3
	basis  scene.Basis
	frameW uint32

	capacity    int
	nextPixel   int
	totalPixels int
	nextTile    int

	pool *RayPool
}

// Create a partitioner for the given scene. The tile capacity must be a
// positive perfect square so that full tiles map to a square dispatch grid.
func NewPartitioner(sc *scene.Scene, capacity int) (*Partitioner, error) {
	if err := ValidateTileCapacity(capacity); err != nil {
		return nil, err
	}

	// A capacity larger than the raster degenerates to a single tile
	bufSize := capacity
	if total := sc.PixelCount(); total < bufSize {
		bufSize = total
	}

	return &Partitioner{
		eye:         sc.Eye,
		basis:       sc.Basis(),
		frameW:      sc.FrameW,
		capacity:    capacity,
		totalPixels: sc.PixelCount(),
		pool:        NewRayPool(bufSize),
	}, nil
}

// Get the next tile. The second return value is false once the raster has
// been exhausted.
func (p *Partitioner) Next() (*Tile, bool) {
	if p.nextPixel >= p.totalPixels {
		return nil, false
	}

	end := p.nextPixel + p.capacity
	if end > p.totalPixels {
		end = p.totalPixels
	}

	rays := p.pool.Get()
	for pixelId := p.nextPixel; pixelId < end; pixelId++ {
		y := uint32(pixelId / int(p.frameW))
		x := uint32(pixelId % int(p.frameW))
		dir := p.basis.PixelPoint(x, y).Sub(p.eye)
		rays = append(rays, NewRay(p.eye, dir, x, y))
	}
	p.nextPixel = end

	tile := &Tile{
		Index:    p.nextTile,
		Rays:     rays,
		Capacity: p.capacity,
	}
	p.nextTile++
	return tile, true
}

// Hand a consumed ray buffer back so it can be reused by a following tile.
// Unlike Next, Recycle may be called from any goroutine.
func (p *Partitioner) Recycle(rays []Ray) {
	p.pool.Put(rays)
}

// Get the total number of tiles the raster is split into.
func (p *Partitioner) TileCount() int {
	return (p.totalPixels + p.capacity - 1) / p.capacity
}

// Get the number of pixels that have not been assigned to a tile yet.
func (p *Partitioner) Remaining() int {
	return p.totalPixels - p.nextPixel
}

// Get the configured tile capacity.
func (p *Partitioner) Capacity() int {
	return p.capacity
}
