package tracer

import "sync"

// A RayPool recycles ray buffers of a fixed capacity so that partitioning a
// raster does not allocate a fresh buffer for every tile. Buffers flow from
// the partitioner through the backend to the collector which hands them back
// once their colors have been copied to the canvas.
type RayPool struct {
	capacity int
	pool     sync.Pool
}

// Create a pool of ray buffers with the given capacity.
func NewRayPool(capacity int) *RayPool {
	p := &RayPool{capacity: capacity}
	p.pool.New = func() interface{} {
		buf := make([]Ray, 0, capacity)
		return &buf
	}
	return p
}

// Get an empty buffer with room for capacity rays.
func (p *RayPool) Get() []Ray {
	return (*p.pool.Get().(*[]Ray))[:0]
}

// Return a buffer to the pool. Buffers with a different capacity (e.g.
// allocated by a backend) are dropped.
func (p *RayPool) Put(buf []Ray) {
	if cap(buf) != p.capacity {
		return
	}
	buf = buf[:0]
	p.pool.Put(&buf)
}
