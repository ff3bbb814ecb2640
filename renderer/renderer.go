package renderer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/achilleasa/raystream/log"
	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/tracer"
	"golang.org/x/sync/errgroup"
)

// A request to render a single frame.
type FrameRequest struct {
	// Frame index; used for logging and error reporting.
	Index uint32

	Scene    *scene.Scene
	Geometry *scene.Geometry

	// Output identifier handed to the sink.
	Target string
}

// The Renderer streams the tiles of each frame through a three stage
// pipeline: a producer that partitions the raster into tiles, a compute
// stage that dispatches tiles to the backend and a collector that assembles
// the traced pixels into a canvas. Stages are connected by bounded queues so
// a slow backend stalls the producer instead of buffering tiles.
type Renderer struct {
	logger log.Logger

	backend tracer.Backend
	noise   tracer.NoiseSource
	options Options
}

// Create a new renderer.
func New(backend tracer.Backend, noise tracer.NoiseSource, opts Options) (*Renderer, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if noise == nil {
		noise = tracer.NewRandomNoise(time.Now().UnixNano())
	}

	return &Renderer{
		logger:  log.New("renderer"),
		backend: backend,
		noise:   noise,
		options: opts,
	}, nil
}

// Shutdown renderer and the attached backend.
func (r *Renderer) Close() {
	if r.backend != nil {
		r.backend.Close()
		r.backend = nil
	}
}

// Get renderer options.
func (r *Renderer) Options() Options {
	return r.options
}

// A batch of traced rays travelling from the compute stage to the collector.
type result struct {
	tile int
	rays []tracer.Ray
}

// Render a frame and hand it to the sink. The call returns once the frame
// has been fully collected and persisted. If any stage fails, nothing is
// persisted and the error is returned.
func (r *Renderer) RenderFrame(ctx context.Context, req FrameRequest, sink Sink) (FrameStats, error) {
	stats := FrameStats{
		Frame:  req.Index,
		Target: req.Target,
	}

	if req.Scene == nil {
		return stats, ErrSceneNotDefined
	}
	if req.Geometry == nil {
		return stats, ErrGeometryNotDefined
	}
	if err := req.Geometry.Validate(); err != nil {
		return stats, err
	}
	if req.Scene.FrameW != r.options.FrameW || req.Scene.FrameH != r.options.FrameH {
		return stats, fmt.Errorf(
			"%w: scene raster %dx%d does not match renderer frame dims %dx%d",
			scene.ErrInvalidConfig, req.Scene.FrameW, req.Scene.FrameH, r.options.FrameW, r.options.FrameH,
		)
	}

	partitioner, err := tracer.NewPartitioner(req.Scene, r.options.TileCapacity)
	if err != nil {
		return stats, err
	}

	r.logger.Infof(
		"frame %d: rendering %dx%d (%d tiles of up to %d rays) on %s",
		req.Index, req.Scene.FrameW, req.Scene.FrameH, partitioner.TileCount(), partitioner.Capacity(), r.backend.Id(),
	)

	start := time.Now()
	producer := newStage(ProducerStage, req.Index, r.logger)
	compute := newStage(ComputeStage, req.Index, r.logger)
	collector := newStage(CollectorStage, req.Index, r.logger)

	tileQueue := make(chan *tracer.Tile, r.options.QueueCapacity)
	resultQueue := make(chan result, r.options.QueueCapacity)
	canvas := NewCanvas(req.Scene.FrameW, req.Scene.FrameH)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.produce(gctx, producer, partitioner, tileQueue, &stats)
	})
	g.Go(func() error {
		return r.dispatch(gctx, compute, req, tileQueue, resultQueue, &stats)
	})
	g.Go(func() error {
		return r.collect(gctx, collector, partitioner, resultQueue, canvas, &stats)
	})
	err = g.Wait()

	stats.Stages = map[string]StageState{
		ProducerStage:  producer.State(),
		ComputeStage:   compute.State(),
		CollectorStage: collector.State(),
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		r.logger.Errorf("frame %d: aborted; discarding partial frame: %v", req.Index, err)
		stats.RenderTime = time.Since(start)
		return stats, err
	}

	if err = sink.Persist(canvas.Image(), req.Target); err != nil {
		stats.RenderTime = time.Since(start)
		return stats, fmt.Errorf("renderer: could not persist frame %d to %q: %w", req.Index, req.Target, err)
	}

	stats.RenderTime = time.Since(start)
	r.logger.Noticef("frame %d: wrote %q in %d ms", req.Index, req.Target, stats.RenderTime.Nanoseconds()/1e6)
	return stats, nil
}

// Pull tiles from the partitioner and push them to the tile queue. The
// queue is only closed once the partitioner is exhausted; on error the
// downstream stages observe the cancelled context instead.
func (r *Renderer) produce(ctx context.Context, st *stage, partitioner *tracer.Partitioner, out chan<- *tracer.Tile, stats *FrameStats) error {
	defer st.advance(Closed)

	for {
		tile, ok := partitioner.Next()
		if !ok {
			break
		}

		select {
		case out <- tile:
		case <-ctx.Done():
			return ctx.Err()
		}

		stats.Tiles++
		if depth := len(out); depth > stats.MaxTileQueueDepth {
			stats.MaxTileQueueDepth = depth
		}
	}

	st.advance(Draining)
	close(out)
	return nil
}

// Forward tiles to the compute backend and push the traced rays to the
// result queue.
func (r *Renderer) dispatch(ctx context.Context, st *stage, req FrameRequest, in <-chan *tracer.Tile, out chan<- result, stats *FrameStats) error {
	defer st.advance(Closed)

	for {
		var tile *tracer.Tile
		var ok bool
		select {
		case tile, ok = <-in:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			st.advance(Draining)
			close(out)
			return nil
		}

		shape := tile.DispatchShape()
		dispatchReq := &tracer.DispatchRequest{
			Rays:     tile.Rays,
			Shape:    shape,
			Geometry: req.Geometry,
			Noise:    r.noise.Texture(shape),
		}

		tick := time.Now()
		rays, err := r.backend.Dispatch(ctx, dispatchReq)
		elapsed := time.Since(tick)
		stats.BackendTime += elapsed
		if err == nil && len(rays) != len(tile.Rays) {
			err = fmt.Errorf("%w: expected %d; got %d", tracer.ErrResultSizeMismatch, len(tile.Rays), len(rays))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &BackendError{
				Frame:   req.Index,
				Tile:    tile.Index,
				Backend: r.backend.Id(),
				Err:     err,
			}
		}
		r.logger.Debugf("frame %d: tile %d (%s) traced in %s", req.Index, tile.Index, shape, elapsed)

		select {
		case out <- result{tile: tile.Index, rays: rays}:
		case <-ctx.Done():
			return ctx.Err()
		}

		if depth := len(out); depth > stats.MaxResultQueueDepth {
			stats.MaxResultQueueDepth = depth
		}
	}
}

// Copy traced colors into the canvas until the result queue is closed.
func (r *Renderer) collect(ctx context.Context, st *stage, partitioner *tracer.Partitioner, in <-chan result, canvas *Canvas, stats *FrameStats) error {
	defer st.advance(Closed)

	for {
		var res result
		var ok bool
		select {
		case res, ok = <-in:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			break
		}

		for _, ray := range res.rays {
			if err := canvas.Set(ray.PixelX, ray.PixelY, ray.Color); err != nil {
				return fmt.Errorf("%w (tile %d)", err, res.tile)
			}
		}
		stats.Rays += len(res.rays)
		partitioner.Recycle(res.rays)
	}

	st.advance(Draining)
	if !canvas.Complete() {
		return fmt.Errorf("%w: %d pixels missing", ErrIncompleteFrame, canvas.Missing())
	}
	return nil
}
