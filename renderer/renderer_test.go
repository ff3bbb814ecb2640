package renderer

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/tracer"
	"github.com/achilleasa/raystream/tracer/cpu"
	"github.com/achilleasa/raystream/types"
)

// Colors every ray white.
type whiteBackend struct {
	sync.Mutex
	calls  int
	shapes []tracer.DispatchShape
}

func (b *whiteBackend) Id() string { return "white" }
func (b *whiteBackend) Close()     {}

func (b *whiteBackend) Dispatch(_ context.Context, req *tracer.DispatchRequest) ([]tracer.Ray, error) {
	b.Lock()
	b.calls++
	b.shapes = append(b.shapes, req.Shape)
	b.Unlock()

	if req.Noise == nil || req.Noise.W != req.Shape.W || req.Noise.H != req.Shape.H {
		return nil, fmt.Errorf("noise texture does not match dispatch shape %s", req.Shape)
	}
	if req.Geometry == nil {
		return nil, errors.New("no geometry bound")
	}

	for i := range req.Rays {
		req.Rays[i].Color = types.Vec3{1, 1, 1}
	}
	return req.Rays, nil
}

// Fails on the failAt-th call (1-based) and colors rays white otherwise.
type failingBackend struct {
	whiteBackend
	failAt int32
	count  atomic.Int32
}

var errDeviceLost = errors.New("device lost")

func (b *failingBackend) Id() string { return "failing" }

func (b *failingBackend) Dispatch(ctx context.Context, req *tracer.DispatchRequest) ([]tracer.Ray, error) {
	if b.count.Add(1) == b.failAt {
		return nil, errDeviceLost
	}
	return b.whiteBackend.Dispatch(ctx, req)
}

// Applies a mutation to the returned rays.
type mutatingBackend struct {
	whiteBackend
	mutate func([]tracer.Ray) []tracer.Ray
}

func (b *mutatingBackend) Dispatch(ctx context.Context, req *tracer.DispatchRequest) ([]tracer.Ray, error) {
	rays, err := b.whiteBackend.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.mutate(rays), nil
}

// Blocks until the context is cancelled.
type blockingBackend struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingBackend) Id() string { return "blocking" }
func (b *blockingBackend) Close()     {}

func (b *blockingBackend) Dispatch(ctx context.Context, _ *tracer.DispatchRequest) ([]tracer.Ray, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestRenderer(t *testing.T, be tracer.Backend, frameW, frameH uint32, tileCapacity, queueCapacity int) *Renderer {
	opts := DefaultOptions(frameW, frameH)
	opts.TileCapacity = tileCapacity
	opts.QueueCapacity = queueCapacity

	r, err := New(be, tracer.NewRandomNoise(0), opts)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func testFrameRequest(t *testing.T, frameW, frameH uint32, target string) FrameRequest {
	sc, err := scene.NewScene(types.Vec3{}, frameW, frameH, scene.DefaultCamera())
	if err != nil {
		t.Fatal(err)
	}
	return FrameRequest{
		Scene:    sc,
		Geometry: scene.DefaultGeometry(),
		Target:   target,
	}
}

func TestNewRenderer(t *testing.T) {
	if _, err := New(nil, nil, DefaultOptions(10, 10)); err != ErrNoBackend {
		t.Fatalf("expected to get ErrNoBackend; got %v", err)
	}

	opts := DefaultOptions(10, 10)
	opts.TileCapacity = 24
	if _, err := New(&whiteBackend{}, nil, opts); !errors.Is(err, tracer.ErrInvalidConfig) {
		t.Fatalf("expected to get tracer.ErrInvalidConfig; got %v", err)
	}

	opts = DefaultOptions(0, 10)
	if _, err := New(&whiteBackend{}, nil, opts); !errors.Is(err, scene.ErrInvalidConfig) {
		t.Fatalf("expected to get scene.ErrInvalidConfig; got %v", err)
	}

	opts = DefaultOptions(10, 10)
	opts.QueueCapacity = 0
	if _, err := New(&whiteBackend{}, nil, opts); !errors.Is(err, tracer.ErrInvalidConfig) {
		t.Fatalf("expected to get tracer.ErrInvalidConfig; got %v", err)
	}

	r, err := New(&whiteBackend{}, nil, DefaultOptions(10, 10))
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
}

func TestRenderWhiteFrame(t *testing.T) {
	type spec struct {
		frameW, frameH uint32
		capacity       int
		expTiles       int
		expShapes      []tracer.DispatchShape
	}
	specs := []spec{
		{10, 10, 25, 4, []tracer.DispatchShape{{W: 5, H: 5}, {W: 5, H: 5}, {W: 5, H: 5}, {W: 5, H: 5}}},
		{10, 10, 36, 3, []tracer.DispatchShape{{W: 6, H: 6}, {W: 6, H: 6}, {W: 28, H: 1}}},
		{4, 3, DefaultTileCapacity, 1, []tracer.DispatchShape{{W: 12, H: 1}}},
		{7, 5, 1, 35, nil},
	}

	white := color.RGBA{255, 255, 255, 255}
	for index, s := range specs {
		be := &whiteBackend{}
		r := newTestRenderer(t, be, s.frameW, s.frameH, s.capacity, 2)
		sink := NewMemorySink()

		stats, err := r.RenderFrame(context.Background(), testFrameRequest(t, s.frameW, s.frameH, "frame.png"), sink)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}

		if stats.Tiles != s.expTiles || be.calls != s.expTiles {
			t.Fatalf("[spec %d] expected %d tiles; got %d (backend calls: %d)", index, s.expTiles, stats.Tiles, be.calls)
		}
		if stats.Rays != int(s.frameW*s.frameH) {
			t.Fatalf("[spec %d] expected %d rays; got %d", index, s.frameW*s.frameH, stats.Rays)
		}
		if s.expShapes != nil {
			for tileIndex, shape := range s.expShapes {
				if be.shapes[tileIndex] != shape {
					t.Fatalf("[spec %d] expected tile %d shape to be %s; got %s", index, tileIndex, shape, be.shapes[tileIndex])
				}
			}
		}
		for name, state := range stats.Stages {
			if state != Closed {
				t.Fatalf("[spec %d] expected stage %q to be closed; got %s", index, name, state)
			}
		}

		img, persisted := sink.Frame("frame.png")
		if !persisted {
			t.Fatalf("[spec %d] expected frame to be persisted", index)
		}
		bounds := img.Bounds()
		if bounds.Dx() != int(s.frameW) || bounds.Dy() != int(s.frameH) {
			t.Fatalf("[spec %d] expected image to be %dx%d; got %dx%d", index, s.frameW, s.frameH, bounds.Dx(), bounds.Dy())
		}
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				if got := color.RGBAModel.Convert(img.At(x, y)); got != white {
					t.Fatalf("[spec %d] expected pixel (%d, %d) to be white; got %v", index, x, y, got)
				}
			}
		}
	}
}

func TestRenderFrameBackendFailure(t *testing.T) {
	be := &failingBackend{failAt: 3}
	r := newTestRenderer(t, be, 10, 10, 4, 2)
	sink := NewMemorySink()

	stats, err := r.RenderFrame(context.Background(), testFrameRequest(t, 10, 10, "frame.png"), sink)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected to get ErrBackend; got %v", err)
	}
	if !errors.Is(err, errDeviceLost) {
		t.Fatalf("expected error to wrap the backend error; got %v", err)
	}

	var beErr *BackendError
	if !errors.As(err, &beErr) {
		t.Fatalf("expected a *BackendError; got %T", err)
	}
	if beErr.Tile != 2 || beErr.Backend != "failing" {
		t.Fatalf("expected failure on tile 2 of backend \"failing\"; got tile %d of %q", beErr.Tile, beErr.Backend)
	}

	if sink.Len() != 0 {
		t.Fatal("expected failed frame not to be persisted")
	}
	if stats.Stages[ComputeStage] != Closed {
		t.Fatalf("expected compute stage to be closed; got %s", stats.Stages[ComputeStage])
	}
}

func TestRenderFrameResultIntegrity(t *testing.T) {
	type spec struct {
		mutate func([]tracer.Ray) []tracer.Ray
		expErr error
	}
	specs := []spec{
		{
			func(rays []tracer.Ray) []tracer.Ray { return rays[:len(rays)-1] },
			tracer.ErrResultSizeMismatch,
		},
		{
			func(rays []tracer.Ray) []tracer.Ray {
				for i := range rays {
					rays[i].PixelX, rays[i].PixelY = 0, 0
				}
				return rays
			},
			ErrDuplicatePixel,
		},
		{
			func(rays []tracer.Ray) []tracer.Ray {
				rays[0].PixelX = 1000
				return rays
			},
			ErrPixelOutOfBounds,
		},
	}

	for index, s := range specs {
		r := newTestRenderer(t, &mutatingBackend{mutate: s.mutate}, 4, 4, 4, 2)
		sink := NewMemorySink()

		_, err := r.RenderFrame(context.Background(), testFrameRequest(t, 4, 4, "frame.png"), sink)
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected to get %v; got %v", index, s.expErr, err)
		}
		if sink.Len() != 0 {
			t.Fatalf("[spec %d] expected frame not to be persisted", index)
		}
	}
}

func TestRenderFrameInterrupted(t *testing.T) {
	be := &blockingBackend{started: make(chan struct{})}
	r := newTestRenderer(t, be, 10, 10, 4, 2)
	sink := NewMemorySink()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-be.started
		cancel()
	}()

	_, err := r.RenderFrame(ctx, testFrameRequest(t, 10, 10, "frame.png"), sink)
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected to get ErrInterrupted; got %v", err)
	}
	if errors.Is(err, ErrBackend) {
		t.Fatalf("expected cancellation not to be reported as a backend error; got %v", err)
	}
	if sink.Len() != 0 {
		t.Fatal("expected interrupted frame not to be persisted")
	}
}

func TestRenderFrameBackpressure(t *testing.T) {
	be := &mutatingBackend{
		mutate: func(rays []tracer.Ray) []tracer.Ray {
			time.Sleep(time.Millisecond)
			return rays
		},
	}
	r := newTestRenderer(t, be, 8, 8, 1, 2)

	stats, err := r.RenderFrame(context.Background(), testFrameRequest(t, 8, 8, "frame.png"), NewMemorySink())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Tiles != 64 {
		t.Fatalf("expected 64 tiles; got %d", stats.Tiles)
	}
	if stats.MaxTileQueueDepth > 2 || stats.MaxResultQueueDepth > 2 {
		t.Fatalf("expected queue depths to be bounded by 2; got %d and %d", stats.MaxTileQueueDepth, stats.MaxResultQueueDepth)
	}
	if stats.BackendTime < 64*time.Millisecond {
		t.Fatalf("expected backend time to be at least 64ms; got %s", stats.BackendTime)
	}
}

func TestRenderFrameMissingInputs(t *testing.T) {
	r := newTestRenderer(t, &whiteBackend{}, 4, 4, 4, 2)

	req := testFrameRequest(t, 4, 4, "frame.png")
	req.Scene = nil
	if _, err := r.RenderFrame(context.Background(), req, NewMemorySink()); err != ErrSceneNotDefined {
		t.Fatalf("expected to get ErrSceneNotDefined; got %v", err)
	}

	req = testFrameRequest(t, 4, 4, "frame.png")
	req.Geometry = nil
	if _, err := r.RenderFrame(context.Background(), req, NewMemorySink()); err != ErrGeometryNotDefined {
		t.Fatalf("expected to get ErrGeometryNotDefined; got %v", err)
	}
}

func TestRenderFrameDimsMismatch(t *testing.T) {
	be := &whiteBackend{}
	r := newTestRenderer(t, be, 4, 4, 4, 2)

	sink := NewMemorySink()
	_, err := r.RenderFrame(context.Background(), testFrameRequest(t, 8, 4, "frame.png"), sink)
	if !errors.Is(err, scene.ErrInvalidConfig) {
		t.Fatalf("expected to get ErrInvalidConfig; got %v", err)
	}
	if be.calls != 0 || sink.Len() != 0 {
		t.Fatalf("expected no dispatches and no persisted frames; got %d and %d", be.calls, sink.Len())
	}
}

func TestRenderFrameInvalidGeometry(t *testing.T) {
	be := cpu.NewBackend(tracer.BackendOptions{Workers: 2})
	r := newTestRenderer(t, be, 4, 4, 4, 2)

	req := testFrameRequest(t, 4, 4, "frame.png")
	req.Geometry = &scene.Geometry{
		Spheres: []scene.Sphere{{Center: types.Vec3{0, 0, -1}, Radius: 0.5, Material: 3}},
	}

	sink := NewMemorySink()
	_, err := r.RenderFrame(context.Background(), req, sink)
	if !errors.Is(err, scene.ErrInvalidConfig) {
		t.Fatalf("expected to get ErrInvalidConfig; got %v", err)
	}
	if sink.Len() != 0 {
		t.Fatalf("expected no frames to be persisted; got %d", sink.Len())
	}
}
