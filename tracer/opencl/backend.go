//go:build opencl

package opencl

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/raystream/log"
	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/tracer"
	"github.com/achilleasa/raystream/tracer/opencl/device"
)

//go:embed kernels/trace.cl
var kernelSource string

const kernelName = "traceRays"

func init() {
	tracer.Register("opencl", func(opts tracer.BackendOptions) (tracer.Backend, error) {
		return NewBackend(opts)
	})
}

// A backend that traces each tile on an opencl device using a 2D kernel
// dispatch that matches the tile dispatch shape.
type clBackend struct {
	sync.Mutex
	logger log.Logger

	device *device.Device
	kernel *device.Kernel

	samples uint32
	jitter  float32

	rays      *device.Buffer
	noise     *device.Buffer
	spheres   *device.Buffer
	triangles *device.Buffer
	materials *device.Buffer

	// The geometry currently resident on the device.
	geometry *scene.Geometry
	packed   *packedGeometry
}

// Create an opencl backend on the fastest device whose name matches
// opts.DeviceFilter.
func NewBackend(opts tracer.BackendOptions) (tracer.Backend, error) {
	devices, err := device.SelectDevices(device.AllDevices, opts.DeviceFilter)
	if err != nil {
		return nil, err
	}
	return newBackendForDevice(devices[0], opts)
}

func newBackendForDevice(dev *device.Device, opts tracer.BackendOptions) (*clBackend, error) {
	if err := dev.Init(kernelSource); err != nil {
		return nil, err
	}

	kernel, err := dev.Kernel(kernelName)
	if err != nil {
		dev.Close()
		return nil, err
	}

	samples := opts.SamplesPerPixel
	if samples == 0 {
		samples = 1
	}

	b := &clBackend{
		logger:    log.New(fmt.Sprintf("opencl backend (%s)", dev.Name)),
		device:    dev,
		kernel:    kernel,
		samples:   samples,
		jitter:    opts.Jitter,
		rays:      dev.Buffer("rays"),
		noise:     dev.Buffer("noise"),
		spheres:   dev.Buffer("spheres"),
		triangles: dev.Buffer("triangles"),
		materials: dev.Buffer("materials"),
	}
	b.logger.Noticef("attached to %s", dev)
	return b, nil
}

func (b *clBackend) Id() string {
	return fmt.Sprintf("opencl (%s)", b.device.Name)
}

func (b *clBackend) Close() {
	b.Lock()
	defer b.Unlock()

	for _, buf := range []*device.Buffer{b.rays, b.noise, b.spheres, b.triangles, b.materials} {
		buf.Release()
	}
	if b.kernel != nil {
		b.kernel.Release()
		b.kernel = nil
	}
	b.device.Close()
}

// Upload scene geometry unless it is already resident on the device.
func (b *clBackend) bindGeometry(geom *scene.Geometry) error {
	if geom == b.geometry {
		return nil
	}

	pg := packGeometry(geom)
	if err := b.spheres.Upload(pg.spheres, cl.MEM_READ_ONLY); err != nil {
		return err
	}
	if err := b.triangles.Upload(pg.triangles, cl.MEM_READ_ONLY); err != nil {
		return err
	}
	if err := b.materials.Upload(pg.materials, cl.MEM_READ_ONLY); err != nil {
		return err
	}

	b.logger.Infof("uploaded geometry (%d spheres, %d triangles, %d materials)", pg.numSpheres, pg.numTriangles, len(geom.Materials))
	b.geometry, b.packed = geom, pg
	return nil
}

func (b *clBackend) Dispatch(ctx context.Context, req *tracer.DispatchRequest) ([]tracer.Ray, error) {
	if req.Shape.Size() != len(req.Rays) {
		return nil, fmt.Errorf("opencl backend: dispatch shape %s does not match ray count %d", req.Shape, len(req.Rays))
	}
	if req.Noise == nil || req.Noise.W != req.Shape.W || req.Noise.H != req.Shape.H {
		return nil, fmt.Errorf("opencl backend: missing noise texture for dispatch shape %s", req.Shape)
	}
	if req.Geometry == nil {
		return nil, fmt.Errorf("opencl backend: no geometry bound")
	}

	b.Lock()
	defer b.Unlock()

	if err := b.bindGeometry(req.Geometry); err != nil {
		return nil, err
	}
	if err := b.rays.Allocate(len(req.Rays)*tracer.RaySize, cl.MEM_READ_WRITE); err != nil {
		return nil, err
	}
	if err := b.rays.WriteData(req.Rays); err != nil {
		return nil, err
	}
	if err := b.noise.Allocate(len(req.Noise.Texels), cl.MEM_READ_ONLY); err != nil {
		return nil, err
	}
	if err := b.noise.WriteData(req.Noise.Texels); err != nil {
		return nil, err
	}

	err := b.kernel.SetArgs(
		b.rays,
		uint32(len(req.Rays)),
		b.spheres,
		b.packed.numSpheres,
		b.triangles,
		b.packed.numTriangles,
		b.materials,
		b.noise,
		b.samples,
		b.jitter,
	)
	if err != nil {
		return nil, err
	}

	// Kernel execution cannot be interrupted once enqueued
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	elapsed, err := b.kernel.Exec2D(int(req.Shape.W), int(req.Shape.H))
	if err != nil {
		return nil, err
	}

	if err = b.rays.ReadData(req.Rays); err != nil {
		return nil, err
	}
	b.logger.Debugf("traced %s grid in %s", req.Shape, elapsed)

	return req.Rays, nil
}

// List the opencl devices that the backend can attach to.
func Devices() ([]device.PlatformInfo, error) {
	return device.GetPlatformInfo()
}
