package cpu

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/achilleasa/raystream/log"
	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/tracer"
	"github.com/achilleasa/raystream/types"
)

const (
	// Rays starting closer than this to a surface ignore it.
	minHitDist float32 = 1e-4

	ambient float32 = 0.25
)

var (
	lightDir = types.Vec3{-1, 1, 1}.Normalize()
	skyTop   = types.Vec3{0.5, 0.7, 1.0}
	skyBase  = types.Vec3{1, 1, 1}
)

func init() {
	tracer.Register("cpu", func(opts tracer.BackendOptions) (tracer.Backend, error) {
		return NewBackend(opts), nil
	})
}

// A reference backend that traces rays on the host CPU. Each dispatch is
// split into row bands that are processed by a fixed number of workers.
type cpuBackend struct {
	logger log.Logger

	workers int
	samples uint32
	jitter  float32

	// The bvh for the most recently dispatched geometry.
	accelMutex sync.Mutex
	geometry   *scene.Geometry
	accel      *bvh
}

// Create a new cpu backend.
func NewBackend(opts tracer.BackendOptions) tracer.Backend {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	samples := opts.SamplesPerPixel
	if samples == 0 {
		samples = 1
	}

	return &cpuBackend{
		logger:  log.New("cpu backend"),
		workers: workers,
		samples: samples,
		jitter:  opts.Jitter,
	}
}

func (b *cpuBackend) Id() string {
	return fmt.Sprintf("cpu (%d workers)", b.workers)
}

func (b *cpuBackend) Close() {
}

func (b *cpuBackend) Dispatch(ctx context.Context, req *tracer.DispatchRequest) ([]tracer.Ray, error) {
	if req.Shape.Size() != len(req.Rays) {
		return nil, fmt.Errorf("cpu backend: dispatch shape %s does not match ray count %d", req.Shape, len(req.Rays))
	}
	if req.Noise != nil && (req.Noise.W != req.Shape.W || req.Noise.H != req.Shape.H) {
		return nil, fmt.Errorf("cpu backend: noise texture %dx%d does not match dispatch shape %s", req.Noise.W, req.Noise.H, req.Shape)
	}

	accel, err := b.bindGeometry(req.Geometry)
	if err != nil {
		return nil, err
	}

	rows := int(req.Shape.H)
	workers := b.workers
	if workers > rows {
		workers = rows
	}
	rowsPerWorker := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		rowStart := w * rowsPerWorker
		rowEnd := rowStart + rowsPerWorker
		if rowEnd > rows {
			rowEnd = rows
		}
		if rowStart >= rowEnd {
			break
		}

		wg.Add(1)
		go func(rowStart, rowEnd int) {
			defer wg.Done()
			for gy := rowStart; gy < rowEnd; gy++ {
				for gx := 0; gx < int(req.Shape.W); gx++ {
					ray := &req.Rays[gy*int(req.Shape.W)+gx]
					ray.Color = b.shade(ray, req, accel, uint32(gx), uint32(gy))
				}
			}
		}(rowStart, rowEnd)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return req.Rays, nil
}

// Trace a ray through the scene averaging the configured number of
// jittered samples.
func (b *cpuBackend) shade(ray *tracer.Ray, req *tracer.DispatchRequest, accel *bvh, gx, gy uint32) types.Vec3 {
	var noise [4]float32
	if req.Noise != nil {
		noise = req.Noise.At(gx, gy)
	}

	dirLen := ray.Direction.Len()
	var color types.Vec3
	for s := uint32(0); s < b.samples; s++ {
		dir := ray.Direction
		if b.jitter > 0 && s > 0 {
			// Rotate through the noise channels and rescramble them per sample
			jx := fract(noise[s%4]+float32(s)*0.6180339) - 0.5
			jy := fract(noise[(s+1)%4]+float32(s)*0.7548776) - 0.5
			jz := fract(noise[(s+2)%4]+float32(s)*0.5698402) - 0.5
			dir = dir.Add(types.Vec3{jx, jy, jz}.Mul(b.jitter * dirLen))
		}
		color = color.Add(trace(ray.Origin, dir.Normalize(), req.Geometry, accel))
	}

	return color.Mul(1.0 / float32(b.samples))
}

// Get the bvh for geom, validating the geometry and rebuilding the bvh when
// the geometry changes.
func (b *cpuBackend) bindGeometry(geom *scene.Geometry) (*bvh, error) {
	b.accelMutex.Lock()
	defer b.accelMutex.Unlock()

	if geom != b.geometry {
		if geom != nil {
			if err := geom.Validate(); err != nil {
				return nil, fmt.Errorf("cpu backend: %w", err)
			}
		}
		b.geometry = geom
		b.accel = buildBvh(geom, b.logger)
	}
	return b.accel, nil
}

func trace(origin, dir types.Vec3, geom *scene.Geometry, accel *bvh) types.Vec3 {
	hitDist := float32(math.MaxFloat32)
	var normal types.Vec3
	var matIndex uint32
	hit := false

	if geom != nil {
		for _, sp := range geom.Spheres {
			if t, ok := intersectSphere(origin, dir, sp); ok && t < hitDist {
				hitDist, hit, matIndex = t, true, sp.Material
				normal = origin.Add(dir.Mul(t)).Sub(sp.Center).Div(sp.Radius)
			}
		}
		switch {
		case accel != nil:
			if t, n, triIndex, ok := accel.intersect(origin, dir, geom.Triangles, hitDist); ok {
				hitDist, hit, matIndex, normal = t, true, geom.Triangles[triIndex].Material, n
			}
		default:
			for _, tri := range geom.Triangles {
				if t, n, ok := intersectTriangle(origin, dir, tri); ok && t < hitDist {
					hitDist, hit, matIndex, normal = t, true, tri.Material, n
				}
			}
		}
	}

	if !hit {
		return skyColor(dir)
	}

	// Shade back faces like front faces
	if normal.Dot(dir) > 0 {
		normal = normal.Mul(-1)
	}

	mat := geom.Materials[matIndex]
	lambert := normal.Dot(lightDir)
	if lambert < 0 {
		lambert = 0
	}
	return mat.Emission.Add(mat.Albedo.Mul(ambient + (1-ambient)*lambert)).Clamp(0, 1)
}

func skyColor(dir types.Vec3) types.Vec3 {
	t := 0.5 * (dir[1] + 1.0)
	return skyBase.Lerp(skyTop, t)
}

// Intersect a normalized ray with a sphere and return the closest hit distance.
func intersectSphere(origin, dir types.Vec3, sp scene.Sphere) (float32, bool) {
	oc := origin.Sub(sp.Center)
	halfB := oc.Dot(dir)
	c := oc.Dot(oc) - sp.Radius*sp.Radius
	disc := halfB*halfB - c
	if disc < 0 {
		return 0, false
	}

	sqrtDisc := float32(math.Sqrt(float64(disc)))
	t := -halfB - sqrtDisc
	if t < minHitDist {
		t = -halfB + sqrtDisc
		if t < minHitDist {
			return 0, false
		}
	}
	return t, true
}

// Intersect a ray with a triangle using the Möller-Trumbore algorithm.
func intersectTriangle(origin, dir types.Vec3, tri scene.Triangle) (float32, types.Vec3, bool) {
	edge1 := tri.V2.Sub(tri.V1)
	edge2 := tri.V3.Sub(tri.V1)
	pVec := dir.Cross(edge2)
	det := edge1.Dot(pVec)
	if det > -1e-8 && det < 1e-8 {
		return 0, types.Vec3{}, false
	}
	invDet := 1.0 / det

	tVec := origin.Sub(tri.V1)
	u := tVec.Dot(pVec) * invDet
	if u < 0 || u > 1 {
		return 0, types.Vec3{}, false
	}

	qVec := tVec.Cross(edge1)
	v := dir.Dot(qVec) * invDet
	if v < 0 || u+v > 1 {
		return 0, types.Vec3{}, false
	}

	t := edge2.Dot(qVec) * invDet
	if t < minHitDist {
		return 0, types.Vec3{}, false
	}
	return t, edge1.Cross(edge2).Normalize(), true
}

func fract(v float32) float32 {
	return v - float32(math.Floor(float64(v)))
}
