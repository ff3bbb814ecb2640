package cpu

import (
	"context"
	"errors"
	"testing"

	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/tracer"
	"github.com/achilleasa/raystream/types"
)

func TestSphereIntersection(t *testing.T) {
	sp := scene.Sphere{Center: types.Vec3{0, 0, -5}, Radius: 1}

	dist, ok := intersectSphere(types.Vec3{}, types.Vec3{0, 0, -1}, sp)
	if !ok {
		t.Fatal("expected ray to hit sphere")
	}
	if dist < 3.999 || dist > 4.001 {
		t.Fatalf("expected hit distance 4; got %f", dist)
	}

	if _, ok = intersectSphere(types.Vec3{}, types.Vec3{0, 1, 0}, sp); ok {
		t.Fatal("expected ray to miss sphere")
	}

	// Origin inside the sphere hits the far side
	dist, ok = intersectSphere(types.Vec3{0, 0, -5}, types.Vec3{0, 0, -1}, sp)
	if !ok || dist < 0.999 || dist > 1.001 {
		t.Fatalf("expected hit distance 1 from inside the sphere; got %f (hit: %t)", dist, ok)
	}
}

func TestTriangleIntersection(t *testing.T) {
	tri := scene.Triangle{
		V1: types.Vec3{-1, -1, -2},
		V2: types.Vec3{1, -1, -2},
		V3: types.Vec3{0, 1, -2},
	}

	dist, normal, ok := intersectTriangle(types.Vec3{}, types.Vec3{0, 0, -1}, tri)
	if !ok {
		t.Fatal("expected ray to hit triangle")
	}
	if dist < 1.999 || dist > 2.001 {
		t.Fatalf("expected hit distance 2; got %f", dist)
	}
	if !normal.ApproxEqual(types.Vec3{0, 0, 1}, 1e-6) {
		t.Fatalf("expected normal (0, 0, 1); got %v", normal)
	}

	if _, _, ok = intersectTriangle(types.Vec3{}, types.Vec3{1, 0, 0}, tri); ok {
		t.Fatal("expected parallel ray to miss triangle")
	}
}

func makeRequest(rays []tracer.Ray, shape tracer.DispatchShape, geom *scene.Geometry) *tracer.DispatchRequest {
	return &tracer.DispatchRequest{
		Rays:     rays,
		Shape:    shape,
		Geometry: geom,
		Noise:    tracer.NewRandomNoise(1).Texture(shape),
	}
}

func TestDispatchShading(t *testing.T) {
	geom := &scene.Geometry{
		Materials: []scene.Material{{Albedo: types.Vec3{0, 0, 0}, Emission: types.Vec3{1, 0, 0}}},
		Spheres:   []scene.Sphere{{Center: types.Vec3{0, 0, -3}, Radius: 1}},
	}

	rays := []tracer.Ray{
		tracer.NewRay(types.Vec3{}, types.Vec3{0, 0, -1}, 0, 0),
		tracer.NewRay(types.Vec3{}, types.Vec3{0, 1, 0}, 1, 0),
	}

	be := NewBackend(tracer.BackendOptions{Workers: 4})
	defer be.Close()

	out, err := be.Dispatch(context.Background(), makeRequest(rays, tracer.DispatchShape{W: 2, H: 1}, geom))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rays; got %d", len(out))
	}

	if exp := (types.Vec3{1, 0, 0}); !out[0].Color.ApproxEqual(exp, 1e-6) {
		t.Fatalf("expected emissive hit color %v; got %v", exp, out[0].Color)
	}
	if !out[1].Color.ApproxEqual(skyTop, 1e-6) {
		t.Fatalf("expected straight up miss to return sky color %v; got %v", skyTop, out[1].Color)
	}
	if out[1].PixelX != 1 || out[1].PixelY != 0 {
		t.Fatalf("expected pixel coordinates to be preserved; got (%d, %d)", out[1].PixelX, out[1].PixelY)
	}
}

func TestDispatchIsDeterministicWithJitter(t *testing.T) {
	geom := scene.DefaultGeometry()
	mkRays := func() []tracer.Ray {
		rays := make([]tracer.Ray, 9)
		for i := range rays {
			rays[i] = tracer.NewRay(types.Vec3{}, types.Vec3{float32(i%3) - 1, float32(i/3) - 1, -1}, uint32(i%3), uint32(i/3))
		}
		return rays
	}
	shape := tracer.DispatchShape{W: 3, H: 3}

	be := NewBackend(tracer.BackendOptions{SamplesPerPixel: 4, Jitter: 0.01, Workers: 2})
	out1, err := be.Dispatch(context.Background(), makeRequest(mkRays(), shape, geom))
	if err != nil {
		t.Fatal(err)
	}
	out2, err := be.Dispatch(context.Background(), makeRequest(mkRays(), shape, geom))
	if err != nil {
		t.Fatal(err)
	}

	for i := range out1 {
		if out1[i].Color != out2[i].Color {
			t.Fatalf("expected ray %d color to be reproducible; got %v and %v", i, out1[i].Color, out2[i].Color)
		}
		for c := 0; c < 3; c++ {
			if out1[i].Color[c] < 0 || out1[i].Color[c] > 1 {
				t.Fatalf("expected ray %d color components in [0, 1]; got %v", i, out1[i].Color)
			}
		}
	}
}

func TestDispatchShapeMismatch(t *testing.T) {
	rays := make([]tracer.Ray, 3)
	be := NewBackend(tracer.BackendOptions{})
	_, err := be.Dispatch(context.Background(), &tracer.DispatchRequest{
		Rays:     rays,
		Shape:    tracer.DispatchShape{W: 2, H: 2},
		Geometry: scene.DefaultGeometry(),
	})
	if err == nil {
		t.Fatal("expected an error for mismatched dispatch shape")
	}
}

func TestDispatchInvalidGeometry(t *testing.T) {
	be := NewBackend(tracer.BackendOptions{Workers: 2})
	rays := []tracer.Ray{
		tracer.NewRay(types.Vec3{}, types.Vec3{0, 0, -1}, 0, 0),
		tracer.NewRay(types.Vec3{}, types.Vec3{0, 0, -1}, 1, 0),
		tracer.NewRay(types.Vec3{}, types.Vec3{0, 0, -1}, 0, 1),
		tracer.NewRay(types.Vec3{}, types.Vec3{0, 0, -1}, 1, 1),
	}
	geom := &scene.Geometry{
		Spheres: []scene.Sphere{{Center: types.Vec3{0, 0, -2}, Radius: 0.5, Material: 3}},
	}

	_, err := be.Dispatch(context.Background(), &tracer.DispatchRequest{
		Rays:     rays,
		Shape:    tracer.DispatchShape{W: 2, H: 2},
		Geometry: geom,
	})
	if !errors.Is(err, scene.ErrInvalidConfig) {
		t.Fatalf("expected to get ErrInvalidConfig; got %v", err)
	}
}

func TestRegisteredAsCpu(t *testing.T) {
	be, err := tracer.NewBackend("cpu", tracer.BackendOptions{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if exp := "cpu (3 workers)"; be.Id() != exp {
		t.Fatalf("expected backend id %q; got %q", exp, be.Id())
	}
}
