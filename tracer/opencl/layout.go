//go:build opencl

package opencl

import (
	"github.com/achilleasa/raystream/scene"
)

// Device side geometry layouts; see kernels/trace.cl.
type clSphere struct {
	Center   [3]float32
	Radius   float32
	Material uint32
	_        [3]uint32
}

type clTriangle struct {
	V1       [4]float32
	V2       [4]float32
	V3       [4]float32
	Material uint32
	_        [3]uint32
}

type clMaterial struct {
	Albedo   [4]float32
	Emission [4]float32
}

// Geometry packed in device layout. Empty lists are padded with a single
// zero entry as opencl does not support zero sized buffers; the counts hold
// the real number of entries.
type packedGeometry struct {
	spheres      []clSphere
	numSpheres   uint32
	triangles    []clTriangle
	numTriangles uint32
	materials    []clMaterial
}

func packGeometry(geom *scene.Geometry) *packedGeometry {
	pg := &packedGeometry{
		numSpheres:   uint32(len(geom.Spheres)),
		numTriangles: uint32(len(geom.Triangles)),
		spheres:      make([]clSphere, max(len(geom.Spheres), 1)),
		triangles:    make([]clTriangle, max(len(geom.Triangles), 1)),
		materials:    make([]clMaterial, max(len(geom.Materials), 1)),
	}

	for i, sp := range geom.Spheres {
		pg.spheres[i] = clSphere{
			Center:   [3]float32{sp.Center[0], sp.Center[1], sp.Center[2]},
			Radius:   sp.Radius,
			Material: sp.Material,
		}
	}
	for i, tri := range geom.Triangles {
		pg.triangles[i] = clTriangle{
			V1:       [4]float32{tri.V1[0], tri.V1[1], tri.V1[2], 0},
			V2:       [4]float32{tri.V2[0], tri.V2[1], tri.V2[2], 0},
			V3:       [4]float32{tri.V3[0], tri.V3[1], tri.V3[2], 0},
			Material: tri.Material,
		}
	}
	for i, mat := range geom.Materials {
		pg.materials[i] = clMaterial{
			Albedo:   [4]float32{mat.Albedo[0], mat.Albedo[1], mat.Albedo[2], 0},
			Emission: [4]float32{mat.Emission[0], mat.Emission[1], mat.Emission[2], 0},
		}
	}

	return pg
}
