package scene

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/raystream/types"
)

// Defines a surface material.
type Material struct {
	Name string

	// Diffuse color.
	Albedo types.Vec3

	// Emissive color (if material is light).
	Emission types.Vec3
}

type Sphere struct {
	Center   types.Vec3
	Radius   float32
	Material uint32
}

type Triangle struct {
	V1, V2, V3 types.Vec3
	Material   uint32
}

// Geometry holds the static scene contents that are bound to each tile
// dispatch. The renderer never looks inside; it is interpreted by the
// compute backends.
type Geometry struct {
	Spheres   []Sphere
	Triangles []Triangle
	Materials []Material
}

// Create the default geometry: a unit sphere resting on a large ground sphere.
func DefaultGeometry() *Geometry {
	return &Geometry{
		Materials: []Material{
			{Name: "ground", Albedo: types.Vec3{0.8, 0.8, 0.0}},
			{Name: "center", Albedo: types.Vec3{0.1, 0.2, 0.5}},
		},
		Spheres: []Sphere{
			{Center: types.Vec3{0, -100.5, -1}, Radius: 100, Material: 0},
			{Center: types.Vec3{0, 0, -1}, Radius: 0.5, Material: 1},
		},
	}
}

// Ensure that all primitives reference a defined material.
func (g *Geometry) Validate() error {
	numMaterials := uint32(len(g.Materials))
	for idx, sp := range g.Spheres {
		if sp.Material >= numMaterials {
			return fmt.Errorf("%w: sphere %d references unknown material %d", ErrInvalidConfig, idx, sp.Material)
		}
		if sp.Radius <= 0 {
			return fmt.Errorf("%w: sphere %d has non-positive radius %f", ErrInvalidConfig, idx, sp.Radius)
		}
	}
	for idx, tri := range g.Triangles {
		if tri.Material >= numMaterials {
			return fmt.Errorf("%w: triangle %d references unknown material %d", ErrInvalidConfig, idx, tri.Material)
		}
	}
	return nil
}

// Get a summary of the geometry contents.
func (g *Geometry) Stats() string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("spheres   : %d\n", len(g.Spheres)))
	buf.WriteString(fmt.Sprintf("triangles : %d\n", len(g.Triangles)))
	buf.WriteString(fmt.Sprintf("materials : %d", len(g.Materials)))
	return buf.String()
}
