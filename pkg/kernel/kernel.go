// Package kernel defines the solid-modeling kernel behind scene scripts.
// Implementations build primitive solids, combine them and tessellate the
// result into an indexed triangle mesh that scene nodes can carry.
package kernel

import (
	"github.com/chazu/platen/pkg/geom"
	"github.com/chazu/platen/pkg/mesh"
)

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// Bounds returns the axis-aligned bounding box.
	Bounds() geom.Box
}

// Kernel is the abstract solid-modeling interface.
type Kernel interface {
	// Primitives. Boxes have their minimum corner at the origin; cylinders
	// and spheres are centered on it.
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)
	Sphere(radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Scale(s Solid, x, y, z float64) Solid

	// ToMesh tessellates s into a welded triangle mesh.
	ToMesh(s Solid) (*mesh.Mesh, error)
}
