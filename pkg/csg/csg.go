// Package csg implements boolean operations on closed triangle meshes using
// polygon BSP trees. Inputs are never modified; results are new welded
// meshes.
package csg

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/mesh"
)

// DefaultEpsilon is the plane thickness used to classify points.
const DefaultEpsilon = 1e-5

// ErrEmptyMesh is returned when an operand is nil.
var ErrEmptyMesh = errors.New("csg: nil mesh operand")

// Ops runs boolean operations with a fixed plane tolerance.
type Ops struct {
	Epsilon float64
}

// Default is the Ops used by the package-level functions.
var Default = Ops{Epsilon: DefaultEpsilon}

// Subtract returns a minus b.
func Subtract(a, b *mesh.Mesh) (*mesh.Mesh, error) { return Default.Subtract(a, b) }

// Union returns a plus b.
func Union(a, b *mesh.Mesh) (*mesh.Mesh, error) { return Default.Union(a, b) }

// Intersect returns the volume shared by a and b.
func Intersect(a, b *mesh.Mesh) (*mesh.Mesh, error) { return Default.Intersect(a, b) }

// Subtract returns a minus b.
func (o Ops) Subtract(a, b *mesh.Mesh) (*mesh.Mesh, error) {
	na, nb, err := o.trees(a, b)
	if err != nil {
		return nil, fmt.Errorf("csg: subtract: %w", err)
	}
	if a.IsEmpty() {
		return &mesh.Mesh{}, nil
	}
	if b.IsEmpty() {
		return a.Copy(), nil
	}
	na.invert()
	na.clipTo(nb)
	nb.clipTo(na)
	nb.invert()
	nb.clipTo(na)
	nb.invert()
	na.build(nb.allPolygons())
	na.invert()
	return toMesh(na.allPolygons()), nil
}

// Union returns a plus b.
func (o Ops) Union(a, b *mesh.Mesh) (*mesh.Mesh, error) {
	na, nb, err := o.trees(a, b)
	if err != nil {
		return nil, fmt.Errorf("csg: union: %w", err)
	}
	if a.IsEmpty() {
		return b.Copy(), nil
	}
	if b.IsEmpty() {
		return a.Copy(), nil
	}
	na.clipTo(nb)
	nb.clipTo(na)
	nb.invert()
	nb.clipTo(na)
	nb.invert()
	na.build(nb.allPolygons())
	return toMesh(na.allPolygons()), nil
}

// Intersect returns the volume shared by a and b.
func (o Ops) Intersect(a, b *mesh.Mesh) (*mesh.Mesh, error) {
	na, nb, err := o.trees(a, b)
	if err != nil {
		return nil, fmt.Errorf("csg: intersect: %w", err)
	}
	if a.IsEmpty() || b.IsEmpty() {
		return &mesh.Mesh{}, nil
	}
	na.invert()
	nb.clipTo(na)
	nb.invert()
	na.clipTo(nb)
	nb.clipTo(na)
	na.build(nb.allPolygons())
	na.invert()
	return toMesh(na.allPolygons()), nil
}

func (o Ops) trees(a, b *mesh.Mesh) (*node, *node, error) {
	if a == nil || b == nil {
		return nil, nil, ErrEmptyMesh
	}
	if err := a.Validate(); err != nil {
		return nil, nil, fmt.Errorf("first operand: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, nil, fmt.Errorf("second operand: %w", err)
	}
	eps := o.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	return newNode(toPolygons(a), eps), newNode(toPolygons(b), eps), nil
}

func toPolygons(m *mesh.Mesh) []polygon {
	polys := make([]polygon, 0, m.TriangleCount())
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		pl, ok := planeFromPoints(a, b, c)
		if !ok {
			continue
		}
		polys = append(polys, polygon{vertices: []mgl64.Vec3{a, b, c}, plane: pl})
	}
	return polys
}

func toMesh(polys []polygon) *mesh.Mesh {
	b := mesh.NewBuilder()
	for _, p := range polys {
		b.AddPolygon(p.vertices)
	}
	return b.Mesh()
}
