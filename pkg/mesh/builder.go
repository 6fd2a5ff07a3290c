package mesh

import "github.com/go-gl/mathgl/mgl64"

// Builder assembles a mesh from loose triangles, welding vertices that share
// an exact position.
type Builder struct {
	mesh  *Mesh
	index map[[3]float64]int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		mesh:  &Mesh{},
		index: make(map[[3]float64]int),
	}
}

// AddVertex returns the index of v, adding it if it has not been seen.
func (b *Builder) AddVertex(v mgl64.Vec3) int {
	key := [3]float64{v[0], v[1], v[2]}
	if idx, ok := b.index[key]; ok {
		return idx
	}
	b.mesh.Vertices = append(b.mesh.Vertices, v)
	idx := len(b.mesh.Vertices) - 1
	b.index[key] = idx
	return idx
}

// AddTriangle adds a triangle. Triangles that collapse after welding are
// dropped.
func (b *Builder) AddTriangle(p0, p1, p2 mgl64.Vec3) {
	i0, i1, i2 := b.AddVertex(p0), b.AddVertex(p1), b.AddVertex(p2)
	if i0 == i1 || i1 == i2 || i0 == i2 {
		return
	}
	b.mesh.Faces = append(b.mesh.Faces, Face{i0, i1, i2})
}

// AddPolygon fan-triangulates a convex polygon.
func (b *Builder) AddPolygon(points []mgl64.Vec3) {
	for i := 2; i < len(points); i++ {
		b.AddTriangle(points[0], points[i-1], points[i])
	}
}

// Mesh returns the assembled mesh. The builder must not be used afterwards.
func (b *Builder) Mesh() *Mesh {
	m := b.mesh
	b.mesh = nil
	b.index = nil
	return m
}
