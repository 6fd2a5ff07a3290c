// Package mesh defines the indexed triangle mesh that scene nodes own.
// Meshes are treated as values: callers copy, transform and replace them
// wholesale, and a mesh that has been published on a scene node is never
// mutated again.
package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/geom"
)

// ErrIndexOutOfRange is returned by Validate when a face references a vertex
// that does not exist.
var ErrIndexOutOfRange = errors.New("mesh: face index out of range")

// Face is a counter-clockwise triangle of vertex indices. The winding faces
// outward for closed meshes.
type Face [3]int

// Mesh is an indexed triangle mesh in its owner's local space.
type Mesh struct {
	Vertices []mgl64.Vec3
	Faces    []Face
}

// New returns a mesh over the given vertices and faces. The slices are not
// copied.
func New(vertices []mgl64.Vec3, faces []Face) *Mesh {
	return &Mesh{Vertices: vertices, Faces: faces}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Faces) == 0
}

// Copy returns a deep copy of the mesh.
func (m *Mesh) Copy() *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Vertices: make([]mgl64.Vec3, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
	}
	copy(out.Vertices, m.Vertices)
	copy(out.Faces, m.Faces)
	return out
}

// Transform applies t to every vertex in place. A mirroring transform
// reverses the winding so faces keep pointing outward.
func (m *Mesh) Transform(t mgl64.Mat4) {
	for i, v := range m.Vertices {
		m.Vertices[i] = mgl64.TransformCoordinate(v, t)
	}
	if t.Det() < 0 {
		for i, f := range m.Faces {
			m.Faces[i] = Face{f[0], f[2], f[1]}
		}
	}
}

// Transformed returns a transformed copy, leaving m untouched.
func (m *Mesh) Transformed(t mgl64.Mat4) *Mesh {
	out := m.Copy()
	if out != nil {
		out.Transform(t)
	}
	return out
}

// Triangle returns the corner positions of face i.
func (m *Mesh) Triangle(i int) (a, b, c mgl64.Vec3) {
	f := m.Faces[i]
	return m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
}

// Bounds returns the box around every referenced vertex.
func (m *Mesh) Bounds() geom.Box {
	b := geom.EmptyBox()
	if m == nil {
		return b
	}
	for _, f := range m.Faces {
		for _, idx := range f {
			b = b.ExpandPoint(m.Vertices[idx])
		}
	}
	return b
}

// Volume returns the signed enclosed volume. It is positive for a closed mesh
// with outward winding and meaningless for open meshes.
func (m *Mesh) Volume() float64 {
	if m == nil {
		return 0
	}
	var vol float64
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		vol += a.Dot(b.Cross(c))
	}
	return vol / 6
}

// Validate checks that every face references existing, distinct vertices.
func (m *Mesh) Validate() error {
	if m == nil {
		return nil
	}
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d of %d: %w", i, idx, n, ErrIndexOutOfRange)
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			return fmt.Errorf("mesh: face %d is degenerate: %v", i, f)
		}
	}
	return nil
}

// NewBox returns a closed box spanning the two corners with outward faces.
func NewBox(min, max mgl64.Vec3) *Mesh {
	verts := make([]mgl64.Vec3, 8)
	for i := range verts {
		v := min
		if i&1 != 0 {
			v[0] = max[0]
		}
		if i&2 != 0 {
			v[1] = max[1]
		}
		if i&4 != 0 {
			v[2] = max[2]
		}
		verts[i] = v
	}
	faces := []Face{
		{0, 2, 3}, {0, 3, 1}, // -z
		{4, 5, 7}, {4, 7, 6}, // +z
		{0, 1, 5}, {0, 5, 4}, // -y
		{2, 6, 7}, {2, 7, 3}, // +y
		{0, 4, 6}, {0, 6, 2}, // -x
		{1, 3, 7}, {1, 7, 5}, // +x
	}
	return &Mesh{Vertices: verts, Faces: faces}
}

// NewCube returns an axis-aligned cube with the given edge length and its
// minimum corner at the origin.
func NewCube(size float64) *Mesh {
	return NewBox(mgl64.Vec3{}, mgl64.Vec3{size, size, size})
}
