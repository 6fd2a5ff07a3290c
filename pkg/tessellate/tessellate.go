// Package tessellate bakes the visible part of a scene into world-space
// render meshes. One mesh is produced per visible mesh node.
package tessellate

import (
	"github.com/chazu/platen/pkg/scene"
)

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices   []float32 `json:"vertices"`
	Normals    []float32 `json:"normals"`
	Indices    []uint32  `json:"indices"`
	PartName   string    `json:"partName"`
	NodeID     string    `json:"nodeId"`
	Color      string    `json:"color"`
	OutputType string    `json:"outputType"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Palette chooses display colors for nodes without an explicit color.
type Palette struct {
	Materials []string // indexed by Node.Material, wrapping around
	Hole      string
	Support   string
}

// DefaultPalette returns the extruder colors used by the frontend.
func DefaultPalette() Palette {
	return Palette{
		Materials: []string{"#4f8fd9", "#d9a94f", "#5fbf6a", "#c75d9b"},
		Hole:      "#8a8a8a",
		Support:   "#e0e0e0",
	}
}

// Color resolves the display color of n.
func (p Palette) Color(n *scene.Node) string {
	if n.Color != "" {
		return n.Color
	}
	switch n.OutputType {
	case scene.OutputHole:
		return p.Hole
	case scene.OutputSupport:
		return p.Support
	}
	if len(p.Materials) == 0 {
		return ""
	}
	return p.Materials[n.Material%len(p.Materials)]
}

// Tessellate returns render meshes for every visible mesh under roots,
// using the default palette.
func Tessellate(roots ...*scene.Node) []*Mesh {
	return DefaultPalette().Tessellate(roots...)
}

// Tessellate bakes world transforms into the vertices. It reads the scene
// and never mutates it. Empty meshes are skipped.
func (p Palette) Tessellate(roots ...*scene.Node) []*Mesh {
	var out []*Mesh
	for item := range scene.VisibleMeshes(roots...) {
		if item.Mesh.IsEmpty() {
			continue
		}
		flat := item.Mesh.Transformed(item.World).Flatten()
		name := item.Node.Name
		if name == "" {
			name = item.Node.ID
		}
		out = append(out, &Mesh{
			Vertices:   flat.Vertices,
			Normals:    flat.Normals,
			Indices:    flat.Indices,
			PartName:   name,
			NodeID:     item.Node.ID,
			Color:      p.Color(item.Node),
			OutputType: item.Node.OutputType.String(),
		})
	}
	return out
}
