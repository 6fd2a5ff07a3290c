package mesh

// Flat is the render form of a mesh: flat arrays with three floats per
// vertex, three floats per normal and three indices per triangle. Every
// triangle gets its own vertices so normals are per-face.
type Flat struct {
	Vertices []float32
	Normals  []float32
	Indices  []uint32
}

// Flatten converts m into render arrays. The result slices are non-nil.
func (m *Mesh) Flatten() Flat {
	n := m.TriangleCount()
	out := Flat{
		Vertices: make([]float32, 0, n*9),
		Normals:  make([]float32, 0, n*9),
		Indices:  make([]uint32, 0, n*3),
	}
	for i := 0; i < n; i++ {
		a, b, c := m.Triangle(i)
		normal := b.Sub(a).Cross(c.Sub(a))
		if l := normal.Len(); l > 0 {
			normal = normal.Mul(1 / l)
		}
		base := uint32(len(out.Vertices) / 3)
		for _, p := range [3][3]float64{a, b, c} {
			out.Vertices = append(out.Vertices, float32(p[0]), float32(p[1]), float32(p[2]))
			out.Normals = append(out.Normals, float32(normal[0]), float32(normal[1]), float32(normal[2]))
		}
		out.Indices = append(out.Indices, base, base+1, base+2)
	}
	return out
}
