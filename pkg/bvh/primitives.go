package bvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/geom"
	"github.com/chazu/platen/pkg/mesh"
)

// Triangle is a single mesh face.
type Triangle struct {
	A, B, C mgl64.Vec3
}

var (
	_ Traceable = (*Triangle)(nil)
	_ Traceable = (*BoxShape)(nil)
	_ Traceable = (*SphereShape)(nil)
)

func (t *Triangle) Bounds() geom.Box { return geom.BoxOf(t.A, t.B, t.C) }

func (t *Triangle) Intersect(r geom.Ray) (Hit, bool) {
	tHit, ok := r.IntersectTriangle(t.A, t.B, t.C)
	if !ok {
		return Hit{}, false
	}
	n := t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Normalize()
	return Hit{
		T:          tHit,
		Point:      r.At(tHit),
		Normal:     facing(n, r.Dir),
		Leaf:       t,
		LeafBounds: t.Bounds(),
	}, true
}

// BoxShape is a solid axis-aligned box, used for gizmo handles. A ray that
// starts inside hits the far wall.
type BoxShape struct {
	Box geom.Box
}

func (b *BoxShape) Bounds() geom.Box { return b.Box }

func (b *BoxShape) Intersect(r geom.Ray) (Hit, bool) {
	tNear, tFar, ok := r.IntersectBox(b.Box)
	if !ok {
		return Hit{}, false
	}
	t := tNear
	if t < 0 {
		t = tFar
	}
	p := r.At(t)
	return Hit{
		T:          t,
		Point:      p,
		Normal:     facing(boxNormal(b.Box, p), r.Dir),
		Leaf:       b,
		LeafBounds: b.Box,
	}, true
}

// boxNormal returns the axis normal of the face nearest p.
func boxNormal(b geom.Box, p mgl64.Vec3) mgl64.Vec3 {
	best := math.Inf(1)
	var n mgl64.Vec3
	for i := 0; i < 3; i++ {
		if d := math.Abs(p[i] - b.Min[i]); d < best {
			best = d
			n = mgl64.Vec3{}
			n[i] = -1
		}
		if d := math.Abs(p[i] - b.Max[i]); d < best {
			best = d
			n = mgl64.Vec3{}
			n[i] = 1
		}
	}
	return n
}

// SphereShape is a solid sphere, used for rotation and scale handles.
type SphereShape struct {
	Center mgl64.Vec3
	Radius float64
}

func (s *SphereShape) Bounds() geom.Box {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return geom.Box{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

func (s *SphereShape) Intersect(r geom.Ray) (Hit, bool) {
	oc := r.Origin.Sub(s.Center)
	a := r.Dir.Dot(r.Dir)
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := b*b - 4*a*c
	if a == 0 || disc < 0 {
		return Hit{}, false
	}
	sq := math.Sqrt(disc)
	t := (-b - sq) / (2 * a)
	if t < 0 {
		t = (-b + sq) / (2 * a)
	}
	if t < 0 {
		return Hit{}, false
	}
	p := r.At(t)
	return Hit{
		T:          t,
		Point:      p,
		Normal:     facing(p.Sub(s.Center).Normalize(), r.Dir),
		Leaf:       s,
		LeafBounds: s.Bounds(),
	}, true
}

func facing(n, dir mgl64.Vec3) mgl64.Vec3 {
	if n.Dot(dir) > 0 {
		return n.Mul(-1)
	}
	return n
}

// FromMesh builds a hierarchy over the triangles of m in m's own space.
func FromMesh(m *mesh.Mesh) *Node {
	items := make([]Traceable, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Triangle(i)
		items = append(items, &Triangle{A: a, B: b, C: c})
	}
	return Build(items)
}
