package csg

import "github.com/go-gl/mathgl/mgl64"

// Point classification against a plane.
const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = front | back
)

type plane struct {
	normal mgl64.Vec3
	w      float64
}

func planeFromPoints(a, b, c mgl64.Vec3) (plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l == 0 {
		return plane{}, false
	}
	n = n.Mul(1 / l)
	return plane{normal: n, w: n.Dot(a)}, true
}

func (p plane) flipped() plane {
	return plane{normal: p.normal.Mul(-1), w: -p.w}
}

func (p plane) classify(v mgl64.Vec3, eps float64) int {
	t := p.normal.Dot(v) - p.w
	switch {
	case t < -eps:
		return back
	case t > eps:
		return front
	default:
		return coplanar
	}
}

// split sorts poly into the four buckets by which side of p it lies on,
// cutting it in two when it spans the plane.
func (p plane) split(poly polygon, eps float64, coplanarFront, coplanarBack, fronts, backs *[]polygon) {
	kind := 0
	types := make([]int, len(poly.vertices))
	for i, v := range poly.vertices {
		types[i] = p.classify(v, eps)
		kind |= types[i]
	}

	switch kind {
	case coplanar:
		if p.normal.Dot(poly.plane.normal) > 0 {
			*coplanarFront = append(*coplanarFront, poly)
		} else {
			*coplanarBack = append(*coplanarBack, poly)
		}
	case front:
		*fronts = append(*fronts, poly)
	case back:
		*backs = append(*backs, poly)
	default:
		var f, b []mgl64.Vec3
		n := len(poly.vertices)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			ti, tj := types[i], types[j]
			vi, vj := poly.vertices[i], poly.vertices[j]
			if ti != back {
				f = append(f, vi)
			}
			if ti != front {
				b = append(b, vi)
			}
			if ti|tj == spanning {
				t := (p.w - p.normal.Dot(vi)) / p.normal.Dot(vj.Sub(vi))
				v := vi.Add(vj.Sub(vi).Mul(t))
				f = append(f, v)
				b = append(b, v)
			}
		}
		if len(f) >= 3 {
			*fronts = append(*fronts, polygon{vertices: f, plane: poly.plane})
		}
		if len(b) >= 3 {
			*backs = append(*backs, polygon{vertices: b, plane: poly.plane})
		}
	}
}

// polygon is a convex planar polygon. Vertices wind counter-clockwise around
// the plane normal.
type polygon struct {
	vertices []mgl64.Vec3
	plane    plane
}

func (p polygon) flipped() polygon {
	n := len(p.vertices)
	vs := make([]mgl64.Vec3, n)
	for i, v := range p.vertices {
		vs[n-1-i] = v
	}
	return polygon{vertices: vs, plane: p.plane.flipped()}
}
