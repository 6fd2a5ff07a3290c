package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the parametric tolerance used by ray tests.
const Epsilon = 1e-9

// Ray is a half-line Origin + t*Dir for t >= 0. Dir need not be unit length;
// a hit parameter is only comparable between rays that share Dir.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// NewRay returns a ray with a normalized direction.
func NewRay(origin, dir mgl64.Vec3) Ray {
	return Ray{Origin: origin, Dir: dir.Normalize()}
}

// At returns the point at parameter t.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Transform maps the ray by m. The direction is not renormalized so hit
// parameters found against the transformed ray are valid on the original.
func (r Ray) Transform(m mgl64.Mat4) Ray {
	return Ray{
		Origin: mgl64.TransformCoordinate(r.Origin, m),
		Dir:    mgl64.TransformNormal(r.Dir, m),
	}
}

// IntersectBox runs the slab test and returns the entry and exit parameters.
// ok is false when the ray misses the box or the box lies entirely behind the
// origin. tNear is negative when the origin is inside the box.
func (r Ray) IntersectBox(b Box) (tNear, tFar float64, ok bool) {
	if b.IsEmpty() {
		return 0, 0, false
	}
	tNear = math.Inf(-1)
	tFar = math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(r.Dir[i]) < Epsilon {
			if r.Origin[i] < b.Min[i] || r.Origin[i] > b.Max[i] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / r.Dir[i]
		t0 := (b.Min[i] - r.Origin[i]) * inv
		t1 := (b.Max[i] - r.Origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math.Max(tNear, t0)
		tFar = math.Min(tFar, t1)
		if tNear > tFar {
			return 0, 0, false
		}
	}
	if tFar < 0 {
		return 0, 0, false
	}
	return tNear, tFar, true
}

// IntersectTriangle is the Möller-Trumbore test. Both faces of the triangle
// are hit. It returns the parameter of the hit, which is always >= 0.
func (r Ray) IntersectTriangle(a, b, c mgl64.Vec3) (float64, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < Epsilon {
		return 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}
