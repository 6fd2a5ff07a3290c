package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBox() Box {
	return NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
}

func TestEmptyBoxUnion(t *testing.T) {
	e := EmptyBox()
	assert.True(t, e.IsEmpty())
	assert.Equal(t, unitBox(), e.Union(unitBox()))
	assert.Equal(t, unitBox(), unitBox().Union(e))
	assert.False(t, e.Intersects(unitBox()))
	assert.True(t, unitBox().Contains(e))
}

func TestBoxIntersectsAndContains(t *testing.T) {
	tests := []struct {
		name       string
		other      Box
		intersects bool
		contains   bool
	}{
		{"inside", NewBox(mgl64.Vec3{0.25, 0.25, 0.25}, mgl64.Vec3{0.75, 0.75, 0.75}), true, true},
		{"overlap corner", NewBox(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{1.5, 1.5, 1.5}), true, false},
		{"touching face", NewBox(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 1, 1}), true, false},
		{"disjoint", NewBox(mgl64.Vec3{2, 2, 2}, mgl64.Vec3{3, 3, 3}), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.intersects, unitBox().Intersects(tt.other))
			assert.Equal(t, tt.contains, unitBox().Contains(tt.other))
		})
	}
}

func TestBoxTransformRotation(t *testing.T) {
	m := mgl64.Translate3D(10, 0, 0).Mul4(mgl64.HomogRotate3DZ(math.Pi / 2))
	got := unitBox().Transform(m)
	assert.InDelta(t, 9, got.Min[0], 1e-9)
	assert.InDelta(t, 10, got.Max[0], 1e-9)
	assert.InDelta(t, 0, got.Min[1], 1e-9)
	assert.InDelta(t, 1, got.Max[1], 1e-9)
}

func TestLongestAxis(t *testing.T) {
	b := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 5, 2})
	assert.Equal(t, 1, b.LongestAxis())
}

func TestRayIntersectBox(t *testing.T) {
	r := NewRay(mgl64.Vec3{-5, 0.5, 0.5}, mgl64.Vec3{1, 0, 0})
	tNear, tFar, ok := r.IntersectBox(unitBox())
	require.True(t, ok)
	assert.InDelta(t, 5, tNear, 1e-9)
	assert.InDelta(t, 6, tFar, 1e-9)

	behind := NewRay(mgl64.Vec3{5, 0.5, 0.5}, mgl64.Vec3{1, 0, 0})
	_, _, ok = behind.IntersectBox(unitBox())
	assert.False(t, ok)

	parallelOutside := NewRay(mgl64.Vec3{-5, 2, 0.5}, mgl64.Vec3{1, 0, 0})
	_, _, ok = parallelOutside.IntersectBox(unitBox())
	assert.False(t, ok)

	inside := NewRay(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0, 0, 1})
	tNear, tFar, ok = inside.IntersectBox(unitBox())
	require.True(t, ok)
	assert.Less(t, tNear, 0.0)
	assert.InDelta(t, 0.5, tFar, 1e-9)
}

func TestRayIntersectTriangle(t *testing.T) {
	a := mgl64.Vec3{0, 0, 3}
	b := mgl64.Vec3{1, 0, 3}
	c := mgl64.Vec3{0, 1, 3}

	hit := NewRay(mgl64.Vec3{0.2, 0.2, 0}, mgl64.Vec3{0, 0, 1})
	tHit, ok := hit.IntersectTriangle(a, b, c)
	require.True(t, ok)
	assert.InDelta(t, 3, tHit, 1e-9)

	miss := NewRay(mgl64.Vec3{0.8, 0.8, 0}, mgl64.Vec3{0, 0, 1})
	_, ok = miss.IntersectTriangle(a, b, c)
	assert.False(t, ok)

	away := NewRay(mgl64.Vec3{0.2, 0.2, 0}, mgl64.Vec3{0, 0, -1})
	_, ok = away.IntersectTriangle(a, b, c)
	assert.False(t, ok)
}

func TestRayTransformKeepsParameter(t *testing.T) {
	r := NewRay(mgl64.Vec3{0, 0, -10}, mgl64.Vec3{0, 0, 1})
	m := mgl64.Translate3D(3, 0, 0).Mul4(mgl64.Scale3D(2, 2, 2))
	local := r.Transform(m.Inv())
	world := r.At(4)
	back := mgl64.TransformCoordinate(local.At(4), m)
	assert.InDelta(t, 0, world.Sub(back).Len(), 1e-9)
}
