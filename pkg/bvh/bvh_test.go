package bvh

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/platen/pkg/geom"
	"github.com/chazu/platen/pkg/mesh"
)

func cubeAt(x, y, z float64) *BoxShape {
	return &BoxShape{Box: geom.NewBox(mgl64.Vec3{x, y, z}, mgl64.Vec3{x + 1, y + 1, z + 1})}
}

func assertContainment(t *testing.T, n *Node) {
	t.Helper()
	switch n.Kind {
	case KindCollection:
		if n.Left == nil {
			return
		}
		union := n.Left.Bounds().Union(n.Right.Bounds())
		assert.True(t, n.Bounds().Contains(union), "parent %v does not contain children %v", n.Bounds(), union)
		assertContainment(t, n.Left)
		assertContainment(t, n.Right)
	case KindTransform:
		assert.True(t, n.Bounds().Contains(n.Child.Bounds().Transform(n.Transform)))
		assertContainment(t, n.Child)
	case KindLeaf:
		assert.True(t, n.Bounds().Contains(n.Leaf.Bounds()))
	}
}

func TestBuildContainment(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	items := make([]Traceable, 10)
	want := geom.EmptyBox()
	for i := range items {
		min := mgl64.Vec3{rng.Float64() * 20, rng.Float64() * 20, rng.Float64() * 20}
		size := mgl64.Vec3{rng.Float64() + 0.1, rng.Float64() + 0.1, rng.Float64() + 0.1}
		b := &BoxShape{Box: geom.NewBox(min, min.Add(size))}
		items[i] = b
		want = want.Union(b.Box)
	}

	root := Build(items)
	assert.Equal(t, want, root.Bounds())
	assertContainment(t, root)

	s := Statistics(root)
	assert.Equal(t, 10, s.Leaves)
	assert.Equal(t, 19, s.Nodes)
	assert.LessOrEqual(t, s.MaxDepth, 4)
}

func TestBuildDegenerate(t *testing.T) {
	empty := Build(nil)
	assert.True(t, empty.Bounds().IsEmpty())
	_, ok := empty.ClosestIntersection(geom.NewRay(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}))
	assert.False(t, ok)
	assert.Empty(t, empty.ContainedBy(geom.NewBox(mgl64.Vec3{-100, -100, -100}, mgl64.Vec3{100, 100, 100})))

	c := cubeAt(0, 0, 0)
	single := Build([]Traceable{c})
	assert.Equal(t, KindLeaf, single.Kind)
	assert.Equal(t, c.Box, single.Bounds())

	tree := FromMesh(mesh.NewCube(1))
	assert.Same(t, tree, Build([]Traceable{tree}))
}

func TestClosestIntersectionPicksNearest(t *testing.T) {
	near, mid, far := cubeAt(2, 0, 0), cubeAt(5, 0, 0), cubeAt(8, 0, 0)
	// Shuffle the input so the nearest box is not first.
	root := Build([]Traceable{far, near, mid})

	r := geom.NewRay(mgl64.Vec3{0, 0.5, 0.5}, mgl64.Vec3{1, 0, 0})
	h, ok := root.ClosestIntersection(r)
	require.True(t, ok)
	assert.Same(t, near, h.Leaf.(*BoxShape))
	assert.InDelta(t, 2, h.T, 1e-9)
	assert.True(t, h.Point.ApproxEqual(mgl64.Vec3{2, 0.5, 0.5}))
	assert.True(t, h.Normal.ApproxEqual(mgl64.Vec3{-1, 0, 0}))

	back := geom.NewRay(mgl64.Vec3{20, 0.5, 0.5}, mgl64.Vec3{-1, 0, 0})
	h, ok = root.ClosestIntersection(back)
	require.True(t, ok)
	assert.Same(t, far, h.Leaf.(*BoxShape))
	assert.InDelta(t, 11, h.T, 1e-9)

	miss := geom.NewRay(mgl64.Vec3{0, 5, 0.5}, mgl64.Vec3{1, 0, 0})
	_, ok = root.ClosestIntersection(miss)
	assert.False(t, ok)
}

func assertVecNear(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], delta, "got %v, want %v", got, want)
}

func TestTransformNode(t *testing.T) {
	cube := FromMesh(mesh.NewCube(1))
	m := mgl64.Translate3D(10, 0, 0).Mul4(mgl64.Scale3D(2, 2, 2))
	placed := NewTransform(cube, m)

	assertVecNear(t, mgl64.Vec3{10, 0, 0}, placed.Bounds().Min, 1e-9)
	assertVecNear(t, mgl64.Vec3{12, 2, 2}, placed.Bounds().Max, 1e-9)

	r := geom.NewRay(mgl64.Vec3{0, 0.6, 1.4}, mgl64.Vec3{1, 0, 0})
	h, ok := placed.ClosestIntersection(r)
	require.True(t, ok)
	assert.InDelta(t, 10, h.T, 1e-9)
	assertVecNear(t, mgl64.Vec3{10, 0.6, 1.4}, h.Point, 1e-9)
	assertVecNear(t, mgl64.Vec3{-1, 0, 0}, h.Normal, 1e-9)
	assert.True(t, placed.Bounds().Contains(h.LeafBounds))

	_, isTriangle := h.Leaf.(*Triangle)
	assert.True(t, isTriangle)

	leaves := placed.ContainedBy(h.LeafBounds)
	assert.Contains(t, leaves, h.Leaf)
}

func TestContainedBy(t *testing.T) {
	a, b, c := cubeAt(0, 0, 0), cubeAt(5, 0, 0), cubeAt(10, 0, 0)
	root := Build([]Traceable{a, b, c})

	got := root.ContainedBy(geom.NewBox(mgl64.Vec3{4, 0, 0}, mgl64.Vec3{11, 1, 1}))
	assert.ElementsMatch(t, []Traceable{b, c}, got)

	assert.Equal(t, []Traceable{a}, ContainedBy(a, a.Box))
	assert.Nil(t, ContainedBy(a, c.Box))
}

func TestSphereShape(t *testing.T) {
	s := &SphereShape{Center: mgl64.Vec3{0, 0, 5}, Radius: 1}
	h, ok := s.Intersect(geom.NewRay(mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}))
	require.True(t, ok)
	assert.InDelta(t, 4, h.T, 1e-9)
	assert.True(t, h.Normal.ApproxEqual(mgl64.Vec3{0, 0, -1}))

	inside, ok := s.Intersect(geom.NewRay(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, 1}))
	require.True(t, ok)
	assert.InDelta(t, 1, inside.T, 1e-9)

	_, ok = s.Intersect(geom.NewRay(mgl64.Vec3{3, 0, 0}, mgl64.Vec3{0, 0, 1}))
	assert.False(t, ok)
}

func TestDebugBoxes(t *testing.T) {
	root := Build([]Traceable{
		NewTransform(cubeAt(0, 0, 0), mgl64.Translate3D(0, 5, 0)),
		cubeAt(3, 0, 0),
	})
	boxes := DebugBoxes(root, -1)
	require.Len(t, boxes, 4)
	assert.Equal(t, KindCollection, boxes[0].Kind)
	assert.Equal(t, 0, boxes[0].Depth)

	for _, b := range boxes {
		assert.True(t, root.Bounds().Contains(b.Box), "debug box %v outside root", b.Box)
	}
	assert.Len(t, DebugBoxes(root, 0), 1)
}

func TestMeshCache(t *testing.T) {
	c := NewMeshCache()
	m1, m2 := mesh.NewCube(1), mesh.NewCube(2)
	t1 := c.Get(m1)
	assert.Same(t, t1, c.Get(m1))
	c.Get(m2)
	assert.Equal(t, 2, c.Len())
	c.Retain(map[*mesh.Mesh]bool{m2: true})
	assert.Equal(t, 1, c.Len())
}
