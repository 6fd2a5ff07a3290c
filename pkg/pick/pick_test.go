package pick

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/platen/pkg/bvh"
	"github.com/chazu/platen/pkg/geom"
	"github.com/chazu/platen/pkg/mesh"
	"github.com/chazu/platen/pkg/scene"
)

func unitBoxShape() *bvh.BoxShape {
	return &bvh.BoxShape{Box: geom.NewBox(mgl64.Vec3{-0.5, -0.5, -0.5}, mgl64.Vec3{0.5, 0.5, 0.5})}
}

func volumeAt(name string, x float64) *InteractionVolume {
	v := NewInteractionVolume(name, unitBoxShape(), name)
	v.Transform = mgl64.Translate3D(x, 0, 0)
	return v
}

func centeredCube() *mesh.Mesh {
	return mesh.NewBox(mgl64.Vec3{-0.5, -0.5, -0.5}, mgl64.Vec3{0.5, 0.5, 0.5})
}

func down(x float64) geom.Ray {
	return geom.NewRay(mgl64.Vec3{x, 0, 10}, mgl64.Vec3{0, 0, -1})
}

func TestResolveTwoVolumes(t *testing.T) {
	pool := NewPool(volumeAt("a", 0), volumeAt("b", 3))
	r := NewResolver()

	tests := []struct {
		name  string
		ray   geom.Ray
		index int
		ok    bool
	}{
		{"volume 0", down(0), 0, true},
		{"volume 1", down(3), 1, true},
		{"neither", down(1.5), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := r.Resolve(tt.ray, pool)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.index, res.Index)
				assert.Same(t, pool.At(tt.index), res.Candidate)
				assert.InDelta(t, 9.5, res.Hit.T, 1e-9)
			}
		})
	}
	assert.Equal(t, 1, r.Builds(), "unchanged pool must not rebuild")
}

func TestResolveNearestWins(t *testing.T) {
	near := NewInteractionVolume("near", unitBoxShape(), nil)
	near.Transform = mgl64.Translate3D(0, 0, 2)
	far := NewInteractionVolume("far", unitBoxShape(), nil)
	pool := NewPool(far, near)

	res, ok := NewResolver().Resolve(down(0), pool)
	require.True(t, ok)
	assert.Equal(t, 1, res.Index)
	assert.InDelta(t, 7.5, res.Hit.T, 1e-9)
}

func TestResolveEmptyPools(t *testing.T) {
	r := NewResolver()
	_, ok := r.Resolve(down(0), NewPool())
	assert.False(t, ok)
	_, ok = r.Resolve(down(0), nil)
	assert.False(t, ok)

	shapeless := NewPool(NewInteractionVolume("none", nil, nil))
	_, ok = r.Resolve(down(0), shapeless)
	assert.False(t, ok)
}

func TestResolveRebuildsOnVersionChange(t *testing.T) {
	pool := NewPool(volumeAt("a", 0))
	r := NewResolver()
	_, ok := r.Resolve(down(3), pool)
	assert.False(t, ok)

	pool.Add(volumeAt("b", 3))
	res, ok := r.Resolve(down(3), pool)
	require.True(t, ok)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, 2, r.Builds())
}

func TestResolveSharedMesh(t *testing.T) {
	shared := centeredCube()
	root := scene.NewGroup("root")
	a := scene.New("a", shared)
	b := scene.New("b", shared)
	b.SetLocalTransform(mgl64.Translate3D(0, 0, 0.25))
	root.AddChild(a)
	root.AddChild(b)

	pool := NewPool(SceneObjects([]*scene.Node{a, b}, nil)...)
	res, ok := NewResolver().Resolve(down(0.1), pool)
	require.True(t, ok)
	assert.Equal(t, 1, res.Index, "b sits higher and is hit first")
	assert.InDelta(t, 9.25, res.Hit.T, 1e-9)
}

func TestSceneObjectUsesSubtree(t *testing.T) {
	root := scene.NewGroup("root")
	g := scene.NewGroup("g")
	g.SetLocalTransform(mgl64.Translate3D(5, 0, 0))
	root.AddChild(g)
	part := scene.New("part", centeredCube())
	g.AddChild(part)
	hidden := scene.New("hidden", centeredCube())
	hidden.SetLocalTransform(mgl64.Translate3D(-5, 0, 0))
	hidden.SetVisible(false)
	g.AddChild(hidden)

	pool := NewPool(SceneObjects([]*scene.Node{g}, nil)...)
	r := NewResolver()

	res, ok := r.Resolve(down(5), pool)
	require.True(t, ok)
	assert.Same(t, g, res.Candidate.(*SceneObject).Node)

	_, ok = r.Resolve(down(0), pool)
	assert.False(t, ok, "hidden parts are not clickable")

	assert.Nil(t, NewSceneObject(scene.NewGroup("empty"), nil).Traceable())
}

func assertVecNear(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], delta, "got %v, want %v", got, want)
}

func TestCameraRayAt(t *testing.T) {
	cam := NewPerspectiveCamera(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, 45, 200, 100)
	ray, err := cam.RayAt(100, 50)
	require.NoError(t, err)
	assertVecNear(t, mgl64.Vec3{0, 0, -1}, ray.Dir, 1e-6)
	assert.InDelta(t, 0, ray.Origin[0], 1e-6)
	assert.InDelta(t, 0, ray.Origin[1], 1e-6)

	// Upper half of the window points up in the world.
	up, err := cam.RayAt(100, 10)
	require.NoError(t, err)
	assert.Greater(t, up.Dir[1], 0.0)

	x, y := cam.Project(mgl64.Vec3{})
	assert.InDelta(t, 100, x, 1e-6)
	assert.InDelta(t, 50, y, 1e-6)

	_, err = Camera{}.RayAt(0, 0)
	assert.True(t, errors.Is(err, ErrNoViewport))
}

func TestViewportMouseDown(t *testing.T) {
	root := scene.NewGroup("root")
	left := scene.New("left", centeredCube())
	left.SetLocalTransform(mgl64.Translate3D(-2, 0, 0))
	right := scene.New("right", centeredCube())
	right.SetLocalTransform(mgl64.Translate3D(2, 0, 0))
	root.AddChild(left)
	root.AddChild(right)

	cam := NewPerspectiveCamera(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, 45, 400, 400)
	vp := NewViewport(cam)
	vp.SetSceneObjects(root.Children())

	lx, ly := cam.Project(mgl64.Vec3{-2, 0, 0})
	rx, ry := cam.Project(mgl64.Vec3{2, 0, 0})

	res, ok, err := vp.MouseDown(lx, ly, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, left, res.Node)
	assert.Equal(t, []*scene.Node{left}, vp.Selection.Objects)

	_, _, err = vp.MouseDown(rx, ry, true)
	require.NoError(t, err)
	assert.True(t, vp.Selection.IsSelected(left))
	assert.True(t, vp.Selection.IsSelected(right))
	assert.Same(t, right, vp.Selection.Active)

	b := vp.Selection.Bounds()
	assert.InDelta(t, -2.5, b.Min[0], 1e-9)
	assert.InDelta(t, 2.5, b.Max[0], 1e-9)

	// A gizmo in front of the left cube takes the click and keeps the selection.
	gizmo := NewInteractionVolume("move-x", &bvh.SphereShape{Radius: 0.3}, "translate")
	gizmo.Transform = mgl64.Translate3D(-1.6, 0, 2)
	vp.AddGizmo(gizmo)
	res, ok, err = vp.MouseDown(lx, ly, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, gizmo, res.Volume)
	assert.Len(t, vp.Selection.Objects, 2)

	// Empty space clears.
	_, ok, err = vp.MouseDown(200, 5, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, vp.Selection.HasSelection())
}

func TestSelectionToggle(t *testing.T) {
	s := NewSelection()
	a, b := scene.New("a", nil), scene.New("b", nil)
	s.Toggle(a)
	s.Toggle(b)
	s.Toggle(b)
	assert.Equal(t, []*scene.Node{a}, s.Objects)
	assert.Same(t, a, s.Active)
	s.Toggle(a)
	assert.Nil(t, s.Active)
	assert.False(t, s.HasSelection())
}
