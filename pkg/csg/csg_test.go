package csg

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/platen/pkg/mesh"
)

func offsetCube(x, y, z float64) *mesh.Mesh {
	return mesh.NewCube(1).Transformed(mgl64.Translate3D(x, y, z))
}

func TestBooleanVolumes(t *testing.T) {
	tests := []struct {
		name   string
		op     func(a, b *mesh.Mesh) (*mesh.Mesh, error)
		b      *mesh.Mesh
		volume float64
	}{
		{"subtract corner", Subtract, offsetCube(0.5, 0.5, 0.5), 0.875},
		{"subtract disjoint", Subtract, offsetCube(3, 0, 0), 1},
		{"subtract enclosing", Subtract, mesh.NewBox(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{2, 2, 2}), 0},
		{"union corner", Union, offsetCube(0.5, 0.5, 0.5), 1.875},
		{"union disjoint", Union, offsetCube(3, 0, 0), 2},
		{"intersect corner", Intersect, offsetCube(0.5, 0.5, 0.5), 0.125},
		{"intersect disjoint", Intersect, offsetCube(3, 0, 0), 0},
		{"subtract slab", Subtract, mesh.NewBox(mgl64.Vec3{-1, -1, 0.25}, mgl64.Vec3{2, 2, 0.75}), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mesh.NewCube(1)
			got, err := tt.op(a, tt.b)
			require.NoError(t, err)
			require.NoError(t, got.Validate())
			assert.InDelta(t, tt.volume, got.Volume(), 1e-6)
		})
	}
}

func TestSubtractLeavesInputsUntouched(t *testing.T) {
	a := mesh.NewCube(1)
	b := offsetCube(0.5, 0.5, 0.5)
	aBefore, bBefore := a.Copy(), b.Copy()

	_, err := Subtract(a, b)
	require.NoError(t, err)
	assert.Equal(t, aBefore, a)
	assert.Equal(t, bBefore, b)
}

func TestSubtractResultBounds(t *testing.T) {
	got, err := Subtract(mesh.NewCube(1), offsetCube(0.5, 0.5, 0.5))
	require.NoError(t, err)
	b := got.Bounds()
	assert.True(t, b.Min.ApproxEqual(mgl64.Vec3{0, 0, 0}))
	assert.True(t, b.Max.ApproxEqual(mgl64.Vec3{1, 1, 1}))
}

func TestEmptyOperands(t *testing.T) {
	empty := &mesh.Mesh{}
	got, err := Subtract(mesh.NewCube(1), empty)
	require.NoError(t, err)
	assert.InDelta(t, 1, got.Volume(), 1e-12)

	got, err = Subtract(empty, mesh.NewCube(1))
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	_, err = Subtract(nil, mesh.NewCube(1))
	assert.True(t, errors.Is(err, ErrEmptyMesh))
}

func TestMalformedOperand(t *testing.T) {
	bad := mesh.New([]mgl64.Vec3{{0, 0, 0}}, []mesh.Face{{0, 1, 2}})
	_, err := Subtract(mesh.NewCube(1), bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mesh.ErrIndexOutOfRange))
}

func TestSequentialSubtractionMatchesUnionOfHoles(t *testing.T) {
	a := mesh.NewCube(1)
	h1 := offsetCube(0.5, 0.5, 0.5)
	h2 := offsetCube(-0.5, -0.5, -0.5)

	step, err := Subtract(a, h1)
	require.NoError(t, err)
	step, err = Subtract(step, h2)
	require.NoError(t, err)

	holes, err := Union(h1, h2)
	require.NoError(t, err)
	once, err := Subtract(a, holes)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, step.Volume(), 1e-6)
	assert.InDelta(t, once.Volume(), step.Volume(), 1e-6)
}
