package kernel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/geom"
	"github.com/chazu/platen/pkg/mesh"
)

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	box geom.Box
}

func (s *stubSolid) Bounds() geom.Box { return s.box }

// stubKernel proves the interface is satisfiable with exact box meshes.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) (Solid, error) {
	return &stubSolid{box: geom.NewBox(mgl64.Vec3{}, mgl64.Vec3{x, y, z})}, nil
}

func (k *stubKernel) Cylinder(height, radius float64) (Solid, error) {
	return &stubSolid{box: geom.NewBox(
		mgl64.Vec3{-radius, -radius, -height / 2},
		mgl64.Vec3{radius, radius, height / 2},
	)}, nil
}

func (k *stubKernel) Sphere(radius float64) (Solid, error) {
	r := mgl64.Vec3{radius, radius, radius}
	return &stubSolid{box: geom.NewBox(r.Mul(-1), r)}, nil
}

func (k *stubKernel) Union(a, b Solid) Solid {
	return &stubSolid{box: a.Bounds().Union(b.Bounds())}
}
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, x, y, z float64) Solid {
	return &stubSolid{box: s.Bounds().Transform(mgl64.Translate3D(x, y, z))}
}
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Scale(s Solid, x, y, z float64) Solid {
	return &stubSolid{box: s.Bounds().Transform(mgl64.Scale3D(x, y, z))}
}

func (k *stubKernel) ToMesh(s Solid) (*mesh.Mesh, error) {
	b := s.Bounds()
	return mesh.NewBox(b.Min, b.Max), nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBounds(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Box(10, 20, 30)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	b := s.Bounds()
	if b.Min != (mgl64.Vec3{0, 0, 0}) {
		t.Errorf("Box min = %v, want [0 0 0]", b.Min)
	}
	if b.Max != (mgl64.Vec3{10, 20, 30}) {
		t.Errorf("Box max = %v, want [10 20 30]", b.Max)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, _ := k.Box(1, 2, 3)
	moved := k.Translate(s, 5, 0, 0)
	m, err := k.ToMesh(moved)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m.TriangleCount() != 12 {
		t.Errorf("TriangleCount() = %d, want 12", m.TriangleCount())
	}
	if got := m.Volume(); got < 5.999 || got > 6.001 {
		t.Errorf("Volume() = %f, want 6", got)
	}
	if got := m.Bounds().Min.X(); got != 5 {
		t.Errorf("translated min X = %f, want 5", got)
	}
}
