package tessellate_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/mesh"
	"github.com/chazu/platen/pkg/scene"
	"github.com/chazu/platen/pkg/tessellate"
)

// makeBox creates an object node holding an exact box mesh.
func makeBox(name string, x, y, z float64) *scene.Node {
	return scene.New(name, mesh.NewBox(mgl64.Vec3{}, mgl64.Vec3{x, y, z}))
}

// bounds returns the min and max of a flat vertex array.
func bounds(vertices []float32) (min, max [3]float32) {
	for i := 0; i < 3; i++ {
		min[i] = float32(math.Inf(1))
		max[i] = float32(math.Inf(-1))
	}
	for i := 0; i+2 < len(vertices); i += 3 {
		for j := 0; j < 3; j++ {
			v := vertices[i+j]
			if v < min[j] {
				min[j] = v
			}
			if v > max[j] {
				max[j] = v
			}
		}
	}
	return min, max
}

func TestSingleBox(t *testing.T) {
	board := makeBox("shelf", 600, 300, 18)

	meshes := tessellate.Tessellate(board)
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}

	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}
	if m.PartName != "shelf" {
		t.Errorf("expected PartName %q, got %q", "shelf", m.PartName)
	}
	if m.NodeID != board.ID {
		t.Errorf("expected NodeID %q, got %q", board.ID, m.NodeID)
	}
	if m.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", m.TriangleCount())
	}
	if m.VertexCount() != 36 {
		t.Errorf("flat shading needs 3 vertices per triangle, got %d", m.VertexCount())
	}
	if len(m.Vertices) != len(m.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(m.Vertices), len(m.Normals))
	}
	if m.OutputType != "normal" {
		t.Errorf("expected output type normal, got %q", m.OutputType)
	}
}

func TestWorldTransformBaked(t *testing.T) {
	root := scene.NewGroup("root")
	root.SetLocalTransform(mgl64.Translate3D(0, 0, 100))
	part := makeBox("leg", 10, 10, 10)
	part.SetLocalTransform(mgl64.Translate3D(50, 0, 0))
	root.AddChild(part)

	meshes := tessellate.Tessellate(root)
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	min, max := bounds(meshes[0].Vertices)
	wantMin := [3]float32{50, 0, 100}
	wantMax := [3]float32{60, 10, 110}
	if min != wantMin || max != wantMax {
		t.Errorf("bounds = %v..%v, want %v..%v", min, max, wantMin, wantMax)
	}

	// The source mesh stays in local space.
	if b := part.Mesh().Bounds(); b.Max.X() != 10 {
		t.Errorf("tessellation must not mutate the scene, local max X = %f", b.Max.X())
	}
}

func TestHiddenAndEmptySkipped(t *testing.T) {
	root := scene.NewGroup("root")
	visible := makeBox("visible", 1, 1, 1)
	hidden := makeBox("hidden", 1, 1, 1)
	hidden.SetVisible(false)
	empty := scene.New("empty", &mesh.Mesh{})
	hiddenGroup := scene.NewGroup("hidden-group")
	hiddenGroup.SetVisible(false)
	hiddenGroup.AddChild(makeBox("inner", 1, 1, 1))
	for _, n := range []*scene.Node{visible, hidden, empty, hiddenGroup} {
		root.AddChild(n)
	}

	meshes := tessellate.Tessellate(root)
	if len(meshes) != 1 || meshes[0].PartName != "visible" {
		t.Fatalf("expected only the visible box, got %d meshes", len(meshes))
	}
}

func TestPaletteColors(t *testing.T) {
	p := tessellate.DefaultPalette()

	explicit := makeBox("a", 1, 1, 1)
	explicit.Color = "#123456"
	hole := makeBox("b", 1, 1, 1)
	hole.OutputType = scene.OutputHole
	support := makeBox("c", 1, 1, 1)
	support.OutputType = scene.OutputSupport
	second := makeBox("d", 1, 1, 1)
	second.Material = 1
	wrapped := makeBox("e", 1, 1, 1)
	wrapped.Material = len(p.Materials)

	tests := []struct {
		node *scene.Node
		want string
	}{
		{explicit, "#123456"},
		{hole, p.Hole},
		{support, p.Support},
		{second, p.Materials[1]},
		{wrapped, p.Materials[0]},
	}
	for _, tt := range tests {
		if got := p.Color(tt.node); got != tt.want {
			t.Errorf("Color(%s) = %q, want %q", tt.node, got, tt.want)
		}
	}

	meshes := p.Tessellate(hole)
	if meshes[0].Color != p.Hole || meshes[0].OutputType != "hole" {
		t.Errorf("hole mesh color=%q type=%q", meshes[0].Color, meshes[0].OutputType)
	}
}

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      tessellate.Mesh
		vertices  int
		triangles int
		empty     bool
	}{
		{"empty", tessellate.Mesh{}, 0, 0, true},
		{"one vertex", tessellate.Mesh{Vertices: []float32{1, 2, 3}}, 1, 0, false},
		{"two triangles", tessellate.Mesh{
			Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
			Indices:  []uint32{0, 1, 2, 2, 3, 0},
		}, 4, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.VertexCount(); got != tt.vertices {
				t.Errorf("VertexCount() = %d, want %d", got, tt.vertices)
			}
			if got := tt.mesh.TriangleCount(); got != tt.triangles {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.triangles)
			}
			if got := tt.mesh.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}
