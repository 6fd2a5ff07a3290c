package engine

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/boolean"
	"github.com/chazu/platen/pkg/kernel/sdfx"
	"github.com/chazu/platen/pkg/scene"
)

func newTestEngine() *Engine {
	return NewEngine(sdfx.New(16))
}

// mustEval evaluates source and fails on any error.
func mustEval(t *testing.T, source string) *Result {
	t.Helper()
	res, evalErrs, err := newTestEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return res
}

// evalErrors evaluates source that must fail with script errors.
func evalErrors(t *testing.T, source string) []EvalError {
	t.Helper()
	res, evalErrs, err := newTestEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected script error, got fatal: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result on script error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval errors")
	}
	return evalErrs
}

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(sphere :radius 3)`,
			expect: `(sphere "__kw_radius" 3)`,
		},
		{
			name:   "multiple keywords",
			input:  `(box :x 400 :y 200)`,
			expect: `(box "__kw_x" 400 "__kw_y" 200)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :kw a-b`",
			expect: "`raw :kw a-b`",
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def wall-thickness 2)`,
			expect: `(def wall_thickness 2)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphen in keyword converted",
			input:  `:support-material`,
			expect: `"__kw_support_material"`,
		},
		{
			name:   "keyword and identifier spelled alike",
			input:  `(def part-depth 3) (box :part-depth part-depth)`,
			expect: `(def part_depth 3) (box "__kw_part_depth" part_depth)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

func TestBoxObject(t *testing.T) {
	res := mustEval(t, `
(def side 2)
(object "block" (box :x side :y 3 :z 4)
        :at (vec3 10 0 0) :color "#FF8800" :material 1)
`)
	objs := res.Objects()
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
	n := objs[0]
	if n.Name != "block" || n.Kind != scene.KindObject {
		t.Errorf("unexpected node %s", n)
	}
	m := n.Mesh()
	if m.TriangleCount() != 12 {
		t.Errorf("box should stay an exact 12-triangle mesh, got %d", m.TriangleCount())
	}
	if v := m.Volume(); math.Abs(v-24) > 1e-9 {
		t.Errorf("volume = %f, want 24", v)
	}
	if !n.WorldTransform().ApproxEqual(mgl64.Translate3D(10, 0, 0)) {
		t.Errorf("world transform = %v", n.WorldTransform())
	}
	if n.Color != "#ff8800" {
		t.Errorf("color = %q, want lower-cased #ff8800", n.Color)
	}
	if n.Material != 1 {
		t.Errorf("material = %d, want 1", n.Material)
	}
	if n.OutputType != scene.OutputNormal {
		t.Errorf("output = %s, want normal", n.OutputType)
	}
}

func TestPlacementOrder(t *testing.T) {
	res := mustEval(t, `(object "a" (box) :at (vec3 5 0 0) :rotate (vec3 0 0 90) :scale (vec3 2 1 1))`)
	n := res.Objects()[0]

	// Scale, then rotate, then translate: local +X becomes world +Y, doubled.
	p := mgl64.TransformCoordinate(mgl64.Vec3{1, 0, 0}, n.WorldTransform())
	if p.Sub(mgl64.Vec3{5, 2, 0}).Len() > 1e-9 {
		t.Errorf("transformed point = %v, want (5, 2, 0)", p)
	}
}

func TestSolidTransformsStayExact(t *testing.T) {
	res := mustEval(t, `(object "a" (translate (scale (box) (vec3 2 2 2)) (vec3 0 0 -1)))`)
	m := res.Objects()[0].Mesh()
	if m.TriangleCount() != 12 {
		t.Fatalf("expected 12 triangles, got %d", m.TriangleCount())
	}
	b := m.Bounds()
	if !b.Min.ApproxEqual(mgl64.Vec3{0, 0, -1}) || !b.Max.ApproxEqual(mgl64.Vec3{2, 2, 1}) {
		t.Errorf("bounds = %v..%v", b.Min, b.Max)
	}
}

func TestKernelSolids(t *testing.T) {
	res := mustEval(t, `
(object "ball" (sphere :radius 5))
(object "drilled" (carve (box :x 10 :y 10 :z 10) (translate (cylinder :height 12 :radius 2) (vec3 5 5 5))))
`)
	objs := res.Objects()
	if len(objs) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objs))
	}
	for _, n := range objs {
		m := n.Mesh()
		if m.IsEmpty() {
			t.Errorf("%s has an empty mesh", n)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("%s: %v", n, err)
		}
	}
	size := objs[0].Mesh().Bounds().Size()
	if math.Abs(size.X()-10) > 1.5 {
		t.Errorf("sphere extent = %f, expected ~10", size.X())
	}
}

func TestOutputTypes(t *testing.T) {
	res := mustEval(t, `
(object "h" (box) :output :hole)
(object "s" (box) :output "support")
(object "x" (box) :output :solid :hidden true)
`)
	objs := res.Objects()
	want := []scene.OutputType{scene.OutputHole, scene.OutputSupport, scene.OutputSolid}
	for i, n := range objs {
		if n.OutputType != want[i] {
			t.Errorf("%s output = %s, want %s", n, n.OutputType, want[i])
		}
	}
	if objs[2].Visible() {
		t.Error(":hidden true should hide the object")
	}
	if !objs[0].Visible() {
		t.Error("objects are visible by default")
	}
}

func TestRefSharesMesh(t *testing.T) {
	res := mustEval(t, `
(object "bolt" (box :x 1 :y 1 :z 5))
(object "bolt-2" (ref "bolt") :at (vec3 4 0 0))
`)
	objs := res.Objects()
	if objs[0].Mesh() != objs[1].Mesh() {
		t.Error("ref should reuse the same mesh")
	}
	if objs[1].Name != "bolt-2" {
		t.Errorf("strings are not rewritten, got %q", objs[1].Name)
	}
}

func TestDuplicateNameWarns(t *testing.T) {
	res := mustEval(t, `
(object "a" (box))
(object "a" (box :x 2))
(object "b" (ref "a"))
`)
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", res.Warnings)
	}
	if got := res.Objects()[2].Mesh().Volume(); math.Abs(got-2) > 1e-9 {
		t.Errorf("ref should resolve to the latest object, volume = %f", got)
	}
}

// ---------------------------------------------------------------------------
// Groups and differences
// ---------------------------------------------------------------------------

func TestGroupAdoptsMembers(t *testing.T) {
	res := mustEval(t, `
(def a (object "a" (box)))
(object "loose" (box))
(group "pair" a (object "b" (box) :at (vec3 2 0 0)) :at (vec3 0 0 10))
`)
	objs := res.Objects()
	if len(objs) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(objs))
	}
	if objs[0].Name != "loose" || objs[1].Name != "pair" {
		t.Errorf("top-level order = %s, %s", objs[0], objs[1])
	}
	g := objs[1]
	if g.Kind != scene.KindGroup || len(g.Children()) != 2 {
		t.Fatalf("unexpected group %s with %d children", g, len(g.Children()))
	}
	b := g.Children()[1]
	if !b.WorldTransform().ApproxEqual(mgl64.Translate3D(2, 0, 10)) {
		t.Errorf("member world transform = %v", b.WorldTransform())
	}
	if errs := scene.Validate(res.Root); len(errs) != 0 {
		t.Errorf("validation: %v", errs)
	}
}

func TestDifferenceDeclared(t *testing.T) {
	res := mustEval(t, `
(difference "notched"
  (object "body" (box))
  (object "cutter" (box) :at (vec3 0.5 0.5 0.5)))
`)
	if len(res.Differences) != 1 {
		t.Fatalf("expected 1 difference, got %d", len(res.Differences))
	}
	dg := res.Differences[0]
	if dg.Task() != nil {
		t.Fatal("declared differences must not start during evaluation")
	}
	objs := res.Objects()
	if len(objs) != 1 || objs[0] != dg.Node {
		t.Fatalf("the container should be the only top-level node, got %v", objs)
	}
	if dg.Node.Kind != scene.KindDifference || dg.Node.Name != "notched" {
		t.Errorf("unexpected container %s", dg.Node)
	}
	if len(dg.Keeps()) != 1 || len(dg.Holes()) != 1 {
		t.Fatalf("keeps=%d holes=%d", len(dg.Keeps()), len(dg.Holes()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dg.Start(ctx).Wait(ctx); err != nil {
		t.Fatalf("difference failed: %v", err)
	}
	if got := dg.Keeps()[0].Mesh().Volume(); math.Abs(got-0.875) > 1e-6 {
		t.Errorf("keep volume = %f, want 0.875", got)
	}
	if dg.Task().State() != boolean.StateDone {
		t.Errorf("state = %s", dg.Task().State())
	}
}

func TestScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"bad color", `(object "a" (box) :color "red")`, "#rrggbb"},
		{"unknown ref", `(object "a" (ref "nope"))`, "no object named"},
		{"member reused", `(def a (object "a" (box))) (group "g1" a) (group "g2" a)`, "already belongs"},
		{"bad output", `(object "a" (box) :output :mystery)`, "mystery"},
		{"not a solid", `(object "a" 42)`, "expected solid"},
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"zero scale", `(object "a" (box) :scale (vec3 0 1 1))`, "zero factor"},
		{"difference without meshes", `(difference "d" (group "empty"))`, "no meshes"},
		{"negative size", `(object "a" (box :x -1))`, "box"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := evalErrors(t, tt.source)
			if !strings.Contains(errs[0].Message, tt.want) {
				t.Errorf("error %q should mention %q", errs[0].Message, tt.want)
			}
		})
	}
}
