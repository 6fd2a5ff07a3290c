package scene

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/mesh"
)

func TestValidateCleanScene(t *testing.T) {
	root := NewGroup("root")
	root.AddChild(New("a", mesh.NewCube(1)))
	if errs := Validate(root); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want none", errs)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *Node
		contains string
		severity ValidationSeverity
	}{
		{
			name: "cycle",
			build: func() *Node {
				a := NewGroup("a")
				b := NewGroup("b")
				a.children = append(a.children, b)
				b.children = append(b.children, a)
				return a
			},
			contains: "cycle",
			severity: SeverityError,
		},
		{
			name: "duplicate id",
			build: func() *Node {
				root := NewGroup("root")
				a := New("a", nil)
				b := New("b", nil)
				b.ID = a.ID
				root.AddChild(a)
				root.AddChild(b)
				return root
			},
			contains: "duplicate",
			severity: SeverityError,
		},
		{
			name: "bad mesh index",
			build: func() *Node {
				root := NewGroup("root")
				root.AddChild(New("bad", mesh.New([]mgl64.Vec3{{0, 0, 0}}, []mesh.Face{{0, 1, 2}})))
				return root
			},
			contains: "out of range",
			severity: SeverityError,
		},
		{
			name: "mesh with children",
			build: func() *Node {
				root := NewGroup("root")
				p := New("p", mesh.NewCube(1))
				p.AddChild(New("c", nil))
				root.AddChild(p)
				return root
			},
			contains: "both a mesh",
			severity: SeverityWarning,
		},
		{
			name: "stray owner",
			build: func() *Node {
				root := NewGroup("root")
				n := New("n", nil)
				n.OwnerID = "abc"
				root.AddChild(n)
				return root
			},
			contains: "outside its difference group",
			severity: SeverityWarning,
		},
		{
			name: "broken parent link",
			build: func() *Node {
				root := NewGroup("root")
				root.children = append(root.children, New("x", nil))
				return root
			},
			contains: "parent link",
			severity: SeverityError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.build())
			for _, e := range errs {
				if strings.Contains(e.Message, tt.contains) {
					if e.Severity != tt.severity {
						t.Errorf("severity = %s, want %s", e.Severity, tt.severity)
					}
					return
				}
			}
			t.Fatalf("Validate() = %v, want a finding containing %q", errs, tt.contains)
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{NodeID: "0123456789abcdef", Message: "boom", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] node 01234567: boom" {
		t.Errorf("Error() = %q", got)
	}
}
