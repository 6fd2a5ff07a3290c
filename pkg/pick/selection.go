package pick

import (
	"github.com/chazu/platen/pkg/geom"
	"github.com/chazu/platen/pkg/scene"
)

// Selection tracks the selected scene objects. Active is the one shown in the
// property editors.
type Selection struct {
	Objects []*scene.Node
	Active  *scene.Node
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{Objects: make([]*scene.Node, 0)}
}

// Clear removes all selections.
func (s *Selection) Clear() {
	s.Objects = s.Objects[:0]
	s.Active = nil
}

// SelectSingle selects n alone.
func (s *Selection) SelectSingle(n *scene.Node) {
	s.Objects = []*scene.Node{n}
	s.Active = n
}

// Toggle adds or removes n (shift-click).
func (s *Selection) Toggle(n *scene.Node) {
	for i, o := range s.Objects {
		if o == n {
			s.Objects = append(s.Objects[:i], s.Objects[i+1:]...)
			if s.Active == n {
				s.Active = nil
				if len(s.Objects) > 0 {
					s.Active = s.Objects[len(s.Objects)-1]
				}
			}
			return
		}
	}
	s.Objects = append(s.Objects, n)
	s.Active = n
}

// IsSelected checks if n is selected.
func (s *Selection) IsSelected(n *scene.Node) bool {
	for _, o := range s.Objects {
		if o == n {
			return true
		}
	}
	return false
}

// HasSelection returns true if anything is selected.
func (s *Selection) HasSelection() bool { return len(s.Objects) > 0 }

// Bounds returns the world box around every visible mesh of the selection.
func (s *Selection) Bounds() geom.Box {
	b := geom.EmptyBox()
	for item := range scene.VisibleMeshes(s.Objects...) {
		b = b.Union(item.Mesh.Bounds().Transform(item.World))
	}
	return b
}
