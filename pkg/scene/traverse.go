package scene

import (
	"iter"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/mesh"
)

// MeshItem is one renderable entry produced by VisibleMeshes.
type MeshItem struct {
	Node  *Node
	World mgl64.Mat4
	Mesh  *mesh.Mesh
}

// VisibleMeshes yields, in pre-order, every visible node under the roots that
// owns a mesh, together with its world transform. A hidden node hides its
// whole subtree. Each call walks the tree afresh; mutating the tree while the
// sequence is consumed is not supported.
func VisibleMeshes(roots ...*Node) iter.Seq[MeshItem] {
	return func(yield func(MeshItem) bool) {
		var walk func(n *Node, parentWorld mgl64.Mat4) bool
		walk = func(n *Node, parentWorld mgl64.Mat4) bool {
			if !n.Visible() {
				return true
			}
			world := parentWorld.Mul4(n.local)
			if m := n.Mesh(); m != nil {
				if !yield(MeshItem{Node: n, World: world, Mesh: m}) {
					return false
				}
			}
			for _, c := range n.children {
				if !walk(c, world) {
					return false
				}
			}
			return true
		}
		for _, r := range roots {
			if r == nil {
				continue
			}
			if !walk(r, r.ParentWorldTransform()) {
				return
			}
		}
	}
}

// AllNodes yields every node under the roots, including the roots, in
// pre-order regardless of visibility.
func AllNodes(roots ...*Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var walk func(n *Node) bool
		walk = func(n *Node) bool {
			if !yield(n) {
				return false
			}
			for _, c := range n.children {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		for _, r := range roots {
			if r != nil && !walk(r) {
				return
			}
		}
	}
}

// Descendants yields every node strictly below n.
func (n *Node) Descendants() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, c := range n.children {
			for d := range AllNodes(c) {
				if !yield(d) {
					return
				}
			}
		}
	}
}
