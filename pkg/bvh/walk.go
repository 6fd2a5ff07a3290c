package bvh

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/geom"
)

// Walk visits n and its descendants depth first. visit receives the node, its
// depth and the transform from the node's space to the root's. Returning
// false skips the node's children.
func Walk(n *Node, visit func(n *Node, depth int, toRoot mgl64.Mat4) bool) {
	walk(n, 0, mgl64.Ident4(), visit)
}

func walk(n *Node, depth int, toRoot mgl64.Mat4, visit func(*Node, int, mgl64.Mat4) bool) {
	if n == nil || !visit(n, depth, toRoot) {
		return
	}
	switch n.Kind {
	case KindCollection:
		walk(n.Left, depth+1, toRoot, visit)
		walk(n.Right, depth+1, toRoot, visit)
	case KindTransform:
		walk(n.Child, depth+1, toRoot.Mul4(n.Transform), visit)
	case KindLeaf:
	}
}

// DebugBox is one box of a debug overlay, in root space.
type DebugBox struct {
	Box   geom.Box
	Depth int
	Kind  Kind
}

// DebugBoxes lists the boxes of every node down to maxDepth, or all of them
// when maxDepth is negative.
func DebugBoxes(n *Node, maxDepth int) []DebugBox {
	var out []DebugBox
	Walk(n, func(n *Node, depth int, toRoot mgl64.Mat4) bool {
		if maxDepth >= 0 && depth > maxDepth {
			return false
		}
		if !n.box.IsEmpty() {
			out = append(out, DebugBox{Box: n.box.Transform(toRoot), Depth: depth, Kind: n.Kind})
		}
		return true
	})
	return out
}

// Stats summarizes the shape of a hierarchy.
type Stats struct {
	Nodes      int
	Leaves     int
	Transforms int
	MaxDepth   int
}

// Statistics walks the tree and counts its nodes.
func Statistics(n *Node) Stats {
	var s Stats
	Walk(n, func(n *Node, depth int, _ mgl64.Mat4) bool {
		s.Nodes++
		switch n.Kind {
		case KindLeaf:
			s.Leaves++
		case KindTransform:
			s.Transforms++
		}
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		return true
	})
	return s
}
