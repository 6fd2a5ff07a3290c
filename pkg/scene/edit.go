package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrNoParent is returned for edits that need the node to sit in a tree.
	ErrNoParent = errors.New("scene: node has no parent")
	// ErrNotSiblings is returned when grouped nodes do not share a parent.
	ErrNotSiblings = errors.New("scene: nodes are not siblings")
)

// Group moves the sibling nodes under a new group node that takes the place
// of the first of them. World transforms are unchanged.
func Group(name string, nodes ...*Node) (*Node, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("scene: group %q: no nodes", name)
	}
	parent := nodes[0].parent
	if parent == nil {
		return nil, fmt.Errorf("scene: group %q: %w", name, ErrNoParent)
	}
	for _, n := range nodes[1:] {
		if n.parent != parent {
			return nil, fmt.Errorf("scene: group %q: %s: %w", name, n, ErrNotSiblings)
		}
	}

	g := NewGroup(name)
	parent.InsertChild(parent.IndexOf(nodes[0]), g)
	for _, n := range nodes {
		g.AddChild(n)
	}
	return g, nil
}

// Ungroup replaces g with its children in g's parent, folding g's local
// transform into each child so world transforms are unchanged.
func Ungroup(g *Node) ([]*Node, error) {
	parent := g.parent
	if parent == nil {
		return nil, fmt.Errorf("scene: ungroup %s: %w", g, ErrNoParent)
	}
	at := parent.IndexOf(g)
	children := append([]*Node(nil), g.children...)
	g.Detach()
	for i, c := range children {
		c.local = g.local.Mul4(c.local)
		parent.InsertChild(at+i, c)
	}
	return children, nil
}

// TransformChange is a recorded transform edit that an undo stack can replay.
type TransformChange struct {
	Node   *Node
	Before mgl64.Mat4
	After  mgl64.Mat4
}

// SetTransform replaces n's local transform and returns the change.
func SetTransform(n *Node, m mgl64.Mat4) TransformChange {
	c := TransformChange{Node: n, Before: n.local, After: m}
	n.local = m
	return c
}

// Translate moves n by v in its parent's space.
func Translate(n *Node, v mgl64.Vec3) TransformChange {
	return SetTransform(n, mgl64.Translate3D(v[0], v[1], v[2]).Mul4(n.local))
}

// Undo restores the transform from before the change.
func (c TransformChange) Undo() { c.Node.local = c.Before }

// Redo reapplies the change.
func (c TransformChange) Redo() { c.Node.local = c.After }
