// Package scene is the in-memory scene graph: a tree of transformable nodes
// that may own a mesh. Structure and transforms are edited from one goroutine
// (the UI). A node's mesh and visibility are published atomically so a
// background boolean task can swap them while the renderer reads.
package scene

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/chazu/platen/pkg/mesh"
)

// OutputType classifies a node for rendering and boolean participation.
type OutputType int

const (
	OutputNormal OutputType = iota
	OutputHole
	OutputSupport
	OutputSolid
)

func (o OutputType) String() string {
	switch o {
	case OutputNormal:
		return "normal"
	case OutputHole:
		return "hole"
	case OutputSupport:
		return "support"
	case OutputSolid:
		return "solid"
	default:
		return fmt.Sprintf("OutputType(%d)", int(o))
	}
}

// ParseOutputType is the inverse of OutputType.String.
func ParseOutputType(s string) (OutputType, error) {
	switch s {
	case "normal", "":
		return OutputNormal, nil
	case "hole":
		return OutputHole, nil
	case "support":
		return OutputSupport, nil
	case "solid":
		return OutputSolid, nil
	default:
		return OutputNormal, fmt.Errorf("scene: unknown output type %q", s)
	}
}

// NodeKind says what role a node plays in the tree.
type NodeKind int

const (
	KindObject         NodeKind = iota // plain object, usually owning a mesh
	KindGroup                          // pure container
	KindDifference                     // boolean difference container
	KindDifferenceItem                 // wrapper around one difference participant
)

func (k NodeKind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindGroup:
		return "group"
	case KindDifference:
		return "difference"
	case KindDifferenceItem:
		return "difference-item"
	default:
		return "unknown"
	}
}

// Node is one entity in the scene graph. A parent exclusively owns its
// children; removing a child from its parent destroys it from the scene's
// point of view.
type Node struct {
	ID         string
	Name       string
	Kind       NodeKind
	Color      string // "#rrggbb", empty for the palette default
	Material   int
	OutputType OutputType
	OwnerID    string // set while the node takes part in a difference group

	local    mgl64.Mat4
	mesh     atomic.Pointer[mesh.Mesh]
	visible  atomic.Bool
	parent   *Node
	children []*Node
}

// New returns a visible object node with an identity transform. m may be nil.
func New(name string, m *mesh.Mesh) *Node {
	n := &Node{
		ID:    uuid.NewString(),
		Name:  name,
		Kind:  KindObject,
		local: mgl64.Ident4(),
	}
	n.visible.Store(true)
	if m != nil {
		n.mesh.Store(m)
	}
	return n
}

// NewGroup returns an empty container node.
func NewGroup(name string) *Node {
	n := New(name, nil)
	n.Kind = KindGroup
	return n
}

// Mesh returns the node's current mesh, or nil for containers.
func (n *Node) Mesh() *mesh.Mesh { return n.mesh.Load() }

// SetMesh publishes a new mesh. The mesh must not be mutated afterwards.
func (n *Node) SetMesh(m *mesh.Mesh) { n.mesh.Store(m) }

// Visible reports the node's own visibility flag.
func (n *Node) Visible() bool { return n.visible.Load() }

// SetVisible sets the node's visibility flag.
func (n *Node) SetVisible(v bool) { n.visible.Store(v) }

// LocalTransform returns the transform from this node's space to its parent's.
func (n *Node) LocalTransform() mgl64.Mat4 { return n.local }

// SetLocalTransform replaces the local transform.
func (n *Node) SetLocalTransform(m mgl64.Mat4) { n.local = m }

// WorldTransform returns the product of every ancestor's local transform and
// this node's, root first.
func (n *Node) WorldTransform() mgl64.Mat4 {
	m := n.local
	for p := n.parent; p != nil; p = p.parent {
		m = p.local.Mul4(m)
	}
	return m
}

// ParentWorldTransform is the world transform of the parent, or identity for
// a root.
func (n *Node) ParentWorldTransform() mgl64.Mat4 {
	if n.parent == nil {
		return mgl64.Ident4()
	}
	return n.parent.WorldTransform()
}

// Parent returns the owning node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Root walks up to the top of the tree.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Children returns the child list. Callers must not modify it.
func (n *Node) Children() []*Node { return n.children }

// AddChild appends c, detaching it from any previous parent first.
func (n *Node) AddChild(c *Node) {
	n.InsertChild(len(n.children), c)
}

// InsertChild inserts c at index i, detaching it from any previous parent.
// i is clamped to the valid range.
func (n *Node) InsertChild(i int, c *Node) {
	c.Detach()
	if i < 0 {
		i = 0
	}
	if i > len(n.children) {
		i = len(n.children)
	}
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
	c.parent = n
}

// RemoveChild removes c and reports whether it was a child of n.
func (n *Node) RemoveChild(c *Node) bool {
	i := n.IndexOf(c)
	if i < 0 {
		return false
	}
	n.children = append(n.children[:i], n.children[i+1:]...)
	c.parent = nil
	return true
}

// IndexOf returns the position of c among n's children, or -1.
func (n *Node) IndexOf(c *Node) int {
	for i, ch := range n.children {
		if ch == c {
			return i
		}
	}
	return -1
}

// Detach removes n from its parent, if any.
func (n *Node) Detach() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

// Find returns the node in n's subtree (including n) with the given ID.
func (n *Node) Find(id string) *Node {
	for d := range AllNodes(n) {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// FindByName returns the first node in pre-order with the given name.
func (n *Node) FindByName(name string) *Node {
	for d := range AllNodes(n) {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// HasAncestor reports whether a is a strict ancestor of n.
func (n *Node) HasAncestor(a *Node) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p == a {
			return true
		}
	}
	return false
}

func (n *Node) String() string {
	name := n.Name
	if name == "" {
		name = n.ID
	}
	return fmt.Sprintf("%s %q", n.Kind, name)
}
