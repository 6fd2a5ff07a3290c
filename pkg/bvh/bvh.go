// Package bvh is a bounding volume hierarchy over traceable proxies. The
// tree is rebuilt from scratch whenever the proxy set changes; there is no
// incremental insert or remove.
//
// Nodes form a closed variant: a Collection splits its proxies between two
// children, a Leaf holds one primitive, and a Transform places a subtree in
// its parent's space.
package bvh

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/geom"
)

// Hit describes the nearest intersection of a ray with a traceable.
type Hit struct {
	T      float64    // ray parameter, >= 0
	Point  mgl64.Vec3 // in the space of the queried ray
	Normal mgl64.Vec3 // unit length, facing the ray origin
	// Leaf is the primitive that was hit.
	Leaf Traceable
	// LeafBounds is the box of Leaf in the space of the queried ray.
	LeafBounds geom.Box
}

// Traceable is anything that can be indexed and ray tested.
type Traceable interface {
	Bounds() geom.Box
	Intersect(r geom.Ray) (Hit, bool)
}

// Kind enumerates the node variants.
type Kind int

const (
	KindCollection Kind = iota
	KindLeaf
	KindTransform
)

func (k Kind) String() string {
	switch k {
	case KindCollection:
		return "collection"
	case KindLeaf:
		return "leaf"
	case KindTransform:
		return "transform"
	default:
		return "unknown"
	}
}

// Node is one node of the hierarchy. Which fields are set depends on Kind.
type Node struct {
	Kind Kind
	box  geom.Box

	// KindCollection
	Left, Right *Node

	// KindLeaf
	Leaf Traceable

	// KindTransform
	Child     *Node
	Transform mgl64.Mat4
	inverse   mgl64.Mat4
}

var _ Traceable = (*Node)(nil)

// Empty returns a node that contains nothing and is never hit.
func Empty() *Node {
	return &Node{Kind: KindCollection, box: geom.EmptyBox()}
}

// NewLeaf wraps one primitive.
func NewLeaf(t Traceable) *Node {
	return &Node{Kind: KindLeaf, box: t.Bounds(), Leaf: t}
}

// NewTransform places child in the parent space through m.
func NewTransform(child Traceable, m mgl64.Mat4) *Node {
	c := asNode(child)
	return &Node{
		Kind:      KindTransform,
		box:       c.box.Transform(m),
		Child:     c,
		Transform: m,
		inverse:   m.Inv(),
	}
}

func asNode(t Traceable) *Node {
	if n, ok := t.(*Node); ok {
		return n
	}
	return NewLeaf(t)
}

// Build returns a hierarchy over items, splitting at the centroid median of
// the longest axis. Zero items give an empty node and one item gives that
// item itself. The input slice is not modified.
func Build(items []Traceable) *Node {
	switch len(items) {
	case 0:
		return Empty()
	case 1:
		return asNode(items[0])
	}

	type entry struct {
		t      Traceable
		center mgl64.Vec3
	}
	entries := make([]entry, len(items))
	centers := geom.EmptyBox()
	for i, it := range items {
		c := it.Bounds().Center()
		entries[i] = entry{t: it, center: c}
		centers = centers.ExpandPoint(c)
	}
	axis := centers.LongestAxis()
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.center[axis] < b.center[axis]:
			return -1
		case a.center[axis] > b.center[axis]:
			return 1
		default:
			return 0
		}
	})

	sorted := make([]Traceable, len(entries))
	for i, e := range entries {
		sorted[i] = e.t
	}
	mid := len(sorted) / 2
	left := Build(sorted[:mid])
	right := Build(sorted[mid:])
	return &Node{
		Kind:  KindCollection,
		box:   left.box.Union(right.box),
		Left:  left,
		Right: right,
	}
}

// Bounds returns the node's box. A parent's box contains its children's.
func (n *Node) Bounds() geom.Box { return n.box }

// Intersect is ClosestIntersection, so a tree can be nested as a proxy in a
// larger tree.
func (n *Node) Intersect(r geom.Ray) (Hit, bool) { return n.ClosestIntersection(r) }

// ClosestIntersection returns the nearest hit among all primitives under n.
// A miss is not an error.
func (n *Node) ClosestIntersection(r geom.Ray) (Hit, bool) {
	best := Hit{T: math.Inf(1)}
	if !n.closest(r, &best) {
		return Hit{}, false
	}
	return best, true
}

// closest updates best when it finds a nearer hit and reports whether it did.
func (n *Node) closest(r geom.Ray, best *Hit) bool {
	tNear, _, ok := r.IntersectBox(n.box)
	if !ok || tNear > best.T {
		return false
	}

	switch n.Kind {
	case KindLeaf:
		h, ok := n.Leaf.Intersect(r)
		if !ok || h.T >= best.T {
			return false
		}
		*best = h
		return true

	case KindTransform:
		// Ray directions are not renormalized, so T is shared by both spaces.
		if !n.Child.closest(r.Transform(n.inverse), best) {
			return false
		}
		*best = n.toParent(*best)
		return true

	case KindCollection:
		if n.Left == nil {
			return false
		}
		first, second := n.Left, n.Right
		lt, _, lok := r.IntersectBox(first.box)
		rt, _, rok := r.IntersectBox(second.box)
		if rok && (!lok || rt < lt) {
			first, second = second, first
		}
		found := first.closest(r, best)
		if second.closest(r, best) {
			found = true
		}
		return found
	}
	return false
}

func (n *Node) toParent(h Hit) Hit {
	h.Point = mgl64.TransformCoordinate(h.Point, n.Transform)
	h.Normal = mgl64.TransformNormal(h.Normal, n.inverse.Transpose()).Normalize()
	h.LeafBounds = h.LeafBounds.Transform(n.Transform)
	return h
}

// ContainedBy returns every primitive under n whose box intersects the query
// box, which is given in n's space. Under a transform node the query is mapped
// into the child's space conservatively, so extra primitives may be returned.
func (n *Node) ContainedBy(box geom.Box) []Traceable {
	var out []Traceable
	n.containedBy(box, &out)
	return out
}

func (n *Node) containedBy(box geom.Box, out *[]Traceable) {
	if !n.box.Intersects(box) {
		return
	}
	switch n.Kind {
	case KindLeaf:
		*out = append(*out, n.Leaf)
	case KindTransform:
		n.Child.containedBy(box.Transform(n.inverse), out)
	case KindCollection:
		if n.Left != nil {
			n.Left.containedBy(box, out)
		}
		if n.Right != nil {
			n.Right.containedBy(box, out)
		}
	}
}

// ContainedBy is Node.ContainedBy for any traceable; a bare primitive is its
// own single leaf.
func ContainedBy(t Traceable, box geom.Box) []Traceable {
	if n, ok := t.(*Node); ok {
		return n.ContainedBy(box)
	}
	if t.Bounds().Intersects(box) {
		return []Traceable{t}
	}
	return nil
}
