package csg

// node is a solid BSP tree. Polygons coplanar with the splitting plane are
// kept on the node; everything else goes to the front or back subtree.
type node struct {
	eps      float64
	plane    *plane
	front    *node
	back     *node
	polygons []polygon
}

func newNode(polys []polygon, eps float64) *node {
	n := &node{eps: eps}
	n.build(polys)
	return n
}

// invert swaps solid and empty space.
func (n *node) invert() {
	for i, p := range n.polygons {
		n.polygons[i] = p.flipped()
	}
	if n.plane != nil {
		flipped := n.plane.flipped()
		n.plane = &flipped
	}
	if n.front != nil {
		n.front.invert()
	}
	if n.back != nil {
		n.back.invert()
	}
	n.front, n.back = n.back, n.front
}

// clipPolygons removes the parts of polys that lie inside this tree.
func (n *node) clipPolygons(polys []polygon) []polygon {
	if n.plane == nil {
		out := make([]polygon, len(polys))
		copy(out, polys)
		return out
	}
	var fronts, backs []polygon
	for _, p := range polys {
		n.plane.split(p, n.eps, &fronts, &backs, &fronts, &backs)
	}
	if n.front != nil {
		fronts = n.front.clipPolygons(fronts)
	}
	if n.back != nil {
		backs = n.back.clipPolygons(backs)
	} else {
		backs = nil
	}
	return append(fronts, backs...)
}

// clipTo removes the parts of this tree's polygons inside other.
func (n *node) clipTo(other *node) {
	n.polygons = other.clipPolygons(n.polygons)
	if n.front != nil {
		n.front.clipTo(other)
	}
	if n.back != nil {
		n.back.clipTo(other)
	}
}

func (n *node) allPolygons() []polygon {
	out := make([]polygon, 0, len(n.polygons))
	out = append(out, n.polygons...)
	if n.front != nil {
		out = append(out, n.front.allPolygons()...)
	}
	if n.back != nil {
		out = append(out, n.back.allPolygons()...)
	}
	return out
}

func (n *node) build(polys []polygon) {
	if len(polys) == 0 {
		return
	}
	if n.plane == nil {
		p := polys[0].plane
		n.plane = &p
	}
	var fronts, backs []polygon
	for _, p := range polys {
		n.plane.split(p, n.eps, &n.polygons, &n.polygons, &fronts, &backs)
	}
	if len(fronts) > 0 {
		if n.front == nil {
			n.front = &node{eps: n.eps}
		}
		n.front.build(fronts)
	}
	if len(backs) > 0 {
		if n.back == nil {
			n.back = &node{eps: n.eps}
		}
		n.back.build(backs)
	}
}
