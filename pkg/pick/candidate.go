package pick

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/bvh"
	"github.com/chazu/platen/pkg/scene"
)

// Candidate is something a click can resolve to.
type Candidate interface {
	// Traceable returns the candidate's geometry in world space, or nil
	// when it has nothing to hit.
	Traceable() bvh.Traceable
}

// InteractionVolume is a gizmo handle: a collision shape placed by a total
// transform and owned by the widget that drew it. It is never persisted.
type InteractionVolume struct {
	Name      string
	Shape     bvh.Traceable
	Transform mgl64.Mat4
	Owner     any
}

// NewInteractionVolume returns a volume with an identity transform.
func NewInteractionVolume(name string, shape bvh.Traceable, owner any) *InteractionVolume {
	return &InteractionVolume{Name: name, Shape: shape, Transform: mgl64.Ident4(), Owner: owner}
}

func (v *InteractionVolume) Traceable() bvh.Traceable {
	if v.Shape == nil {
		return nil
	}
	return bvh.NewTransform(v.Shape, v.Transform)
}

// SceneObject is a top-level scene node. Its geometry is every visible mesh
// in its subtree, so clicking any part selects the whole object.
type SceneObject struct {
	Node  *scene.Node
	cache *bvh.MeshCache
}

// NewSceneObject wraps n. Mesh hierarchies come from cache, which may be
// shared between objects.
func NewSceneObject(n *scene.Node, cache *bvh.MeshCache) *SceneObject {
	if cache == nil {
		cache = bvh.NewMeshCache()
	}
	return &SceneObject{Node: n, cache: cache}
}

func (o *SceneObject) Traceable() bvh.Traceable {
	var parts []bvh.Traceable
	for item := range scene.VisibleMeshes(o.Node) {
		if item.Mesh.IsEmpty() {
			continue
		}
		parts = append(parts, bvh.NewTransform(o.cache.Get(item.Mesh), item.World))
	}
	if len(parts) == 0 {
		return nil
	}
	return bvh.Build(parts)
}

// SceneObjects wraps each node as a candidate sharing one mesh cache.
func SceneObjects(nodes []*scene.Node, cache *bvh.MeshCache) []Candidate {
	if cache == nil {
		cache = bvh.NewMeshCache()
	}
	out := make([]Candidate, len(nodes))
	for i, n := range nodes {
		out[i] = NewSceneObject(n, cache)
	}
	return out
}

// Pool is an ordered candidate set. Its version changes on every edit so
// resolvers know when to rebuild.
type Pool struct {
	items   []Candidate
	version uint64
}

// NewPool returns a pool holding items.
func NewPool(items ...Candidate) *Pool {
	return &Pool{items: items, version: 1}
}

// Add appends c and returns its index.
func (p *Pool) Add(c Candidate) int {
	p.items = append(p.items, c)
	p.version++
	return len(p.items) - 1
}

// Set replaces the whole candidate list.
func (p *Pool) Set(items []Candidate) {
	p.items = items
	p.version++
}

// Clear removes every candidate.
func (p *Pool) Clear() { p.Set(nil) }

// Touch marks the pool changed without editing it, for when a candidate's
// geometry or transform moved.
func (p *Pool) Touch() { p.version++ }

// Len returns the number of candidates.
func (p *Pool) Len() int { return len(p.items) }

// At returns candidate i.
func (p *Pool) At(i int) Candidate { return p.items[i] }

// Version identifies the pool's current contents.
func (p *Pool) Version() uint64 { return p.version }
