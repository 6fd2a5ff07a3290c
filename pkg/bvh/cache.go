package bvh

import (
	"sync"

	"github.com/chazu/platen/pkg/mesh"
)

// MeshCache memoizes FromMesh per mesh pointer. Published meshes are never
// mutated, so the pointer identifies the geometry.
type MeshCache struct {
	mu    sync.Mutex
	trees map[*mesh.Mesh]*Node
}

// NewMeshCache returns an empty cache.
func NewMeshCache() *MeshCache {
	return &MeshCache{trees: make(map[*mesh.Mesh]*Node)}
}

// Get returns the hierarchy for m, building it on first use.
func (c *MeshCache) Get(m *mesh.Mesh) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.trees[m]; ok {
		return n
	}
	n := FromMesh(m)
	c.trees[m] = n
	return n
}

// Retain drops every entry whose mesh is not in live.
func (c *MeshCache) Retain(live map[*mesh.Mesh]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for m := range c.trees {
		if !live[m] {
			delete(c.trees, m)
		}
	}
}

// Len returns the number of cached hierarchies.
func (c *MeshCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trees)
}
