package pick

import (
	"github.com/chazu/platen/pkg/bvh"
	"github.com/chazu/platen/pkg/mesh"
	"github.com/chazu/platen/pkg/scene"
)

// PickResult is what lies under the mouse. At most one of Volume and Node is
// set.
type PickResult struct {
	Volume *InteractionVolume
	Node   *scene.Node
	Hit    bvh.Hit
}

// Viewport routes mouse events to the gizmo pool first and the scene pool
// second, and keeps the selection.
type Viewport struct {
	Camera    Camera
	Gizmos    *Pool
	Scene     *Pool
	Selection *Selection

	cache         *bvh.MeshCache
	gizmoResolver *Resolver
	sceneResolver *Resolver
}

// NewViewport returns a viewport with empty pools.
func NewViewport(cam Camera) *Viewport {
	return &Viewport{
		Camera:        cam,
		Gizmos:        NewPool(),
		Scene:         NewPool(),
		Selection:     NewSelection(),
		cache:         bvh.NewMeshCache(),
		gizmoResolver: NewResolver(),
		sceneResolver: NewResolver(),
	}
}

// SetSceneObjects makes nodes the clickable scene objects and drops cached
// mesh hierarchies no longer reachable from them.
func (v *Viewport) SetSceneObjects(nodes []*scene.Node) {
	live := make(map[*mesh.Mesh]bool)
	for n := range scene.AllNodes(nodes...) {
		if m := n.Mesh(); m != nil {
			live[m] = true
		}
	}
	v.cache.Retain(live)
	v.Scene.Set(SceneObjects(nodes, v.cache))
}

// SceneChanged tells the viewport that meshes or transforms of the current
// scene objects changed.
func (v *Viewport) SceneChanged() { v.Scene.Touch() }

// AddGizmo registers an interaction volume.
func (v *Viewport) AddGizmo(vol *InteractionVolume) int {
	return v.Gizmos.Add(vol)
}

// Pick reports what lies under window position (x, y) without changing the
// selection.
func (v *Viewport) Pick(x, y float64) (PickResult, bool, error) {
	ray, err := v.Camera.RayAt(x, y)
	if err != nil {
		return PickResult{}, false, err
	}
	if res, ok := v.gizmoResolver.Resolve(ray, v.Gizmos); ok {
		return PickResult{Volume: res.Candidate.(*InteractionVolume), Hit: res.Hit}, true, nil
	}
	if res, ok := v.sceneResolver.Resolve(ray, v.Scene); ok {
		return PickResult{Node: res.Candidate.(*SceneObject).Node, Hit: res.Hit}, true, nil
	}
	return PickResult{}, false, nil
}

// MouseDown handles a click. A gizmo hit leaves the selection alone so the
// gizmo can start a drag. A scene hit selects the object, or toggles it when
// additive. A miss clears the selection unless additive.
func (v *Viewport) MouseDown(x, y float64, additive bool) (PickResult, bool, error) {
	res, ok, err := v.Pick(x, y)
	if err != nil {
		return PickResult{}, false, err
	}
	switch {
	case ok && res.Volume != nil:
	case ok && res.Node != nil:
		if additive {
			v.Selection.Toggle(res.Node)
		} else {
			v.Selection.SelectSingle(res.Node)
		}
	case !additive:
		v.Selection.Clear()
	}
	return res, ok, nil
}
