package workspace

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/bvh"
	"github.com/chazu/platen/pkg/geom"
	"github.com/chazu/platen/pkg/pick"
)

// Axis is the direction a move handle drags along.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

var axisNames = [...]string{"move-x", "move-y", "move-z"}

func (a Axis) String() string { return axisNames[a] }

// Dir returns the unit world direction of a.
func (a Axis) Dir() mgl64.Vec3 {
	var v mgl64.Vec3
	v[a] = 1
	return v
}

// moveHandles builds one box handle per axis, starting at the center of
// bounds and reaching past its far face.
func moveHandles(bounds geom.Box) []*pick.InteractionVolume {
	center := bounds.Center()
	size := bounds.Size()
	length := 0.0
	for i := 0; i < 3; i++ {
		length = max(length, size[i])
	}
	length = length*0.75 + 1
	thick := length * 0.05

	out := make([]*pick.InteractionVolume, 0, 3)
	for a := AxisX; a <= AxisZ; a++ {
		lo := mgl64.Vec3{-thick, -thick, -thick}
		hi := mgl64.Vec3{thick, thick, thick}
		hi[a] = length
		shape := &bvh.BoxShape{Box: geom.NewBox(lo, hi)}
		vol := pick.NewInteractionVolume(a.String(), shape, a)
		vol.Transform = mgl64.Translate3D(center[0], center[1], center[2])
		out = append(out, vol)
	}
	return out
}

// updateGizmosLocked places move handles on the current selection.
func (w *Workspace) updateGizmosLocked() {
	w.viewport.Gizmos.Clear()
	sel := w.viewport.Selection
	if !sel.HasSelection() {
		return
	}
	b := sel.Bounds()
	if b.IsEmpty() {
		return
	}
	for _, vol := range moveHandles(b) {
		w.viewport.AddGizmo(vol)
	}
}

// HandleAxis returns the axis of a move handle picked by Pick or Click.
func HandleAxis(res pick.PickResult) (Axis, bool) {
	if res.Volume == nil {
		return 0, false
	}
	a, ok := res.Volume.Owner.(Axis)
	return a, ok
}
