// Package pick turns mouse positions into scene selections. A mouse position
// becomes a world ray through the camera, and the ray is resolved against a
// pool of candidates (gizmo interaction volumes or scene objects) through a
// bounding volume hierarchy built over the pool.
//
// Everything here runs on the UI goroutine; pools and resolvers are not
// safe for concurrent use.
package pick

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/platen/pkg/geom"
)

// ErrNoViewport is returned when the camera has no drawable area.
var ErrNoViewport = errors.New("pick: viewport has zero size")

// Camera holds the matrices and window size a frame was drawn with.
type Camera struct {
	View       mgl64.Mat4
	Projection mgl64.Mat4
	Width      int
	Height     int
}

// NewPerspectiveCamera returns a camera at eye looking at center.
func NewPerspectiveCamera(eye, center, up mgl64.Vec3, fovDegrees float64, width, height int) Camera {
	aspect := 1.0
	if height > 0 {
		aspect = float64(width) / float64(height)
	}
	return Camera{
		View:       mgl64.LookAtV(eye, center, up),
		Projection: mgl64.Perspective(mgl64.DegToRad(fovDegrees), aspect, 0.1, 10000),
		Width:      width,
		Height:     height,
	}
}

// RayAt returns the world ray under the window position (x, y), measured in
// pixels from the top-left corner.
func (c Camera) RayAt(x, y float64) (geom.Ray, error) {
	if c.Width <= 0 || c.Height <= 0 {
		return geom.Ray{}, ErrNoViewport
	}
	winY := float64(c.Height) - y
	near, err := mgl64.UnProject(mgl64.Vec3{x, winY, 0}, c.View, c.Projection, 0, 0, c.Width, c.Height)
	if err != nil {
		return geom.Ray{}, fmt.Errorf("pick: unproject near: %w", err)
	}
	far, err := mgl64.UnProject(mgl64.Vec3{x, winY, 1}, c.View, c.Projection, 0, 0, c.Width, c.Height)
	if err != nil {
		return geom.Ray{}, fmt.Errorf("pick: unproject far: %w", err)
	}
	return geom.NewRay(near, far.Sub(near)), nil
}

// Project maps a world point to window pixels from the top-left corner.
func (c Camera) Project(p mgl64.Vec3) (x, y float64) {
	w := mgl64.Project(p, c.View, c.Projection, 0, 0, c.Width, c.Height)
	return w[0], float64(c.Height) - w[1]
}
