package main

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/platen/pkg/config"
	"github.com/chazu/platen/pkg/logging"
	"github.com/chazu/platen/pkg/pick"
	"github.com/chazu/platen/pkg/props"
	"github.com/chazu/platen/pkg/tessellate"
	"github.com/chazu/platen/pkg/workspace"
)

// SceneChangedEvent is emitted when background work changed the scene and
// the frontend should fetch Meshes again.
const SceneChangedEvent = "scene:changed"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx context.Context
	ws  *workspace.Workspace
	log zerolog.Logger
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// DifferenceData describes one difference group and its processing state.
type DifferenceData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes      []*tessellate.Mesh `json:"meshes"`
	Differences []DifferenceData   `json:"differences"`
	Errors      []EvalErrorData    `json:"errors"`
	Warnings    []EvalErrorData    `json:"warnings"`
}

// PickData is what lies under the mouse.
type PickData struct {
	Hit    bool       `json:"hit"`
	NodeID string     `json:"nodeId,omitempty"`
	Name   string     `json:"name,omitempty"`
	Handle string     `json:"handle,omitempty"`
	Point  [3]float64 `json:"point"`
}

// CameraData is the camera the frontend drew the last frame with.
type CameraData struct {
	Eye    [3]float64 `json:"eye"`
	Target [3]float64 `json:"target"`
	Up     [3]float64 `json:"up"`
	FOV    float64    `json:"fov"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
}

// NewApp creates an App with the default configuration.
func NewApp() *App {
	app, err := NewAppWithConfig(config.Default())
	if err != nil {
		panic(err) // the default configuration always validates
	}
	return app
}

// NewAppWithConfig creates an App with its own workspace.
func NewAppWithConfig(cfg config.Config) (*App, error) {
	ws, err := workspace.New(cfg)
	if err != nil {
		return nil, err
	}
	return &App{ws: ws, log: logging.For("app")}, nil
}

// startup is called by Wails on app startup. The context is saved so the
// workspace can emit runtime events.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.ws.OnChange(func() {
		runtime.EventsEmit(ctx, SceneChangedEvent)
	})
	a.log.Info().Msg("started")
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	if err := a.ws.Close(); err != nil {
		a.log.Error().Err(err).Msg("closing workspace")
	}
	a.log.Info().Msg("stopped")
}

// Evaluate takes scene source and returns mesh data + errors.
// This is the primary binding called by the frontend editor. Difference
// groups keep running after it returns; SceneChangedEvent follows when they
// commit.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:      []*tessellate.Mesh{},
		Differences: []DifferenceData{},
		Errors:      []EvalErrorData{},
		Warnings:    []EvalErrorData{},
	}

	res, evalErrs, err := a.ws.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error().Err(err).Msg("evaluate")
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}
	result.Meshes = append(result.Meshes, a.ws.Meshes()...)
	result.Differences = a.Differences()
	return result
}

// Meshes returns the current render meshes.
func (a *App) Meshes() []*tessellate.Mesh {
	return append([]*tessellate.Mesh{}, a.ws.Meshes()...)
}

// Differences reports the difference groups of the current scene.
func (a *App) Differences() []DifferenceData {
	out := []DifferenceData{}
	for _, dg := range a.ws.Differences() {
		state := "idle"
		if t := dg.Task(); t != nil {
			state = t.State().String()
		}
		out = append(out, DifferenceData{ID: dg.Node.ID, Name: dg.Node.Name, State: state})
	}
	return out
}

// SetCamera tells the backend how the viewport is drawn so picks line up.
func (a *App) SetCamera(c CameraData) {
	a.ws.SetCamera(pick.NewPerspectiveCamera(mgl64.Vec3(c.Eye), mgl64.Vec3(c.Target), mgl64.Vec3(c.Up), c.FOV, c.Width, c.Height))
}

// Pick reports what lies under the mouse without changing the selection.
func (a *App) Pick(x, y float64) (PickData, error) {
	res, ok, err := a.ws.Pick(x, y)
	if err != nil {
		return PickData{}, err
	}
	return pickData(res, ok), nil
}

// Click handles a mouse-down, updating the selection. additive is shift.
func (a *App) Click(x, y float64, additive bool) (PickData, error) {
	res, ok, err := a.ws.Click(x, y, additive)
	if err != nil {
		return PickData{}, err
	}
	return pickData(res, ok), nil
}

func pickData(res pick.PickResult, ok bool) PickData {
	if !ok {
		return PickData{}
	}
	d := PickData{Hit: true, Point: res.Hit.Point}
	if axis, isHandle := workspace.HandleAxis(res); isHandle {
		d.Handle = axis.String()
	}
	if res.Node != nil {
		d.NodeID = res.Node.ID
		d.Name = res.Node.Name
	}
	return d
}

// Select replaces the selection.
func (a *App) Select(ids []string) error {
	return a.ws.Select(ids...)
}

// Properties returns the property editors for a node.
func (a *App) Properties(id string) ([]props.Editor, error) {
	return a.ws.Properties(id)
}

// SetProperty applies an edited value. Expressions start with "=".
func (a *App) SetProperty(id, field, input string) error {
	if err := a.ws.SetProperty(id, field, input); err != nil {
		a.log.Debug().Err(err).Str("field", field).Msg("property rejected")
		return err
	}
	return nil
}

// Drag moves the selection along a handle axis by distance.
func (a *App) Drag(handle string, distance float64) error {
	for axis := workspace.AxisX; axis <= workspace.AxisZ; axis++ {
		if axis.String() == handle {
			return a.ws.Move(axis.Dir().Mul(distance))
		}
	}
	return fmt.Errorf("unknown handle %q", handle)
}

// Undo reverts the last edit.
func (a *App) Undo() bool { return a.ws.Undo() }

// Redo reapplies the last undone edit.
func (a *App) Redo() bool { return a.ws.Redo() }

// MakeDifference subtracts the later selected siblings from the first.
func (a *App) MakeDifference(name string, ids []string) (DifferenceData, error) {
	dg, err := a.ws.Difference(name, ids...)
	if err != nil {
		return DifferenceData{}, err
	}
	return DifferenceData{ID: dg.Node.ID, Name: dg.Node.Name, State: dg.Task().State().String()}, nil
}

// Export writes the visible scene to a 3MF file.
func (a *App) Export(path string) error {
	if err := a.ws.Export(path); err != nil {
		a.log.Error().Err(err).Str("path", path).Msg("export")
		return err
	}
	return nil
}
