// Package workspace is the application context behind the desktop app and
// the CLI. A Workspace owns the current scene and everything that acts on
// it: the script engine, the running difference groups, the viewport with
// its selection and gizmos, and the undo history of property edits.
//
// All methods are safe for concurrent use. Background boolean commits swap
// meshes atomically and then notify the workspace, which refreshes picking.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/chazu/platen/pkg/boolean"
	"github.com/chazu/platen/pkg/config"
	"github.com/chazu/platen/pkg/csg"
	"github.com/chazu/platen/pkg/engine"
	"github.com/chazu/platen/pkg/kernel/sdfx"
	"github.com/chazu/platen/pkg/logging"
	"github.com/chazu/platen/pkg/persist"
	"github.com/chazu/platen/pkg/pick"
	"github.com/chazu/platen/pkg/props"
	"github.com/chazu/platen/pkg/scene"
	"github.com/chazu/platen/pkg/tessellate"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("workspace: closed")
	// ErrNotFound is returned when a node ID is not in the scene.
	ErrNotFound = errors.New("workspace: node not found")
)

// Change is an edit the undo history can replay.
type Change interface {
	Undo()
	Redo()
}

// changeSet replays several changes as one step.
type changeSet []Change

func (cs changeSet) Undo() {
	for i := len(cs) - 1; i >= 0; i-- {
		cs[i].Undo()
	}
}

func (cs changeSet) Redo() {
	for _, c := range cs {
		c.Redo()
	}
}

// Workspace is one open document.
type Workspace struct {
	cfg       config.Config
	log       zerolog.Logger
	engine    *engine.Engine
	processor *boolean.Processor
	palette   tessellate.Palette

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	root     *scene.Node
	diffs    []*boolean.DifferenceGroup
	viewport *pick.Viewport
	undo     []Change
	redo     []Change
	onChange func()
}

// New builds a workspace from cfg with an empty scene.
func New(cfg config.Config) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	proc := boolean.NewProcessor(csg.Ops{Epsilon: cfg.CSG.Epsilon}, cfg.Boolean.Timeout)
	eng := engine.NewEngine(sdfx.New(cfg.Kernel.MeshCells))
	eng.Timeout = cfg.Engine.EvalTimeout
	eng.Processor = proc

	ctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		cfg:       cfg,
		log:       logging.For("workspace"),
		engine:    eng,
		processor: proc,
		palette:   tessellate.DefaultPalette(),
		ctx:       ctx,
		cancel:    cancel,
		root:      scene.NewGroup(""),
	}
	w.viewport = pick.NewViewport(w.defaultCamera())
	w.log.Debug().Int("mesh_cells", cfg.Kernel.MeshCells).Msg("workspace opened")
	return w, nil
}

// Config returns the configuration the workspace was built with.
func (w *Workspace) Config() config.Config { return w.cfg }

// OnChange registers fn to be called, without the workspace lock held,
// whenever a background difference group finishes.
func (w *Workspace) OnChange(fn func()) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Evaluate runs source and, when it succeeds, replaces the scene with the
// result. Difference groups of the old scene are canceled and the new ones
// are started. Script errors leave the current scene in place.
func (w *Workspace) Evaluate(source string) (*engine.Result, []engine.EvalError, error) {
	if w.isClosed() {
		return nil, nil, ErrClosed
	}
	res, evalErrs, err := w.engine.Evaluate(source)
	if err != nil || len(evalErrs) > 0 {
		return nil, evalErrs, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, nil, ErrClosed
	}
	for _, dg := range w.diffs {
		if t := dg.Task(); t != nil {
			t.Cancel()
		}
	}
	w.root = res.Root
	w.diffs = nil
	w.undo, w.redo = nil, nil
	w.viewport.Selection.Clear()
	for _, dg := range res.Differences {
		w.startLocked(dg)
	}
	w.refreshLocked()
	w.frameLocked()
	w.log.Info().
		Int("objects", len(res.Objects())).
		Int("differences", len(res.Differences)).
		Int("warnings", len(res.Warnings)).
		Msg("scene replaced")
	return res, nil, nil
}

// startLocked starts dg and watches it so picking sees the committed meshes.
func (w *Workspace) startLocked(dg *boolean.DifferenceGroup) {
	w.diffs = append(w.diffs, dg)
	t := dg.Start(w.ctx)
	root := w.root
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		<-t.Done()
		w.mu.Lock()
		current := w.root == root && !w.closed
		if current {
			w.refreshLocked()
		}
		fn := w.onChange
		w.mu.Unlock()
		if current && fn != nil {
			fn()
		}
	}()
}

// refreshLocked republishes the top-level nodes to the viewport.
func (w *Workspace) refreshLocked() {
	w.viewport.SetSceneObjects(w.root.Children())
	w.updateGizmosLocked()
}

// Root returns the scene root. Its children are the top-level objects.
func (w *Workspace) Root() *scene.Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.root
}

// Differences returns the difference groups of the current scene.
func (w *Workspace) Differences() []*boolean.DifferenceGroup {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*boolean.DifferenceGroup(nil), w.diffs...)
}

// Wait blocks until every difference group of the current scene has
// finished, and returns their joined errors.
func (w *Workspace) Wait(ctx context.Context) error {
	var errs []error
	for _, dg := range w.Differences() {
		t := dg.Task()
		if t == nil {
			continue
		}
		if err := t.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Meshes returns the render meshes of everything visible.
func (w *Workspace) Meshes() []*tessellate.Mesh {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.palette.Tessellate(w.root)
}

// Find returns the node with id, or nil.
func (w *Workspace) Find(id string) *scene.Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.root.Find(id)
}

// Validate runs the structural checks over the scene.
func (w *Workspace) Validate() []scene.ValidationError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return scene.Validate(w.root)
}

// ---------------------------------------------------------------------------
// Camera and picking
// ---------------------------------------------------------------------------

func (w *Workspace) defaultCamera() pick.Camera {
	v := w.cfg.Viewport
	return pick.NewPerspectiveCamera(mgl64.Vec3{60, -80, 60}, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, v.FOVDegrees, v.Width, v.Height)
}

// frameLocked points the camera at the visible scene from the front right.
func (w *Workspace) frameLocked() {
	b := (&pick.Selection{Objects: w.root.Children()}).Bounds()
	if b.IsEmpty() {
		w.viewport.Camera = w.defaultCamera()
		return
	}
	center := b.Center()
	radius := b.Size().Len() / 2
	if radius < 1 {
		radius = 1
	}
	eye := center.Add(mgl64.Vec3{0.6, -0.8, 0.6}.Normalize().Mul(radius * 3))
	cam := w.viewport.Camera
	w.viewport.Camera = pick.NewPerspectiveCamera(eye, center, mgl64.Vec3{0, 0, 1}, w.cfg.Viewport.FOVDegrees, cam.Width, cam.Height)
}

// Camera returns the camera used for picking.
func (w *Workspace) Camera() pick.Camera {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewport.Camera
}

// SetCamera replaces the picking camera with the one the frontend drew with.
func (w *Workspace) SetCamera(cam pick.Camera) {
	w.mu.Lock()
	w.viewport.Camera = cam
	w.mu.Unlock()
}

// Pick reports what lies under window position (x, y).
func (w *Workspace) Pick(x, y float64) (pick.PickResult, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewport.Pick(x, y)
}

// Click handles a mouse-down at (x, y), updating the selection.
func (w *Workspace) Click(x, y float64, additive bool) (pick.PickResult, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res, ok, err := w.viewport.MouseDown(x, y, additive)
	if err != nil {
		return res, ok, err
	}
	if res.Volume == nil {
		w.updateGizmosLocked()
	}
	return res, ok, nil
}

// Select replaces the selection with the nodes with ids.
func (w *Workspace) Select(ids ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	nodes, err := w.findLocked(ids)
	if err != nil {
		return err
	}
	w.viewport.Selection.Clear()
	seen := make(map[*scene.Node]bool, len(nodes))
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		seen[n] = true
		w.viewport.Selection.Toggle(n)
	}
	w.updateGizmosLocked()
	return nil
}

// Selection returns the selected nodes; the active one is last.
func (w *Workspace) Selection() []*scene.Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*scene.Node(nil), w.viewport.Selection.Objects...)
}

func (w *Workspace) findLocked(ids []string) ([]*scene.Node, error) {
	nodes := make([]*scene.Node, 0, len(ids))
	for _, id := range ids {
		n := w.root.Find(id)
		if n == nil || n == w.root {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ---------------------------------------------------------------------------
// Editing
// ---------------------------------------------------------------------------

// Properties returns the editors for node id.
func (w *Workspace) Properties(id string) ([]props.Editor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	nodes, err := w.findLocked([]string{id})
	if err != nil {
		return nil, err
	}
	return props.BuildEditors(props.NodeFields(nodes[0]))
}

// SetProperty applies input to a field of node id and records the edit.
func (w *Workspace) SetProperty(id, field, input string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	nodes, err := w.findLocked([]string{id})
	if err != nil {
		return err
	}
	c, err := props.ApplyField(nodes[0], field, input)
	if err != nil {
		return fmt.Errorf("workspace: %s: %w", nodes[0], err)
	}
	w.recordLocked(c)
	return nil
}

// Move translates every selected node by delta in world space.
func (w *Workspace) Move(delta mgl64.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	sel := w.viewport.Selection.Objects
	if len(sel) == 0 {
		return errors.New("workspace: move: nothing selected")
	}
	cs := make(changeSet, 0, len(sel))
	for _, n := range sel {
		v := n.ParentWorldTransform().Inv().Mul4x1(delta.Vec4(0)).Vec3()
		cs = append(cs, scene.Translate(n, v))
	}
	w.recordLocked(cs)
	return nil
}

func (w *Workspace) recordLocked(c Change) {
	w.undo = append(w.undo, c)
	w.redo = nil
	w.viewport.SceneChanged()
	w.updateGizmosLocked()
}

// Undo reverts the last edit. It reports false when there is nothing to undo.
func (w *Workspace) Undo() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.undo) == 0 {
		return false
	}
	c := w.undo[len(w.undo)-1]
	w.undo = w.undo[:len(w.undo)-1]
	c.Undo()
	w.redo = append(w.redo, c)
	w.viewport.SceneChanged()
	w.updateGizmosLocked()
	return true
}

// Redo reapplies the last undone edit.
func (w *Workspace) Redo() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.redo) == 0 {
		return false
	}
	c := w.redo[len(w.redo)-1]
	w.redo = w.redo[:len(w.redo)-1]
	c.Redo()
	w.undo = append(w.undo, c)
	w.viewport.SceneChanged()
	w.updateGizmosLocked()
	return true
}

// Group puts the sibling nodes ids under a new group.
func (w *Workspace) Group(name string, ids ...string) (*scene.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	nodes, err := w.findLocked(ids)
	if err != nil {
		return nil, err
	}
	g, err := scene.Group(name, nodes...)
	if err != nil {
		return nil, err
	}
	w.viewport.Selection.SelectSingle(g)
	w.refreshLocked()
	return g, nil
}

// Ungroup dissolves group id into its parent. Difference containers are
// dissolved through their group so wrapped nodes are restored.
func (w *Workspace) Ungroup(ctx context.Context, id string) ([]*scene.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	nodes, err := w.findLocked([]string{id})
	if err != nil {
		return nil, err
	}
	n := nodes[0]
	var out []*scene.Node
	if i := w.diffIndexLocked(n); i >= 0 {
		out, err = w.diffs[i].Dissolve(ctx)
		if err == nil {
			w.diffs = append(w.diffs[:i], w.diffs[i+1:]...)
		}
	} else {
		out, err = scene.Ungroup(n)
	}
	if err != nil {
		return nil, err
	}
	w.viewport.Selection.Clear()
	w.refreshLocked()
	return out, nil
}

// Difference makes a difference group of the sibling nodes ids and starts
// it. The first mesh is kept and the rest are subtracted from it.
func (w *Workspace) Difference(name string, ids ...string) (*boolean.DifferenceGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	nodes, err := w.findLocked(ids)
	if err != nil {
		return nil, err
	}
	dg, err := boolean.NewDifferenceGroup(w.ctx, name, nodes, boolean.WithProcessor(w.processor), boolean.Deferred())
	if err != nil {
		return nil, err
	}
	w.startLocked(dg)
	w.viewport.Selection.SelectSingle(dg.Node)
	w.refreshLocked()
	return dg, nil
}

// Apply flattens the finished difference group whose container is id.
func (w *Workspace) Apply(id string) ([]*scene.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	nodes, err := w.findLocked([]string{id})
	if err != nil {
		return nil, err
	}
	i := w.diffIndexLocked(nodes[0])
	if i < 0 {
		return nil, fmt.Errorf("workspace: %s is not a difference group", nodes[0])
	}
	out, err := w.diffs[i].Apply()
	if err != nil {
		return nil, err
	}
	w.diffs = append(w.diffs[:i], w.diffs[i+1:]...)
	w.viewport.Selection.Clear()
	w.refreshLocked()
	return out, nil
}

func (w *Workspace) diffIndexLocked(n *scene.Node) int {
	for i, dg := range w.diffs {
		if dg.Node == n {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// Export writes the visible meshes to a 3MF file.
func (w *Workspace) Export(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return persist.SaveFile(path, w.root)
}

// Import loads a 3MF file and adds its objects to the scene.
func (w *Workspace) Import(path string) ([]*scene.Node, error) {
	nodes, err := persist.LoadFile(path)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	for _, n := range nodes {
		w.root.AddChild(n)
	}
	w.refreshLocked()
	return nodes, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (w *Workspace) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close cancels every running difference group and waits for their
// goroutines. Close is idempotent.
func (w *Workspace) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	w.log.Debug().Msg("workspace closed")
	return nil
}
