// Package boolean turns sibling scene nodes into a difference group: every
// mesh among them is wrapped, the first is kept, the rest become holes, and a
// background task subtracts the holes from the keeps.
package boolean

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/chazu/platen/pkg/csg"
	"github.com/chazu/platen/pkg/scene"
)

var (
	// ErrNoParticipants is returned when none of the siblings owns a mesh.
	ErrNoParticipants = errors.New("boolean: no meshes to combine")
	// ErrDuplicateSibling is returned when a node is listed twice.
	ErrDuplicateSibling = errors.New("boolean: node listed more than once")
)

// DifferenceGroup is a live difference container and the task computing it.
type DifferenceGroup struct {
	Node  *scene.Node   // the KindDifference container
	Items []*scene.Node // wrappers in wrap order

	proc    *Processor
	ctx     context.Context
	once    sync.Once
	task    *Task
	visible map[*scene.Node]bool // wrapped node -> visibility before wrapping
}

// Option configures NewDifferenceGroup.
type Option func(*DifferenceGroup)

// WithProcessor replaces the default processor.
func WithProcessor(p *Processor) Option {
	return func(g *DifferenceGroup) { g.proc = p }
}

// Deferred stops NewDifferenceGroup from starting the task; call Start.
func Deferred() Option {
	return func(g *DifferenceGroup) { g.ctx = nil }
}

// NewDifferenceGroup moves siblings under a new difference container placed
// where the first sibling was, wraps every node with a non-empty mesh among
// them and their descendants, and starts processing. ctx bounds the task.
func NewDifferenceGroup(ctx context.Context, name string, siblings []*scene.Node, opts ...Option) (*DifferenceGroup, error) {
	if len(siblings) == 0 {
		return nil, fmt.Errorf("boolean: difference %q: %w", name, ErrNoParticipants)
	}
	parent := siblings[0].Parent()
	if parent == nil {
		return nil, fmt.Errorf("boolean: difference %q: %w", name, scene.ErrNoParent)
	}
	seen := make(map[*scene.Node]bool, len(siblings))
	for _, s := range siblings {
		if s.Parent() != parent {
			return nil, fmt.Errorf("boolean: difference %q: %s: %w", name, s, scene.ErrNotSiblings)
		}
		if seen[s] {
			return nil, fmt.Errorf("boolean: difference %q: %s: %w", name, s, ErrDuplicateSibling)
		}
		seen[s] = true
	}

	var targets []*scene.Node
	shown := make(map[*scene.Node]bool)
	for _, s := range siblings {
		for n := range scene.AllNodes(s) {
			if !n.Mesh().IsEmpty() {
				targets = append(targets, n)
				shown[n] = shownWithin(n, s)
			}
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("boolean: difference %q: %w", name, ErrNoParticipants)
	}

	g := &DifferenceGroup{
		proc:    NewProcessor(csg.Default, 0),
		ctx:     ctx,
		visible: make(map[*scene.Node]bool, len(targets)),
	}
	for _, o := range opts {
		o(g)
	}

	owner := uuid.NewString()
	container := scene.NewGroup(name)
	container.Kind = scene.KindDifference
	container.OwnerID = owner
	parent.InsertChild(parent.IndexOf(siblings[0]), container)
	for _, s := range siblings {
		container.AddChild(s)
	}

	// The first shown node is kept and every later shown node becomes a
	// hole. Hidden nodes are wrapped but stay hidden and out of the run.
	keep := true
	for _, n := range targets {
		item := wrap(n, owner, shown[n])
		if shown[n] {
			if !keep {
				item.OutputType = scene.OutputHole
			}
			keep = false
		}
		g.visible[n] = n.Visible()
		n.SetVisible(false)
		g.Items = append(g.Items, item)
	}
	g.Node = container

	if g.ctx != nil {
		g.Start(g.ctx)
	}
	return g, nil
}

// shownWithin reports whether n and every ancestor up to root are visible.
func shownWithin(n, root *scene.Node) bool {
	for p := n; p != nil; p = p.Parent() {
		if !p.Visible() {
			return false
		}
		if p == root {
			break
		}
	}
	return true
}

// wrap puts a DifferenceItem in n's place. The item takes over n's mesh and
// transform; n keeps its mesh and gets an identity transform.
func wrap(n *scene.Node, owner string, visible bool) *scene.Node {
	item := scene.New(n.Name, n.Mesh())
	item.Kind = scene.KindDifferenceItem
	item.OwnerID = owner
	item.Color = n.Color
	item.Material = n.Material
	item.OutputType = n.OutputType
	item.SetLocalTransform(n.LocalTransform())
	item.SetVisible(visible)

	parent := n.Parent()
	parent.InsertChild(parent.IndexOf(n), item)
	n.SetLocalTransform(mgl64.Ident4())
	item.AddChild(n)
	return item
}

// Start launches processing once and returns the task. Later calls return
// the same task.
func (g *DifferenceGroup) Start(ctx context.Context) *Task {
	g.once.Do(func() {
		g.task = g.proc.Start(ctx, g.Node)
	})
	return g.task
}

// Task returns the processing task, or nil if it has not been started.
func (g *DifferenceGroup) Task() *Task { return g.task }

// Keeps returns the wrappers whose meshes receive results.
func (g *DifferenceGroup) Keeps() []*scene.Node {
	var out []*scene.Node
	for _, it := range g.Items {
		if it.OutputType != scene.OutputHole {
			out = append(out, it)
		}
	}
	return out
}

// Holes returns the wrappers subtracted from the keeps.
func (g *DifferenceGroup) Holes() []*scene.Node {
	var out []*scene.Node
	for _, it := range g.Items {
		if it.OutputType == scene.OutputHole {
			out = append(out, it)
		}
	}
	return out
}

// Apply replaces a finished group with plain object nodes holding the result
// meshes, placed where the container was. World placement is preserved.
func (g *DifferenceGroup) Apply() ([]*scene.Node, error) {
	if g.task == nil || g.task.State() != StateDone {
		return nil, fmt.Errorf("boolean: apply %q: %w", g.Node.Name, ErrNotDone)
	}
	parent := g.Node.Parent()
	if parent == nil {
		return nil, fmt.Errorf("boolean: apply %q: %w", g.Node.Name, scene.ErrNoParent)
	}
	toParent := parent.WorldTransform().Inv()

	var out []*scene.Node
	for _, k := range g.Keeps() {
		n := scene.New(k.Name, k.Mesh())
		n.Color = k.Color
		n.Material = k.Material
		n.OutputType = k.OutputType
		n.SetVisible(k.Visible())
		n.SetLocalTransform(toParent.Mul4(k.WorldTransform()))
		out = append(out, n)
	}
	at := parent.IndexOf(g.Node)
	g.Node.Detach()
	for i, n := range out {
		parent.InsertChild(at+i, n)
	}
	return out, nil
}

// Dissolve cancels processing, unwraps every item and moves the original
// nodes back to the container's parent with their transforms and visibility.
func (g *DifferenceGroup) Dissolve(ctx context.Context) ([]*scene.Node, error) {
	if g.task != nil {
		g.task.Cancel()
		if err := g.task.Wait(ctx); err != nil && !g.task.State().Terminal() {
			return nil, fmt.Errorf("boolean: dissolve %q: %w", g.Node.Name, err)
		}
	}
	for _, it := range g.Items {
		children := it.Children()
		if len(children) != 1 {
			continue
		}
		orig := children[0]
		orig.SetLocalTransform(it.LocalTransform())
		orig.SetVisible(g.visible[orig])
		parent := it.Parent()
		at := parent.IndexOf(it)
		it.Detach()
		parent.InsertChild(at, orig)
	}
	return scene.Ungroup(g.Node)
}
