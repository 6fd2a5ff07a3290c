package boolean

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/chazu/platen/pkg/csg"
	"github.com/chazu/platen/pkg/logging"
	"github.com/chazu/platen/pkg/mesh"
	"github.com/chazu/platen/pkg/scene"
)

// SubtractFunc computes a minus b. Both meshes are in the same space.
type SubtractFunc func(a, b *mesh.Mesh) (*mesh.Mesh, error)

// Processor subtracts the hole participants of a difference group from its
// keep participants. It works on a snapshot taken when a run starts and
// publishes results only after every pair has been computed.
type Processor struct {
	Subtract SubtractFunc
	// Timeout bounds one run; zero means no limit.
	Timeout time.Duration

	log zerolog.Logger
}

// NewProcessor returns a processor using BSP subtraction with ops.
func NewProcessor(ops csg.Ops, timeout time.Duration) *Processor {
	return &Processor{
		Subtract: ops.Subtract,
		Timeout:  timeout,
		log:      logging.For("boolean"),
	}
}

// participant is an immutable snapshot of one owner-tagged node.
type participant struct {
	node  *scene.Node
	mesh  *mesh.Mesh
	world mgl64.Mat4
}

// snapshot collects the visible nodes under container that carry its owner
// tag and a mesh, split into keeps and holes. It must run on the goroutine that owns
// the scene.
func snapshot(container *scene.Node) (keeps, holes []participant) {
	for n := range container.Descendants() {
		if n.OwnerID != container.OwnerID {
			continue
		}
		m := n.Mesh()
		if m == nil || !n.Visible() {
			continue
		}
		p := participant{node: n, mesh: m, world: n.WorldTransform()}
		if n.OutputType == scene.OutputHole {
			holes = append(holes, p)
		} else {
			keeps = append(keeps, p)
		}
	}
	return keeps, holes
}

// Start snapshots container and processes it on a new goroutine. The
// returned task is already Running.
func (p *Processor) Start(ctx context.Context, container *scene.Node) *Task {
	keeps, holes := snapshot(container)

	var cancel context.CancelFunc
	if p.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	t := newTask(cancel)
	t.setState(StateRunning)
	go p.run(ctx, t, container.Name, keeps, holes)
	return t
}

func (p *Processor) run(ctx context.Context, t *Task, name string, keeps, holes []participant) {
	start := time.Now()
	stats := Stats{Keeps: len(keeps), Holes: len(holes)}
	log := p.log.With().Str("group", name).Logger()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("boolean: %s: panic: %v", name, r)
			log.Error().Err(err).Msg("difference failed")
			t.finish(StateFailed, stats, err)
		}
	}()

	log.Debug().Int("keeps", stats.Keeps).Int("holes", stats.Holes).Msg("difference running")

	if len(keeps) == 0 || len(holes) == 0 {
		log.Debug().Msg("nothing to subtract")
		t.finish(StateDone, stats, nil)
		return
	}

	results := make([]*mesh.Mesh, len(keeps))
	for i, k := range keeps {
		results[i] = k.mesh
	}
	var consumed []*scene.Node

	for _, h := range holes {
		holeWorld := h.mesh.Transformed(h.world)
		for i, k := range keeps {
			if err := ctx.Err(); err != nil {
				p.abort(t, stats, name, err, log)
				return
			}
			// Each hole is subtracted from the already reduced keep mesh.
			diff, err := p.Subtract(results[i].Transformed(k.world), holeWorld)
			if err != nil {
				err = fmt.Errorf("boolean: %s: subtract %s from %s: %w", name, h.node, k.node, err)
				log.Error().Err(err).Msg("difference failed")
				t.finish(StateFailed, stats, err)
				return
			}
			diff.Transform(k.world.Inv())
			results[i] = diff
			stats.Pairs++
		}
		consumed = append(consumed, h.node)
	}

	if err := ctx.Err(); err != nil {
		p.abort(t, stats, name, err, log)
		return
	}

	t.setState(StateCommitting)
	for i, k := range keeps {
		k.node.SetMesh(results[i])
	}
	for _, n := range consumed {
		n.SetVisible(false)
	}
	log.Info().Int("pairs", stats.Pairs).Dur("elapsed", time.Since(start)).Msg("difference committed")
	t.finish(StateDone, stats, nil)
}

func (p *Processor) abort(t *Task, stats Stats, name string, err error, log zerolog.Logger) {
	state := StateCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Msg("difference timed out")
	} else {
		log.Debug().Msg("difference canceled")
	}
	t.finish(state, stats, fmt.Errorf("boolean: %s: %w", name, err))
}
