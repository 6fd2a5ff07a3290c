package pick

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/chazu/platen/pkg/bvh"
	"github.com/chazu/platen/pkg/geom"
	"github.com/chazu/platen/pkg/logging"
)

// Result is a resolved click.
type Result struct {
	Index     int
	Candidate Candidate
	Hit       bvh.Hit
}

// Resolver answers which candidate of a pool a ray hits first. It keeps the
// hierarchy from the last call and rebuilds only when the pool or its version
// changes.
type Resolver struct {
	log     zerolog.Logger
	pool    *Pool
	version uint64
	root    *bvh.Node
	shapes  []bvh.Traceable // per candidate index, nil when it has no geometry
	builds  int
}

// NewResolver returns a resolver with nothing built yet.
func NewResolver() *Resolver {
	return &Resolver{log: logging.For("pick")}
}

// Builds returns how many times the hierarchy has been rebuilt.
func (r *Resolver) Builds() int { return r.builds }

// Invalidate forces a rebuild on the next call.
func (r *Resolver) Invalidate() { r.pool = nil }

func (r *Resolver) ensure(pool *Pool) {
	if r.pool == pool && r.version == pool.Version() && r.root != nil {
		return
	}
	r.shapes = make([]bvh.Traceable, pool.Len())
	var all []bvh.Traceable
	for i := 0; i < pool.Len(); i++ {
		t := pool.At(i).Traceable()
		if t == nil {
			continue
		}
		r.shapes[i] = t
		all = append(all, t)
	}
	r.root = bvh.Build(all)
	r.pool = pool
	r.version = pool.Version()
	r.builds++
	r.log.Debug().Int("candidates", pool.Len()).Int("traceable", len(all)).Uint64("version", r.version).Msg("hierarchy rebuilt")
}

// Resolve finds the nearest hit of ray among the pool's candidates. The
// hierarchy's leaves are primitives, so after the nearest hit is found each
// candidate's subtree is asked for the primitives inside the hit primitive's
// box until the one owning it turns up. A miss or an empty pool gives
// ok == false.
func (r *Resolver) Resolve(ray geom.Ray, pool *Pool) (Result, bool) {
	if pool == nil || pool.Len() == 0 {
		return Result{}, false
	}
	r.ensure(pool)

	hit, ok := r.root.ClosestIntersection(ray)
	if !ok {
		return Result{}, false
	}

	var owners []int
	for i, shape := range r.shapes {
		if shape == nil {
			continue
		}
		for _, leaf := range bvh.ContainedBy(shape, hit.LeafBounds) {
			if leaf == hit.Leaf {
				owners = append(owners, i)
				break
			}
		}
	}

	switch len(owners) {
	case 0:
		r.log.Warn().Float64("t", hit.T).Msg("hit primitive not owned by any candidate")
		return Result{}, false
	case 1:
		return Result{Index: owners[0], Candidate: pool.At(owners[0]), Hit: hit}, true
	}

	// Candidates sharing a mesh share its primitives; the one whose own
	// nearest hit matches wins.
	best, bestDelta := owners[0], math.Inf(1)
	for _, i := range owners {
		h, ok := r.shapes[i].Intersect(ray)
		if !ok {
			continue
		}
		if d := math.Abs(h.T - hit.T); d < bestDelta {
			best, bestDelta = i, d
		}
	}
	return Result{Index: best, Candidate: pool.At(best), Hit: hit}, true
}
