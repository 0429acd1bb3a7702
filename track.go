package advect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Advector moves a population of particles through a set of domain blocks
type Advector struct {
	blocks []Block
	bm     *BoundsMap
	cfg    Config
	idx    map[int]int // block id to position in blocks
	logger *zap.Logger
}

// Option configures an Advector
type Option func(*Advector)

// WithLogger sets the logger of an Advector; the default discards everything
func WithLogger(l *zap.Logger) Option {
	return func(a *Advector) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdvector builds an advector over the blocks. A nil bounds map is built from the
// blocks' own bounds.
func NewAdvector(blocks []Block, bm *BoundsMap, cfg Config, opts ...Option) (*Advector, error) {
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bm == nil {
		var err error
		if bm, err = NewBoundsMap(blocks); err != nil {
			return nil, err
		}
	} else if _, err := NewBoundsMapFromEntries(bm.entries, blocks); err != nil {
		return nil, err
	}
	a := &Advector{
		blocks: blocks,
		bm:     bm,
		cfg:    cfg,
		idx:    blockIndex(blocks),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Config returns the run configuration
func (a *Advector) Config() Config { return a.cfg }

// BoundsMap returns the bounds map used for migration
func (a *Advector) BoundsMap() *BoundsMap { return a.bm }

// queues holds the particle ids assigned to each block for the next pass, keyed by
// block id, each list in ascending particle-id order
type queues map[int][]int

func (q queues) empty() bool {
	for _, ids := range q {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

func (q queues) count() int {
	n := 0
	for _, ids := range q {
		n += len(ids)
	}
	return n
}

// run is the state of one call to Run
type run struct {
	*Advector
	id    string
	store *ParticleStore
	it    Integrator
	traj  [][]r3.Vec // flushed history windows, Streamline mode only
	pool  *workerPool
	stats RunStats
}

// Run advects the seeds to completion. Cancellation of ctx is observed between
// passes only; the result of a cancelled run holds every particle's last committed
// state and is marked Partial, with a nil error.
func (a *Advector) Run(ctx context.Context, seeds []Seed) (*Result, error) {
	r := &run{
		Advector: a,
		id:       uuid.New().String(),
		store:    NewParticleStore(seeds, a.cfg.MaxSteps, a.cfg.HistoryMode(), a.cfg.Window),
		it:       a.cfg.integrator(),
	}
	res := &Result{RunID: r.id, Mode: a.cfg.Result}
	log := a.logger.With(zap.String("run", r.id))

	q, rejected := r.assignSeeds()
	res.Rejected = rejected
	for _, rj := range rejected {
		log.Warn("seed rejected", zap.Int("pid", rj.ID), zap.Stringer("pos", vecStringer(rj.Pos)), zap.Error(rj.Err))
	}
	if len(seeds) == 0 || len(rejected) == len(seeds) {
		return nil, fmt.Errorf("%w: %d of %d seeds rejected", ErrNoValidSeeds, len(rejected), len(seeds))
	}
	if a.cfg.Result == Streamline {
		r.traj = make([][]r3.Vec, len(seeds))
	}
	if a.cfg.Policy == Threaded {
		r.pool = newWorkerPool(a.cfg.workers())
		r.pool.startWorkers()
		defer r.pool.stopWorkers()
	}

	log.Info("advection started",
		zap.Int("particles", len(seeds)),
		zap.Int("blocks", len(a.blocks)),
		zap.Stringer("integrator", a.cfg.Integrator),
		zap.Stringer("policy", a.cfg.Policy),
		zap.Stringer("result", a.cfg.Result),
	)
	tstart := time.Now()

	for !q.empty() {
		if err := ctx.Err(); err != nil {
			res.Partial = true
			log.Warn("advection cancelled", zap.Int("pass", r.stats.Passes), zap.Int("active", q.count()), zap.Error(err))
			break
		}
		var err error
		switch a.cfg.Policy {
		case Threaded:
			err = r.passThreaded(q)
		default:
			err = r.passSequential(q)
		}
		if err != nil {
			return nil, err
		}
		r.stats.Passes++
		nmig := r.stats.Migrations
		q = r.barrier(q)
		log.Debug("pass complete",
			zap.Int("pass", r.stats.Passes),
			zap.Int("migrations", r.stats.Migrations-nmig),
			zap.Int("active", q.count()),
		)
	}

	r.flushAll()
	res.Stats = r.stats
	res.collect(r.store, r.traj)
	for _, p := range res.Particles {
		if p.Cause == CauseDegenerateEvaluation {
			log.Warn("particle failed", zap.Int("pid", p.ID), zap.Int("bid", p.Block), zap.Stringer("pos", vecStringer(p.Pos)), zap.Error(p.Cause.Err()))
		}
	}

	log.Info("advection complete",
		zap.Duration("elapsed", time.Since(tstart)),
		zap.Bool("partial", res.Partial),
		zap.Int("passes", res.Stats.Passes),
		zap.Int("migrations", res.Stats.Migrations),
		zap.Int("exits", res.Stats.Exits),
		zap.Int("terminated", res.Stats.Terminated),
		zap.Int("errors", res.Stats.Errors),
	)
	return res, nil
}

// assignSeeds places every seed in the lowest-id block owning its position
func (r *run) assignSeeds() (queues, []SeedRejection) {
	q := make(queues, len(r.blocks))
	var rj []SeedRejection
	for id := 0; id < r.store.Len(); id++ {
		p := r.store.Particle(id)
		bid, ok := r.bm.Owner(p.Pos)
		if !ok {
			r.store.SetError(id, CauseInvalidSeed)
			rj = append(rj, SeedRejection{ID: id, Pos: p.Pos, Err: fmt.Errorf("%w: %v", CauseInvalidSeed.Err(), vecStringer(p.Pos))})
			continue
		}
		r.store.Assign(id, bid)
		q[bid] = append(q[bid], id)
	}
	return q, rj
}

// advectParticle steps particle id through field f until it is done for this pass
func (r *run) advectParticle(f VelocityFielder, id int) {
	for !r.store.Done(id) {
		p := r.store.Particle(id)
		st, pos, t := r.it.Step(f, p.Pos, p.T)
		switch st {
		case IntegratorSuccess:
			r.store.TakeStep(id, pos, t)
		case OutsideSpatialBounds:
			_, pos, t, advanced := r.it.SmallStep(f, p.Pos, p.T)
			if advanced {
				r.store.TakeStep(id, pos, t)
			} else {
				r.store.Nudge(id, pos, t)
			}
			r.store.SetExitedSpatialBoundary(id)
		case OutsideTemporalBounds:
			r.store.SetExitedTemporalBoundary(id)
		default:
			r.store.SetError(id, CauseDegenerateEvaluation)
		}
	}
}

// advectBlock runs one round over the particles queued on a block
func (r *run) advectBlock(bid int, ids []int) error {
	f := r.blocks[r.idx[bid]].Field
	fn := func(i0, i1 int) {
		for _, id := range ids[i0:i1] {
			r.advectParticle(f, id)
		}
	}
	if r.pool != nil {
		return r.pool.forEach(len(ids), fn)
	}
	fn(0, len(ids))
	return nil
}

// barrier resolves the end of a pass: it flushes full history windows, migrates
// exited particles and builds the queues of the next pass. Particles are visited in
// id order, so the outcome does not depend on the order blocks finished in.
func (r *run) barrier(q queues) queues {
	var ids []int
	for _, l := range q {
		ids = append(ids, l...)
	}
	sort.Ints(ids)

	next := make(queues, len(q))
	for _, id := range ids {
		if r.store.WindowFull(id) {
			r.flush(id)
		}
		p := r.store.Particle(id)
		switch {
		case p.Status.Integrateable():
			next[p.Block] = append(next[p.Block], id)
		case p.Status.OK() && p.Status.ExitedSpatialBoundary() && !p.Status.ExitedTemporalBoundary():
			if bid, ok := r.migrate(id); ok {
				next[bid] = append(next[bid], id)
			}
		}
	}
	return next
}

// flush moves a particle's history window to the trajectory collector
func (r *run) flush(id int) {
	w := r.store.Flush(id)
	if r.traj != nil {
		r.traj[id] = append(r.traj[id], w...)
	}
}

func (r *run) flushAll() {
	if r.traj == nil {
		return
	}
	for id := range r.traj {
		r.flush(id)
	}
}

type vecStringer r3.Vec

func (v vecStringer) String() string { return fmt.Sprintf("(%g %g %g)", v.X, v.Y, v.Z) }
