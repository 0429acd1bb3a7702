package advect

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"
)

func runAdvector(t *testing.T, blocks []Block, cfg Config, seeds []Seed, opts ...Option) *Result {
	t.Helper()
	a, err := NewAdvector(blocks, nil, cfg, opts...)
	require.NoError(t, err)
	res, err := a.Run(context.Background(), seeds)
	require.NoError(t, err)
	return res
}

func TestAdvectUniformExit(t *testing.T) {
	blocks := []Block{uniformBlock(0, NewBox(0, 0, 0, 10, 10, 10), vec(1, 0, 0))}
	for _, k := range kinds {
		for _, pol := range []Policy{Sequential, Threaded} {
			t.Run(k.String()+"/"+pol.String(), func(t *testing.T) {
				cfg := testConfig(k, 1., 20)
				cfg.Policy = pol
				cfg.Result = Streamline
				res := runAdvector(t, blocks, cfg, []Seed{{Pos: vec(0, 0, 0)}})

				require.Len(t, res.Particles, 1)
				p := res.Particles[0]
				assert.Equal(t, 10, p.Steps)
				assert.True(t, p.Status.ExitedSpatialBoundary())
				assert.False(t, p.Status.Terminated())
				assert.InDelta(t, 10., p.Pos.X, 1e-12)
				assert.Equal(t, 0., p.Pos.Y)
				assert.Equal(t, 0., p.Pos.Z)
				assert.Equal(t, CauseUnresolvedExit, p.Cause)
				assert.Equal(t, 0, p.Block)

				require.Len(t, res.Trajectories[0], 10)
				assert.Equal(t, vec(10, 0, 0), res.Trajectories[0][9])
				assert.Equal(t, 1, res.Stats.Exits)
				assert.Equal(t, 0, res.Stats.Migrations)
				assert.False(t, res.Partial)
				assert.NotEmpty(t, res.RunID)
			})
		}
	}
}

func TestAdvectSharedFaceMigratesOnce(t *testing.T) {
	blocks := []Block{
		uniformBlock(0, NewBox(0, 0, 0, 10, 10, 10), vec(1, 0, 0)),
		uniformBlock(1, NewBox(10, 0, 0, 20, 10, 10), vec(1, 0, 0)),
	}
	cfg := testConfig(Euler, 1., 50)
	cfg.Result = Streamline
	res := runAdvector(t, blocks, cfg, []Seed{{Pos: vec(10, 5, 5)}})

	p := res.Particles[0]
	assert.Equal(t, 1, res.Stats.Migrations)
	assert.Equal(t, 1, p.Block)
	assert.Equal(t, 10, p.Steps)
	assert.Equal(t, CauseUnresolvedExit, p.Cause)
	assert.InDelta(t, 20., p.Pos.X, 1e-4)

	tr := res.Trajectories[0]
	require.Len(t, tr, p.Steps)
	prev := vec(10, 5, 5)
	for i, q := range tr {
		assert.InDelta(t, 1., q.X-prev.X, 1e-4, "step %d", i)
		prev = q
	}
}

func TestAdvectSeedOwnerIsLowestBlock(t *testing.T) {
	blocks := []Block{
		uniformBlock(4, NewBox(10, 0, 0, 20, 10, 10), vec(-1, 0, 0)),
		uniformBlock(2, NewBox(0, 0, 0, 10, 10, 10), vec(-1, 0, 0)),
	}
	res := runAdvector(t, blocks, testConfig(Euler, 1., 50), []Seed{{Pos: vec(10, 5, 5)}})
	p := res.Particles[0]
	assert.Equal(t, 2, p.Block)
	assert.Equal(t, 0, res.Stats.Migrations)
	assert.Equal(t, 10, p.Steps)
}

func rotationSeeds(n int) []Seed {
	seeds := make([]Seed, n)
	for i := range seeds {
		a := 2. * math.Pi * float64(i) / float64(n)
		r := .4 + 1.2*float64(i%7)/7.
		seeds[i] = Seed{Pos: vec(r*math.Cos(a)+.013, r*math.Sin(a)-.007, .5*math.Sin(3*a))}
	}
	return seeds
}

func rotationBlocks() []Block {
	return quadrants(func(b Box) VelocityFielder { return NewRotationField(b, vec(0, 0, 0), 1.) })
}

func TestAdvectPoliciesAgree(t *testing.T) {
	seeds := rotationSeeds(400)
	for _, k := range kinds {
		t.Run(k.String(), func(t *testing.T) {
			cfg := testConfig(k, .05, 400)
			cfg.Result = Streamline
			cfg.Workers = 4

			cfg.Policy = Sequential
			seq := runAdvector(t, rotationBlocks(), cfg, seeds)
			cfg.Policy = Threaded
			thr := runAdvector(t, rotationBlocks(), cfg, seeds)

			assert.Equal(t, seq.Particles, thr.Particles)
			assert.Equal(t, seq.Trajectories, thr.Trajectories)
			assert.Equal(t, seq.Stats, thr.Stats)
			assert.Greater(t, seq.Stats.Migrations, len(seeds))
		})
	}
}

func TestAdvectLiveness(t *testing.T) {
	// a rotation never leaves the domain, a still field never moves
	cfg := testConfig(RK4, .05, 200)
	cfg.Result = Streamline
	res := runAdvector(t, rotationBlocks(), cfg, rotationSeeds(20))
	for _, p := range res.Particles {
		assert.True(t, p.Status.Terminated(), "particle %d", p.ID)
		assert.Equal(t, 200, p.Steps)
		assert.Equal(t, CauseStepBudgetExhausted, p.Cause)
		assert.Len(t, res.Trajectories[p.ID], p.Steps)
	}
	assert.Equal(t, 20, res.Stats.Terminated)

	still := []Block{uniformBlock(0, NewBox(0, 0, 0, 1, 1, 1), vec(0, 0, 0))}
	res = runAdvector(t, still, testConfig(Euler, 1., 20), []Seed{{Pos: vec(.5, .5, .5)}})
	assert.Equal(t, 20, res.Particles[0].Steps)
	assert.True(t, res.Particles[0].Status.Terminated())
	assert.Equal(t, vec(.5, .5, .5), res.Particles[0].Pos)
}

func TestAdvectWindowedHistory(t *testing.T) {
	seeds := rotationSeeds(30)
	seeds = append(seeds, Seed{Pos: vec(1.9, 1.9, 0)}) // leaves the domain early

	cfg := testConfig(RK4, .05, 150)
	cfg.Result = Streamline
	full := runAdvector(t, rotationBlocks(), cfg, seeds)

	for _, w := range []int{1, 7, 64} {
		cfg.Window = w
		require.Equal(t, WindowedHistory, cfg.HistoryMode())
		win := runAdvector(t, rotationBlocks(), cfg, seeds)
		assert.Equal(t, full.Particles, win.Particles, "window %d", w)
		assert.Equal(t, full.Trajectories, win.Trajectories, "window %d", w)
		assert.Greater(t, win.Stats.Passes, full.Stats.Passes)
	}
	for id, p := range full.Particles {
		assert.Len(t, full.Trajectories[id], p.Steps)
	}
}

func TestAdvectTemporalExit(t *testing.T) {
	b := NewBox(0, 0, 0, 10, 10, 10)
	blocks := []Block{{ID: 0, Bounds: b, Field: TimeWindow{VelocityFielder: NewUniformField(b, vec(1, 0, 0)), T0: 0, T1: 2.5}}}
	res := runAdvector(t, blocks, testConfig(RK4, 1., 20), []Seed{{Pos: vec(0, 1, 1)}, {Pos: vec(0, 1, 1), T: 4}})

	p := res.Particles[0]
	assert.Equal(t, 3, p.Steps)
	assert.InDelta(t, 2.5, p.Pos.X, 1e-12)
	assert.InDelta(t, 2.5, p.Time, 1e-12)
	assert.True(t, p.Status.ExitedTemporalBoundary())
	assert.Equal(t, CauseTemporalExit, p.Cause)

	// seeded after the window closes
	assert.Equal(t, 0, res.Particles[1].Steps)
	assert.True(t, res.Particles[1].Status.ExitedTemporalBoundary())
	assert.Equal(t, 2, res.Stats.TemporalExits)
}

func TestAdvectDegenerateEvaluation(t *testing.T) {
	b := NewBox(0, 0, 0, 1, 1, 1)
	blocks := []Block{
		{ID: 0, Bounds: b, Field: nanField{Bounds: b}},
		uniformBlock(1, NewBox(1, 0, 0, 2, 1, 1), vec(0, 0, 0)),
	}
	core, logs := observer.New(zap.WarnLevel)
	res := runAdvector(t, blocks, testConfig(Euler, .1, 5), []Seed{{Pos: vec(.5, .5, .5)}, {Pos: vec(1.5, .5, .5)}}, WithLogger(zap.New(core)))
	assert.Equal(t, 1, logs.FilterMessage("particle failed").Len())

	p := res.Particles[0]
	assert.True(t, p.Status.Errored())
	assert.Equal(t, CauseDegenerateEvaluation, p.Cause)
	assert.ErrorIs(t, p.Cause.Err(), ErrDegenerateEvaluation)
	assert.Equal(t, vec(.5, .5, .5), p.Pos)
	assert.Equal(t, 1, res.Stats.Errors)

	// the error stays with its particle
	assert.True(t, res.Particles[1].Status.Terminated())
	assert.Equal(t, 5, res.Particles[1].Steps)
}

func TestAdvectWellCapture(t *testing.T) {
	b := NewBox(-10, -10, 0, 10, 10, 1)
	wf := NewWellField(b, 1, 0, 0, -50, .25, 1.)
	blocks := []Block{{ID: 0, Bounds: b, Field: wf}}
	res := runAdvector(t, blocks, testConfig(RK4, .005, 10000), []Seed{{Pos: vec(-5, 0, .5)}})

	p := res.Particles[0]
	assert.Equal(t, CauseUnresolvedExit, p.Cause)
	assert.True(t, wf.Captured(p.Pos), "stopped at %v", p.Pos)
	assert.Less(t, p.Steps, 10000)
}

func TestAdvectStalledParticle(t *testing.T) {
	// opposing fields pin the particle to the shared face
	blocks := []Block{
		uniformBlock(0, NewBox(0, 0, 0, 10, 10, 10), vec(1, 0, 0)),
		uniformBlock(1, NewBox(10, 0, 0, 20, 10, 10), vec(-1, 0, 0)),
	}
	cfg := testConfig(Euler, 1., 100)
	cfg.MaxStalledHops = 3
	res := runAdvector(t, blocks, cfg, []Seed{{Pos: vec(9.5, 5, 5)}})

	p := res.Particles[0]
	assert.True(t, p.Status.Terminated())
	assert.Equal(t, CauseStalled, p.Cause)
	assert.Equal(t, 1, p.Steps)
	assert.InDelta(t, 10., p.Pos.X, 1e-12)
	assert.Equal(t, 4, res.Stats.Migrations)
}

func TestAdvectInvalidSeeds(t *testing.T) {
	blocks := []Block{uniformBlock(0, NewBox(0, 0, 0, 10, 10, 10), vec(1, 0, 0))}
	cfg := testConfig(Euler, 1., 20)
	cfg.Result = Streamline

	core, logs := observer.New(zap.WarnLevel)
	res := runAdvector(t, blocks, cfg, []Seed{{Pos: vec(5, 5, 5)}, {Pos: vec(-1, 5, 5)}, {Pos: vec(math.NaN(), 0, 0)}}, WithLogger(zap.New(core)))

	require.Len(t, res.Rejected, 2)
	assert.Equal(t, 1, res.Rejected[0].ID)
	assert.ErrorIs(t, res.Rejected[0].Err, ErrInvalidSeed)
	assert.Equal(t, 2, res.Rejected[1].ID)
	assert.Equal(t, 2, logs.FilterMessage("seed rejected").Len())

	require.Len(t, res.Particles, 3)
	assert.Equal(t, CauseInvalidSeed, res.Particles[1].Cause)
	assert.Equal(t, 0, res.Particles[1].Steps)
	assert.Empty(t, res.Trajectories[1])
	assert.Equal(t, 5, res.Particles[0].Steps)
	assert.Equal(t, 0, res.Stats.Errors)

	a, err := NewAdvector(blocks, nil, cfg)
	require.NoError(t, err)
	_, err = a.Run(context.Background(), []Seed{{Pos: vec(-1, 0, 0)}})
	assert.ErrorIs(t, err, ErrNoValidSeeds)
	_, err = a.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoValidSeeds)
}

func TestNewAdvectorErrors(t *testing.T) {
	blocks := []Block{uniformBlock(0, NewBox(0, 0, 0, 10, 10, 10), vec(1, 0, 0))}

	_, err := NewAdvector(nil, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoBlocks)

	cfg := DefaultConfig()
	cfg.StepLength = 0
	_, err = NewAdvector(blocks, nil, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewAdvector([]Block{uniformBlock(0, NewBox(1, 0, 0, 0, 1, 1), vec(1, 0, 0))}, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedBoundsMap)

	other, err := NewBoundsMap([]Block{uniformBlock(9, NewBox(0, 0, 0, 1, 1, 1), vec(1, 0, 0))})
	require.NoError(t, err)
	_, err = NewAdvector(blocks, other, DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedBoundsMap)
}

// cancelField cancels a run the first time it is evaluated
type cancelField struct {
	VelocityFielder
	once   *sync.Once
	cancel context.CancelFunc
}

func (f cancelField) Evaluate(pos r3.Vec, t float64) (EvaluatorStatus, r3.Vec) {
	f.once.Do(f.cancel)
	return f.VelocityFielder.Evaluate(pos, t)
}

func TestAdvectCancellation(t *testing.T) {
	b := NewBox(0, 0, 0, 100, 10, 10)
	seeds := []Seed{{Pos: vec(0, 1, 1)}, {Pos: vec(0, 2, 2)}}

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		a, err := NewAdvector([]Block{uniformBlock(0, b, vec(1, 0, 0))}, nil, testConfig(Euler, 1., 50))
		require.NoError(t, err)
		res, err := a.Run(ctx, seeds)
		require.NoError(t, err)
		assert.True(t, res.Partial)
		assert.Equal(t, 0, res.Stats.Passes)
		for _, p := range res.Particles {
			assert.Equal(t, 0, p.Steps)
			assert.True(t, p.Status.Integrateable())
		}
	})

	for _, pol := range []Policy{Sequential, Threaded} {
		t.Run("between passes/"+pol.String(), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			f := cancelField{VelocityFielder: NewUniformField(b, vec(1, 0, 0)), once: new(sync.Once), cancel: cancel}

			cfg := testConfig(Euler, 1., 50)
			cfg.Policy = pol
			cfg.Result = Streamline
			cfg.Window = 5
			a, err := NewAdvector([]Block{{ID: 0, Bounds: b, Field: f}}, nil, cfg)
			require.NoError(t, err)
			res, err := a.Run(ctx, seeds)
			require.NoError(t, err)

			// the first pass completes, the second never starts
			assert.True(t, res.Partial)
			assert.Equal(t, 1, res.Stats.Passes)
			for _, p := range res.Particles {
				assert.Equal(t, 5, p.Steps)
				assert.True(t, p.Status.Integrateable())
				assert.Len(t, res.Trajectories[p.ID], 5)
			}
		})
	}
}

func TestAdvectLogsRun(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	blocks := []Block{uniformBlock(0, NewBox(0, 0, 0, 10, 10, 10), vec(1, 0, 0))}
	res := runAdvector(t, blocks, testConfig(Euler, 1., 20), []Seed{{Pos: vec(0, 0, 0)}}, WithLogger(zap.New(core)))

	require.Equal(t, 1, logs.FilterMessage("advection started").Len())
	done := logs.FilterMessage("advection complete").All()
	require.Len(t, done, 1)
	assert.Equal(t, res.RunID, done[0].ContextMap()["run"])
	assert.Equal(t, int64(1), done[0].ContextMap()["exits"])
	assert.Equal(t, res.Stats.Passes, logs.FilterMessage("pass complete").Len())
}

func TestAdvectSlowingFieldHandsOver(t *testing.T) {
	blocks := []Block{
		{ID: 0, Bounds: NewBox(0, 0, 0, 1, 1, 1), Field: NewPollockField(NewBox(0, 0, 0, 1, 1, 1), 2, 1, 0, 0, 0, 0)},
		uniformBlock(1, NewBox(1, 0, 0, 2, 1, 1), vec(1, 0, 0)),
	}
	seeds := make([]Seed, 250)
	for i := range seeds {
		seeds[i] = Seed{Pos: vec(.9*float64(i)/250., .5, .5)}
	}
	for _, k := range kinds {
		for _, h := range []float64{.05, .0534} {
			t.Run(fmt.Sprintf("%v/h=%v", k, h), func(t *testing.T) {
				res := runAdvector(t, blocks, testConfig(k, h, 1000), seeds)
				assert.Equal(t, len(seeds), res.Stats.Migrations)
				for _, p := range res.Particles {
					require.Equal(t, 1, p.Block, "particle %d stopped at x=%v", p.ID, p.Pos.X)
					assert.GreaterOrEqual(t, p.Pos.X, 2.)
					assert.Equal(t, CauseUnresolvedExit, p.Cause)
				}
			})
		}
	}
}

func TestAdvectTemporalBoundNoExtraStep(t *testing.T) {
	b := NewBox(0, 0, 0, 10, 10, 10)
	blocks := []Block{{ID: 0, Bounds: b, Field: TimeWindow{VelocityFielder: NewUniformField(b, vec(2, 0, 0)), T0: 0, T1: 1}}}
	for _, k := range kinds {
		t.Run(k.String(), func(t *testing.T) {
			cfg := testConfig(k, .1, 100)
			cfg.Result = Streamline
			res := runAdvector(t, blocks, cfg, []Seed{{Pos: vec(0, 1, 1)}})

			p := res.Particles[0]
			assert.Equal(t, 10, p.Steps)
			assert.Equal(t, CauseTemporalExit, p.Cause)
			tr := res.Trajectories[0]
			require.Len(t, tr, 10)
			assert.NotEqual(t, tr[8], tr[9])
			assert.InDelta(t, 2., tr[9].X, 1e-12)
		})
	}
}

// panicField panics on every evaluation
type panicField struct {
	*UniformField
}

func (panicField) Evaluate(r3.Vec, float64) (EvaluatorStatus, r3.Vec) { panic("boom") }

func TestAdvectThreadedPanicBecomesError(t *testing.T) {
	b := NewBox(0, 0, 0, 10, 10, 10)
	blocks := []Block{{ID: 0, Bounds: b, Field: panicField{NewUniformField(b, vec(1, 0, 0))}}}
	cfg := testConfig(Euler, 1., 20)
	cfg.Policy = Threaded
	cfg.Workers = 4

	// below and above the size at which a block's particles go to the worker pool
	for _, n := range []int{10, 2 * parallelThreshold} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			seeds := make([]Seed, n)
			for i := range seeds {
				seeds[i] = Seed{Pos: vec(1, 1+float64(i)*.01, 5)}
			}
			a, err := NewAdvector(blocks, nil, cfg)
			require.NoError(t, err)
			res, err := a.Run(context.Background(), seeds)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorContains(t, err, "block 0")
			assert.ErrorContains(t, err, "boom")
		})
	}
}
