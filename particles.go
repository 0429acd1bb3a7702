package advect

import "gonum.org/v1/gonum/spatial/r3"

// HistoryMode selects how much of each pathline the store keeps
type HistoryMode int

const (
	NoHistory       HistoryMode = iota
	FullHistory                 // one entry per step, up to the step budget
	WindowedHistory             // a bounded window flushed between rounds
)

// ParticleStore holds the state of every particle in a run. Each method only touches
// the slot of the id it is given, so distinct ids may be updated concurrently.
type ParticleStore struct {
	p        []Particle
	cause    []Cause
	hist     [][]r3.Vec
	flushed  []int // steps already flushed (windowed mode)
	hops     []int // consecutive migrations without a counted step
	lastHop  []int // step count at the last migration
	maxSteps int
	mode     HistoryMode
	window   int
}

// NewParticleStore creates one particle per seed, all OK and unassigned
func NewParticleStore(seeds []Seed, maxSteps int, mode HistoryMode, window int) *ParticleStore {
	n := len(seeds)
	s := &ParticleStore{
		p:        make([]Particle, n),
		cause:    make([]Cause, n),
		flushed:  make([]int, n),
		hops:     make([]int, n),
		lastHop:  make([]int, n),
		maxSteps: maxSteps,
		mode:     mode,
		window:   window,
	}
	for i, sd := range seeds {
		s.p[i] = Particle{I: i, Block: -1, Pos: sd.Pos, T: sd.T, Status: StatusOK()}
	}
	if mode != NoHistory {
		c := maxSteps
		if mode == WindowedHistory {
			c = window
		}
		s.hist = make([][]r3.Vec, n)
		for i := range s.hist {
			s.hist[i] = make([]r3.Vec, 0, c)
		}
	}
	return s
}

// Len returns the number of particles
func (s *ParticleStore) Len() int { return len(s.p) }

// Particle returns a copy of particle id
func (s *ParticleStore) Particle(id int) Particle { return s.p[id] }

// Cause returns why particle id stopped
func (s *ParticleStore) Cause(id int) Cause { return s.cause[id] }

// TakeStep records a completed step. The particle is terminated once its step
// count reaches the budget.
func (s *ParticleStore) TakeStep(id int, pos r3.Vec, t float64) {
	p := &s.p[id]
	if s.hist != nil {
		s.hist[id] = append(s.hist[id], pos)
	}
	p.Pos, p.T = pos, t
	p.Steps++
	if p.Steps >= s.maxSteps {
		s.SetTerminated(id)
	}
}

// Nudge moves a particle without counting a step
func (s *ParticleStore) Nudge(id int, pos r3.Vec, t float64) {
	s.p[id].Pos, s.p[id].T = pos, t
}

func (s *ParticleStore) SetTerminated(id int) {
	s.p[id].Status = s.p[id].Status.Terminate()
	if s.cause[id] == CauseNone {
		s.cause[id] = CauseStepBudgetExhausted
	}
}

func (s *ParticleStore) SetExitedSpatialBoundary(id int) {
	s.p[id].Status = s.p[id].Status.ExitSpatial()
}

func (s *ParticleStore) SetExitedTemporalBoundary(id int) {
	s.p[id].Status = s.p[id].Status.ExitTemporal()
	if s.cause[id] == CauseNone {
		s.cause[id] = CauseTemporalExit
	}
}

// SetError marks particle id as failed for the given cause
func (s *ParticleStore) SetError(id int, c Cause) {
	s.p[id].Status = s.p[id].Status.Fail()
	s.cause[id] = c
}

// SetCause records why a particle stopped without changing its status
func (s *ParticleStore) SetCause(id int, c Cause) { s.cause[id] = c }

// SetOK clears every flag but OK, making the particle integrateable again
func (s *ParticleStore) SetOK(id int) { s.p[id].Status = StatusOK() }

// Assign hands particle id to a block and makes it integrateable again
func (s *ParticleStore) Assign(id, block int) {
	p := &s.p[id]
	if p.Block >= 0 {
		if p.Steps == s.lastHop[id] {
			s.hops[id]++
		} else {
			s.hops[id] = 0
		}
		s.lastHop[id] = p.Steps
	}
	p.Block = block
	s.SetOK(id)
}

// StalledHops returns the number of consecutive migrations made without a step
func (s *ParticleStore) StalledHops(id int) int { return s.hops[id] }

// Integrateable returns true if the particle can take another step
func (s *ParticleStore) Integrateable(id int) bool { return s.p[id].Status.Integrateable() }

// WindowFull is true when the particle's history window must be flushed before it
// can continue
func (s *ParticleStore) WindowFull(id int) bool {
	return s.mode == WindowedHistory && s.p[id].Steps-s.flushed[id] == s.window
}

// Done returns true when the particle cannot step further in the current round
func (s *ParticleStore) Done(id int) bool {
	return s.WindowFull(id) || !s.Integrateable(id)
}

// History returns a copy of the recorded positions not yet flushed
func (s *ParticleStore) History(id int) []r3.Vec {
	if s.hist == nil {
		return nil
	}
	return append([]r3.Vec(nil), s.hist[id]...)
}

// Flush returns the current window and starts a new one
func (s *ParticleStore) Flush(id int) []r3.Vec {
	h := s.History(id)
	if s.hist != nil {
		s.hist[id] = s.hist[id][:0]
	}
	s.flushed[id] = s.p[id].Steps
	return h
}
