package advect

import "gonum.org/v1/gonum/spatial/r3"

// ParticleRecord is the final state of one seed particle
type ParticleRecord struct {
	ID     int     `csv:"pid"`
	Pos    r3.Vec  `csv:"-"`
	X      float64 `csv:"x"`
	Y      float64 `csv:"y"`
	Z      float64 `csv:"z"`
	Time   float64 `csv:"t"`
	Steps  int     `csv:"steps"`
	Status Status  `csv:"status"`
	Block  int     `csv:"block"` // last block to hold the particle, -1 if never assigned
	Cause  Cause   `csv:"cause"`
}

// SeedRejection reports a seed that could not be placed in any block
type SeedRejection struct {
	ID  int
	Pos r3.Vec
	Err error
}

// RunStats summarises a run
type RunStats struct {
	Passes        int // barrier rounds executed
	Migrations    int // block-to-block handovers
	Exits         int // particles that left the whole domain
	TemporalExits int
	Errors        int
	Terminated    int // step budget exhausted or stalled
}

// Result is the output of a run, in seed-id order
type Result struct {
	RunID        string
	Mode         ResultMode
	Particles    []ParticleRecord
	Trajectories [][]r3.Vec // Streamline mode only, one per seed
	Rejected     []SeedRejection
	Partial      bool // the run was cancelled before every particle was done
	Stats        RunStats
}

func newRecord(p Particle, c Cause) ParticleRecord {
	return ParticleRecord{
		ID:     p.I,
		Pos:    p.Pos,
		X:      p.Pos.X,
		Y:      p.Pos.Y,
		Z:      p.Pos.Z,
		Time:   p.T,
		Steps:  p.Steps,
		Status: p.Status,
		Block:  p.Block,
		Cause:  c,
	}
}

// collect assembles the result from the particle store
func (r *Result) collect(s *ParticleStore, traj [][]r3.Vec) {
	r.Particles = make([]ParticleRecord, s.Len())
	for id := range r.Particles {
		p, c := s.Particle(id), s.Cause(id)
		r.Particles[id] = newRecord(p, c)
		switch {
		case c == CauseInvalidSeed:
		case p.Status.Errored():
			r.Stats.Errors++
		case p.Status.Terminated():
			r.Stats.Terminated++
		case p.Status.ExitedTemporalBoundary():
			r.Stats.TemporalExits++
		case c == CauseUnresolvedExit:
			r.Stats.Exits++
		}
	}
	if r.Mode == Streamline {
		r.Trajectories = traj
	}
}

// Pathlines returns the trajectories of the particles with at least one step,
// each prefixed with its seed, along with their particle ids
func (r *Result) Pathlines(seeds []Seed) ([][]r3.Vec, []int) {
	var (
		pl  [][]r3.Vec
		ids []int
	)
	for id, t := range r.Trajectories {
		if len(t) == 0 {
			continue
		}
		pl = append(pl, append([]r3.Vec{seeds[id].Pos}, t...))
		ids = append(ids, id)
	}
	return pl, ids
}
