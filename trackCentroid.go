package advect

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// CentroidalTracks are pathlines through the centroid of every block
type CentroidalTracks struct {
	Pathlines [][]r3.Vec // backward track (reversed), the centroid, then the forward track
	BlockIDs  []int      // block whose centroid seeded each pathline
	TStart    []float64  // negated backward tracking time, 0 when not reversed
	TEnd      []float64  // forward tracking time
	Vertices  int
}

// CentroidSeeds returns one seed per block at its centroid, in block order
func CentroidSeeds(blocks []Block) []Seed {
	s := make([]Seed, len(blocks))
	for i, b := range blocks {
		s[i] = Seed{Pos: b.Bounds.Centroid()}
	}
	return s
}

// TrackCentroidalParticles tracks a particle from the centroid of every block. With
// reverse set, each particle is also tracked backward through the reversed field
// and the two tracks are joined at the centroid. Fields are assumed steady.
func TrackCentroidalParticles(ctx context.Context, blocks []Block, cfg Config, reverse bool, opts ...Option) (*CentroidalTracks, error) {
	cfg.Result = Streamline
	seeds := CentroidSeeds(blocks)

	fwd, err := advectCentroids(ctx, blocks, cfg, seeds, opts)
	if err != nil {
		return nil, err
	}

	var bwd *Result
	if reverse {
		rb := make([]Block, len(blocks))
		for i, b := range blocks {
			rb[i] = Block{ID: b.ID, Bounds: b.Bounds, Field: Reversed{b.Field}}
		}
		if bwd, err = advectCentroids(ctx, rb, cfg, seeds, opts); err != nil {
			return nil, fmt.Errorf("reverse tracking: %w", err)
		}
	}

	o := &CentroidalTracks{
		Pathlines: make([][]r3.Vec, len(blocks)),
		BlockIDs:  make([]int, len(blocks)),
		TStart:    make([]float64, len(blocks)),
		TEnd:      make([]float64, len(blocks)),
	}
	for k, b := range blocks {
		var pl []r3.Vec
		if bwd != nil {
			ar := bwd.Trajectories[k]
			for i := len(ar) - 1; i >= 0; i-- {
				pl = append(pl, ar[i]) // reverse array
			}
			o.TStart[k] = -bwd.Particles[k].Time // reverse tracking time
		}
		pl = append(pl, seeds[k].Pos)
		pl = append(pl, fwd.Trajectories[k]...)
		o.Pathlines[k] = pl
		o.BlockIDs[k] = b.ID
		o.TEnd[k] = fwd.Particles[k].Time
		o.Vertices += len(pl)
	}
	return o, nil
}

func advectCentroids(ctx context.Context, blocks []Block, cfg Config, seeds []Seed, opts []Option) (*Result, error) {
	a, err := NewAdvector(blocks, nil, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx, seeds)
}
