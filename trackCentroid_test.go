package advect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackCentroidalParticles(t *testing.T) {
	blocks := []Block{
		uniformBlock(0, NewBox(0, 0, 0, 10, 2, 2), vec(1, 0, 0)),
		uniformBlock(1, NewBox(10, 0, 0, 20, 2, 2), vec(1, 0, 0)),
	}
	cfg := testConfig(RK4, 1., 100)

	t.Run("forward", func(t *testing.T) {
		ct, err := TrackCentroidalParticles(context.Background(), blocks, cfg, false)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, ct.BlockIDs)
		require.Len(t, ct.Pathlines[0], 16)
		assert.Equal(t, vec(5, 1, 1), ct.Pathlines[0][0])
		assert.Len(t, ct.Pathlines[1], 6)
		assert.Equal(t, []float64{0, 0}, ct.TStart)
		assert.InDelta(t, 15., ct.TEnd[0], 1e-9)
		assert.Equal(t, 22, ct.Vertices)
	})

	t.Run("both ways", func(t *testing.T) {
		ct, err := TrackCentroidalParticles(context.Background(), blocks, cfg, true)
		require.NoError(t, err)
		for k, pl := range ct.Pathlines {
			require.Len(t, pl, 21, "block %d", k)
			for i := 1; i < len(pl); i++ {
				assert.Greater(t, pl[i].X, pl[i-1].X, "block %d vertex %d", k, i)
			}
		}
		assert.InDelta(t, -5., ct.TStart[0], 1e-9)
		assert.InDelta(t, 15., ct.TEnd[0], 1e-9)
		assert.InDelta(t, -15., ct.TStart[1], 1e-4)
		assert.InDelta(t, 5., ct.TEnd[1], 1e-9)
		assert.Equal(t, vec(15, 1, 1), ct.Pathlines[1][15])
		assert.Equal(t, 42, ct.Vertices)
	})
}
