package advect

import (
	"fmt"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"gonum.org/v1/gonum/spatial/r3"
)

// ExportGeoJSON saves a run as a feature collection: one linestring per pathline in
// Streamline mode, otherwise one point per particle at its final position
func ExportGeoJSON(fp string, res *Result, seeds []Seed) error {
	fc := geojson.NewFeatureCollection()

	if res.Mode == Streamline {
		pl, pxr := res.Pathlines(seeds)
		for i, pln := range pl {
			f := geojson.NewLineStringFeature(coords(pln))
			f.SetProperty("pid", pxr[i])
			f.SetProperty("status", res.Particles[pxr[i]].Status.String())
			f.SetProperty("cause", res.Particles[pxr[i]].Cause.String())
			fc.AddFeature(f)
		}
	} else {
		for _, p := range res.Particles {
			if p.Cause == CauseInvalidSeed {
				continue
			}
			f := geojson.NewPointFeature([]float64{p.Pos.X, p.Pos.Y, p.Pos.Z})
			f.SetProperty("pid", p.ID)
			f.SetProperty("time", p.Time)
			f.SetProperty("steps", p.Steps)
			f.SetProperty("bid", p.Block)
			f.SetProperty("status", p.Status.String())
			fc.AddFeature(f)
		}
	}

	rawJSON, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("MarshalJSON error: %w", err)
	}
	return os.WriteFile(fp, append(rawJSON, '\n'), 0644)
}

func coords(pln []r3.Vec) [][]float64 {
	c := make([][]float64, len(pln))
	for i, p := range pln {
		c[i] = []float64{p.X, p.Y, p.Z}
	}
	return c
}
