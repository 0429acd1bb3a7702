package advect

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// WriteParticlesCSV writes one row per particle record, with a header
func WriteParticlesCSV(w io.Writer, records []ParticleRecord) error {
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("writing particles: %w", err)
	}
	return nil
}

type pathlineRow struct {
	ParticleID int     `csv:"pid"`
	Vertex     int     `csv:"vid"`
	X          float64 `csv:"x"`
	Y          float64 `csv:"y"`
	Z          float64 `csv:"z"`
}

// WritePathlinesCSV writes one row per pathline vertex
func WritePathlinesCSV(w io.Writer, res *Result) error {
	var rows []pathlineRow
	for pid, t := range res.Trajectories {
		for j, p := range t {
			rows = append(rows, pathlineRow{pid, j, p.X, p.Y, p.Z})
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing pathlines: %w", err)
	}
	return nil
}
