package advect

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Seed is the starting point of a particle
type Seed struct {
	Pos r3.Vec
	T   float64
}

// Particle struct
type Particle struct {
	I, Block int // particle id and the block currently holding it
	Pos      r3.Vec
	T        float64
	Steps    int
	Status   Status
}

// PrintState returns the particles current state in CSV format
func (p *Particle) PrintState() string {
	return fmt.Sprintf("%d,%v,%v,%v,%v,%d", p.I, p.Pos.X, p.Pos.Y, p.Pos.Z, p.T, p.Steps)
}

// Dist returns the Euclidian distance between to points
func (p *Particle) Dist(p1 *Particle) float64 {
	return r3.Norm(r3.Sub(p.Pos, p1.Pos))
}

// Status is the state of a particle. A new particle is OK; the transitions are
// OK->Terminated, OK->Exited(spatial|temporal) and OK->Error. Exits do not clear OK,
// termination and errors do.
type Status uint8

const (
	flagOK Status = 1 << iota
	flagTerminated
	flagExitedSpatial
	flagExitedTemporal
	flagError
)

// StatusOK returns the status of a particle ready for integration
func StatusOK() Status { return flagOK }

func (s Status) has(f Status) bool { return s&f != 0 }

// OK is true until the particle is terminated or errors
func (s Status) OK() bool { return s.has(flagOK) }

func (s Status) Terminated() bool { return s.has(flagTerminated) }

func (s Status) ExitedSpatialBoundary() bool { return s.has(flagExitedSpatial) }

func (s Status) ExitedTemporalBoundary() bool { return s.has(flagExitedTemporal) }

// Errored is true once the field could not be evaluated for the particle
func (s Status) Errored() bool { return s.has(flagError) }

// Integrateable returns true if the particle can take another step
func (s Status) Integrateable() bool {
	return s.OK() && !(s.Terminated() || s.ExitedSpatialBoundary() || s.ExitedTemporalBoundary())
}

// Done is the complement of Integrateable
func (s Status) Done() bool { return !s.Integrateable() }

// Terminate returns s with the step budget marked exhausted
func (s Status) Terminate() Status { return s&^flagOK | flagTerminated }

// Fail returns s marked as errored
func (s Status) Fail() Status { return s&^flagOK | flagError }

// ExitSpatial returns s marked as having left the spatial boundary
func (s Status) ExitSpatial() Status { return s | flagExitedSpatial }

// ExitTemporal returns s marked as having left the temporal boundary
func (s Status) ExitTemporal() Status { return s | flagExitedTemporal }

func (s Status) String() string {
	if s == 0 {
		return "NONE"
	}
	var sb []string
	for _, f := range []struct {
		f Status
		n string
	}{
		{flagOK, "OK"},
		{flagTerminated, "TERMINATED"},
		{flagExitedSpatial, "EXITED_SPATIAL_BOUNDARY"},
		{flagExitedTemporal, "EXITED_TEMPORAL_BOUNDARY"},
		{flagError, "ERROR"},
	} {
		if s.has(f.f) {
			sb = append(sb, f.n)
		}
	}
	return strings.Join(sb, "|")
}

// MarshalCSV renders the status for gocsv
func (s Status) MarshalCSV() (string, error) { return s.String(), nil }
