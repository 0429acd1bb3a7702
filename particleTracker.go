package advect

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// IntegratorStatus is the outcome of a step attempt
type IntegratorStatus int

const (
	IntegratorSuccess IntegratorStatus = iota
	OutsideSpatialBounds
	OutsideTemporalBounds
	IntegratorFail
)

func (s IntegratorStatus) String() string {
	switch s {
	case IntegratorSuccess:
		return "SUCCESS"
	case OutsideSpatialBounds:
		return "OUTSIDE_SPATIAL_BOUNDS"
	case OutsideTemporalBounds:
		return "OUTSIDE_TEMPORAL_BOUNDS"
	}
	return "FAIL"
}

func convertStatus(s EvaluatorStatus) IntegratorStatus {
	switch s {
	case EvalSuccess:
		return IntegratorSuccess
	case EvalOutsideSpatialBounds:
		return OutsideSpatialBounds
	case EvalOutsideTemporalBounds:
		return OutsideTemporalBounds
	}
	return IntegratorFail
}

// IntegratorKind selects the particle pathline integration scheme
type IntegratorKind int

const (
	Euler IntegratorKind = iota
	RK4
)

// ParseIntegratorKind parses "euler" or "rk4"
func ParseIntegratorKind(s string) (IntegratorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euler":
		return Euler, nil
	case "rk4", "rungekutta", "runge-kutta":
		return RK4, nil
	}
	return 0, fmt.Errorf("%w: unknown integrator %q", ErrInvalidConfig, s)
}

func (k IntegratorKind) String() string {
	if k == RK4 {
		return "rk4"
	}
	return "euler"
}

func (k IntegratorKind) MarshalYAML() (interface{}, error) { return k.String(), nil }

func (k *IntegratorKind) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseIntegratorKind(n.Value)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// velocityFunc returns the velocity that advances a particle at (p,t) over a step dt
type velocityFunc func(f VelocityFielder, p r3.Vec, t, dt float64) (IntegratorStatus, r3.Vec)

// Integrator advances particles through a VelocityFielder with a fixed step length
type Integrator struct {
	Kind       IntegratorKind
	StepLength float64
	Tolerance  float64 // small-step convergence, relative to the field's diagonal
}

func (it Integrator) velocity() velocityFunc {
	if it.Kind == RK4 {
		return rk4Velocity
	}
	return eulerVelocity
}

// clamp shortens dt so that t+dt does not pass the field's upper time bound. A
// remainder within clampSlack*dt of the bound is treated as the bound itself.
func clamp(f VelocityFielder, t, dt float64) float64 {
	tx := f.TemporalBoundary(Upper)
	r := tx - t
	switch {
	case r > dt+epsilon:
		return dt
	case r <= clampSlack*dt:
		return 0.
	}
	return math.Min(dt, r)
}

func finite(v r3.Vec) bool {
	return !(math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) ||
		math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) || math.IsInf(v.Z, 0))
}

// checkStep computes the step velocity, rejecting non-finite samples
func (it Integrator) checkStep(f VelocityFielder, p r3.Vec, t, dt float64) (IntegratorStatus, r3.Vec) {
	st, v := it.velocity()(f, p, t, dt)
	if st == IntegratorSuccess && !finite(v) {
		return IntegratorFail, r3.Vec{}
	}
	return st, v
}

// Step advances a particle by one step. Position and time are returned unchanged
// unless the status is IntegratorSuccess. A step that would land outside the
// spatial boundary reports OutsideSpatialBounds; SmallStep then locates the exit.
func (it Integrator) Step(f VelocityFielder, p r3.Vec, t float64) (IntegratorStatus, r3.Vec, float64) {
	if !f.IsWithinSpatialBoundary(p) {
		return OutsideSpatialBounds, p, t
	}
	if !f.IsWithinTemporalBoundary(t) {
		return OutsideTemporalBounds, p, t
	}
	dt := clamp(f, t, it.StepLength)
	if dt <= 0. {
		return OutsideTemporalBounds, p, t
	}
	st, v := it.checkStep(f, p, t, dt)
	if st != IntegratorSuccess {
		return st, p, t
	}
	out := r3.Add(p, r3.Scale(dt, v))
	if !f.IsWithinSpatialBoundary(out) {
		return OutsideSpatialBounds, p, t
	}
	return IntegratorSuccess, out, t + dt
}

// SmallStep moves a particle that is inside the spatial boundary, but whose next
// step is not, to just outside the boundary. It searches for the longest sub-step
// that stays inside by halving the increment (up to 1<<20), then pushes the particle
// out, doubling an epsilon-sized push until it leaves. advanced reports whether a sub-step of
// positive length was found. The status is always OutsideSpatialBounds; a particle
// that starts outside its spatial or temporal range is returned unchanged.
func (it Integrator) SmallStep(f VelocityFielder, p r3.Vec, t float64) (st IntegratorStatus, out r3.Vec, tout float64, advanced bool) {
	if !f.IsWithinSpatialBoundary(p) {
		return OutsideSpatialBounds, p, t, false
	}
	dt := clamp(f, t, it.StepLength)
	if !f.IsWithinTemporalBoundary(t) || dt <= 0. {
		return OutsideSpatialBounds, p, t, false
	}

	// velocity at the start, used if no sub-step succeeds
	est, v0 := f.Evaluate(p, t)
	if est != EvalSuccess || !finite(v0) || r3.Norm(v0) == 0. {
		return OutsideSpatialBounds, p, t, false
	}

	bnds := f.SpatialBoundary()
	tol := it.Tolerance
	if tol <= 0. {
		tol = defaultTolerance
	}
	tol *= bnds.Diagonal()
	speed := r3.Norm(v0)

	work, wt := p, t
	lo, hi := 0., dt // longest length inside, shortest length known to leave
	var (
		beyond  r3.Vec // landing point of the shortest leaving sub-step
		hasExit bool
	)
	for k := 1; k <= maxDoublings; k++ {
		inc := dt / float64(int64(1)<<k)
		l := lo + inc
		if s, v := it.checkStep(f, p, t, l); s == IntegratorSuccess {
			if c := r3.Add(p, r3.Scale(l, v)); f.IsWithinSpatialBoundary(c) {
				work, wt, lo = c, t+l, l
			} else {
				beyond, hasExit, hi = c, true, l
			}
		} else {
			hi = l
		}
		if inc*speed <= tol {
			break
		}
	}

	// final Euler push out of the boundary
	v := v0
	if s, vw := f.Evaluate(work, wt); s == EvalSuccess && finite(vw) && r3.Norm(vw) > 0. {
		v = vw
	}
	dir, ext := r3.Unit(v), bnds.Extent()
	push := math.Inf(1)
	for _, c := range [][2]float64{{dir.X, ext.X}, {dir.Y, ext.Y}, {dir.Z, ext.Z}} {
		if c[0] != 0. && c[1] != 0. {
			push = math.Min(push, math.Abs(c[0]*epsilon*c[1]))
		}
	}
	if math.IsInf(push, 1) {
		push = epsilon
	}
	// the push grows until the point leaves; it may outrun hi-lo when the field slows
	out = r3.Add(work, r3.Scale(push, v))
	for i := 0; f.IsWithinSpatialBoundary(out) && i < 1100; i++ {
		push *= 2.
		out = r3.Add(work, r3.Scale(push, v))
	}
	if f.IsWithinSpatialBoundary(out) && hasExit {
		return OutsideSpatialBounds, beyond, t + hi, true
	}
	return OutsideSpatialBounds, out, wt + clamp(f, wt, push), lo > 0.
}
