package advect

import "gonum.org/v1/gonum/spatial/r3"

// eulerVelocity samples the field once at the start of the step
func eulerVelocity(f VelocityFielder, p r3.Vec, t, _ float64) (IntegratorStatus, r3.Vec) {
	st, v := f.Evaluate(p, t)
	return convertStatus(st), v
}
