package advect

import "gonum.org/v1/gonum/spatial/r3"

// rk4Velocity returns the classical 4th-order Runge-Kutta velocity over a step of length dt
func rk4Velocity(f VelocityFielder, p r3.Vec, t, dt float64) (IntegratorStatus, r3.Vec) {
	hdt := dt / 2.

	st, k1 := f.Evaluate(p, t)
	if st != EvalSuccess {
		return convertStatus(st), r3.Vec{}
	}
	st, k2 := f.Evaluate(r3.Add(p, r3.Scale(hdt, k1)), t+hdt)
	if st != EvalSuccess {
		return convertStatus(st), r3.Vec{}
	}
	st, k3 := f.Evaluate(r3.Add(p, r3.Scale(hdt, k2)), t+hdt)
	if st != EvalSuccess {
		return convertStatus(st), r3.Vec{}
	}
	st, k4 := f.Evaluate(r3.Add(p, r3.Scale(dt, k3)), t+dt)
	if st != EvalSuccess {
		return convertStatus(st), r3.Vec{}
	}

	// (k1 + 2k2 + 2k3 + k4) / 6
	v := r3.Add(r3.Add(k1, r3.Scale(2., k2)), r3.Add(r3.Scale(2., k3), k4))
	return IntegratorSuccess, r3.Scale(1./6., v)
}
