package advect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// LinearField is a velocity field varying linearly across a box, v = v0 + A (p - x0).
// With a diagonal A built from face velocities it is the semi-analytical field of
// Pollock, D.W., 1989, U.S. Geological Survey Open-File Report 89–381.
type LinearField struct {
	steady
	Bounds Box
	X0, V0 r3.Vec
	A      *mat.Dense // 3x3 velocity gradient
}

// NewLinearField LinearField constructor
func NewLinearField(b Box, x0, v0 r3.Vec, a *mat.Dense) (*LinearField, error) {
	if r, c := a.Dims(); r != 3 || c != 3 {
		return nil, fmt.Errorf("linear field gradient must be 3x3, got %dx%d", r, c)
	}
	return &LinearField{Bounds: b, X0: x0, V0: v0, A: a}, nil
}

// NewPollockField builds the linear field of a rectilinear cell from its normal face
// velocities (positive in +x, +y, +z) ' 0:left/front/bottom, 1:right/back/top
func NewPollockField(b Box, vx0, vx1, vy0, vy1, vz0, vz1 float64) *LinearField {
	ext := b.Extent()
	grad := func(v0, v1, d float64) float64 {
		if d == 0. {
			return 0.
		}
		return (v1 - v0) / d
	}
	a := mat.NewDiagDense(3, []float64{grad(vx0, vx1, ext.X), grad(vy0, vy1, ext.Y), grad(vz0, vz1, ext.Z)})
	return &LinearField{
		Bounds: b,
		X0:     b.Min,
		V0:     r3.Vec{X: vx0, Y: vy0, Z: vz0},
		A:      mat.DenseCopyOf(a),
	}
}

// Evaluate returns the velocity vector for a given (x,y,z) coordinate
func (lf *LinearField) Evaluate(pos r3.Vec, _ float64) (EvaluatorStatus, r3.Vec) {
	if !lf.Bounds.Contains(pos) {
		return EvalOutsideSpatialBounds, r3.Vec{}
	}
	d := r3.Sub(pos, lf.X0)
	var av mat.VecDense
	av.MulVec(lf.A, mat.NewVecDense(3, []float64{d.X, d.Y, d.Z}))
	v := r3.Add(lf.V0, r3.Vec{X: av.AtVec(0), Y: av.AtVec(1), Z: av.AtVec(2)})
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
		return EvalFail, r3.Vec{}
	}
	return EvalSuccess, v
}

func (lf *LinearField) IsWithinSpatialBoundary(pos r3.Vec) bool { return lf.Bounds.Contains(pos) }

func (lf *LinearField) SpatialBoundary() Box { return lf.Bounds }

// ReverseVectorField flips the field for backward tracking
func (lf *LinearField) ReverseVectorField() {
	lf.V0 = r3.Scale(-1., lf.V0)
	lf.A.Scale(-1., lf.A)
}

// ExitTime returns the analytical time for a particle at pos to reach a face of the
// cell, or +Inf if it never leaves. Only valid when A is diagonal.
func (lf *LinearField) ExitTime(pos r3.Vec) float64 {
	_, v := lf.Evaluate(pos, 0.)
	texit := func(v0, a, p, vp, lo, hi float64) float64 {
		switch {
		case vp > 0.:
			if a == 0. {
				return (hi - p) / vp
			}
			if v1 := v0 + a*(hi-lo); v1 > 0. {
				return math.Log(v1/vp) / a
			}
		case vp < 0.:
			if a == 0. {
				return (lo - p) / vp
			}
			if v0 < 0. {
				return math.Log(v0/vp) / a
			}
		}
		return math.Inf(1)
	}
	tx := texit(lf.V0.X, lf.A.At(0, 0), pos.X, v.X, lf.X0.X, lf.Bounds.Max.X)
	ty := texit(lf.V0.Y, lf.A.At(1, 1), pos.Y, v.Y, lf.X0.Y, lf.Bounds.Max.Y)
	tz := texit(lf.V0.Z, lf.A.At(2, 2), pos.Z, v.Z, lf.X0.Z, lf.Bounds.Max.Z)
	return math.Min(tx, math.Min(ty, tz))
}

// Trace returns the analytical position of a particle starting at pos after time dt.
// Only valid when A is diagonal and the particle stays in the cell.
func (lf *LinearField) Trace(pos r3.Vec, dt float64) r3.Vec {
	_, v := lf.Evaluate(pos, 0.)
	update := func(x0, v0, vp, a, p float64) float64 {
		if a == 0. {
			return p + vp*dt
		}
		return x0 + (vp*math.Exp(a*dt)-v0)/a
	}
	return r3.Vec{
		X: update(lf.X0.X, lf.V0.X, v.X, lf.A.At(0, 0), pos.X),
		Y: update(lf.X0.Y, lf.V0.Y, v.Y, lf.A.At(1, 1), pos.Y),
		Z: update(lf.X0.Z, lf.V0.Z, v.Z, lf.A.At(2, 2), pos.Z),
	}
}
