package advect

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/spatial/r3"
)

// WellField is a steady two-dimensional potential flow within a box: a uniform
// regional flow plus a single well, with a vertical velocity varying linearly from
// the bottom of the box. The lateral solution follows the complex discharge of the
// Waterloo method (Ramadhan, M., 2015, A Semi-Analytical Particle Tracking Algorithm
// for Arbitrary Unstructured Grids. MASc. Thesis, University of Waterloo).
// Positions within Radius of the well lie outside the field, so a particle reaching
// the well exits its block there.
type WellField struct {
	steady
	Bounds Box
	Q0     complex128 // regional specific discharge, qx + i qy [L/T]
	Zw     complex128 // well coordinate, x + i y
	Qwell  float64    // well discharge per unit thickness [L2/T], negative for pumping
	Radius float64    // well capture radius
	Qbot   float64    // vertical specific discharge at the bottom of the box, positive up
	Dqz    float64    // vertical discharge gradient [1/T]
	Por    float64    // porosity
}

// NewWellField WellField constructor
func NewWellField(b Box, qx, qy float64, zw complex128, qwell, radius, por float64) *WellField {
	if por <= 0. {
		por = 1.
	}
	return &WellField{Bounds: b, Q0: complex(qx, qy), Zw: zw, Qwell: qwell, Radius: radius, Por: por}
}

// cmplxVel returns the complex conjugate velocity vx - i vy (eq. 3.16)
func (w *WellField) cmplxVel(z complex128) complex128 {
	o := cmplx.Conj(w.Q0)
	if w.Qwell != 0. {
		o += complex(w.Qwell/2./math.Pi, 0.) / (z - w.Zw)
	}
	return o
}

// Evaluate returns the velocity vector for a given (x,y,z) coordinate
func (w *WellField) Evaluate(pos r3.Vec, _ float64) (EvaluatorStatus, r3.Vec) {
	if !w.IsWithinSpatialBoundary(pos) {
		return EvalOutsideSpatialBounds, r3.Vec{}
	}
	o := w.cmplxVel(complex(pos.X, pos.Y))
	if cmplx.IsNaN(o) || cmplx.IsInf(o) {
		return EvalFail, r3.Vec{}
	}
	vz := w.Qbot + (pos.Z-w.Bounds.Min.Z)*w.Dqz
	return EvalSuccess, r3.Scale(1./w.Por, r3.Vec{X: real(o), Y: -imag(o), Z: vz})
}

// IsWithinSpatialBoundary returns false outside the box or within the well radius
func (w *WellField) IsWithinSpatialBoundary(pos r3.Vec) bool {
	if !w.Bounds.Contains(pos) {
		return false
	}
	return w.Qwell == 0. || cmplx.Abs(complex(pos.X, pos.Y)-w.Zw) > w.Radius
}

func (w *WellField) SpatialBoundary() Box { return w.Bounds }

// Captured returns true if pos lies within the well's capture radius
func (w *WellField) Captured(pos r3.Vec) bool {
	return w.Qwell != 0. && cmplx.Abs(complex(pos.X, pos.Y)-w.Zw) <= w.Radius
}

// ReverseVectorField flips the field for backward tracking
func (w *WellField) ReverseVectorField() {
	w.Q0 = -w.Q0
	w.Qwell = -w.Qwell
	w.Qbot = -w.Qbot
	w.Dqz = -w.Dqz
}
