package advect

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// steady supplies the unbounded time range of a steady-state field
type steady struct{}

func (steady) IsWithinTemporalBoundary(t float64) bool { return !math.IsNaN(t) }

func (steady) TemporalBoundary(e Endpoint) float64 {
	if e == Lower {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// UniformField uses a uniform velocity vector within a box
type UniformField struct {
	steady
	Bounds Box
	V      r3.Vec
}

// NewUniformField UniformField constructor
func NewUniformField(b Box, v r3.Vec) *UniformField {
	return &UniformField{Bounds: b, V: v}
}

// Evaluate returns the velocity vector for a given (x,y,z) coordinate
func (uf *UniformField) Evaluate(pos r3.Vec, _ float64) (EvaluatorStatus, r3.Vec) {
	if !uf.Bounds.Contains(pos) {
		return EvalOutsideSpatialBounds, r3.Vec{}
	}
	return EvalSuccess, uf.V
}

func (uf *UniformField) IsWithinSpatialBoundary(pos r3.Vec) bool { return uf.Bounds.Contains(pos) }

func (uf *UniformField) SpatialBoundary() Box { return uf.Bounds }

// ReverseVectorField flips the field for backward tracking
func (uf *UniformField) ReverseVectorField() {
	uf.V = r3.Scale(-1., uf.V)
}

// RotationField is a rigid rotation about an axis parallel to z: v = omega k x (p - c)
type RotationField struct {
	steady
	Bounds Box
	Center r3.Vec
	Omega  float64 // angular velocity [rad/T], positive counter-clockwise
}

// NewRotationField RotationField constructor
func NewRotationField(b Box, center r3.Vec, omega float64) *RotationField {
	return &RotationField{Bounds: b, Center: center, Omega: omega}
}

// Evaluate returns the velocity vector for a given (x,y,z) coordinate
func (rf *RotationField) Evaluate(pos r3.Vec, _ float64) (EvaluatorStatus, r3.Vec) {
	if !rf.Bounds.Contains(pos) {
		return EvalOutsideSpatialBounds, r3.Vec{}
	}
	d := r3.Sub(pos, rf.Center)
	return EvalSuccess, r3.Vec{X: -rf.Omega * d.Y, Y: rf.Omega * d.X}
}

func (rf *RotationField) IsWithinSpatialBoundary(pos r3.Vec) bool { return rf.Bounds.Contains(pos) }

func (rf *RotationField) SpatialBoundary() Box { return rf.Bounds }

// ReverseVectorField flips the sense of rotation
func (rf *RotationField) ReverseVectorField() { rf.Omega *= -1. }

// Reversed negates the velocity of any field, for backward tracing of steady fields
type Reversed struct {
	VelocityFielder
}

// Evaluate returns the negated velocity of the wrapped field
func (r Reversed) Evaluate(pos r3.Vec, t float64) (EvaluatorStatus, r3.Vec) {
	st, v := r.VelocityFielder.Evaluate(pos, t)
	return st, r3.Scale(-1., v)
}

// TimeWindow restricts a field to the time range [T0, T1]
type TimeWindow struct {
	VelocityFielder
	T0, T1 float64
}

// Evaluate samples the wrapped field inside the time window
func (tw TimeWindow) Evaluate(pos r3.Vec, t float64) (EvaluatorStatus, r3.Vec) {
	if !tw.IsWithinTemporalBoundary(t) {
		return EvalOutsideTemporalBounds, r3.Vec{}
	}
	return tw.VelocityFielder.Evaluate(pos, t)
}

func (tw TimeWindow) IsWithinTemporalBoundary(t float64) bool { return t >= tw.T0 && t <= tw.T1 }

func (tw TimeWindow) TemporalBoundary(e Endpoint) float64 {
	if e == Lower {
		return tw.T0
	}
	return tw.T1
}
