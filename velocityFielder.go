package advect

import "gonum.org/v1/gonum/spatial/r3"

// EvaluatorStatus is the outcome of sampling a field
type EvaluatorStatus int

const (
	EvalSuccess EvaluatorStatus = iota
	EvalOutsideSpatialBounds
	EvalOutsideTemporalBounds
	EvalFail
)

// Endpoint selects one end of a field's time range
type Endpoint int

const (
	Lower Endpoint = iota
	Upper
)

// VelocityFielder interface for the field a block advects through. Implementations
// must be safe for concurrent use; they are only read during a run.
type VelocityFielder interface {
	Evaluate(pos r3.Vec, t float64) (EvaluatorStatus, r3.Vec)
	IsWithinSpatialBoundary(pos r3.Vec) bool
	IsWithinTemporalBoundary(t float64) bool
	SpatialBoundary() Box
	TemporalBoundary(e Endpoint) float64
}
