package advect

import "errors"

// Run-level errors. These abort a run before any particle is stepped.
var (
	ErrNoBlocks           = errors.New("advect: no domain blocks")
	ErrMalformedBoundsMap = errors.New("advect: malformed bounds map")
	ErrInvalidConfig      = errors.New("advect: invalid run configuration")
	ErrNoValidSeeds       = errors.New("advect: every seed lies outside the domain")

	// ErrDegenerateEvaluation reports a field that cannot produce a velocity at an in-bounds point.
	ErrDegenerateEvaluation = errors.New("advect: degenerate field evaluation")

	// ErrInvalidSeed is attached to a SeedRejection when a seed lies outside every block.
	ErrInvalidSeed = errors.New("advect: seed outside all blocks")
)

// Cause records why a particle stopped. It never aborts a run.
type Cause int

const (
	CauseNone                 Cause = iota
	CauseStepBudgetExhausted        // expected termination
	CauseUnresolvedExit             // left the whole domain
	CauseTemporalExit               // left the field's time range
	CauseDegenerateEvaluation       // the field could not produce a velocity in bounds
	CauseStalled                    // migrated back and forth without taking a step
	CauseInvalidSeed                // rejected before the run
)

func (c Cause) String() string {
	switch c {
	case CauseStepBudgetExhausted:
		return "step_budget_exhausted"
	case CauseUnresolvedExit:
		return "unresolved_exit"
	case CauseTemporalExit:
		return "temporal_exit"
	case CauseDegenerateEvaluation:
		return "degenerate_evaluation"
	case CauseStalled:
		return "stalled"
	case CauseInvalidSeed:
		return "invalid_seed"
	}
	return "none"
}

// MarshalCSV renders the cause for gocsv
func (c Cause) MarshalCSV() (string, error) { return c.String(), nil }

// Err returns the sentinel error of a failure cause, nil for causes that are not failures
func (c Cause) Err() error {
	switch c {
	case CauseDegenerateEvaluation:
		return ErrDegenerateEvaluation
	case CauseInvalidSeed:
		return ErrInvalidSeed
	}
	return nil
}
