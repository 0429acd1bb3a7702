package advect

const (
	maxDoublings      = 20      // small-step denominators run up to 1<<20
	defaultTolerance  = 1e-6    // small-step convergence, relative to the block diagonal
	defaultStallHops  = 8       // zero-advance migrations before a particle is abandoned
	parallelThreshold = 64      // below this, a block's particles are stepped on one goroutine
	epsilon           = 0x1p-52 // float64 machine epsilon
	clampSlack        = 1e-6    // fraction of a step below which the time bound counts as reached
)
