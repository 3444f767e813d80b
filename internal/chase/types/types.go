// Package types holds the small data shapes shared across the
// measurement core (Sample, Boundary) so that leaf packages like boundary
// and measure don't need to import the top-level chase facade package,
// which would create an import cycle.
package types

// Sample pairs a working-set size with the measured per-access latency at
// that size. Samples are produced in ascending size order.
type Sample struct {
	WorkingSetBytes uint64
	NsPerAccess     float64
}

// Boundary records a detected cache-level capacity estimate.
type Boundary struct {
	ApproxSizeBytes uint64
	Ratio           float64
	// Label is a positional, cosmetic name (L1, L2, L3, L4, L?) assigned
	// in emission order — see the boundary package's doc comment for why
	// it is not a reliable cache-level identifier.
	Label string
}
