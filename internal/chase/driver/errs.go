package driver

import "errors"

// ErrAllocationFailure is returned when even the smallest configured
// working-set size cannot be allocated. Allocation failure at any larger
// size is recovered from by shrinking the candidate size list instead of
// surfacing this error.
var ErrAllocationFailure = errors.New("driver: allocation failure")

// ErrInvalidConfiguration is returned by Run when the normalized
// configuration yields no working-set sizes to measure. Out-of-range
// fields themselves are clamped by Config.Normalize rather than rejected.
var ErrInvalidConfiguration = errors.New("driver: invalid configuration")
