// Package humanize formats byte counts into the {B, KiB, MiB, GiB}
// one-fractional-digit strings used in the boundary summary.
package humanize

import "fmt"

// Bytes formats n using the largest unit for which the value is >= 1,
// with one fractional digit; plain bytes also carry it (1023 -> "1023.0 B").
func Bytes(n uint64) string {
	const (
		kib = 1024
		mib = kib * 1024
		gib = mib * 1024
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%.1f B", float64(n))
	}
}
