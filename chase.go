// Package chase is the public facade over the cache-boundary measurement
// core: it re-exports the small set of types and the one entry point
// (Run) that cmd/cachechase, or any other caller embedding this module as
// a library, needs. Everything else — the chase-graph construction, the
// timed kernel, the adaptive measurement loop, boundary detection — lives
// in internal/chase and is reached only through here.
package chase

import (
	"io"
	"log/slog"

	"github.com/jbrusegaard/cachechase/internal/chase/driver"
	"github.com/jbrusegaard/cachechase/internal/chase/order"
	"github.com/jbrusegaard/cachechase/internal/chase/types"
)

// Sample pairs a working-set size with its measured per-access latency.
type Sample = types.Sample

// Boundary records one detected cache-level capacity estimate.
type Boundary = types.Boundary

// Pattern names an OrderBuilder ordering policy (random, sequential,
// reverse, stride, interleave, gray, bitrev).
type Pattern = order.Pattern

// The seven supported ordering policies. See internal/chase/order for the
// construction rule each one follows.
const (
	Random     = order.Random
	Sequential = order.Sequential
	Reverse    = order.Reverse
	Stride     = order.Stride
	Interleave = order.Interleave
	Gray       = order.Gray
	Bitrev     = order.Bitrev
)

// ParsePattern validates a pattern name against the seven known values,
// returning an error for anything else. Use this to reject bad input at a
// CLI or config boundary; Config.Pattern itself falls back to Random on
// an unrecognized value rather than erroring, matching OrderBuilder's
// library contract.
func ParsePattern(s string) (Pattern, error) { return order.ParsePattern(s) }

// Config is the effective configuration for one measurement run. See
// DefaultConfig for the documented defaults and Run for how out-of-range
// values are normalized rather than rejected.
type Config = driver.Config

// DefaultConfig returns the documented defaults: min_bytes=4096,
// max_bytes=256MiB, node_stride=256, target_ms=80, repeats=3,
// warmup_iters=3, pattern=random, pattern_arg=1, print_table=true.
func DefaultConfig() Config { return driver.DefaultConfig() }

// Report is the complete result of one run: the measured curve and the
// boundaries detected over it.
type Report = driver.Report

// Run executes one full measurement sweep and returns the resulting
// Report. The data table (one tab-separated row per sample, when
// cfg.PrintTable is set) is written to out; recoverable diagnostics
// (allocation downsizing) are logged to errOut via log/slog. A nil errOut
// discards diagnostics.
func Run(cfg Config, out io.Writer, errOut io.Writer) (Report, error) {
	if errOut == nil {
		errOut = io.Discard
	}
	log := slog.New(slog.NewTextHandler(errOut, nil))
	return driver.Run(cfg, out, log)
}
