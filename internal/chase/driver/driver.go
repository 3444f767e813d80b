// Package driver allocates the buffer (with fallback-on-OOM shrinking),
// orchestrates size generation and measurement, and runs boundary
// detection over the resulting curve.
package driver

import (
	"fmt"
	"io"
	"log/slog"
	"unsafe"

	"github.com/jbrusegaard/cachechase/internal/chase/boundary"
	"github.com/jbrusegaard/cachechase/internal/chase/humanize"
	"github.com/jbrusegaard/cachechase/internal/chase/measure"
	"github.com/jbrusegaard/cachechase/internal/chase/order"
	"github.com/jbrusegaard/cachechase/internal/chase/prng"
	"github.com/jbrusegaard/cachechase/internal/chase/sizeset"
	"github.com/jbrusegaard/cachechase/internal/chase/timer"
	"github.com/jbrusegaard/cachechase/internal/chase/types"
)

// Report is the complete result of one run: the measured curve and the
// boundaries detected over it.
type Report struct {
	Samples    []types.Sample
	Boundaries []types.Boundary
	// AllocatedBytes is the actual buffer size used, which may be
	// smaller than Config.MaxBytes if large sizes were shed after an
	// allocation failure.
	AllocatedBytes uint64
}

// Run executes one full measurement sweep: generate sizes, allocate the
// buffer (shrinking on failure), iterate Measure across sizes streaming
// rows to out when cfg.PrintTable, then run boundary detection.
// Diagnostics (configuration clamps, downsizing) are logged to log via
// log/slog; fatal conditions, including clock failure, are returned as
// an error.
func Run(cfg Config, out io.Writer, log *slog.Logger) (Report, error) {
	cfg, notes := cfg.Normalize()
	for _, n := range notes {
		log.Warn("configuration clamped", "detail", n)
	}

	sizes := sizeset.Generate(cfg.MinBytes, cfg.MaxBytes)
	if len(sizes) == 0 {
		return Report{}, fmt.Errorf("%w: no working-set sizes in [%d, %d]", ErrInvalidConfiguration, cfg.MinBytes, cfg.MaxBytes)
	}

	buf, sizes, err := allocateWithShrink(sizes, cfg.NodeStride, log)
	if err != nil {
		return Report{}, err
	}
	for i := range buf {
		buf[i] = 0
	}

	maxNodes := int(sizes[len(sizes)-1] / uint64(cfg.NodeStride))
	if maxNodes < 2 {
		maxNodes = 2
	}
	perm := make([]uint32, maxNodes)

	tm := timer.New()
	rng := prng.NewSeeded()

	params := measure.Params{
		NodeStride:  cfg.NodeStride,
		Pattern:     cfg.Pattern,
		PatternArg:  cfg.PatternArg,
		TargetMS:    cfg.TargetMS,
		Repeats:     cfg.Repeats,
		WarmupIters: cfg.WarmupIters,
	}

	if cfg.PrintTable {
		printHeader(out, cfg)
	}

	samples := make([]types.Sample, 0, len(sizes))
	for _, size := range sizes {
		sample, err := measure.Measure(size, params, buf, perm, rng, tm)
		if err != nil {
			return Report{}, fmt.Errorf("measuring size %d: %w", size, err)
		}
		samples = append(samples, sample)

		if cfg.PrintTable {
			fmt.Fprintf(out, "%d\t%.3f\n", sample.WorkingSetBytes, sample.NsPerAccess)
		}
	}

	boundaries := boundary.Detect(samples)
	printSummary(out, boundaries)

	return Report{
		Samples:        samples,
		Boundaries:     boundaries,
		AllocatedBytes: uint64(len(buf)),
	}, nil
}

// printHeader writes the two leading comment lines describing the run's
// node_stride and pattern, including the step argument when the pattern
// is stride.
func printHeader(out io.Writer, cfg Config) {
	if cfg.Pattern == order.Stride {
		fmt.Fprintf(out, "# Cache size detection via pointer-chasing (node_stride=%db, pattern=%s, step=%d)\n",
			cfg.NodeStride, cfg.Pattern, cfg.PatternArg)
	} else {
		fmt.Fprintf(out, "# Cache size detection via pointer-chasing (node_stride=%db, pattern=%s)\n",
			cfg.NodeStride, cfg.Pattern)
	}
	fmt.Fprintln(out, "# size_bytes\tlatency_ns_per_access")
}

// printSummary writes the blank-line-separated boundary report that
// follows the data table. An empty boundaries slice prints a single
// explanatory line instead of the bullet list.
func printSummary(out io.Writer, boundaries []types.Boundary) {
	fmt.Fprintln(out)
	if len(boundaries) == 0 {
		fmt.Fprintln(out, "No cache boundaries detected in the measured range.")
		return
	}

	fmt.Fprintln(out, "Detected cache levels (approx):")
	for _, b := range boundaries {
		fmt.Fprintf(out, "- %s capacity ~ %s (jump x%.2f)\n", b.Label, humanize.Bytes(b.ApproxSizeBytes), b.Ratio)
	}
}

// allocateWithShrink allocates a buffer sized to the largest candidate
// size, whose first byte is aligned to nodeStride (not just to pointer
// width), retrying at the next smaller size on failure. Failure at the
// smallest size is fatal. Returns the possibly-shrunk size list alongside
// the buffer so callers never measure a size larger than what was
// actually allocated.
func allocateWithShrink(sizes []uint64, nodeStride int, log *slog.Logger) ([]byte, []uint64, error) {
	for len(sizes) > 0 {
		largest := sizes[len(sizes)-1]
		allocBytes := alignUp(largest, uint64(nodeStride))

		buf, err := safeAlignedAlloc(allocBytes, uint64(nodeStride))
		if err == nil {
			return buf, sizes, nil
		}

		if len(sizes) == 1 {
			return nil, nil, fmt.Errorf("%w: smallest configured size %d: %v", ErrAllocationFailure, largest, err)
		}

		log.Warn("allocation failed, shrinking working-set list", "requested_bytes", allocBytes, "error", err)
		sizes = sizes[:len(sizes)-1]
	}
	return nil, nil, fmt.Errorf("%w: no sizes left to try", ErrAllocationFailure)
}

// safeAlignedAlloc returns a []byte of exactly n bytes whose first byte
// sits at an address that is a multiple of align. Go's make has no
// native aligned allocation, so this over-allocates by up to align-1
// extra bytes and slices from the first aligned offset within that
// backing array. Runtime panics Go raises for unreasonable slice lengths
// are converted into an error so the caller can shrink and retry instead
// of crashing the process. A true physical out-of-memory condition may
// still be an unrecoverable runtime fatal error outside Go's control;
// this only catches the recoverable class (oversized length, allocator
// refusal).
func safeAlignedAlloc(n, align uint64) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("allocation panic: %v", r)
		}
	}()

	if align <= 1 {
		buf = make([]byte, n)
		return buf, nil
	}

	raw := make([]byte, n+align-1)
	base := uint64(uintptr(unsafe.Pointer(&raw[0])))
	rem := base % align
	offset := uint64(0)
	if rem != 0 {
		offset = align - rem
	}
	buf = raw[offset : offset+n : offset+n]
	return buf, nil
}

func alignUp(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}
