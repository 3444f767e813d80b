// Package measure implements the adaptive measurement loop: for a given
// working-set size it builds the chase graph, warms it, adaptively
// chooses an iteration count to hit a target wall time, repeats, and
// records the minimum per-access latency.
package measure

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/jbrusegaard/cachechase/internal/chase/graph"
	"github.com/jbrusegaard/cachechase/internal/chase/kernel"
	"github.com/jbrusegaard/cachechase/internal/chase/order"
	"github.com/jbrusegaard/cachechase/internal/chase/prng"
	"github.com/jbrusegaard/cachechase/internal/chase/timer"
	"github.com/jbrusegaard/cachechase/internal/chase/types"
)

// ErrClockUnavailable wraps a timer failure encountered mid-measurement.
var ErrClockUnavailable = errors.New("measure: clock unavailable")

// maxSteps caps the adaptive calibration loop's iteration count.
const maxSteps = uint64(1) << 62

// Params configures one call to Measure. Defaults (target_ms=80,
// repeats=3, warmup_iters=3) are applied by the caller (the chase
// package's Config), not here.
type Params struct {
	NodeStride  int
	Pattern     order.Pattern
	PatternArg  uint64
	TargetMS    int
	Repeats     int
	WarmupIters int
}

// Measure builds a chase graph spanning workingSetBytes within buf,
// warms it, adaptively calibrates a step count, and returns the minimum
// ns-per-access over Repeats timed runs. buf must be at least
// workingSetBytes (rounded up to a whole number of nodes) long; perm is
// reused scratch sized to at least numNodes.
func Measure(workingSetBytes uint64, p Params, buf []byte, perm []uint32, rng *prng.PRNG, tm timer.Timer) (types.Sample, error) {
	numNodes := int(workingSetBytes / uint64(p.NodeStride))
	if numNodes < 2 {
		numNodes = 2
	}

	order.Build(perm, numNodes, p.Pattern, p.PatternArg, rng)
	graph.Write(buf[:numNodes*p.NodeStride], p.NodeStride, perm[:numNodes])
	head := graph.Head(buf, p.NodeStride, 0)

	for i := 0; i < p.WarmupIters; i++ {
		kernel.Chase(head, uint64(numNodes))
	}

	steps, err := calibrate(head, numNodes, p.TargetMS, tm)
	if err != nil {
		return types.Sample{}, err
	}

	minNsPerAccess := math.Inf(1)
	for i := 0; i < p.Repeats; i++ {
		elapsedNS, err := runTimed(head, steps, tm)
		if err != nil {
			return types.Sample{}, err
		}
		ns := float64(elapsedNS) / float64(steps)
		if ns < minNsPerAccess {
			minNsPerAccess = ns
		}
	}

	return types.Sample{WorkingSetBytes: workingSetBytes, NsPerAccess: minNsPerAccess}, nil
}

// calibrate doubles steps, starting from max(1000, 16*numNodes), until a
// timed run takes at least half the target wall time, capping the
// result at maxSteps.
func calibrate(head unsafe.Pointer, numNodes int, targetMS int, tm timer.Timer) (uint64, error) {
	steps := uint64(16 * numNodes)
	if steps < 1000 {
		steps = 1000
	}

	targetNS := uint64(targetMS) * 1_000_000
	half := targetNS / 2

	for {
		elapsed, err := runTimed(head, steps, tm)
		if err != nil {
			return 0, err
		}
		if elapsed >= half || steps >= maxSteps {
			return steps, nil
		}
		if steps > maxSteps/2 {
			steps = maxSteps
		} else {
			steps *= 2
		}
	}
}

// runTimed brackets one chase of the given step count with clock reads,
// using runtime.KeepAlive on each reading to keep the compiler from
// reordering the clock reads relative to the chase loop they bracket —
// the Go-idiomatic stand-in for the source's compiler fence.
func runTimed(head unsafe.Pointer, steps uint64, tm timer.Timer) (uint64, error) {
	start, err := tm.NowNS()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}
	runtime.KeepAlive(start)

	kernel.Chase(head, steps)

	end, err := tm.NowNS()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}
	runtime.KeepAlive(end)

	if end < start {
		return 0, fmt.Errorf("%w: clock went backwards", ErrClockUnavailable)
	}
	return end - start, nil
}
