package measure

import (
	"testing"

	"github.com/jbrusegaard/cachechase/internal/chase/graph"
	"github.com/jbrusegaard/cachechase/internal/chase/order"
	"github.com/jbrusegaard/cachechase/internal/chase/prng"
	"github.com/jbrusegaard/cachechase/internal/chase/timer"
	"github.com/stretchr/testify/require"
)

// fakeTimer reports a fixed elapsed duration per NowNS call, regardless
// of how much work happened in between. perCall must exceed half the
// target duration so calibrate accepts the very first candidate step
// count instead of doubling toward maxSteps — the fake timer can't see
// that real work scales with steps, so the test keeps it constant and
// lets the config's target do the gating instead.
type fakeTimer struct {
	now     uint64
	perCall uint64
}

func (f *fakeTimer) NowNS() (uint64, error) {
	v := f.now
	f.now += f.perCall
	return v, nil
}

func TestMeasureReturnsPlausibleSample(t *testing.T) {
	const stride = 64
	const nodes = 256
	buf := make([]byte, nodes*stride)
	perm := make([]uint32, nodes)

	p := Params{
		NodeStride:  stride,
		Pattern:     order.Sequential,
		TargetMS:    10,
		Repeats:     3,
		WarmupIters: 1,
	}

	// target half = 5,000,000ns; perCall well above that so calibrate
	// stops after the first timed run.
	tm := &fakeTimer{perCall: 6_000_000}
	rng := prng.New(1)

	sample, err := Measure(uint64(nodes*stride), p, buf, perm, rng, tm)
	require.NoError(t, err)
	require.EqualValues(t, nodes*stride, sample.WorkingSetBytes)
	require.Greater(t, sample.NsPerAccess, 0.0)
}

func TestMeasureNumNodesFloorsAtTwo(t *testing.T) {
	const stride = 64
	buf := make([]byte, 8*stride)
	perm := make([]uint32, 8)

	p := Params{NodeStride: stride, Pattern: order.Sequential, TargetMS: 1, Repeats: 1, WarmupIters: 0}
	tm := &fakeTimer{perCall: 1_000_000} // >= half of 1ms target
	rng := prng.New(1)

	// workingSetBytes smaller than one node still measures a valid
	// 2-node cycle.
	sample, err := Measure(uint64(stride/2), p, buf, perm, rng, tm)
	require.NoError(t, err)
	require.Greater(t, sample.NsPerAccess, 0.0)
}

func TestMeasureClockFailurePropagates(t *testing.T) {
	const stride = 64
	buf := make([]byte, 8*stride)
	perm := make([]uint32, 8)
	p := Params{NodeStride: stride, Pattern: order.Sequential, TargetMS: 1, Repeats: 1, WarmupIters: 0}
	rng := prng.New(1)

	_, err := Measure(uint64(4*stride), p, buf, perm, rng, errorTimer{})
	require.ErrorIs(t, err, ErrClockUnavailable)
}

type errorTimer struct{}

func (errorTimer) NowNS() (uint64, error) { return 0, timer.ErrUnavailable }

// seqTimer returns each delta in deltas as the elapsed time of one
// start/end bracket, in order, then repeats the final delta forever.
// Unlike fakeTimer it lets a test script a specific number of doublings
// in calibrate without the real chase loop needing to actually run long
// enough for elapsed to reach the target — the mock controls elapsed
// directly.
type seqTimer struct {
	deltas []uint64
	idx    int
	now    uint64
	atCall int
}

func (s *seqTimer) NowNS() (uint64, error) {
	// Every two calls forms one bracket; advance by the next scripted
	// delta on the second call of each pair.
	if s.atCall%2 == 1 {
		d := s.deltas[s.idx]
		if s.idx < len(s.deltas)-1 {
			s.idx++
		}
		s.now += d
	}
	s.atCall++
	return s.now, nil
}

func TestCalibrateDoublesUntilHalfTarget(t *testing.T) {
	const stride = 64
	const nodes = 10
	buf := make([]byte, nodes*stride)
	perm := make([]uint32, nodes)
	order.Build(perm, nodes, order.Sequential, 0, nil)
	graph.Write(buf, stride, perm)
	head := graph.Head(buf, stride, 0)

	// Floor is max(1000, 16*10) = 1000. Script three undersized brackets
	// (forcing three doublings: 1000 -> 2000 -> 4000 -> 8000) then a
	// bracket that clears half the target_ms=1 budget (500,000ns).
	tm := &seqTimer{deltas: []uint64{100, 100, 100, 600_000}}
	steps, err := calibrate(head, nodes, 1, tm)
	require.NoError(t, err)
	require.EqualValues(t, 8000, steps)
}

func TestMeasureDeterministicStepCountUnderFixedConfig(t *testing.T) {
	const stride = 64
	const nodes = 128
	p := Params{NodeStride: stride, Pattern: order.Reverse, TargetMS: 5, Repeats: 3, WarmupIters: 2}

	run := func() float64 {
		buf := make([]byte, nodes*stride)
		perm := make([]uint32, nodes)
		tm := &fakeTimer{perCall: 3_000_000} // >= half of 5ms target
		rng := prng.New(42)
		s, err := Measure(uint64(nodes*stride), p, buf, perm, rng, tm)
		require.NoError(t, err)
		return s.NsPerAccess
	}

	a := run()
	b := run()
	// With a deterministic fake timer and a non-random pattern, the
	// exact same config must produce the exact same reported latency.
	require.Equal(t, a, b)
}
