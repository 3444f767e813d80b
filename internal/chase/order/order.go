// Package order builds permutations of node indices under a chosen
// ordering policy. Each pattern defeats or accommodates hardware
// prefetchers differently; random establishes the latency floor, while
// the deterministic patterns let a caller study prefetcher effectiveness
// under adversarial-to-friendly orderings.
package order

import (
	"math/bits"

	"github.com/jbrusegaard/cachechase/internal/chase/prng"
)

// Pattern names the ordering policy applied to a permutation.
type Pattern string

const (
	Random     Pattern = "random"
	Sequential Pattern = "sequential"
	Reverse    Pattern = "reverse"
	Stride     Pattern = "stride"
	Interleave Pattern = "interleave"
	Gray       Pattern = "gray"
	Bitrev     Pattern = "bitrev"
)

// ParsePattern validates a pattern name received from a CLI flag. Unlike
// Build, it rejects unknown values outright rather than silently falling
// back to random — that fallback is reserved for configuration arriving
// programmatically through a library call, per the contract documented on
// Build.
func ParsePattern(s string) (Pattern, error) {
	switch Pattern(s) {
	case Random, Sequential, Reverse, Stride, Interleave, Gray, Bitrev:
		return Pattern(s), nil
	default:
		return "", errUnknownPattern(s)
	}
}

type errUnknownPattern string

func (e errUnknownPattern) Error() string {
	return "order: unknown pattern " + string(e)
}

// Build writes a permutation of [0, n) into dst[:n] under the given
// pattern. dst must have length >= n; only the first n entries are
// written. An unknown pattern silently falls back to random, matching the
// "production library API" contract — callers that need strict validation
// should route user input through ParsePattern first.
func Build(dst []uint32, n int, pattern Pattern, patternArg uint64, rng *prng.PRNG) {
	if n <= 0 {
		return
	}
	switch pattern {
	case Sequential:
		buildSequential(dst, n)
	case Reverse:
		buildReverse(dst, n)
	case Stride:
		buildStride(dst, n, patternArg)
	case Interleave:
		buildInterleave(dst, n)
	case Gray:
		buildGray(dst, n)
	case Bitrev:
		buildBitrev(dst, n)
	case Random:
		buildRandom(dst, n, rng)
	default:
		buildRandom(dst, n, rng)
	}
}

func buildSequential(dst []uint32, n int) {
	for i := 0; i < n; i++ {
		dst[i] = uint32(i)
	}
}

func buildReverse(dst []uint32, n int) {
	for i := 0; i < n; i++ {
		dst[i] = uint32(n - 1 - i)
	}
}

// buildRandom performs a Fisher-Yates shuffle of the identity permutation.
func buildRandom(dst []uint32, n int, rng *prng.PRNG) {
	buildSequential(dst, n)
	for i := n - 1; i > 0; i-- {
		j := rng.Uniform(uint64(i + 1))
		dst[i], dst[j] = dst[j], dst[i]
	}
}

// buildStride walks the orbit of "advance by k mod n" starting at 0,
// marking visited indices; when an orbit closes before covering all
// nodes (gcd(k, n) > 1), it restarts from the next unvisited index. The
// concatenation of orbits is a valid permutation.
func buildStride(dst []uint32, n int, k uint64) {
	if k == 0 {
		k = 1
	}
	stride := int(k % uint64(n))
	if stride == 0 {
		stride = 1
	}

	visited := make([]bool, n)
	out := 0
	start := 0
	for out < n {
		for visited[start] {
			start++
		}
		cur := start
		for !visited[cur] {
			visited[cur] = true
			dst[out] = uint32(cur)
			out++
			cur = (cur + stride) % n
		}
	}
}

// buildInterleave emits 0, half, 1, half+1, ... appending the final index
// when n is odd.
func buildInterleave(dst []uint32, n int) {
	half := n / 2
	out := 0
	for i := 0; i < half; i++ {
		dst[out] = uint32(i)
		out++
		dst[out] = uint32(half + i)
		out++
	}
	if n%2 == 1 {
		dst[out] = uint32(n - 1)
		out++
	}
}

// buildGray emits i XOR (i>>1) for i in [0, m), where m is the largest
// power of two <= n, then appends the remaining indices [m, n) in order.
func buildGray(dst []uint32, n int) {
	m := 1
	for m*2 <= n {
		m *= 2
	}
	out := 0
	for i := 0; i < m; i++ {
		dst[out] = uint32(i ^ (i >> 1))
		out++
	}
	for i := m; i < n; i++ {
		dst[out] = uint32(i)
		out++
	}
}

// buildBitrev emits reverse_bits_b(i) for i in [0, 2^b) whenever that
// value is < n, where b = ceil(log2 n), until n outputs have been
// produced.
func buildBitrev(dst []uint32, n int) {
	b := bitLen(n)
	total := 1 << b
	out := 0
	for i := 0; i < total && out < n; i++ {
		v := reverseBitsB(uint32(i), b)
		if int(v) < n {
			dst[out] = v
			out++
		}
	}
}

// bitLen returns ceil(log2(n)) for n >= 1.
func bitLen(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func reverseBitsB(v uint32, b int) uint32 {
	var r uint32
	for i := 0; i < b; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}
