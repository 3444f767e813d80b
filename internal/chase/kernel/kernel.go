// Package kernel implements the latency-bound pointer-chase loop. Its
// anti-optimization contract is the crux of the whole benchmark: every
// load must actually reach memory, and the optimizer must not be able to
// prove the loop's result unused and elide it.
//
// Three properties encode that contract in Go, standing in for the
// volatile-qualified loads, noinline attribute, and process-global sink
// a C implementation would use:
//
//  1. Chase carries the go:noinline directive, so it cannot be inlined
//     into a caller that could constant-fold the head pointer.
//  2. Each load goes through an unsafe.Pointer dereference with a true
//     data dependency from one load's result to the next load's address
//     — there is nothing for the compiler to hoist or cache across
//     iterations.
//  3. The final pointer is written to sink, a package-level variable the
//     compiler cannot prove is dead, so escape analysis cannot eliminate
//     the loop. sink is never read by the rest of the program; its sole
//     role is to give the chase result somewhere to escape to.
package kernel

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// sink is the one module-level mutable datum in this package. It exists
// purely to give the final chased pointer an externally observable
// destination; nothing reads it. The cpu.CacheLinePad fields on either
// side of p give it its own cache line so that writing it can never be
// blamed for perturbing a neighboring package-level variable's line during
// timing — the same isolation node_stride buys between chase nodes,
// applied to the one piece of global state this package owns.
var sink struct {
	_ cpu.CacheLinePad
	p unsafe.Pointer
	_ cpu.CacheLinePad
}

// Chase starts at head and dereferences the first pointer-word steps
// times, returning the final address reached. head must point into a
// graph laid out by the graph package: the first pointer-sized word of
// every node holds the address of the next node in the cycle.
//
//go:noinline
func Chase(head unsafe.Pointer, steps uint64) unsafe.Pointer {
	p := head
	for i := uint64(0); i < steps; i++ {
		p = *(*unsafe.Pointer)(p)
	}
	sink.p = p
	return p
}
