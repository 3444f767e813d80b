package kernel

import (
	"testing"
	"unsafe"

	"github.com/jbrusegaard/cachechase/internal/chase/graph"
	"github.com/stretchr/testify/require"
)

func TestChaseTraversesCycle(t *testing.T) {
	const stride = 64
	const n = 16
	buf := make([]byte, n*stride)
	perm := make([]uint32, n)
	for i := range perm {
		perm[i] = uint32(i)
	}
	graph.Write(buf, stride, perm)

	head := graph.Head(buf, stride, 0)

	// n steps around an n-node cycle returns to the start.
	got := Chase(head, n)
	require.Equal(t, head, got)

	// n+1 steps lands one node further.
	got = Chase(head, n+1)
	require.Equal(t, graph.Head(buf, stride, 1), got)
}

func TestChaseSinkIsWritten(t *testing.T) {
	const stride = 64
	buf := make([]byte, 2*stride)
	graph.Write(buf, stride, []uint32{0, 1})
	head := graph.Head(buf, stride, 0)

	sink.p = nil
	Chase(head, 5)
	require.NotEqual(t, unsafe.Pointer(nil), sink.p)
}
