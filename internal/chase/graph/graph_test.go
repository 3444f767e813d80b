package graph

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCycleVisitsEveryNodeExactlyOnce(t *testing.T) {
	const stride = 64
	const n = 128
	buf := make([]byte, n*stride)

	perm := make([]uint32, n)
	for i := range perm {
		perm[i] = uint32((i*37 + 5) % n)
	}
	// dedupe into an actual permutation deterministically for the test
	seen := make(map[uint32]bool, n)
	out := make([]uint32, 0, n)
	for _, v := range perm {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for v := uint32(0); v < n; v++ {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	perm = out

	Write(buf, stride, perm)

	visited := make(map[uintptr]bool, n)
	cur := Head(buf, stride, perm[0])
	base := uintptr(unsafe.Pointer(&buf[0]))
	for i := 0; i < n; i++ {
		off := uintptr(cur) - base
		require.Zero(t, off%stride)
		idx := uint32(off / stride)
		require.False(t, visited[uintptr(idx)], "node visited twice")
		visited[uintptr(idx)] = true
		cur = *(*unsafe.Pointer)(cur)
	}
	require.Len(t, visited, n)

	// step n+1 (i.e. one more) returns to the start
	require.Equal(t, Head(buf, stride, perm[0]), cur)
}

func TestThreeNodeExample(t *testing.T) {
	const stride = 64
	buf := make([]byte, 3*stride)
	perm := []uint32{2, 0, 1}
	Write(buf, stride, perm)

	base := unsafe.Pointer(&buf[0])
	nodeAddr := func(i int) unsafe.Pointer { return unsafe.Add(base, uintptr(i)*stride) }

	require.Equal(t, nodeAddr(0), *(*unsafe.Pointer)(nodeAddr(2)))
	require.Equal(t, nodeAddr(1), *(*unsafe.Pointer)(nodeAddr(0)))
	require.Equal(t, nodeAddr(2), *(*unsafe.Pointer)(nodeAddr(1)))

	cur := nodeAddr(2)
	for i := 0; i < 3; i++ {
		cur = *(*unsafe.Pointer)(cur)
	}
	require.Equal(t, nodeAddr(2), cur)
}
