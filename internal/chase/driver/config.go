package driver

import (
	"unsafe"

	"github.com/jbrusegaard/cachechase/internal/chase/order"
)

// pointerSize is the host's pointer width, used to enforce node_stride's
// minimum and alignment.
var pointerSize = uint64(unsafe.Sizeof(uintptr(0)))

// Config holds the effective configuration for one measurement run.
type Config struct {
	MinBytes    uint64
	MaxBytes    uint64
	NodeStride  int
	TargetMS    int
	Repeats     int
	WarmupIters int
	Pattern     order.Pattern
	PatternArg  uint64
	PrintTable  bool
}

// DefaultConfig returns the documented defaults: min_bytes=4096,
// max_bytes=256MiB, node_stride=256, target_ms=80, repeats=3,
// warmup_iters=3, pattern=random, pattern_arg=1, print_table=true.
func DefaultConfig() Config {
	return Config{
		MinBytes:    4096,
		MaxBytes:    256 * 1024 * 1024,
		NodeStride:  256,
		TargetMS:    80,
		Repeats:     3,
		WarmupIters: 3,
		Pattern:     order.Random,
		PatternArg:  1,
		PrintTable:  true,
	}
}

const maxAddressableBytes = 4 * 1024 * 1024 * 1024 // 4 GiB clamp ceiling

// Normalize clamps out-of-range configuration into something measurable
// rather than rejecting it outright, and returns a human-readable
// diagnostic for every clamp it applied so the caller can log them.
func (c Config) Normalize() (Config, []string) {
	var notes []string

	minNodeStride := int(2 * pointerSize)
	if c.NodeStride < minNodeStride {
		notes = append(notes, "node_stride below 2*pointer-size; clamped up")
		c.NodeStride = minNodeStride
	}
	if rem := c.NodeStride % int(pointerSize); rem != 0 {
		notes = append(notes, "node_stride not a multiple of pointer alignment; rounded up")
		c.NodeStride += int(pointerSize) - rem
	}

	if c.MinBytes < uint64(c.NodeStride) {
		notes = append(notes, "min_bytes below node_stride; clamped to 2*node_stride")
		c.MinBytes = 2 * uint64(c.NodeStride)
	}

	if c.MaxBytes > maxAddressableBytes {
		notes = append(notes, "max_bytes above the 4GiB ceiling; clamped down")
		c.MaxBytes = maxAddressableBytes
	}
	if c.MaxBytes < c.MinBytes {
		notes = append(notes, "max_bytes below min_bytes; clamped up to min_bytes")
		c.MaxBytes = c.MinBytes
	}

	if c.TargetMS <= 0 {
		notes = append(notes, "target_ms <= 0; reset to default")
		c.TargetMS = 80
	}
	if c.Repeats <= 0 {
		notes = append(notes, "repeats <= 0; reset to default")
		c.Repeats = 3
	}
	if c.WarmupIters < 0 {
		notes = append(notes, "warmup_iters < 0; reset to default")
		c.WarmupIters = 3
	}

	return c, notes
}
