package rn4871

import "time"

// Clock returns a free-running, non-decreasing millisecond counter that
// wraps at 32 bits. Every wait in this package compares now-start against
// a timeout in unsigned arithmetic, which stays correct across a single
// wraparound.
//
// Injecting the clock keeps the driver's busy-wait scheduling model while
// letting tests substitute a deterministic source.
type Clock func() uint32

// SystemClock returns a Clock backed by the runtime's monotonic clock.
func SystemClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}
