package queue

import (
	"fmt"
	"sync"
)

// Timeline holds values keyed by simulation tick. Producers record a value
// every tick while active, but backpressure may drop individual ticks, so
// lookups scan forward to the next recorded tick when the exact one is
// missing.
type Timeline[T any] struct {
	mu       sync.RWMutex
	tickData map[uint64]T
	last     T
	hasLast  bool
}

// NewTimeline creates an empty timeline.
func NewTimeline[T any]() *Timeline[T] {
	return &Timeline[T]{
		tickData: make(map[uint64]T),
	}
}

// Set records a value for a tick, overwriting any previous value.
func (tl *Timeline[T]) Set(tick uint64, v T) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.tickData[tick] = v
}

// Len returns the number of recorded ticks.
func (tl *Timeline[T]) Len() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.tickData)
}

// At returns the value recorded at tick, or scans forward to the next
// recorded tick up to and including endTick. Forward-scan hits are
// remembered as the last resolved value.
func (tl *Timeline[T]) At(tick, endTick uint64) (T, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	v, ok := tl.tickData[tick]
	if !ok {
		for i := tick; i <= endTick; i++ {
			v, ok := tl.tickData[i]
			if ok {
				tl.last = v
				tl.hasLast = true
				return v, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("no value recorded at or after tick %d", tick)
	}
	return v, nil
}

// Last returns the value most recently resolved by a forward scan.
func (tl *Timeline[T]) Last() (T, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.last, tl.hasLast
}

// Range calls fn for every recorded tick in [from, to], in tick order,
// skipping ticks with no value. Returns the number of values visited.
func (tl *Timeline[T]) Range(from, to uint64, fn func(tick uint64, v T)) int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	n := 0
	for i := from; i <= to; i++ {
		if v, ok := tl.tickData[i]; ok {
			fn(i, v)
			n++
		}
	}
	return n
}

// Reset discards all recorded ticks and the remembered last value.
func (tl *Timeline[T]) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.tickData = make(map[uint64]T)
	var zero T
	tl.last = zero
	tl.hasLast = false
}
