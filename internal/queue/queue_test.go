package queue

import (
	"sync"
	"testing"
)

// testRow stands in for the sink write-buffer row types
type testRow struct {
	VehicleID string
	Tick      uint64
}

func TestQueue_New(t *testing.T) {
	q := New[testRow]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[testRow]()

	q.Push(testRow{VehicleID: "ZR-101", Tick: 1})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(testRow{VehicleID: "ZR-102"}, testRow{VehicleID: "ZR-103"})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_Pop(t *testing.T) {
	q := New[testRow]()

	// Pop from empty queue returns zero value
	result := q.Pop()
	if result.VehicleID != "" || result.Tick != 0 {
		t.Errorf("expected zero value, got %+v", result)
	}

	// Pop from non-empty queue
	q.Push(testRow{VehicleID: "ZR-101", Tick: 1}, testRow{VehicleID: "ZR-102", Tick: 2})
	first := q.Pop()
	if first.VehicleID != "ZR-101" || first.Tick != 1 {
		t.Errorf("expected {ZR-101, 1}, got %+v", first)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_Empty(t *testing.T) {
	q := New[testRow]()

	if !q.Empty() {
		t.Error("expected empty queue")
	}

	q.Push(testRow{VehicleID: "ZR-101"})
	if q.Empty() {
		t.Error("expected non-empty queue")
	}

	q.Pop()
	if !q.Empty() {
		t.Error("expected empty queue after pop")
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[testRow]()
	q.Push(testRow{Tick: 1}, testRow{Tick: 2}, testRow{Tick: 3})

	q.Clear()

	if !q.Empty() {
		t.Error("expected empty queue after clear")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[testRow]()
	q.Push(testRow{Tick: 1}, testRow{Tick: 2}, testRow{Tick: 3})

	result := q.GetAndEmpty()

	if len(result) != 3 {
		t.Errorf("expected 3 items, got %d", len(result))
	}
	if result[0].Tick != 1 || result[1].Tick != 2 || result[2].Tick != 3 {
		t.Errorf("unexpected items: %+v", result)
	}
	if !q.Empty() {
		t.Error("expected empty queue after GetAndEmpty")
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[testRow]()
	var wg sync.WaitGroup

	// Concurrent pushes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(tick uint64) {
			defer wg.Done()
			q.Push(testRow{Tick: tick})
		}(uint64(i))
	}
	wg.Wait()

	if q.Len() != 100 {
		t.Errorf("expected 100 items, got %d", q.Len())
	}

	// Concurrent pops
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 items after pops, got %d", q.Len())
	}
}

func TestQueue_ConcurrentGetAndEmpty(t *testing.T) {
	q := New[testRow]()

	// Fill queue
	for i := 0; i < 100; i++ {
		q.Push(testRow{Tick: uint64(i)})
	}

	var wg sync.WaitGroup
	results := make(chan []testRow, 10)

	// Concurrent GetAndEmpty calls
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.GetAndEmpty()
		}()
	}
	wg.Wait()
	close(results)

	// Total items across all results should be 100
	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected total 100 items, got %d", total)
	}
}

// Test with different types to ensure generics work correctly

func TestQueue_StringType(t *testing.T) {
	q := New[string]()
	q.Push("ZR-101", "ZR-102")

	first := q.Pop()
	if first != "ZR-101" {
		t.Errorf("expected 'ZR-101', got '%s'", first)
	}
}

func TestQueue_IntType(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3, 4, 5)

	sum := 0
	for !q.Empty() {
		sum += q.Pop()
	}
	if sum != 15 {
		t.Errorf("expected sum 15, got %d", sum)
	}
}

// Test Timeline

func TestTimeline_New(t *testing.T) {
	tl := NewTimeline[string]()
	if tl == nil {
		t.Fatal("expected non-nil timeline")
	}
	if tl.Len() != 0 {
		t.Errorf("expected empty timeline, got length %d", tl.Len())
	}
}

func TestTimeline_SetAndLen(t *testing.T) {
	tl := NewTimeline[string]()

	tl.Set(0, "sample0")
	tl.Set(10, "sample10")
	tl.Set(20, "sample20")

	if tl.Len() != 3 {
		t.Errorf("expected length 3, got %d", tl.Len())
	}
}

func TestTimeline_At(t *testing.T) {
	tl := NewTimeline[string]()
	tl.Set(0, "sample0")
	tl.Set(10, "sample10")
	tl.Set(20, "sample20")

	// Exact tick match
	v, err := tl.At(10, 100)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if v != "sample10" {
		t.Errorf("expected sample10, got %v", v)
	}

	// No exact match, should find next recorded tick
	v, err = tl.At(5, 100)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if v != "sample10" {
		t.Errorf("expected sample10, got %v", v)
	}

	// Tick not found
	_, err = tl.At(50, 60)
	if err == nil {
		t.Error("expected error for missing tick")
	}
}

func TestTimeline_Last(t *testing.T) {
	tl := NewTimeline[string]()
	tl.Set(10, "sample10")

	// Initially unset
	if _, ok := tl.Last(); ok {
		t.Error("expected no last value initially")
	}

	// After At with a forward scan
	tl.At(5, 100)
	last, ok := tl.Last()
	if !ok {
		t.Fatal("expected last value after forward scan")
	}
	if last != "sample10" {
		t.Errorf("expected sample10, got %v", last)
	}
}

func TestTimeline_Range(t *testing.T) {
	tl := NewTimeline[int]()
	tl.Set(2, 20)
	tl.Set(5, 50)
	tl.Set(9, 90)

	var ticks []uint64
	sum := 0
	n := tl.Range(2, 8, func(tick uint64, v int) {
		ticks = append(ticks, tick)
		sum += v
	})

	if n != 2 {
		t.Errorf("expected 2 visits, got %d", n)
	}
	if len(ticks) != 2 || ticks[0] != 2 || ticks[1] != 5 {
		t.Errorf("unexpected ticks: %v", ticks)
	}
	if sum != 70 {
		t.Errorf("expected sum 70, got %d", sum)
	}
}

func TestTimeline_Reset(t *testing.T) {
	tl := NewTimeline[int]()
	tl.Set(1, 1)
	tl.At(0, 5)

	tl.Reset()

	if tl.Len() != 0 {
		t.Errorf("expected empty timeline after reset, got %d", tl.Len())
	}
	if _, ok := tl.Last(); ok {
		t.Error("expected no last value after reset")
	}
}
