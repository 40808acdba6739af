package channel

import (
	"sync"
	"testing"
	"time"
)

func TestBufferedSendReceive(t *testing.T) {
	ch := NewBuffered[int](4)
	defer ch.Close()

	for i := 0; i < 4; i++ {
		ch.Send(i)
	}
	if got := ch.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}
	for i := 0; i < 4; i++ {
		if got := <-ch.Receive(); got != i {
			t.Errorf("Receive() = %d, want %d", got, i)
		}
	}
	if got := ch.Len(); got != 0 {
		t.Errorf("Len() after drain = %d, want 0", got)
	}
}

func TestBufferedTrySend(t *testing.T) {
	ch := NewBuffered[string](2)
	defer ch.Close()

	if !ch.TrySend("a") {
		t.Error("TrySend on empty buffer returned false")
	}
	if !ch.TrySend("b") {
		t.Error("TrySend with spare capacity returned false")
	}
	if ch.TrySend("c") {
		t.Error("TrySend on full buffer returned true")
	}
	if got := <-ch.Receive(); got != "a" {
		t.Errorf("Receive() = %q, want %q", got, "a")
	}
	if !ch.TrySend("c") {
		t.Error("TrySend after drain returned false")
	}
}

func TestUnbufferedTrySend(t *testing.T) {
	ch := NewUnbuffered[int]()
	defer ch.Close()

	// No receiver waiting, TrySend must not block
	if ch.TrySend(1) {
		t.Error("TrySend with no receiver returned true")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	received := make(chan int, 1)
	go func() {
		defer wg.Done()
		received <- <-ch.Receive()
	}()

	// Give the receiver a moment to block on the channel
	deadline := time.After(2 * time.Second)
	for {
		if ch.TrySend(42) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("TrySend never succeeded with a waiting receiver")
		case <-time.After(time.Millisecond):
		}
	}

	wg.Wait()
	if got := <-received; got != 42 {
		t.Errorf("received %d, want 42", got)
	}
}

func TestFactoryReturnsUsableChannel(t *testing.T) {
	ch := New[int](8)
	defer ch.Close()

	ch.Send(7)
	if got := <-ch.Receive(); got != 7 {
		t.Errorf("Receive() = %d, want 7", got)
	}
}
