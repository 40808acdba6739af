// Package channel provides generic channel interfaces for decoupled communication.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel. TrySend never blocks; it
// reports whether the value was accepted. Workers that must keep ticking
// (navigation, telemetry) use TrySend so a slow consumer cannot stall them.
type Sender[T any] interface {
	Send(T)
	TrySend(T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
