//go:build debug

package channel

// New creates a new channel with the given buffer size
// In debug builds, this returns an unbuffered channel to help
// surface ordering and backpressure issues during development
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
