// This package contains the [Sink] interface. Subpackages implement it for a database, a message
// broker and an [io.Writer].
//
// A sink's Send method has the shape of [github.com/teenjuna/sendbuf.ProcessFunc], so it can be
// passed to [github.com/teenjuna/sendbuf.Process] directly.
package sink

import "context"

// Sink delivers flushed batches.
type Sink[Item any] interface {
	// Send delivers the whole batch, or returns an error so it's retried and eventually rolled
	// back into the buffer.
	Send(ctx context.Context, batch []Item) error
	// Close releases the resources of the sink.
	Close() error
}
