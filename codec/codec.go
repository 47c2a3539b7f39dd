// This package contains the main [Codec] interface and several implementations inside
// subpackages. Sinks use a codec to turn a flushed batch into a single payload.
package codec

import "iter"

// Codec encodes and decodes batches of items.
//
// Implementations are not considered thread-safe. Use Derive to get an instance per goroutine.
type Codec[Item any] interface {
	// Encode serializes a sequence of items into a byte slice owned by the caller.
	Encode(batch iter.Seq[Item]) ([]byte, error)
	// Decode deserializes a byte slice into items, pushing each to the provided function.
	Decode(data []byte, push func(Item)) error
	// ContentType returns the media type of the encoded payload.
	ContentType() string
	// Derive returns a new Codec instance with the same settings.
	Derive() Codec[Item]
}
