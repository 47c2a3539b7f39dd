// This package writes batches to an [io.Writer].
package writer

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/teenjuna/sendbuf/codec"
	"github.com/teenjuna/sendbuf/sink"
)

var _ sink.Sink[any] = (*Sink[any])(nil)

// Sink writes every batch it's sent to w as one encoded payload. With the JSON codec, this gives
// one JSON array per line.
type Sink[Item any] struct {
	mu    sync.Mutex
	w     io.Writer
	codec codec.Codec[Item]
}

func New[Item any](w io.Writer, codec codec.Codec[Item]) *Sink[Item] {
	if w == nil {
		panic("writer can't be nil")
	}
	if codec == nil {
		panic("codec can't be nil")
	}
	return &Sink[Item]{
		w:     w,
		codec: codec,
	}
}

func (s *Sink[Item]) Send(ctx context.Context, batch []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.codec.Encode(slices.Values(batch))
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

// Close closes the writer if it's an [io.Closer].
func (s *Sink[Item]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
