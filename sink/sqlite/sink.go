package sqlite

import (
	"context"
	"fmt"
	"slices"

	"github.com/teenjuna/sendbuf/codec"
	"github.com/teenjuna/sendbuf/sink"
)

var _ sink.Sink[any] = (*Sink[any])(nil)

// Sink stores every batch it's sent as one row of a [Storage].
type Sink[Item any] struct {
	storage *Storage
	codec   codec.Codec[Item]
}

// NewSink returns a sink that encodes batches with codec. The sink owns storage and closes it.
func NewSink[Item any](storage *Storage, codec codec.Codec[Item]) *Sink[Item] {
	if storage == nil {
		panic("storage can't be nil")
	}
	if codec == nil {
		panic("codec can't be nil")
	}
	return &Sink[Item]{
		storage: storage,
		codec:   codec,
	}
}

func (s *Sink[Item]) Send(ctx context.Context, batch []Item) error {
	data, err := s.codec.Derive().Encode(slices.Values(batch))
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	if _, err := s.storage.Push(ctx, data, len(batch)); err != nil {
		return fmt.Errorf("push batch: %w", err)
	}
	return nil
}

// Sent returns the items of up to limit stored batches, oldest first.
func (s *Sink[Item]) Sent(ctx context.Context, limit int) ([]Item, error) {
	batches, err := s.storage.Batches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get batches: %w", err)
	}

	var (
		codec = s.codec.Derive()
		items = make([]Item, 0)
	)
	for _, batch := range batches {
		if err := codec.Decode(batch.Data, func(item Item) {
			items = append(items, item)
		}); err != nil {
			return nil, fmt.Errorf("decode batch %s: %w", batch.ID, err)
		}
	}

	return items, nil
}

// Stats returns the statistics of the stored batches.
func (s *Sink[Item]) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.storage.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// Clear deletes the stored batches, oldest first, and returns the number of deleted items.
// Batches stored while Clear runs may be deleted too.
func (s *Sink[Item]) Clear(ctx context.Context) (int, error) {
	const chunk = 100

	var deleted int
	for {
		batches, err := s.storage.Batches(ctx, chunk)
		if err != nil {
			return deleted, fmt.Errorf("get batches: %w", err)
		}
		if len(batches) == 0 {
			return deleted, nil
		}

		ids := make([]BatchID, 0, len(batches))
		for _, batch := range batches {
			ids = append(ids, batch.ID)
		}
		if err := s.storage.Delete(ctx, ids...); err != nil {
			return deleted, fmt.Errorf("delete batches: %w", err)
		}

		for _, batch := range batches {
			deleted += batch.Size
		}
	}
}

// Storage returns the underlying storage.
func (s *Sink[Item]) Storage() *Storage {
	return s.storage
}

func (s *Sink[Item]) Close() error {
	return s.storage.Close()
}
