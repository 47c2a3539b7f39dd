package sendbuf

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teenjuna/sendbuf/buffer"
)

var (
	// ErrClosed is returned when the buffer, or its serializer, has been closed.
	ErrClosed = errors.New("buffer is closed")
	// ErrResolved is returned when an [Outcome] is resolved a second time.
	ErrResolved = errors.New("flush is already resolved")
	// ErrDrainRolledBack is returned by [Buffer.Close] when a flush was rolled back while
	// draining.
	ErrDrainRolledBack = errors.New("flush rolled back while draining")
	// ErrNoFlushFunc is returned by [Buffer.Close] when items are left but there is no flush
	// handler to drain them.
	ErrNoFlushFunc = errors.New("no flush handler")
)

// FlushFunc receives a locked batch. It runs on the serializer, so it must hand any slow work
// to another goroutine, which later resolves outcome with a task submitted to queue.
//
// The batch slice is owned by the handler.
type FlushFunc[Item any] = func(batch []Item, outcome *Outcome, queue *Serializer)

// Buffer collects items from concurrent producers and flushes them in batches of at most
// [Buffer.Size] items.
//
// All state is owned by an internal [Serializer]. Methods of Buffer only submit tasks to it, so
// they are safe for concurrent use and never block on a flush.
type Buffer[Item any] struct {
	capacity int
	logger   *zap.Logger
	metrics  *metrics
	queue    *Serializer

	// Guards closed, so that no task is submitted after the drain task.
	closeMu sync.RWMutex
	closed  bool

	// Owned by queue.
	pending      *buffer.Sequence[Item]
	locked       *buffer.Sequence[Item]
	autoFlush    bool
	flushPending bool
	lockedAt     time.Time
	drain        chan error
	onAdded      func(Item)
	onLocked     func(Item)
	onRemoved    func(Item)
	onFlush      FlushFunc[Item]
}

// New returns a buffer that flushes batches of at most capacity items.
//
// Panics if capacity is < 1.
func New[Item any](capacity int, configFuncs ...func(*Config[Item])) *Buffer[Item] {
	if capacity < 1 {
		panic("capacity can't be < 1")
	}

	cfg := newConfig(configFuncs...)
	logger := cfg.logger.With(zap.Int("capacity", capacity))

	return &Buffer[Item]{
		capacity: capacity,
		logger:   logger,
		metrics:  cfg.prometheus.metrics(),
		queue:    newSerializer(logger),

		pending:   buffer.New[Item](capacity),
		locked:    buffer.New[Item](capacity),
		autoFlush: cfg.autoFlush,
		onAdded:   cfg.onAdded,
		onLocked:  cfg.onLocked,
		onRemoved: cfg.onRemoved,
		onFlush:   cfg.onFlush,
	}
}

// Add appends item to the buffer. If auto flush is enabled and the buffer becomes full, a flush
// starts.
//
// Add never blocks on the buffer. Returns [ErrClosed] if the buffer is closed.
func (b *Buffer[Item]) Add(item Item) error {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	return b.queue.Submit(func() {
		b.add(item)
	})
}

// Flush requests a flush of up to [Buffer.Size] items from the front of the buffer. If a flush
// is already in progress, the request is deferred until it is committed. Several requests made
// during one flush result in one deferred flush.
//
// Returns [ErrClosed] if the buffer is closed.
func (b *Buffer[Item]) Flush() error {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	return b.queue.Submit(b.requestFlush)
}

// Current returns a copy of the items waiting to be flushed.
func (b *Buffer[Item]) Current() []Item {
	var items []Item
	b.queue.call(func() {
		items = b.pending.Snapshot()
	})
	return items
}

// Locked returns a copy of the items of the batch being flushed.
func (b *Buffer[Item]) Locked() []Item {
	var items []Item
	b.queue.call(func() {
		items = b.locked.Snapshot()
	})
	return items
}

// IsFull reports whether the number of waiting items reached the capacity.
func (b *Buffer[Item]) IsFull() bool {
	var full bool
	b.queue.call(func() {
		full = b.isFull()
	})
	return full
}

// IsFlushing reports whether a batch is being flushed.
func (b *Buffer[Item]) IsFlushing() bool {
	var flushing bool
	b.queue.call(func() {
		flushing = b.isFlushing()
	})
	return flushing
}

// Size returns the capacity of the buffer.
func (b *Buffer[Item]) Size() int {
	return b.capacity
}

// AutoFlush reports whether reaching the capacity starts a flush.
func (b *Buffer[Item]) AutoFlush() bool {
	var autoFlush bool
	b.queue.call(func() {
		autoFlush = b.autoFlush
	})
	return autoFlush
}

// SetAutoFlush enables or disables auto flush. Enabling it doesn't flush a buffer that is
// already full; the next [Buffer.Add] or [Buffer.Flush] does.
func (b *Buffer[Item]) SetAutoFlush(autoFlush bool) error {
	return b.queue.Submit(func() {
		b.autoFlush = autoFlush
	})
}

// OnAdded replaces the hook called for every added item.
func (b *Buffer[Item]) OnAdded(hook func(Item)) error {
	return b.queue.Submit(func() {
		b.onAdded = hook
	})
}

// OnLocked replaces the hook called for every item moved into a flushed batch.
func (b *Buffer[Item]) OnLocked(hook func(Item)) error {
	return b.queue.Submit(func() {
		b.onLocked = hook
	})
}

// OnRemoved replaces the hook called for every item of a committed batch.
func (b *Buffer[Item]) OnRemoved(hook func(Item)) error {
	return b.queue.Submit(func() {
		b.onRemoved = hook
	})
}

// OnFlush replaces the flush handler. A flush in progress keeps its outcome.
func (b *Buffer[Item]) OnFlush(flush FlushFunc[Item]) error {
	return b.queue.Submit(func() {
		b.onFlush = flush
	})
}

// Close stops accepting items and drains the buffer: flushes are started until no item is
// waiting or locked. Then the serializer is stopped.
//
// Close returns [ErrDrainRolledBack] if a flush is rolled back while draining, [ErrNoFlushFunc]
// if there is no handler to drain the items, or the error of ctx if it is done first. Items
// left in the buffer stay observable through [Buffer.Current] and [Buffer.Locked].
func (b *Buffer[Item]) Close(ctx context.Context) error {
	var (
		errs    = make([]error, 0)
		drained = make(chan error, 1)
	)

	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return ErrClosed
	}
	b.closed = true
	err := b.queue.Submit(func() {
		b.drain = drained
		b.continueDrain()
	})
	b.closeMu.Unlock()
	if err != nil {
		return err
	}

	select {
	case err := <-drained:
		if err != nil {
			errs = append(errs, fmt.Errorf("drain: %w", err))
		}
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("drain: %w", ctx.Err()))
	}

	<-b.queue.stop()

	return errors.Join(errs...)
}

func (b *Buffer[Item]) add(item Item) {
	b.pending.Push(item)
	b.metrics.itemsAdded.Inc()
	b.metrics.pending.Set(float64(b.pending.Size()))

	if b.onAdded != nil {
		b.onAdded(item)
	}

	if b.pending.Size() == b.capacity+1 {
		b.logger.Debug("buffer is over capacity", zap.Bool("flushing", b.isFlushing()))
	}

	if b.autoFlush {
		b.flushIfFull()
	}
}

func (b *Buffer[Item]) requestFlush() {
	if b.isFlushing() {
		b.flushPending = true
		b.metrics.flushesCoalesced.Inc()
		b.logger.Debug("flush deferred until current flush is resolved")
		return
	}
	b.startFlush(triggerManual)
}

func (b *Buffer[Item]) flushIfFull() {
	if !b.isFull() {
		return
	}
	if b.isFlushing() {
		// The flush will start again once the current one is committed.
		if !b.flushPending {
			b.flushPending = true
			b.metrics.flushesCoalesced.Inc()
			b.logger.Debug("auto flush deferred until current flush is resolved")
		}
		return
	}
	b.startFlush(triggerAuto)
}

func (b *Buffer[Item]) startFlush(trigger string) {
	size := min(b.capacity, b.pending.Size())
	if size == 0 {
		b.logger.Debug("skip flush of empty buffer", zap.String("trigger", trigger))
		return
	}
	if b.onFlush == nil {
		b.logger.Warn("skip flush without flush handler", zap.String("trigger", trigger))
		return
	}

	batch := b.pending.TakeFront(size)
	b.locked.Push(batch...)
	b.lockedAt = time.Now()

	b.metrics.flushes.WithLabelValues(trigger).Inc()
	b.metrics.pending.Set(float64(b.pending.Size()))
	b.metrics.locked.Set(float64(b.locked.Size()))
	b.logger.Debug("flush started",
		zap.String("trigger", trigger),
		zap.Int("items", len(batch)),
		zap.Int("pending", b.pending.Size()),
	)

	if b.onLocked != nil {
		for _, item := range batch {
			b.onLocked(item)
		}
	}

	outcome := &Outcome{
		queue:    b.queue,
		commit:   b.commit,
		rollback: b.rollback,
	}

	b.onFlush(slices.Clone(batch), outcome, b.queue)
}

func (b *Buffer[Item]) commit() {
	items := b.locked.Size()

	if b.onRemoved != nil {
		for item := range b.locked.Iter() {
			b.onRemoved(item)
		}
	}
	b.locked.Reset()

	b.metrics.itemsCommitted.Add(float64(items))
	b.metrics.locked.Set(0)
	b.metrics.flushDuration.Observe(time.Since(b.lockedAt).Seconds())
	b.logger.Debug("flush committed", zap.Int("items", items))

	requested := b.flushPending
	b.flushPending = false

	switch {
	case b.drain != nil:
		b.continueDrain()
	case requested:
		b.startFlush(triggerDeferred)
	case b.autoFlush:
		b.flushIfFull()
	}
}

func (b *Buffer[Item]) rollback() {
	items := b.locked.Snapshot()

	// Insert back at the head one by one, last item first, so the original order is restored.
	for _, item := range slices.Backward(items) {
		b.pending.PushFront(item)
		if b.onAdded != nil {
			b.onAdded(item)
		}
	}
	b.locked.Reset()
	b.flushPending = false

	b.metrics.itemsRolledBack.Add(float64(len(items)))
	b.metrics.pending.Set(float64(b.pending.Size()))
	b.metrics.locked.Set(0)
	b.metrics.flushDuration.Observe(time.Since(b.lockedAt).Seconds())
	b.logger.Debug("flush rolled back",
		zap.Int("items", len(items)),
		zap.Int("pending", b.pending.Size()),
	)

	if b.drain != nil {
		notify(b.drain, ErrDrainRolledBack)
	}
}

func (b *Buffer[Item]) continueDrain() {
	switch {
	case b.isFlushing():
		// Commit of the current flush continues the drain.
	case b.pending.Size() == 0:
		notify(b.drain, nil)
	case b.onFlush == nil:
		notify(b.drain, ErrNoFlushFunc)
	default:
		b.startFlush(triggerDrain)
	}
}

func (b *Buffer[Item]) isFull() bool {
	return b.pending.Size() >= b.capacity
}

func (b *Buffer[Item]) isFlushing() bool {
	return b.locked.Size() != 0
}
