package sendbuf

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"go.uber.org/zap"
)

// Serializer runs submitted tasks one at a time, in submission order, on a single worker
// goroutine. Every read and write of a buffer's state happens inside a serializer task.
//
// A flush handler receives the buffer's serializer and uses it to schedule the resolution of its
// [Outcome].
type Serializer struct {
	logger *zap.Logger

	mu      sync.Mutex
	tasks   []func()
	stopped bool

	wake   chan struct{}
	done   chan struct{}
	worker atomic.Int64
}

func newSerializer(logger *zap.Logger) *Serializer {
	s := &Serializer{
		logger: logger,
		tasks:  make([]func(), 0, 16),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	started := make(chan struct{})
	go s.run(started)
	<-started
	return s
}

// Submit schedules task to run on the worker goroutine after all previously submitted tasks.
//
// Submit never blocks. Returns [ErrClosed] if the serializer has been stopped.
func (s *Serializer) Submit(task func()) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrClosed
	}
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	notify(s.wake, struct{}{})
	return nil
}

// OnQueue reports whether the caller is running on the worker goroutine.
func (s *Serializer) OnQueue() bool {
	return goid.Get() == s.worker.Load()
}

// Done returns a channel that is closed once the worker goroutine has exited.
func (s *Serializer) Done() <-chan struct{} {
	return s.done
}

// stop rejects further submissions. Tasks submitted before the call still run.
func (s *Serializer) stop() <-chan struct{} {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	notify(s.wake, struct{}{})
	return s.done
}

// call runs task on the worker goroutine and waits for it to finish. When the caller already
// is the worker, or the worker has exited, task runs directly.
func (s *Serializer) call(task func()) {
	if s.OnQueue() {
		task()
		return
	}

	finished := make(chan struct{})
	err := s.Submit(func() {
		defer close(finished)
		task()
	})
	if err != nil {
		<-s.done
		task()
		return
	}

	<-finished
}

func (s *Serializer) run(started chan<- struct{}) {
	defer close(s.done)

	s.worker.Store(goid.Get())
	close(started)

	for {
		s.mu.Lock()
		tasks, stopped := s.tasks, s.stopped
		s.tasks = nil
		s.mu.Unlock()

		for _, task := range tasks {
			task()
		}

		if len(tasks) != 0 {
			continue
		}
		if stopped {
			s.logger.Debug("serializer stopped")
			return
		}

		<-s.wake
	}
}

func notify[T any](ch chan T, v T) {
	if ch != nil {
		select {
		case ch <- v:
		default:
		}
	}
}
