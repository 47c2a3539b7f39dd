package sendbuf

// Outcome resolves a single flush. The flush handler must call exactly one of [Outcome.Commit]
// or [Outcome.Rollback], exactly once, from a task running on the buffer's [Serializer].
//
// Only the first resolution takes effect; later calls return [ErrResolved]. Never resolving an
// outcome leaves the buffer flushing forever.
type Outcome struct {
	queue    *Serializer
	resolved bool
	commit   func()
	rollback func()
}

// Commit permanently removes the flushed batch from the buffer.
//
// Commit panics if called off the buffer's serializer.
func (o *Outcome) Commit() error {
	return o.resolve("commit", o.commit)
}

// Rollback returns the flushed batch to the front of the buffer in its original order.
//
// Rollback panics if called off the buffer's serializer.
func (o *Outcome) Rollback() error {
	return o.resolve("rollback", o.rollback)
}

// Resolve commits when err is nil and rolls back otherwise.
func (o *Outcome) Resolve(err error) error {
	if err != nil {
		return o.Rollback()
	}
	return o.Commit()
}

func (o *Outcome) resolve(op string, apply func()) error {
	if !o.queue.OnQueue() {
		panic("sendbuf: " + op + " called off the buffer queue")
	}
	if o.resolved {
		return ErrResolved
	}
	o.resolved = true
	apply()
	return nil
}
