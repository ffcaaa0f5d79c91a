// Package closer implements the graceful-shutdown signal the voter's
// driver loop waits on.
package closer

import "sync"

// Closer coordinates a single shutdown handoff between the goroutine
// requesting it (Close) and the goroutine that must observe it (Done).
type Closer struct {
	once   sync.Once
	doneCh chan struct{}
}

// New returns a ready-to-use Closer.
func New() *Closer {
	return &Closer{doneCh: make(chan struct{})}
}

// Close signals shutdown. Safe to call more than once.
func (c *Closer) Close() {
	c.once.Do(func() { close(c.doneCh) })
}

// Done returns a channel that is closed once Close has been called.
func (c *Closer) Done() <-chan struct{} {
	return c.doneCh
}
