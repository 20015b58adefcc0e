package align

import "sync/atomic"

// CancelFlag is a shared cancellation handle. The engine polls it between
// embedding batches; the caller sets it from any goroutine. Cancellation
// latency is therefore bounded by one batch's processing time.
type CancelFlag struct {
	flag atomic.Bool
}

// NewCancelFlag returns an unset cancellation flag.
func NewCancelFlag() *CancelFlag { return &CancelFlag{} }

// Cancel requests that the current run stop at the next poll point.
func (c *CancelFlag) Cancel() {
	if c != nil {
		c.flag.Store(true)
	}
}

// Cancelled reports whether cancellation has been requested. Nil-safe.
func (c *CancelFlag) Cancelled() bool {
	return c != nil && c.flag.Load()
}
