package progress

import (
	"io"
	"sync"
	"sync/atomic"
)

// Counter writes a marker every n ticks. A nil Counter, a nil writer or
// n <= 0 disables output while still counting.
type Counter struct {
	w      io.Writer
	every  int64
	marker []byte

	count atomic.Int64
	mu    sync.Mutex
}

func New(w io.Writer, every int, marker byte) *Counter {
	return &Counter{
		w:      w,
		every:  int64(every),
		marker: []byte{marker},
	}
}

func (c *Counter) Tick() {
	if c == nil {
		return
	}

	n := c.count.Add(1)
	if c.w == nil || c.every <= 0 || n%c.every != 0 {
		return
	}

	c.mu.Lock()
	_, _ = c.w.Write(c.marker)
	c.mu.Unlock()
}

// Done terminates the marker line if any marker was written.
func (c *Counter) Done() {
	if c == nil || c.w == nil || c.every <= 0 || c.count.Load() < c.every {
		return
	}

	c.mu.Lock()
	_, _ = c.w.Write([]byte{'\n'})
	c.mu.Unlock()
}

func (c *Counter) Count() int64 {
	if c == nil {
		return 0
	}
	return c.count.Load()
}
