package transport

import "sync"

// rxBuffer is the bounded receive queue shared by the reader goroutine and
// the engine. push blocks while the queue is full; offer never blocks.
type rxBuffer struct {
	mu    sync.Mutex
	cond  *sync.Cond
	data  []byte
	limit int
	err   error
}

func newRxBuffer(limit int) *rxBuffer {
	if limit <= 0 {
		limit = DefaultBufferSize
	}
	b := &rxBuffer{
		data:  make([]byte, 0, limit),
		limit: limit,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// push queues all of p, waiting for room. It returns false once the buffer failed.
func (b *rxBuffer) push(p []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(p) > 0 {
		for len(b.data) >= b.limit && b.err == nil {
			b.cond.Wait()
		}
		if b.err != nil {
			return false
		}
		n := min(b.limit-len(b.data), len(p))
		b.data = append(b.data, p[:n]...)
		p = p[n:]
	}
	return true
}

// offer queues as much of p as fits right now.
func (b *rxBuffer) offer(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}
	n := min(b.limit-len(b.data), len(p))
	b.data = append(b.data, p[:n]...)
	return n, nil
}

func (b *rxBuffer) available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0
	}
	return len(b.data)
}

func (b *rxBuffer) read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}
	n := copy(p, b.data)
	b.data = append(b.data[:0], b.data[n:]...)
	if n > 0 {
		b.cond.Broadcast()
	}
	return n, nil
}

// fail latches err; the first error wins.
func (b *rxBuffer) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
	b.cond.Broadcast()
}

func (b *rxBuffer) error() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
