package mask

import (
	"sync"

	"github.com/example/regionkit/internal/geometry"
)

// Pool recycles bitmap buffers released by the undo history. A nil *Pool is
// valid and always allocates.
type Pool struct {
	mu       sync.Mutex
	free     map[int][][]byte
	max      int
	released int
}

// NewPool returns a pool that keeps at most max buffers per size.
func NewPool(max int) *Pool {
	return &Pool{free: map[int][][]byte{}, max: max}
}

// Get returns a zeroed bitmap of size d.
func (p *Pool) Get(d geometry.Dimensions) *Bitmap {
	if p == nil || d.Empty() {
		return New(d)
	}
	p.mu.Lock()
	bufs := p.free[d.Area()]
	if n := len(bufs); n > 0 {
		buf := bufs[n-1]
		p.free[d.Area()] = bufs[:n-1]
		p.mu.Unlock()
		clear(buf)
		return &Bitmap{Dimensions: d, Values: buf}
	}
	p.mu.Unlock()
	return New(d)
}

// Put hands b back to the pool. b must not be used afterwards.
func (p *Pool) Put(b *Bitmap) {
	if p == nil || b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
	n := len(b.Values)
	if n == 0 || len(p.free[n]) >= p.max {
		return
	}
	p.free[n] = append(p.free[n], b.Values)
	b.Values = nil
}

// Released returns the number of Put calls so far.
func (p *Pool) Released() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
