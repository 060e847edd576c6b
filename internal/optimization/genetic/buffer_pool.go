package genetic

// BufferPool recycles population backing arrays between generations so the
// crossover/selection cycle does not allocate once warmed up.
// It is not safe for concurrent use; each optimizer owns its own pool.
type BufferPool struct {
	free []Population
}

// NewBufferPool creates an empty BufferPool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		free: make([]Population, 0, 2),
	}
}

// Get returns an empty population with at least the given capacity
func (p *BufferPool) Get(capacity int) Population {
	for i := len(p.free) - 1; i >= 0; i-- {
		b := p.free[i]
		if cap(b) < capacity {
			continue
		}
		p.free = append(p.free[:i], p.free[i+1:]...)
		return b[:0]
	}
	return make(Population, 0, capacity)
}

// Put hands a population back to the pool. The caller must not use it afterwards.
func (p *BufferPool) Put(b Population) {
	if cap(b) == 0 {
		return
	}
	p.free = append(p.free, b[:0])
}

// Len reports how many buffers are waiting for reuse
func (p *BufferPool) Len() int {
	return len(p.free)
}
