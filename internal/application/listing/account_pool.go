package listing

import (
	"context"
	"sync"
)

// AccountPool bounds concurrent adapter calls per (platform, account) key
type AccountPool struct {
	mu    sync.Mutex
	size  int
	slots map[string]chan struct{}
}

// NewAccountPool creates a pool allowing size concurrent calls per key
func NewAccountPool(size int) *AccountPool {
	if size <= 0 {
		size = 1
	}
	return &AccountPool{size: size, slots: make(map[string]chan struct{})}
}

// Acquire blocks until a slot for key is free or ctx is done. The returned
// release func must be called exactly once.
func (p *AccountPool) Acquire(ctx context.Context, key string) (func(), error) {
	sem := p.semaphore(key)
	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InUse returns the number of held slots for key
func (p *AccountPool) InUse(key string) int {
	return len(p.semaphore(key))
}

func (p *AccountPool) semaphore(key string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	sem, ok := p.slots[key]
	if !ok {
		sem = make(chan struct{}, p.size)
		p.slots[key] = sem
	}
	return sem
}
