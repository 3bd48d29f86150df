package usecase

import (
	"context"
	"sync"
)

// placeLocks serializes work per place id. A caller that arrives while
// another holds the id waits and then runs with its own fresh store read,
// so the last notification for an id is always reflected in the index.
type placeLocks struct {
	mu    sync.Mutex
	locks map[string]*placeLock
}

type placeLock struct {
	ch   chan struct{}
	refs int
}

func newPlaceLocks() *placeLocks {
	return &placeLocks{locks: make(map[string]*placeLock)}
}

// lock blocks until id is free or ctx is done. The returned func releases
// the id and must be called exactly once.
func (p *placeLocks) lock(ctx context.Context, id string) (func(), error) {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &placeLock{ch: make(chan struct{}, 1)}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			p.unref(id, l)
		}, nil
	case <-ctx.Done():
		p.unref(id, l)
		return nil, ctx.Err()
	}
}

func (p *placeLocks) unref(id string, l *placeLock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(p.locks, id)
	}
}

func (p *placeLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
