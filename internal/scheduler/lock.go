package scheduler

import "sync"

// keyedLock serializa os handlers de uma mesma task; entradas somem quando ninguém mais espera
type keyedLock struct {
	mu sync.Mutex
	m  map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLock) Lock(id int64) (unlock func()) {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[int64]*lockEntry)
	}
	e, ok := k.m[id]
	if !ok {
		e = &lockEntry{}
		k.m[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
