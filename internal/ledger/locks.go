package ledger

import (
	"slices"
	"sync"
)

// keyedMutex hands out one exclusive lock per id. Entries are dropped when
// nobody holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*refLock)}
}

// Lock acquires every id in ascending order and returns a func releasing
// them. Duplicate ids are locked once.
func (k *keyedMutex) Lock(ids ...int64) (unlock func()) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]*refLock, 0, len(ordered))
	for _, id := range ordered {
		l := k.acquire(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			k.release(ordered[i])
		}
	}
}

func (k *keyedMutex) acquire(id int64) *refLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	return l
}

func (k *keyedMutex) release(id int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l := k.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
}

// size reports how many ids currently have an entry.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
