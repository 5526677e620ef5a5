package chat

import "sync"

// keyedMutex serializes chat exchanges per session key within this process,
// so a follow-up message always sees the previous exchange as history.
// Processes do not coordinate; across them the transcript order is only
// advisory.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// LockAll takes every name in order and returns one func releasing them in
// reverse. Callers must pass names in a consistent order.
func (k *keyedMutex) LockAll(names ...string) func() {
	unlocks := make([]func(), 0, len(names))
	for _, n := range names {
		unlocks = append(unlocks, k.Lock(n))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Lock blocks until name is free and returns the matching unlock func.
func (k *keyedMutex) Lock(name string) func() {
	k.mu.Lock()
	l, ok := k.locks[name]
	if !ok {
		l = &refLock{}
		k.locks[name] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, name)
		}
		k.mu.Unlock()
	}
}
