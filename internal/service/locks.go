package service

import (
	"sync"

	"github.com/google/uuid"
)

// CardLocks serializes in-process writes to a card. Single-card writers hold
// the shared side of a global lock plus a per-card mutex; batch writers such
// as recalculation hold the global lock exclusively.
//
// The zero value is ready to use.
type CardLocks struct {
	global sync.RWMutex
	mu     sync.Mutex
	cards  map[uuid.UUID]*cardLock
}

type cardLock struct {
	mu   sync.Mutex
	refs int
}

// NewCardLocks creates an empty lock table.
func NewCardLocks() *CardLocks {
	return &CardLocks{}
}

// LockCard blocks until the caller holds the write lock of card id and
// returns the function that releases it.
func (l *CardLocks) LockCard(id uuid.UUID) (unlock func()) {
	l.global.RLock()

	l.mu.Lock()
	if l.cards == nil {
		l.cards = make(map[uuid.UUID]*cardLock)
	}
	cl, ok := l.cards[id]
	if !ok {
		cl = &cardLock{}
		l.cards[id] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()

	return func() {
		cl.mu.Unlock()

		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.cards, id)
		}
		l.mu.Unlock()

		l.global.RUnlock()
	}
}

// LockAll blocks until no single-card writer is active and excludes new ones
// until the returned function is called.
func (l *CardLocks) LockAll() (unlock func()) {
	l.global.Lock()
	return l.global.Unlock
}

// active reports the number of cards with a held or pending lock.
func (l *CardLocks) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cards)
}
