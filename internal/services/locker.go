package services

import (
	"sort"
	"sync"
)

// LedgerLocker serializes mutations per ledger inside this process. Row
// locks in the store cover other processes; this keeps goroutines of one
// process from queueing on the database.
type LedgerLocker struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewLedgerLocker creates an empty locker.
func NewLedgerLocker() *LedgerLocker {
	return &LedgerLocker{locks: make(map[uint]*sync.Mutex)}
}

func (l *LedgerLocker) get(id uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Lock acquires the locks of all given ledgers in ascending id order, so two
// callers locking overlapping sets cannot deadlock. The returned function
// releases them.
func (l *LedgerLocker) Lock(ids ...uint) (unlock func()) {
	ordered := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	held := make([]*sync.Mutex, len(ordered))
	for i, id := range ordered {
		held[i] = l.get(id)
		held[i].Lock()
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
