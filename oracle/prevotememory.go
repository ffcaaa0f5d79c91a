package oracle

import (
	"sync"

	"github.com/classic-terra/oracle-voter/oracle/types"
)

// PrevoteStore is the carry-over interface the voter state machine
// depends on: remember a commitment until its reveal is due, then
// forget it. PrevoteMemory is the in-process default; SQLitePrevoteMemory
// is the optional disk-persisted implementation.
type PrevoteStore interface {
	Put(hash string, c types.PrevoteCommitment)
	Get(hash string) (types.PrevoteCommitment, bool)
	GC(currentPeriod int64)
	Len() int
}

// PrevoteMemory carries commitments from the period they were created
// in to the period their reveal is due, keyed by the hash the chain
// will later report back. Entries older than two periods are
// discarded, honoring a bounded retention window.
type PrevoteMemory struct {
	mtx     sync.Mutex
	entries map[string]types.PrevoteCommitment
}

// NewPrevoteMemory returns an empty, in-process PrevoteMemory.
func NewPrevoteMemory() *PrevoteMemory {
	return &PrevoteMemory{entries: make(map[string]types.PrevoteCommitment)}
}

// Put records a commitment created during the given period.
func (m *PrevoteMemory) Put(hash string, c types.PrevoteCommitment) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.entries[hash] = c
}

// Get looks up a commitment by the hash the chain reports. Lookup is
// by hash, never by position, per invariant 2.
func (m *PrevoteMemory) Get(hash string) (types.PrevoteCommitment, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	c, ok := m.entries[hash]
	return c, ok
}

// GC discards commitments created more than one period before
// currentPeriod — a commitment is only ever eligible for reveal in the
// single period right after the one it was created in.
func (m *PrevoteMemory) GC(currentPeriod int64) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for hash, c := range m.entries {
		if currentPeriod-c.Period > 1 {
			delete(m.entries, hash)
		}
	}
}

// Len reports the number of commitments currently held.
func (m *PrevoteMemory) Len() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.entries)
}
