package oracle

import (
	"github.com/classic-terra/oracle-voter/oracle/types"
)

// historyLimit bounds how many resolved tx entries are kept per kind,
// satisfying the "retain at least 3" requirement with headroom.
const historyLimit = 10

// TxResultFetcher resolves a broadcast tx hash to its on-chain outcome
// once the chain has had time to include it. A nil, false result means
// "not yet known" and the entry stays queued.
type TxResultFetcher func(hash string) (success bool, failedLogs []types.FailedLog, known bool)

// PendingTracker tracks broadcast txs awaiting their on-chain outcome:
// one FIFO queue per message kind, at most one head-of-queue lookup
// resolved per tick, and a bounded trailing history for each kind once
// resolved.
type PendingTracker struct {
	queues  map[types.TxKind][]types.PendingTx
	history map[types.TxKind][]types.TxHistoryEntry
}

// NewPendingTracker returns an empty tracker.
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{
		queues:  make(map[types.TxKind][]types.PendingTx),
		history: make(map[types.TxKind][]types.TxHistoryEntry),
	}
}

// Enqueue records a freshly broadcast tx awaiting resolution.
func (t *PendingTracker) Enqueue(kind types.TxKind, tx types.PendingTx) {
	t.queues[kind] = append(t.queues[kind], tx)
}

// Pending reports how many txs of kind are still awaiting resolution.
func (t *PendingTracker) Pending(kind types.TxKind) int {
	return len(t.queues[kind])
}

// CheckOne peeks the head of kind's queue. It leaves the entry queued
// until h reaches the head's RevealHeight — the chain needs a handful
// of blocks to index a broadcast tx before querying it makes sense.
// Once due, the head is popped and fetch resolves it; if fetch reports
// the result is not yet known, the entry is left queued (not re-popped)
// so it's retried on a later tick. At most one entry per kind is
// consulted per call, so a stalled head never starves progress on
// other kinds.
func (t *PendingTracker) CheckOne(kind types.TxKind, h int64, fetch TxResultFetcher) {
	q := t.queues[kind]
	if len(q) == 0 {
		return
	}
	head := q[0]
	if h < head.RevealHeight {
		return
	}
	rest := q[1:]

	success, failedLogs, known := fetch(head.TxHash)
	if !known {
		return
	}

	t.queues[kind] = rest
	entry := types.TxHistoryEntry{
		TxHash:     head.TxHash,
		Msgs:       head.Msgs,
		SentHeight: head.SentHeight,
		Result:     &success,
		FailedLogs: failedLogs,
	}
	t.pushHistory(kind, entry)
}

func (t *PendingTracker) pushHistory(kind types.TxKind, entry types.TxHistoryEntry) {
	h := append(t.history[kind], entry)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	t.history[kind] = h
}

// History returns the bounded trailing history of resolved txs for kind,
// oldest first.
func (t *PendingTracker) History(kind types.TxKind) []types.TxHistoryEntry {
	return t.history[kind]
}
