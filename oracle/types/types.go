// Package types holds the oracle voter's data model: denoms, the
// static feed configuration, and the commit/reveal bookkeeping records
// carried across vote periods.
package types

import (
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

// Denom is a chain-internal currency-pair identifier, e.g. "uusd".
type Denom string

// Feed is a zero-argument market price source: each market is a
// callable returning a rate.
type Feed func() (decimal.Rate, error)

// Market is one weighted price source feeding a Denom's aggregate.
type Market struct {
	Name   string
	Feed   Feed
	Weight int64
}

// SupportedMarket is the static, locally-configured composition of
// markets backing one denom. Weights must sum to 100.
type SupportedMarket struct {
	Denom   Denom
	Markets []Market
}

// PrevoteCommitment is what the voter remembers about a prevote it
// emitted, so it can disclose (price, salt) when the reveal comes due
// in the following period.
type PrevoteCommitment struct {
	Hash   string
	Salt   string
	Price  decimal.Rate
	Denom  Denom
	Period int64
}

// TxKind distinguishes the two message kinds a period emits.
type TxKind string

const (
	KindPrevote TxKind = "prevote"
	KindVote    TxKind = "vote"
)

// PendingTx is a broadcast transaction awaiting its outcome query. It
// is not due for a check until the observed height reaches RevealHeight,
// giving the chain a few blocks to index it; SentHeight and Msgs are carried along so the eventual
// TxHistoryEntry can record what was actually broadcast and when.
type PendingTx struct {
	Kind         TxKind
	TxHash       string
	Msgs         []any
	SentHeight   int64
	RevealHeight int64
}

// FailedLog captures one message's on-chain rejection reason.
type FailedLog struct {
	MsgIndex int
	Log      string
}

// TxHistoryEntry records one broadcast transaction's fate for the
// bounded recent-history log.
type TxHistoryEntry struct {
	TxHash     string
	Msgs       []any
	SentHeight int64
	Result     *bool
	FailedLogs []FailedLog
}
