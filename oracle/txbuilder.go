package oracle

import (
	"context"
	"fmt"

	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

// Fee is the flat gas fee every transaction carries.
type Fee struct {
	Amount []Coin `json:"amount"`
	Gas    string `json:"gas"`
}

// Coin is a denom/amount pair, as used in the fee's amount list.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// PrevoteMsgValue is the value payload of an oracle/MsgExchangeRatePrevote.
type PrevoteMsgValue struct {
	Hash      string `json:"hash"`
	Denom     string `json:"denom"`
	Feeder    string `json:"feeder"`
	Validator string `json:"validator"`
}

// RevealMsgValue is the value payload of an oracle/MsgExchangeRateVote.
type RevealMsgValue struct {
	ExchangeRate string `json:"exchange_rate"`
	Salt         string `json:"salt"`
	Denom        string `json:"denom"`
	Feeder       string `json:"feeder"`
	Validator    string `json:"validator"`
}

// Msg is one signable oracle message, tagged with its Amino type string.
type Msg struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// StdSignDoc is the canonical unsigned payload handed to the wallet
// capability for offline signing: a {msg, fee, memo, signatures: []}
// shape.
type StdSignDoc struct {
	Msg        []Msg  `json:"msg"`
	Fee        Fee    `json:"fee"`
	Memo       string `json:"memo"`
	Signatures []any  `json:"signatures"`
}

// SignedStdTx is a StdSignDoc with signatures filled in by the wallet.
type SignedStdTx struct {
	Msg        []Msg  `json:"msg"`
	Fee        Fee    `json:"fee"`
	Memo       string `json:"memo"`
	Signatures []any  `json:"signatures"`
}

// Signer is the capability a TxBuilder hands its payload to for
// offline signing. It is the minimal slice of the wallet capability
// the builder itself depends on.
type Signer interface {
	OfflineSign(ctx context.Context, payload StdSignDoc, chainID string, accountNum, sequence uint64) (SignedStdTx, error)
}

const defaultGas = "200000"

// TxBuilder accumulates an ordered list of oracle messages for one
// period's reveal or commit transaction.
type TxBuilder struct {
	ChainID       string
	AccountNumber uint64
	Sequence      uint64
	Memo          string
	GasFee        string
	GasDenom      string

	msgs []Msg
}

// NewTxBuilder constructs an empty builder bound to one account-sequence slot.
func NewTxBuilder(chainID string, accountNumber, sequence uint64) *TxBuilder {
	return &TxBuilder{
		ChainID:       chainID,
		AccountNumber: accountNumber,
		Sequence:      sequence,
		GasFee:        defaultGas,
	}
}

// AppendPrevote appends an oracle/MsgExchangeRatePrevote.
func (b *TxBuilder) AppendPrevote(hash string, denom types.Denom, feeder, validator string) {
	b.msgs = append(b.msgs, Msg{
		Type: "oracle/MsgExchangeRatePrevote",
		Value: PrevoteMsgValue{
			Hash:      hash,
			Denom:     string(denom),
			Feeder:    feeder,
			Validator: validator,
		},
	})
}

// AppendReveal appends an oracle/MsgExchangeRateVote disclosing the
// price and salt committed to by a prior prevote. Passing decimal.Abstain
// encodes the wire abstain sentinel.
func (b *TxBuilder) AppendReveal(rate decimal.Rate, salt string, denom types.Denom, feeder, validator string) {
	b.msgs = append(b.msgs, Msg{
		Type: "oracle/MsgExchangeRateVote",
		Value: RevealMsgValue{
			ExchangeRate: rate.String18(),
			Salt:         salt,
			Denom:        string(denom),
			Feeder:       feeder,
			Validator:    validator,
		},
	})
}

// Len reports how many messages have been appended so far.
func (b *TxBuilder) Len() int { return len(b.msgs) }

// Msgs returns the accumulated message list.
func (b *TxBuilder) Msgs() []Msg { return b.msgs }

func (b *TxBuilder) fee() Fee {
	amount := []Coin{}
	if b.GasFee != "" && b.GasDenom != "" {
		amount = append(amount, Coin{Denom: b.GasDenom, Amount: b.GasFee})
	}
	return Fee{Amount: amount, Gas: defaultGas}
}

// Build assembles the unsigned canonical payload.
func (b *TxBuilder) Build() StdSignDoc {
	return StdSignDoc{
		Msg:        b.msgs,
		Fee:        b.fee(),
		Memo:       b.Memo,
		Signatures: []any{},
	}
}

// Sign hands the unsigned payload to the wallet capability for offline
// signing over (chain_id, account_number, sequence).
func (b *TxBuilder) Sign(ctx context.Context, signer Signer) (SignedStdTx, error) {
	payload := b.Build()
	signed, err := signer.OfflineSign(ctx, payload, b.ChainID, b.AccountNumber, b.Sequence)
	if err != nil {
		return SignedStdTx{}, fmt.Errorf("txbuilder: sign failed: %w", err)
	}
	return signed, nil
}

// BroadcastEnvelope is the broadcast-ready {tx, mode} wrapper: the
// signed StdTx's value subobject, wrapped for POST /txs.
type BroadcastEnvelope struct {
	Tx   SignedStdTx `json:"tx"`
	Mode string      `json:"mode"`
}

// BroadcastReady wraps a signed tx into the sync-mode broadcast envelope.
func BroadcastReady(signed SignedStdTx) BroadcastEnvelope {
	return BroadcastEnvelope{Tx: signed, Mode: "sync"}
}
