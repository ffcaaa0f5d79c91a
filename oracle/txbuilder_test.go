package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

type stubSigner struct {
	gotChainID string
	gotAccNum  uint64
	gotSeq     uint64
}

func (s *stubSigner) OfflineSign(ctx context.Context, payload StdSignDoc, chainID string, accNum, seq uint64) (SignedStdTx, error) {
	s.gotChainID, s.gotAccNum, s.gotSeq = chainID, accNum, seq
	return SignedStdTx{
		Msg:        payload.Msg,
		Fee:        payload.Fee,
		Memo:       payload.Memo,
		Signatures: []any{"sig"},
	}, nil
}

func TestTxBuilderAppendPrevote(t *testing.T) {
	b := NewTxBuilder("test-chain", 7, 42)
	b.AppendPrevote("deadbeef", types.Denom("uusd"), "terra1feeder", "terravaloper1validator")
	require.Equal(t, 1, b.Len())

	doc := b.Build()
	require.Len(t, doc.Msg, 1)
	require.Equal(t, "oracle/MsgExchangeRatePrevote", doc.Msg[0].Type)
	require.Empty(t, doc.Signatures)
}

func TestTxBuilderAppendRevealEncodesAbstain(t *testing.T) {
	b := NewTxBuilder("test-chain", 7, 43)
	b.AppendReveal(decimal.Abstain, "ab12", types.Denom("uusd"), "terra1feeder", "terravaloper1validator")

	val, ok := b.Msgs()[0].Value.(RevealMsgValue)
	require.True(t, ok)
	require.Equal(t, decimal.AbstainString, val.ExchangeRate)
}

func TestTxBuilderSignPassesSequence(t *testing.T) {
	b := NewTxBuilder("test-chain", 7, 99)
	b.AppendPrevote("deadbeef", types.Denom("uusd"), "terra1feeder", "terravaloper1validator")

	signer := &stubSigner{}
	signed, err := b.Sign(context.Background(), signer)
	require.NoError(t, err)
	require.Equal(t, uint64(99), signer.gotSeq)
	require.Equal(t, uint64(7), signer.gotAccNum)
	require.Equal(t, "test-chain", signer.gotChainID)
	require.NotEmpty(t, signed.Signatures)
}

func TestBroadcastReadyWrapsSyncMode(t *testing.T) {
	env := BroadcastReady(SignedStdTx{Memo: "m"})
	require.Equal(t, "sync", env.Mode)
	require.Equal(t, "m", env.Tx.Memo)
}
