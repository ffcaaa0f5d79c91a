package wallet

import (
	"context"
	"testing"

	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/cosmos/cosmos-sdk/testutil/testdata"
	"github.com/stretchr/testify/require"

	"github.com/classic-terra/oracle-voter/oracle"
)

func newTestKeyring(t *testing.T) keyring.Keyring {
	t.Helper()
	kr := keyring.NewInMemory(testdata.NewTestEncodingConfig().Codec)
	_, _, err := kr.NewMnemonic("feeder", keyring.English, "", "", hd.Secp256k1)
	require.NoError(t, err)
	return kr
}

func TestNewKeyringWalletLoadsAddress(t *testing.T) {
	kr := newTestKeyring(t)
	w, err := NewKeyringWallet(kr, "feeder")
	require.NoError(t, err)
	require.NotEmpty(t, w.Address())
}

func TestOfflineSignProducesSignature(t *testing.T) {
	kr := newTestKeyring(t)
	w, err := NewKeyringWallet(kr, "feeder")
	require.NoError(t, err)

	payload := oracle.StdSignDoc{
		Msg:        []oracle.Msg{{Type: "oracle/MsgExchangeRatePrevote", Value: oracle.PrevoteMsgValue{Hash: "ab"}}},
		Fee:        oracle.Fee{Gas: "200000"},
		Signatures: []any{},
	}

	signed, err := w.OfflineSign(context.Background(), payload, "test-chain", 1, 5)
	require.NoError(t, err)
	require.Len(t, signed.Signatures, 1)
	require.Equal(t, payload.Msg, signed.Msg)
}

func TestNewKeyringWalletUnknownKeyErrors(t *testing.T) {
	kr := newTestKeyring(t)
	_, err := NewKeyringWallet(kr, "missing")
	require.Error(t, err)
}
