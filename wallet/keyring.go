package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"

	"github.com/classic-terra/oracle-voter/oracle"
)

// KeyringWallet signs locally using a cosmos-sdk keyring-backed key,
// the same primitive the rest of the Cosmos ecosystem uses for offline
// signing rather than shelling out to a node.
type KeyringWallet struct {
	kr     keyring.Keyring
	uid    string
	pubKey cryptotypes.PubKey
	addr   string
}

// NewKeyringWallet opens key uid from kr and caches its address.
func NewKeyringWallet(kr keyring.Keyring, uid string) (*KeyringWallet, error) {
	info, err := kr.Key(uid)
	if err != nil {
		return nil, fmt.Errorf("wallet: load key %q: %w", uid, err)
	}
	pub, err := info.GetPubKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: read pubkey for %q: %w", uid, err)
	}
	addr, err := info.GetAddress()
	if err != nil {
		return nil, fmt.Errorf("wallet: read address for %q: %w", uid, err)
	}
	return &KeyringWallet{kr: kr, uid: uid, pubKey: pub, addr: addr.String()}, nil
}

// Address returns the bech32 validator/feeder address this wallet signs for.
func (w *KeyringWallet) Address() string { return w.addr }

// OfflineSign canonicalizes payload into the StdSignDoc wire shape
// (with chain_id/account_number/sequence folded in, per the Amino
// sign-bytes convention) and signs it with the cached key.
func (w *KeyringWallet) OfflineSign(ctx context.Context, payload oracle.StdSignDoc, chainID string, accountNum, sequence uint64) (oracle.SignedStdTx, error) {
	signBytes, err := canonicalSignBytes(payload, chainID, accountNum, sequence)
	if err != nil {
		return oracle.SignedStdTx{}, err
	}

	sig, _, err := w.kr.Sign(w.uid, signBytes)
	if err != nil {
		return oracle.SignedStdTx{}, fmt.Errorf("wallet: sign: %w", err)
	}

	return oracle.SignedStdTx{
		Msg:  payload.Msg,
		Fee:  payload.Fee,
		Memo: payload.Memo,
		Signatures: []any{
			signatureEntry{
				PubKey:    pubKeyEntry{Type: "tendermint/PubKeySecp256k1", Value: w.pubKey.Bytes()},
				Signature: sig,
			},
		},
	}, nil
}

type pubKeyEntry struct {
	Type  string `json:"type"`
	Value []byte `json:"value"`
}

type signatureEntry struct {
	PubKey    pubKeyEntry `json:"pub_key"`
	Signature []byte      `json:"signature"`
}

// canonicalSignBytes builds the deterministic JSON payload the key
// signs over: the StdSignDoc fields plus the (chain_id, account_number,
// sequence) triple that pins the signature to exactly one broadcast slot.
func canonicalSignBytes(payload oracle.StdSignDoc, chainID string, accountNum, sequence uint64) ([]byte, error) {
	doc := struct {
		AccountNumber string       `json:"account_number"`
		ChainID       string       `json:"chain_id"`
		Fee           oracle.Fee   `json:"fee"`
		Memo          string       `json:"memo"`
		Msgs          []oracle.Msg `json:"msgs"`
		Sequence      string       `json:"sequence"`
	}{
		AccountNumber: fmt.Sprintf("%d", accountNum),
		ChainID:       chainID,
		Fee:           payload.Fee,
		Memo:          payload.Memo,
		Msgs:          payload.Msg,
		Sequence:      fmt.Sprintf("%d", sequence),
	}
	return json.Marshal(doc)
}
