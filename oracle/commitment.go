package oracle

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/tendermint/tendermint/crypto/tmhash"

	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

// GenerateSalt returns 4 hex characters derived from 2 cryptographically
// random bytes, as spec'd for the prevote commitment.
func GenerateSalt() (string, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("commitment: failed to generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// BuildCommitment derives the salt and the 40-hex-char commitment hash
// for (denom, rate, validator). The hash truncation is protocol-mandated
// and reproduced bit-exact using tmhash.NewTruncated, which is exactly
// "SHA-256, first 20 bytes" — the primitive Team-Kujira's price-feeder
// uses for its own aggregate-vote hash.
func BuildCommitment(denom types.Denom, rate decimal.Rate, validator string) (salt, hash string, err error) {
	salt, err = GenerateSalt()
	if err != nil {
		return "", "", err
	}
	hash = commitmentHash(salt, rate, denom, validator)
	return salt, hash, nil
}

// VerifyCommitment reports whether (salt, rate, denom, validator)
// reproduces hash — the round-trip law the reveal phase relies on.
func VerifyCommitment(salt string, rate decimal.Rate, denom types.Denom, validator, hash string) bool {
	return commitmentHash(salt, rate, denom, validator) == hash
}

func commitmentHash(salt string, rate decimal.Rate, denom types.Denom, validator string) string {
	payload := fmt.Sprintf("%s:%s:%s:%s", salt, rate.String18(), denom, validator)
	h := tmhash.NewTruncated()
	_, _ = h.Write([]byte(payload)) // hash.Hash.Write never errors
	return hex.EncodeToString(h.Sum(nil))
}
