package oracle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

func TestBuildCommitmentLength(t *testing.T) {
	px, err := decimal.Parse("250.000000000000000000")
	require.NoError(t, err)

	salt, hash, err := BuildCommitment("uusd", px, "terravaloper1xyz")
	require.NoError(t, err)
	require.Len(t, salt, 4)
	require.Len(t, hash, 40)
}

func TestCommitmentMatchesManualSHA256Truncation(t *testing.T) {
	px, err := decimal.Parse("250.000000000000000000")
	require.NoError(t, err)

	salt := "ab12"
	payload := fmt.Sprintf("%s:%s:%s:%s", salt, px.String18(), "uusd", "V")
	full := sha256.Sum256([]byte(payload))
	want := hex.EncodeToString(full[:20])

	got := commitmentHash(salt, px, "uusd", "V")
	require.Equal(t, want, got)
}

func TestVerifyCommitmentRoundTrip(t *testing.T) {
	px, err := decimal.Parse("99.500000000000000000")
	require.NoError(t, err)

	salt, hash, err := BuildCommitment("ukrw", px, "V")
	require.NoError(t, err)
	require.True(t, VerifyCommitment(salt, px, "ukrw", "V", hash))
	require.False(t, VerifyCommitment("ffff", px, "ukrw", "V", hash))
}
