package decimal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"250.000000000000000000",
		"0.000000000000000001",
		"-1.000000000000000000",
		"12345.987654321098765432",
	}
	for _, s := range cases {
		r, err := Parse(s)
		require.NoError(t, err)
		require.Equal(t, s, r.String18())
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("not-a-number")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestAbstainSentinel(t *testing.T) {
	r, err := Parse(AbstainString)
	require.NoError(t, err)
	require.True(t, r.IsAbstain())
	require.Panics(t, func() { _ = r.Add(Zero) })
}

func TestWeightedSum(t *testing.T) {
	px, err := Parse("100.000000000000000000")
	require.NoError(t, err)

	weighted := px.MulInt(60).QuoInt(100).Add(px.MulInt(40).QuoInt(100))
	require.Equal(t, "100.000000000000000000", weighted.String18())
}

func TestQuantizeStable(t *testing.T) {
	r := NewFromInt(7).QuoInt(3)
	require.Equal(t, r.String18(), r.Quantize().String18())
}
