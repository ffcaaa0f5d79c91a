package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

func TestPrevoteMemoryPutGet(t *testing.T) {
	m := NewPrevoteMemory()
	px, _ := decimal.Parse("250.000000000000000000")
	m.Put("hash1", types.PrevoteCommitment{Hash: "hash1", Salt: "ab12", Price: px, Denom: "uusd", Period: 5})

	c, ok := m.Get("hash1")
	require.True(t, ok)
	require.Equal(t, "ab12", c.Salt)

	_, ok = m.Get("missing")
	require.False(t, ok)
}

func TestPrevoteMemoryGCDropsOlderThanTwoPeriods(t *testing.T) {
	m := NewPrevoteMemory()
	px, _ := decimal.Parse("1.000000000000000000")
	m.Put("old", types.PrevoteCommitment{Hash: "old", Period: 1})
	m.Put("recent", types.PrevoteCommitment{Hash: "recent", Period: 4, Price: px})

	m.GC(5)

	_, ok := m.Get("old")
	require.False(t, ok)
	_, ok = m.Get("recent")
	require.True(t, ok)
}
