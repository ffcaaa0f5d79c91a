package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

func constFeed(v string) types.Feed {
	return func() (decimal.Rate, error) {
		return decimal.Parse(v)
	}
}

func failingFeed(err error) types.Feed {
	return func() (decimal.Rate, error) {
		return decimal.Rate{}, err
	}
}

func TestAggregateWeightedSumOfConstant(t *testing.T) {
	agg := NewAggregator([]types.SupportedMarket{
		{
			Denom: "uusd",
			Markets: []types.Market{
				{Name: "a", Feed: constFeed("250.000000000000000000"), Weight: 60},
				{Name: "b", Feed: constFeed("250.000000000000000000"), Weight: 40},
			},
		},
	})

	rate, err := agg.Aggregate(context.Background(), "uusd")
	require.NoError(t, err)
	require.Equal(t, "250.000000000000000000", rate.String18())
}

func TestAggregateFailsWholeOnOneFeedError(t *testing.T) {
	agg := NewAggregator([]types.SupportedMarket{
		{
			Denom: "ukrw",
			Markets: []types.Market{
				{Name: "a", Feed: constFeed("1000.000000000000000000"), Weight: 50},
				{Name: "b", Feed: failingFeed(errors.New("timeout")), Weight: 50},
			},
		},
	})

	_, err := agg.Aggregate(context.Background(), "ukrw")
	require.Error(t, err)
	var ferr *FeedError
	require.ErrorAs(t, err, &ferr)
}

func TestAggregateUnknownDenom(t *testing.T) {
	agg := NewAggregator(nil)
	_, err := agg.Aggregate(context.Background(), "uxyz")
	require.Error(t, err)
}
