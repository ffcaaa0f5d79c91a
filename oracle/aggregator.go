package oracle

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

// FeedError wraps a failure from a single market feed.
type FeedError struct {
	Market string
	Err    error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Market, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// Aggregator computes one denom's committed price from its configured
// markets: a concurrent fan-out followed by a weighted sum.
type Aggregator struct {
	markets map[types.Denom][]types.Market
}

// NewAggregator builds an Aggregator from the static market configuration.
func NewAggregator(supported []types.SupportedMarket) *Aggregator {
	m := make(map[types.Denom][]types.Market, len(supported))
	for _, s := range supported {
		m[s.Denom] = s.Markets
	}
	return &Aggregator{markets: m}
}

// Denoms returns the set of denoms this aggregator can price.
func (a *Aggregator) Denoms() []types.Denom {
	out := make([]types.Denom, 0, len(a.markets))
	for d := range a.markets {
		out = append(out, d)
	}
	return out
}

// Aggregate fetches all of denom's market feeds concurrently and
// returns their weighted sum, quantized to 18 places. If any feed
// fails the whole aggregation fails — callers treat that as "skip
// this denom this period".
func (a *Aggregator) Aggregate(ctx context.Context, denom types.Denom) (decimal.Rate, error) {
	markets, ok := a.markets[denom]
	if !ok || len(markets) == 0 {
		return decimal.Rate{}, fmt.Errorf("no markets configured for denom %s", denom)
	}

	weighted := make([]decimal.Rate, len(markets))

	g, _ := errgroup.WithContext(ctx)
	for i, m := range markets {
		i, m := i, m
		g.Go(func() error {
			px, err := m.Feed()
			if err != nil {
				return &FeedError{Market: m.Name, Err: err}
			}
			if px.IsAbstain() {
				return &FeedError{Market: m.Name, Err: fmt.Errorf("feed abstained")}
			}
			weighted[i] = px.MulInt(m.Weight)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decimal.Rate{}, err
	}

	sum := decimal.Zero
	for _, w := range weighted {
		sum = sum.Add(w)
	}
	return sum.QuoInt(100), nil
}
