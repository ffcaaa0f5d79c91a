package provider

import (
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

// ConstantFeed always reports the same price: useful for smoke-testing
// a SupportedMarket's weighting without depending on a live endpoint.
type ConstantFeed struct {
	Rate decimal.Rate
}

// NewConstantFeed parses a fixed rate string once at construction time.
func NewConstantFeed(rate string) (*ConstantFeed, error) {
	r, err := decimal.Parse(rate)
	if err != nil {
		return nil, err
	}
	return &ConstantFeed{Rate: r}, nil
}

// Feed returns the types.Feed closure.
func (f *ConstantFeed) Feed() func() (decimal.Rate, error) {
	return func() (decimal.Rate, error) {
		return f.Rate, nil
	}
}
