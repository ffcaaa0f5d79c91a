package oracle

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/classic-terra/oracle-voter/oracle/types"
)

// defaultDeviationThreshold bounds how far a freshly aggregated market
// price may drift from the chain's last reported rate for the same
// denom, expressed as a fraction of that rate (0.10 == 10%).
var defaultDeviationThreshold = sdk.MustNewDecFromStr("0.10")

// DeviationError reports that a freshly aggregated price fell outside
// the allowed band around the chain's last reported rate for denom.
type DeviationError struct {
	Denom     types.Denom
	Market    sdk.Dec
	Chain     sdk.Dec
	Margin    sdk.Dec
	Threshold sdk.Dec
}

func (e *DeviationError) Error() string {
	return fmt.Sprintf(
		"oracle: %s market price %s deviates from chain price %s by more than %s (margin %s)",
		e.Denom, e.Market, e.Chain, e.Threshold, e.Margin,
	)
}

func isWithinMargin(p, anchor, margin sdk.Dec) bool {
	return p.GTE(anchor.Sub(margin)) && p.LTE(anchor.Add(margin))
}

// CheckDeviation compares a freshly aggregated market price against the
// chain's last reported rate for denom and returns a *DeviationError if
// it strays further than threshold (a fraction of the chain price).
// A zero or absent chain price (denom not yet active on-chain) always
// passes, since there is nothing yet to compare against. A nil
// threshold falls back to defaultDeviationThreshold.
func CheckDeviation(logger zerolog.Logger, denom types.Denom, marketPrice, chainPrice sdk.Dec, threshold sdk.Dec) error {
	if threshold.IsNil() {
		threshold = defaultDeviationThreshold
	}
	if chainPrice.IsNil() || chainPrice.IsZero() {
		return nil
	}

	margin := chainPrice.Mul(threshold)
	if isWithinMargin(marketPrice, chainPrice, margin) {
		return nil
	}

	logger.Warn().
		Str("denom", string(denom)).
		Str("market_price", marketPrice.String()).
		Str("chain_price", chainPrice.String()).
		Str("margin", margin.String()).
		Msg("aggregated price deviates from chain price")

	return &DeviationError{
		Denom:     denom,
		Market:    marketPrice,
		Chain:     chainPrice,
		Margin:    margin,
		Threshold: threshold,
	}
}
