package router

import (
	"github.com/shopspring/decimal"

	"routeScope/internal/model"
)

// selectBest picks the candidate with the strictly greatest output. All
// candidates share tokenOut, so raw base-unit comparison is exact; ties
// keep the first-seen candidate so repeated runs over the same input
// ordering are deterministic.
func selectBest(quotes []model.QuoteResult) (model.QuoteResult, bool) {
	var best model.QuoteResult
	found := false
	for _, quote := range quotes {
		if !found || quote.AmountOut.Cmp(best.AmountOut) > 0 {
			best = quote
			found = true
		}
	}
	return best, found
}

// feePercent renders the candidate's pool fee as a display percentage. The
// two-hop figure is the arithmetic sum of both legs. That overstates the
// compounded cost slightly; product has accepted the simpler number.
func feePercent(candidate model.RouteCandidate) string {
	switch candidate.Kind {
	case model.RouteSingleHop:
		return feeTierPercent(candidate.Fee).StringFixed(3)
	case model.RouteTwoHop:
		return feeTierPercent(candidate.FeeIn).Add(feeTierPercent(candidate.FeeOut)).StringFixed(3)
	default:
		// Wrap and unwrap are fee-free.
		return decimal.Zero.StringFixed(3)
	}
}

// feeTierPercent converts a uint24 fee (hundredths of a basis point) to a
// percentage: 500 -> 0.05.
func feeTierPercent(fee model.FeeTier) decimal.Decimal {
	return decimal.New(int64(fee), -4)
}
