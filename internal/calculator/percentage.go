package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PercentageStrategy charges each participant a percentage of the total.
//
// Without the user the percentages must total 100. With the user they may total
// less, the remainder being the user's share; a total above 100 is rejected and
// never rescaled.
type PercentageStrategy struct{}

func (PercentageStrategy) Type() SplitStrategy { return StrategyPercentage }

func (PercentageStrategy) Validate(req SplitRequest) error {
	if err := validateCommon(req); err != nil {
		return err
	}
	weights, sum, err := requiredWeights(req)
	if err != nil {
		return err
	}
	for i, w := range weights {
		if w.GreaterThan(hundred) {
			return fmt.Errorf("%w: %s", ErrPercentageOutOfRange, req.Participants[i])
		}
	}

	// The tolerance only applies to the exact total; with the user included any
	// excess would leave the user a negative share.
	if req.IncludeSelf {
		if sum.GreaterThan(hundred) {
			return ErrPercentagesExceed
		}
		return nil
	}
	if sum.Sub(hundred).Abs().GreaterThan(sumTolerance) {
		return ErrPercentagesTotal
	}
	return nil
}

// Calculate gives each participant round2(weight / 100 * amount).
func (s PercentageStrategy) Calculate(req SplitRequest) (Shares, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	amount := decimal.NewFromFloat(req.Amount)
	shares := make(Shares, len(req.Participants))
	for i, p := range req.Participants {
		w := decimal.NewFromFloat(req.Weights[p])
		shares[i] = Share{FriendID: p, Amount: Round2(amount.Mul(w).Div(hundred))}
	}
	return shares, nil
}
