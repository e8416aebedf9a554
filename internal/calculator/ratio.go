package calculator

import "github.com/shopspring/decimal"

// RatioStrategy divides the total in proportion to per-participant weights.
// A participant without a weight counts as 1, and so does the user when included.
type RatioStrategy struct{}

func (RatioStrategy) Type() SplitStrategy { return StrategyRatio }

func (s RatioStrategy) Validate(req SplitRequest) error {
	_, _, err := s.weights(req)
	return err
}

// Calculate gives each participant round2(weight / totalWeight * amount).
func (s RatioStrategy) Calculate(req SplitRequest) (Shares, error) {
	weights, total, err := s.weights(req)
	if err != nil {
		return nil, err
	}

	amount := decimal.NewFromFloat(req.Amount)
	shares := make(Shares, len(req.Participants))
	for i, p := range req.Participants {
		shares[i] = Share{FriendID: p, Amount: Round2(amount.Mul(weights[i]).Div(total))}
	}
	return shares, nil
}

func (RatioStrategy) weights(req SplitRequest) ([]decimal.Decimal, decimal.Decimal, error) {
	if err := validateCommon(req); err != nil {
		return nil, decimal.Zero, err
	}

	one := decimal.NewFromInt(1)
	weights := make([]decimal.Decimal, len(req.Participants))
	total := decimal.Zero
	for i, p := range req.Participants {
		w, ok, err := weight(req, p)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !ok {
			w = one
		}
		weights[i] = w
		total = total.Add(w)
	}
	if req.IncludeSelf {
		total = total.Add(one)
	}
	if !total.IsPositive() {
		return nil, decimal.Zero, ErrZeroTotalWeight
	}
	return weights, total, nil
}
