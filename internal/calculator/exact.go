package calculator

// ExactStrategy takes each participant's share literally from the weights.
// Zero shares are allowed; negative ones are not.
type ExactStrategy struct{}

func (ExactStrategy) Type() SplitStrategy { return StrategyExact }

// Validate requires the shares to sum to the amount when the user is not part of
// the split, and to stay within it when the user is.
func (ExactStrategy) Validate(req SplitRequest) error {
	if err := validateCommon(req); err != nil {
		return err
	}
	_, sum, err := requiredWeights(req)
	if err != nil {
		return err
	}

	diff := sum.Sub(toDecimal(req.Amount))
	if req.IncludeSelf {
		if diff.IsPositive() {
			return ErrExactExceeds
		}
		return nil
	}
	if diff.Abs().GreaterThan(sumTolerance) {
		return ErrExactSum
	}
	return nil
}

func (s ExactStrategy) Calculate(req SplitRequest) (Shares, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	shares := make(Shares, len(req.Participants))
	for i, p := range req.Participants {
		shares[i] = Share{FriendID: p, Amount: Round2(toDecimal(req.Weights[p]))}
	}
	return shares, nil
}
