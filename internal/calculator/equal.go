package calculator

import "github.com/shopspring/decimal"

// EqualStrategy gives every participant, and the user when included, the same share.
type EqualStrategy struct{}

func (EqualStrategy) Type() SplitStrategy { return StrategyEqual }

// Validate has nothing beyond the common checks; weights are ignored.
func (EqualStrategy) Validate(req SplitRequest) error {
	return validateCommon(req)
}

// Calculate gives each participant round2(amount / n), where n also counts the
// user when IncludeSelf is set. The user's share stays implicit.
func (s EqualStrategy) Calculate(req SplitRequest) (Shares, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	numShares := len(req.Participants)
	if req.IncludeSelf {
		numShares++
	}
	share := Round2(decimal.NewFromFloat(req.Amount).Div(decimal.NewFromInt(int64(numShares))))

	shares := make(Shares, len(req.Participants))
	for i, p := range req.Participants {
		shares[i] = Share{FriendID: p, Amount: share}
	}
	return shares, nil
}
