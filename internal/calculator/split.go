package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SplitStrategy names the algorithm used to divide a group expense.
type SplitStrategy string

const (
	StrategyEqual      SplitStrategy = "equal"
	StrategyPercentage SplitStrategy = "percentage"
	StrategyRatio      SplitStrategy = "ratio"
	StrategyExact      SplitStrategy = "exact"
)

var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrDuplicateParticipant = errors.New("participant selected more than once")
	ErrUnknownStrategy      = errors.New("unknown split strategy")
	ErrMissingWeight        = errors.New("a value is required for every participant")
	ErrInvalidWeight        = errors.New("values must be finite numbers")
	ErrNegativeWeight       = errors.New("values cannot be negative")
	ErrPercentageOutOfRange = errors.New("percentage must be between 0 and 100")
	ErrPercentagesTotal     = errors.New("percentages must total 100")
	ErrPercentagesExceed    = errors.New("percentages exceed 100")
	ErrZeroTotalWeight      = errors.New("ratio weights cannot all be zero")
	ErrExactSum             = errors.New("shares must sum to total amount")
	ErrExactExceeds         = errors.New("shares exceed total amount")
)

// SplitRequest describes a group expense to divide.
type SplitRequest struct {
	// Amount is the full expense, including the user's own share when IncludeSelf is set.
	Amount float64

	// Participants are friend IDs, in the order shares should be reported.
	// The user is never listed here; see IncludeSelf.
	Participants []string

	Strategy SplitStrategy

	// IncludeSelf counts the user as an extra participant whose share is implicit:
	// it is never computed or materialized.
	IncludeSelf bool

	// Weights holds the per-participant input: a percentage, a ratio weight or an
	// exact amount depending on Strategy. Ignored for equal splits.
	Weights map[string]float64
}

// Share is one participant's owed amount, rounded to two decimals.
type Share struct {
	FriendID string
	Amount   decimal.Decimal
}

// Shares is the output of a split, in participant order.
type Shares []Share

// Map returns the shares keyed by friend ID.
func (s Shares) Map() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(s))
	for _, sh := range s {
		m[sh.FriendID] = sh.Amount
	}
	return m
}

// Total sums all participant shares. It differs from the request amount by the
// user's implicit share and by accepted rounding drift.
func (s Shares) Total() decimal.Decimal {
	total := decimal.Zero
	for _, sh := range s {
		total = total.Add(sh.Amount)
	}
	return total
}

// Strategy is implemented by every split algorithm.
type Strategy interface {
	// Type returns the strategy identifier.
	Type() SplitStrategy

	// Validate checks the strategy-specific constraints on req.
	Validate(req SplitRequest) error

	// Calculate validates req and computes every participant's share.
	Calculate(req SplitRequest) (Shares, error)
}

// NewStrategy returns the implementation for the given strategy.
func NewStrategy(strategy SplitStrategy) (Strategy, error) {
	switch strategy {
	case StrategyEqual:
		return EqualStrategy{}, nil
	case StrategyPercentage:
		return PercentageStrategy{}, nil
	case StrategyRatio:
		return RatioStrategy{}, nil
	case StrategyExact:
		return ExactStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// ParseStrategy converts user input such as "equal" into a SplitStrategy.
func ParseStrategy(s string) (SplitStrategy, error) {
	strategy := SplitStrategy(s)
	if _, err := NewStrategy(strategy); err != nil {
		return "", err
	}
	return strategy, nil
}

// Split validates req and computes the participant shares.
//
// Checks run in a fixed order and the first failure is returned:
// amount, participants, strategy, then the strategy's own rules.
// Nothing is redistributed after rounding; the sum of shares may drift from the
// exact value by up to half a cent per participant.
func Split(req SplitRequest) (Shares, error) {
	if err := validateCommon(req); err != nil {
		return nil, err
	}
	strategy, err := NewStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	return strategy.Calculate(req)
}

func validateCommon(req SplitRequest) error {
	if !finite(req.Amount) || req.Amount <= 0 {
		return ErrInvalidAmount
	}
	if len(req.Participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]bool, len(req.Participants))
	for _, p := range req.Participants {
		if seen[p] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p)
		}
		seen[p] = true
	}
	return nil
}

// weight returns the decimal weight for a participant. ok is false when no
// value was supplied.
func weight(req SplitRequest, friendID string) (w decimal.Decimal, ok bool, err error) {
	f, ok := req.Weights[friendID]
	if !ok {
		return decimal.Zero, false, nil
	}
	if !finite(f) {
		return decimal.Zero, true, fmt.Errorf("%w: %s", ErrInvalidWeight, friendID)
	}
	if f < 0 {
		return decimal.Zero, true, fmt.Errorf("%w: %s", ErrNegativeWeight, friendID)
	}
	return decimal.NewFromFloat(f), true, nil
}

// requiredWeights collects a weight for every participant, failing on the first
// missing or invalid one.
func requiredWeights(req SplitRequest) ([]decimal.Decimal, decimal.Decimal, error) {
	weights := make([]decimal.Decimal, len(req.Participants))
	sum := decimal.Zero
	for i, p := range req.Participants {
		w, ok, err := weight(req, p)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrMissingWeight, p)
		}
		weights[i] = w
		sum = sum.Add(w)
	}
	return weights, sum, nil
}
