package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/udhari/internal/models"
)

// Direction describes who owes whom for a balance.
type Direction int

const (
	Settled   Direction = iota
	FriendOwes          // positive balance: the friend owes the user
	UserOwes            // negative balance: the user owes the friend
)

func (d Direction) String() string {
	switch d {
	case FriendOwes:
		return "friend_owes"
	case UserOwes:
		return "user_owes"
	default:
		return "settled"
	}
}

// Balance is the derived position with one friend.
// The zero value is a friend with no transactions.
type Balance struct {
	Lent     decimal.Decimal // Total the user paid on the friend's behalf
	Received decimal.Decimal // Total the friend paid back
	Net      decimal.Decimal // Lent - Received. Positive = friend owes the user
}

// IsSettled reports whether the net balance is within SettledEpsilon of zero.
func (b Balance) IsSettled() bool {
	return b.Net.Abs().LessThan(SettledEpsilon)
}

// Direction returns who owes whom, treating near-zero balances as settled.
func (b Balance) Direction() Direction {
	switch {
	case b.IsSettled():
		return Settled
	case b.Net.IsPositive():
		return FriendOwes
	default:
		return UserOwes
	}
}

// GlobalTotals aggregates every transaction in the ledger.
type GlobalTotals struct {
	TotalLent     decimal.Decimal
	TotalReceived decimal.Decimal
	Net           decimal.Decimal
}

// FriendBalance pairs a friend with their derived balance.
type FriendBalance struct {
	Friend  models.Friend
	Balance Balance
}

// BalanceForFriend sums the transactions with friendID by type.
// It never fails: a friend with no transactions gets the zero Balance.
func BalanceForFriend(transactions []models.Transaction, friendID string) Balance {
	var b Balance
	for _, t := range transactions {
		if t.FriendID != friendID {
			continue
		}
		b.add(t)
	}
	b.Net = b.Lent.Sub(b.Received)
	return b
}

// GlobalBalance sums every transaction regardless of friend.
func GlobalBalance(transactions []models.Transaction) GlobalTotals {
	var b Balance
	for _, t := range transactions {
		b.add(t)
	}
	return GlobalTotals{
		TotalLent:     b.Lent,
		TotalReceived: b.Received,
		Net:           b.Lent.Sub(b.Received),
	}
}

// FriendBalances computes every friend's balance in a single pass, returned in the
// order friends are given. Transactions for unknown friends are ignored.
func FriendBalances(friends []models.Friend, transactions []models.Transaction) []FriendBalance {
	byFriend := make(map[string]*Balance, len(friends))
	for _, f := range friends {
		byFriend[f.ID] = &Balance{}
	}

	for _, t := range transactions {
		if b, ok := byFriend[t.FriendID]; ok {
			b.add(t)
		}
	}

	result := make([]FriendBalance, len(friends))
	for i, f := range friends {
		b := byFriend[f.ID]
		b.Net = b.Lent.Sub(b.Received)
		result[i] = FriendBalance{Friend: f, Balance: *b}
	}
	return result
}

// SuggestedPaymentType picks the default type for a partial payment: if the friend
// owes the user, the payment is money received; otherwise the user is paying.
func SuggestedPaymentType(b Balance) models.TransactionType {
	if b.Direction() == FriendOwes {
		return models.TransactionReceived
	}
	return models.TransactionLent
}

func (b *Balance) add(t models.Transaction) {
	amount := toDecimal(t.Amount)
	switch t.Type {
	case models.TransactionLent:
		b.Lent = b.Lent.Add(amount)
	case models.TransactionReceived:
		b.Received = b.Received.Add(amount)
	}
}
