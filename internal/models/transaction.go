package models

import "time"

// TransactionType says which way money moved.
type TransactionType string

const (
	// TransactionLent means the user paid on the friend's behalf; the friend owes more.
	TransactionLent TransactionType = "lent"
	// TransactionReceived means the friend paid the user back; the friend owes less.
	TransactionReceived TransactionType = "received"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionLent || t == TransactionReceived
}

// Transaction is a single dated money movement between the user and one friend.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string `json:"id"`

	// FriendID references the Friend this transaction is with.
	FriendID string `json:"friendId"`

	// Amount is always positive. Direction is carried by Type.
	Amount float64 `json:"amount"`

	// Date is user-settable and need not match when the record was created.
	Date time.Time `json:"date"`

	Type TransactionType `json:"type"`

	Description string `json:"description"`

	// IsGroupExpense marks transactions materialized from a group-expense split.
	IsGroupExpense bool `json:"isGroupExpense,omitempty"`

	// SplitDetails is the full split the transaction came from. Display only,
	// never recomputed.
	SplitDetails []SplitDetail `json:"splitDetails,omitempty"`
}

// SplitDetail is one participant's share of a group expense.
type SplitDetail struct {
	FriendID string  `json:"friendId"`
	Amount   float64 `json:"amount"`
}
