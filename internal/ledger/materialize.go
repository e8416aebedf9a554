package ledger

import (
	"strings"
	"time"

	"github.com/mmynk/udhari/internal/calculator"
	"github.com/mmynk/udhari/internal/models"
)

// GroupExpenseSuffix is appended to the description of materialized transactions.
const GroupExpenseSuffix = " (group expense)"

// Materialize turns computed shares into one transaction per participant.
//
// Every transaction carries the full split in SplitDetails. Zero shares, from a
// zero weight, appear there but get no transaction of their own, because stored
// amounts must be positive. Any invalid share or field fails the
// whole batch and nothing is returned.
func Materialize(shares calculator.Shares, typ models.TransactionType, description string, date time.Time, newID func() string) ([]models.Transaction, error) {
	description = strings.TrimSpace(description)
	switch {
	case !typ.Valid():
		return nil, &ValidationError{Field: "type", Rule: "oneof", Message: messages["type.oneof"]}
	case description == "":
		return nil, &ValidationError{Field: "description", Rule: "required", Message: messages["description.required"]}
	case date.IsZero():
		return nil, &ValidationError{Field: "date", Rule: "required", Message: messages["date.required"]}
	}

	details := make([]models.SplitDetail, len(shares))
	owing := 0
	for i, sh := range shares {
		if sh.Amount.IsNegative() {
			return nil, &ValidationError{
				Field:   "weights",
				Rule:    "non_negative",
				Message: "share for " + sh.FriendID + " cannot be negative",
			}
		}
		if sh.Amount.IsPositive() {
			owing++
		}
		details[i] = models.SplitDetail{FriendID: sh.FriendID, Amount: sh.Amount.InexactFloat64()}
	}
	if owing == 0 {
		return nil, &ValidationError{Field: "weights", Rule: "no_shares", Message: "split leaves nobody owing anything"}
	}

	txs := make([]models.Transaction, 0, owing)
	for _, sh := range shares {
		if !sh.Amount.IsPositive() {
			continue
		}
		txs = append(txs, models.Transaction{
			ID:             newID(),
			FriendID:       sh.FriendID,
			Amount:         sh.Amount.InexactFloat64(),
			Date:           date,
			Type:           typ,
			Description:    description + GroupExpenseSuffix,
			IsGroupExpense: true,
			// Each transaction gets its own copy so no two records share a backing array.
			SplitDetails: append([]models.SplitDetail(nil), details...),
		})
	}
	return txs, nil
}
