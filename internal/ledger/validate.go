package ledger

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/udhari/internal/calculator"
	"github.com/mmynk/udhari/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name so errors match the stored layout.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// messages maps field.tag to the text shown to the user.
var messages = map[string]string{
	"name.required":         "name is required",
	"friendId.required":     "friend is required",
	"amount.gt":             "amount must be greater than zero",
	"type.required":         "type is required",
	"type.oneof":            "type must be lent or received",
	"description.required":  "description is required",
	"date.required":         "date is required",
	"participants.required": "at least one participant is required",
	"participants.min":      "at least one participant is required",
	"theme.oneof":           "theme must be light, dark, amoled or gray",
	"currency.required":     "currency is required",
	"upiVpa.required_if":    "UPI address is required when UPI payment is enabled",
}

type friendInput struct {
	Name string `json:"name" validate:"required"`
}

type transactionInput struct {
	FriendID    string                 `json:"friendId" validate:"required"`
	Amount      float64                `json:"amount" validate:"gt=0"`
	Type        models.TransactionType `json:"type" validate:"required,oneof=lent received"`
	Description string                 `json:"description" validate:"required"`
	Date        time.Time              `json:"date" validate:"required"`
}

type groupExpenseInput struct {
	Participants []string               `json:"participants" validate:"required,min=1"`
	Type         models.TransactionType `json:"type" validate:"required,oneof=lent received"`
	Description  string                 `json:"description" validate:"required"`
	Date         time.Time              `json:"date" validate:"required"`
}

type settingsInput struct {
	Theme            models.Theme `json:"theme" validate:"oneof=light dark amoled gray"`
	Currency         string       `json:"currency" validate:"required"`
	EnableUpiPayment bool         `json:"enableUpiPayment"`
	UpiVpa           string       `json:"upiVpa" validate:"required_if=EnableUpiPayment true"`
}

// checkStruct runs the struct tags and converts the first failure, in field
// order, into a *ValidationError.
func checkStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Rule: "invalid", Message: err.Error(), Err: err}
	}

	fe := fieldErrs[0]
	msg, ok := messages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
	return &ValidationError{Field: fe.Field(), Rule: fe.Tag(), Message: msg}
}

// validateFriendName trims name and checks it is usable.
func validateFriendName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := checkStruct(friendInput{Name: name}); err != nil {
		return "", err
	}
	return name, nil
}

// validateTransaction is the ordered pipeline for a new transaction: field
// rules first, then that the friend exists. It returns the first violation.
func validateTransaction(snap *Snapshot, in NewTransaction) (NewTransaction, error) {
	in.Description = strings.TrimSpace(in.Description)

	err := checkStruct(transactionInput{
		FriendID:    in.FriendID,
		Amount:      in.Amount,
		Type:        in.Type,
		Description: in.Description,
		Date:        in.Date,
	})
	if err != nil {
		return in, err
	}
	if math.IsInf(in.Amount, 0) {
		return in, &ValidationError{Field: "amount", Rule: "finite", Message: "amount must be a finite number"}
	}
	if _, ok := snap.Friend(in.FriendID); !ok {
		return in, unknownFriend(in.FriendID)
	}
	return in, nil
}

// validateGroupExpense is the ordered pipeline for a group expense: field rules,
// then that every participant exists, then the split's own rules.
func validateGroupExpense(snap *Snapshot, in GroupExpense) (GroupExpense, calculator.Shares, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Type == "" {
		in.Type = models.TransactionLent
	}

	err := checkStruct(groupExpenseInput{
		Participants: in.Participants,
		Type:         in.Type,
		Description:  in.Description,
		Date:         in.Date,
	})
	if err != nil {
		return in, nil, err
	}
	for _, id := range in.Participants {
		if _, ok := snap.Friend(id); !ok {
			return in, nil, unknownFriend(id)
		}
	}

	shares, err := calculator.Split(in.SplitRequest)
	if err != nil {
		return in, nil, splitError(err)
	}
	return in, shares, nil
}

func validateSettings(s models.Settings) error {
	return checkStruct(settingsInput{
		Theme:            s.Theme,
		Currency:         s.Currency,
		EnableUpiPayment: s.EnableUpiPayment,
		UpiVpa:           s.UpiVpa,
	})
}

func unknownFriend(id string) *ValidationError {
	return &ValidationError{
		Field:   "friendId",
		Rule:    "exists",
		Message: fmt.Sprintf("friend %s does not exist", id),
		Err:     friendNotFound(id),
	}
}

// splitError wraps a calculator error, keeping it reachable through errors.Is.
func splitError(err error) *ValidationError {
	field, rule := "weights", "split"
	switch {
	case errors.Is(err, calculator.ErrInvalidAmount):
		field, rule = "amount", "gt"
	case errors.Is(err, calculator.ErrNoParticipants):
		field, rule = "participants", "min"
	case errors.Is(err, calculator.ErrDuplicateParticipant):
		field, rule = "participants", "unique"
	case errors.Is(err, calculator.ErrUnknownStrategy):
		field, rule = "strategy", "oneof"
	}
	return &ValidationError{Field: field, Rule: rule, Message: err.Error(), Err: err}
}
