package ledger

import (
	"errors"
	"fmt"
)

// ValidationError reports user input that violates a ledger rule. It is always
// recoverable: the caller shows Message and lets the user correct the input.
type ValidationError struct {
	// Field is the offending input, using its JSON name (e.g. "amount").
	Field string
	// Rule is a stable identifier for the violated rule (e.g. "gt", "exists").
	Rule string
	// Message is the human-readable rule, safe to show to the user.
	Message string
	// Err is the underlying cause, if any (a calculator error or a *ReferenceError).
	Err error
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap returns the underlying cause for use with errors.Is/As.
func (e *ValidationError) Unwrap() error { return e.Err }

// ReferenceError reports an operation on an entity that no longer exists,
// such as a stale friend selection after deletion.
type ReferenceError struct {
	Kind string // "friend" or "transaction"
	ID   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func friendNotFound(id string) *ReferenceError {
	return &ReferenceError{Kind: "friend", ID: id}
}

func transactionNotFound(id string) *ReferenceError {
	return &ReferenceError{Kind: "transaction", ID: id}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsReference reports whether err is or wraps a *ReferenceError.
func IsReference(err error) bool {
	var r *ReferenceError
	return errors.As(err, &r)
}
