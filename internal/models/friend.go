package models

// Friend is a counterparty the user lends to or receives money from.
type Friend struct {
	// ID is the unique identifier for the friend (UUID format). Never changes.
	ID string `json:"id"`

	// Name is the display name. Always non-empty after trimming.
	Name string `json:"name"`
}
