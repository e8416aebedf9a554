package models

import (
	"encoding/json"
	"fmt"
)

// State is the whole persisted application state. It is stored as one JSON blob, so
// schema changes must be additive: new fields need a usable zero value or a default
// applied in UnmarshalJSON.
type State struct {
	Friends        []Friend      `json:"friends"`
	Transactions   []Transaction `json:"transactions"`
	IsFirstStartup bool          `json:"isFirstStartup"`
	Settings
}

// NewState returns the state of a fresh install.
func NewState() *State {
	return &State{
		Friends:        []Friend{},
		Transactions:   []Transaction{},
		IsFirstStartup: true,
		Settings:       DefaultSettings(),
	}
}

// UnmarshalJSON decodes a stored state, filling defaults for any field an older
// version did not write.
func (s *State) UnmarshalJSON(data []byte) error {
	type plain State
	decoded := plain(*NewState())
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	if decoded.Friends == nil {
		decoded.Friends = []Friend{}
	}
	if decoded.Transactions == nil {
		decoded.Transactions = []Transaction{}
	}
	*s = State(decoded)
	return nil
}
