// Package models defines the domain entities of the Udhari ledger.
//
// # Entities
//
//   - Friend: a counterparty the user tracks money against
//   - Transaction: one dated money movement with a friend, typed lent or received
//   - SplitDetail: one participant's share of a group expense, kept inline on transactions
//   - Settings: message and display preferences
//   - State: the single blob written to local storage
//
// Balances are never stored here. They are derived from the transaction list by the
// calculator package every time they are needed.
//
// Relationships use ID strings instead of pointers, so a State can be serialized as-is
// and loaded by later versions that only add fields.
package models
