package ledger

import (
	"slices"
	"strings"

	"github.com/mmynk/udhari/internal/calculator"
	"github.com/mmynk/udhari/internal/models"
)

// Snapshot is an immutable view of the ledger at one point in time.
// Commands never modify a snapshot; they build a new one.
type Snapshot struct {
	friends        []models.Friend
	transactions   []models.Transaction
	settings       models.Settings
	isFirstStartup bool
}

func snapshotFromState(state *models.State) *Snapshot {
	return &Snapshot{
		friends:        slices.Clone(state.Friends),
		transactions:   cloneTransactions(state.Transactions),
		settings:       state.Settings,
		isFirstStartup: state.IsFirstStartup,
	}
}

// State converts the snapshot to its persisted form.
func (s *Snapshot) State() *models.State {
	friends := slices.Clone(s.friends)
	if friends == nil {
		friends = []models.Friend{}
	}
	transactions := cloneTransactions(s.transactions)
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return &models.State{
		Friends:        friends,
		Transactions:   transactions,
		IsFirstStartup: s.isFirstStartup,
		Settings:       s.settings,
	}
}

// clone returns a shallow copy whose slices can be replaced independently.
func (s *Snapshot) clone() *Snapshot {
	c := *s
	return &c
}

// Friends returns a copy of all friends in insertion order.
func (s *Snapshot) Friends() []models.Friend {
	return slices.Clone(s.friends)
}

// Transactions returns a copy of all transactions in insertion order.
func (s *Snapshot) Transactions() []models.Transaction {
	return cloneTransactions(s.transactions)
}

// cloneTransactions copies transactions including their split details, so
// callers cannot reach the snapshot's backing arrays.
func cloneTransactions(transactions []models.Transaction) []models.Transaction {
	if transactions == nil {
		return nil
	}
	out := make([]models.Transaction, len(transactions))
	for i, t := range transactions {
		t.SplitDetails = slices.Clone(t.SplitDetails)
		out[i] = t
	}
	return out
}

func (s *Snapshot) Settings() models.Settings {
	return s.settings
}

func (s *Snapshot) IsFirstStartup() bool {
	return s.isFirstStartup
}

// Friend looks up a friend by ID.
func (s *Snapshot) Friend(id string) (models.Friend, bool) {
	i := s.friendIndex(id)
	if i < 0 {
		return models.Friend{}, false
	}
	return s.friends[i], true
}

func (s *Snapshot) friendIndex(id string) int {
	return slices.IndexFunc(s.friends, func(f models.Friend) bool { return f.ID == id })
}

// FindFriends returns friends whose name contains query, ignoring case.
// An empty query matches everyone.
func (s *Snapshot) FindFriends(query string) []models.Friend {
	query = strings.ToLower(strings.TrimSpace(query))
	var found []models.Friend
	for _, f := range s.friends {
		if strings.Contains(strings.ToLower(f.Name), query) {
			found = append(found, f)
		}
	}
	return found
}

// TransactionFilter narrows ListTransactions. Zero fields match everything.
type TransactionFilter struct {
	FriendID string
	Type     models.TransactionType
	// Search matches descriptions case-insensitively.
	Search string
}

// ListTransactions returns the matching transactions, newest first.
func (s *Snapshot) ListTransactions(filter TransactionFilter) []models.Transaction {
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var result []models.Transaction
	for _, t := range s.transactions {
		if filter.FriendID != "" && t.FriendID != filter.FriendID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		t.SplitDetails = slices.Clone(t.SplitDetails)
		result = append(result, t)
	}
	slices.SortStableFunc(result, func(a, b models.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	return result
}

// Balance derives the balance with one friend.
func (s *Snapshot) Balance(friendID string) calculator.Balance {
	return calculator.BalanceForFriend(s.transactions, friendID)
}

// Global derives the totals across all friends.
func (s *Snapshot) Global() calculator.GlobalTotals {
	return calculator.GlobalBalance(s.transactions)
}

// FriendBalances derives every friend's balance, in friend order.
func (s *Snapshot) FriendBalances() []calculator.FriendBalance {
	return calculator.FriendBalances(s.friends, s.transactions)
}
