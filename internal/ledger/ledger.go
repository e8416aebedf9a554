// Package ledger owns the application state: friends, transactions and settings.
//
// A Ledger holds an immutable Snapshot. Every command validates its input,
// builds a new snapshot and swaps it in, so readers always see a consistent
// view and a failed command leaves nothing behind. After each swap the new
// state is handed to the storage.Store; save failures are logged and dropped.
//
// Balances are never stored. They are derived from a snapshot by the
// calculator package on demand.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/udhari/internal/calculator"
	"github.com/mmynk/udhari/internal/metrics"
	"github.com/mmynk/udhari/internal/models"
	"github.com/mmynk/udhari/internal/settlement"
	"github.com/mmynk/udhari/internal/storage"
)

// Ledger is the state container. It is safe for concurrent use, though the
// application only ever has one writer.
type Ledger struct {
	mu      sync.RWMutex
	snap    *Snapshot
	store   storage.Store
	newID   func() string
	metrics *metrics.Metrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator replaces the UUID generator, e.g. for deterministic tests.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// WithMetrics records ledger activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// New creates an empty ledger that is not persisted anywhere.
func New(opts ...Option) *Ledger {
	return newLedger(snapshotFromState(models.NewState()), nil, opts)
}

// Open loads the ledger from store. Every later mutation is saved back to it.
func Open(ctx context.Context, store storage.Store, opts ...Option) (*Ledger, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	slog.Debug("Ledger loaded",
		"friends", len(state.Friends),
		"transactions", len(state.Transactions),
	)
	return newLedger(snapshotFromState(state), store, opts), nil
}

func newLedger(snap *Snapshot, store storage.Store, opts []Option) *Ledger {
	l := &Ledger{
		snap:  snap,
		store: store,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot returns the current state. It stays valid and unchanged after
// later commands.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// update runs fn against the current snapshot under the write lock. If fn
// returns a new snapshot it is swapped in and persisted; an error leaves the
// ledger untouched.
func (l *Ledger) update(ctx context.Context, op string, fn func(cur *Snapshot) (*Snapshot, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := fn(l.snap)
	if err != nil {
		return err
	}
	l.snap = next
	l.metrics.Mutation(op)
	l.persist(ctx, op, next)
	return nil
}

// persist is best-effort: the in-memory state is authoritative.
func (l *Ledger) persist(ctx context.Context, op string, snap *Snapshot) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, snap.State()); err != nil {
		l.metrics.PersistFailure()
		slog.Warn("Failed to persist ledger", "op", op, "error", err)
	}
}

// AddFriend creates a friend with a fresh ID.
func (l *Ledger) AddFriend(ctx context.Context, name string) (models.Friend, error) {
	name, err := validateFriendName(name)
	if err != nil {
		return models.Friend{}, err
	}

	friend := models.Friend{ID: l.newID(), Name: name}
	err = l.update(ctx, "add_friend", func(cur *Snapshot) (*Snapshot, error) {
		next := cur.clone()
		next.friends = append(slices.Clip(cur.friends), friend)
		return next, nil
	})
	if err != nil {
		return models.Friend{}, err
	}
	slog.Info("Friend added", "friend_id", friend.ID)
	return friend, nil
}

// RenameFriend changes a friend's display name.
func (l *Ledger) RenameFriend(ctx context.Context, id, name string) (models.Friend, error) {
	name, err := validateFriendName(name)
	if err != nil {
		return models.Friend{}, err
	}

	var renamed models.Friend
	err = l.update(ctx, "rename_friend", func(cur *Snapshot) (*Snapshot, error) {
		i := cur.friendIndex(id)
		if i < 0 {
			return nil, friendNotFound(id)
		}
		next := cur.clone()
		next.friends = slices.Clone(cur.friends)
		next.friends[i].Name = name
		renamed = next.friends[i]
		return next, nil
	})
	return renamed, err
}

// RemoveFriend deletes a friend together with every transaction with them.
// Both disappear in the same swap. Callers confirm with the user beforehand.
func (l *Ledger) RemoveFriend(ctx context.Context, id string) error {
	removed := 0
	err := l.update(ctx, "remove_friend", func(cur *Snapshot) (*Snapshot, error) {
		i := cur.friendIndex(id)
		if i < 0 {
			return nil, friendNotFound(id)
		}
		next := cur.clone()
		next.friends = slices.Delete(slices.Clone(cur.friends), i, i+1)
		next.transactions, removed = withoutFriend(cur.transactions, id)
		return next, nil
	})
	if err != nil {
		return err
	}
	slog.Info("Friend removed", "friend_id", id, "transactions_removed", removed)
	return nil
}

// ClearFriendTransactions deletes every transaction with a friend but keeps the
// friend, settling the debt. It returns how many transactions were removed.
func (l *Ledger) ClearFriendTransactions(ctx context.Context, friendID string) (int, error) {
	removed := 0
	err := l.update(ctx, "clear_friend", func(cur *Snapshot) (*Snapshot, error) {
		if cur.friendIndex(friendID) < 0 {
			return nil, friendNotFound(friendID)
		}
		next := cur.clone()
		next.transactions, removed = withoutFriend(cur.transactions, friendID)
		return next, nil
	})
	return removed, err
}

func withoutFriend(transactions []models.Transaction, friendID string) ([]models.Transaction, int) {
	kept := make([]models.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if t.FriendID != friendID {
			kept = append(kept, t)
		}
	}
	return kept, len(transactions) - len(kept)
}

// NewTransaction is the input for AddTransaction.
type NewTransaction struct {
	FriendID    string
	Amount      float64
	Date        time.Time
	Type        models.TransactionType
	Description string
}

// AddTransaction records a single transaction with a friend.
func (l *Ledger) AddTransaction(ctx context.Context, in NewTransaction) (models.Transaction, error) {
	var created models.Transaction
	err := l.update(ctx, "add_transaction", func(cur *Snapshot) (*Snapshot, error) {
		valid, err := validateTransaction(cur, in)
		if err != nil {
			return nil, err
		}
		created = models.Transaction{
			ID:          l.newID(),
			FriendID:    valid.FriendID,
			Amount:      valid.Amount,
			Date:        valid.Date,
			Type:        valid.Type,
			Description: valid.Description,
		}
		next := cur.clone()
		next.transactions = append(slices.Clip(cur.transactions), created)
		return next, nil
	})
	return created, err
}

// RemoveTransaction deletes one transaction.
func (l *Ledger) RemoveTransaction(ctx context.Context, id string) error {
	return l.update(ctx, "remove_transaction", func(cur *Snapshot) (*Snapshot, error) {
		i := slices.IndexFunc(cur.transactions, func(t models.Transaction) bool { return t.ID == id })
		if i < 0 {
			return nil, transactionNotFound(id)
		}
		next := cur.clone()
		next.transactions = slices.Delete(slices.Clone(cur.transactions), i, i+1)
		return next, nil
	})
}

// GroupExpense is the input for AddGroupExpense.
type GroupExpense struct {
	calculator.SplitRequest

	// Type defaults to lent: the user paid and the participants owe their shares.
	Type        models.TransactionType
	Description string
	Date        time.Time
}

// AddGroupExpense splits an expense and records one transaction per
// participant who owes something. Either the whole batch is stored or nothing is.
func (l *Ledger) AddGroupExpense(ctx context.Context, in GroupExpense) ([]models.Transaction, error) {
	var created []models.Transaction
	err := l.update(ctx, "add_group_expense", func(cur *Snapshot) (*Snapshot, error) {
		valid, shares, err := validateGroupExpense(cur, in)
		l.metrics.Split(string(in.Strategy), err)
		if err != nil {
			return nil, err
		}
		created, err = Materialize(shares, valid.Type, valid.Description, valid.Date, l.newID)
		if err != nil {
			return nil, err
		}
		next := cur.clone()
		next.transactions = append(slices.Clip(cur.transactions), created...)
		return next, nil
	})
	if err != nil {
		slog.Debug("Group expense rejected", "strategy", in.Strategy, "error", err)
		return nil, err
	}
	slog.Info("Group expense added",
		"strategy", in.Strategy,
		"participants", len(in.Participants),
		"transactions", len(created),
	)
	return created, nil
}

// CompleteFirstStartup records that onboarding has been shown.
func (l *Ledger) CompleteFirstStartup(ctx context.Context) error {
	return l.update(ctx, "complete_first_startup", func(cur *Snapshot) (*Snapshot, error) {
		next := cur.clone()
		next.isFirstStartup = false
		return next, nil
	})
}

// UpdateSettings applies fn to a copy of the settings and stores the result if
// it is valid.
func (l *Ledger) UpdateSettings(ctx context.Context, fn func(*models.Settings)) (models.Settings, error) {
	var updated models.Settings
	err := l.update(ctx, "update_settings", func(cur *Snapshot) (*Snapshot, error) {
		updated = cur.settings
		fn(&updated)
		if err := validateSettings(updated); err != nil {
			return nil, err
		}
		next := cur.clone()
		next.settings = updated
		return next, nil
	})
	return updated, err
}

// SettlementMessage renders the shareable summary for a friend, returning the
// share title and the message text.
func (l *Ledger) SettlementMessage(friendID string) (title, message string, err error) {
	snap := l.Snapshot()
	friend, ok := snap.Friend(friendID)
	if !ok {
		return "", "", friendNotFound(friendID)
	}

	recent := settlement.RecentTransactions(snap.transactions, friendID, settlement.RecentLimit)
	message = settlement.Format(friend, snap.Balance(friendID), recent, settlement.OptionsFromSettings(snap.settings))
	return settlement.ShareTitle(friend), message, nil
}
