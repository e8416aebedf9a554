package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/udhari/internal/calculator"
	"github.com/mmynk/udhari/internal/metrics"
	"github.com/mmynk/udhari/internal/models"
	"github.com/mmynk/udhari/internal/storage"
)

// sequentialIDs returns a generator producing id-1, id-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func assertValidation(t *testing.T, err error, field, rule string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T: %v", err, err)
	assert.Equal(t, field, verr.Field)
	assert.Equal(t, rule, verr.Rule)
	assert.NotEmpty(t, verr.Message)
}

type failingStore struct {
	saves int
}

func (s *failingStore) Load(ctx context.Context) (*models.State, error) {
	return models.NewState(), nil
}

func (s *failingStore) Save(ctx context.Context, state *models.State) error {
	s.saves++
	return errors.New("disk full")
}

func (s *failingStore) Close() error { return nil }

var march = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

func TestAddFriend(t *testing.T) {
	ctx := context.Background()

	t.Run("trims_name_and_assigns_id", func(t *testing.T) {
		l := New(WithIDGenerator(sequentialIDs()))
		f, err := l.AddFriend(ctx, "  Alice ")
		require.NoError(t, err)
		assert.Equal(t, models.Friend{ID: "id-1", Name: "Alice"}, f)
		assert.Equal(t, []models.Friend{f}, l.Snapshot().Friends())
	})

	t.Run("rejects_blank_name", func(t *testing.T) {
		l := New()
		_, err := l.AddFriend(ctx, "   ")
		assertValidation(t, err, "name", "required")
		assert.Empty(t, l.Snapshot().Friends())
	})

	t.Run("default_ids_are_unique", func(t *testing.T) {
		l := New()
		a, err := l.AddFriend(ctx, "Alice")
		require.NoError(t, err)
		b, err := l.AddFriend(ctx, "Alice")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestRenameFriend(t *testing.T) {
	ctx := context.Background()
	l := New(WithIDGenerator(sequentialIDs()))
	alice, err := l.AddFriend(ctx, "Alice")
	require.NoError(t, err)
	before := l.Snapshot()

	renamed, err := l.RenameFriend(ctx, alice.ID, "Alicia")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", renamed.Name)

	got, ok := l.Snapshot().Friend(alice.ID)
	require.True(t, ok)
	assert.Equal(t, "Alicia", got.Name)

	old, _ := before.Friend(alice.ID)
	assert.Equal(t, "Alice", old.Name, "earlier snapshot must not change")

	_, err = l.RenameFriend(ctx, "missing", "Bob")
	assert.True(t, IsReference(err))

	_, err = l.RenameFriend(ctx, alice.ID, "")
	assertValidation(t, err, "name", "required")
}

func TestRemoveFriend_Cascades(t *testing.T) {
	ctx := context.Background()
	l := New(WithIDGenerator(sequentialIDs()))
	alice, _ := l.AddFriend(ctx, "Alice")
	bob, _ := l.AddFriend(ctx, "Bob")

	for _, id := range []string{alice.ID, bob.ID, alice.ID} {
		_, err := l.AddTransaction(ctx, NewTransaction{
			FriendID: id, Amount: 10, Date: march, Type: models.TransactionLent, Description: "Tea",
		})
		require.NoError(t, err)
	}

	require.NoError(t, l.RemoveFriend(ctx, alice.ID))

	snap := l.Snapshot()
	assert.Equal(t, []models.Friend{bob}, snap.Friends())
	for _, tx := range snap.Transactions() {
		assert.NotEqual(t, alice.ID, tx.FriendID, "orphan transaction left behind")
	}
	assert.Len(t, snap.Transactions(), 1)

	err := l.RemoveFriend(ctx, alice.ID)
	var ref *ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "friend", ref.Kind)
}

func TestAddTransaction(t *testing.T) {
	ctx := context.Background()
	l := New(WithIDGenerator(sequentialIDs()))
	alice, _ := l.AddFriend(ctx, "Alice")

	valid := NewTransaction{
		FriendID:    alice.ID,
		Amount:      150,
		Date:        march,
		Type:        models.TransactionLent,
		Description: " Dinner ",
	}

	tests := []struct {
		name   string
		mutate func(*NewTransaction)
		field  string
		rule   string
	}{
		{name: "zero amount", mutate: func(in *NewTransaction) { in.Amount = 0 }, field: "amount", rule: "gt"},
		{name: "negative amount", mutate: func(in *NewTransaction) { in.Amount = -5 }, field: "amount", rule: "gt"},
		{name: "infinite amount", mutate: func(in *NewTransaction) { in.Amount = math.Inf(1) }, field: "amount", rule: "finite"},
		{name: "unknown type", mutate: func(in *NewTransaction) { in.Type = "borrowed" }, field: "type", rule: "oneof"},
		{name: "blank description", mutate: func(in *NewTransaction) { in.Description = "  " }, field: "description", rule: "required"},
		{name: "missing date", mutate: func(in *NewTransaction) { in.Date = time.Time{} }, field: "date", rule: "required"},
		{name: "unknown friend", mutate: func(in *NewTransaction) { in.FriendID = "ghost" }, field: "friendId", rule: "exists"},
		{
			name: "field rules run before existence",
			mutate: func(in *NewTransaction) {
				in.FriendID = "ghost"
				in.Amount = 0
			},
			field: "amount",
			rule:  "gt",
		},
		{
			name: "first field wins",
			mutate: func(in *NewTransaction) {
				in.Amount = 0
				in.Description = ""
			},
			field: "amount",
			rule:  "gt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := l.AddTransaction(ctx, in)
			assertValidation(t, err, tt.field, tt.rule)
			assert.Empty(t, l.Snapshot().Transactions())
		})
	}

	t.Run("unknown friend wraps reference error", func(t *testing.T) {
		in := valid
		in.FriendID = "ghost"
		_, err := l.AddTransaction(ctx, in)
		assert.True(t, IsValidation(err))
		assert.True(t, IsReference(err))
	})

	t.Run("valid", func(t *testing.T) {
		tx, err := l.AddTransaction(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, "Dinner", tx.Description)
		assert.False(t, tx.IsGroupExpense)
		assert.Equal(t, []models.Transaction{tx}, l.Snapshot().Transactions())
		assert.Equal(t, "150", l.Snapshot().Balance(alice.ID).Net.String())
	})
}

func TestRemoveTransaction(t *testing.T) {
	ctx := context.Background()
	l := New(WithIDGenerator(sequentialIDs()))
	alice, _ := l.AddFriend(ctx, "Alice")
	tx, err := l.AddTransaction(ctx, NewTransaction{
		FriendID: alice.ID, Amount: 20, Date: march, Type: models.TransactionReceived, Description: "Cash",
	})
	require.NoError(t, err)

	require.NoError(t, l.RemoveTransaction(ctx, tx.ID))
	assert.Empty(t, l.Snapshot().Transactions())

	err = l.RemoveTransaction(ctx, tx.ID)
	var ref *ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "transaction", ref.Kind)
	assert.Equal(t, tx.ID, ref.ID)
}

func TestClearFriendTransactions(t *testing.T) {
	ctx := context.Background()
	l := New(WithIDGenerator(sequentialIDs()))
	alice, _ := l.AddFriend(ctx, "Alice")
	bob, _ := l.AddFriend(ctx, "Bob")
	for _, id := range []string{alice.ID, bob.ID, alice.ID} {
		_, err := l.AddTransaction(ctx, NewTransaction{
			FriendID: id, Amount: 10, Date: march, Type: models.TransactionLent, Description: "Lunch",
		})
		require.NoError(t, err)
	}

	n, err := l.ClearFriendTransactions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap := l.Snapshot()
	assert.Len(t, snap.Friends(), 2, "friend is kept")
	assert.True(t, snap.Balance(alice.ID).IsSettled())
	assert.Len(t, snap.Transactions(), 1)

	_, err = l.ClearFriendTransactions(ctx, "ghost")
	assert.True(t, IsReference(err))
}

func metricsText(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, m.WriteText(&sb))
	return sb.String()
}

func TestAddGroupExpense(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Ledger, *metrics.Metrics, *storage.MemoryStore, []string) {
		t.Helper()
		m := metrics.New()
		store := storage.NewMemoryStore()
		l, err := Open(ctx, store, WithIDGenerator(sequentialIDs()), WithMetrics(m))
		require.NoError(t, err)
		var ids []string
		for _, name := range []string{"Alice", "Bob", "Carol"} {
			f, err := l.AddFriend(ctx, name)
			require.NoError(t, err)
			ids = append(ids, f.ID)
		}
		return l, m, store, ids
	}

	t.Run("equal split including self", func(t *testing.T) {
		l, m, _, ids := setup(t)
		txs, err := l.AddGroupExpense(ctx, GroupExpense{
			SplitRequest: calculator.SplitRequest{
				Amount:       300,
				Participants: ids[:2],
				Strategy:     calculator.StrategyEqual,
				IncludeSelf:  true,
			},
			Description: "Dinner",
			Date:        march,
		})
		require.NoError(t, err)
		require.Len(t, txs, 2)
		for i, tx := range txs {
			assert.Equal(t, ids[i], tx.FriendID)
			assert.Equal(t, 100.0, tx.Amount)
			assert.Equal(t, models.TransactionLent, tx.Type, "type defaults to lent")
			assert.Equal(t, "Dinner (group expense)", tx.Description)
			assert.True(t, tx.IsGroupExpense)
			assert.Equal(t, march, tx.Date)
			assert.Len(t, tx.SplitDetails, 2)
		}
		assert.Len(t, l.Snapshot().Transactions(), 2)
		assert.Contains(t, metricsText(t, m), `udhari_splits_total{result="ok",strategy="equal"} 1`)
		assert.Contains(t, metricsText(t, m), `udhari_ledger_mutations_total{op="add_group_expense"} 1`)
	})

	t.Run("received group expense", func(t *testing.T) {
		l, _, _, ids := setup(t)
		txs, err := l.AddGroupExpense(ctx, GroupExpense{
			SplitRequest: calculator.SplitRequest{
				Amount:       90,
				Participants: ids,
				Strategy:     calculator.StrategyRatio,
				Weights:      map[string]float64{ids[0]: 1, ids[1]: 2, ids[2]: 3},
			},
			Type:        models.TransactionReceived,
			Description: "Cab",
			Date:        march,
		})
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, []float64{15, 30, 45}, []float64{txs[0].Amount, txs[1].Amount, txs[2].Amount})
		assert.Equal(t, "-30", l.Snapshot().Balance(ids[1]).Net.String())
	})

	t.Run("zero exact share is kept in details only", func(t *testing.T) {
		l, _, _, ids := setup(t)
		txs, err := l.AddGroupExpense(ctx, GroupExpense{
			SplitRequest: calculator.SplitRequest{
				Amount:       50,
				Participants: ids[:2],
				Strategy:     calculator.StrategyExact,
				Weights:      map[string]float64{ids[0]: 50, ids[1]: 0},
			},
			Description: "Movie",
			Date:        march,
		})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, ids[0], txs[0].FriendID)
		assert.Equal(t, []models.SplitDetail{
			{FriendID: ids[0], Amount: 50},
			{FriendID: ids[1], Amount: 0},
		}, txs[0].SplitDetails)
	})

	t.Run("rejected split leaves ledger unchanged", func(t *testing.T) {
		l, m, store, ids := setup(t)
		before := l.Snapshot()
		saves := store.Saves()

		_, err := l.AddGroupExpense(ctx, GroupExpense{
			SplitRequest: calculator.SplitRequest{
				Amount:       100,
				Participants: ids[:2],
				Strategy:     calculator.StrategyPercentage,
				Weights:      map[string]float64{ids[0]: 60, ids[1]: 30},
			},
			Description: "Groceries",
			Date:        march,
		})
		assertValidation(t, err, "weights", "split")
		assert.ErrorIs(t, err, calculator.ErrPercentagesTotal)

		assert.Same(t, before, l.Snapshot())
		assert.Equal(t, saves, store.Saves(), "nothing persisted")
		assert.Contains(t, metricsText(t, m), `udhari_splits_total{result="rejected",strategy="percentage"} 1`)
	})

	t.Run("validation order", func(t *testing.T) {
		l, _, _, ids := setup(t)
		tests := []struct {
			name  string
			in    GroupExpense
			field string
			rule  string
		}{
			{
				name: "fields before participants",
				in: GroupExpense{
					SplitRequest: calculator.SplitRequest{Amount: 10, Participants: []string{"ghost"}, Strategy: calculator.StrategyEqual},
					Date:         march,
				},
				field: "description",
				rule:  "required",
			},
			{
				name: "participants before split rules",
				in: GroupExpense{
					SplitRequest: calculator.SplitRequest{Amount: 0, Participants: []string{ids[0], "ghost"}, Strategy: calculator.StrategyEqual},
					Description:  "Snacks",
					Date:         march,
				},
				field: "friendId",
				rule:  "exists",
			},
			{
				name: "no participants",
				in: GroupExpense{
					SplitRequest: calculator.SplitRequest{Amount: 10, Strategy: calculator.StrategyEqual},
					Description:  "Snacks",
					Date:         march,
				},
				field: "participants",
				rule:  "required",
			},
			{
				name: "duplicate participant",
				in: GroupExpense{
					SplitRequest: calculator.SplitRequest{Amount: 10, Participants: []string{ids[0], ids[0]}, Strategy: calculator.StrategyEqual},
					Description:  "Snacks",
					Date:         march,
				},
				field: "participants",
				rule:  "unique",
			},
			{
				name: "amount",
				in: GroupExpense{
					SplitRequest: calculator.SplitRequest{Amount: -1, Participants: ids[:1], Strategy: calculator.StrategyEqual},
					Description:  "Snacks",
					Date:         march,
				},
				field: "amount",
				rule:  "gt",
			},
			{
				name: "strategy",
				in: GroupExpense{
					SplitRequest: calculator.SplitRequest{Amount: 10, Participants: ids[:1], Strategy: "random"},
					Description:  "Snacks",
					Date:         march,
				},
				field: "strategy",
				rule:  "oneof",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := l.AddGroupExpense(ctx, tt.in)
				assertValidation(t, err, tt.field, tt.rule)
			})
		}
		assert.Empty(t, l.Snapshot().Transactions())
	})
}

func TestSnapshotQueries(t *testing.T) {
	ctx := context.Background()
	l := New(WithIDGenerator(sequentialIDs()))
	alice, _ := l.AddFriend(ctx, "Alice")
	bob, _ := l.AddFriend(ctx, "Bobby")
	_, _ = l.AddFriend(ctx, "Carol")

	add := func(friendID string, typ models.TransactionType, amount float64, day int, desc string) {
		t.Helper()
		_, err := l.AddTransaction(ctx, NewTransaction{
			FriendID: friendID, Amount: amount, Type: typ, Description: desc,
			Date: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	add(alice.ID, models.TransactionLent, 100, 1, "Dinner")
	add(alice.ID, models.TransactionReceived, 40, 3, "Cash")
	add(bob.ID, models.TransactionReceived, 25, 2, "Movie tickets")
	add(bob.ID, models.TransactionLent, 5, 2, "Dinner tip")

	snap := l.Snapshot()

	t.Run("find_friends", func(t *testing.T) {
		assert.Equal(t, []models.Friend{bob}, snap.FindFriends("BOB"))
		assert.Len(t, snap.FindFriends(""), 3)
		assert.Empty(t, snap.FindFriends("zed"))
	})

	t.Run("list_newest_first", func(t *testing.T) {
		txs := snap.ListTransactions(TransactionFilter{})
		require.Len(t, txs, 4)
		assert.Equal(t, "Cash", txs[0].Description)
		// Same date keeps insertion order.
		assert.Equal(t, "Movie tickets", txs[1].Description)
		assert.Equal(t, "Dinner tip", txs[2].Description)
		assert.Equal(t, "Dinner", txs[3].Description)
	})

	t.Run("list_filters", func(t *testing.T) {
		assert.Len(t, snap.ListTransactions(TransactionFilter{FriendID: alice.ID}), 2)
		assert.Len(t, snap.ListTransactions(TransactionFilter{Type: models.TransactionReceived}), 2)
		got := snap.ListTransactions(TransactionFilter{Search: "dinner", FriendID: bob.ID})
		require.Len(t, got, 1)
		assert.Equal(t, "Dinner tip", got[0].Description)
	})

	t.Run("balances", func(t *testing.T) {
		assert.Equal(t, "60", snap.Balance(alice.ID).Net.String())
		assert.Equal(t, "-20", snap.Balance(bob.ID).Net.String())

		global := snap.Global()
		assert.Equal(t, "105", global.TotalLent.String())
		assert.Equal(t, "65", global.TotalReceived.String())

		fbs := snap.FriendBalances()
		require.Len(t, fbs, 3)
		assert.True(t, fbs[2].Balance.IsSettled())
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		friends := snap.Friends()
		friends[0].Name = "Mallory"
		f, _ := snap.Friend(alice.ID)
		assert.Equal(t, "Alice", f.Name)
	})
}

func TestSettingsAndStartup(t *testing.T) {
	ctx := context.Background()
	l := New()
	assert.True(t, l.Snapshot().IsFirstStartup())
	assert.Equal(t, models.DefaultSettings(), l.Snapshot().Settings())

	require.NoError(t, l.CompleteFirstStartup(ctx))
	assert.False(t, l.Snapshot().IsFirstStartup())

	s, err := l.UpdateSettings(ctx, func(s *models.Settings) {
		s.Theme = models.ThemeDark
		s.Currency = "$"
	})
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, s.Theme)
	assert.Equal(t, "$", l.Snapshot().Settings().Currency)

	_, err = l.UpdateSettings(ctx, func(s *models.Settings) { s.EnableUpiPayment = true })
	assertValidation(t, err, "upiVpa", "required_if")
	assert.False(t, l.Snapshot().Settings().EnableUpiPayment)

	_, err = l.UpdateSettings(ctx, func(s *models.Settings) { s.Theme = "neon" })
	assertValidation(t, err, "theme", "oneof")

	_, err = l.UpdateSettings(ctx, func(s *models.Settings) { s.Currency = "" })
	assertValidation(t, err, "currency", "required")
}

func TestSettlementMessage(t *testing.T) {
	ctx := context.Background()
	l := New(WithIDGenerator(sequentialIDs()))
	alice, _ := l.AddFriend(ctx, "Alice")
	_, err := l.AddTransaction(ctx, NewTransaction{
		FriendID: alice.ID, Amount: 150, Date: march, Type: models.TransactionLent, Description: "Dinner",
	})
	require.NoError(t, err)

	title, msg, err := l.SettlementMessage(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Settlement with Alice", title)
	assert.Contains(t, msg, "Hey Alice!")
	assert.Contains(t, msg, "You owe me: ₹150.00")

	_, _, err = l.SettlementMessage("ghost")
	assert.True(t, IsReference(err))
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("reload restores state", func(t *testing.T) {
		store := storage.NewMemoryStore()
		l, err := Open(ctx, store, WithIDGenerator(sequentialIDs()))
		require.NoError(t, err)

		alice, _ := l.AddFriend(ctx, "Alice")
		_, err = l.AddTransaction(ctx, NewTransaction{
			FriendID: alice.ID, Amount: 12.5, Date: march, Type: models.TransactionReceived, Description: "Coffee",
		})
		require.NoError(t, err)
		require.NoError(t, l.CompleteFirstStartup(ctx))
		assert.Equal(t, 3, store.Saves())

		reloaded, err := Open(ctx, store)
		require.NoError(t, err)
		assert.Equal(t, l.Snapshot().State(), reloaded.Snapshot().State())
	})

	t.Run("save failure is not surfaced", func(t *testing.T) {
		store := &failingStore{}
		m := metrics.New()
		l, err := Open(ctx, store, WithMetrics(m))
		require.NoError(t, err)

		f, err := l.AddFriend(ctx, "Alice")
		require.NoError(t, err)
		_, ok := l.Snapshot().Friend(f.ID)
		assert.True(t, ok, "in-memory state still updated")
		assert.Equal(t, 1, store.saves)
		assert.Contains(t, metricsText(t, m), "udhari_persist_failures_total 1")
	})

	t.Run("load failure is returned", func(t *testing.T) {
		_, err := Open(ctx, &loadErrorStore{})
		assert.Error(t, err)
	})
}

type loadErrorStore struct{ failingStore }

func (loadErrorStore) Load(ctx context.Context) (*models.State, error) {
	return nil, errors.New("corrupt")
}

func TestSnapshot_SplitDetailsAreCopied(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	l, err := Open(ctx, store, WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	alice, _ := l.AddFriend(ctx, "Alice")
	bob, _ := l.AddFriend(ctx, "Bob")
	_, err = l.AddGroupExpense(ctx, GroupExpense{
		SplitRequest: calculator.SplitRequest{
			Amount:       100,
			Participants: []string{alice.ID, bob.ID},
			Strategy:     calculator.StrategyEqual,
		},
		Description: "Groceries",
		Date:        march,
	})
	require.NoError(t, err)
	snap := l.Snapshot()

	tests := []struct {
		name   string
		mutate func()
	}{
		{
			name: "transactions",
			mutate: func() {
				txs := snap.Transactions()
				txs[0].SplitDetails[0].Amount = 999
			},
		},
		{
			name: "list_transactions",
			mutate: func() {
				txs := snap.ListTransactions(TransactionFilter{FriendID: alice.ID})
				txs[0].SplitDetails[0].Amount = 999
			},
		},
		{
			name: "state",
			mutate: func() {
				state := snap.State()
				state.Transactions[1].SplitDetails[1].FriendID = "mallory"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mutate()
			for _, tx := range snap.Transactions() {
				assert.Equal(t, []models.SplitDetail{
					{FriendID: alice.ID, Amount: 50},
					{FriendID: bob.ID, Amount: 50},
				}, tx.SplitDetails)
			}
		})
	}

	// A later save must not carry the edits either.
	require.NoError(t, l.CompleteFirstStartup(ctx))
	reloaded, err := Open(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, snap.State().Transactions, reloaded.Snapshot().State().Transactions)
}
