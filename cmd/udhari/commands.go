package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/udhari/internal/calculator"
	"github.com/mmynk/udhari/internal/ledger"
	"github.com/mmynk/udhari/internal/models"
	"github.com/mmynk/udhari/internal/settlement"
)

const dateLayout = "2006-01-02"

// cli runs one command against a ledger. It also stands in for the app's
// confirmation dialogs (-yes) and share sheet (stdout).
type cli struct {
	ledger *ledger.Ledger
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsage(err error) bool {
	var u *usageError
	return errors.As(err, &u)
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("no command given")
	}
	if c.now == nil {
		c.now = time.Now
	}

	if c.ledger.Snapshot().IsFirstStartup() {
		fmt.Fprintln(c.stderr, "Welcome to Udhari! Start by adding a friend: udhari friend add <name>")
		if err := c.ledger.CompleteFirstStartup(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	err := c.dispatch(ctx, args[0], args[1:])
	logCommand(args[0], time.Since(start), err)
	return err
}

// logCommand records the outcome of each command. Rejected input is expected
// and logged at debug; anything else is a warning.
func logCommand(cmd string, elapsed time.Duration, err error) {
	duration := elapsed.Milliseconds()
	switch {
	case err == nil:
		slog.Debug("Command ok", "command", cmd, "duration_ms", duration)
	case isUsage(err) || ledger.IsValidation(err) || ledger.IsReference(err):
		slog.Debug("Command rejected", "command", cmd, "error", err, "duration_ms", duration)
	default:
		slog.Warn("Command failed", "command", cmd, "error", err, "duration_ms", duration)
	}
}

func (c *cli) dispatch(ctx context.Context, cmd string, rest []string) error {
	switch cmd {
	case "friend":
		return c.friend(ctx, rest)
	case "tx":
		return c.tx(ctx, rest)
	case "split":
		return c.split(ctx, rest)
	case "balance":
		return c.balance(rest)
	case "settle":
		return c.settle(rest)
	case "clear":
		return c.clear(ctx, rest)
	case "config":
		return c.config(ctx, rest)
	default:
		return usagef("unknown command %q", cmd)
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return &usageError{msg: err.Error()}
	}
	return nil
}

// resolveFriend accepts a friend ID or an unambiguous name.
func resolveFriend(snap *ledger.Snapshot, ref string) (models.Friend, error) {
	if f, ok := snap.Friend(ref); ok {
		return f, nil
	}
	var matches []models.Friend
	for _, f := range snap.Friends() {
		if strings.EqualFold(f.Name, ref) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return models.Friend{}, &ledger.ReferenceError{Kind: "friend", ID: ref}
	case 1:
		return matches[0], nil
	default:
		return models.Friend{}, usagef("%d friends are named %q, use an ID instead", len(matches), ref)
	}
}

func (c *cli) friend(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("friend: missing subcommand")
	}
	switch args[0] {
	case "add":
		f, err := c.ledger.AddFriend(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Added %s (%s)\n", f.Name, f.ID)
		return nil

	case "rename":
		if len(args) < 3 {
			return usagef("friend rename: want <friend> <new name>")
		}
		f, err := resolveFriend(c.ledger.Snapshot(), args[1])
		if err != nil {
			return err
		}
		renamed, err := c.ledger.RenameFriend(ctx, f.ID, strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Renamed %s to %s\n", f.Name, renamed.Name)
		return nil

	case "rm":
		fs := c.flags("friend rm")
		yes := fs.Bool("yes", false, "confirm removal of the friend and all their transactions")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return usagef("friend rm: want exactly one friend")
		}
		f, err := resolveFriend(c.ledger.Snapshot(), fs.Arg(0))
		if err != nil {
			return err
		}
		if !*yes {
			return usagef("not removing %s and all their transactions without -yes", f.Name)
		}
		if err := c.ledger.RemoveFriend(ctx, f.ID); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Removed %s\n", f.Name)
		return nil

	case "ls":
		fs := c.flags("friend ls")
		query := fs.String("q", "", "filter by name")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		snap := c.ledger.Snapshot()
		currency := snap.Settings().Currency
		tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		for _, f := range snap.FindFriends(*query) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.Name, describe(snap.Balance(f.ID), currency))
		}
		return tw.Flush()

	default:
		return usagef("friend: unknown subcommand %q", args[0])
	}
}

func (c *cli) tx(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("tx: missing subcommand")
	}
	switch args[0] {
	case "add":
		fs := c.flags("tx add")
		friendRef := fs.String("friend", "", "friend ID or name")
		amount := fs.Float64("amount", 0, "amount")
		typ := fs.String("type", "", "lent or received (default: settles the current balance)")
		desc := fs.String("desc", "", "description")
		date := fs.String("date", "", "date as YYYY-MM-DD (default: today)")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}

		snap := c.ledger.Snapshot()
		f, err := resolveFriend(snap, *friendRef)
		if err != nil {
			return err
		}
		d, err := c.parseDate(*date)
		if err != nil {
			return err
		}
		t := models.TransactionType(*typ)
		if t == "" {
			t = calculator.SuggestedPaymentType(snap.Balance(f.ID))
		}

		created, err := c.ledger.AddTransaction(ctx, ledger.NewTransaction{
			FriendID:    f.ID,
			Amount:      *amount,
			Date:        d,
			Type:        t,
			Description: *desc,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Recorded %s %s with %s (%s)\n", created.Type, formatAmount(snap.Settings().Currency, created.Amount), f.Name, created.ID)
		return nil

	case "rm":
		fs := c.flags("tx rm")
		yes := fs.Bool("yes", false, "confirm removal")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return usagef("tx rm: want exactly one transaction ID")
		}
		if !*yes {
			return usagef("not removing transaction %s without -yes", fs.Arg(0))
		}
		if err := c.ledger.RemoveTransaction(ctx, fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Removed transaction %s\n", fs.Arg(0))
		return nil

	case "ls":
		fs := c.flags("tx ls")
		friendRef := fs.String("friend", "", "only this friend")
		typ := fs.String("type", "", "only lent or received")
		search := fs.String("q", "", "search descriptions")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}

		snap := c.ledger.Snapshot()
		filter := ledger.TransactionFilter{Type: models.TransactionType(*typ), Search: *search}
		if *friendRef != "" {
			f, err := resolveFriend(snap, *friendRef)
			if err != nil {
				return err
			}
			filter.FriendID = f.ID
		}

		currency := snap.Settings().Currency
		tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		for _, t := range snap.ListTransactions(filter) {
			name := t.FriendID
			if f, ok := snap.Friend(t.FriendID); ok {
				name = f.Name
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.Date.Format(dateLayout), name, t.Type, formatAmount(currency, t.Amount), t.Description, t.ID)
		}
		return tw.Flush()

	default:
		return usagef("tx: unknown subcommand %q", args[0])
	}
}

// weightFlag collects repeated -w friend=value flags.
type weightFlag map[string]float64

func (w weightFlag) String() string {
	parts := make([]string, 0, len(w))
	for k, v := range w {
		parts = append(parts, fmt.Sprintf("%s=%g", k, v))
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}

func (w weightFlag) Set(s string) error {
	ref, value, ok := strings.Cut(s, "=")
	if !ok || ref == "" {
		return fmt.Errorf("want friend=value, got %q", s)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", ref, err)
	}
	w[ref] = f
	return nil
}

func (c *cli) split(ctx context.Context, args []string) error {
	fs := c.flags("split")
	amount := fs.Float64("amount", 0, "total amount")
	strategy := fs.String("strategy", string(calculator.StrategyEqual), "equal, percentage, ratio or exact")
	desc := fs.String("desc", "", "description")
	self := fs.Bool("self", false, "include yourself in the split")
	typ := fs.String("type", string(models.TransactionLent), "lent (you paid) or received (they paid)")
	date := fs.String("date", "", "date as YYYY-MM-DD (default: today)")
	weights := weightFlag{}
	fs.Var(weights, "w", "per-friend value as friend=value, repeatable")
	if err := parse(fs, args); err != nil {
		return err
	}

	snap := c.ledger.Snapshot()
	participants := make([]string, 0, fs.NArg())
	names := make(map[string]string, fs.NArg())
	for _, ref := range fs.Args() {
		f, err := resolveFriend(snap, ref)
		if err != nil {
			return err
		}
		participants = append(participants, f.ID)
		names[f.ID] = f.Name
	}
	byID := make(map[string]float64, len(weights))
	for ref, v := range weights {
		f, err := resolveFriend(snap, ref)
		if err != nil {
			return err
		}
		if _, ok := names[f.ID]; !ok {
			return usagef("-w %s: %s is not in the split", ref, f.Name)
		}
		byID[f.ID] = v
	}
	d, err := c.parseDate(*date)
	if err != nil {
		return err
	}

	created, err := c.ledger.AddGroupExpense(ctx, ledger.GroupExpense{
		SplitRequest: calculator.SplitRequest{
			Amount:       *amount,
			Participants: participants,
			Strategy:     calculator.SplitStrategy(*strategy),
			IncludeSelf:  *self,
			Weights:      byID,
		},
		Type:        models.TransactionType(*typ),
		Description: *desc,
		Date:        d,
	})
	if err != nil {
		return err
	}

	currency := snap.Settings().Currency
	for _, t := range created {
		fmt.Fprintf(c.stdout, "%s: %s %s\n", names[t.FriendID], t.Type, formatAmount(currency, t.Amount))
	}
	fmt.Fprintf(c.stdout, "Recorded %d transactions\n", len(created))
	return nil
}

func (c *cli) balance(args []string) error {
	snap := c.ledger.Snapshot()
	currency := snap.Settings().Currency

	if len(args) > 0 {
		f, err := resolveFriend(snap, strings.Join(args, " "))
		if err != nil {
			return err
		}
		b := snap.Balance(f.ID)
		fmt.Fprintf(c.stdout, "%s %s\n", f.Name, describe(b, currency))
		fmt.Fprintf(c.stdout, "Lent: %s\nReceived: %s\n", money(currency, b.Lent), money(currency, b.Received))
		return nil
	}

	g := snap.Global()
	fmt.Fprintf(c.stdout, "Total lent: %s\nTotal received: %s\nNet: %s\n\n",
		money(currency, g.TotalLent), money(currency, g.TotalReceived), money(currency, g.Net))
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	for _, fb := range snap.FriendBalances() {
		fmt.Fprintf(tw, "%s\t%s\n", fb.Friend.Name, describe(fb.Balance, currency))
	}
	return tw.Flush()
}

func (c *cli) settle(args []string) error {
	if len(args) == 0 {
		return usagef("settle: missing friend")
	}
	f, err := resolveFriend(c.ledger.Snapshot(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	title, msg, err := c.ledger.SettlementMessage(f.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s\n\n%s\n", title, msg)
	return nil
}

func (c *cli) clear(ctx context.Context, args []string) error {
	fs := c.flags("clear")
	yes := fs.Bool("yes", false, "confirm clearing every transaction with the friend")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usagef("clear: missing friend")
	}
	f, err := resolveFriend(c.ledger.Snapshot(), strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	if !*yes {
		return usagef("not clearing transactions with %s without -yes", f.Name)
	}
	n, err := c.ledger.ClearFriendTransactions(ctx, f.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Cleared %d transactions with %s\n", n, f.Name)
	return nil
}

func (c *cli) config(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("config: missing subcommand")
	}
	switch args[0] {
	case "show":
		s := c.ledger.Snapshot().Settings()
		tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "theme\t%s\n", s.Theme)
		fmt.Fprintf(tw, "currency\t%s\n", s.Currency)
		fmt.Fprintf(tw, "show-app-name\t%t\n", s.ShowAppName)
		fmt.Fprintf(tw, "message\t%s\n", s.CustomMessage)
		fmt.Fprintf(tw, "upi-vpa\t%s\n", s.UpiVpa)
		fmt.Fprintf(tw, "upi\t%t\n", s.EnableUpiPayment)
		return tw.Flush()

	case "set":
		if len(args) < 3 {
			return usagef("config set: want <key> <value>")
		}
		apply, err := settingSetter(args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		if _, err := c.ledger.UpdateSettings(ctx, apply); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Updated %s\n", args[1])
		return nil

	case "preview":
		opts := settlement.OptionsFromSettings(c.ledger.Snapshot().Settings())
		fmt.Fprintln(c.stdout, settlement.Preview(opts, "Friend", decimal.NewFromInt(500), c.now()))
		return nil

	default:
		return usagef("config: unknown subcommand %q", args[0])
	}
}

func settingSetter(key, value string) (func(*models.Settings), error) {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, usagef("%s: want true or false, got %q", key, value)
		}
		return b, nil
	}

	switch key {
	case "theme":
		return func(s *models.Settings) { s.Theme = models.Theme(value) }, nil
	case "currency":
		return func(s *models.Settings) { s.Currency = value }, nil
	case "message":
		return func(s *models.Settings) { s.CustomMessage = value }, nil
	case "upi-vpa":
		return func(s *models.Settings) { s.UpiVpa = value }, nil
	case "show-app-name":
		b, err := parseBool()
		if err != nil {
			return nil, err
		}
		return func(s *models.Settings) { s.ShowAppName = b }, nil
	case "upi":
		b, err := parseBool()
		if err != nil {
			return nil, err
		}
		return func(s *models.Settings) { s.EnableUpiPayment = b }, nil
	default:
		return nil, usagef("config set: unknown key %q", key)
	}
}

func (c *cli) parseDate(s string) (time.Time, error) {
	if s == "" {
		now := c.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, usagef("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

func describe(b calculator.Balance, currency string) string {
	switch b.Direction() {
	case calculator.FriendOwes:
		return "owes you " + money(currency, b.Net.Abs())
	case calculator.UserOwes:
		return "you owe " + money(currency, b.Net.Abs())
	default:
		return "settled up"
	}
}

func money(currency string, d decimal.Decimal) string {
	return currency + calculator.Round2(d).StringFixed(2)
}

func formatAmount(currency string, amount float64) string {
	return money(currency, decimal.NewFromFloat(amount))
}
