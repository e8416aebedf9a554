// Package settlement renders a friend's balance and recent history into a
// shareable text message.
//
// Nothing here sends anything; the caller hands the text to whatever share
// mechanism it has.
package settlement

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/udhari/internal/calculator"
	"github.com/mmynk/udhari/internal/models"
)

const (
	// RecentLimit is how many transactions a settlement message lists.
	RecentLimit = 5

	// AppAttribution is appended when Options.ShowAppName is set.
	AppAttribution = "Sent from Udhari app"

	// DefaultDateLayout formats transaction dates in messages.
	DefaultDateLayout = "02 Jan 2006"

	paymentPayeeName = "Payment via Udhari"
	paymentNote      = "Sent through Udhari app"
)

// Options controls the optional parts of a message.
type Options struct {
	Currency         string
	ShowAppName      bool
	CustomMessage    string
	UpiVpa           string
	EnableUpiPayment bool

	// DateLayout is a time layout; DefaultDateLayout when empty.
	DateLayout string
}

// OptionsFromSettings maps stored settings to message options.
func OptionsFromSettings(s models.Settings) Options {
	return Options{
		Currency:         s.Currency,
		ShowAppName:      s.ShowAppName,
		CustomMessage:    s.CustomMessage,
		UpiVpa:           s.UpiVpa,
		EnableUpiPayment: s.EnableUpiPayment,
	}
}

// ShareTitle is the title handed to the share collaborator.
func ShareTitle(friend models.Friend) string {
	return fmt.Sprintf("Settlement with %s", friend.Name)
}

// Format builds the settlement message for friend.
//
// recent is rendered in the order given; use RecentTransactions to pick and
// order them. The payment link is only included when the friend owes the user.
func Format(friend models.Friend, balance calculator.Balance, recent []models.Transaction, opts Options) string {
	layout := opts.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	abs := balance.Net.Abs()

	var b strings.Builder
	fmt.Fprintf(&b, "Hey %s!\n\n", friend.Name)
	b.WriteString("Here's our money status:\n\n")

	switch balance.Direction() {
	case calculator.FriendOwes:
		fmt.Fprintf(&b, "You owe me: %s\n\n", money(opts.Currency, abs))
	case calculator.UserOwes:
		fmt.Fprintf(&b, "I owe you: %s\n\n", money(opts.Currency, abs))
	default:
		b.WriteString("We're all settled up!\n\n")
	}

	b.WriteString("Transaction history:\n")
	if len(recent) == 0 {
		b.WriteString("No transactions yet\n")
	}
	for _, t := range recent {
		b.WriteString(transactionLine(t, opts.Currency, layout))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if opts.EnableUpiPayment && opts.UpiVpa != "" && balance.Direction() == calculator.FriendOwes {
		fmt.Fprintf(&b, "Pay directly: %s\n\n", PaymentLink(opts.UpiVpa, abs, paymentNote))
	}

	if opts.CustomMessage != "" {
		b.WriteString(opts.CustomMessage)
		b.WriteByte('\n')
	}
	if opts.ShowAppName {
		b.WriteString(AppAttribution)
	}

	return strings.TrimRight(b.String(), "\n")
}

// transactionLine renders "• 02 Jan 2024: Dinner +₹200.00 (I paid)".
// Lent amounts are positive (the friend owes more), received ones negative.
func transactionLine(t models.Transaction, currency, layout string) string {
	sign, who := "+", "I paid"
	if t.Type == models.TransactionReceived {
		sign, who = "-", "You paid"
	}
	amount := decimal.Zero
	if t.Amount > 0 && !math.IsInf(t.Amount, 1) {
		amount = decimal.NewFromFloat(t.Amount)
	}
	return fmt.Sprintf("• %s: %s %s%s (%s)",
		t.Date.Format(layout), t.Description, sign, money(currency, amount), who)
}

func money(currency string, d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}

// RecentTransactions returns up to limit transactions with friendID, newest first.
// Transactions on the same date keep their original order.
func RecentTransactions(transactions []models.Transaction, friendID string, limit int) []models.Transaction {
	var recent []models.Transaction
	for _, t := range transactions {
		if t.FriendID == friendID {
			recent = append(recent, t)
		}
	}
	slices.SortStableFunc(recent, func(a, b models.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	if limit >= 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent
}

// PaymentLink builds a UPI deep link paying amount to vpa.
func PaymentLink(vpa string, amount decimal.Decimal, note string) string {
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&cu=INR&tn=%s",
		escape(vpa), escape(paymentPayeeName), amount.StringFixed(2), escape(note))
}

// escape percent-encodes s for a query value, using %20 for spaces so the link
// survives messaging apps that do not decode '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Preview renders the sample message shown on the settings screen: one
// "Dinner" the user paid for, worth amount.
func Preview(opts Options, friendName string, amount decimal.Decimal, date time.Time) string {
	friend := models.Friend{ID: "preview", Name: friendName}
	sample := []models.Transaction{{
		ID:          "preview",
		FriendID:    friend.ID,
		Amount:      amount.InexactFloat64(),
		Date:        date,
		Type:        models.TransactionLent,
		Description: "Dinner",
	}}
	return Format(friend, calculator.BalanceForFriend(sample, friend.ID), sample, opts)
}
