// Package credits keeps the local credit balance. Credits are integer
// hundredths of a dollar; conversion from resolved prices lives in the
// pricing package.
package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/manash/vidgen/internal/pricing"
	"github.com/manash/vidgen/internal/session"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

type Ledger struct {
	store *session.Store
}

func NewLedger(store *session.Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Balance(ctx context.Context) (int64, error) {
	return l.store.Balance(ctx)
}

// Add tops up the balance.
func (l *Ledger) Add(ctx context.Context, amount int64, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return l.store.AddLedgerEntry(ctx, &session.LedgerEntry{
		Delta:       amount,
		Description: description,
		Timestamp:   time.Now(),
	})
}

// Charge debits the resolved price of a generation. The balance is checked
// first so a generation is never dispatched on insufficient credits.
func (l *Ledger) Charge(ctx context.Context, price decimal.Decimal, description, generationID string) (int64, error) {
	cost := pricing.Credits(price)
	if cost < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, price)
	}

	balance, err := l.store.Balance(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	if balance < cost {
		return balance, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredits, cost, balance)
	}

	entry := &session.LedgerEntry{
		Delta:        -cost,
		Description:  description,
		GenerationID: generationID,
		Timestamp:    time.Now(),
	}
	if err := l.store.AddLedgerEntry(ctx, entry); err != nil {
		return balance, fmt.Errorf("failed to record charge: %w", err)
	}
	return balance - cost, nil
}

// CanAfford reports whether the balance covers the given price.
func (l *Ledger) CanAfford(ctx context.Context, price decimal.Decimal) (bool, error) {
	balance, err := l.store.Balance(ctx)
	if err != nil {
		return false, err
	}
	return balance >= pricing.Credits(price), nil
}

func (l *Ledger) History(ctx context.Context, limit int) ([]*session.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return l.store.ListLedger(ctx, limit)
}
