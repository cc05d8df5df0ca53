package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger is the append-only view over recorded transactions. There is no
// update or delete; corrections are new transactions.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger { return &Ledger{store: store} }

func (l *Ledger) Append(ctx context.Context, txn Transaction) error {
	if err := ValidateTransaction(txn); err != nil {
		return err
	}
	return l.store.AppendLedger(ctx, txn)
}

func (l *Ledger) ListAll(ctx context.Context) ([]Transaction, error) {
	return l.store.Ledger(ctx)
}

// ListByDateRange returns transactions with start <= Date < end.
func (l *Ledger) ListByDateRange(ctx context.Context, start, end time.Time) ([]Transaction, error) {
	all, err := l.store.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	var out []Transaction
	for _, t := range all {
		if !t.Date.Before(start) && t.Date.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (Transaction, error) {
	all, err := l.store.Ledger(ctx)
	if err != nil {
		return Transaction{}, err
	}
	for _, t := range all {
		if t.ID == id {
			return t, nil
		}
	}
	return Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
}

// ValidateTransaction enforces the ledger invariants.
func ValidateTransaction(t Transaction) error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTransaction)
	}
	if len(t.Items) == 0 {
		return fmt.Errorf("%w: %s has no items", ErrInvalidTransaction, t.ID)
	}
	if _, ok := ParseMethod(string(t.PaymentMethod)); !ok {
		return fmt.Errorf("%w: %s has payment method %q", ErrInvalidTransaction, t.ID, t.PaymentMethod)
	}
	sum := decimal.Zero
	for _, it := range t.Items {
		if it.Quantity <= 0 || it.Price.IsNegative() {
			return fmt.Errorf("%w: %s has an invalid line %q", ErrInvalidTransaction, t.ID, it.Name)
		}
		sum = sum.Add(it.Subtotal())
	}
	if t.Total.IsNegative() || !t.Total.Equal(sum) {
		return fmt.Errorf("%w: %s total %s does not match items %s", ErrInvalidTransaction, t.ID, t.Total, sum)
	}
	return nil
}
