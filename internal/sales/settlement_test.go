package sales_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []sales.Envelope
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, env sales.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, env)
	return r.err
}

func newCheckout(t *testing.T, store sales.CatalogReader, adds map[string]int) *sales.Checkout {
	t.Helper()
	c := sales.NewCheckout("c1", store)
	for id, qty := range adds {
		require.NoError(t, c.AddItem(context.Background(), id, qty))
	}
	require.NoError(t, c.Begin())
	return c
}

func TestSettleCashRecordsAndReconciles(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("A", "Roti Tawar", 12000, 50))
	pub := &recordingPublisher{}
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	settler, err := sales.NewSettler(sales.SettlerDeps{
		Store: store, Publisher: pub, Clock: func() time.Time { return fixed },
	})
	require.NoError(t, err)

	c := newCheckout(t, store, map[string]int{"A": 3})
	out, err := settler.Settle(ctx, c, sales.Payment{Method: sales.MethodCash, CashReceived: rp(40000)}, sales.DefaultPaymentSettings())
	require.NoError(t, err)

	require.Regexp(t, `^trx_[0-9A-Z]{26}$`, out.TransactionID)
	require.True(t, out.Transaction.Total.Equal(rp(36000)))
	require.True(t, out.Transaction.Change.Equal(rp(4000)))
	require.True(t, out.Transaction.CashReceived.Equal(rp(40000)))
	require.True(t, fixed.Equal(out.Transaction.Date))
	require.False(t, out.StockPending)
	require.Equal(t, []string{"A"}, out.Reconcile.Updated)

	require.Equal(t, 47, *stockOf(t, store, "A"))
	require.Equal(t, sales.StatusSettled, c.Status())
	view := c.View()
	require.Empty(t, view.Lines)
	require.Equal(t, out.TransactionID, view.LastTransactionID)

	txns, _ := store.Ledger(ctx)
	require.Len(t, txns, 1)
	require.Equal(t, out.TransactionID, txns[0].ID)

	require.Equal(t, []string{sales.TopicTransactionSettled}, pub.topics)
	require.Equal(t, sales.EventTransactionSettled, pub.events[0].EventType)
	require.Equal(t, out.TransactionID, pub.events[0].CorrelationID)
}

func TestSettleRejectionsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("A", "Roti Tawar", 12000, 50))
	settler, _ := sales.NewSettler(sales.SettlerDeps{Store: store})

	c := newCheckout(t, store, map[string]int{"A": 1})
	settings := sales.DefaultPaymentSettings()
	settings.QRISEnabled = false

	cases := []struct {
		pay  sales.Payment
		want error
	}{
		{sales.Payment{Method: sales.MethodCash, CashReceived: rp(11999)}, sales.ErrInsufficientPayment},
		{sales.Payment{Method: sales.MethodQRIS}, sales.ErrPaymentMethodDisabled},
		{sales.Payment{Method: "gopay"}, sales.ErrInvalidMethod},
	}
	for _, tc := range cases {
		_, err := settler.Settle(ctx, c, tc.pay, settings)
		require.ErrorIs(t, err, tc.want)
		require.Equal(t, sales.StatusAwaitingPayment, c.Status())
	}

	txns, _ := store.Ledger(ctx)
	require.Empty(t, txns)
	require.Equal(t, 50, *stockOf(t, store, "A"))
	require.Len(t, c.View().Lines, 1)
}

func TestSettleRequiresAwaitingPayment(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("A", "Roti Tawar", 12000, 50))
	settler, _ := sales.NewSettler(sales.SettlerDeps{Store: store})

	c := sales.NewCheckout("c1", store)
	require.NoError(t, c.AddItem(ctx, "A", 1))
	_, err := settler.Settle(ctx, c, sales.Payment{Method: sales.MethodCash, CashReceived: rp(12000)}, sales.DefaultPaymentSettings())
	require.ErrorIs(t, err, sales.ErrInvalidState)

	empty := sales.NewCheckout("c2", store)
	require.ErrorIs(t, empty.Begin(), sales.ErrEmptyCart)
}

func TestSettleAppendFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{Store: newStore(t, tracked("A", "Roti Tawar", 12000, 50)), failAppend: true}
	settler, _ := sales.NewSettler(sales.SettlerDeps{Store: store})
	c := newCheckout(t, store, map[string]int{"A": 2})
	pay := sales.Payment{Method: sales.MethodCash, CashReceived: rp(24000)}

	_, err := settler.Settle(ctx, c, pay, sales.DefaultPaymentSettings())
	require.ErrorIs(t, err, sales.ErrSettlementFailed)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, sales.StatusFailed, c.Status())
	require.Equal(t, 50, *stockOf(t, store, "A"))

	// retry dari Failed setelah storage pulih
	store.failAppend = false
	out, err := settler.Settle(ctx, c, pay, sales.DefaultPaymentSettings())
	require.NoError(t, err)
	require.Equal(t, 48, *stockOf(t, store, "A"))
	txns, _ := store.Ledger(ctx)
	require.Len(t, txns, 1)
	require.Equal(t, out.TransactionID, txns[0].ID)
}

func TestSettleDuplicateIDAbortsWithoutOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("A", "Roti Tawar", 12000, 50))
	core, logs := observer.New(zap.ErrorLevel)
	settler, _ := sales.NewSettler(sales.SettlerDeps{
		Store:       store,
		Logger:      zap.New(core),
		IDGenerator: func() string { return "trx_fixed" },
	})
	pay := sales.Payment{Method: sales.MethodCash, CashReceived: rp(12000)}

	first := newCheckout(t, store, map[string]int{"A": 1})
	_, err := settler.Settle(ctx, first, pay, sales.DefaultPaymentSettings())
	require.NoError(t, err)

	second := newCheckout(t, store, map[string]int{"A": 1})
	_, err = settler.Settle(ctx, second, pay, sales.DefaultPaymentSettings())
	require.ErrorIs(t, err, sales.ErrDuplicateID)
	require.ErrorIs(t, err, sales.ErrSettlementFailed)
	require.Equal(t, sales.StatusFailed, second.Status())
	require.Equal(t, 49, *stockOf(t, store, "A"))
	require.Equal(t, 1, logs.FilterMessage("transaction id collision, commit aborted").Len())

	txns, _ := store.Ledger(ctx)
	require.Len(t, txns, 1)
}

func TestSettleStockFailureAfterAppendStillSettles(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{Store: newStore(t, tracked("A", "Roti Tawar", 12000, 50))}
	pub := &recordingPublisher{}
	settler, _ := sales.NewSettler(sales.SettlerDeps{Store: store, Publisher: pub})
	c := newCheckout(t, store, map[string]int{"A": 2})

	store.failSaveCatalog = true
	out, err := settler.Settle(ctx, c, sales.Payment{Method: sales.MethodCash, CashReceived: rp(30000)}, sales.DefaultPaymentSettings())
	require.NoError(t, err)
	require.True(t, out.StockPending)
	require.Equal(t, sales.StatusSettled, c.Status())
	require.Equal(t, 50, *stockOf(t, store, "A"))
	require.Equal(t, []string{sales.TopicStockPending, sales.TopicTransactionSettled}, pub.topics)
	require.Equal(t, sales.EventStockReconcilePending, pub.events[0].EventType)
}

func TestSettlePanicHandling(t *testing.T) {
	ctx := context.Background()

	// panic setelah append: transaksi tetap tercatat
	store := &faultyStore{Store: newStore(t, tracked("A", "Roti Tawar", 12000, 50))}
	settler, _ := sales.NewSettler(sales.SettlerDeps{Store: store})
	c := newCheckout(t, store, map[string]int{"A": 1})
	store.panicOnSave = true
	out, err := settler.Settle(ctx, c, sales.Payment{Method: sales.MethodQRIS}, sales.DefaultPaymentSettings())
	require.NoError(t, err)
	require.True(t, out.StockPending)
	require.Equal(t, sales.StatusSettled, c.Status())

	// panic sebelum append: gagal dan bisa diulang
	store2 := &panickyLedger{faultyStore: faultyStore{Store: newStore(t, tracked("A", "Roti Tawar", 12000, 50))}}
	settler2, _ := sales.NewSettler(sales.SettlerDeps{Store: store2})
	c2 := newCheckout(t, store2, map[string]int{"A": 1})
	_, err = settler2.Settle(ctx, c2, sales.Payment{Method: sales.MethodQRIS}, sales.DefaultPaymentSettings())
	require.ErrorIs(t, err, sales.ErrSettlementFailed)
	require.Equal(t, sales.StatusFailed, c2.Status())
	require.Len(t, c2.View().Lines, 1)
}

type panickyLedger struct{ faultyStore }

func (p *panickyLedger) AppendLedger(context.Context, sales.Transaction) error {
	panic("ledger exploded")
}

func TestSettlePublishFailureDoesNotFailSale(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("A", "Roti Tawar", 12000, 50))
	pub := &recordingPublisher{err: errors.New("broker down")}
	settler, _ := sales.NewSettler(sales.SettlerDeps{Store: store, Publisher: pub})
	c := newCheckout(t, store, map[string]int{"A": 1})

	_, err := settler.Settle(ctx, c, sales.Payment{Method: sales.MethodTransfer}, sales.DefaultPaymentSettings())
	require.NoError(t, err)
	txns, _ := store.Ledger(ctx)
	require.Len(t, txns, 1)
	require.True(t, txns[0].CashReceived.Equal(txns[0].Total))
	require.True(t, txns[0].Change.IsZero())
}

func TestSettleConcurrentCheckoutsSerialiseAndClamp(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("A", "Roti Tawar", 12000, 10))
	settler, _ := sales.NewSettler(sales.SettlerDeps{Store: store})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		c := newCheckout(t, store, map[string]int{"A": 2})
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = settler.Settle(ctx, c, sales.Payment{Method: sales.MethodCash, CashReceived: rp(24000)}, sales.DefaultPaymentSettings())
		}()
	}
	wg.Wait()

	require.Equal(t, 0, *stockOf(t, store, "A"))
	txns, _ := store.Ledger(ctx)
	require.Len(t, txns, 8)
	seen := map[string]bool{}
	for _, txn := range txns {
		require.False(t, seen[txn.ID], "duplicate id %s", txn.ID)
		seen[txn.ID] = true
	}
}

func TestNewSettlerRequiresStore(t *testing.T) {
	_, err := sales.NewSettler(sales.SettlerDeps{})
	require.Error(t, err)
}
