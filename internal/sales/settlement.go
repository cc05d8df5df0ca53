package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettlerDeps bundles the collaborators of the settlement orchestrator.
type SettlerDeps struct {
	Store       Store
	Publisher   Publisher
	Logger      *zap.Logger
	Clock       func() time.Time
	IDGenerator func() string
	Producer    string // service name stamped on events
}

type Settler struct {
	store    Store
	events   Publisher
	log      *zap.Logger
	clock    func() time.Time
	newID    func() string
	producer string
}

func NewSettler(deps SettlerDeps) (*Settler, error) {
	if deps.Store == nil {
		return nil, errors.New("settler: store is required")
	}
	s := &Settler{
		store:    deps.Store,
		events:   deps.Publisher,
		log:      deps.Logger,
		clock:    deps.Clock,
		newID:    deps.IDGenerator,
		producer: deps.Producer,
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = NewTransactionID
	}
	if s.producer == "" {
		s.producer = "kasir-till"
	}
	return s, nil
}

type Payment struct {
	Method       Method
	CashReceived decimal.Decimal // ignored for non-cash methods
}

type Outcome struct {
	TransactionID string          `json:"transaction_id"`
	Transaction   Transaction     `json:"transaction"`
	Payload       Payload         `json:"payload"`
	StockPending  bool            `json:"stock_pending,omitempty"`
	Reconcile     ReconcileResult `json:"reconcile"`
}

// Settle commits the checkout's cart: record the transaction, reconcile stock,
// clear the cart. Validation failures leave everything untouched and the
// checkout in AwaitingPayment. A failure before the ledger append leaves the
// checkout Failed with its cart intact; once the append succeeded the sale is
// settled even if stock reconciliation did not complete.
func (s *Settler) Settle(ctx context.Context, c *Checkout, pay Payment, settings PaymentSettings) (out Outcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusFailed {
		if err := c.transition(StatusAwaitingPayment); err != nil {
			return Outcome{}, err
		}
	}
	if c.status != StatusAwaitingPayment {
		return Outcome{}, fmt.Errorf("%w: cannot settle from %s", ErrInvalidState, c.status)
	}
	if c.cart.Len() == 0 {
		return Outcome{}, ErrEmptyCart
	}
	if err := MethodAvailable(pay.Method, settings); err != nil {
		return Outcome{}, err
	}

	total := c.cart.Total()
	received, change := total, decimal.Zero
	if pay.Method == MethodCash {
		change, err = ComputeChange(total, pay.CashReceived)
		if err != nil {
			return Outcome{}, err
		}
		received = pay.CashReceived
	}

	if err := c.transition(StatusCommitting); err != nil {
		return Outcome{}, err
	}

	lines := c.cart.Lines()
	appended := false
	var id string

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if !appended {
			c.status = StatusFailed
			s.log.Error("settlement panicked before ledger append", zap.Any("panic", r))
			out, err = Outcome{}, fmt.Errorf("%w: %v", ErrSettlementFailed, r)
			return
		}
		// transaksi sudah tercatat: anggap settled, stok diperbaiki belakangan
		s.log.Error("settlement panicked after ledger append",
			zap.String("transaction_id", id), zap.Any("panic", r))
		out = s.finish(ctx, c, out, lines, fmt.Errorf("panic: %v", r))
		err = nil
	}()

	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return Outcome{}, s.fail(c, "", err)
	}
	defer unlock()

	// (a) id, (b) snapshot
	id = s.newID()
	txn := Transaction{
		ID:            id,
		Date:          s.clock().UTC(),
		Items:         lineItems(lines),
		Total:         total,
		PaymentMethod: pay.Method,
		CashReceived:  received,
		Change:        change,
	}
	if err := ValidateTransaction(txn); err != nil {
		return Outcome{}, s.fail(c, id, err)
	}
	payload, err := GeneratePayload(PayloadRequest{
		Method:        pay.Method,
		Amount:        total,
		TransactionID: id,
		Items:         txn.Items,
	}, settings)
	if err != nil {
		return Outcome{}, s.fail(c, id, err)
	}

	// (c) ledger append must land before any stock write
	if err := s.store.AppendLedger(ctx, txn); err != nil {
		return Outcome{}, s.fail(c, id, err)
	}
	appended = true
	out = Outcome{TransactionID: id, Transaction: txn, Payload: payload}

	// (d) stock
	res, rerr := ReconcileAll(ctx, s.store, stockItemsFromLines(lines))
	out.Reconcile = res
	if len(res.Skipped) > 0 {
		s.log.Warn("reconcile skipped unknown products",
			zap.String("transaction_id", id), zap.Strings("product_ids", res.Skipped))
	}

	// (e) clear
	return s.finish(ctx, c, out, lines, rerr), nil
}

// finish completes a settlement whose ledger entry is recorded.
func (s *Settler) finish(ctx context.Context, c *Checkout, out Outcome, lines []CartLine, stockErr error) Outcome {
	id := out.TransactionID
	if stockErr != nil {
		out.StockPending = true
		s.log.Warn("stock reconciliation pending",
			zap.String("transaction_id", id), zap.Error(stockErr))
		s.publish(ctx, TopicStockPending, EventStockReconcilePending, id, StockReconcilePendingPayload{
			TransactionID: id,
			Items:         stockItemsFromLines(lines),
			Reason:        stockErr.Error(),
		})
	}

	c.cart.Clear()
	c.reference = ""
	c.lastTxnID = id
	c.status = StatusSettled

	s.log.Info("transaction settled",
		zap.String("transaction_id", id),
		zap.String("method", string(out.Transaction.PaymentMethod)),
		zap.String("total", out.Transaction.Total.String()),
		zap.Bool("stock_pending", out.StockPending))

	s.publish(ctx, TopicTransactionSettled, EventTransactionSettled, id, TransactionSettledPayload{
		TransactionID: id,
		PaymentMethod: out.Transaction.PaymentMethod,
		Total:         out.Transaction.Total,
		Items:         stockItemsFromLines(lines),
		StockPending:  out.StockPending,
	})
	return out
}

func (s *Settler) fail(c *Checkout, id string, cause error) error {
	c.status = StatusFailed
	if errors.Is(cause, ErrDuplicateID) {
		s.log.Error("transaction id collision, commit aborted",
			zap.String("transaction_id", id), zap.Error(cause))
	} else {
		s.log.Warn("settlement failed", zap.String("transaction_id", id), zap.Error(cause))
	}
	return fmt.Errorf("%w: %w", ErrSettlementFailed, cause)
}

func (s *Settler) publish(ctx context.Context, topic, eventType, id string, payload any) {
	env, err := NewEnvelope(eventType, s.producer, id, payload, s.clock())
	if err == nil {
		err = s.events.Publish(ctx, topic, env)
	}
	if err != nil {
		s.log.Warn("publish event failed",
			zap.String("event_type", eventType), zap.String("transaction_id", id), zap.Error(err))
	}
}
