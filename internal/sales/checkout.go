package sales

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Checkout is one sale in progress: the cart plus its settlement state.
// Editing the cart from any state other than Building returns it to Building.
type Checkout struct {
	ID string

	mu        sync.Mutex
	cart      *Cart
	status    Status
	reference string
	lastTxnID string
	clock     func() time.Time
}

func NewCheckout(id string, catalog CatalogReader) *Checkout {
	return &Checkout{
		ID:     id,
		cart:   NewCart(catalog),
		status: StatusBuilding,
		clock:  time.Now,
	}
}

type CheckoutView struct {
	ID                string          `json:"id"`
	Status            Status          `json:"status"`
	Lines             []CartLine      `json:"lines"`
	Total             decimal.Decimal `json:"total"`
	Reference         string          `json:"reference,omitempty"`
	LastTransactionID string          `json:"last_transaction_id,omitempty"`
}

func (c *Checkout) View() CheckoutView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CheckoutView{
		ID:                c.ID,
		Status:            c.status,
		Lines:             c.cart.Lines(),
		Total:             c.cart.Total(),
		Reference:         c.reference,
		LastTransactionID: c.lastTxnID,
	}
}

func (c *Checkout) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Checkout) AddItem(ctx context.Context, productID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reopen(); err != nil {
		return err
	}
	return c.cart.AddItem(ctx, productID, quantity)
}

func (c *Checkout) UpdateLineQuantity(ctx context.Context, productID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reopen(); err != nil {
		return err
	}
	return c.cart.UpdateLineQuantity(ctx, productID, quantity)
}

func (c *Checkout) RemoveItem(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reopen(); err != nil {
		return err
	}
	c.cart.RemoveItem(productID)
	return nil
}

// Cancel empties the cart and starts over.
func (c *Checkout) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reopen(); err != nil {
		return err
	}
	c.cart.Clear()
	c.reference = ""
	return nil
}

// Begin moves a non-empty cart to AwaitingPayment.
func (c *Checkout) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cart.Len() == 0 {
		return ErrEmptyCart
	}
	if c.status == StatusAwaitingPayment {
		return nil
	}
	if err := c.transition(StatusAwaitingPayment); err != nil {
		return err
	}
	c.reference = displayReference(c.clock())
	return nil
}

// PreviewPayload renders the payload shown while waiting for the customer.
func (c *Checkout) PreviewPayload(method Method, settings PaymentSettings) (Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusAwaitingPayment {
		return Payload{}, fmt.Errorf("%w: %s", ErrInvalidState, c.status)
	}
	return GeneratePayload(PayloadRequest{
		Method:        method,
		Amount:        c.cart.Total(),
		TransactionID: c.reference,
		Items:         lineItems(c.cart.lines),
	}, settings)
}

func (c *Checkout) transition(to Status) error {
	if !CanTransition(c.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, c.status, to)
	}
	c.status = to
	return nil
}

func (c *Checkout) reopen() error {
	if c.status == StatusBuilding {
		return nil
	}
	if err := c.transition(StatusBuilding); err != nil {
		return err
	}
	c.reference = ""
	return nil
}

func lineItems(lines []CartLine) []LineItem {
	out := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineItem{Name: l.Name, Price: l.UnitPrice, Quantity: l.Quantity})
	}
	return out
}
