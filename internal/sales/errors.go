package sales

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity signals a non-positive or non-integer quantity.
	ErrInvalidQuantity = errors.New("sales: invalid quantity")
	// ErrInsufficientStock indicates the cart would exceed tracked stock.
	ErrInsufficientStock = errors.New("sales: insufficient stock")
	// ErrInsufficientPayment indicates cash received is below the total.
	ErrInsufficientPayment = errors.New("sales: insufficient payment")
	// ErrDuplicateID is an integrity violation: a transaction id was reused.
	ErrDuplicateID = errors.New("sales: duplicate transaction id")
	// ErrPersistence wraps read/write failures of the underlying storage.
	ErrPersistence = errors.New("sales: persistence failure")
	// ErrUnknownProduct indicates the product is not in the catalog.
	ErrUnknownProduct = errors.New("sales: unknown product")

	ErrNotInCart             = errors.New("sales: product not in cart")
	ErrEmptyCart             = errors.New("sales: cart is empty")
	ErrInvalidState          = errors.New("sales: invalid checkout state")
	ErrInvalidTransaction    = errors.New("sales: invalid transaction")
	ErrInvalidProduct        = errors.New("sales: invalid product")
	ErrPaymentMethodDisabled = errors.New("sales: payment method disabled")
	ErrInvalidMethod         = errors.New("sales: unknown payment method")
	ErrTransactionNotFound   = errors.New("sales: transaction not found")
	ErrSessionNotFound       = errors.New("sales: cart session not found")
	// ErrSettlementFailed is the generic retryable failure surfaced by Settle.
	ErrSettlementFailed = errors.New("sales: settlement failed, please retry")
)

// StockError carries the numbers behind an ErrInsufficientStock rejection.
type StockError struct {
	ProductID string
	Requested int // total quantity the cart would hold
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }
