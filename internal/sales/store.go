package sales

import "context"

// Store is the persistence contract of the till. Collections are read and
// written as whole snapshots; Lock scopes the commit critical section.
type Store interface {
	Catalog(ctx context.Context) ([]Product, error)
	SaveCatalog(ctx context.Context, products []Product) error

	Ledger(ctx context.Context) ([]Transaction, error)
	// AppendLedger must fail with ErrDuplicateID when the id is already recorded.
	AppendLedger(ctx context.Context, txn Transaction) error

	// PaymentSettings returns nil when nothing has been saved.
	PaymentSettings(ctx context.Context) (*PaymentSettings, error)
	SavePaymentSettings(ctx context.Context, s PaymentSettings) error

	// Replace swaps catalog and ledger wholesale (backup import).
	Replace(ctx context.Context, products []Product, txns []Transaction) error

	Lock(ctx context.Context) (unlock func(), err error)
}

// CatalogReader is the read side the cart needs for stock checks.
type CatalogReader interface {
	Catalog(ctx context.Context) ([]Product, error)
}
