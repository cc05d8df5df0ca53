package sales_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/ariefcatur/kasir-till/internal/store/local"
	"github.com/shopspring/decimal"
)

var errInjected = errors.New("injected failure")

// faultyStore wraps the in-memory store and fails chosen writes.
type faultyStore struct {
	*local.Store
	failSaveCatalog bool
	failAppend      bool
	panicOnSave     bool
}

func (f *faultyStore) SaveCatalog(ctx context.Context, products []sales.Product) error {
	if f.panicOnSave {
		panic("disk on fire")
	}
	if f.failSaveCatalog {
		return errInjected
	}
	return f.Store.SaveCatalog(ctx, products)
}

func (f *faultyStore) AppendLedger(ctx context.Context, t sales.Transaction) error {
	if f.failAppend {
		return errInjected
	}
	return f.Store.AppendLedger(ctx, t)
}

func rp(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newStore(t *testing.T, products ...sales.Product) *local.Store {
	t.Helper()
	s := local.NewMemory()
	if err := s.Seed(products); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func tracked(id, name string, price int64, stock int) sales.Product {
	return sales.Product{ID: id, Name: name, Price: rp(price), Stock: sales.IntPtr(stock)}
}

func stockOf(t *testing.T, s sales.CatalogReader, id string) *int {
	t.Helper()
	products, err := s.Catalog(context.Background())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	for _, p := range products {
		if p.ID == id {
			return p.Stock
		}
	}
	t.Fatalf("product %s missing", id)
	return nil
}
