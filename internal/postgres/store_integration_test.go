//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Exec(ctx, `TRUNCATE products, transactions, payment_settings`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return &Store{DB: db}
}

func TestStoreIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	products := []sales.Product{
		{ID: "1", Name: "Roti Tawar", Price: decimal.NewFromInt(12000), Stock: sales.IntPtr(50)},
		{ID: "2", Name: "Kopi", Price: decimal.RequireFromString("4500.50")},
	}
	if err := s.SaveCatalog(ctx, products); err != nil {
		t.Fatalf("save catalog: %v", err)
	}
	got, err := s.Catalog(ctx)
	if err != nil || len(got) != 2 {
		t.Fatalf("catalog = %v, %v", got, err)
	}
	if got[0].ID != "1" || *got[0].Stock != 50 || got[1].Stock != nil || !got[1].Price.Equal(products[1].Price) {
		t.Fatalf("catalog round trip = %+v", got)
	}

	txn := sales.Transaction{
		ID:            "trx_it",
		Date:          time.Now().UTC().Truncate(time.Microsecond),
		Items:         []sales.LineItem{{Name: "Roti Tawar", Price: decimal.NewFromInt(12000), Quantity: 2}},
		Total:         decimal.NewFromInt(24000),
		PaymentMethod: sales.MethodCash,
		CashReceived:  decimal.NewFromInt(25000),
		Change:        decimal.NewFromInt(1000),
	}
	if err := s.AppendLedger(ctx, txn); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendLedger(ctx, txn); !errors.Is(err, sales.ErrDuplicateID) {
		t.Fatalf("duplicate append err = %v", err)
	}
	ledger, err := s.Ledger(ctx)
	if err != nil || len(ledger) != 1 || !ledger[0].Date.Equal(txn.Date) || !ledger[0].Change.Equal(txn.Change) {
		t.Fatalf("ledger = %+v, %v", ledger, err)
	}

	if ps, err := s.PaymentSettings(ctx); err != nil || ps != nil {
		t.Fatalf("fresh settings = %v, %v", ps, err)
	}
	ps := sales.DefaultPaymentSettings()
	ps.QRISMerchantID = "ID77"
	if err := s.SavePaymentSettings(ctx, ps); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if loaded, err := s.PaymentSettings(ctx); err != nil || loaded.QRISMerchantID != "ID77" {
		t.Fatalf("settings = %+v, %v", loaded, err)
	}

	if err := s.Replace(ctx, products[:1], nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
	ledger, _ = s.Ledger(ctx)
	got, _ = s.Catalog(ctx)
	if len(ledger) != 0 || len(got) != 1 {
		t.Fatalf("after replace: %d txns, %d products", len(ledger), len(got))
	}
}

func TestSettleAgainstPostgres(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SaveCatalog(ctx, sales.DemoCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	settler, err := sales.NewSettler(sales.SettlerDeps{Store: s})
	if err != nil {
		t.Fatal(err)
	}
	c := sales.NewCheckout("pg", s)
	if err := c.AddItem(ctx, "1", 3); err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(); err != nil {
		t.Fatal(err)
	}
	out, err := settler.Settle(ctx, c, sales.Payment{Method: sales.MethodCash, CashReceived: decimal.NewFromInt(40000)}, sales.DefaultPaymentSettings())
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.StockPending {
		t.Fatalf("stock pending against a healthy database")
	}
	p, err := sales.NewCatalog(s).Get(ctx, "1")
	if err != nil || *p.Stock != 47 {
		t.Fatalf("stock after settle = %v, %v", p.Stock, err)
	}
}
