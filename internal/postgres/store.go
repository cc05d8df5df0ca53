package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// commitLockKey identifies the till's advisory lock.
const commitLockKey int64 = 0x6b61736972 // "kasir"

const uniqueViolation = "23505"

// Store keeps catalog and ledger in Postgres. The catalog is still rewritten
// as a whole snapshot, inside one SQL transaction.
type Store struct{ DB *pgxpool.Pool }

func (s *Store) Catalog(ctx context.Context) ([]sales.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name, price::text, stock FROM products ORDER BY position, id`)
	if err != nil {
		return nil, persistence("list products", err)
	}
	defer rows.Close()

	out := []sales.Product{}
	for rows.Next() {
		var (
			p     sales.Product
			price string
			stock *int
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &stock); err != nil {
			return nil, persistence("scan product", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, persistence("parse price", err)
		}
		p.Stock = stock
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list products", err)
	}
	return out, nil
}

func (s *Store) SaveCatalog(ctx context.Context, products []sales.Product) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return persistence("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertProducts(ctx, tx, products); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return persistence("commit catalog", err)
	}
	return nil
}

func insertProducts(ctx context.Context, tx pgx.Tx, products []sales.Product) error {
	if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
		return persistence("clear products", err)
	}
	for i, p := range products {
		_, err := tx.Exec(ctx, `
			INSERT INTO products(position, id, name, price, stock)
			VALUES ($1, $2, $3, $4::numeric, $5)`,
			i, p.ID, p.Name, p.Price.String(), p.Stock,
		)
		if err != nil {
			return persistence("insert product "+p.ID, err)
		}
	}
	return nil
}

func (s *Store) Ledger(ctx context.Context) ([]sales.Transaction, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, date, items, total::text, payment_method, cash_received::text, change::text
		FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, persistence("list transactions", err)
	}
	defer rows.Close()

	out := []sales.Transaction{}
	for rows.Next() {
		var (
			t                       sales.Transaction
			date                    time.Time
			items                   []byte
			method                  string
			total, received, change string
		)
		if err := rows.Scan(&t.ID, &date, &items, &total, &method, &received, &change); err != nil {
			return nil, persistence("scan transaction", err)
		}
		if err := json.Unmarshal(items, &t.Items); err != nil {
			return nil, persistence("decode items of "+t.ID, err)
		}
		t.Date = date.UTC()
		t.PaymentMethod = sales.Method(method)
		if t.Total, err = decimal.NewFromString(total); err != nil {
			return nil, persistence("parse total", err)
		}
		if t.CashReceived, err = decimal.NewFromString(received); err != nil {
			return nil, persistence("parse cash received", err)
		}
		if t.Change, err = decimal.NewFromString(change); err != nil {
			return nil, persistence("parse change", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list transactions", err)
	}
	return out, nil
}

func (s *Store) AppendLedger(ctx context.Context, t sales.Transaction) error {
	return appendTxn(ctx, s.DB, t)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func appendTxn(ctx context.Context, db execer, t sales.Transaction) error {
	items, err := json.Marshal(t.Items)
	if err != nil {
		return persistence("encode items", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO transactions(id, date, items, total, payment_method, cash_received, change)
		VALUES ($1, $2, $3::jsonb, $4::numeric, $5, $6::numeric, $7::numeric)`,
		t.ID, t.Date, items, t.Total.String(), string(t.PaymentMethod), t.CashReceived.String(), t.Change.String(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", sales.ErrDuplicateID, t.ID)
	}
	if err != nil {
		return persistence("append transaction "+t.ID, err)
	}
	return nil
}

func (s *Store) PaymentSettings(ctx context.Context) (*sales.PaymentSettings, error) {
	var doc []byte
	err := s.DB.QueryRow(ctx, `SELECT doc FROM payment_settings WHERE id = 1`).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistence("load settings", err)
	}
	var ps sales.PaymentSettings
	if err := json.Unmarshal(doc, &ps); err != nil {
		return nil, persistence("decode settings", err)
	}
	return &ps, nil
}

func (s *Store) SavePaymentSettings(ctx context.Context, ps sales.PaymentSettings) error {
	doc, err := json.Marshal(ps)
	if err != nil {
		return persistence("encode settings", err)
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO payment_settings(id, doc) VALUES (1, $1::jsonb)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, doc)
	if err != nil {
		return persistence("save settings", err)
	}
	return nil
}

// Replace swaps both collections in one SQL transaction.
func (s *Store) Replace(ctx context.Context, products []sales.Product, txns []sales.Transaction) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return persistence("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertProducts(ctx, tx, products); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM transactions`); err != nil {
		return persistence("clear transactions", err)
	}
	for _, t := range txns {
		if err := appendTxn(ctx, tx, t); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return persistence("commit import", err)
	}
	return nil
}

// Lock takes a session advisory lock on a dedicated connection, so a second
// process writing the same database waits for the running commit.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	conn, err := s.DB.Acquire(ctx)
	if err != nil {
		return nil, persistence("acquire lock conn", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, commitLockKey); err != nil {
		conn.Release()
		return nil, persistence("advisory lock", err)
	}
	return func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, commitLockKey)
		conn.Release()
	}, nil
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", sales.ErrPersistence, op, err)
}
