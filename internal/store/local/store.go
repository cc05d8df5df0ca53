// Package local is the single-device store: state lives in memory and, when a
// data directory is given, every mutation rewrites the affected collection as
// a whole JSON file.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ariefcatur/kasir-till/internal/sales"
)

const (
	productsFile     = "products.json"
	transactionsFile = "transactions.json"
	settingsFile     = "settings.json"
)

type Store struct {
	dir string

	commit sync.Mutex // critical section handed out by Lock

	mu       sync.RWMutex
	products []sales.Product
	ledger   []sales.Transaction
	ids      map[string]struct{}
	settings *sales.PaymentSettings
}

// NewMemory returns a store that never touches the disk.
func NewMemory() *Store {
	return &Store{ids: map[string]struct{}{}}
}

// Open loads (or initialises) a store persisted under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", sales.ErrPersistence, err)
	}
	s := &Store{dir: dir, ids: map[string]struct{}{}}
	if err := s.readFile(productsFile, &s.products); err != nil {
		return nil, err
	}
	if err := s.readFile(transactionsFile, &s.ledger); err != nil {
		return nil, err
	}
	var ps sales.PaymentSettings
	switch err := s.readFile(settingsFile, &ps); {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		s.settings = &ps
	}
	for _, t := range s.ledger {
		s.ids[t.ID] = struct{}{}
	}
	return s, nil
}

// Seed replaces the catalog; used for demo data and tests.
func (s *Store) Seed(products []sales.Product) error {
	return s.SaveCatalog(context.Background(), products)
}

func (s *Store) Catalog(ctx context.Context) ([]sales.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products), nil
}

func (s *Store) SaveCatalog(ctx context.Context, products []sales.Product) error {
	next := cloneProducts(products)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeFile(productsFile, next); err != nil {
		return err
	}
	s.products = next
	return nil
}

func (s *Store) Ledger(ctx context.Context) ([]sales.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLedger(s.ledger), nil
}

func (s *Store) AppendLedger(ctx context.Context, txn sales.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[txn.ID]; dup {
		return fmt.Errorf("%w: %s", sales.ErrDuplicateID, txn.ID)
	}
	next := append(cloneLedger(s.ledger), cloneTxn(txn))
	if err := s.writeFile(transactionsFile, next); err != nil {
		return err
	}
	s.ledger = next
	s.ids[txn.ID] = struct{}{}
	return nil
}

func (s *Store) PaymentSettings(ctx context.Context) (*sales.PaymentSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, nil
	}
	cp := *s.settings
	return &cp, nil
}

func (s *Store) SavePaymentSettings(ctx context.Context, ps sales.PaymentSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeFile(settingsFile, ps); err != nil {
		return err
	}
	s.settings = &ps
	return nil
}

// Replace stages both files before renaming either. If the ledger rename
// fails the previous catalog is written back, so the disk never pairs the new
// catalog with the old ledger.
func (s *Store) Replace(ctx context.Context, products []sales.Product, txns []sales.Transaction) error {
	np, nl := cloneProducts(products), cloneLedger(txns)
	s.mu.Lock()
	defer s.mu.Unlock()

	ptmp, err := s.stage(productsFile, np)
	if err != nil {
		return err
	}
	defer os.Remove(ptmp)
	ltmp, err := s.stage(transactionsFile, nl)
	if err != nil {
		return err
	}
	defer os.Remove(ltmp)

	if err := s.commitFile(ptmp, productsFile); err != nil {
		return err
	}
	if err := s.commitFile(ltmp, transactionsFile); err != nil {
		if rerr := s.writeFile(productsFile, s.products); rerr != nil {
			return fmt.Errorf("%w (restore catalog: %v)", err, rerr)
		}
		return err
	}
	s.products, s.ledger = np, nl
	s.ids = make(map[string]struct{}, len(nl))
	for _, t := range nl {
		s.ids[t.ID] = struct{}{}
	}
	return nil
}

func (s *Store) Lock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.commit.Lock()
	return s.commit.Unlock, nil
}

func (s *Store) readFile(name string, v any) error {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		if name == settingsFile {
			return err
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", sales.ErrPersistence, name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", sales.ErrPersistence, name, err)
	}
	return nil
}

// writeFile rewrites a collection via temp file + rename so a crash never
// leaves a half-written file behind.
func (s *Store) writeFile(name string, v any) error {
	tmp, err := s.stage(name, v)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	return s.commitFile(tmp, name)
}

// stage writes v to a synced temp file next to name and returns its path.
// Without a data directory it returns "" and commitFile is a no-op.
func (s *Store) stage(name string, v any) (string, error) {
	if s.dir == "" {
		return "", nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode %s: %v", sales.ErrPersistence, name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: %v", sales.ErrPersistence, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write %s: %v", sales.ErrPersistence, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: sync %s: %v", sales.ErrPersistence, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", sales.ErrPersistence, err)
	}
	return tmp.Name(), nil
}

func (s *Store) commitFile(tmp, name string) error {
	if tmp == "" {
		return nil
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("%w: rename %s: %v", sales.ErrPersistence, name, err)
	}
	return nil
}

func cloneProducts(in []sales.Product) []sales.Product {
	out := make([]sales.Product, len(in))
	for i, p := range in {
		if p.Stock != nil {
			p.Stock = sales.IntPtr(*p.Stock)
		}
		out[i] = p
	}
	return out
}

func cloneLedger(in []sales.Transaction) []sales.Transaction {
	out := make([]sales.Transaction, len(in))
	for i, t := range in {
		out[i] = cloneTxn(t)
	}
	return out
}

func cloneTxn(t sales.Transaction) sales.Transaction {
	t.Items = append([]sales.LineItem(nil), t.Items...)
	return t
}
