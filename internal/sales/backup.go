package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backup is the export document: the whole catalog and the whole ledger.
type Backup struct {
	Products     []Product     `json:"products" yaml:"products"`
	Transactions []Transaction `json:"transactions" yaml:"transactions"`
	ExportedAt   time.Time     `json:"exportDate,omitempty" yaml:"exportDate,omitempty"`
}

type BackupFormat string

const (
	FormatJSON BackupFormat = "json"
	FormatYAML BackupFormat = "yaml"
)

func ParseBackupFormat(s string) (BackupFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported backup format %q", s)
}

func Export(ctx context.Context, store Store, now time.Time) (Backup, error) {
	products, err := store.Catalog(ctx)
	if err != nil {
		return Backup{}, err
	}
	txns, err := store.Ledger(ctx)
	if err != nil {
		return Backup{}, err
	}
	if products == nil {
		products = []Product{}
	}
	if txns == nil {
		txns = []Transaction{}
	}
	return Backup{Products: products, Transactions: txns, ExportedAt: now.UTC()}, nil
}

// Import validates b and replaces the catalog and ledger with it. It is not a
// merge: anything absent from b is gone afterwards.
func Import(ctx context.Context, store Store, b Backup) error {
	if err := b.Validate(); err != nil {
		return err
	}
	unlock, err := store.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return store.Replace(ctx, b.Products, b.Transactions)
}

func (b *Backup) Validate() error {
	seen := map[string]bool{}
	for _, p := range b.Products {
		if err := ValidateProduct(p); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate product id %s", ErrInvalidProduct, p.ID)
		}
		seen[p.ID] = true
	}
	ids := map[string]bool{}
	for i := range b.Transactions {
		t := &b.Transactions[i]
		// data lama memakai "tunai"
		if m, ok := ParseMethod(string(t.PaymentMethod)); ok {
			t.PaymentMethod = m
		}
		if err := ValidateTransaction(*t); err != nil {
			return err
		}
		if ids[t.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidTransaction, t.ID)
		}
		ids[t.ID] = true
	}
	return nil
}

func EncodeBackup(w io.Writer, b Backup, format BackupFormat) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func DecodeBackup(r io.Reader, format BackupFormat) (Backup, error) {
	var b Backup
	var err error
	if format == FormatYAML {
		err = yaml.NewDecoder(r).Decode(&b)
	} else {
		err = json.NewDecoder(r).Decode(&b)
	}
	if err != nil {
		return Backup{}, fmt.Errorf("decode backup: %w", err)
	}
	return b, nil
}
