package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold matches the "Menipis" badge of the product screen.
const DefaultLowStockThreshold = 10

type ProductInput struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock *int            `json:"stock,omitempty"`
}

// Catalog handles manual catalog edits. Every write is a full snapshot
// rewrite under the store lock so it cannot interleave with a settlement.
type Catalog struct {
	store Store
	newID func() string
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store, newID: uuid.NewString}
}

func (c *Catalog) Products(ctx context.Context) ([]Product, error) {
	return c.store.Catalog(ctx)
}

func (c *Catalog) Get(ctx context.Context, id string) (Product, error) {
	products, err := c.store.Catalog(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
}

func (c *Catalog) Add(ctx context.Context, in ProductInput) (Product, error) {
	p := Product{ID: c.newID(), Name: strings.TrimSpace(in.Name), Price: in.Price, Stock: copyStock(in.Stock)}
	if err := ValidateProduct(p); err != nil {
		return Product{}, err
	}
	err := c.mutate(ctx, func(products []Product) ([]Product, error) {
		return append(products, p), nil
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *Catalog) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	p := Product{ID: id, Name: strings.TrimSpace(in.Name), Price: in.Price, Stock: copyStock(in.Stock)}
	if err := ValidateProduct(p); err != nil {
		return Product{}, err
	}
	err := c.mutate(ctx, func(products []Product) ([]Product, error) {
		for i := range products {
			if products[i].ID == id {
				products[i] = p
				return products, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// Delete removes future sellability only; ledger snapshots are untouched.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, func(products []Product) ([]Product, error) {
		for i := range products {
			if products[i].ID == id {
				return append(products[:i], products[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	})
}

// LowStock lists tracked products with 0 < stock < threshold.
func (c *Catalog) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return c.filter(ctx, func(p Product) bool {
		return p.Tracked() && *p.Stock > 0 && *p.Stock < threshold
	})
}

func (c *Catalog) OutOfStock(ctx context.Context) ([]Product, error) {
	return c.filter(ctx, func(p Product) bool { return p.Tracked() && *p.Stock == 0 })
}

func (c *Catalog) filter(ctx context.Context, keep func(Product) bool) ([]Product, error) {
	products, err := c.store.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	out := []Product{}
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Catalog) mutate(ctx context.Context, fn func([]Product) ([]Product, error)) error {
	unlock, err := c.store.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	products, err := c.store.Catalog(ctx)
	if err != nil {
		return err
	}
	next, err := fn(products)
	if err != nil {
		return err
	}
	return c.store.SaveCatalog(ctx, next)
}

func ValidateProduct(p Product) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: %s has no name", ErrInvalidProduct, p.ID)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: %s has negative price", ErrInvalidProduct, p.ID)
	case p.Stock != nil && *p.Stock < 0:
		return fmt.Errorf("%w: %s has negative stock", ErrInvalidProduct, p.ID)
	}
	return nil
}

func copyStock(s *int) *int {
	if s == nil {
		return nil
	}
	return IntPtr(*s)
}

// DemoCatalog is the bakery catalog a fresh till starts with.
func DemoCatalog() []Product {
	p := func(id, name string, price int64, stock int) Product {
		return Product{ID: id, Name: name, Price: decimal.NewFromInt(price), Stock: IntPtr(stock)}
	}
	return []Product{
		p("1", "Roti Tawar", 12000, 50),
		p("2", "Roti Coklat", 15000, 30),
		p("3", "Roti Keju", 18000, 25),
		p("4", "Croissant", 25000, 15),
		p("5", "Donat Gula", 8000, 40),
		p("6", "Donat Coklat", 10000, 35),
		p("7", "Roti Pisang", 13000, 20),
		p("8", "Roti Abon", 16000, 18),
	}
}

// SeedIfEmpty installs products only when the catalog has never been filled.
func SeedIfEmpty(ctx context.Context, store Store, products []Product) (bool, error) {
	unlock, err := store.Lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	cur, err := store.Catalog(ctx)
	if err != nil || len(cur) > 0 {
		return false, err
	}
	return true, store.SaveCatalog(ctx, products)
}
