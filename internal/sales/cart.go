package sales

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Cart accumulates line items for one sale. It is not safe for concurrent
// use; Sessions serialises access per checkout.
type Cart struct {
	catalog CatalogReader
	lines   []CartLine
}

func NewCart(catalog CatalogReader) *Cart {
	return &Cart{catalog: catalog}
}

// ParseQuantity validates operator input: a positive whole number.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		// "2.0" masih dianggap bulat
		d, derr := decimal.NewFromString(s)
		if derr != nil || !d.IsInteger() || !fitsInt(d) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
		}
		n = int(d.IntPart())
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	return n, nil
}

func (c *Cart) AddItem(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	p, err := c.lookup(ctx, productID)
	if err != nil {
		return err
	}

	idx := c.indexOf(productID)
	existing := 0
	if idx >= 0 {
		existing = c.lines[idx].Quantity
	}
	if p.Tracked() && quantity > *p.Stock-existing {
		return &StockError{ProductID: p.ID, Requested: addCapped(existing, quantity), Available: *p.Stock}
	}
	if existing > math.MaxInt-quantity {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	if idx >= 0 {
		line := &c.lines[idx]
		line.Quantity += quantity
		line.Subtotal = subtotal(line.UnitPrice, line.Quantity)
		return nil
	}
	c.lines = append(c.lines, CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  quantity,
		UnitPrice: p.Price,
		Subtotal:  subtotal(p.Price, quantity),
	})
	return nil
}

// UpdateLineQuantity sets the quantity of an existing line; zero or less removes it.
func (c *Cart) UpdateLineQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return nil
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotInCart, productID)
	}
	p, err := c.lookup(ctx, productID)
	if err != nil {
		return err
	}
	if err := checkStock(p, quantity); err != nil {
		return err
	}
	line := &c.lines[idx]
	line.Quantity = quantity
	line.Subtotal = subtotal(line.UnitPrice, quantity)
	return nil
}

func (c *Cart) RemoveItem(productID string) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// Quantity returns how many units of productID the cart holds.
func (c *Cart) Quantity(productID string) int {
	if idx := c.indexOf(productID); idx >= 0 {
		return c.lines[idx].Quantity
	}
	return 0
}

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) Clear() { c.lines = nil }

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) lookup(ctx context.Context, productID string) (Product, error) {
	products, err := c.catalog.Catalog(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.ID == productID {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
}

func checkStock(p Product, want int) error {
	if !p.Tracked() || want <= *p.Stock {
		return nil
	}
	return &StockError{ProductID: p.ID, Requested: want, Available: *p.Stock}
}

// fitsInt reports whether d survives the conversion to int unchanged.
func fitsInt(d decimal.Decimal) bool {
	return decimal.NewFromInt(int64(int(d.IntPart()))).Equal(d)
}

func addCapped(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func subtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
