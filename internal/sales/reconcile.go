package sales

import "context"

type StockItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ReconcileResult struct {
	Updated []string `json:"updated,omitempty"` // product ids whose stock changed
	Skipped []string `json:"skipped,omitempty"` // ids no longer in the catalog
}

// CatalogStore is the snapshot read/write pair used by reconciliation.
type CatalogStore interface {
	Catalog(ctx context.Context) ([]Product, error)
	SaveCatalog(ctx context.Context, products []Product) error
}

// ReconcileAll decrements tracked stock for every sold item, clamped at zero.
// Untracked products are left alone and unknown ids are reported in Skipped.
// The whole catalog is read and written back once; callers hold the store lock.
func ReconcileAll(ctx context.Context, store CatalogStore, items []StockItem) (ReconcileResult, error) {
	var res ReconcileResult
	if len(items) == 0 {
		return res, nil
	}

	products, err := store.Catalog(ctx)
	if err != nil {
		return res, err
	}
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	sold := map[string]int{}
	var order []string
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if _, ok := byID[it.ProductID]; !ok {
			res.Skipped = append(res.Skipped, it.ProductID)
			continue
		}
		if _, seen := sold[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		sold[it.ProductID] += it.Quantity
	}

	changed := false
	for _, id := range order {
		p := &products[byID[id]]
		if !p.Tracked() {
			continue
		}
		next := *p.Stock - sold[id]
		if next < 0 {
			next = 0
		}
		if next != *p.Stock {
			p.Stock = IntPtr(next)
			res.Updated = append(res.Updated, id)
			changed = true
		}
	}
	if !changed {
		return res, nil
	}
	if err := store.SaveCatalog(ctx, products); err != nil {
		return ReconcileResult{Skipped: res.Skipped}, err
	}
	return res, nil
}

func stockItemsFromLines(lines []CartLine) []StockItem {
	out := make([]StockItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, StockItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
