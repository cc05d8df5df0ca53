package sales_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "3", want: 3},
		{in: " 2 ", want: 2},
		{in: "2.0", want: 2},
		{in: "1.5", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-4", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		// di luar int64: tidak boleh dipotong jadi 5
		{in: "18446744073709551621", wantErr: true},
		{in: "18446744073709551621.0", wantErr: true},
		{in: "9223372036854775807", want: math.MaxInt64},
	}
	for _, tc := range cases {
		got, err := sales.ParseQuantity(tc.in)
		if tc.wantErr {
			if !errors.Is(err, sales.ErrInvalidQuantity) {
				t.Fatalf("ParseQuantity(%q) err = %v, want ErrInvalidQuantity", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseQuantity(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestCartTotalsFollowLines(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("a", "Roti Tawar", 12000, 50), tracked("b", "Donat Gula", 8000, 40))
	cart := sales.NewCart(store)

	require.NoError(t, cart.AddItem(ctx, "a", 3))
	require.NoError(t, cart.AddItem(ctx, "b", 2))
	require.NoError(t, cart.AddItem(ctx, "a", 1))

	lines := cart.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, 4, lines[0].Quantity)
	require.True(t, lines[0].Subtotal.Equal(rp(48000)))
	require.True(t, lines[1].Subtotal.Equal(rp(16000)))
	require.True(t, cart.Total().Equal(rp(64000)))
}

func TestCartSnapshotsPriceAtAdd(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("a", "Roti Tawar", 12000, 50))
	cart := sales.NewCart(store)
	require.NoError(t, cart.AddItem(ctx, "a", 1))

	require.NoError(t, store.Seed([]sales.Product{tracked("a", "Roti Tawar", 15000, 50)}))
	require.NoError(t, cart.AddItem(ctx, "a", 1))

	require.True(t, cart.Total().Equal(rp(24000)), "price change must not reprice the line")
}

func TestCartRejectsOverStockAndStaysUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, tracked("b", "Croissant", 25000, 2))
	cart := sales.NewCart(store)

	err := cart.AddItem(ctx, "b", 5)
	require.ErrorIs(t, err, sales.ErrInsufficientStock)
	var se *sales.StockError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 2, se.Available)
	require.Equal(t, 0, cart.Len())

	require.NoError(t, cart.AddItem(ctx, "b", 2))
	require.ErrorIs(t, cart.AddItem(ctx, "b", 1), sales.ErrInsufficientStock)
	require.Equal(t, 2, cart.Quantity("b"))
}

func TestCartHugeQuantityCannotWrapPastStock(t *testing.T) {
	ctx := context.Background()
	cart := sales.NewCart(newStore(t, tracked("b", "Croissant", 25000, 5)))
	require.NoError(t, cart.AddItem(ctx, "b", 1))

	err := cart.AddItem(ctx, "b", math.MaxInt)
	require.ErrorIs(t, err, sales.ErrInsufficientStock)
	var se *sales.StockError
	require.True(t, errors.As(err, &se))
	require.Equal(t, math.MaxInt, se.Requested)
	require.Equal(t, 1, cart.Quantity("b"))
	require.True(t, cart.Total().Equal(rp(25000)))

	require.ErrorIs(t, cart.UpdateLineQuantity(ctx, "b", math.MaxInt), sales.ErrInsufficientStock)
	require.Equal(t, 1, cart.Quantity("b"))
}

func TestCartUntrackedQuantityOverflowIsRejected(t *testing.T) {
	ctx := context.Background()
	cart := sales.NewCart(newStore(t, sales.Product{ID: "c", Name: "Kopi", Price: rp(5000)}))
	require.NoError(t, cart.AddItem(ctx, "c", 2))

	require.ErrorIs(t, cart.AddItem(ctx, "c", math.MaxInt), sales.ErrInvalidQuantity)
	require.Equal(t, 2, cart.Quantity("c"))
	require.False(t, cart.Total().IsNegative())
}

func TestCartUntrackedIgnoresStock(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, sales.Product{ID: "c", Name: "Kopi", Price: rp(5000)})
	cart := sales.NewCart(store)
	require.NoError(t, cart.AddItem(ctx, "c", 1000))
	require.Equal(t, 1000, cart.Quantity("c"))
}

func TestCartUnknownProductAndBadQuantity(t *testing.T) {
	ctx := context.Background()
	cart := sales.NewCart(newStore(t, tracked("a", "Roti Tawar", 12000, 50)))

	require.ErrorIs(t, cart.AddItem(ctx, "zzz", 1), sales.ErrUnknownProduct)
	require.ErrorIs(t, cart.AddItem(ctx, "a", 0), sales.ErrInvalidQuantity)
	require.ErrorIs(t, cart.AddItem(ctx, "a", -2), sales.ErrInvalidQuantity)
	require.Equal(t, 0, cart.Len())
}

func TestCartUpdateLineQuantity(t *testing.T) {
	ctx := context.Background()
	cart := sales.NewCart(newStore(t, tracked("a", "Roti Tawar", 12000, 5), tracked("b", "Donat", 8000, 5)))
	require.NoError(t, cart.AddItem(ctx, "a", 2))
	require.NoError(t, cart.AddItem(ctx, "b", 1))

	require.NoError(t, cart.UpdateLineQuantity(ctx, "a", 5))
	require.Equal(t, 5, cart.Quantity("a"))
	require.ErrorIs(t, cart.UpdateLineQuantity(ctx, "a", 6), sales.ErrInsufficientStock)
	require.Equal(t, 5, cart.Quantity("a"))

	require.ErrorIs(t, cart.UpdateLineQuantity(ctx, "zzz", 1), sales.ErrNotInCart)

	require.NoError(t, cart.UpdateLineQuantity(ctx, "a", 0))
	require.Equal(t, 0, cart.Quantity("a"))
	require.Equal(t, 1, cart.Len())
	require.True(t, cart.Total().Equal(rp(8000)))
}

func TestCartRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	cart := sales.NewCart(newStore(t, tracked("a", "Roti Tawar", 12000, 5)))
	require.NoError(t, cart.AddItem(ctx, "a", 2))

	cart.RemoveItem("missing")
	require.Equal(t, 1, cart.Len())
	cart.RemoveItem("a")
	require.Equal(t, 0, cart.Len())

	require.NoError(t, cart.AddItem(ctx, "a", 1))
	cart.Clear()
	require.True(t, cart.Total().IsZero())
}

func TestCartLinesIsACopy(t *testing.T) {
	ctx := context.Background()
	cart := sales.NewCart(newStore(t, tracked("a", "Roti Tawar", 12000, 5)))
	require.NoError(t, cart.AddItem(ctx, "a", 2))

	lines := cart.Lines()
	lines[0].Quantity = 99
	require.Equal(t, 2, cart.Quantity("a"))
}
