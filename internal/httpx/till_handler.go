package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/kasir-till/internal/redisx"
	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TillHandler exposes the cart, checkout and settlement of open sessions.
type TillHandler struct {
	Sessions *sales.Sessions
	Settler  *sales.Settler
	Settings *sales.Settings
	Ledger   *sales.Ledger
	Cache    redisx.Cache
	IdemTTL  time.Duration
	Log      *zap.Logger
}

type AddItemReq struct {
	ProductID string      `json:"product_id"`
	Quantity  json.Number `json:"quantity"`
}

type UpdateItemReq struct {
	Quantity json.Number `json:"quantity"`
}

type CheckoutReq struct {
	Method string `json:"method,omitempty"`
}

type CheckoutResp struct {
	Cart    sales.CheckoutView `json:"cart"`
	Payload *sales.Payload     `json:"payload,omitempty"`
}

type SettleReq struct {
	Method       string          `json:"method"`
	CashReceived decimal.Decimal `json:"cash_received"`
}

type SettleResp struct {
	sales.Outcome
	Idempotent bool `json:"idempotent"`
}

func (h *TillHandler) Register(r chi.Router) {
	r.Post("/carts", h.openCart)
	r.Get("/carts/{id}", h.getCart)
	r.Delete("/carts/{id}", h.cancelCart)
	r.Post("/carts/{id}/items", h.addItem)
	r.Put("/carts/{id}/items/{productID}", h.updateItem)
	r.Delete("/carts/{id}/items/{productID}", h.removeItem)
	r.Post("/carts/{id}/checkout", h.checkout)
	r.Post("/carts/{id}/settle", h.settle)
}

func (h *TillHandler) openCart(w http.ResponseWriter, r *http.Request) {
	c := h.Sessions.Open()
	writeJSON(w, http.StatusCreated, c.View())
}

func (h *TillHandler) session(w http.ResponseWriter, r *http.Request) (*sales.Checkout, bool) {
	c, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return c, true
}

func (h *TillHandler) getCart(w http.ResponseWriter, r *http.Request) {
	if c, ok := h.session(w, r); ok {
		writeJSON(w, http.StatusOK, c.View())
	}
}

func (h *TillHandler) cancelCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := c.Cancel(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.View())
}

func (h *TillHandler) addItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddItemReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		badRequest(w, "missing product_id")
		return
	}
	qty, err := sales.ParseQuantity(req.Quantity.String())
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := c.AddItem(ctx, req.ProductID, qty); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.View())
}

func (h *TillHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	var req UpdateItemReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	// 0 atau negatif = hapus baris, jadi tidak lewat ParseQuantity
	qty, err := req.Quantity.Int64()
	if err != nil {
		if qty, err = parseWholeQuantity(req.Quantity); err != nil {
			writeError(w, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := c.UpdateLineQuantity(ctx, chi.URLParam(r, "productID"), int(qty)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.View())
}

// parseWholeQuantity accepts "2.0" but rejects "1.5" and anything outside int64.
func parseWholeQuantity(n json.Number) (int64, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsInteger() || !decimal.NewFromInt(d.IntPart()).Equal(d) {
		return 0, sales.ErrInvalidQuantity
	}
	return d.IntPart(), nil
}

func (h *TillHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := c.RemoveItem(chi.URLParam(r, "productID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.View())
}

func (h *TillHandler) checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	var req CheckoutReq
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "invalid json")
			return
		}
	}
	if err := c.Begin(); err != nil {
		writeError(w, err)
		return
	}
	resp := CheckoutResp{}
	if req.Method != "" {
		m, ok := sales.ParseMethod(req.Method)
		if !ok {
			writeError(w, sales.ErrInvalidMethod)
			return
		}
		p, err := c.PreviewPayload(m, h.Settings.Current())
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Payload = &p
	}
	resp.Cart = c.View()
	writeJSON(w, http.StatusOK, resp)
}

func (h *TillHandler) settle(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SettleReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	m, known := sales.ParseMethod(req.Method)
	if !known {
		writeError(w, sales.ErrInvalidMethod)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" {
		if resp, hit := h.replay(ctx, idemKey); hit {
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	out, err := h.Settler.Settle(ctx, c, sales.Payment{Method: m, CashReceived: req.CashReceived}, h.Settings.Current())
	if err != nil {
		// permintaan kembar yang kalah balapan: cart sudah settled oleh yang pertama
		if idemKey != "" && errors.Is(err, sales.ErrInvalidState) {
			if resp, hit := h.replay(ctx, idemKey); hit {
				writeJSON(w, http.StatusOK, resp)
				return
			}
		}
		writeError(w, err)
		return
	}

	if idemKey != "" {
		key := redisx.Key(redisx.KeyIdemSettle, idemKey)
		if _, err := h.Cache.SetNX(ctx, key, out.TransactionID, h.idemTTL()); err != nil {
			h.logger().Warn("store idempotency key failed", zap.String("key", key), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, SettleResp{Outcome: out})
}

// replay returns the earlier outcome recorded under an idempotency key.
func (h *TillHandler) replay(ctx context.Context, idemKey string) (SettleResp, bool) {
	key := redisx.Key(redisx.KeyIdemSettle, idemKey)
	txnID, found, err := h.Cache.Get(ctx, key)
	if err != nil {
		h.logger().Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return SettleResp{}, false
	}
	if !found {
		return SettleResp{}, false
	}
	txn, err := h.Ledger.Get(ctx, txnID)
	if err != nil {
		h.logger().Warn("idempotent replay for missing transaction", zap.String("transaction_id", txnID), zap.Error(err))
		return SettleResp{}, false
	}
	return SettleResp{
		Outcome:    sales.Outcome{TransactionID: txn.ID, Transaction: txn},
		Idempotent: true,
	}, true
}

func (h *TillHandler) idemTTL() time.Duration {
	if h.IdemTTL <= 0 {
		return redisx.TTLIdempotency
	}
	return h.IdemTTL
}

func (h *TillHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
