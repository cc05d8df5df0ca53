package httpx

import (
	"bytes"
	"net/http"
	"time"

	"github.com/ariefcatur/kasir-till/internal/receipt"
	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/go-chi/chi/v5"
)

const dateOnly = "2006-01-02"

type LedgerHandler struct {
	Ledger   *sales.Ledger
	Settings *sales.Settings
	Receipts *receipt.Renderer
	Location *time.Location // zona untuk parameter tanggal tanpa jam
}

func (h *LedgerHandler) Register(r chi.Router) {
	r.Get("/transactions", h.list)
	r.Get("/transactions/{id}", h.get)
	r.Get("/transactions/{id}/receipt", h.receipt)
}

// list returns the whole ledger, or [from, to) when either bound is given.
// A bare date as "to" includes that whole day.
func (h *LedgerHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		txns, err := h.Ledger.ListAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, txns)
		return
	}

	from, err := h.parseBound(q.Get("from"), false)
	if err != nil {
		badRequest(w, "invalid from: "+err.Error())
		return
	}
	to, err := h.parseBound(q.Get("to"), true)
	if err != nil {
		badRequest(w, "invalid to: "+err.Error())
		return
	}
	txns, err := h.Ledger.ListByDateRange(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	if txns == nil {
		txns = []sales.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *LedgerHandler) parseBound(v string, upper bool) (time.Time, error) {
	switch {
	case v == "" && upper:
		return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), nil
	case v == "":
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(dateOnly, v, loc)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		d = d.AddDate(0, 0, 1)
	}
	return d, nil
}

func (h *LedgerHandler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *LedgerHandler) receipt(w http.ResponseWriter, r *http.Request) {
	t, err := h.Ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.Receipts.Render(&buf, t, h.Settings.Current().StoreInfo); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
