package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/kasir-till/internal/sales"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResp struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// writeError maps domain errors to status codes. Anything unrecognised is a 500.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResp{Error: err.Error()}
	var se *sales.StockError
	if errors.As(err, &se) {
		resp.ProductID = se.ProductID
		resp.Available = sales.IntPtr(se.Available)
	}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	// duplicate id lebih dulu: dia juga dibungkus ErrSettlementFailed
	case errors.Is(err, sales.ErrDuplicateID):
		return http.StatusInternalServerError
	case errors.Is(err, sales.ErrSettlementFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, sales.ErrSessionNotFound),
		errors.Is(err, sales.ErrTransactionNotFound),
		errors.Is(err, sales.ErrNotInCart):
		return http.StatusNotFound
	case errors.Is(err, sales.ErrUnknownProduct):
		return http.StatusNotFound
	case errors.Is(err, sales.ErrInsufficientStock),
		errors.Is(err, sales.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, sales.ErrInvalidQuantity),
		errors.Is(err, sales.ErrInsufficientPayment),
		errors.Is(err, sales.ErrEmptyCart),
		errors.Is(err, sales.ErrInvalidTransaction),
		errors.Is(err, sales.ErrInvalidProduct),
		errors.Is(err, sales.ErrPaymentMethodDisabled),
		errors.Is(err, sales.ErrInvalidMethod):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResp{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
