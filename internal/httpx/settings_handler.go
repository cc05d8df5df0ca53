package httpx

import (
	"net/http"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	Settings *sales.Settings
}

func (h *SettingsHandler) Register(r chi.Router) {
	r.Get("/settings", h.get)
	r.Put("/settings", h.put)
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.Current())
}

// put replaces the whole settings document; omitted fields become empty.
func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var next sales.PaymentSettings
	if err := decodeJSON(r, &next); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if err := h.Settings.Save(r.Context(), next); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Settings.Current())
}
