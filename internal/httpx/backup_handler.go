package httpx

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBackupBytes = 32 << 20

type BackupHandler struct {
	Store sales.Store
	Clock func() time.Time
	Log   *zap.Logger
}

func (h *BackupHandler) Register(r chi.Router) {
	r.Get("/backup", h.export)
	r.Post("/backup", h.restore)
}

func (h *BackupHandler) export(w http.ResponseWriter, r *http.Request) {
	format, err := sales.ParseBackupFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	now := time.Now
	if h.Clock != nil {
		now = h.Clock
	}
	b, err := sales.Export(r.Context(), h.Store, now())
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := sales.EncodeBackup(&buf, b, format); err != nil {
		writeError(w, err)
		return
	}
	ct := "application/json"
	if format == sales.FormatYAML {
		ct = "application/yaml"
	}
	name := "backup-kasir-" + b.ExportedAt.Format("2006-01-02") + "." + string(format)
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// restore replaces catalog and ledger with the uploaded document.
func (h *BackupHandler) restore(w http.ResponseWriter, r *http.Request) {
	format := sales.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := sales.ParseBackupFormat(q)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		format = f
	} else if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = sales.FormatYAML
	}

	b, err := sales.DecodeBackup(http.MaxBytesReader(w, r.Body, maxBackupBytes), format)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := sales.Import(r.Context(), h.Store, b); err != nil {
		writeError(w, err)
		return
	}
	if h.Log != nil {
		h.Log.Info("backup imported",
			zap.Int("products", len(b.Products)), zap.Int("transactions", len(b.Transactions)))
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"products":     len(b.Products),
		"transactions": len(b.Transactions),
	})
}
