package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/dvloznov/statement-extractor/internal/merchants"
)

// MerchantCatalog serves the merchant dictionary. merchants.Service
// implements it.
type MerchantCatalog interface {
	Current() *merchants.Dictionary
	LoadedAt() time.Time
	Reload(ctx context.Context) error
}

// MerchantsHandler exposes the merchant dictionary.
type MerchantsHandler struct {
	catalog MerchantCatalog
	log     zerolog.Logger
}

// NewMerchantsHandler creates a new merchants handler.
func NewMerchantsHandler(catalog MerchantCatalog, log zerolog.Logger) *MerchantsHandler {
	return &MerchantsHandler{
		catalog: catalog,
		log:     log,
	}
}

func (h *MerchantsHandler) snapshot() map[string]interface{} {
	dict := h.catalog.Current()
	out := map[string]interface{}{
		"dictionary": dict.Document(),
		"categories": dict.Categories(),
		"merchants":  len(dict.Merchants()),
	}
	if t := h.catalog.LoadedAt(); !t.IsZero() {
		out["loaded_at"] = t
	}
	return out
}

// GetDictionary handles GET /api/merchants
func (h *MerchantsHandler) GetDictionary(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.snapshot())
}

// Reload handles POST /api/merchants/reload
func (h *MerchantsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Merchant dictionary reload failed")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to reload merchant dictionary")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.snapshot())
}
