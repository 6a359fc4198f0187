package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/catalogue"
	"boulder-editor/internal/metrics"
	"boulder-editor/pkg/response"
)

type CatalogueHandler struct {
	provider *catalogue.Provider
}

func NewCatalogueHandler(provider *catalogue.Provider) *CatalogueHandler {
	return &CatalogueHandler{provider: provider}
}

func (h *CatalogueHandler) Get(w http.ResponseWriter, r *http.Request) {
	cat := h.provider.Catalogue()
	if cat == nil {
		response.NotFound(w, "Holds data not loaded")
		return
	}
	response.Success(w, cat.ToResponse())
}

// Upload replaces the active catalogue with the request body. A rejected
// document leaves the previous catalogue active.
func (h *CatalogueHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	cat, err := h.provider.Load(r.Body, "upload")
	if err != nil {
		metrics.CatalogueLoads.WithLabelValues("failed").Inc()
		logrus.WithError(err).Warn("Rejected uploaded holds data")
		writeError(w, err)
		return
	}
	response.Success(w, cat.ToResponse())
}

func (h *CatalogueHandler) Reload(w http.ResponseWriter, r *http.Request) {
	cat, err := h.provider.Reload(r.Context())
	if err != nil {
		metrics.CatalogueLoads.WithLabelValues("failed").Inc()
		logrus.WithError(err).Warn("Failed to reload holds data")
		writeError(w, err)
		return
	}
	response.Success(w, cat.ToResponse())
}
