package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scada_quote_backend/internal/catalog/service"
	"scada_quote_backend/internal/catalog/transport"
	"scada_quote_backend/platform/httpkit"
	"scada_quote_backend/platform/validator"
)

// Handler handles HTTP requests for catalog.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid catalog entry id"
)

// New creates a new catalog handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GetCatalog returns the pricing catalog.
// GET /api/v1/catalog
func (h *Handler) GetCatalog(c *gin.Context) {
	catalog, err := h.svc.Catalog(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CatalogResponse{Catalog: catalog, Entries: catalog.Entries()})
}

// ListEntries returns every stored entry including inactive ones.
// GET /api/v1/catalog/entries
func (h *Handler) ListEntries(c *gin.Context) {
	result, err := h.svc.ListEntries(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

// UpdateEntry edits an entry.
// PUT /api/v1/catalog/entries/:id
func (h *Handler) UpdateEntry(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	result, err := h.svc.UpdateEntry(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
