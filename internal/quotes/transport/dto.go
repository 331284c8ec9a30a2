package transport

import (
	"bytes"
	"encoding/json"
	"time"

	"scada_quote_backend/internal/pricing"

	"github.com/google/uuid"
)

// ── Persisted quotes ──────────────────────────────────────────────────────────

// OrderRequest selects catalog quantities; the engine builds the lines.
type OrderRequest struct {
	ContainerCount   int             `json:"containerCount" validate:"min=0,max=10000"`
	AuxiliaryModules int             `json:"auxiliaryModules" validate:"min=0,max=10000"`
	AddOns           map[string]bool `json:"addOns"`
	SupportPlan      string          `json:"supportPlan" validate:"max=100"`
}

// LineRequest is an editor line. A catalog line carries the entry it was
// picked from; a manual line carries only its typed values.
type LineRequest struct {
	Source         string  `json:"source" validate:"omitempty,oneof=manual catalog"`
	CatalogEntryID string  `json:"catalogEntryId" validate:"max=100"`
	Label          string  `json:"label" validate:"required_without=CatalogEntryID,max=200"`
	Quantity       int     `json:"quantity" validate:"min=0,max=1000000"`
	UnitPrice      float64 `json:"unitPrice" validate:"finite,gte=0"`
	Note           string  `json:"note" validate:"max=500"`
}

// QuoteRequest is the body of create and update. Exactly one of Order and
// Items must be given. ClientID, when set, fills blank client fields from
// the client directory.
type QuoteRequest struct {
	ClientID        string        `json:"clientId" validate:"uuid_or_empty"`
	ClientName      string        `json:"clientName" validate:"max=200"`
	ClientEmail     string        `json:"clientEmail" validate:"omitempty,email,max=254"`
	Order           *OrderRequest `json:"order" validate:"omitempty"`
	Items           []LineRequest `json:"items" validate:"omitempty,max=200,dive"`
	DiscountPercent float64       `json:"discountPercent" validate:"finite,gte=0,lte=100"`
	ValidUntil      *time.Time    `json:"validUntil"`
	Notes           *string       `json:"notes" validate:"omitempty,max=2000"`
}

type CreateQuoteRequest = QuoteRequest

type UpdateQuoteRequest = QuoteRequest

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent accepted voided expired"`
}

type ListQuotesRequest struct {
	ClientID  string `form:"clientId" validate:"uuid_or_empty"`
	Status    string `form:"status" validate:"omitempty,oneof=draft sent accepted voided expired"`
	Search    string `form:"search" validate:"max=100"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=quoteNumber status clientName validUntil createdAt updatedAt"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type QuoteResponse struct {
	ID              uuid.UUID              `json:"id"`
	QuoteNumber     string                 `json:"quoteNumber"`
	ClientID        *uuid.UUID             `json:"clientId,omitempty"`
	ClientName      string                 `json:"clientName"`
	ClientEmail     string                 `json:"clientEmail"`
	Status          string                 `json:"status"`
	DiscountPercent float64                `json:"discountPercent"`
	UFValue         float64                `json:"ufValue"`
	ValidUntil      *time.Time             `json:"validUntil,omitempty"`
	Notes           *string                `json:"notes,omitempty"`
	HasPDF          bool                   `json:"hasPdf"`
	Lines           []pricing.EditableLine `json:"lines"`
	Items           []pricing.LineItem     `json:"items"`
	Totals          pricing.QuoteTotals    `json:"totals"`
	CreatedBy       uuid.UUID              `json:"createdBy"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	SentAt          *time.Time             `json:"sentAt,omitempty"`
	AcceptedAt      *time.Time             `json:"acceptedAt,omitempty"`
	VoidedAt        *time.Time             `json:"voidedAt,omitempty"`
}

type QuoteSummary struct {
	ID          uuid.UUID  `json:"id"`
	QuoteNumber string     `json:"quoteNumber"`
	ClientName  string     `json:"clientName"`
	ClientEmail string     `json:"clientEmail"`
	Status      string     `json:"status"`
	GrandTotal  float64    `json:"grandTotal"`
	ValidUntil  *time.Time `json:"validUntil,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type QuoteListResponse struct {
	Items      []QuoteSummary `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type ExportResponse struct {
	Queued  bool   `json:"queued"`
	FileKey string `json:"fileKey,omitempty"`
}

// ── Live calculation ──────────────────────────────────────────────────────────

// Number accepts a JSON number or a string as typed in the editor. Strings
// are read with pricing.ParseAmount, so "3,5" is 3.5 and "abc" is 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(pricing.ParseAmount(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Count is read like Number and truncated to a non-negative integer.
func (n Number) Count() int {
	return pricing.Count(float64(n))
}

type CalculateOrder struct {
	ContainerCount   Number          `json:"containerCount"`
	AuxiliaryModules Number          `json:"auxiliaryModules"`
	AddOns           map[string]bool `json:"addOns"`
	SupportPlan      string          `json:"supportPlan"`
}

type CalculateLine struct {
	ID             string `json:"id"`
	Source         string `json:"source"`
	CatalogEntryID string `json:"catalogEntryId"`
	Label          string `json:"label"`
	Quantity       Number `json:"quantity"`
	UnitPrice      Number `json:"unitPrice"`
	Note           string `json:"note"`
}

// CalculateRequest prices an order or a list of editor lines without storing
// anything. Malformed numbers are coerced, never rejected.
type CalculateRequest struct {
	Order           *CalculateOrder `json:"order"`
	Items           []CalculateLine `json:"items"`
	DiscountPercent Number          `json:"discountPercent"`
}

type CalculateResponse struct {
	Lines              []pricing.EditableLine `json:"lines"`
	Items              []pricing.LineItem     `json:"items"`
	Totals             pricing.QuoteTotals    `json:"totals"`
	CatalogUnavailable bool                   `json:"catalogUnavailable,omitempty"`
}
