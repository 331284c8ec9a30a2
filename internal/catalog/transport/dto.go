package transport

import (
	"time"

	"scada_quote_backend/internal/pricing"
)

// UpdateEntryRequest edits a catalog entry. Omitted fields are kept.
type UpdateEntryRequest struct {
	Label               *string  `json:"label,omitempty" validate:"omitempty,min=1,max=120"`
	AdditionalLabel     *string  `json:"additionalLabel,omitempty" validate:"omitempty,max=120"`
	UnitPrice           *float64 `json:"unitPrice,omitempty" validate:"omitempty,finite,gte=0"`
	AdditionalUnitPrice *float64 `json:"additionalUnitPrice,omitempty" validate:"omitempty,finite,gte=0"`
	Note                *string  `json:"note,omitempty" validate:"omitempty,max=500"`
	IsDefault           *bool    `json:"isDefault,omitempty"`
	Active              *bool    `json:"active,omitempty"`
}

type EntryResponse struct {
	ID                  string    `json:"id"`
	Category            string    `json:"category"`
	Label               string    `json:"label"`
	AdditionalLabel     string    `json:"additionalLabel,omitempty"`
	UnitPrice           float64   `json:"unitPrice"`
	AdditionalUnitPrice float64   `json:"additionalUnitPrice,omitempty"`
	Note                string    `json:"note,omitempty"`
	IsDefault           bool      `json:"isDefault"`
	SortOrder           int       `json:"sortOrder"`
	Active              bool      `json:"active"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// CatalogResponse is the grouped catalog together with its flattened entries,
// the form editors pick lines from.
type CatalogResponse struct {
	Catalog pricing.Catalog        `json:"catalog"`
	Entries []pricing.CatalogEntry `json:"entries"`
}
