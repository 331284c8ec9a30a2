package repository

import (
	"context"
	"time"
)

// Categories of catalog entries.
const (
	CategoryContainer       = "container"
	CategoryAuxiliaryModule = "auxiliary_module"
	CategoryAddOn           = "add_on"
	CategorySupportPlan     = "support_plan"
)

// Entry is a stored catalog entry. AdditionalLabel and AdditionalUnitPrice
// are only meaningful for containers.
type Entry struct {
	ID                  string    `db:"id" yaml:"id"`
	Category            string    `db:"category" yaml:"category"`
	Label               string    `db:"label" yaml:"label"`
	AdditionalLabel     string    `db:"additional_label" yaml:"additionalLabel"`
	UnitPrice           float64   `db:"unit_price" yaml:"unitPrice"`
	AdditionalUnitPrice float64   `db:"additional_unit_price" yaml:"additionalUnitPrice"`
	Note                string    `db:"note" yaml:"note"`
	IsDefault           bool      `db:"is_default" yaml:"default"`
	SortOrder           int       `db:"sort_order" yaml:"sortOrder"`
	Active              bool      `db:"active" yaml:"active"`
	UpdatedAt           time.Time `db:"updated_at" yaml:"-"`
}

// UpdateEntryParams holds the editable fields of an entry. Nil fields are kept.
type UpdateEntryParams struct {
	ID                  string
	Label               *string
	AdditionalLabel     *string
	UnitPrice           *float64
	AdditionalUnitPrice *float64
	Note                *string
	IsDefault           *bool
	Active              *bool
}

// Repository persists catalog entries.
type Repository interface {
	// ListActive returns active entries ordered by category and sort order.
	ListActive(ctx context.Context) ([]Entry, error)
	// ListAll returns every entry including inactive ones.
	ListAll(ctx context.Context) ([]Entry, error)
	GetByID(ctx context.Context, id string) (Entry, error)
	// Update applies params. Setting IsDefault on a support plan clears the
	// flag on the other plans in the same transaction.
	Update(ctx context.Context, params UpdateEntryParams) (Entry, error)
	Count(ctx context.Context) (int, error)
	InsertMany(ctx context.Context, entries []Entry) error
}
