// Package events names the domain events the modules exchange and re-exports
// the dispatch types from platform/events so modules import one package.
package events

import (
	"scada_quote_backend/platform/events"
	"scada_quote_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// InMemoryBus is the bus both binaries run with.
type InMemoryBus = events.InMemoryBus

// NewInMemoryBus returns a bus with no subscribers yet.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus { return events.NewInMemoryBus(log) }

// Event names.
const (
	NameQuoteCreated       = "quotes.quote.created"
	NameQuoteStatusChanged = "quotes.quote.status_changed"
	NameQuoteExported      = "quotes.quote.exported"
	NameCatalogChanged     = "catalog.changed"
)

// QuoteCreated is published after a quote and its items are stored.
type QuoteCreated struct {
	BaseEvent
	QuoteID     uuid.UUID `json:"quoteId"`
	QuoteNumber string    `json:"quoteNumber"`
	CreatedBy   uuid.UUID `json:"createdBy"`
	GrandTotal  float64   `json:"grandTotal"`
}

func (e QuoteCreated) EventName() string { return NameQuoteCreated }

// QuoteStatusChanged is published after a lifecycle transition is stored,
// including time-based expiry.
type QuoteStatusChanged struct {
	BaseEvent
	QuoteID     uuid.UUID  `json:"quoteId"`
	QuoteNumber string     `json:"quoteNumber"`
	OldStatus   string     `json:"oldStatus"`
	NewStatus   string     `json:"newStatus"`
	ActorID     *uuid.UUID `json:"actorId,omitempty"`
	ClientEmail string     `json:"clientEmail"`
	ClientName  string     `json:"clientName"`
}

func (e QuoteStatusChanged) EventName() string { return NameQuoteStatusChanged }

// QuoteExported is published after a rendered PDF is stored.
type QuoteExported struct {
	BaseEvent
	QuoteID uuid.UUID `json:"quoteId"`
	FileKey string    `json:"fileKey"`
}

func (e QuoteExported) EventName() string { return NameQuoteExported }

// CatalogChanged is published after a catalog entry is modified.
type CatalogChanged struct {
	BaseEvent
	EntryID string `json:"entryId"`
}

func (e CatalogChanged) EventName() string { return NameCatalogChanged }
