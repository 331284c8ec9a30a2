package adapters

import (
	"context"
	"fmt"
	"strings"

	clientsrepo "scada_quote_backend/internal/clients/repository"
	quotesvc "scada_quote_backend/internal/quotes/service"

	"github.com/google/uuid"
)

// ClientLookup is the narrow interface for fetching a directory client.
type ClientLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (clientsrepo.Client, error)
}

// QuotesClientReader adapts the clients module to quotes/service.ClientReader.
type QuotesClientReader struct {
	clients ClientLookup
}

// NewQuotesClientReader creates a new client reader adapter.
func NewQuotesClientReader(clients ClientLookup) *QuotesClientReader {
	return &QuotesClientReader{clients: clients}
}

// GetClientContact returns the name and email a quote snapshots. A company
// name takes precedence over the contact person.
func (a *QuotesClientReader) GetClientContact(ctx context.Context, id uuid.UUID) (quotesvc.ClientContact, error) {
	client, err := a.clients.Lookup(ctx, id)
	if err != nil {
		return quotesvc.ClientContact{}, fmt.Errorf("look up client for quote: %w", err)
	}

	name := strings.TrimSpace(client.Company)
	if name == "" {
		name = strings.TrimSpace(client.Name)
	}
	return quotesvc.ClientContact{Name: name, Email: client.Email}, nil
}

var _ quotesvc.ClientReader = (*QuotesClientReader)(nil)
