package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"scada_quote_backend/internal/events"
	"scada_quote_backend/internal/pricing"
	"scada_quote_backend/internal/quotes/repository"
	"scada_quote_backend/internal/quotes/transport"
	"scada_quote_backend/platform/apperr"
	"scada_quote_backend/platform/config"
	"scada_quote_backend/platform/logger"
	"scada_quote_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	roleAdmin    = "admin"
	roleOperator = "operator"

	maxClientNameLength = 200
	maxLineLabelLength  = 200
	defaultPageSize     = 20
	maxPageSize         = 100
	expiryBatchSize     = 100

	msgWriteForbidden  = "your role cannot modify quotes"
	msgDeleteForbidden = "only administrators can delete quotes"
	msgNotEditable     = "only draft quotes can be edited"
	msgNotDeletable    = "only draft or voided quotes can be deleted"
	msgOrderAndItems   = "provide either order or items, not both"
	msgNoLines         = "a quote needs at least one line"
	msgClientName      = "client name is required"
	msgClientEmail     = "client email is required"
)

// Repository is the persistence the quotes service needs.
type Repository interface {
	NextQuoteNumber(ctx context.Context, year int) (string, error)
	CreateWithItems(ctx context.Context, quote *repository.Quote, items []repository.QuoteItem) error
	UpdateWithItems(ctx context.Context, quote *repository.Quote, items []repository.QuoteItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Quote, error)
	GetItemsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]repository.QuoteItem, error)
	GetItemsByQuoteIDs(ctx context.Context, quoteIDs []uuid.UUID) (map[uuid.UUID][]repository.QuoteItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) error
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]repository.Quote, error)
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	SetPDFFileKey(ctx context.Context, id uuid.UUID, fileKey string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
}

// CatalogReader provides the current pricing catalog.
type CatalogReader interface {
	Catalog(ctx context.Context) (pricing.Catalog, error)
}

// ClientContact is the part of a directory client a quote snapshots.
type ClientContact struct {
	Name  string
	Email string
}

// ClientReader resolves directory clients without importing the clients module.
type ClientReader interface {
	GetClientContact(ctx context.Context, id uuid.UUID) (ClientContact, error)
}

// PDFRenderer turns a loaded quote into a PDF document.
type PDFRenderer interface {
	RenderQuotePDF(ctx context.Context, quote transport.QuoteResponse) ([]byte, error)
}

// PDFStore keeps rendered quote PDFs.
type PDFStore interface {
	PutQuotePDF(ctx context.Context, quoteNumber string, data []byte) (string, error)
	GetQuotePDF(ctx context.Context, fileKey string) (io.ReadCloser, error)
}

// ExportEnqueuer schedules background PDF exports.
type ExportEnqueuer interface {
	EnqueueQuotePDFExport(ctx context.Context, quoteID uuid.UUID) error
}

// Actor is the authenticated caller of a write operation.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

func (a Actor) hasAnyRole(roles ...string) bool {
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (a Actor) canWrite() bool { return a.hasAnyRole(roleAdmin, roleOperator) }

// Service provides business logic for quotes
type Service struct {
	repo     Repository
	catalog  CatalogReader
	cfg      config.PricingConfig
	log      *logger.Logger
	clients  ClientReader
	eventBus events.Bus
	renderer PDFRenderer
	store    PDFStore
	enqueuer ExportEnqueuer
	now      func() time.Time
}

// New creates a new quotes service
func New(repo Repository, catalog CatalogReader, cfg config.PricingConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, cfg: cfg, log: log, now: time.Now}
}

// SetEventBus injects the domain event bus.
func (s *Service) SetEventBus(bus events.Bus) { s.eventBus = bus }

// SetClientReader injects the client directory lookup.
func (s *Service) SetClientReader(r ClientReader) { s.clients = r }

// SetPDFRenderer injects the PDF renderer.
func (s *Service) SetPDFRenderer(r PDFRenderer) { s.renderer = r }

// SetPDFStore injects object storage for rendered PDFs.
func (s *Service) SetPDFStore(st PDFStore) { s.store = st }

// SetExportEnqueuer injects the background job client. Without one, exports run inline.
func (s *Service) SetExportEnqueuer(e ExportEnqueuer) { s.enqueuer = e }

// TaxRate returns the configured tax rate applied to every quote.
func (s *Service) TaxRate() float64 {
	return pricing.NormalizeTaxRate(s.cfg.GetQuoteTaxRate())
}

// preparedQuote holds validated, sanitized quote content ready to persist.
type preparedQuote struct {
	clientID    *uuid.UUID
	clientName  string
	clientEmail string
	lines       []pricing.EditableLine
	discount    float64
	validUntil  *time.Time
	notes       *string
}

// Create creates a new draft quote. Totals are not stored.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateQuoteRequest) (*transport.QuoteResponse, error) {
	if !actor.canWrite() {
		return nil, apperr.Forbidden(msgWriteForbidden)
	}

	prepared, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	quoteNumber, err := s.repo.NextQuoteNumber(ctx, now.Year())
	if err != nil {
		return nil, fmt.Errorf("generate quote number: %w", err)
	}

	validUntil := prepared.validUntil
	if validUntil == nil {
		if days := s.cfg.GetQuoteValidityDays(); days > 0 {
			v := now.AddDate(0, 0, days)
			validUntil = &v
		}
	}

	quote := repository.Quote{
		ID:              uuid.New(),
		QuoteNumber:     quoteNumber,
		ClientID:        prepared.clientID,
		ClientName:      prepared.clientName,
		ClientEmail:     prepared.clientEmail,
		Status:          StatusDraft,
		DiscountPercent: prepared.discount,
		UFValue:         s.cfg.GetQuoteUFValue(),
		ValidUntil:      validUntil,
		Notes:           prepared.notes,
		CreatedBy:       actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	items := toQuoteItems(quote.ID, prepared.lines)

	if err := s.repo.CreateWithItems(ctx, &quote, items); err != nil {
		return nil, err
	}

	resp := s.buildResponse(&quote, items, s.catalogForRead(ctx), now)

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.QuoteCreated{
			BaseEvent:   events.NewBaseEvent(),
			QuoteID:     quote.ID,
			QuoteNumber: quote.QuoteNumber,
			CreatedBy:   actor.UserID,
			GrandTotal:  resp.Totals.GrandTotal,
		})
	}
	s.log.WithContext(ctx).QuoteEvent("created", quote.QuoteNumber, quote.Status)

	return resp, nil
}

// Update replaces the content of a draft quote, items included.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateQuoteRequest) (*transport.QuoteResponse, error) {
	if !actor.canWrite() {
		return nil, apperr.Forbidden(msgWriteForbidden)
	}

	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if EffectiveStatus(quote.Status, quote.ValidUntil, now) != StatusDraft {
		return nil, apperr.Conflict(msgNotEditable)
	}

	prepared, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	quote.ClientID = prepared.clientID
	quote.ClientName = prepared.clientName
	quote.ClientEmail = prepared.clientEmail
	quote.DiscountPercent = prepared.discount
	if prepared.validUntil != nil {
		quote.ValidUntil = prepared.validUntil
	}
	quote.Notes = prepared.notes
	quote.PDFFileKey = nil
	quote.UpdatedAt = now

	items := toQuoteItems(quote.ID, prepared.lines)
	if err := s.repo.UpdateWithItems(ctx, quote, items); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).QuoteEvent("updated", quote.QuoteNumber, quote.Status)
	return s.buildResponse(quote, items, s.catalogForRead(ctx), now), nil
}

// GetByID loads a quote, re-associates its lines with the current catalog
// and recomputes its totals with the configured tax rate.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItemsByQuoteID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.buildResponse(quote, items, s.catalogForRead(ctx), s.now()), nil
}

// List retrieves quotes with filtering and pagination
func (s *Service) List(ctx context.Context, req transport.ListQuotesRequest) (*transport.QuoteListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	now := s.now()
	params := repository.ListParams{
		Status:    nilIfEmpty(req.Status),
		Search:    strings.TrimSpace(req.Search),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      page,
		PageSize:  pageSize,
		Now:       now,
	}
	if req.ClientID != "" {
		parsed, err := uuid.Parse(req.ClientID)
		if err != nil {
			return nil, apperr.BadRequest("invalid clientId format")
		}
		params.ClientID = &parsed
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(result.Items))
	for i, q := range result.Items {
		ids[i] = q.ID
	}
	itemsByQuote, err := s.repo.GetItemsByQuoteIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	taxRate := s.TaxRate()
	summaries := make([]transport.QuoteSummary, len(result.Items))
	for i, q := range result.Items {
		lineItems := make([]pricing.LineItem, 0, len(itemsByQuote[q.ID]))
		for _, it := range itemsByQuote[q.ID] {
			lineItems = append(lineItems, pricing.NewLineItem(it.ID.String(), it.Label, it.Quantity, it.UnitPrice, it.Note))
		}
		totals := pricing.ComputeTotals(lineItems, q.DiscountPercent, taxRate)
		summaries[i] = transport.QuoteSummary{
			ID:          q.ID,
			QuoteNumber: q.QuoteNumber,
			ClientName:  q.ClientName,
			ClientEmail: q.ClientEmail,
			Status:      EffectiveStatus(q.Status, q.ValidUntil, now),
			GrandTotal:  totals.GrandTotal,
			ValidUntil:  q.ValidUntil,
			CreatedAt:   q.CreatedAt,
			UpdatedAt:   q.UpdatedAt,
		}
	}

	return &transport.QuoteListResponse{
		Items:      summaries,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Delete removes a draft or voided quote. Only administrators may delete.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.hasAnyRole(roleAdmin) {
		return apperr.Forbidden(msgDeleteForbidden)
	}

	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !Deletable(EffectiveStatus(quote.Status, quote.ValidUntil, s.now())) {
		return apperr.Conflict(msgNotDeletable)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithContext(ctx).QuoteEvent("deleted", quote.QuoteNumber, quote.Status)
	return nil
}

// prepare validates and normalizes the content shared by create and update.
func (s *Service) prepare(ctx context.Context, req transport.QuoteRequest) (preparedQuote, error) {
	var out preparedQuote

	if req.Order != nil && len(req.Items) > 0 {
		return out, apperr.Validation(msgOrderAndItems)
	}
	if req.Order == nil && len(req.Items) == 0 {
		return out, apperr.Validation(msgNoLines)
	}

	lines, err := s.buildLines(ctx, req)
	if err != nil {
		return out, err
	}
	out.lines = lines

	name := sanitize.Label(req.ClientName, maxClientNameLength)
	email := strings.ToLower(strings.TrimSpace(req.ClientEmail))
	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			return out, apperr.Validation("invalid clientId format")
		}
		out.clientID = &clientID
		if s.clients != nil && (name == "" || email == "") {
			contact, err := s.clients.GetClientContact(ctx, clientID)
			if err != nil {
				return out, err
			}
			if name == "" {
				name = sanitize.Label(contact.Name, maxClientNameLength)
			}
			if email == "" {
				email = strings.ToLower(strings.TrimSpace(contact.Email))
			}
		}
	}
	if name == "" {
		return out, apperr.Validation(msgClientName)
	}
	if email == "" {
		return out, apperr.Validation(msgClientEmail)
	}
	out.clientName = name
	out.clientEmail = email

	out.discount = pricing.ClampDiscount(req.DiscountPercent)
	out.validUntil = req.ValidUntil
	out.notes = sanitize.TextPtr(req.Notes)
	return out, nil
}

func (s *Service) buildLines(ctx context.Context, req transport.QuoteRequest) ([]pricing.EditableLine, error) {
	if req.Order != nil {
		catalog, err := s.catalog.Catalog(ctx)
		if err != nil {
			return nil, err
		}
		order := pricing.OrderInput{
			ContainerCount:   req.Order.ContainerCount,
			AuxiliaryModules: req.Order.AuxiliaryModules,
			AddOns:           req.Order.AddOns,
			SupportPlan:      req.Order.SupportPlan,
		}
		return pricing.EditableLines(pricing.BuildLineItems(order, catalog), catalog), nil
	}

	lines := make([]pricing.EditableLine, 0, len(req.Items))
	for i, it := range req.Items {
		label := sanitize.Label(it.Label, maxLineLabelLength)
		if it.Quantity < 0 || it.UnitPrice < 0 {
			return nil, apperr.Validation(fmt.Sprintf("line %d has a negative quantity or price", i+1))
		}
		line := pricing.EditableLine{
			ID:        fmt.Sprintf("line-%d", i+1),
			Source:    pricing.LineSource(it.Source),
			Label:     label,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Note:      sanitize.Text(it.Note),
		}
		if line.Source != pricing.SourceManual {
			line.CatalogEntryID = strings.TrimSpace(it.CatalogEntryID)
		}
		lines = append(lines, line)
	}
	lines = pricing.ResolveEdits(lines, s.catalogForRead(ctx))
	for i, line := range lines {
		if line.Label == "" {
			return nil, apperr.Validation(fmt.Sprintf("line %d needs a label", i+1))
		}
	}
	return lines, nil
}

// catalogForRead returns the current catalog, or an empty one when it cannot
// be loaded. Stored lines then read as manual lines with their own values.
func (s *Service) catalogForRead(ctx context.Context) pricing.Catalog {
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		s.log.WithContext(ctx).Warn("catalog unavailable, quote lines read as manual", "error", err)
		return pricing.Catalog{}
	}
	return catalog
}

// buildResponse converts a repository Quote + items into a transport response
func (s *Service) buildResponse(q *repository.Quote, items []repository.QuoteItem, catalog pricing.Catalog, now time.Time) *transport.QuoteResponse {
	lines := make([]pricing.EditableLine, len(items))
	for i, it := range items {
		lines[i] = pricing.EditableLine{
			ID:             it.ID.String(),
			Source:         pricing.LineSource(it.Source),
			CatalogEntryID: derefString(it.CatalogEntryID),
			Label:          it.Label,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Note:           it.Note,
		}
	}
	lines = pricing.ReconcileAll(lines, catalog)
	lineItems := pricing.LineItemsOf(lines)

	return &transport.QuoteResponse{
		ID:              q.ID,
		QuoteNumber:     q.QuoteNumber,
		ClientID:        q.ClientID,
		ClientName:      q.ClientName,
		ClientEmail:     q.ClientEmail,
		Status:          EffectiveStatus(q.Status, q.ValidUntil, now),
		DiscountPercent: q.DiscountPercent,
		UFValue:         q.UFValue,
		ValidUntil:      q.ValidUntil,
		Notes:           q.Notes,
		HasPDF:          q.PDFFileKey != nil && *q.PDFFileKey != "",
		Lines:           lines,
		Items:           lineItems,
		Totals:          pricing.ComputeTotals(lineItems, q.DiscountPercent, s.TaxRate()),
		CreatedBy:       q.CreatedBy,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
		SentAt:          q.SentAt,
		AcceptedAt:      q.AcceptedAt,
		VoidedAt:        q.VoidedAt,
	}
}

func toQuoteItems(quoteID uuid.UUID, lines []pricing.EditableLine) []repository.QuoteItem {
	items := make([]repository.QuoteItem, len(lines))
	for i, line := range lines {
		source := line.Source
		if source != pricing.SourceCatalog {
			source = pricing.SourceManual
		}
		items[i] = repository.QuoteItem{
			ID:             uuid.New(),
			QuoteID:        quoteID,
			Position:       i,
			Source:         string(source),
			CatalogEntryID: nilIfEmpty(line.CatalogEntryID),
			Label:          line.Label,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			Note:           line.Note,
		}
	}
	return items
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
