package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"scada_quote_backend/internal/events"
	"scada_quote_backend/internal/pricing"
	"scada_quote_backend/internal/quotes/repository"
	"scada_quote_backend/internal/quotes/transport"
	"scada_quote_backend/platform/apperr"
	"scada_quote_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

var (
	adminActor    = Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Roles: []string{roleAdmin}}
	operatorActor = Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Roles: []string{roleOperator}}
	viewerActor   = Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), Roles: []string{"viewer"}}
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeRepo struct {
	quotes  map[uuid.UUID]repository.Quote
	items   map[uuid.UUID][]repository.QuoteItem
	counter int
	deleted []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		quotes: make(map[uuid.UUID]repository.Quote),
		items:  make(map[uuid.UUID][]repository.QuoteItem),
	}
}

func (r *fakeRepo) NextQuoteNumber(_ context.Context, year int) (string, error) {
	r.counter++
	return fmt.Sprintf("COT-%d-%04d", year, r.counter), nil
}

func (r *fakeRepo) CreateWithItems(_ context.Context, q *repository.Quote, items []repository.QuoteItem) error {
	r.quotes[q.ID] = *q
	r.items[q.ID] = items
	return nil
}

func (r *fakeRepo) UpdateWithItems(_ context.Context, q *repository.Quote, items []repository.QuoteItem) error {
	stored, ok := r.quotes[q.ID]
	if !ok || stored.Status != StatusDraft {
		return apperr.Conflict("quote was changed concurrently")
	}
	q.PDFFileKey = nil
	r.quotes[q.ID] = *q
	r.items[q.ID] = items
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Quote, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	return &q, nil
}

func (r *fakeRepo) GetItemsByQuoteID(_ context.Context, id uuid.UUID) ([]repository.QuoteItem, error) {
	return r.items[id], nil
}

func (r *fakeRepo) GetItemsByQuoteIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]repository.QuoteItem, error) {
	out := make(map[uuid.UUID][]repository.QuoteItem, len(ids))
	for _, id := range ids {
		out[id] = r.items[id]
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to string, at time.Time) error {
	q, ok := r.quotes[id]
	if !ok || q.Status != from {
		return apperr.Conflict("quote was changed concurrently")
	}
	q.Status = to
	q.PDFFileKey = nil
	q.UpdatedAt = at
	switch to {
	case StatusSent:
		q.SentAt = &at
	case StatusAccepted:
		q.AcceptedAt = &at
	case StatusVoided:
		q.VoidedAt = &at
	}
	r.quotes[id] = q
	return nil
}

func (r *fakeRepo) ListOverdue(_ context.Context, now time.Time, limit int) ([]repository.Quote, error) {
	out := make([]repository.Quote, 0)
	for _, q := range r.quotes {
		if (q.Status == StatusDraft || q.Status == StatusSent) && q.ValidUntil != nil && q.ValidUntil.Before(now) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuoteNumber < out[j].QuoteNumber })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) MarkExpired(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	q, ok := r.quotes[id]
	if !ok || (q.Status != StatusDraft && q.Status != StatusSent) {
		return false, nil
	}
	q.Status = StatusExpired
	q.UpdatedAt = now
	r.quotes[id] = q
	return true, nil
}

func (r *fakeRepo) SetPDFFileKey(_ context.Context, id uuid.UUID, key string) error {
	q, ok := r.quotes[id]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	q.PDFFileKey = &key
	r.quotes[id] = q
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.quotes, id)
	delete(r.items, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeRepo) List(_ context.Context, p repository.ListParams) (*repository.ListResult, error) {
	out := make([]repository.Quote, 0, len(r.quotes))
	for _, q := range r.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuoteNumber < out[j].QuoteNumber })
	return &repository.ListResult{Items: out, Total: len(out), Page: p.Page, PageSize: p.PageSize, TotalPages: 1}, nil
}

type fakeCatalog struct {
	catalog pricing.Catalog
	err     error
}

func (c *fakeCatalog) Catalog(context.Context) (pricing.Catalog, error) {
	return c.catalog, c.err
}

type fakeClients map[uuid.UUID]ClientContact

func (c fakeClients) GetClientContact(_ context.Context, id uuid.UUID) (ClientContact, error) {
	contact, ok := c[id]
	if !ok {
		return ClientContact{}, apperr.NotFound("client not found")
	}
	return contact, nil
}

type pricingConfig struct {
	taxRate      float64
	validityDays int
	ufValue      float64
}

func (c pricingConfig) GetQuoteTaxRate() float64  { return c.taxRate }
func (c pricingConfig) GetQuoteValidityDays() int { return c.validityDays }
func (c pricingConfig) GetQuoteUFValue() float64  { return c.ufValue }

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeRenderer struct{ calls int }

func (r *fakeRenderer) RenderQuotePDF(_ context.Context, q transport.QuoteResponse) ([]byte, error) {
	r.calls++
	return []byte("%PDF-1.4 " + q.QuoteNumber), nil
}

type fakeStore struct {
	objects map[string][]byte
}

func (s *fakeStore) PutQuotePDF(_ context.Context, quoteNumber string, data []byte) (string, error) {
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	key := "quotes/" + quoteNumber + ".pdf"
	s.objects[key] = data
	return key, nil
}

func (s *fakeStore) GetQuotePDF(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeEnqueuer struct{ queued []uuid.UUID }

func (e *fakeEnqueuer) EnqueueQuotePDFExport(_ context.Context, id uuid.UUID) error {
	e.queued = append(e.queued, id)
	return nil
}

func testCatalog() pricing.Catalog {
	return pricing.Catalog{
		Containers: pricing.TieredEntry{
			ID: "container", Label: "Contenedor", AdditionalLabel: "Contenedor adicional",
			FirstUnitPrice: 3.16, AdditionalUnitPrice: 0.76,
		},
		AuxiliaryModule: pricing.CatalogEntry{ID: "aux-module", Label: "Módulo auxiliar", UnitPrice: 0.5},
		AddOns: []pricing.CatalogEntry{
			{ID: "internet", Label: "Internet", UnitPrice: 1.2},
			{ID: "sms", Label: "SMS", UnitPrice: 0.3},
		},
		SupportPlans: []pricing.CatalogEntry{
			{ID: "basic", Label: "Básico", UnitPrice: 0},
			{ID: "premium", Label: "Premium", UnitPrice: 2},
		},
		DefaultSupportPlan: "basic",
	}
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	catalog *fakeCatalog
	bus     *recordingBus
}

func newFixture(cfg pricingConfig) fixture {
	repo := newFakeRepo()
	catalog := &fakeCatalog{catalog: testCatalog()}
	bus := &recordingBus{}
	svc := New(repo, catalog, cfg, logger.Discard())
	svc.SetEventBus(bus)
	svc.now = func() time.Time { return testNow }
	return fixture{svc: svc, repo: repo, catalog: catalog, bus: bus}
}

func defaultConfig() pricingConfig {
	return pricingConfig{taxRate: 0.19, validityDays: 30, ufValue: 39000}
}

func orderRequest() transport.CreateQuoteRequest {
	return transport.CreateQuoteRequest{
		ClientName:      "Agrícola Los Andes",
		ClientEmail:     "Compras@LosAndes.cl ",
		DiscountPercent: 10,
		Order: &transport.OrderRequest{
			ContainerCount:   2,
			AuxiliaryModules: 1,
			AddOns:           map[string]bool{"internet": true},
		},
	}
}

// ── create / read ─────────────────────────────────────────────────────────────

func TestCreateFromOrder(t *testing.T) {
	f := newFixture(defaultConfig())

	resp, err := f.svc.Create(context.Background(), operatorActor, orderRequest())
	require.NoError(t, err)

	assert.Equal(t, "COT-2026-0001", resp.QuoteNumber)
	assert.Equal(t, StatusDraft, resp.Status)
	assert.Equal(t, "compras@losandes.cl", resp.ClientEmail)
	assert.Equal(t, 39000.0, resp.UFValue)
	require.NotNil(t, resp.ValidUntil)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *resp.ValidUntil)

	ids := make([]string, len(resp.Lines))
	for i, l := range resp.Lines {
		assert.Equal(t, pricing.SourceCatalog, l.Source)
		ids[i] = l.CatalogEntryID
	}
	assert.Equal(t, []string{"container", "container-additional", "aux-module", "internet", "basic"}, ids)

	// 3.16 + 0.76 + 0.5 + 1.2 + 0 = 5.62; -10% = 5.058; +19% = 6.01902
	assert.InDelta(t, 5.62, resp.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 5.058, resp.Totals.NetAmount, 1e-9)
	assert.InDelta(t, 6.01902, resp.Totals.GrandTotal, 1e-9)

	require.Len(t, f.bus.published, 1)
	created, ok := f.bus.published[0].(events.QuoteCreated)
	require.True(t, ok)
	assert.Equal(t, operatorActor.UserID, created.CreatedBy)
	assert.InDelta(t, 6.01902, created.GrandTotal, 1e-9)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(defaultConfig())
	ctx := context.Background()

	both := orderRequest()
	both.Items = []transport.LineRequest{{Label: "Extra", Quantity: 1, UnitPrice: 1}}
	_, err := f.svc.Create(ctx, operatorActor, both)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	none := orderRequest()
	none.Order = nil
	_, err = f.svc.Create(ctx, operatorActor, none)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	noEmail := orderRequest()
	noEmail.ClientEmail = ""
	_, err = f.svc.Create(ctx, operatorActor, noEmail)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, viewerActor, orderRequest())
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Empty(t, f.repo.quotes)
}

func TestCreateCatalogLineTakesCatalogValues(t *testing.T) {
	f := newFixture(defaultConfig())
	req := orderRequest()
	req.Order = nil
	req.Items = []transport.LineRequest{
		{Source: "catalog", CatalogEntryID: "premium", Label: "Visita técnica", Quantity: 1, UnitPrice: 9},
		{Source: "catalog", CatalogEntryID: "sms", Quantity: 2},
	}

	resp, err := f.svc.Create(context.Background(), operatorActor, req)
	require.NoError(t, err)

	stored := f.repo.items[resp.ID]
	require.Len(t, stored, 2)
	require.NotNil(t, stored[0].CatalogEntryID)
	assert.Equal(t, "premium", *stored[0].CatalogEntryID)
	assert.Equal(t, "Premium", stored[0].Label)
	assert.Equal(t, 2.0, stored[0].UnitPrice)
	assert.Equal(t, "SMS", stored[1].Label)
	assert.InDelta(t, 2+0.6, resp.Totals.Subtotal, 1e-9)

	noLabel := orderRequest()
	noLabel.Order = nil
	noLabel.Items = []transport.LineRequest{{Source: "manual", Quantity: 1, UnitPrice: 1}}
	_, err = f.svc.Create(context.Background(), operatorActor, noLabel)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateFillsClientFromDirectory(t *testing.T) {
	f := newFixture(defaultConfig())
	clientID := uuid.New()
	f.svc.SetClientReader(fakeClients{clientID: {Name: "Viña Santa Rita", Email: "ops@santarita.cl"}})

	req := orderRequest()
	req.ClientID = clientID.String()
	req.ClientName = ""
	req.ClientEmail = ""

	resp, err := f.svc.Create(context.Background(), adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, "Viña Santa Rita", resp.ClientName)
	assert.Equal(t, "ops@santarita.cl", resp.ClientEmail)
	require.NotNil(t, resp.ClientID)
	assert.Equal(t, clientID, *resp.ClientID)
}

func TestCreateCatalogUnavailableForOrder(t *testing.T) {
	f := newFixture(defaultConfig())
	f.catalog.err = errors.New("connection refused")

	_, err := f.svc.Create(context.Background(), operatorActor, orderRequest())
	require.Error(t, err)
	assert.Empty(t, f.repo.quotes)
}

func TestGetByIDRecomputesWithConfiguredTax(t *testing.T) {
	f := newFixture(defaultConfig())
	created, err := f.svc.Create(context.Background(), operatorActor, orderRequest())
	require.NoError(t, err)

	noTax := New(f.repo, f.catalog, pricingConfig{taxRate: 0}, logger.Discard())
	noTax.now = func() time.Time { return testNow }

	resp, err := noTax.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.Totals.TaxRate)
	assert.InDelta(t, 5.058, resp.Totals.GrandTotal, 1e-9)
	assert.InDelta(t, created.Totals.Subtotal, resp.Totals.Subtotal, 1e-9)
}

func storeQuote(f fixture, q repository.Quote, items ...repository.QuoteItem) uuid.UUID {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Status == "" {
		q.Status = StatusDraft
	}
	if q.QuoteNumber == "" {
		q.QuoteNumber = fmt.Sprintf("COT-2026-%04d", len(f.repo.quotes)+100)
	}
	for i := range items {
		items[i].QuoteID = q.ID
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	f.repo.quotes[q.ID] = q
	f.repo.items[q.ID] = items
	return q.ID
}

func TestGetByIDReconcilesStoredLines(t *testing.T) {
	f := newFixture(defaultConfig())
	gone := "discontinued"
	id := storeQuote(f, repository.Quote{ClientName: "A", ClientEmail: "a@b.cl"},
		repository.QuoteItem{Position: 0, Source: "", Label: "  internet ", Quantity: 1, UnitPrice: 1.2},
		repository.QuoteItem{Position: 1, Source: "catalog", CatalogEntryID: &gone, Label: "Old thing", Quantity: 2, UnitPrice: 4},
		repository.QuoteItem{Position: 2, Source: "manual", Label: "SMS", Quantity: 1, UnitPrice: 0.3},
	)

	resp, err := f.svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, resp.Lines, 3)

	assert.Equal(t, pricing.SourceCatalog, resp.Lines[0].Source)
	assert.Equal(t, "internet", resp.Lines[0].CatalogEntryID)
	assert.Equal(t, "  internet ", resp.Lines[0].Label)

	assert.Equal(t, pricing.SourceManual, resp.Lines[1].Source)
	assert.Empty(t, resp.Lines[1].CatalogEntryID)
	assert.Equal(t, 4.0, resp.Lines[1].UnitPrice)

	assert.Equal(t, pricing.SourceManual, resp.Lines[2].Source)

	assert.InDelta(t, 1.2+8+0.3, resp.Totals.Subtotal, 1e-9)
}

func TestGetByIDWithCatalogUnavailable(t *testing.T) {
	f := newFixture(defaultConfig())
	entry := "internet"
	id := storeQuote(f, repository.Quote{ClientName: "A", ClientEmail: "a@b.cl"},
		repository.QuoteItem{Source: "catalog", CatalogEntryID: &entry, Label: "Internet", Quantity: 1, UnitPrice: 1.2},
	)
	f.catalog.err = errors.New("redis down")

	resp, err := f.svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, pricing.SourceManual, resp.Lines[0].Source)
	assert.InDelta(t, 1.2*1.19, resp.Totals.GrandTotal, 1e-9)
}

func TestGetByIDReportsTimeBasedExpiry(t *testing.T) {
	f := newFixture(defaultConfig())
	past := testNow.Add(-time.Hour)
	id := storeQuote(f, repository.Quote{ClientName: "A", ClientEmail: "a@b.cl", Status: StatusSent, ValidUntil: &past})

	resp, err := f.svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, resp.Status)
}

func TestListSummariesCarryGrandTotal(t *testing.T) {
	f := newFixture(defaultConfig())
	storeQuote(f, repository.Quote{QuoteNumber: "COT-2026-0001", ClientName: "A", ClientEmail: "a@b.cl", DiscountPercent: 50},
		repository.QuoteItem{Source: "manual", Label: "Servicio", Quantity: 2, UnitPrice: 1},
	)

	resp, err := f.svc.List(context.Background(), transport.ListQuotesRequest{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.InDelta(t, 1.19, resp.Items[0].GrandTotal, 1e-9)
	assert.Equal(t, maxPageSize, resp.PageSize)

	_, err = f.svc.List(context.Background(), transport.ListQuotesRequest{ClientID: "nope"})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

// ── update / delete ───────────────────────────────────────────────────────────

func TestUpdateOnlyDraft(t *testing.T) {
	f := newFixture(defaultConfig())
	ctx := context.Background()
	created, err := f.svc.Create(ctx, operatorActor, orderRequest())
	require.NoError(t, err)

	edit := transport.UpdateQuoteRequest{
		ClientName:  "Agrícola Los Andes",
		ClientEmail: "compras@losandes.cl",
		Items: []transport.LineRequest{
			{Source: "manual", Label: "Instalación en terreno", Quantity: 1, UnitPrice: 2.5},
		},
	}
	updated, err := f.svc.Update(ctx, operatorActor, created.ID, edit)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.InDelta(t, 2.5, updated.Totals.Subtotal, 1e-9)
	assert.Equal(t, created.QuoteNumber, updated.QuoteNumber)

	_, err = f.svc.UpdateStatus(ctx, operatorActor, created.ID, StatusSent)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, operatorActor, created.ID, edit)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Update(ctx, viewerActor, created.ID, edit)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestDeleteRules(t *testing.T) {
	f := newFixture(defaultConfig())
	ctx := context.Background()
	draft := storeQuote(f, repository.Quote{ClientName: "A", ClientEmail: "a@b.cl"})
	sent := storeQuote(f, repository.Quote{ClientName: "A", ClientEmail: "a@b.cl", Status: StatusSent})
	voided := storeQuote(f, repository.Quote{ClientName: "A", ClientEmail: "a@b.cl", Status: StatusVoided})

	err := f.svc.Delete(ctx, operatorActor, draft)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	err = f.svc.Delete(ctx, adminActor, sent)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	require.NoError(t, f.svc.Delete(ctx, adminActor, draft))
	require.NoError(t, f.svc.Delete(ctx, adminActor, voided))
	assert.ElementsMatch(t, []uuid.UUID{draft, voided}, f.repo.deleted)

	err = f.svc.Delete(ctx, adminActor, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// ── lifecycle ─────────────────────────────────────────────────────────────────

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(defaultConfig())
	ctx := context.Background()
	key := "quotes/old.pdf"
	id := storeQuote(f, repository.Quote{ClientName: "Cliente", ClientEmail: "c@d.cl", PDFFileKey: &key})

	_, err := f.svc.UpdateStatus(ctx, operatorActor, id, StatusAccepted)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	resp, err := f.svc.UpdateStatus(ctx, operatorActor, id, StatusSent)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, resp.Status)
	assert.False(t, resp.HasPDF)
	require.NotNil(t, resp.SentAt)

	require.Len(t, f.bus.published, 1)
	changed := f.bus.published[0].(events.QuoteStatusChanged)
	assert.Equal(t, StatusDraft, changed.OldStatus)
	assert.Equal(t, StatusSent, changed.NewStatus)
	assert.Equal(t, "c@d.cl", changed.ClientEmail)
	require.NotNil(t, changed.ActorID)
	assert.Equal(t, operatorActor.UserID, *changed.ActorID)

	// same status is a no-op
	resp, err = f.svc.UpdateStatus(ctx, operatorActor, id, StatusSent)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, resp.Status)
	assert.Len(t, f.bus.published, 1)

	_, err = f.svc.UpdateStatus(ctx, operatorActor, id, StatusAccepted)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, operatorActor, id, StatusVoided)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.UpdateStatus(ctx, viewerActor, id, StatusVoided)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestUpdateStatusOnExpiredQuote(t *testing.T) {
	f := newFixture(defaultConfig())
	past := testNow.AddDate(0, 0, -1)
	id := storeQuote(f, repository.Quote{ClientName: "A", ClientEmail: "a@b.cl", ValidUntil: &past})

	_, err := f.svc.UpdateStatus(context.Background(), operatorActor, id, StatusSent)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	resp, err := f.svc.UpdateStatus(context.Background(), operatorActor, id, StatusExpired)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, resp.Status)
	assert.Empty(t, f.bus.published)
}

func TestExpireOverdue(t *testing.T) {
	f := newFixture(defaultConfig())
	past := testNow.AddDate(0, 0, -2)
	future := testNow.AddDate(0, 0, 2)
	storeQuote(f, repository.Quote{QuoteNumber: "COT-2026-0001", ClientName: "A", ClientEmail: "a@b.cl", ValidUntil: &past})
	storeQuote(f, repository.Quote{QuoteNumber: "COT-2026-0002", ClientName: "B", ClientEmail: "b@b.cl", Status: StatusSent, ValidUntil: &past})
	storeQuote(f, repository.Quote{QuoteNumber: "COT-2026-0003", ClientName: "C", ClientEmail: "c@b.cl", ValidUntil: &future})
	storeQuote(f, repository.Quote{QuoteNumber: "COT-2026-0004", ClientName: "D", ClientEmail: "d@b.cl", Status: StatusAccepted, ValidUntil: &past})

	n, err := f.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, f.bus.published, 2)
	for _, e := range f.bus.published {
		changed := e.(events.QuoteStatusChanged)
		assert.Equal(t, StatusExpired, changed.NewStatus)
		assert.Nil(t, changed.ActorID)
	}

	n, err = f.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ── preview ───────────────────────────────────────────────────────────────────

func decodeCalculate(t *testing.T, body string) transport.CalculateRequest {
	t.Helper()
	var req transport.CalculateRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestPreviewCoercesEditorInput(t *testing.T) {
	f := newFixture(defaultConfig())
	req := decodeCalculate(t, `{
		"items": [
			{"label": "Internet", "quantity": "1", "unitPrice": "1,2"},
			{"source": "manual", "label": "Instalación", "quantity": "2.9", "unitPrice": "abc"},
			{"source": "manual", "label": "Viaje", "quantity": -3, "unitPrice": 5}
		],
		"discountPercent": "150"
	}`)

	resp := f.svc.Preview(context.Background(), req)
	require.Len(t, resp.Lines, 3)
	assert.Equal(t, pricing.SourceCatalog, resp.Lines[0].Source)
	assert.Equal(t, "internet", resp.Lines[0].CatalogEntryID)
	assert.Equal(t, 2, resp.Items[1].Quantity)
	assert.Equal(t, 0.0, resp.Items[1].UnitPrice)
	assert.Equal(t, 0, resp.Items[2].Quantity)
	assert.Equal(t, 100.0, resp.Totals.DiscountPercent)
	assert.Equal(t, 0.0, resp.Totals.GrandTotal)
	assert.False(t, resp.CatalogUnavailable)
}

func TestPreviewOrder(t *testing.T) {
	f := newFixture(defaultConfig())
	req := decodeCalculate(t, `{"order": {"containerCount": "3", "auxiliaryModules": "x", "supportPlan": "premium"}}`)

	resp := f.svc.Preview(context.Background(), req)
	// 3.16 + 2×0.76 + 2
	assert.InDelta(t, 6.68, resp.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 6.68*1.19, resp.Totals.GrandTotal, 1e-9)
	assert.Equal(t, 0.19, resp.Totals.TaxRate)
}

func TestPreviewOrderCatalogUnavailable(t *testing.T) {
	f := newFixture(defaultConfig())
	f.catalog.err = errors.New("db down")

	resp := f.svc.Preview(context.Background(), decodeCalculate(t, `{"order": {"containerCount": 2}}`))
	assert.True(t, resp.CatalogUnavailable)
	assert.Empty(t, resp.Items)
	assert.Equal(t, pricing.QuoteTotals{}, resp.Totals)
}

func TestPreviewCatalogLineTakesCatalogValues(t *testing.T) {
	f := newFixture(defaultConfig())
	req := decodeCalculate(t, `{"items": [
		{"source": "catalog", "catalogEntryId": "premium", "label": "Visita técnica", "quantity": "1", "unitPrice": 9},
		{"source": "manual", "catalogEntryId": "premium", "label": "Visita técnica", "quantity": 1, "unitPrice": 9}
	]}`)

	resp := f.svc.Preview(context.Background(), req)
	require.Len(t, resp.Lines, 2)

	assert.Equal(t, pricing.SourceCatalog, resp.Lines[0].Source)
	assert.Equal(t, "Premium", resp.Lines[0].Label)
	assert.Equal(t, 2.0, resp.Items[0].UnitPrice)

	assert.Equal(t, pricing.SourceManual, resp.Lines[1].Source)
	assert.Empty(t, resp.Lines[1].CatalogEntryID)
	assert.Equal(t, 9.0, resp.Items[1].UnitPrice)

	assert.InDelta(t, 11, resp.Totals.Subtotal, 1e-9)
}

// ── documents ─────────────────────────────────────────────────────────────────

func TestRequestExport(t *testing.T) {
	f := newFixture(defaultConfig())
	ctx := context.Background()
	id := storeQuote(f, repository.Quote{QuoteNumber: "COT-2026-0007", ClientName: "A", ClientEmail: "a@b.cl"})

	_, _, err := f.svc.RequestExport(ctx, operatorActor, id)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))

	renderer := &fakeRenderer{}
	store := &fakeStore{}
	f.svc.SetPDFRenderer(renderer)
	f.svc.SetPDFStore(store)

	queued, key, err := f.svc.RequestExport(ctx, operatorActor, id)
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, "quotes/COT-2026-0007.pdf", key)
	require.NotNil(t, f.repo.quotes[id].PDFFileKey)
	assert.Equal(t, key, *f.repo.quotes[id].PDFFileKey)

	enqueuer := &fakeEnqueuer{}
	f.svc.SetExportEnqueuer(enqueuer)
	queued, _, err = f.svc.RequestExport(ctx, operatorActor, id)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, []uuid.UUID{id}, enqueuer.queued)

	_, _, err = f.svc.RequestExport(ctx, viewerActor, id)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestOpenPDF(t *testing.T) {
	f := newFixture(defaultConfig())
	ctx := context.Background()
	renderer := &fakeRenderer{}
	f.svc.SetPDFRenderer(renderer)
	id := storeQuote(f, repository.Quote{QuoteNumber: "COT-2026-0009", ClientName: "A", ClientEmail: "a@b.cl"})

	file, err := f.svc.OpenPDF(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Cotizacion-COT-2026-0009.pdf", file.FileName)
	data, _ := io.ReadAll(file.Reader)
	assert.Equal(t, "%PDF-1.4 COT-2026-0009", string(data))
	assert.Equal(t, 1, renderer.calls)

	store := &fakeStore{}
	f.svc.SetPDFStore(store)
	_, err = f.svc.ExportPDF(ctx, id)
	require.NoError(t, err)

	file, err = f.svc.OpenPDF(ctx, id)
	require.NoError(t, err)
	_, _ = io.ReadAll(file.Reader)
	assert.Equal(t, 2, renderer.calls, "stored pdf is served without rendering again")
}
