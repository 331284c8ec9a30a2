package service

import (
	"context"
	"os"
	"strings"
	"testing"

	"scada_quote_backend/internal/catalog/repository"
	"scada_quote_backend/internal/catalog/transport"
	"scada_quote_backend/internal/events"
	"scada_quote_backend/internal/pricing"
	"scada_quote_backend/platform/apperr"
	"scada_quote_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeRepo struct {
	entries   map[string]repository.Entry
	order     []string
	listCalls int
	inserted  []repository.Entry
}

func newFakeRepo(entries ...repository.Entry) *fakeRepo {
	r := &fakeRepo{entries: make(map[string]repository.Entry)}
	for _, e := range entries {
		r.entries[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r
}

func (r *fakeRepo) ListActive(context.Context) ([]repository.Entry, error) {
	r.listCalls++
	out := make([]repository.Entry, 0, len(r.order))
	for _, id := range r.order {
		if e := r.entries[id]; e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAll(context.Context) ([]repository.Entry, error) {
	out := make([]repository.Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (repository.Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return repository.Entry{}, apperr.NotFound("catalog entry not found")
	}
	return e, nil
}

func (r *fakeRepo) Update(_ context.Context, p repository.UpdateEntryParams) (repository.Entry, error) {
	e, ok := r.entries[p.ID]
	if !ok {
		return repository.Entry{}, apperr.NotFound("catalog entry not found")
	}
	if p.Label != nil {
		e.Label = *p.Label
	}
	if p.UnitPrice != nil {
		e.UnitPrice = *p.UnitPrice
	}
	if p.AdditionalUnitPrice != nil {
		e.AdditionalUnitPrice = *p.AdditionalUnitPrice
	}
	if p.Active != nil {
		e.Active = *p.Active
	}
	if p.IsDefault != nil {
		e.IsDefault = *p.IsDefault
	}
	r.entries[p.ID] = e
	return e, nil
}

func (r *fakeRepo) Count(context.Context) (int, error) { return len(r.entries), nil }

func (r *fakeRepo) InsertMany(_ context.Context, entries []repository.Entry) error {
	r.inserted = append(r.inserted, entries...)
	for _, e := range entries {
		r.entries[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func seedEntries() []repository.Entry {
	return []repository.Entry{
		{ID: "container", Category: repository.CategoryContainer, Label: "Contenedor", AdditionalLabel: "Contenedor adicional", UnitPrice: 3.16, AdditionalUnitPrice: 0.76, Active: true},
		{ID: "aux-module", Category: repository.CategoryAuxiliaryModule, Label: "Módulo auxiliar", UnitPrice: 0.5, Active: true},
		{ID: "internet", Category: repository.CategoryAddOn, Label: "Internet", UnitPrice: 1.2, Active: true},
		{ID: "sms", Category: repository.CategoryAddOn, Label: "SMS", UnitPrice: 0.3, Active: true},
		{ID: "basic", Category: repository.CategorySupportPlan, Label: "Básico", UnitPrice: 0, IsDefault: true, Active: true},
		{ID: "premium", Category: repository.CategorySupportPlan, Label: "Premium", UnitPrice: 2, Active: true},
	}
}

func TestAssemble(t *testing.T) {
	catalog, err := Assemble(seedEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalog.Containers.FirstUnitPrice != 3.16 || catalog.Containers.AdditionalUnitPrice != 0.76 {
		t.Fatalf("unexpected container tiers: %+v", catalog.Containers)
	}
	if catalog.AuxiliaryModule.ID != "aux-module" {
		t.Fatalf("expected aux-module, got %q", catalog.AuxiliaryModule.ID)
	}
	if len(catalog.AddOns) != 2 || catalog.AddOns[0].ID != "internet" || catalog.AddOns[1].ID != "sms" {
		t.Fatalf("unexpected add-ons: %+v", catalog.AddOns)
	}
	if catalog.DefaultSupportPlan != "basic" {
		t.Fatalf("expected default plan basic, got %q", catalog.DefaultSupportPlan)
	}
}

func TestAssemble_SkipsInactiveEntries(t *testing.T) {
	entries := seedEntries()
	entries[3].Active = false

	catalog, err := Assemble(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.AddOns) != 1 {
		t.Fatalf("expected inactive add-on to be skipped, got %d add-ons", len(catalog.AddOns))
	}
}

func TestAssemble_WithoutDefaultUsesFirstPlan(t *testing.T) {
	entries := seedEntries()
	entries[4].IsDefault = false

	catalog, err := Assemble(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalog.DefaultSupportPlan != "basic" {
		t.Fatalf("expected first plan as default, got %q", catalog.DefaultSupportPlan)
	}
}

func TestAssemble_RejectsMisconfiguredCatalog(t *testing.T) {
	cases := map[string]func([]repository.Entry) []repository.Entry{
		"no container": func(e []repository.Entry) []repository.Entry { return e[1:] },
		"two aux modules": func(e []repository.Entry) []repository.Entry {
			extra := e[1]
			extra.ID = "aux-2"
			return append(e, extra)
		},
		"no support plan": func(e []repository.Entry) []repository.Entry { return e[:4] },
		"two defaults": func(e []repository.Entry) []repository.Entry {
			e[5].IsDefault = true
			return e
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Assemble(mutate(seedEntries()))
			if !apperr.Is(err, apperr.KindInternal) {
				t.Fatalf("expected internal error, got %v", err)
			}
		})
	}
}

func TestCatalog_ReadsThroughRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newFakeRepo(seedEntries()...)
	svc := New(repo, NewRedisCache(client, 0), logger.Discard())
	ctx := context.Background()

	first, err := svc.Catalog(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Catalog(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.listCalls != 1 {
		t.Fatalf("expected one repository read, got %d", repo.listCalls)
	}
	if second.Containers != first.Containers || second.DefaultSupportPlan != first.DefaultSupportPlan {
		t.Fatalf("cached catalog differs: %+v vs %+v", second, first)
	}
	if !mr.Exists(catalogCacheKey) {
		t.Fatalf("expected cache key %q to be set", catalogCacheKey)
	}
}

func TestCatalog_FallsBackWhenCacheIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	repo := newFakeRepo(seedEntries()...)
	svc := New(repo, NewRedisCache(client, 0), logger.Discard())

	catalog, err := svc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("expected database fallback, got %v", err)
	}
	if catalog.AuxiliaryModule.UnitPrice != 0.5 {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}
}

func TestUpdateEntry_InvalidatesCacheAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newFakeRepo(seedEntries()...)
	bus := &recordingBus{}
	svc := New(repo, NewRedisCache(client, 0), logger.Discard())
	svc.SetEventBus(bus)
	ctx := context.Background()

	if _, err := svc.Catalog(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	price := 0.9
	if _, err := svc.UpdateEntry(ctx, "aux-module", transport.UpdateEntryRequest{UnitPrice: &price}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(catalogCacheKey) {
		t.Fatalf("expected cache to be invalidated")
	}

	catalog, err := svc.Catalog(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalog.AuxiliaryModule.UnitPrice != 0.9 {
		t.Fatalf("expected updated price, got %v", catalog.AuxiliaryModule.UnitPrice)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	changed, ok := bus.published[0].(events.CatalogChanged)
	if !ok || changed.EntryID != "aux-module" {
		t.Fatalf("unexpected event: %#v", bus.published[0])
	}
}

func TestUpdateEntry_DefaultOnlyForSupportPlans(t *testing.T) {
	svc := New(newFakeRepo(seedEntries()...), nil, logger.Discard())
	yes := true

	_, err := svc.UpdateEntry(context.Background(), "internet", transport.UpdateEntryRequest{IsDefault: &yes})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateEntry_UnknownEntry(t *testing.T) {
	svc := New(newFakeRepo(seedEntries()...), nil, logger.Discard())
	price := 1.0

	_, err := svc.UpdateEntry(context.Background(), "missing", transport.UpdateEntryRequest{UnitPrice: &price})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseSeed_ShippedCatalog(t *testing.T) {
	f, err := os.Open("../../../config/catalog.yaml")
	if err != nil {
		t.Fatalf("open seed: %v", err)
	}
	defer f.Close()

	entries, err := ParseSeed(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	catalog, err := Assemble(entries)
	if err != nil {
		t.Fatalf("seed does not assemble: %v", err)
	}
	if catalog.Containers.FirstUnitPrice != 3.16 || catalog.Containers.AdditionalUnitPrice != 0.76 {
		t.Fatalf("unexpected container prices: %+v", catalog.Containers)
	}

	items := pricing.BuildLineItems(pricing.OrderInput{ContainerCount: 2}, catalog)
	if len(items) != 3 {
		t.Fatalf("expected container tiers plus support line, got %d items", len(items))
	}
}

func TestParseSeed_RejectsUnknownFields(t *testing.T) {
	doc := "entries:\n  - id: x\n    category: container\n    label: X\n    price: 1\n"
	if _, err := ParseSeed(strings.NewReader(doc)); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestParseSeed_RejectsNegativePrices(t *testing.T) {
	doc := "entries:\n  - id: x\n    category: container\n    label: X\n    unitPrice: -1\n"
	if _, err := ParseSeed(strings.NewReader(doc)); err == nil {
		t.Fatalf("expected error for negative price")
	}
}

func TestSeed_OnlyIntoEmptyTable(t *testing.T) {
	ctx := context.Background()

	empty := newFakeRepo()
	svc := New(empty, nil, logger.Discard())
	n, err := svc.Seed(ctx, "../../../config/catalog.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == 0 || len(empty.inserted) != n {
		t.Fatalf("expected %d inserted entries, got %d", n, len(empty.inserted))
	}

	populated := newFakeRepo(seedEntries()...)
	svc = New(populated, nil, logger.Discard())
	n, err = svc.Seed(ctx, "../../../config/catalog.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || len(populated.inserted) != 0 {
		t.Fatalf("expected populated table to be left alone")
	}
}
