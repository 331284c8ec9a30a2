package service

import (
	"context"
	"fmt"
	"strings"

	"scada_quote_backend/internal/catalog/repository"
	"scada_quote_backend/internal/catalog/transport"
	"scada_quote_backend/internal/events"
	"scada_quote_backend/internal/pricing"
	"scada_quote_backend/platform/apperr"
	"scada_quote_backend/platform/logger"
	"scada_quote_backend/platform/sanitize"
)

const maxLabelLength = 120

// Service provides business logic for catalog.
type Service struct {
	repo  repository.Repository
	cache Cache
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new catalog service. A nil cache disables caching.
func New(repo repository.Repository, cache Cache, log *logger.Logger) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{repo: repo, cache: cache, log: log}
}

// SetEventBus injects the bus used to announce catalog changes.
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// Catalog returns the pricing catalog, reading through the cache.
// Cache failures are logged and fall back to the database.
func (s *Service) Catalog(ctx context.Context) (pricing.Catalog, error) {
	if cached, ok, err := s.cache.Get(ctx); err != nil {
		s.log.WithContext(ctx).Warn("catalog cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	entries, err := s.repo.ListActive(ctx)
	if err != nil {
		return pricing.Catalog{}, err
	}

	catalog, err := Assemble(entries)
	if err != nil {
		return pricing.Catalog{}, err
	}

	if err := s.cache.Set(ctx, catalog); err != nil {
		s.log.WithContext(ctx).Warn("catalog cache write failed", "error", err)
	}
	return catalog, nil
}

// ListEntries returns every stored entry, including inactive ones.
func (s *Service) ListEntries(ctx context.Context) ([]transport.EntryResponse, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out, nil
}

// UpdateEntry edits an entry and invalidates the cached catalog.
func (s *Service) UpdateEntry(ctx context.Context, id string, req transport.UpdateEntryRequest) (transport.EntryResponse, error) {
	params := repository.UpdateEntryParams{
		ID:                  id,
		UnitPrice:           req.UnitPrice,
		AdditionalUnitPrice: req.AdditionalUnitPrice,
		IsDefault:           req.IsDefault,
		Active:              req.Active,
	}
	if req.Label != nil {
		label := sanitize.Label(*req.Label, maxLabelLength)
		if label == "" {
			return transport.EntryResponse{}, apperr.Validation("label must not be empty")
		}
		params.Label = &label
	}
	if req.AdditionalLabel != nil {
		label := sanitize.Label(*req.AdditionalLabel, maxLabelLength)
		params.AdditionalLabel = &label
	}
	if req.Note != nil {
		note := sanitize.Text(*req.Note)
		params.Note = &note
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.EntryResponse{}, err
	}
	if req.IsDefault != nil && *req.IsDefault && current.Category != repository.CategorySupportPlan {
		return transport.EntryResponse{}, apperr.Validation("only support plans can be the default")
	}

	updated, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.EntryResponse{}, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithContext(ctx).Warn("catalog cache invalidation failed", "error", err)
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.CatalogChanged{BaseEvent: events.NewBaseEvent(), EntryID: updated.ID})
	}

	s.log.WithContext(ctx).Info("catalog entry updated", "id", updated.ID, "unit_price", updated.UnitPrice)
	return toEntryResponse(updated), nil
}

// Assemble groups stored entries into the engine's catalog. The catalog must
// have one container entry, one auxiliary module entry and at least one
// support plan, of which at most one is the default.
func Assemble(entries []repository.Entry) (pricing.Catalog, error) {
	var catalog pricing.Catalog
	var containers, aux, defaults int

	for _, e := range entries {
		if !e.Active {
			continue
		}
		switch e.Category {
		case repository.CategoryContainer:
			containers++
			catalog.Containers = pricing.TieredEntry{
				ID:                  e.ID,
				Label:               e.Label,
				AdditionalLabel:     e.AdditionalLabel,
				FirstUnitPrice:      e.UnitPrice,
				AdditionalUnitPrice: e.AdditionalUnitPrice,
				Note:                e.Note,
			}
		case repository.CategoryAuxiliaryModule:
			aux++
			catalog.AuxiliaryModule = toPricingEntry(e)
		case repository.CategoryAddOn:
			catalog.AddOns = append(catalog.AddOns, toPricingEntry(e))
		case repository.CategorySupportPlan:
			catalog.SupportPlans = append(catalog.SupportPlans, toPricingEntry(e))
			if e.IsDefault {
				defaults++
				catalog.DefaultSupportPlan = e.ID
			}
		default:
			return pricing.Catalog{}, apperr.Internal(fmt.Sprintf("unknown catalog category %q", e.Category))
		}
	}

	var problems []string
	if containers != 1 {
		problems = append(problems, fmt.Sprintf("expected 1 container entry, found %d", containers))
	}
	if aux != 1 {
		problems = append(problems, fmt.Sprintf("expected 1 auxiliary module entry, found %d", aux))
	}
	if len(catalog.SupportPlans) == 0 {
		problems = append(problems, "expected at least 1 support plan")
	}
	if defaults > 1 {
		problems = append(problems, fmt.Sprintf("expected at most 1 default support plan, found %d", defaults))
	}
	if len(problems) > 0 {
		return pricing.Catalog{}, apperr.Internal("catalog is misconfigured").WithDetails(strings.Join(problems, "; "))
	}

	if catalog.DefaultSupportPlan == "" {
		catalog.DefaultSupportPlan = catalog.SupportPlans[0].ID
	}
	return catalog, nil
}

func toPricingEntry(e repository.Entry) pricing.CatalogEntry {
	return pricing.CatalogEntry{ID: e.ID, Label: e.Label, UnitPrice: e.UnitPrice, Note: e.Note}
}

func toEntryResponse(e repository.Entry) transport.EntryResponse {
	return transport.EntryResponse{
		ID:                  e.ID,
		Category:            e.Category,
		Label:               e.Label,
		AdditionalLabel:     e.AdditionalLabel,
		UnitPrice:           e.UnitPrice,
		AdditionalUnitPrice: e.AdditionalUnitPrice,
		Note:                e.Note,
		IsDefault:           e.IsDefault,
		SortOrder:           e.SortOrder,
		Active:              e.Active,
		UpdatedAt:           e.UpdatedAt,
	}
}
