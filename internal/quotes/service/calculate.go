package service

import (
	"context"
	"fmt"
	"strings"

	"scada_quote_backend/internal/pricing"
	"scada_quote_backend/internal/quotes/transport"
)

// Preview prices an order or a list of editor lines without storing anything.
// Input is coerced, never rejected. When the catalog cannot be loaded an
// order yields the empty state, while editor lines are priced as typed.
func (s *Service) Preview(ctx context.Context, req transport.CalculateRequest) transport.CalculateResponse {
	discount := pricing.ClampDiscount(float64(req.DiscountPercent))
	taxRate := s.TaxRate()

	catalog, err := s.catalog.Catalog(ctx)
	unavailable := err != nil
	if unavailable {
		s.log.WithContext(ctx).Warn("catalog unavailable for preview", "error", err)
		catalog = pricing.Catalog{}
	}

	var lines []pricing.EditableLine
	if req.Order != nil {
		if unavailable {
			items, totals := pricing.Empty()
			return transport.CalculateResponse{
				Lines:              []pricing.EditableLine{},
				Items:              items,
				Totals:             totals,
				CatalogUnavailable: true,
			}
		}
		order := pricing.OrderInput{
			ContainerCount:   req.Order.ContainerCount.Count(),
			AuxiliaryModules: req.Order.AuxiliaryModules.Count(),
			AddOns:           req.Order.AddOns,
			SupportPlan:      strings.TrimSpace(req.Order.SupportPlan),
		}
		lines = pricing.EditableLines(pricing.BuildLineItems(order, catalog), catalog)
	} else {
		lines = make([]pricing.EditableLine, 0, len(req.Items))
		for i, it := range req.Items {
			id := it.ID
			if id == "" {
				id = fmt.Sprintf("line-%d", i+1)
			}
			line := pricing.EditableLine{
				ID:        id,
				Source:    pricing.LineSource(it.Source),
				Label:     strings.TrimSpace(it.Label),
				Quantity:  it.Quantity.Count(),
				UnitPrice: nonNegative(float64(it.UnitPrice)),
				Note:      it.Note,
			}
			if line.Source != pricing.SourceManual {
				line.CatalogEntryID = strings.TrimSpace(it.CatalogEntryID)
			}
			lines = append(lines, line)
		}
		lines = pricing.ResolveEdits(lines, catalog)
	}

	items := pricing.LineItemsOf(lines)
	return transport.CalculateResponse{
		Lines:              lines,
		Items:              items,
		Totals:             pricing.ComputeTotals(items, discount, taxRate),
		CatalogUnavailable: unavailable,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}
