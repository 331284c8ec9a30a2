package pricing

import (
	"math"
	"strings"
)

// LineSource tells whether a quote line was typed in or picked from the catalog.
type LineSource string

const (
	SourceManual  LineSource = "manual"
	SourceCatalog LineSource = "catalog"
)

// AdditionalUnitSuffix marks the catalog entry id of the container additional-unit tier.
const AdditionalUnitSuffix = "-additional"

// priceTolerance is the widest price gap still treated as the same catalog entry.
const priceTolerance = 0.005

// EditableLine is a line of the quote-management editor.
type EditableLine struct {
	ID             string     `json:"id"`
	Source         LineSource `json:"source"`
	CatalogEntryID string     `json:"catalogEntryId,omitempty"`
	Label          string     `json:"label"`
	Quantity       int        `json:"quantity"`
	UnitPrice      float64    `json:"unitPrice"`
	Note           string     `json:"note,omitempty"`
}

// LineItem prices the line with the same rule as catalog-derived items.
func (l EditableLine) LineItem() LineItem {
	return NewLineItem(l.ID, l.Label, l.Quantity, l.UnitPrice, l.Note)
}

// UseCatalogEntry replaces label, price and note with the entry's values.
// Quantity is kept.
func (l EditableLine) UseCatalogEntry(entry CatalogEntry) EditableLine {
	l.Source = SourceCatalog
	l.CatalogEntryID = entry.ID
	l.Label = entry.Label
	l.UnitPrice = entry.UnitPrice
	l.Note = entry.Note
	return l
}

// UseManual turns the line into a blank manual line. Quantity is kept.
func (l EditableLine) UseManual() EditableLine {
	l.Source = SourceManual
	l.CatalogEntryID = ""
	l.Label = ""
	l.UnitPrice = 0
	l.Note = ""
	return l
}

// Entries flattens the catalog into selectable entries, in category order.
// The container tiers appear as two entries.
func (c Catalog) Entries() []CatalogEntry {
	entries := make([]CatalogEntry, 0, 3+len(c.AddOns)+len(c.SupportPlans))
	if c.Containers.ID != "" {
		additionalLabel := c.Containers.AdditionalLabel
		if additionalLabel == "" {
			additionalLabel = c.Containers.Label
		}
		entries = append(entries,
			CatalogEntry{ID: c.Containers.ID, Label: c.Containers.Label, UnitPrice: c.Containers.FirstUnitPrice, Note: c.Containers.Note},
			CatalogEntry{ID: c.Containers.ID + AdditionalUnitSuffix, Label: additionalLabel, UnitPrice: c.Containers.AdditionalUnitPrice, Note: c.Containers.Note},
		)
	}
	if c.AuxiliaryModule.ID != "" {
		entries = append(entries, c.AuxiliaryModule)
	}
	entries = append(entries, c.AddOns...)
	entries = append(entries, c.SupportPlans...)
	return entries
}

// Entry looks up a selectable entry by id.
func (c Catalog) Entry(id string) (CatalogEntry, bool) {
	if id == "" {
		return CatalogEntry{}, false
	}
	for _, entry := range c.Entries() {
		if entry.ID == id {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}

// CatalogEntryIDForLine maps a line id produced by BuildLineItems back to the
// catalog entry it was priced from.
func (c Catalog) CatalogEntryIDForLine(lineID string) (string, bool) {
	switch {
	case lineID == LineContainersPrimary:
		return c.Containers.ID, c.Containers.ID != ""
	case lineID == LineContainersExtra:
		return c.Containers.ID + AdditionalUnitSuffix, c.Containers.ID != ""
	case lineID == LineAuxiliaryModules:
		return c.AuxiliaryModule.ID, c.AuxiliaryModule.ID != ""
	case strings.HasPrefix(lineID, addOnLinePrefix):
		id := strings.TrimPrefix(lineID, addOnLinePrefix)
		_, ok := c.Entry(id)
		return id, ok
	case strings.HasPrefix(lineID, supportLinePrefix):
		id := strings.TrimPrefix(lineID, supportLinePrefix)
		_, ok := c.findSupportPlan(id)
		return id, ok
	}
	return "", false
}

// EditableLines converts built line items into catalog-backed editor lines.
func EditableLines(items []LineItem, catalog Catalog) []EditableLine {
	lines := make([]EditableLine, 0, len(items))
	for _, item := range items {
		line := EditableLine{
			ID:        item.ID,
			Source:    SourceManual,
			Label:     item.Label,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Note:      item.Note,
		}
		if entryID, ok := catalog.CatalogEntryIDForLine(item.ID); ok {
			line.Source = SourceCatalog
			line.CatalogEntryID = entryID
		}
		lines = append(lines, line)
	}
	return lines
}

// Reconcile re-associates a persisted line with the current catalog. A stored
// catalog reference is trusted when the entry still exists. Lines without a
// reference that are not explicitly manual are matched on label and price.
// Anything unmatched becomes a manual line. Stored label, price and note are
// never overwritten.
func Reconcile(line EditableLine, catalog Catalog) EditableLine {
	if line.CatalogEntryID != "" {
		if _, ok := catalog.Entry(line.CatalogEntryID); ok {
			line.Source = SourceCatalog
			return line
		}
		line.CatalogEntryID = ""
		line.Source = SourceManual
		return line
	}

	if line.Source != SourceManual {
		if entry, ok := matchByLabelAndPrice(line, catalog); ok {
			line.Source = SourceCatalog
			line.CatalogEntryID = entry.ID
			return line
		}
	}

	line.Source = SourceManual
	return line
}

// ResolveEdit applies a line posted by the editor. A line naming an existing
// catalog entry takes that entry's label, price and note, whatever was typed.
// Manual lines keep what was typed. Every other line is reconciled like a
// stored one.
func ResolveEdit(line EditableLine, catalog Catalog) EditableLine {
	switch {
	case line.Source == SourceManual:
		line.CatalogEntryID = ""
		return line
	case line.CatalogEntryID != "":
		if entry, ok := catalog.Entry(line.CatalogEntryID); ok {
			return line.UseCatalogEntry(entry)
		}
	}
	return Reconcile(line, catalog)
}

// ResolveEdits applies ResolveEdit to every line, keeping order.
func ResolveEdits(lines []EditableLine, catalog Catalog) []EditableLine {
	out := make([]EditableLine, len(lines))
	for i, line := range lines {
		out[i] = ResolveEdit(line, catalog)
	}
	return out
}

// ReconcileAll applies Reconcile to every line, keeping order.
func ReconcileAll(lines []EditableLine, catalog Catalog) []EditableLine {
	out := make([]EditableLine, len(lines))
	for i, line := range lines {
		out[i] = Reconcile(line, catalog)
	}
	return out
}

// LineItemsOf prices editor lines in order.
func LineItemsOf(lines []EditableLine) []LineItem {
	items := make([]LineItem, len(lines))
	for i, line := range lines {
		items[i] = line.LineItem()
	}
	return items
}

func matchByLabelAndPrice(line EditableLine, catalog Catalog) (CatalogEntry, bool) {
	label := normalizeLabel(line.Label)
	if label == "" {
		return CatalogEntry{}, false
	}

	var partial *CatalogEntry
	for _, entry := range catalog.Entries() {
		if math.Abs(entry.UnitPrice-line.UnitPrice) > priceTolerance {
			continue
		}
		candidate := normalizeLabel(entry.Label)
		if candidate == "" {
			continue
		}
		if candidate == label {
			return entry, true
		}
		if partial == nil && (strings.Contains(candidate, label) || strings.Contains(label, candidate)) {
			e := entry
			partial = &e
		}
	}
	if partial != nil {
		return *partial, true
	}
	return CatalogEntry{}, false
}

func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
