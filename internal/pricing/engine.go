// Package pricing computes quote line items and totals from an order and a
// catalog. Every function here is pure: no I/O, no shared state.
package pricing

// DefaultTaxRate is the VAT (IVA) fraction applied to the net amount.
const DefaultTaxRate = 0.19

// Line item ids emitted by BuildLineItems.
const (
	LineContainersPrimary = "containers-primary"
	LineContainersExtra   = "containers-extra"
	LineAuxiliaryModules  = "aux-modules"
	addOnLinePrefix       = "addon-"
	supportLinePrefix     = "support-"
)

// CatalogEntry is a priced, nameable unit offered for quoting. Prices are in UF.
type CatalogEntry struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	UnitPrice float64 `json:"unitPrice"`
	Note      string  `json:"note,omitempty"`
}

// TieredEntry is a catalog entry whose first unit is priced apart from the rest.
type TieredEntry struct {
	ID                  string  `json:"id"`
	Label               string  `json:"label"`
	AdditionalLabel     string  `json:"additionalLabel"`
	FirstUnitPrice      float64 `json:"firstUnitPrice"`
	AdditionalUnitPrice float64 `json:"additionalUnitPrice"`
	Note                string  `json:"note,omitempty"`
}

// Catalog groups the entries the order form can select from.
type Catalog struct {
	Containers         TieredEntry    `json:"containers"`
	AuxiliaryModule    CatalogEntry   `json:"auxiliaryModule"`
	AddOns             []CatalogEntry `json:"addOns"`
	SupportPlans       []CatalogEntry `json:"supportPlans"`
	DefaultSupportPlan string         `json:"defaultSupportPlan"`
}

// SupportPlan resolves a plan id, falling back to the default plan and then
// to the first plan listed. ok is false only when the catalog has no plans.
func (c Catalog) SupportPlan(id string) (CatalogEntry, bool) {
	if plan, ok := c.findSupportPlan(id); ok {
		return plan, true
	}
	if plan, ok := c.findSupportPlan(c.DefaultSupportPlan); ok {
		return plan, true
	}
	if len(c.SupportPlans) > 0 {
		return c.SupportPlans[0], true
	}
	return CatalogEntry{}, false
}

func (c Catalog) findSupportPlan(id string) (CatalogEntry, bool) {
	if id == "" {
		return CatalogEntry{}, false
	}
	for _, plan := range c.SupportPlans {
		if plan.ID == id {
			return plan, true
		}
	}
	return CatalogEntry{}, false
}

// OrderInput holds the selections of the quote form.
type OrderInput struct {
	ContainerCount   int             `json:"containerCount"`
	AuxiliaryModules int             `json:"auxiliaryModules"`
	AddOns           map[string]bool `json:"addOns"`
	SupportPlan      string          `json:"supportPlan"`
}

// LineItem is one priced row of a quote. TotalPrice is always Quantity × UnitPrice.
type LineItem struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	Note       string  `json:"note,omitempty"`
}

// NewLineItem builds a line item and derives its total.
func NewLineItem(id, label string, quantity int, unitPrice float64, note string) LineItem {
	if quantity < 0 {
		quantity = 0
	}
	unitPrice = finite(unitPrice)
	return LineItem{
		ID:         id,
		Label:      label,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: float64(quantity) * unitPrice,
		Note:       note,
	}
}

// QuoteTotals is derived from a line item list, a discount and a tax rate.
type QuoteTotals struct {
	Subtotal        float64 `json:"subtotal"`
	DiscountPercent float64 `json:"discountPercent"`
	DiscountRate    float64 `json:"discountRate"`
	DiscountAmount  float64 `json:"discountAmount"`
	NetAmount       float64 `json:"netAmount"`
	TaxRate         float64 `json:"taxRate"`
	TaxAmount       float64 `json:"taxAmount"`
	GrandTotal      float64 `json:"grandTotal"`
}

// BuildLineItems prices an order against the catalog. Lines are emitted in a
// fixed order: containers, auxiliary modules, add-ons, support. The support
// plan always yields exactly one line when the catalog has any plan.
func BuildLineItems(order OrderInput, catalog Catalog) []LineItem {
	items := make([]LineItem, 0, 4+len(catalog.AddOns))

	containers := order.ContainerCount
	if containers >= 1 {
		tier := catalog.Containers
		items = append(items, NewLineItem(LineContainersPrimary, tier.Label, 1, tier.FirstUnitPrice, tier.Note))
		if containers > 1 {
			label := tier.AdditionalLabel
			if label == "" {
				label = tier.Label
			}
			items = append(items, NewLineItem(LineContainersExtra, label, containers-1, tier.AdditionalUnitPrice, tier.Note))
		}
	}

	if order.AuxiliaryModules > 0 {
		aux := catalog.AuxiliaryModule
		items = append(items, NewLineItem(LineAuxiliaryModules, aux.Label, order.AuxiliaryModules, aux.UnitPrice, aux.Note))
	}

	for _, addOn := range catalog.AddOns {
		if !order.AddOns[addOn.ID] {
			continue
		}
		items = append(items, NewLineItem(addOnLinePrefix+addOn.ID, addOn.Label, 1, addOn.UnitPrice, addOn.Note))
	}

	if plan, ok := catalog.SupportPlan(order.SupportPlan); ok {
		items = append(items, NewLineItem(supportLinePrefix+plan.ID, plan.Label, 1, plan.UnitPrice, plan.Note))
	}

	return items
}

// ComputeTotals aggregates line items. Discount is applied to the subtotal and
// tax to the discounted net amount. Nothing is rounded here.
func ComputeTotals(items []LineItem, discountPercent, taxRate float64) QuoteTotals {
	var subtotal float64
	for _, item := range items {
		subtotal += float64(item.Quantity) * finite(item.UnitPrice)
	}

	discountPercent = ClampDiscount(discountPercent)
	taxRate = NormalizeTaxRate(taxRate)

	discountRate := discountPercent / 100
	discountAmount := subtotal * discountRate
	netAmount := subtotal - discountAmount
	taxAmount := netAmount * taxRate

	return QuoteTotals{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountRate:    discountRate,
		DiscountAmount:  discountAmount,
		NetAmount:       netAmount,
		TaxRate:         taxRate,
		TaxAmount:       taxAmount,
		GrandTotal:      netAmount + taxAmount,
	}
}

// Empty returns the state consumers render when upstream data is unavailable.
func Empty() ([]LineItem, QuoteTotals) {
	return []LineItem{}, QuoteTotals{}
}
