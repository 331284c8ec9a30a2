package pricing

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"":          0,
		"   ":       0,
		"abc":       0,
		"-":         0,
		"3.5":       3.5,
		"3,5":       3.5,
		" 12 UF":    12,
		"0.76abc":   0.76,
		".5":        0.5,
		"7.":        7,
		"-2.25":     -2.25,
		"NaN":       0,
		"Infinity":  0,
		"1e3":       1000,
		"2,5e-1":    0.25,
		"3e":        3,
		"1e400":     0,
		"3,16 / UF": 3.16,
	}
	for raw, want := range cases {
		if got := ParseAmount(raw); got != want {
			t.Fatalf("ParseAmount(%q): expected %v, got %v", raw, want, got)
		}
	}
}

func TestParseCount(t *testing.T) {
	cases := map[string]int{
		"":     0,
		"x":    0,
		"-2":   0,
		"4":    4,
		"4.9":  4,
		"10 u": 10,
	}
	for raw, want := range cases {
		if got := ParseCount(raw); got != want {
			t.Fatalf("ParseCount(%q): expected %d, got %d", raw, want, got)
		}
	}
}

func TestCount(t *testing.T) {
	cases := map[float64]int{
		-1:   0,
		0:    0,
		2.99: 2,
		1e12: 0,
	}
	for in, want := range cases {
		if got := Count(in); got != want {
			t.Fatalf("Count(%v): expected %d, got %d", in, want, got)
		}
	}
	if Count(math.NaN()) != 0 || Count(math.Inf(1)) != 0 {
		t.Fatal("expected non-finite counts to be 0")
	}
}

func TestEditableLine_UniformPricing(t *testing.T) {
	manual := EditableLine{ID: "m1", Source: SourceManual, Label: "Instalación", Quantity: 2, UnitPrice: 1.75}
	catalogLine := EditableLine{ID: "c1", Quantity: 2}.UseCatalogEntry(CatalogEntry{ID: "aux-module", Label: "Módulo auxiliar", UnitPrice: 1.75})

	if manual.LineItem().TotalPrice != catalogLine.LineItem().TotalPrice {
		t.Fatalf("expected identical totals for manual and catalog lines")
	}
	if manual.LineItem().TotalPrice != 3.5 {
		t.Fatalf("expected 3.5, got %v", manual.LineItem().TotalPrice)
	}
}

func TestEditableLine_SwitchIsCleanReplace(t *testing.T) {
	line := EditableLine{
		ID:        "l1",
		Source:    SourceManual,
		Label:     "Texto libre",
		Quantity:  3,
		UnitPrice: 9.99,
		Note:      "nota antigua",
	}

	switched := line.UseCatalogEntry(CatalogEntry{ID: "internet", Label: "Servicio de internet", UnitPrice: 1.2})

	if switched.Source != SourceCatalog || switched.CatalogEntryID != "internet" {
		t.Fatalf("expected catalog-backed line, got %+v", switched)
	}
	if switched.Label != "Servicio de internet" || switched.UnitPrice != 1.2 {
		t.Fatalf("expected entry label and price, got %+v", switched)
	}
	if switched.Note != "" {
		t.Fatalf("expected note replaced by the entry's empty note, got %q", switched.Note)
	}
	if switched.Quantity != 3 {
		t.Fatalf("expected quantity kept, got %d", switched.Quantity)
	}

	back := switched.UseManual()
	if back.Source != SourceManual || back.CatalogEntryID != "" || back.Label != "" || back.UnitPrice != 0 || back.Note != "" {
		t.Fatalf("expected blank manual line, got %+v", back)
	}
}

func TestCatalogEntries_IncludeBothContainerTiers(t *testing.T) {
	catalog := testCatalog()

	entry, ok := catalog.Entry("container" + AdditionalUnitSuffix)
	if !ok {
		t.Fatalf("expected additional-unit entry")
	}
	if entry.UnitPrice != 0.76 {
		t.Fatalf("expected 0.76, got %v", entry.UnitPrice)
	}
	if len(catalog.Entries()) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(catalog.Entries()))
	}
}

func TestEditableLines_LinksBuiltItemsToCatalog(t *testing.T) {
	catalog := testCatalog()
	order := OrderInput{ContainerCount: 3, AuxiliaryModules: 1, AddOns: map[string]bool{"internet": true}}

	lines := EditableLines(BuildLineItems(order, catalog), catalog)

	want := []string{"container", "container-additional", "aux-module", "internet", "basic"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i, id := range want {
		if lines[i].Source != SourceCatalog || lines[i].CatalogEntryID != id {
			t.Fatalf("line %d: expected catalog entry %s, got %+v", i, id, lines[i])
		}
	}
}

func TestReconcile_ByCatalogReference(t *testing.T) {
	stored := EditableLine{ID: "1", Source: SourceCatalog, CatalogEntryID: "premium", Label: "Soporte premium (2024)", Quantity: 1, UnitPrice: 1.8}

	got := Reconcile(stored, testCatalog())

	if got.Source != SourceCatalog || got.CatalogEntryID != "premium" {
		t.Fatalf("expected catalog-backed line, got %+v", got)
	}
	if got.Label != stored.Label || got.UnitPrice != stored.UnitPrice {
		t.Fatalf("expected stored label and price preserved, got %+v", got)
	}
}

func TestReconcile_UnknownReferenceBecomesManual(t *testing.T) {
	stored := EditableLine{ID: "1", Source: SourceCatalog, CatalogEntryID: "retired-plan", Label: "Plan retirado", Quantity: 2, UnitPrice: 4.4, Note: "legacy"}

	got := Reconcile(stored, testCatalog())

	if got.Source != SourceManual || got.CatalogEntryID != "" {
		t.Fatalf("expected manual line, got %+v", got)
	}
	if got.Label != "Plan retirado" || got.UnitPrice != 4.4 || got.Quantity != 2 || got.Note != "legacy" {
		t.Fatalf("expected stored values preserved, got %+v", got)
	}
	if got.LineItem().TotalPrice != 8.8 {
		t.Fatalf("expected total 8.8, got %v", got.LineItem().TotalPrice)
	}
}

func TestReconcile_LabelAndPriceHeuristic(t *testing.T) {
	catalog := testCatalog()

	exact := Reconcile(EditableLine{Label: "  servicio DE internet ", UnitPrice: 1.2, Quantity: 1}, catalog)
	if exact.Source != SourceCatalog || exact.CatalogEntryID != "internet" {
		t.Fatalf("expected match on normalized label, got %+v", exact)
	}

	partial := Reconcile(EditableLine{Label: "Alertas SMS mensual", UnitPrice: 0.301, Quantity: 1}, catalog)
	if partial.Source != SourceCatalog || partial.CatalogEntryID != "sms" {
		t.Fatalf("expected partial label match within price tolerance, got %+v", partial)
	}

	priceOff := Reconcile(EditableLine{Label: "Servicio de internet", UnitPrice: 1.5, Quantity: 1}, catalog)
	if priceOff.Source != SourceManual {
		t.Fatalf("expected manual line when price differs, got %+v", priceOff)
	}
}

func TestReconcile_ExplicitManualLineIsNotMatched(t *testing.T) {
	line := EditableLine{Source: SourceManual, Label: "Servicio de internet", UnitPrice: 1.2, Quantity: 1}

	got := Reconcile(line, testCatalog())

	if got.Source != SourceManual || got.CatalogEntryID != "" {
		t.Fatalf("expected manual line untouched, got %+v", got)
	}
}

func TestResolveEdit_CatalogReferenceReplacesTypedValues(t *testing.T) {
	posted := EditableLine{ID: "l1", Source: SourceCatalog, CatalogEntryID: "premium", Label: "Visita técnica", Quantity: 3, UnitPrice: 9, Note: "typed"}

	got := ResolveEdit(posted, testCatalog())

	if got.Source != SourceCatalog || got.CatalogEntryID != "premium" {
		t.Fatalf("expected catalog-backed line, got %+v", got)
	}
	if got.Label != "Soporte premium" || got.UnitPrice != 2 || got.Note != "" {
		t.Fatalf("expected catalog label, price and note, got %+v", got)
	}
	if got.Quantity != 3 || got.LineItem().TotalPrice != 6 {
		t.Fatalf("expected quantity kept and total 6, got %+v", got)
	}
}

func TestResolveEdit_FallsBackToReconcile(t *testing.T) {
	catalog := testCatalog()

	unknown := ResolveEdit(EditableLine{Source: SourceCatalog, CatalogEntryID: "retired", Label: "Plan retirado", Quantity: 1, UnitPrice: 4.4}, catalog)
	if unknown.Source != SourceManual || unknown.Label != "Plan retirado" || unknown.UnitPrice != 4.4 {
		t.Fatalf("expected manual line with typed values, got %+v", unknown)
	}

	manual := ResolveEdit(EditableLine{Source: SourceManual, CatalogEntryID: "premium", Label: "Visita", Quantity: 1, UnitPrice: 9}, catalog)
	if manual.Source != SourceManual || manual.UnitPrice != 9 || manual.CatalogEntryID != "" {
		t.Fatalf("expected manual line untouched, got %+v", manual)
	}
}
