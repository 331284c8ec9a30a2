// Package pdf renders quote documents (cotizaciones) with maroto/v2.
// It prints the engine's line items and totals as given; rounding happens
// only in the formatting helpers of this package.
package pdf

import (
	"fmt"
	"strings"
	"time"

	"scada_quote_backend/internal/pricing"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ── Colour palette ──────────────────────────────────────────────────────

var (
	colorPrimary   = &props.Color{Red: 17, Green: 24, Blue: 39}    // near-black
	colorSecondary = &props.Color{Red: 107, Green: 114, Blue: 128} // gray-500
	colorAccent    = &props.Color{Red: 3, Green: 105, Blue: 161}   // sky-700
	colorTableHead = &props.Color{Red: 241, Green: 245, Blue: 249} // slate-100
	colorTableAlt  = &props.Color{Red: 249, Green: 250, Blue: 251} // gray-50
	colorGreen     = &props.Color{Red: 22, Green: 163, Blue: 74}   // green-600
	colorRed       = &props.Color{Red: 220, Green: 38, Blue: 38}   // red-600
	colorBorder    = &props.Color{Red: 226, Green: 232, Blue: 240} // slate-200
)

const dateLayout = "02-01-2006"

// QuoteDocument holds everything printed on a quote PDF.
type QuoteDocument struct {
	QuoteNumber string
	Status      string
	CreatedAt   time.Time
	ValidUntil  *time.Time
	AcceptedAt  *time.Time
	Notes       string

	IssuerName  string
	IssuerEmail string

	ClientName  string
	ClientEmail string

	// Items and Totals come straight from the pricing engine.
	Items  []pricing.LineItem
	Totals pricing.QuoteTotals

	// UFValue is the CLP value of one UF snapshotted on the quote. Zero omits
	// the CLP equivalent.
	UFValue float64
}

// GenerateQuotePDF renders the quote document.
func GenerateQuotePDF(doc QuoteDocument) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(12).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	if err := m.RegisterFooter(buildFooter(doc)); err != nil {
		return nil, fmt.Errorf("register footer: %w", err)
	}

	m.AddRows(buildHeader(doc)...)
	m.AddRows(row.New(1).WithStyle(&props.Cell{
		BorderType:  border.Bottom,
		BorderColor: colorBorder,
	}))
	m.AddRows(row.New(6))

	m.AddRows(buildPartiesBlock(doc)...)
	m.AddRows(row.New(6))

	m.AddRows(buildItemsTable(doc.Items)...)
	m.AddRows(row.New(4))

	m.AddRows(buildTotalsBlock(doc)...)

	if strings.TrimSpace(doc.Notes) != "" {
		m.AddRows(row.New(6))
		m.AddRows(buildNotesBlock(doc.Notes)...)
	}

	m.AddRows(row.New(8))
	m.AddRows(buildTerms(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Header ──────────────────────────────────────────────────────────────

func buildHeader(doc QuoteDocument) []core.Row {
	issuer := doc.IssuerName
	if issuer == "" {
		issuer = "Cotizaciones"
	}

	return []core.Row{
		row.New(20).Add(
			col.New(5).Add(text.New(issuer, props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Color: colorPrimary,
				Top:   4,
			})),
			col.New(7).Add(
				text.New("COTIZACIÓN", props.Text{
					Size:  22,
					Style: fontstyle.Bold,
					Align: align.Right,
					Color: colorAccent,
				}),
				text.New("N° "+doc.QuoteNumber, props.Text{
					Size:  11,
					Align: align.Right,
					Color: colorSecondary,
					Top:   11,
				}),
			),
		),
	}
}

// ── Parties ─────────────────────────────────────────────────────────────

func buildPartiesBlock(doc QuoteDocument) []core.Row {
	labelStyle := props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent}
	nameStyle := props.Text{Size: 9, Style: fontstyle.Bold, Color: colorPrimary}
	detailStyle := props.Text{Size: 8, Color: colorSecondary}
	metaStyle := props.Text{Size: 8, Color: colorSecondary, Align: align.Right}

	validity := ""
	if doc.ValidUntil != nil {
		validity = "Válida hasta: " + doc.ValidUntil.Format(dateLayout)
	}

	return []core.Row{
		row.New(5).Add(
			col.New(6).Add(text.New("EMISOR", labelStyle)),
			col.New(3).Add(text.New("CLIENTE", labelStyle)),
			col.New(3).Add(text.New("DETALLE", props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent, Align: align.Right})),
		),
		row.New(5).Add(
			col.New(6).Add(text.New(doc.IssuerName, nameStyle)),
			col.New(3).Add(text.New(doc.ClientName, nameStyle)),
			col.New(3).Add(text.New("Fecha: "+doc.CreatedAt.Format(dateLayout), metaStyle)),
		),
		row.New(5).Add(
			col.New(6).Add(text.New(doc.IssuerEmail, detailStyle)),
			col.New(3).Add(text.New(doc.ClientEmail, detailStyle)),
			col.New(3).Add(text.New(validity, metaStyle)),
		),
		row.New(5).Add(
			col.New(9),
			col.New(3).Add(text.New("Estado: "+StatusLabel(doc.Status), props.Text{
				Size:  8,
				Style: fontstyle.Bold,
				Color: statusColor(doc.Status),
				Align: align.Right,
			})),
		),
	}
}

// ── Line items ──────────────────────────────────────────────────────────

func buildItemsTable(items []pricing.LineItem) []core.Row {
	headerStyle := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Top: 1.5}
	headerStyleRight := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Align: align.Right, Top: 1.5}

	rows := []core.Row{
		row.New(7).Add(
			col.New(12).Add(text.New("DETALLE DE LA COTIZACIÓN", props.Text{
				Size:  8,
				Style: fontstyle.Bold,
				Color: colorAccent,
			})),
		),
		row.New(7).Add(
			col.New(6).Add(text.New("Descripción", headerStyle)),
			col.New(1).Add(text.New("Cant.", headerStyleRight)),
			col.New(2).Add(text.New("Precio unit.", headerStyleRight)),
			col.New(3).Add(text.New("Total", headerStyleRight)),
		).WithStyle(&props.Cell{
			BackgroundColor: colorTableHead,
			BorderType:      border.Bottom,
			BorderColor:     colorBorder,
		}),
	}

	for i, item := range items {
		rows = append(rows, buildItemRow(item, i))
	}
	return rows
}

func buildItemRow(item pricing.LineItem, idx int) core.Row {
	normalStyle := props.Text{Size: 8, Color: colorPrimary, Top: 1}
	rightStyle := props.Text{Size: 8, Color: colorPrimary, Align: align.Right, Top: 1}

	height := 7.0
	descCol := col.New(6).Add(text.New(item.Label, normalStyle))
	if item.Note != "" {
		height = 11
		descCol.Add(text.New(item.Note, props.Text{Size: 6.5, Color: colorSecondary, Top: 5.5}))
	}

	r := row.New(height).Add(
		descCol,
		col.New(1).Add(text.New(fmt.Sprintf("%d", item.Quantity), rightStyle)),
		col.New(2).Add(text.New(FormatUF(item.UnitPrice), rightStyle)),
		col.New(3).Add(text.New(FormatUF(item.TotalPrice), rightStyle)),
	)
	if idx%2 == 0 {
		r.WithStyle(&props.Cell{BackgroundColor: colorTableAlt})
	}
	return r
}

// ── Totals ──────────────────────────────────────────────────────────────

func buildTotalsBlock(doc QuoteDocument) []core.Row {
	t := doc.Totals
	labelStyle := props.Text{Size: 9, Color: colorSecondary, Align: align.Right}
	valueStyle := props.Text{Size: 9, Color: colorPrimary, Align: align.Right}

	rows := []core.Row{
		row.New(1).WithStyle(&props.Cell{BorderType: border.Bottom, BorderColor: colorBorder}),
		row.New(3),
		totalsRow("Subtotal", FormatUF(t.Subtotal), labelStyle, valueStyle),
	}

	if t.DiscountAmount > 0 {
		rows = append(rows,
			totalsRow(fmt.Sprintf("Descuento (%s%%)", FormatPercent(t.DiscountPercent)), "-"+FormatUF(t.DiscountAmount),
				labelStyle, props.Text{Size: 9, Color: colorGreen, Align: align.Right}),
		)
	}

	rows = append(rows,
		totalsRow("Neto", FormatUF(t.NetAmount), labelStyle, valueStyle),
		totalsRow(fmt.Sprintf("IVA (%s%%)", FormatPercent(t.TaxRate*100)), FormatUF(t.TaxAmount), labelStyle, valueStyle),
		row.New(2),
	)

	totalStyle := props.Text{Size: 12, Style: fontstyle.Bold, Color: colorPrimary, Align: align.Right, Top: 2}
	rows = append(rows, row.New(10).Add(
		col.New(9).Add(text.New("TOTAL", totalStyle)),
		col.New(3).Add(text.New(FormatUF(t.GrandTotal), totalStyle)),
	).WithStyle(&props.Cell{
		BackgroundColor: colorTableHead,
		BorderType:      border.Top + border.Bottom,
		BorderColor:     colorBorder,
	}))

	if doc.UFValue > 0 {
		rows = append(rows, row.New(6).Add(
			col.New(9).Add(text.New(fmt.Sprintf("Equivalente en pesos (UF = %s)", FormatCLP(doc.UFValue)), labelStyle)),
			col.New(3).Add(text.New(FormatCLP(t.GrandTotal*doc.UFValue), valueStyle)),
		))
	}
	return rows
}

func totalsRow(label, value string, labelStyle, valueStyle props.Text) core.Row {
	return row.New(6).Add(
		col.New(9).Add(text.New(label, labelStyle)),
		col.New(3).Add(text.New(value, valueStyle)),
	)
}

// ── Notes ───────────────────────────────────────────────────────────────

func buildNotesBlock(notes string) []core.Row {
	return []core.Row{
		row.New(5).Add(
			col.New(12).Add(text.New("OBSERVACIONES", props.Text{
				Size:  8,
				Style: fontstyle.Bold,
				Color: colorAccent,
			})),
		),
		row.New(12).Add(
			col.New(12).Add(text.New(notes, props.Text{Size: 8, Color: colorSecondary, Top: 1})),
		),
	}
}

// ── Terms ───────────────────────────────────────────────────────────────

func buildTerms(doc QuoteDocument) []core.Row {
	termStyle := props.Text{Size: 7, Color: colorSecondary}
	terms := []string{
		"1.  Valores expresados en Unidades de Fomento (UF) más IVA, salvo indicación contraria.",
		"2.  El equivalente en pesos es referencial y se calcula con el valor de la UF a la fecha de emisión.",
		"3.  La facturación se realiza en pesos chilenos al valor de la UF del día de emisión de la factura.",
	}
	if doc.ValidUntil != nil {
		terms = append(terms, "4.  Esta cotización es válida hasta el "+doc.ValidUntil.Format(dateLayout)+".")
	}

	rows := []core.Row{
		row.New(1).WithStyle(&props.Cell{BorderType: border.Bottom, BorderColor: colorBorder}),
		row.New(3),
		row.New(5).Add(
			col.New(12).Add(text.New("CONDICIONES", props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent})),
		),
	}
	for _, term := range terms {
		rows = append(rows, row.New(4).Add(col.New(12).Add(text.New(term, termStyle))))
	}

	if doc.Status == "accepted" && doc.AcceptedAt != nil {
		rows = append(rows, row.New(4), row.New(6).Add(
			col.New(12).Add(text.New("Aceptada el "+doc.AcceptedAt.Format(dateLayout+" 15:04"), props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Color: colorGreen,
			})),
		))
	}
	return rows
}

// ── Footer (registered, repeats on every page) ──────────────────────────

func buildFooter(doc QuoteDocument) core.Row {
	parts := []string{doc.IssuerName, doc.IssuerEmail, "Cotización " + doc.QuoteNumber}

	return row.New(10).Add(
		col.New(12).Add(text.New(joinParts(parts, "  ·  "), props.Text{
			Size:  6.5,
			Color: colorSecondary,
			Align: align.Center,
			Top:   4,
		})),
	).WithStyle(&props.Cell{
		BorderType:  border.Top,
		BorderColor: colorBorder,
	})
}

// ── Helpers ─────────────────────────────────────────────────────────────

// StatusLabel translates a quote status for print.
func StatusLabel(status string) string {
	switch status {
	case "draft":
		return "Borrador"
	case "sent":
		return "Enviada"
	case "accepted":
		return "Aceptada"
	case "voided":
		return "Anulada"
	case "expired":
		return "Vencida"
	default:
		return status
	}
}

func statusColor(status string) *props.Color {
	switch status {
	case "accepted":
		return colorGreen
	case "voided", "expired":
		return colorRed
	case "sent":
		return colorAccent
	default:
		return colorSecondary
	}
}

func joinParts(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
