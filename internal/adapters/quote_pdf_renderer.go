package adapters

import (
	"context"

	"scada_quote_backend/internal/pdf"
	quotesvc "scada_quote_backend/internal/quotes/service"
	"scada_quote_backend/internal/quotes/transport"
)

// QuotePDFRenderer adapts the pdf package to quotes/service.PDFRenderer.
type QuotePDFRenderer struct {
	issuerName  string
	issuerEmail string
}

// NewQuotePDFRenderer creates a renderer printing the given issuer.
func NewQuotePDFRenderer(issuerName, issuerEmail string) *QuotePDFRenderer {
	return &QuotePDFRenderer{issuerName: issuerName, issuerEmail: issuerEmail}
}

// RenderQuotePDF renders a loaded quote. Items and totals are printed as
// computed on load.
func (r *QuotePDFRenderer) RenderQuotePDF(_ context.Context, quote transport.QuoteResponse) ([]byte, error) {
	return pdf.GenerateQuotePDF(QuoteDocumentOf(quote, r.issuerName, r.issuerEmail))
}

// QuoteDocumentOf maps a quote response onto the printed document.
func QuoteDocumentOf(quote transport.QuoteResponse, issuerName, issuerEmail string) pdf.QuoteDocument {
	notes := ""
	if quote.Notes != nil {
		notes = *quote.Notes
	}
	return pdf.QuoteDocument{
		QuoteNumber: quote.QuoteNumber,
		Status:      quote.Status,
		CreatedAt:   quote.CreatedAt,
		ValidUntil:  quote.ValidUntil,
		AcceptedAt:  quote.AcceptedAt,
		Notes:       notes,
		IssuerName:  issuerName,
		IssuerEmail: issuerEmail,
		ClientName:  quote.ClientName,
		ClientEmail: quote.ClientEmail,
		Items:       quote.Items,
		Totals:      quote.Totals,
		UFValue:     quote.UFValue,
	}
}

var _ quotesvc.PDFRenderer = (*QuotePDFRenderer)(nil)
