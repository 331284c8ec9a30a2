// Package notification sends mail in response to quote lifecycle events.
// Domain modules publish events and never talk to the mail provider.
package notification

import (
	"context"
	"fmt"
	"time"

	"scada_quote_backend/internal/email"
	"scada_quote_backend/internal/events"
	"scada_quote_backend/internal/pdf"
	"scada_quote_backend/internal/quotes/transport"
	"scada_quote_backend/platform/logger"

	"github.com/google/uuid"
)

const pdfMIMEType = "application/pdf"

// QuoteDocuments exposes what a notification needs from the quotes module.
type QuoteDocuments interface {
	GetByID(ctx context.Context, id uuid.UUID) (*transport.QuoteResponse, error)
	RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
}

type Module struct {
	quotes     QuoteDocuments
	sender     email.Sender
	salesEmail string
	log        *logger.Logger
}

// New creates the module. salesEmail receives acceptance notices and may be
// empty to disable them.
func New(quotes QuoteDocuments, sender email.Sender, salesEmail string, log *logger.Logger) *Module {
	return &Module{
		quotes:     quotes,
		sender:     sender,
		salesEmail: salesEmail,
		log:        log,
	}
}

func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NameQuoteStatusChanged, m)
	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.QuoteStatusChanged:
		switch e.NewStatus {
		case "sent":
			return m.handleQuoteSent(ctx, e)
		case "accepted":
			return m.handleQuoteAccepted(ctx, e)
		}
		return nil
	default:
		m.log.Warn("notification module received unhandled event", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleQuoteSent(ctx context.Context, e events.QuoteStatusChanged) error {
	if e.ClientEmail == "" {
		m.log.Warn("quote sent without client email, skipping mail", "quoteNumber", e.QuoteNumber)
		return nil
	}

	quote, err := m.quotes.GetByID(ctx, e.QuoteID)
	if err != nil {
		return fmt.Errorf("load quote %s: %w", e.QuoteNumber, err)
	}

	msg := email.QuoteMessage{
		ToEmail:     e.ClientEmail,
		ClientName:  e.ClientName,
		QuoteNumber: quote.QuoteNumber,
		GrandTotal:  pdf.FormatUF(quote.Totals.GrandTotal),
		ValidUntil:  formatDate(quote.ValidUntil),
	}

	// The mail still goes out without the PDF; the template says so.
	data, quoteNumber, err := m.quotes.RenderPDF(ctx, e.QuoteID)
	if err != nil {
		m.log.Error("quote pdf render failed, sending mail without attachment", "quoteNumber", e.QuoteNumber, "error", err)
	} else {
		msg.Attachments = []email.Attachment{{
			Content:  data,
			FileName: fmt.Sprintf("Cotizacion-%s.pdf", quoteNumber),
			MIMEType: pdfMIMEType,
		}}
	}

	if err := m.sender.SendQuoteEmail(ctx, msg); err != nil {
		m.log.Error("quote mail failed", "quoteNumber", e.QuoteNumber, "to", e.ClientEmail, "error", err)
		return err
	}
	m.log.QuoteEvent("quote_mail_sent", e.QuoteNumber, e.NewStatus)
	return nil
}

func (m *Module) handleQuoteAccepted(ctx context.Context, e events.QuoteStatusChanged) error {
	if m.salesEmail == "" {
		return nil
	}

	quote, err := m.quotes.GetByID(ctx, e.QuoteID)
	if err != nil {
		return fmt.Errorf("load quote %s: %w", e.QuoteNumber, err)
	}

	if err := m.sender.SendQuoteAcceptedEmail(ctx, m.salesEmail, quote.QuoteNumber, e.ClientName, pdf.FormatUF(quote.Totals.GrandTotal)); err != nil {
		m.log.Error("acceptance mail failed", "quoteNumber", e.QuoteNumber, "error", err)
		return err
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02-01-2006")
}
