package email

import (
	"context"

	"scada_quote_backend/platform/config"
	"scada_quote_backend/platform/logger"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string // e.g. "Cotizacion-COT-2026-0042.pdf"
	MIMEType string
}

// QuoteMessage is the client-facing mail for a sent quote.
type QuoteMessage struct {
	ToEmail     string
	ClientName  string
	QuoteNumber string
	GrandTotal  string
	ValidUntil  string
	Attachments []Attachment
}

type Sender interface {
	SendQuoteEmail(ctx context.Context, msg QuoteMessage) error
	SendQuoteAcceptedEmail(ctx context.Context, toEmail, quoteNumber, clientName, grandTotal string) error
}

// NoopSender logs instead of delivering. Used when SMTP is not configured.
type NoopSender struct {
	log *logger.Logger
}

func (n NoopSender) SendQuoteEmail(_ context.Context, msg QuoteMessage) error {
	if n.log != nil {
		n.log.Info("email disabled, quote mail skipped", "to", msg.ToEmail, "quoteNumber", msg.QuoteNumber)
	}
	return nil
}

func (n NoopSender) SendQuoteAcceptedEmail(_ context.Context, toEmail, quoteNumber, _, _ string) error {
	if n.log != nil {
		n.log.Info("email disabled, acceptance mail skipped", "to", toEmail, "quoteNumber", quoteNumber)
	}
	return nil
}

func NewSender(cfg config.SMTPConfig, log *logger.Logger) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{log: log}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
