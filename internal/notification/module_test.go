package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"scada_quote_backend/internal/email"
	"scada_quote_backend/internal/events"
	"scada_quote_backend/internal/pricing"
	"scada_quote_backend/internal/quotes/transport"
	"scada_quote_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testQuotes struct {
	quote     transport.QuoteResponse
	renderErr error
	renders   int
}

func (q *testQuotes) GetByID(context.Context, uuid.UUID) (*transport.QuoteResponse, error) {
	quote := q.quote
	return &quote, nil
}

func (q *testQuotes) RenderPDF(context.Context, uuid.UUID) ([]byte, string, error) {
	q.renders++
	if q.renderErr != nil {
		return nil, "", q.renderErr
	}
	return []byte("%PDF-1.7"), q.quote.QuoteNumber, nil
}

type testSender struct {
	quoteMails    []email.QuoteMessage
	acceptedMails []string
}

func (s *testSender) SendQuoteEmail(_ context.Context, msg email.QuoteMessage) error {
	s.quoteMails = append(s.quoteMails, msg)
	return nil
}

func (s *testSender) SendQuoteAcceptedEmail(_ context.Context, toEmail, _, _, _ string) error {
	s.acceptedMails = append(s.acceptedMails, toEmail)
	return nil
}

func newTestQuotes() *testQuotes {
	validUntil := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	items := []pricing.LineItem{pricing.NewLineItem("l1", "Contenedor", 1, 3.16, "")}
	return &testQuotes{quote: transport.QuoteResponse{
		QuoteNumber: "COT-2026-0042",
		Status:      "sent",
		ValidUntil:  &validUntil,
		Items:       items,
		Totals:      pricing.ComputeTotals(items, 0, 0.19),
	}}
}

func statusChanged(newStatus, clientEmail string) events.QuoteStatusChanged {
	return events.QuoteStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     uuid.New(),
		QuoteNumber: "COT-2026-0042",
		OldStatus:   "draft",
		NewStatus:   newStatus,
		ClientEmail: clientEmail,
		ClientName:  "Agrícola Los Andes",
	}
}

func TestQuoteSentMailsClientWithPDF(t *testing.T) {
	quotes, sender := newTestQuotes(), &testSender{}
	m := New(quotes, sender, "", logger.Discard())

	require.NoError(t, m.Handle(context.Background(), statusChanged("sent", "compras@losandes.cl")))

	require.Len(t, sender.quoteMails, 1)
	msg := sender.quoteMails[0]
	assert.Equal(t, "compras@losandes.cl", msg.ToEmail)
	assert.Equal(t, "UF 3,76", msg.GrandTotal)
	assert.Equal(t, "09-04-2026", msg.ValidUntil)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Cotizacion-COT-2026-0042.pdf", msg.Attachments[0].FileName)
}

func TestQuoteSentStillMailsWhenRenderFails(t *testing.T) {
	quotes, sender := newTestQuotes(), &testSender{}
	quotes.renderErr = errors.New("renderer down")
	m := New(quotes, sender, "", logger.Discard())

	require.NoError(t, m.Handle(context.Background(), statusChanged("sent", "compras@losandes.cl")))
	require.Len(t, sender.quoteMails, 1)
	assert.Empty(t, sender.quoteMails[0].Attachments)
}

func TestQuoteSentWithoutClientEmailIsSkipped(t *testing.T) {
	quotes, sender := newTestQuotes(), &testSender{}
	m := New(quotes, sender, "", logger.Discard())

	require.NoError(t, m.Handle(context.Background(), statusChanged("sent", "")))
	assert.Empty(t, sender.quoteMails)
	assert.Zero(t, quotes.renders)
}

func TestAcceptedNotifiesSales(t *testing.T) {
	quotes, sender := newTestQuotes(), &testSender{}

	require.NoError(t, New(quotes, sender, "", logger.Discard()).Handle(context.Background(), statusChanged("accepted", "c@x.cl")))
	assert.Empty(t, sender.acceptedMails)

	require.NoError(t, New(quotes, sender, "ventas@autosur.cl", logger.Discard()).Handle(context.Background(), statusChanged("accepted", "c@x.cl")))
	assert.Equal(t, []string{"ventas@autosur.cl"}, sender.acceptedMails)
}

func TestOtherTransitionsAreIgnored(t *testing.T) {
	quotes, sender := newTestQuotes(), &testSender{}
	m := New(quotes, sender, "ventas@autosur.cl", logger.Discard())

	for _, status := range []string{"voided", "expired"} {
		require.NoError(t, m.Handle(context.Background(), statusChanged(status, "c@x.cl")))
	}
	assert.Empty(t, sender.quoteMails)
	assert.Empty(t, sender.acceptedMails)
}
