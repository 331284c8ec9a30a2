package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers mail over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) buildMessage(toEmail, subject, htmlContent string, attachments ...Attachment) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		opts := []gomail.FileOption{}
		if att.MIMEType != "" {
			opts = append(opts, gomail.WithFileContentType(gomail.ContentType(att.MIMEType)))
		}
		if err := msg.AttachReader(att.FileName, bytes.NewReader(att.Content), opts...); err != nil {
			return nil, fmt.Errorf("smtp attach %s: %w", att.FileName, err)
		}
	}
	return msg, nil
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg, err := s.buildMessage(toEmail, subject, htmlContent, attachments...)
	if err != nil {
		return err
	}

	authOpts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		authOpts = append(authOpts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, authOpts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendQuoteEmail(ctx context.Context, m QuoteMessage) error {
	subject := fmt.Sprintf(subjectQuoteSentFmt, m.QuoteNumber, s.fromName)
	content, err := renderEmailTemplate("quote_sent.html", quoteSentEmailData{
		baseEmailData: baseEmailData{
			Title:      subject,
			Heading:    "Su cotización está lista",
			IssuerName: s.fromName,
		},
		ClientName:    m.ClientName,
		QuoteNumber:   m.QuoteNumber,
		GrandTotal:    m.GrandTotal,
		ValidUntil:    m.ValidUntil,
		HasAttachment: len(m.Attachments) > 0,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, m.ToEmail, subject, content, m.Attachments...)
}

func (s *SMTPSender) SendQuoteAcceptedEmail(ctx context.Context, toEmail, quoteNumber, clientName, grandTotal string) error {
	subject := fmt.Sprintf(subjectQuoteAcceptedFmt, quoteNumber)
	content, err := renderEmailTemplate("quote_accepted.html", quoteAcceptedEmailData{
		baseEmailData: baseEmailData{
			Title:      subject,
			Heading:    "Cotización aceptada",
			IssuerName: s.fromName,
		},
		ClientName:  clientName,
		QuoteNumber: quoteNumber,
		GrandTotal:  grandTotal,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
