package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	IssuerName string
}

type quoteSentEmailData struct {
	baseEmailData
	ClientName    string
	QuoteNumber   string
	GrandTotal    string
	ValidUntil    string
	HasAttachment bool
}

type quoteAcceptedEmailData struct {
	baseEmailData
	ClientName  string
	QuoteNumber string
	GrandTotal  string
}

// renderEmailTemplate executes name inside the shared layout.
func renderEmailTemplate(name string, data any) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
