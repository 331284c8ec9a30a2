package email

const (
	subjectQuoteSentFmt     = "Cotización %s de %s"
	subjectQuoteAcceptedFmt = "Cotización %s aceptada"
)
