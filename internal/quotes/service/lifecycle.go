package service

import "time"

// Quote statuses.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusAccepted = "accepted"
	StatusVoided   = "voided"
	StatusExpired  = "expired"
)

var transitions = map[string][]string{
	StatusDraft: {StatusSent, StatusVoided},
	StatusSent:  {StatusAccepted, StatusVoided},
}

// CanTransition reports whether a quote in status from may move to status to.
// accepted, voided and expired are terminal.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EffectiveStatus applies time-based expiry: a draft or sent quote whose
// validity ended before now reads as expired.
func EffectiveStatus(status string, validUntil *time.Time, now time.Time) string {
	if (status == StatusDraft || status == StatusSent) && validUntil != nil && validUntil.Before(now) {
		return StatusExpired
	}
	return status
}

// Deletable reports whether a quote in the given effective status may be removed.
func Deletable(status string) bool {
	return status == StatusDraft || status == StatusVoided
}
