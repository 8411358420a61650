package domain

import (
	"strings"
	"time"
)

const DefaultContactSource = "hubspot"

// Contact is an immutable snapshot of a CRM contact for one planning cycle.
type Contact struct {
	ID           string
	Email        Optional[string]
	FirstName    Optional[string]
	LastName     Optional[string]
	OwnerID      Optional[string]
	Lifecycle    Optional[string]
	LastModified Optional[time.Time]
	Score        Optional[float64]
	Source       string
}

// ScoreValue treats a missing score as 0.
func (c Contact) ScoreValue() float64 {
	return c.Score.OrElse(0)
}

// EmailAddress returns the trimmed email, or "" when absent.
func (c Contact) EmailAddress() string {
	return strings.TrimSpace(c.Email.OrElse(""))
}

// Domain returns the lowercased part after "@", or the whole lowercased
// value when it has no "@".
func (c Contact) Domain() string {
	return EmailDomain(c.EmailAddress())
}

// DisplayName prefers the first name, then the email, then "there".
func (c Contact) DisplayName() string {
	if v, ok := c.FirstName.Get(); ok && v != "" {
		return v
	}
	if v, ok := c.Email.Get(); ok && v != "" {
		return v
	}
	return "there"
}

func EmailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return strings.ToLower(email[i+1:])
	}
	return strings.ToLower(email)
}
