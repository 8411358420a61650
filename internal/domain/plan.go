package domain

import "time"

const DefaultPlanVariant = "default"

// Skip reasons recorded in OutreachPlan.ReasonsByContact.
const (
	ReasonQuietHours           = "quiet-hours"
	ReasonBlocklisted          = "blocklisted"
	ReasonNotAllowlisted       = "not-allowlisted"
	ReasonDomainCapReachedBase = "domain-cap-reached"
)

func DomainCapReason(domain string) string {
	return ReasonDomainCapReachedBase + ":" + domain
}

// OutreachPlan is the output of one planning run. It is not mutated after
// creation.
type OutreachPlan struct {
	ClientSlug       string            `json:"client_slug"`
	GeneratedAt      time.Time         `json:"generated_at"`
	Targets          []string          `json:"targets"`
	DailyCap         int               `json:"daily_cap"`
	Variant          string            `json:"variant"`
	ReasonsByContact map[string]string `json:"reasons_by_contact"`
}
