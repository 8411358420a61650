// Package policy decides which contacts of a tenant are contacted in one
// planning run. BuildPlan is a pure function of its inputs.
package policy

import (
	"sort"
	"strings"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

// Request holds the inputs of one planning run.
type Request struct {
	ClientSlug string
	Contacts   []domain.Contact
	DailyCap   int
	// Limit is an extra cap from the caller; absent means unlimited.
	Limit     domain.Optional[int]
	Variant   string
	Overrides Overrides
	// Now defaults to the current UTC time when zero.
	Now time.Time
}

// BuildPlan filters, ranks and caps the contact pool.
//
// Order: quiet hours short-circuit, email presence, block/allow lists, score
// ranking (stable), per-domain caps, then min(daily cap, limit).
func BuildPlan(req Request) domain.OutreachPlan {
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	variant := strings.TrimSpace(req.Variant)
	if variant == "" {
		variant = domain.DefaultPlanVariant
	}

	plan := domain.OutreachPlan{
		ClientSlug:       req.ClientSlug,
		GeneratedAt:      now,
		Targets:          []string{},
		DailyCap:         req.DailyCap,
		Variant:          variant,
		ReasonsByContact: make(map[string]string),
	}

	if InQuietHours(now, req.Overrides.QuietHours) {
		for _, c := range req.Contacts {
			plan.ReasonsByContact[c.ID] = domain.ReasonQuietHours
		}
		return plan
	}

	allow := normalizedSet(req.Overrides.Allowlist)
	block := normalizedSet(req.Overrides.Blocklist)

	// Contacts without an email are dropped without a reason.
	selected := make([]domain.Contact, 0, len(req.Contacts))
	for _, c := range req.Contacts {
		email := strings.ToLower(c.EmailAddress())
		if email == "" {
			continue
		}
		dom := c.Domain()

		if len(block) > 0 && (block[email] || block[dom]) {
			plan.ReasonsByContact[c.ID] = domain.ReasonBlocklisted
			continue
		}
		if len(allow) > 0 && !(allow[email] || allow[dom]) {
			plan.ReasonsByContact[c.ID] = domain.ReasonNotAllowlisted
			continue
		}
		selected = append(selected, c)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].ScoreValue() > selected[j].ScoreValue()
	})

	caps := normalizedCaps(req.Overrides.DomainCaps)
	taken := make(map[string]int)
	capped := make([]domain.Contact, 0, len(selected))
	for _, c := range selected {
		dom := c.Domain()
		limit, ok := caps[dom]
		if !ok {
			capped = append(capped, c)
			continue
		}
		if taken[dom] < limit {
			capped = append(capped, c)
			taken[dom]++
			continue
		}
		plan.ReasonsByContact[c.ID] = domain.DomainCapReason(dom)
	}

	maxTake := len(capped)
	if limit, ok := req.Limit.Get(); ok {
		maxTake = min(maxTake, max(limit, 0))
	}
	maxTake = min(maxTake, max(req.DailyCap, 0))

	for _, c := range capped[:maxTake] {
		plan.Targets = append(plan.Targets, c.ID)
	}
	return plan
}

func normalizedSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func normalizedCaps(caps map[string]int) map[string]int {
	out := make(map[string]int, len(caps))
	for dom, limit := range caps {
		out[strings.ToLower(strings.TrimSpace(dom))] = limit
	}
	return out
}
