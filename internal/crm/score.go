package crm

import (
	"math"
	"regexp"
	"sort"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

var lifecycleBoostPattern = regexp.MustCompile(`(?i)(opportunity|customer|marketingqualifiedlead|salesqualifiedlead)`)

// Score fills in the lead score of contacts that do not carry one:
//
//	20*has_email + 20*has_owner + 20*lifecycle_boost + 40*recency
//
// clipped to [0, 100]. Recency is the percentile rank of last_modified
// among the contacts that have one (ties share the average rank). Contacts
// with a score keep it. The input slice is not modified.
func Score(contacts []domain.Contact) []domain.Contact {
	recency := recencyRanks(contacts)

	out := make([]domain.Contact, len(contacts))
	for i, c := range contacts {
		out[i] = c
		if c.Score.IsPresent() {
			continue
		}

		score := 0.0
		if c.EmailAddress() != "" {
			score += 20
		}
		if v, ok := c.OwnerID.Get(); ok && v != "" {
			score += 20
		}
		if v, ok := c.Lifecycle.Get(); ok && lifecycleBoostPattern.MatchString(v) {
			score += 20
		}
		score += round2(recency[i] * 40)

		out[i].Score = domain.Some(math.Max(0, math.Min(100, score)))
	}
	return out
}

// recencyRanks returns pct ranks in (0, 1] and 0 for contacts without a
// timestamp.
func recencyRanks(contacts []domain.Contact) []float64 {
	ranks := make([]float64, len(contacts))

	idx := make([]int, 0, len(contacts))
	for i, c := range contacts {
		if c.LastModified.IsPresent() {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return ranks
	}

	ts := func(i int) int64 {
		v, _ := contacts[i].LastModified.Get()
		return v.UnixNano()
	}
	sort.SliceStable(idx, func(a, b int) bool { return ts(idx[a]) < ts(idx[b]) })

	n := float64(len(idx))
	for start := 0; start < len(idx); {
		end := start
		for end+1 < len(idx) && ts(idx[end+1]) == ts(idx[start]) {
			end++
		}
		// 1-based positions start+1..end+1 share their mean.
		avg := float64(start+end+2) / 2
		for k := start; k <= end; k++ {
			ranks[idx[k]] = avg / n
		}
		start = end + 1
	}
	return ranks
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
