package crm

import (
	"math"
	"sort"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

const DormantAfter = 180 * 24 * time.Hour

// Summary describes the quality of a tenant's contact pool.
type Summary struct {
	Contacts          int       `json:"contacts"`
	MeanQuality       float64   `json:"mean_quality"`
	P50Quality        float64   `json:"p50_quality"`
	P90Quality        float64   `json:"p90_quality"`
	DormantCount      int       `json:"dormant_count"`
	DormantPct        float64   `json:"dormant_pct"`
	OwnerImbalancePct float64   `json:"owner_imbalance_pct"`
	TS                time.Time `json:"ts_utc"`
}

// OwnerStat is one row of the per-owner rollup.
type OwnerStat struct {
	OwnerID  string  `json:"owner_id"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// Summarize computes pool statistics. A contact is dormant when its last
// modification is missing or older than DormantAfter.
func Summarize(contacts []domain.Contact, now time.Time) Summary {
	s := Summary{Contacts: len(contacts), TS: now.UTC()}
	if len(contacts) == 0 {
		return s
	}

	scores := make([]float64, 0, len(contacts))
	sum := 0.0
	cutoff := now.Add(-DormantAfter)
	for _, c := range contacts {
		v := c.ScoreValue()
		scores = append(scores, v)
		sum += v

		if ts, ok := c.LastModified.Get(); !ok || ts.Before(cutoff) {
			s.DormantCount++
		}
	}
	sort.Float64s(scores)

	s.MeanQuality = round2(sum / float64(len(contacts)))
	s.P50Quality = round2(quantile(scores, 0.5))
	s.P90Quality = round2(quantile(scores, 0.9))
	s.DormantPct = round2(float64(s.DormantCount) / float64(len(contacts)) * 100)
	s.OwnerImbalancePct = ownerImbalance(contacts)
	return s
}

// OwnerRollup groups contacts by owner, best average score first. Contacts
// without an owner are grouped under "".
func OwnerRollup(contacts []domain.Contact) []OwnerStat {
	type acc struct {
		count int
		sum   float64
	}
	groups := make(map[string]*acc)
	for _, c := range contacts {
		owner := c.OwnerID.OrElse("")
		g, ok := groups[owner]
		if !ok {
			g = &acc{}
			groups[owner] = g
		}
		g.count++
		g.sum += c.ScoreValue()
	}

	rows := make([]OwnerStat, 0, len(groups))
	for owner, g := range groups {
		rows = append(rows, OwnerStat{
			OwnerID:  owner,
			Count:    g.count,
			AvgScore: round2(g.sum / float64(g.count)),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AvgScore != rows[j].AvgScore {
			return rows[i].AvgScore > rows[j].AvgScore
		}
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].OwnerID < rows[j].OwnerID
	})
	return rows
}

// ownerImbalance is (max - mean) / mean * 100 over per-owner counts, or 0
// when no contact has an owner.
func ownerImbalance(contacts []domain.Contact) float64 {
	counts := make(map[string]int)
	anyOwner := false
	for _, c := range contacts {
		owner := c.OwnerID.OrElse("")
		if owner != "" {
			anyOwner = true
		}
		counts[owner]++
	}
	if !anyOwner {
		return 0
	}

	maxCount, total := 0, 0
	for _, n := range counts {
		total += n
		maxCount = max(maxCount, n)
	}
	mean := float64(total) / float64(len(counts))
	return round2((float64(maxCount) - mean) / mean * 100)
}

// quantile uses linear interpolation between closest ranks on a sorted
// slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
