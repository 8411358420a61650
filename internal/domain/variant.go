package domain

import (
	"fmt"
	"strings"
	"time"
)

const DefaultVariantSet = "baseline"

// Variant is one message template competing inside a variant set.
type Variant struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	SubjectTemplate string   `json:"subject_template" yaml:"subject_template"`
	BodyTemplate    string   `json:"body_template" yaml:"body_template"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func (v Variant) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("%w: variant id is required", ErrValidation)
	}
	return nil
}

// VariantStat holds the persisted bandit counters for one variant.
type VariantStat struct {
	VariantSet  string
	VariantID   string
	Sent        int
	Opens       int
	Replies     int
	Meetings    int
	LastUpdated time.Time
}

// Score is (replies+meetings)/sent, or 0 when nothing was sent.
func (s VariantStat) Score() float64 {
	if s.Sent <= 0 {
		return 0
	}
	return float64(s.Replies+s.Meetings) / float64(s.Sent)
}

func (s VariantStat) ReplyRate() float64 {
	if s.Sent <= 0 {
		return 0
	}
	return float64(s.Replies) / float64(s.Sent)
}

func (s VariantStat) ConversionRate() float64 {
	if s.Sent <= 0 {
		return 0
	}
	return float64(s.Meetings) / float64(s.Sent)
}

// StatColumn names a counter of VariantStat.
type StatColumn string

const (
	StatSent     StatColumn = "sent"
	StatOpens    StatColumn = "opens"
	StatReplies  StatColumn = "replies"
	StatMeetings StatColumn = "meetings"
)

// StatColumnForEvent maps an event kind to the counter it increments.
// Unknown kinds report false.
func StatColumnForEvent(kind string) (StatColumn, bool) {
	switch kind {
	case "sent":
		return StatSent, true
	case "opened", "open":
		return StatOpens, true
	case "replied", "reply":
		return StatReplies, true
	case "meeting", "booked_meeting":
		return StatMeetings, true
	}
	return "", false
}
