package domain

import (
	"fmt"
	"strings"
	"time"
)

// EventKind is the type of an engagement or delivery event.
type EventKind string

const (
	EventOpened      EventKind = "opened"
	EventReplied     EventKind = "replied"
	EventBounced     EventKind = "bounced"
	EventOptedOut    EventKind = "opted_out"
	EventRateLimited EventKind = "rate_limited"
	EventSent        EventKind = "sent"
	EventMeeting     EventKind = "meeting"
)

func (k EventKind) String() string { return string(k) }

func (k EventKind) IsValid() bool {
	switch k {
	case EventOpened, EventReplied, EventBounced, EventOptedOut, EventRateLimited, EventSent, EventMeeting:
		return true
	}
	return false
}

func ParseEventKindFromString(s string) (EventKind, error) {
	k := EventKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid event kind %q", ErrValidation, s)
	}
	return k, nil
}

// Event is an append-only engagement log entry.
type Event struct {
	ID         string
	ClientSlug string
	Kind       EventKind
	ContactID  string
	MessageID  string
	TS         time.Time
	Meta       map[string]any
}
