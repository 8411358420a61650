package policy

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var quietHoursPattern = regexp.MustCompile(`^(\d{2}):(\d{2})-(\d{2}):(\d{2})$`)

// QuietWindow is a parsed "HH:MM-HH:MM" window in minutes since midnight.
type QuietWindow struct {
	Start int
	End   int
}

// ParseQuietHours reports false for empty or malformed windows, which
// callers treat as "never active".
func ParseQuietHours(raw string) (QuietWindow, bool) {
	m := quietHoursPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return QuietWindow{}, false
	}

	parts := make([]int, 4)
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return QuietWindow{}, false
		}
		parts[i] = n
	}
	sh, sm, eh, em := parts[0], parts[1], parts[2], parts[3]
	if sh > 23 || eh > 23 || sm > 59 || em > 59 {
		return QuietWindow{}, false
	}

	return QuietWindow{Start: sh*60 + sm, End: eh*60 + em}, true
}

// Contains reports whether the clock time of now falls inside the window.
// A window whose start is after its end wraps midnight.
func (w QuietWindow) Contains(now time.Time) bool {
	cur := now.Hour()*60 + now.Minute()
	if w.Start <= w.End {
		return w.Start <= cur && cur < w.End
	}
	return cur >= w.Start || cur < w.End
}

// InQuietHours evaluates a raw window string against now.
func InQuietHours(now time.Time, raw string) bool {
	w, ok := ParseQuietHours(raw)
	if !ok {
		return false
	}
	return w.Contains(now)
}
