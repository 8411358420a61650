package policy

import (
	"strconv"
	"strings"
)

// Overrides is the per-tenant policy configuration. Every field is optional
// and its zero value means "no restriction".
type Overrides struct {
	Allowlist  []string
	Blocklist  []string
	DomainCaps map[string]int
	QuietHours string
}

// OverridesFromMap reads the recognized keys from a loosely typed config
// section. Keys with unexpected types are ignored rather than rejected.
func OverridesFromMap(raw map[string]any) Overrides {
	var o Overrides
	if raw == nil {
		return o
	}

	o.Allowlist = stringList(raw["allowlist"])
	o.Blocklist = stringList(raw["blocklist"])
	o.DomainCaps = domainCaps(raw["domain_caps"])
	if qh, ok := raw["quiet_hours"].(string); ok {
		o.QuietHours = qh
	}
	return o
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(list) == "" {
			return nil
		}
		return strings.Split(list, ",")
	}
	return nil
}

func domainCaps(v any) map[string]int {
	caps := make(map[string]int)
	switch m := v.(type) {
	case map[string]int:
		for k, cap := range m {
			caps[k] = cap
		}
	case map[string]any:
		for k, raw := range m {
			if cap, ok := toInt(raw); ok {
				caps[k] = cap
			}
		}
	}
	if len(caps) == 0 {
		return nil
	}
	return caps
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}
