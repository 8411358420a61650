// Package render turns a variant and a contact into message text.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

var ErrUnresolved = errors.New("unresolved placeholder")

const (
	defaultSubjectPrefix = "Quick question"
	defaultPitch         = "I wanted to share something I think will help your team."
	signOff              = "Best,\nYour team"
)

// Result carries the rendered text and which parts used the fallback.
type Result struct {
	Subject         string
	Body            string
	SubjectFallback bool
	BodyFallback    bool
}

func (r Result) FellBack() bool {
	return r.SubjectFallback || r.BodyFallback
}

// RenderVariant expands {first_name}, {last_name} and {email}. A part whose
// template cannot be fully resolved falls back: the subject to the variant
// name, the body to a short greeting followed by the variant name.
func RenderVariant(c domain.Contact, v domain.Variant) Result {
	fields := map[string]domain.Optional[string]{
		"first_name": nonEmpty(c.FirstName),
		"last_name":  nonEmpty(c.LastName),
		"email":      nonEmpty(c.Email),
	}

	var res Result
	subject, err := Expand(v.SubjectTemplate, fields)
	if err != nil {
		subject = v.Name
		res.SubjectFallback = true
	}
	body, err := Expand(v.BodyTemplate, fields)
	if err != nil {
		body = fmt.Sprintf("Hi %s,\n\n%s", c.DisplayName(), v.Name)
		res.BodyFallback = true
	}
	res.Subject = subject
	res.Body = body
	return res
}

// RenderDefault is used when no catalog variant is available.
func RenderDefault(c domain.Contact, brandVoice, offer string) (string, string) {
	prefix := defaultSubjectPrefix
	if brandVoice != "" {
		prefix = strings.Split(brandVoice, ",")[0]
	}
	name := c.DisplayName()
	subject := fmt.Sprintf("%s for %s", prefix, name)

	lines := make([]string, 0, 4)
	if brandVoice != "" {
		lines = append(lines, "Tone: "+brandVoice)
	}
	lines = append(lines, fmt.Sprintf("Hi %s,", name))
	if offer != "" {
		lines = append(lines, offer)
	} else {
		lines = append(lines, defaultPitch)
	}
	lines = append(lines, signOff)

	return subject, strings.Join(lines, "\n\n")
}

// Expand substitutes {name} placeholders. "{{" and "}}" produce literal
// braces. Unknown names, absent values and unbalanced braces return
// ErrUnresolved.
func Expand(tpl string, fields map[string]domain.Optional[string]) (string, error) {
	var b strings.Builder
	b.Grow(len(tpl))

	for i := 0; i < len(tpl); i++ {
		ch := tpl[i]
		switch ch {
		case '{':
			if i+1 < len(tpl) && tpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed brace at %d", ErrUnresolved, i)
			}
			name := tpl[i+1 : i+1+end]
			value, ok := fields[name]
			if !ok {
				return "", fmt.Errorf("%w: unknown field %q", ErrUnresolved, name)
			}
			v, present := value.Get()
			if !present {
				return "", fmt.Errorf("%w: %s is empty", ErrUnresolved, name)
			}
			b.WriteString(v)
			i += end + 1
		case '}':
			if i+1 < len(tpl) && tpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: stray brace at %d", ErrUnresolved, i)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), nil
}

func nonEmpty(o domain.Optional[string]) domain.Optional[string] {
	if v, ok := o.Get(); ok && strings.TrimSpace(v) != "" {
		return o
	}
	return domain.None[string]()
}
