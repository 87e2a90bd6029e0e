package authn

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type WwwAuthenticate struct {
	AuthType string
	Params   map[string]string
}

func (a *WwwAuthenticate) String() string {
	s := &strings.Builder{}
	s.WriteString(a.AuthType)

	for i, k := range slices.Sorted(maps.Keys(a.Params)) {
		if i > 0 {
			s.WriteString(",")
		}
		s.WriteString(" ")
		s.WriteString(k)
		s.WriteString("=")
		s.WriteString(fmt.Sprintf("%q", a.Params[k]))
	}

	return s.String()
}

func ParseWwwAuthenticate(s string) (*WwwAuthenticate, error) {
	authType, rest, _ := strings.Cut(strings.TrimSpace(s), " ")
	if authType == "" || strings.Contains(authType, "=") {
		return nil, fmt.Errorf("invalid www-authenticate %q", s)
	}

	a := &WwwAuthenticate{
		AuthType: authType,
		Params:   map[string]string{},
	}

	for _, part := range splitParams(rest) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid www-authenticate param %q", part)
		}
		a.Params[k] = strings.Trim(v, `"`)
	}

	return a, nil
}

// params are separated by commas or spaces, with values optionally quoted;
// separators inside quotes do not split
func splitParams(s string) []string {
	parts := make([]string, 0)

	field := &strings.Builder{}
	quoted := false

	for _, c := range s {
		switch {
		case c == '"':
			quoted = !quoted
			field.WriteRune(c)
		case (c == ',' || c == ' ') && !quoted:
			if field.Len() > 0 {
				parts = append(parts, field.String())
				field.Reset()
			}
		default:
			field.WriteRune(c)
		}
	}

	if field.Len() > 0 {
		parts = append(parts, field.String())
	}

	return parts
}
