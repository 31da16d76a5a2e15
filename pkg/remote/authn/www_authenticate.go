package authn

import (
	"fmt"
	"slices"
	"strings"
)

type WwwAuthenticate struct {
	AuthType string
	Params   map[string]string
}

func (a *WwwAuthenticate) String() string {
	b := &strings.Builder{}
	b.WriteString(a.AuthType)

	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for i, k := range keys {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s=%q", k, a.Params[k])
	}

	return b.String()
}

// ParseWwwAuthenticate parses a WWW-Authenticate challenge header.
//
// Params may be quoted or bare, separated by commas or spaces. Commas inside
// quoted values are kept as part of the value.
func ParseWwwAuthenticate(s string) (*WwwAuthenticate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("invalid www-authenticate: empty challenge")
	}

	authType, rest, _ := strings.Cut(s, " ")
	if strings.Contains(authType, "=") {
		return nil, fmt.Errorf("invalid www-authenticate: missing auth type in %q", s)
	}

	a := &WwwAuthenticate{
		AuthType: authType,
		Params:   map[string]string{},
	}

	for i := 0; i < len(rest); {
		for i < len(rest) && (rest[i] == ' ' || rest[i] == ',') {
			i++
		}
		if i >= len(rest) {
			break
		}

		eq := strings.IndexByte(rest[i:], '=')
		if eq < 0 {
			return nil, fmt.Errorf("invalid www-authenticate: malformed param in %q", s)
		}
		key := strings.TrimSpace(rest[i : i+eq])
		i += eq + 1

		value := ""
		if i < len(rest) && rest[i] == '"' {
			i++
			end := strings.IndexByte(rest[i:], '"')
			if end < 0 {
				return nil, fmt.Errorf("invalid www-authenticate: unterminated quote in %q", s)
			}
			value = rest[i : i+end]
			i += end + 1
		} else {
			end := strings.IndexAny(rest[i:], " ,")
			if end < 0 {
				end = len(rest) - i
			}
			value = rest[i : i+end]
			i += end
		}

		a.Params[key] = value
	}

	return a, nil
}
