package check

import "strings"

// ParamArity extracts a (min, max) accepted-argument range from a node's
// stored signature string for E005 arity checking. max is -1 when the
// signature carries a trailing rest/variadic parameter (no upper bound).
// ok is false when the signature carries no recognizable parameter list
// (e.g. a synthetic module node), in which case the caller skips the check.
func ParamArity(signature string) (min, max int, ok bool) {
	open := strings.IndexByte(signature, '(')
	if open < 0 {
		return 0, 0, false
	}
	depth := 0
	close := -1
	for i := open; i < len(signature); i++ {
		switch signature[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				close = i
			}
		}
		if close >= 0 {
			break
		}
	}
	if close < 0 {
		return 0, 0, false
	}
	inner := strings.TrimSpace(signature[open+1 : close])
	if inner == "" {
		return 0, 0, true
	}

	params := splitTopLevel(inner)
	variadic := false
	optional := 0
	required := 0
	for _, p := range params {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "...") || strings.HasPrefix(p, "*") || strings.Contains(p, "...") {
			variadic = true
			continue
		}
		if strings.Contains(p, "=") {
			optional++
			continue
		}
		required++
	}
	if variadic {
		return required, -1, true
	}
	return required, required + optional, true
}

// splitTopLevel splits a parameter list on commas that are not nested inside
// another paren/bracket/angle-bracket group (generics, default-value calls,
// tuple types).
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '(', '[', '<', '{':
			depth++
		case ')', ']', '>', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
