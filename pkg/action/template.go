package action

import (
	"net/url"
	"regexp"

	"github.com/aretw0/ussdflow/pkg/domain"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.\-]*)\}`)

// Interpolate replaces {name} placeholders in s with values from vars.
// escape, when non-nil, is applied to each substituted value.
// The first missing name is reported as *domain.UnresolvedVariableError.
func Interpolate(s string, vars map[string]string, escape func(string) string) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		if escape != nil {
			return escape(v)
		}
		return v
	})
	if missing != "" {
		return "", &domain.UnresolvedVariableError{Name: missing}
	}
	return out, nil
}

// Expand replaces {name} placeholders using lookup. Names lookup does not
// know are replaced by the empty string.
func Expand(s string, lookup func(name string) (string, bool)) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		v, _ := lookup(m[1 : len(m)-1])
		return v
	})
}

// Placeholders lists the variable names referenced by s, in order, with duplicates.
func Placeholders(s string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}

// resolveBody walks a decoded JSON template and interpolates every string leaf.
// Keys are not interpolated.
func resolveBody(v any, vars map[string]string) (any, error) {
	switch t := v.(type) {
	case string:
		return Interpolate(t, vars, nil)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			r, err := resolveBody(child, vars)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			r, err := resolveBody(child, vars)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func escapePath(s string) string { return url.PathEscape(s) }
