package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// decodeJSON parses body keeping numbers as json.Number so that
// "1500" is mapped back as "1500" and not "1.5e+03".
func decodeJSON(body string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// lookup resolves a dotted path such as "data.balance" or "items.0.name".
func lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// stringify renders a JSON value as a session variable.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return fmt.Sprint(t), true
		}
		return strings.TrimSpace(buf.String()), true
	}
}

// MapResponse extracts the variables named by mapping (source path → variable)
// from a JSON body. Paths that do not resolve, or resolve to null, are skipped.
func MapResponse(body string, mapping map[string]string) (map[string]string, []string, error) {
	out := make(map[string]string, len(mapping))
	if len(mapping) == 0 {
		return out, nil, nil
	}
	doc, err := decodeJSON(body)
	if err != nil {
		return out, nil, fmt.Errorf("decode response: %w", err)
	}
	var skipped []string
	for path, name := range mapping {
		v, ok := lookup(doc, path)
		if !ok {
			skipped = append(skipped, path)
			continue
		}
		s, ok := stringify(v)
		if !ok {
			skipped = append(skipped, path)
			continue
		}
		out[name] = s
	}
	return out, skipped, nil
}
