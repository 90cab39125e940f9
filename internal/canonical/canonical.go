// ABOUTME: Deterministic canonicalization of JSON-like values for request signing
// ABOUTME: Sorts map keys and array elements so equal-content payloads serialize identically

package canonical

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Pair is a single key/value entry in an ordered map.
type Pair struct {
	Key   string
	Value any
}

// Map is the ordered form a JSON object takes after canonicalization.
// Entries are sorted ascending by key (Unicode code point order).
type Map []Pair

// Canonicalize converts a decoded JSON-like value (maps, slices, scalars) into
// a deterministic ordered form. Object keys are sorted ascending; array
// elements are sorted by their stringified canonical form, because the partner
// reference implementation sorts too and array order must not affect the
// signature. Scalars pass through unchanged. Empty objects are preserved as an
// empty Map rather than dropped.
func Canonicalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Map, 0, len(val))
		for _, k := range keys {
			out = append(out, Pair{Key: k, Value: Canonicalize(val[k])})
		}
		return out
	case []any:
		elems := make([]any, len(val))
		for i, e := range val {
			elems[i] = Canonicalize(e)
		}
		sort.SliceStable(elems, func(i, j int) bool {
			return stringify(elems[i]) < stringify(elems[j])
		})
		return elems
	default:
		return v
	}
}

// stringify renders a canonicalized value as a stable comparison key for array
// element sorting. The exact format only has to be deterministic.
func stringify(v any) string {
	switch val := v.(type) {
	case Map:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = p.Key + ":" + stringify(p.Value)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = stringify(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return formatScalar(v)
	}
}

// formatScalar renders a scalar the way the partner's query-string builder
// does: numbers without a trailing fraction, booleans as true/false, null as
// the empty string.
func formatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
