// ABOUTME: Query-string encoding of canonicalized structures for signature input
// ABOUTME: Reproduces the partner verifier's encoding quirks, including the %2B fixup

package canonical

import (
	"net/url"
	"strconv"
	"strings"
)

// Encode renders a canonicalized structure as a URL-encoded query string.
// Nested maps use bracket-key notation (key[subkey]), arrays bracket-index
// notation (key[0]). Ordering follows the Canonicalizer exactly; Encode never
// re-sorts.
//
// literalKeys names keys whose values the partner does not URL-decode before
// re-hashing; those values are emitted raw except for the %2B fixup.
func Encode(v any, literalKeys map[string]bool) string {
	var pairs []string
	appendPairs(&pairs, "", v, literalKeys, false)
	return strings.Join(pairs, "&")
}

func appendPairs(pairs *[]string, prefix string, v any, literalKeys map[string]bool, literal bool) {
	switch val := v.(type) {
	case Map:
		for _, p := range val {
			key := escape(p.Key)
			if prefix != "" {
				key = prefix + "[" + key + "]"
			}
			appendPairs(pairs, key, p.Value, literalKeys, literal || literalKeys[p.Key])
		}
	case []any:
		for i, e := range val {
			key := prefix + "[" + strconv.Itoa(i) + "]"
			appendPairs(pairs, key, e, literalKeys, literal)
		}
	default:
		s := formatScalar(val)
		if !literal {
			s = escape(s)
		} else {
			s = fixupPlus(s)
		}
		*pairs = append(*pairs, prefix+"="+s)
	}
}

// escape percent-encodes a key or value per form rules, then applies the two
// adjustments the partner's verifier expects: spaces stay percent-encoded
// (%20, not +) and encoded plus signs (%2B) are rewritten back to a literal +.
// The latter offsets a decoding bug in the partner's own signature check and
// must be reproduced exactly for interoperability.
func escape(s string) string {
	out := url.QueryEscape(s)
	out = strings.ReplaceAll(out, "+", "%20")
	return fixupPlus(out)
}

func fixupPlus(s string) string {
	return strings.ReplaceAll(s, "%2B", "+")
}
