// Package canonical implements the deterministic serialization the partner
// CRMs sign requests over.
//
// Both integration partners compute request signatures over a URL-encoded
// rendering of the JSON payload. Their reference implementations sort object
// keys and array elements before encoding, so two structurally equal payloads
// that differ only in ordering must produce byte-identical canonical strings.
// Canonicalize produces the ordered structure; Encode renders it.
//
// The encoder reproduces two quirks of the partner-side verifier on purpose:
//
//   - Encoded plus signs (%2B) are rewritten back to a literal "+" after
//     percent-encoding, offsetting a decoding bug in the partner's re-hash.
//   - A configured set of "literal" keys is emitted without percent-encoding
//     at all (except the same fixup), because the partner does not URL-decode
//     those fields before hashing.
//
// Neither quirk is negotiable; changing them breaks signature verification
// against live partner traffic.
package canonical
