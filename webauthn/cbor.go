package webauthn

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"
)

// cborDecodeOne decodes a single canonical CBOR item from the front of b and
// returns the decoded value together with the unconsumed remainder of b.
//
// Authenticator data containing attestation data uses a concatenated
// layout, not a wrapping array: a COSE_Key map followed, optionally, by an
// extensions CBOR map. This mirrors the teacher's internal/cbor contract of
// "read one item, return remaining byte count" so callers can distinguish a
// legitimate trailing extensions item from stray trailing bytes, which must
// be fatal.
func cborDecodeOne(b []byte, v interface{}) (rest []byte, err error) {
	dec := cbor.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(v); err != nil {
		return nil, ErrMalformedInput.WithDetails("invalid cbor data").WithCause(err)
	}
	n := dec.NumBytesRead()
	return b[n:], nil
}

// cborRawAttestationObject is the wire shape of an attestationObject CBOR
// map (spec §3, "AttestationObject"). attStmt is kept as a raw message so
// the format-specific verifier (none/fidou2f/packed) can decode it itself.
type cborRawAttestationObject struct {
	Fmt      string          `cbor:"fmt"`
	AuthData []byte          `cbor:"authData"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
}

func decodeAttestationObjectCBOR(b []byte) (*cborRawAttestationObject, error) {
	var raw cborRawAttestationObject
	dec := cbor.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&raw); err != nil {
		return nil, ErrMalformedInput.WithDetails("invalid attestation object cbor").WithCause(err)
	}
	if n := dec.NumBytesRead(); n != len(b) {
		return nil, ErrMalformedInput.WithDetails("trailing bytes after attestation object")
	}
	if len(raw.AuthData) == 0 {
		return nil, ErrMalformedInput.WithDetails("attestation object missing authData")
	}
	return &raw, nil
}

// decodeCBORMap decodes a CBOR map into a generic map keyed by its natural
// Go representation: string keys, int64 for negative integer keys, and
// uint64 for non-negative integer keys (see coseLookup).
func decodeCBORMap(b []byte) (map[interface{}]interface{}, error) {
	var m map[interface{}]interface{}
	if err := cbor.Unmarshal(b, &m); err != nil {
		return nil, ErrMalformedInput.WithDetails("invalid cbor map").WithCause(err)
	}
	return m, nil
}
