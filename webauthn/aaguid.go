package webauthn

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AAGUID identifies an authenticator model. It is the 16 raw bytes embedded
// in attestation data, backed by google/uuid so it round-trips through the
// dash-formatted string representation used by FIDO Metadata Service
// entries (e.g. "00000000-0000-0000-0000-000000000000") without hand-rolled
// hex formatting.
//
// https://www.w3.org/TR/webauthn-3/#aaguid
type AAGUID uuid.UUID

// NilAAGUID is the all-zero AAGUID reported by authenticators that don't
// attest to a specific model.
var NilAAGUID = AAGUID(uuid.Nil)

// ParseAAGUID parses the 16 raw bytes from AttestationData into an AAGUID.
func ParseAAGUID(b []byte) (AAGUID, error) {
	if len(b) != 16 {
		return AAGUID{}, ErrMalformedInput.WithDetails("invalid AAGUID length").
			WithInfo(fmt.Sprintf("want 16 bytes, got %d", len(b)))
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return AAGUID{}, ErrMalformedInput.WithDetails("invalid AAGUID").WithCause(err)
	}
	return AAGUID(id), nil
}

// ParseAAGUIDString parses a dash-formatted AAGUID string, as found in FIDO
// Metadata Service BLOB entries ("aaguid" field).
func ParseAAGUIDString(s string) (AAGUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AAGUID{}, ErrMalformedInput.WithDetails("invalid AAGUID string").WithCause(err)
	}
	return AAGUID(id), nil
}

// Bytes returns the 16 raw bytes of the AAGUID.
func (a AAGUID) Bytes() []byte {
	u := uuid.UUID(a)
	return u[:]
}

// String returns the dash-formatted representation, e.g.
// "00000000-0000-0000-0000-000000000000".
func (a AAGUID) String() string {
	return uuid.UUID(a).String()
}

// MarshalJSON implements json.Marshaler using the dash-formatted string.
func (a AAGUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(a).String())
}

// UnmarshalJSON implements json.Unmarshaler using the dash-formatted string.
func (a *AAGUID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*a = AAGUID(u)
	return nil
}
