package webauthn

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// CeremonyType is the "type" field of CollectedClientData.
type CeremonyType string

const (
	CreateCeremony CeremonyType = "webauthn.create"
	AssertCeremony CeremonyType = "webauthn.get"
)

// TokenBindingStatus is the "tokenBinding.status" field of
// CollectedClientData (spec §3, "TokenBindingInfo").
type TokenBindingStatus string

const (
	TokenBindingPresent      TokenBindingStatus = "present"
	TokenBindingSupported    TokenBindingStatus = "supported"
	TokenBindingNotSupported TokenBindingStatus = "not-supported"
)

// TokenBindingInfo is the client-reported Token Binding state.
type TokenBindingInfo struct {
	Status TokenBindingStatus `json:"status"`
	ID     string             `json:"id,omitempty"`
}

// base64URLChallenge decodes the Base64URL-encoded "challenge" member of
// clientDataJSON, accepting both padded and unpadded input per spec §4.1.
type base64URLChallenge []byte

func (c base64URLChallenge) Equal(b []byte) bool {
	return subtle.ConstantTimeCompare([]byte(c), b) == 1
}

func (c *base64URLChallenge) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("challenge is not a JSON string: %w", err)
	}
	data, err := decodeBase64URL(s)
	if err != nil {
		return err
	}
	*c = base64URLChallenge(data)
	return nil
}

// decodeBase64URL decodes RFC 4648 §5 Base64URL, unpadded or padded.
func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// CollectedClientData is the parsed form of clientDataJSON (spec §3).
// Challenge, Origin, and Type are mandatory; constructing one from JSON
// missing any of them fails with KindMalformedInput.
//
// https://www.w3.org/TR/webauthn-3/#sec-client-data
type CollectedClientData struct {
	Type         CeremonyType       `json:"type"`
	Challenge    base64URLChallenge `json:"challenge"`
	Origin       string             `json:"origin"`
	TokenBinding *TokenBindingInfo  `json:"tokenBinding,omitempty"`

	// Client extension results are not decoded from clientDataJSON. The
	// field name in the wire format varies across client implementations,
	// so callers pass the client extension identifiers for the §4.3
	// extensions check explicitly (ClientExtensionIDs on the request).
}

// parseClientData JSON-decodes raw clientDataJSON bytes, failing with
// KindMalformedInput on invalid JSON or missing mandatory fields.
func parseClientData(raw []byte) (*CollectedClientData, error) {
	var cd CollectedClientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return nil, ErrMalformedInput.WithDetails("invalid clientDataJSON").WithCause(err)
	}
	if cd.Type == "" {
		return nil, ErrMalformedInput.WithDetails("clientDataJSON missing type")
	}
	if cd.Origin == "" {
		return nil, ErrMalformedInput.WithDetails("clientDataJSON missing origin")
	}
	if cd.Challenge == nil {
		return nil, ErrMalformedInput.WithDetails("clientDataJSON missing challenge")
	}
	return &cd, nil
}

// checkCeremonyType verifies C.type against the expected ceremony (spec
// §4.6 step 3 / §4.7 step 7), exact and case-sensitive.
func checkCeremonyType(cd *CollectedClientData, want CeremonyType) error {
	if cd.Type != want {
		return ErrContractViolation.WithDetails("unexpected ceremony type").
			WithInfo(fmt.Sprintf("want %q, got %q", want, cd.Type))
	}
	return nil
}

// checkChallenge verifies C.challenge against the stored challenge (spec
// §4.6 step 4 / §4.7 step 8), byte-equal after Base64URL decode.
func checkChallenge(cd *CollectedClientData, want []byte) error {
	if !cd.Challenge.Equal(want) {
		return ErrContractViolation.WithDetails("challenge mismatch")
	}
	return nil
}

// checkOrigin verifies C.origin against the configured RP origins (spec
// §4.6 step 5 / §4.7 step 9), compared verbatim.
func checkOrigin(cd *CollectedClientData, allowed []string) error {
	for _, o := range allowed {
		if cd.Origin == o {
			return nil
		}
	}
	return ErrContractViolation.WithDetails("origin not allowed").
		WithInfo(fmt.Sprintf("got %q", cd.Origin))
}

// clientDataHash computes SHA-256(clientDataJSON) (spec §4.6 step 7 / §4.7
// step 15), the hash mixed into every attestation and assertion signature.
func clientDataHash(raw []byte) [32]byte {
	return sha256.Sum256(raw)
}

// checkTokenBinding implements the pure decision table of spec §4.2. Both
// inputs are optional: client is the client-reported TokenBindingInfo (nil
// if the clientDataJSON omitted "tokenBinding"); rpBindingID is the RP's
// own Token Binding identifier for the connection ("" if the RP has none,
// e.g. no Token Binding support or a request arriving without TB).
//
// The decision table is total: every (client, rpBindingID) pair reaches
// exactly one outcome. A "present" status without an id fails regardless of
// the RP state, and a status outside the three known values fails as well.
func checkTokenBinding(client *TokenBindingInfo, rpBindingID string) error {
	rpSet := rpBindingID != ""

	if client == nil {
		if rpSet {
			return ErrContractViolation.WithDetails("RP set but client absent")
		}
		return nil
	}

	switch client.Status {
	case TokenBindingSupported, TokenBindingNotSupported:
		if rpSet {
			return ErrContractViolation.WithDetails("RP set but client does not use token binding")
		}
		return nil
	case TokenBindingPresent:
		if client.ID == "" {
			return ErrContractViolation.WithDetails("missing token binding id")
		}
		if !rpSet {
			return ErrContractViolation.WithDetails("client set token binding but RP absent")
		}
		if client.ID != rpBindingID {
			return ErrContractViolation.WithDetails("token binding id mismatch")
		}
		return nil
	default:
		return ErrContractViolation.WithDetails("unrecognized token binding status").
			WithInfo(fmt.Sprintf("status=%q", client.Status))
	}
}
