package webauthn

import (
	"crypto"
	"encoding/binary"
	"fmt"
	"strings"
)

// Flags represents the authenticator data flags byte (spec §3,
// "AuthenticationDataFlags").
//
// https://www.w3.org/TR/webauthn-3/#authdata-flags
type Flags byte

// UserPresent reports bit 0 (UP).
func (f Flags) UserPresent() bool { return byte(f)&1 != 0 }

// UserVerified reports bit 2 (UV).
func (f Flags) UserVerified() bool { return byte(f)&(1<<2) != 0 }

// BackupEligible reports bit 3 (BE).
func (f Flags) BackupEligible() bool { return byte(f)&(1<<3) != 0 }

// BackedUp reports bit 4 (BS).
func (f Flags) BackedUp() bool { return byte(f)&(1<<4) != 0 }

// AttestedCredentialData reports bit 6 (AT): attestation data follows the
// fixed-size authenticator data header.
func (f Flags) AttestedCredentialData() bool { return byte(f)&(1<<6) != 0 }

// Extensions reports bit 7 (ED): an extensions CBOR map follows.
func (f Flags) Extensions() bool { return byte(f)&(1<<7) != 0 }

func (f Flags) String() string {
	var vals []string
	if f.UserPresent() {
		vals = append(vals, "UP")
	}
	if f.UserVerified() {
		vals = append(vals, "UV")
	}
	if f.BackupEligible() {
		vals = append(vals, "BE")
	}
	if f.BackedUp() {
		vals = append(vals, "BS")
	}
	if f.AttestedCredentialData() {
		vals = append(vals, "AT")
	}
	if f.Extensions() {
		vals = append(vals, "ED")
	}
	if len(vals) == 0 {
		return "Flags()"
	}
	return fmt.Sprintf("Flags(%s)", strings.Join(vals, "|"))
}

// AuthenticatorData is the parsed form of the authData byte string embedded
// in an attestation object or returned alongside an assertion (spec §3).
//
// https://www.w3.org/TR/webauthn-3/#authenticator-data
type AuthenticatorData struct {
	// Raw is the unparsed authData bytes, needed verbatim as part of the
	// signed payload for both attestation (fido-u2f, packed) and assertion
	// signature verification.
	Raw []byte

	RPIDHash [32]byte
	Flags    Flags
	Counter  uint32

	// AttestedCredentialData is non-nil iff Flags.AttestedCredentialData().
	AttestedCredentialData *AttestationData

	// Extensions holds the raw extensions CBOR map bytes, non-nil iff
	// Flags.Extensions().
	Extensions []byte
}

// AttestationData is embedded in AuthenticatorData when the AT flag is set
// (spec §3, "AttestationData").
type AttestationData struct {
	AAGUID        AAGUID
	CredentialID  []byte
	COSEPublicKey []byte // raw CBOR bytes, re-decoded by format verifiers that need alg-only access
	Algorithm     Algorithm
	PublicKey     crypto.PublicKey
}

// ParseAuthenticatorData parses the fixed-size header, optional attested
// credential data, and optional extensions out of raw authData bytes. It
// does not compare RPIDHash against an expected value; that comparison is a
// separate, spec-numbered pipeline step (spec §4.6 step 9, §4.7 step 11) so
// it can be classified and reported independently of structural decode
// failures.
func ParseAuthenticatorData(b []byte) (*AuthenticatorData, error) {
	raw := b
	if len(b) < 32 {
		return nil, ErrMalformedInput.WithDetails("authenticator data too short for rpIdHash")
	}
	var ad AuthenticatorData
	ad.Raw = raw
	copy(ad.RPIDHash[:], b[:32])
	b = b[32:]

	if len(b) < 1 {
		return nil, ErrMalformedInput.WithDetails("authenticator data too short for flags")
	}
	ad.Flags = Flags(b[0])
	b = b[1:]

	if len(b) < 4 {
		return nil, ErrMalformedInput.WithDetails("authenticator data too short for signature counter")
	}
	ad.Counter = binary.BigEndian.Uint32(b[:4])
	b = b[4:]

	if ad.Flags.AttestedCredentialData() {
		data, rest, err := parseAttestationData(b)
		if err != nil {
			return nil, err
		}
		ad.AttestedCredentialData = data
		b = rest
	}

	if ad.Flags.Extensions() {
		if len(b) == 0 {
			return nil, ErrMalformedInput.WithDetails("ED flag set but no extensions data present")
		}
		// Consume exactly one CBOR item; anything left over is fatal.
		var discard interface{}
		rest, err := cborDecodeOne(b, &discard)
		if err != nil {
			return nil, err
		}
		ad.Extensions = b[:len(b)-len(rest)]
		b = rest
	}

	if len(b) != 0 {
		return nil, ErrMalformedInput.WithDetails("trailing bytes after authenticator data")
	}

	return &ad, nil
}

// parseAttestationData parses the AAGUID, credential ID, and COSE_Key out
// of the front of b, returning the unconsumed remainder (which may contain
// an extensions CBOR map, handled by the caller).
func parseAttestationData(b []byte) (*AttestationData, []byte, error) {
	if len(b) < 16 {
		return nil, nil, ErrMalformedInput.WithDetails("attested credential data too short for AAGUID")
	}
	aaguid, err := ParseAAGUID(b[:16])
	if err != nil {
		return nil, nil, err
	}
	b = b[16:]

	if len(b) < 2 {
		return nil, nil, ErrMalformedInput.WithDetails("attested credential data too short for credential ID length")
	}
	credIDLen := int(binary.BigEndian.Uint16(b[:2]))
	b = b[2:]

	if len(b) < credIDLen {
		return nil, nil, ErrMalformedInput.WithDetails("attested credential data too short for declared credential ID length")
	}
	credID := b[:credIDLen]
	b = b[credIDLen:]

	var rawKey interface{}
	rest, err := cborDecodeOne(b, &rawKey)
	if err != nil {
		return nil, nil, ErrMalformedInput.WithDetails("invalid COSE public key").WithCause(err)
	}
	coseBytes := b[:len(b)-len(rest)]

	key, err := decodeCOSEKey(coseBytes)
	if err != nil {
		return nil, nil, err
	}

	return &AttestationData{
		AAGUID:        aaguid,
		CredentialID:  credID,
		COSEPublicKey: coseBytes,
		Algorithm:     key.Algorithm,
		PublicKey:     key.Public,
	}, rest, nil
}
