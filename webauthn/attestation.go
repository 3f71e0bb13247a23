package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// AttestationType is the trust classification WebAuthn assigns to an
// attestation statement once its signature has been verified (spec
// GLOSSARY). Only NONE, SELF_ATTESTATION, and BASIC are produced by the
// three implemented formats on success; no verifier in this module returns
// ATTCA, and packed reports ECDAA only together with an UnsupportedFormat
// error.
type AttestationType int

const (
	AttestationNone AttestationType = iota
	AttestationSelf
	AttestationBasic
	AttestationAttCA
	AttestationECDAA
)

func (t AttestationType) String() string {
	switch t {
	case AttestationNone:
		return "NONE"
	case AttestationSelf:
		return "SELF_ATTESTATION"
	case AttestationBasic:
		return "BASIC"
	case AttestationAttCA:
		return "ATTCA"
	case AttestationECDAA:
		return "ECDAA"
	default:
		return fmt.Sprintf("AttestationType(%d)", int(t))
	}
}

// AttestationObject is the decoded form of the CBOR attestationObject
// returned by navigator.credentials.create() (spec §3).
//
// https://www.w3.org/TR/webauthn-3/#attestation-object
type AttestationObject struct {
	// Format names the attestation statement format ("none", "fido-u2f",
	// "packed", or an unrecognized value). Compared USASCII
	// case-sensitive (spec §4.4.4): "Fido-U2F" is a distinct, unsupported
	// value from "fido-u2f".
	Format string

	// AttStmt is the raw, un-decoded attStmt CBOR map. Each format
	// verifier decodes it according to its own schema via DecodeAttStmt.
	AttStmt []byte

	// AuthenticatorData is the parsed authData.
	AuthenticatorData *AuthenticatorData
}

// ParseAttestationObject CBOR-decodes an attestationObject and parses its
// embedded authData (spec §4.6 step 8).
func ParseAttestationObject(raw []byte) (*AttestationObject, error) {
	cborObj, err := decodeAttestationObjectCBOR(raw)
	if err != nil {
		return nil, err
	}
	authData, err := ParseAuthenticatorData(cborObj.AuthData)
	if err != nil {
		return nil, err
	}
	return &AttestationObject{
		Format:            cborObj.Fmt,
		AttStmt:           []byte(cborObj.AttStmt),
		AuthenticatorData: authData,
	}, nil
}

// DecodeAttStmt decodes an attStmt CBOR map into a map keyed by its
// (always text-string) field names, e.g. "alg", "sig", "x5c". This is the
// primitive format verifiers (none/fidou2f/packed) use to read their own
// statement fields; exported so those subpackages don't need their own
// CBOR dependency.
func DecodeAttStmt(raw []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, ErrMalformedInput.WithDetails("invalid attestation statement cbor").WithCause(err)
	}
	return m, nil
}

// DecodeCOSEKey decodes a raw COSE_Key CBOR map into an algorithm and
// public key. Exported for format verifiers that need to re-derive a
// credential's public key independently of AttestationData (e.g. packed
// self-attestation, which signs with the credential's own key).
func DecodeCOSEKey(raw []byte) (Algorithm, crypto.PublicKey, error) {
	key, err := decodeCOSEKey(raw)
	if err != nil {
		return 0, nil, err
	}
	return key.Algorithm, key.Public, nil
}

// VerifySignature validates a raw signature for a given COSE algorithm,
// dispatching to the matching crypto/ecdsa, crypto/ed25519, or crypto/rsa
// verification routine. No ecosystem library in this pack's retrieval set
// replaces stdlib asymmetric-crypto verification (see SPEC_FULL.md); this is
// the one piece of the teacher kept nearly verbatim.
func VerifySignature(pub crypto.PublicKey, alg Algorithm, data, sig []byte) error {
	switch alg {
	case ES256:
		ecdsaPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return ErrContractViolation.WithDetails(fmt.Sprintf("invalid public key type for ES256: %T", pub))
		}
		h := sha256.Sum256(data)
		if !ecdsa.VerifyASN1(ecdsaPub, h[:], sig) {
			return ErrContractViolation.WithDetails("invalid ES256 signature")
		}
	case ES384:
		ecdsaPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return ErrContractViolation.WithDetails(fmt.Sprintf("invalid public key type for ES384: %T", pub))
		}
		h := sha512.Sum384(data)
		if !ecdsa.VerifyASN1(ecdsaPub, h[:], sig) {
			return ErrContractViolation.WithDetails("invalid ES384 signature")
		}
	case ES512:
		ecdsaPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return ErrContractViolation.WithDetails(fmt.Sprintf("invalid public key type for ES512: %T", pub))
		}
		h := sha512.Sum512(data)
		if !ecdsa.VerifyASN1(ecdsaPub, h[:], sig) {
			return ErrContractViolation.WithDetails("invalid ES512 signature")
		}
	case EdDSA:
		edPub, ok := pub.(ed25519.PublicKey)
		if !ok {
			return ErrContractViolation.WithDetails(fmt.Sprintf("invalid public key type for EdDSA: %T", pub))
		}
		if !ed25519.Verify(edPub, data, sig) {
			return ErrContractViolation.WithDetails("invalid EdDSA signature")
		}
	case RS256:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return ErrContractViolation.WithDetails(fmt.Sprintf("invalid public key type for RS256: %T", pub))
		}
		h := sha256.Sum256(data)
		if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, h[:], sig); err != nil {
			return ErrContractViolation.WithDetails("invalid RS256 signature").WithCause(err)
		}
	case RS384:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return ErrContractViolation.WithDetails(fmt.Sprintf("invalid public key type for RS384: %T", pub))
		}
		h := sha512.Sum384(data)
		if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA384, h[:], sig); err != nil {
			return ErrContractViolation.WithDetails("invalid RS384 signature").WithCause(err)
		}
	case RS512:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return ErrContractViolation.WithDetails(fmt.Sprintf("invalid public key type for RS512: %T", pub))
		}
		h := sha512.Sum512(data)
		if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA512, h[:], sig); err != nil {
			return ErrContractViolation.WithDetails("invalid RS512 signature").WithCause(err)
		}
	default:
		return ErrUnsupportedFormat.WithDetails(fmt.Sprintf("unsupported signing algorithm %s", alg))
	}
	return nil
}

// Verifier is implemented by one type per supported attestation statement
// format (spec §4.4). Classify, VerifySignature, and TrustPath correspond
// exactly to the three operations every format verifier exposes.
type Verifier interface {
	// Classify determines the AttestationType represented by obj, without
	// verifying the signature.
	Classify(obj *AttestationObject) (AttestationType, error)

	// VerifySignature verifies the attestation signature over
	// (obj.AuthenticatorData.Raw, clientDataHash), failing with a
	// KindContractViolation error on any mismatch.
	VerifySignature(obj *AttestationObject, clientDataHash []byte) error

	// TrustPath returns the X.509 certificate chain backing this
	// attestation, or nil if the format carries no certificate (e.g.
	// "none" or self-attestation).
	TrustPath(obj *AttestationObject) ([]*x509.Certificate, error)
}

var (
	formatRegistryMu sync.RWMutex
	formatRegistry   = map[string]Verifier{}
)

// RegisterFormat registers a Verifier for an attestation statement format
// name. Format packages (none, fidou2f, packed) call this from an init()
// func, mirroring the protocol.RegisterFormat convention used by
// keycloud-webauthn for the same purpose; callers of this module blank-
// import the format packages they want supported:
//
//	import _ "github.com/fidocore/webauthn/packed"
//
// Registration happens once at program startup, before any ceremony runs,
// so the registry is safe to read concurrently thereafter without
// additional locking on the hot path (the mutex here only guards the rare
// case of registration happening after init, e.g. in tests).
func RegisterFormat(name string, v Verifier) {
	formatRegistryMu.Lock()
	defer formatRegistryMu.Unlock()
	formatRegistry[name] = v
}

// LookupFormat returns the Verifier registered for name, or an
// UnsupportedFormat error if none is registered. Comparison is an exact Go
// string (map key) compare, which is USASCII case-sensitive by
// construction (spec §4.4.4).
func LookupFormat(name string) (Verifier, error) {
	formatRegistryMu.RLock()
	defer formatRegistryMu.RUnlock()
	v, ok := formatRegistry[name]
	if !ok {
		return nil, ErrUnsupportedFormat.WithDetails(fmt.Sprintf("unsupported attestation format %q", name))
	}
	return v, nil
}
