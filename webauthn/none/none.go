// Package none implements the "none" attestation statement format (spec
// §4.4.1): an authenticator that declines to provide attestation.
package none

import (
	"crypto/x509"

	"github.com/fidocore/webauthn"
)

func init() {
	webauthn.RegisterFormat("none", verifier{})
}

type verifier struct{}

// Classify always reports AttestationNone: the format carries no signature
// or certificate to examine.
func (verifier) Classify(obj *webauthn.AttestationObject) (webauthn.AttestationType, error) {
	return webauthn.AttestationNone, nil
}

// VerifySignature always succeeds. The spec requires the attestation
// statement to be an empty CBOR map but does not require enforcing that
// bit-exactly (spec §4.4.1); a malformed-but-present attStmt for this
// format is not a security concern since nothing downstream trusts it.
func (verifier) VerifySignature(obj *webauthn.AttestationObject, clientDataHash []byte) error {
	return nil
}

// TrustPath is always empty: "none" attestations have no certificate.
func (verifier) TrustPath(obj *webauthn.AttestationObject) ([]*x509.Certificate, error) {
	return nil, nil
}
