// Package fidou2f implements the "fido-u2f" attestation statement format
// (spec §4.4.2): the attestation statement produced by FIDO U2F security
// keys operating in the WebAuthn/CTAP1 compatibility mode.
package fidou2f

import (
	"crypto/ecdsa"
	"crypto/x509"

	"github.com/fidocore/webauthn"
)

func init() {
	webauthn.RegisterFormat("fido-u2f", verifier{})
}

type verifier struct{}

func attestationCert(obj *webauthn.AttestationObject) (*x509.Certificate, []byte, error) {
	stmt, err := webauthn.DecodeAttStmt(obj.AttStmt)
	if err != nil {
		return nil, nil, err
	}
	sig, ok := stmt["sig"].([]byte)
	if !ok {
		return nil, nil, webauthn.ErrMalformedInput.WithDetails("fido-u2f attStmt missing sig")
	}
	x5cRaw, ok := stmt["x5c"].([]interface{})
	if !ok || len(x5cRaw) != 1 {
		return nil, nil, webauthn.ErrMalformedInput.WithDetails("fido-u2f attStmt must have exactly one x5c certificate")
	}
	der, ok := x5cRaw[0].([]byte)
	if !ok {
		return nil, nil, webauthn.ErrMalformedInput.WithDetails("fido-u2f x5c[0] is not a byte string")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, webauthn.ErrMalformedInput.WithDetails("invalid fido-u2f attestation certificate").WithCause(err)
	}
	ecdsaPub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, nil, webauthn.ErrUnsupportedFormat.WithDetails("fido-u2f attestation certificate is not EC")
	}
	if !webauthn.IsP256(ecdsaPub.Curve) {
		return nil, nil, webauthn.ErrUnsupportedFormat.WithDetails("fido-u2f attestation certificate curve is not P-256")
	}
	return cert, sig, nil
}

// signedPayload builds the U2F raw message format signed by a fido-u2f
// attestation (FIDO U2F Raw Message Formats §4.3):
//
//	0x00 || rpIdHash || clientDataHash || credentialId || publicKeyUncompressed
func signedPayload(obj *webauthn.AttestationObject, clientDataHash []byte) ([]byte, error) {
	cred := obj.AuthenticatorData.AttestedCredentialData
	if cred == nil {
		return nil, webauthn.ErrContractViolation.WithDetails("fido-u2f attestation requires attested credential data")
	}
	ecdsaPub, ok := cred.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, webauthn.ErrUnsupportedFormat.WithDetails("fido-u2f credential public key is not EC")
	}
	if !webauthn.IsP256(ecdsaPub.Curve) {
		return nil, webauthn.ErrUnsupportedFormat.WithDetails("fido-u2f credential public key curve is not P-256")
	}

	payload := make([]byte, 0, 1+32+32+len(cred.CredentialID)+65)
	payload = append(payload, 0x00)
	payload = append(payload, obj.AuthenticatorData.RPIDHash[:]...)
	payload = append(payload, clientDataHash...)
	payload = append(payload, cred.CredentialID...)
	payload = append(payload, webauthn.UncompressedECPoint(ecdsaPub)...)
	return payload, nil
}

// VerifySignature verifies sig over the U2F signed payload using the
// attestation certificate's public key (spec §4.4.2).
func (verifier) VerifySignature(obj *webauthn.AttestationObject, clientDataHash []byte) error {
	cert, sig, err := attestationCert(obj)
	if err != nil {
		return err
	}
	payload, err := signedPayload(obj, clientDataHash)
	if err != nil {
		return err
	}
	return webauthn.VerifySignature(cert.PublicKey, webauthn.ES256, payload, sig)
}

// Classify reports SELF_ATTESTATION when the attestation certificate is
// self-signed EC and its public key equals the credential's own public key;
// BASIC otherwise (spec §4.4.2).
func (verifier) Classify(obj *webauthn.AttestationObject) (webauthn.AttestationType, error) {
	cert, _, err := attestationCert(obj)
	if err != nil {
		return 0, err
	}
	cred := obj.AuthenticatorData.AttestedCredentialData
	if cred == nil {
		return 0, webauthn.ErrContractViolation.WithDetails("fido-u2f attestation requires attested credential data")
	}

	// A bare self-signature check, not CheckSignatureFrom: that helper
	// additionally enforces CA basic constraints on the parent, which a U2F
	// attestation certificate never carries.
	if cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) != nil {
		return webauthn.AttestationBasic, nil
	}
	certPub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return webauthn.AttestationBasic, nil
	}
	credPub, ok := cred.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return webauthn.AttestationBasic, nil
	}
	if certPub.X.Cmp(credPub.X) == 0 && certPub.Y.Cmp(credPub.Y) == 0 {
		return webauthn.AttestationSelf, nil
	}
	return webauthn.AttestationBasic, nil
}

// TrustPath returns the single attestation certificate (spec §4.4.2).
func (verifier) TrustPath(obj *webauthn.AttestationObject) ([]*x509.Certificate, error) {
	cert, _, err := attestationCert(obj)
	if err != nil {
		return nil, err
	}
	return []*x509.Certificate{cert}, nil
}
