// Package packed implements the "packed" attestation statement format
// (spec §4.4.3), the general-purpose format defined directly by the
// WebAuthn specification rather than by a separate authenticator protocol.
package packed

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/fidocore/webauthn"
)

func init() {
	webauthn.RegisterFormat("packed", verifier{})
}

// id-fido-gen-ce-aaguid, the X.509 extension OID carrying an attestation
// certificate's AAGUID (spec §4.4.3).
var extensionIDFIDOGenCEAAGUID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 45724, 1, 1, 4}

type verifier struct{}

type statement struct {
	alg        webauthn.Algorithm
	sig        []byte
	x5c        []interface{}
	hasX5C     bool
	ecdaaKeyID []byte
	hasECDAA   bool
}

func parseStatement(obj *webauthn.AttestationObject) (*statement, error) {
	m, err := webauthn.DecodeAttStmt(obj.AttStmt)
	if err != nil {
		return nil, err
	}

	algRaw, ok := m["alg"]
	if !ok {
		return nil, webauthn.ErrMalformedInput.WithDetails("packed attStmt missing alg")
	}
	algInt, ok := algRaw.(int64)
	if !ok {
		return nil, webauthn.ErrMalformedInput.WithDetails("packed attStmt alg has unexpected type")
	}

	sig, ok := m["sig"].([]byte)
	if !ok {
		return nil, webauthn.ErrMalformedInput.WithDetails("packed attStmt missing sig")
	}

	st := &statement{alg: webauthn.Algorithm(algInt), sig: sig}

	if x5c, ok := m["x5c"]; ok {
		list, ok := x5c.([]interface{})
		if !ok || len(list) == 0 {
			return nil, webauthn.ErrMalformedInput.WithDetails("packed attStmt x5c malformed")
		}
		st.x5c = list
		st.hasX5C = true
		return st, nil
	}

	if keyID, ok := m["ecdaaKeyId"]; ok {
		b, ok := keyID.([]byte)
		if !ok {
			return nil, webauthn.ErrMalformedInput.WithDetails("packed attStmt ecdaaKeyId malformed")
		}
		st.ecdaaKeyID = b
		st.hasECDAA = true
	}

	return st, nil
}

// attestationCert parses x5c[0], the single packed verifiers in this module
// examine; a full chain walk to a trust anchor is the MetadataService's job
// (spec §4.5).
func attestationCert(st *statement) (*x509.Certificate, error) {
	der, ok := st.x5c[0].([]byte)
	if !ok {
		return nil, webauthn.ErrMalformedInput.WithDetails("packed x5c[0] is not a byte string")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, webauthn.ErrMalformedInput.WithDetails("invalid packed attestation certificate").WithCause(err)
	}
	return cert, nil
}

func signedData(obj *webauthn.AttestationObject, clientDataHash []byte) []byte {
	return append(append([]byte{}, obj.AuthenticatorData.Raw...), clientDataHash...)
}

// VerifySignature dispatches on which of x5c/ecdaaKeyId is present in the
// attestation statement (spec §4.4.3 steps 2-4): x5c selects basic
// attestation, ecdaaKeyId selects ECDAA (unsupported), and neither selects
// self attestation.
func (verifier) VerifySignature(obj *webauthn.AttestationObject, clientDataHash []byte) error {
	st, err := parseStatement(obj)
	if err != nil {
		return err
	}
	switch {
	case st.hasX5C:
		return verifyBasic(obj, st, clientDataHash)
	case st.hasECDAA:
		return webauthn.ErrUnsupportedFormat.WithDetails("packed ECDAA attestation is not supported")
	default:
		return verifySelf(obj, st, clientDataHash)
	}
}

// x509SignatureAlgorithm maps a COSE algorithm identifier (attStmt.alg) to
// the x509.SignatureAlgorithm that verifies it, per spec §4.4.3 point 1
// ("sig is a valid signature ... using the signature algorithm specified by
// alg"): the certificate's own SignatureAlgorithm field is unrelated (that
// describes how the CA signed the certificate, not how the authenticator
// signed the attestation) and must never be consulted or defaulted to.
func x509SignatureAlgorithm(alg webauthn.Algorithm) (x509.SignatureAlgorithm, error) {
	switch alg {
	case webauthn.ES256:
		return x509.ECDSAWithSHA256, nil
	case webauthn.ES384:
		return x509.ECDSAWithSHA384, nil
	case webauthn.ES512:
		return x509.ECDSAWithSHA512, nil
	case webauthn.RS256:
		return x509.SHA256WithRSA, nil
	case webauthn.RS384:
		return x509.SHA384WithRSA, nil
	case webauthn.RS512:
		return x509.SHA512WithRSA, nil
	case webauthn.EdDSA:
		return x509.PureEd25519, nil
	default:
		return 0, webauthn.ErrUnsupportedFormat.WithDetails(fmt.Sprintf("unsupported packed attestation alg %s", alg))
	}
}

func verifyBasic(obj *webauthn.AttestationObject, st *statement, clientDataHash []byte) error {
	cert, err := attestationCert(st)
	if err != nil {
		return err
	}

	sigAlg, err := x509SignatureAlgorithm(st.alg)
	if err != nil {
		return err
	}

	signed := signedData(obj, clientDataHash)
	if err := cert.CheckSignature(sigAlg, signed, st.sig); err != nil {
		return webauthn.ErrContractViolation.WithDetails("invalid packed basic attestation signature").WithCause(err)
	}

	if cert.Version != 3 {
		return webauthn.ErrContractViolation.WithDetails("packed attestation certificate must be version 3")
	}
	if cert.IsCA {
		return webauthn.ErrContractViolation.WithDetails("packed attestation certificate must not be a CA certificate")
	}
	if err := checkAttestationCertSubject(cert); err != nil {
		return err
	}

	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(extensionIDFIDOGenCEAAGUID) {
			continue
		}
		if ext.Critical {
			return webauthn.ErrContractViolation.WithDetails("id-fido-gen-ce-aaguid extension must not be critical")
		}
		var aaguid []byte
		if _, err := asn1.Unmarshal(ext.Value, &aaguid); err != nil {
			return webauthn.ErrMalformedInput.WithDetails("invalid id-fido-gen-ce-aaguid extension value").WithCause(err)
		}
		cred := obj.AuthenticatorData.AttestedCredentialData
		if cred == nil || !bytes.Equal(cred.AAGUID.Bytes(), aaguid) {
			return webauthn.ErrContractViolation.WithDetails("id-fido-gen-ce-aaguid extension does not match authenticator data AAGUID")
		}
	}

	return nil
}

// verifySelf verifies the spec §4.4.3 self-attestation path: alg must match
// the credential's own public key, and the signature must verify under that
// same key. Only ES256 is implemented, matching the only self-attestation
// curve this pack's examples exercise.
func verifySelf(obj *webauthn.AttestationObject, st *statement, clientDataHash []byte) error {
	cred := obj.AuthenticatorData.AttestedCredentialData
	if cred == nil {
		return webauthn.ErrContractViolation.WithDetails("packed self attestation requires attested credential data")
	}
	if cred.Algorithm != st.alg {
		return webauthn.ErrContractViolation.WithDetails("packed self attestation alg does not match credential public key algorithm")
	}

	ecdsaPub, ok := cred.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return webauthn.ErrUnsupportedFormat.WithDetails("packed self attestation only supports EC credential keys")
	}
	if st.alg != webauthn.ES256 || !webauthn.IsP256(ecdsaPub.Curve) {
		return webauthn.ErrUnsupportedFormat.WithDetails("packed self attestation only supports ES256/P-256")
	}

	var ecdsaSig struct{ R, S *big.Int }
	rest, err := asn1.Unmarshal(st.sig, &ecdsaSig)
	if err != nil {
		return webauthn.ErrMalformedInput.WithDetails("invalid packed self attestation signature encoding").WithCause(err)
	}
	if len(rest) != 0 {
		return webauthn.ErrMalformedInput.WithDetails("trailing bytes after packed self attestation signature")
	}

	hash := sha256.Sum256(signedData(obj, clientDataHash))
	if !ecdsa.Verify(ecdsaPub, hash[:], ecdsaSig.R, ecdsaSig.S) {
		return webauthn.ErrContractViolation.WithDetails("invalid packed self attestation signature")
	}
	return nil
}

// Classify reports BASIC when x5c is present, NONE-equivalent SELF_ATTESTATION
// when it is absent, and fails ECDAA as unsupported (spec §4.4.3 steps 2-4).
func (verifier) Classify(obj *webauthn.AttestationObject) (webauthn.AttestationType, error) {
	st, err := parseStatement(obj)
	if err != nil {
		return 0, err
	}
	switch {
	case st.hasX5C:
		return webauthn.AttestationBasic, nil
	case st.hasECDAA:
		return webauthn.AttestationECDAA, webauthn.ErrUnsupportedFormat.WithDetails("packed ECDAA attestation is not supported")
	default:
		return webauthn.AttestationSelf, nil
	}
}

// TrustPath returns every certificate of x5c, in order, for basic
// attestation, or nil for self attestation (spec §4.4.3).
func (verifier) TrustPath(obj *webauthn.AttestationObject) ([]*x509.Certificate, error) {
	st, err := parseStatement(obj)
	if err != nil {
		return nil, err
	}
	if !st.hasX5C {
		return nil, nil
	}
	path := make([]*x509.Certificate, 0, len(st.x5c))
	for i, raw := range st.x5c {
		der, ok := raw.([]byte)
		if !ok {
			return nil, webauthn.ErrMalformedInput.WithDetails(fmt.Sprintf("packed x5c[%d] is not a byte string", i))
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, webauthn.ErrMalformedInput.WithDetails("invalid packed attestation certificate").WithCause(err)
		}
		path = append(path, cert)
	}
	return path, nil
}

// checkAttestationCertSubject enforces the packed attestation statement
// certificate requirements' Subject constraints (spec §4.4.3 "Packed §7.2.1
// certificate requirements"): C is a recognized two-letter country code, O
// is non-empty, and OU is exactly "Authenticator Attestation". CN is
// unconstrained.
func checkAttestationCertSubject(cert *x509.Certificate) error {
	subject := cert.Subject

	if len(subject.Country) != 1 || !isISO3166Alpha2(subject.Country[0]) {
		return webauthn.ErrContractViolation.WithDetails("packed attestation certificate subject C must be a two-letter ISO 3166-1 country code")
	}
	if len(subject.Organization) != 1 || subject.Organization[0] == "" {
		return webauthn.ErrContractViolation.WithDetails("packed attestation certificate subject O must be non-empty")
	}
	if len(subject.OrganizationalUnit) != 1 || subject.OrganizationalUnit[0] != "Authenticator Attestation" {
		return webauthn.ErrContractViolation.WithDetails(`packed attestation certificate subject OU must be "Authenticator Attestation"`)
	}
	return nil
}

func isISO3166Alpha2(code string) bool {
	_, ok := iso3166Alpha2[code]
	return ok
}

// iso3166Alpha2 is the current ISO 3166-1 alpha-2 country code set, used to
// validate the packed attestation certificate's Subject C field.
var iso3166Alpha2 = map[string]struct{}{
	"AD": {}, "AE": {}, "AF": {}, "AG": {}, "AI": {}, "AL": {}, "AM": {}, "AO": {}, "AQ": {}, "AR": {},
	"AS": {}, "AT": {}, "AU": {}, "AW": {}, "AX": {}, "AZ": {}, "BA": {}, "BB": {}, "BD": {}, "BE": {},
	"BF": {}, "BG": {}, "BH": {}, "BI": {}, "BJ": {}, "BL": {}, "BM": {}, "BN": {}, "BO": {}, "BQ": {},
	"BR": {}, "BS": {}, "BT": {}, "BV": {}, "BW": {}, "BY": {}, "BZ": {}, "CA": {}, "CC": {}, "CD": {},
	"CF": {}, "CG": {}, "CH": {}, "CI": {}, "CK": {}, "CL": {}, "CM": {}, "CN": {}, "CO": {}, "CR": {},
	"CU": {}, "CV": {}, "CW": {}, "CX": {}, "CY": {}, "CZ": {}, "DE": {}, "DJ": {}, "DK": {}, "DM": {},
	"DO": {}, "DZ": {}, "EC": {}, "EE": {}, "EG": {}, "EH": {}, "ER": {}, "ES": {}, "ET": {}, "FI": {},
	"FJ": {}, "FK": {}, "FM": {}, "FO": {}, "FR": {}, "GA": {}, "GB": {}, "GD": {}, "GE": {}, "GF": {},
	"GG": {}, "GH": {}, "GI": {}, "GL": {}, "GM": {}, "GN": {}, "GP": {}, "GQ": {}, "GR": {}, "GS": {},
	"GT": {}, "GU": {}, "GW": {}, "GY": {}, "HK": {}, "HM": {}, "HN": {}, "HR": {}, "HT": {}, "HU": {},
	"ID": {}, "IE": {}, "IL": {}, "IM": {}, "IN": {}, "IO": {}, "IQ": {}, "IR": {}, "IS": {}, "IT": {},
	"JE": {}, "JM": {}, "JO": {}, "JP": {}, "KE": {}, "KG": {}, "KH": {}, "KI": {}, "KM": {}, "KN": {},
	"KP": {}, "KR": {}, "KW": {}, "KY": {}, "KZ": {}, "LA": {}, "LB": {}, "LC": {}, "LI": {}, "LK": {},
	"LR": {}, "LS": {}, "LT": {}, "LU": {}, "LV": {}, "LY": {}, "MA": {}, "MC": {}, "MD": {}, "ME": {},
	"MF": {}, "MG": {}, "MH": {}, "MK": {}, "ML": {}, "MM": {}, "MN": {}, "MO": {}, "MP": {}, "MQ": {},
	"MR": {}, "MS": {}, "MT": {}, "MU": {}, "MV": {}, "MW": {}, "MX": {}, "MY": {}, "MZ": {}, "NA": {},
	"NC": {}, "NE": {}, "NF": {}, "NG": {}, "NI": {}, "NL": {}, "NO": {}, "NP": {}, "NR": {}, "NU": {},
	"NZ": {}, "OM": {}, "PA": {}, "PE": {}, "PF": {}, "PG": {}, "PH": {}, "PK": {}, "PL": {}, "PM": {},
	"PN": {}, "PR": {}, "PS": {}, "PT": {}, "PW": {}, "PY": {}, "QA": {}, "RE": {}, "RO": {}, "RS": {},
	"RU": {}, "RW": {}, "SA": {}, "SB": {}, "SC": {}, "SD": {}, "SE": {}, "SG": {}, "SH": {}, "SI": {},
	"SJ": {}, "SK": {}, "SL": {}, "SM": {}, "SN": {}, "SO": {}, "SR": {}, "SS": {}, "ST": {}, "SV": {},
	"SX": {}, "SY": {}, "SZ": {}, "TC": {}, "TD": {}, "TF": {}, "TG": {}, "TH": {}, "TJ": {}, "TK": {},
	"TL": {}, "TM": {}, "TN": {}, "TO": {}, "TR": {}, "TT": {}, "TV": {}, "TW": {}, "TZ": {}, "UA": {},
	"UG": {}, "UM": {}, "US": {}, "UY": {}, "UZ": {}, "VA": {}, "VC": {}, "VE": {}, "VG": {}, "VI": {},
	"VN": {}, "VU": {}, "WF": {}, "WS": {}, "YE": {}, "YT": {}, "ZA": {}, "ZM": {}, "ZW": {},
}
