package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"math/big"
)

// Algorithm identifies both a signature scheme and its associated hash
// function, per the COSE algorithm registry referenced by WebAuthn.
//
// https://www.w3.org/TR/webauthn-3/#typedefdef-cosealgorithmidentifier
type Algorithm int

// The set of algorithms this core decodes. ES256 is required by spec §4.1;
// RS256 and EdDSA are decoded for interop checks such as self-attestation
// algorithm agreement (spec §4.4.3).
const (
	ES256 Algorithm = -7
	ES384 Algorithm = -35
	ES512 Algorithm = -36
	EdDSA Algorithm = -8
	RS256 Algorithm = -257
	RS384 Algorithm = -258
	RS512 Algorithm = -259
)

var algStrings = map[Algorithm]string{
	ES256: "ES256",
	ES384: "ES384",
	ES512: "ES512",
	EdDSA: "EdDSA",
	RS256: "RS256",
	RS384: "RS384",
	RS512: "RS512",
}

func (a Algorithm) String() string {
	if s, ok := algStrings[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// COSE key type labels (label 1 of a COSE_Key map).
const (
	coseKtyOKP = 1
	coseKtyEC2 = 2
	coseKtyRSA = 3
)

// COSE EC2/OKP curve labels (label -1).
const (
	coseCrvP256    = 1
	coseCrvP384    = 2
	coseCrvP521    = 3
	coseCrvEd25519 = 6
)

// cosePublicKey is the result of decoding a COSE_Key CBOR map: an algorithm
// plus its public key value.
type cosePublicKey struct {
	Algorithm Algorithm
	Public    crypto.PublicKey
}

// decodeCOSEKey decodes a COSE_Key CBOR map (RFC 8152) into a public key.
// Only the key types required to verify ES256/ES384/ES512/EdDSA/RS256/RS384/RS512
// signatures are supported; anything else is an UnsupportedFormat error.
func decodeCOSEKey(b []byte) (*cosePublicKey, error) {
	m, err := decodeCBORMap(b)
	if err != nil {
		return nil, err
	}

	kty, ok := coseInt(m, int64(1))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE key missing kty (label 1)")
	}
	algRaw, ok := coseInt(m, int64(3))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE key missing alg (label 3)")
	}
	alg := Algorithm(algRaw)

	switch kty {
	case coseKtyEC2:
		return decodeCOSEEC2Key(m, alg)
	case coseKtyOKP:
		return decodeCOSEOKPKey(m, alg)
	case coseKtyRSA:
		return decodeCOSERSAKey(m, alg)
	default:
		return nil, ErrUnsupportedFormat.WithDetails(fmt.Sprintf("unsupported COSE key type %d", kty))
	}
}

func decodeCOSEEC2Key(m map[interface{}]interface{}, alg Algorithm) (*cosePublicKey, error) {
	crv, ok := coseInt(m, int64(-1))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE EC2 key missing crv (label -1)")
	}
	xb, ok := coseBytes(m, int64(-2))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE EC2 key missing x (label -2)")
	}
	yb, ok := coseBytes(m, int64(-3))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE EC2 key missing y (label -3)")
	}

	var curve elliptic.Curve
	switch crv {
	case coseCrvP256:
		curve = elliptic.P256()
	case coseCrvP384:
		curve = elliptic.P384()
	case coseCrvP521:
		curve = elliptic.P521()
	default:
		return nil, ErrUnsupportedFormat.WithDetails(fmt.Sprintf("unsupported COSE EC2 curve %d", crv))
	}

	pub := &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}
	return &cosePublicKey{Algorithm: alg, Public: pub}, nil
}

func decodeCOSEOKPKey(m map[interface{}]interface{}, alg Algorithm) (*cosePublicKey, error) {
	crv, ok := coseInt(m, int64(-1))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE OKP key missing crv (label -1)")
	}
	if crv != coseCrvEd25519 {
		return nil, ErrUnsupportedFormat.WithDetails(fmt.Sprintf("unsupported COSE OKP curve %d", crv))
	}
	xb, ok := coseBytes(m, int64(-2))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE OKP key missing x (label -2)")
	}
	if len(xb) != ed25519.PublicKeySize {
		return nil, ErrMalformedInput.WithDetails("invalid Ed25519 public key length")
	}
	return &cosePublicKey{Algorithm: alg, Public: ed25519.PublicKey(xb)}, nil
}

func decodeCOSERSAKey(m map[interface{}]interface{}, alg Algorithm) (*cosePublicKey, error) {
	nb, ok := coseBytes(m, int64(-1))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE RSA key missing n (label -1)")
	}
	eb, ok := coseBytes(m, int64(-2))
	if !ok {
		return nil, ErrMalformedInput.WithDetails("COSE RSA key missing e (label -2)")
	}
	pub := &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}
	return &cosePublicKey{Algorithm: alg, Public: pub}, nil
}

// coseLookup finds a label in a decoded CBOR map. fxamacker/cbor decodes
// non-negative CBOR integers into interface{} as uint64 and negative ones as
// int64, so a non-negative label must be probed under both representations.
func coseLookup(m map[interface{}]interface{}, label int64) (interface{}, bool) {
	if v, ok := m[label]; ok {
		return v, true
	}
	if label >= 0 {
		if v, ok := m[uint64(label)]; ok {
			return v, true
		}
	}
	return nil, false
}

// coseInt looks up an integer-valued label, tolerating both int64 and uint64
// value representations.
func coseInt(m map[interface{}]interface{}, label int64) (int64, bool) {
	v, ok := coseLookup(m, label)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func coseBytes(m map[interface{}]interface{}, label int64) ([]byte, bool) {
	v, ok := coseLookup(m, label)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// IsP256 reports whether curve is equivalent to NIST P-256 / secp256r1 by
// comparing the named-curve parameters (order N and generator Gx, Gy), per
// spec §4.4.2. This rejects lookalike curves such as secp256k1, which
// share a bit size but not these parameters.
func IsP256(curve elliptic.Curve) bool {
	p256 := elliptic.P256().Params()
	params := curve.Params()
	return params.N.Cmp(p256.N) == 0 &&
		params.Gx.Cmp(p256.Gx) == 0 &&
		params.Gy.Cmp(p256.Gy) == 0
}

// UncompressedECPoint returns the uncompressed SEC1 point encoding
// (0x04 || X || Y) of an EC public key, zero-padded to the curve's byte
// size. Used to reconstruct the raw public key bytes a fido-u2f signed
// payload embeds (spec §4.4.2).
func UncompressedECPoint(pub *ecdsa.PublicKey) []byte {
	byteLen := (pub.Curve.Params().BitSize + 7) / 8
	out := make([]byte, 1+2*byteLen)
	out[0] = 0x04
	xb := pub.X.Bytes()
	yb := pub.Y.Bytes()
	copy(out[1+byteLen-len(xb):1+byteLen], xb)
	copy(out[1+2*byteLen-len(yb):1+2*byteLen], yb)
	return out
}
