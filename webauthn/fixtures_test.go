package webauthn

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/binary"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

// fakeVerifier is a minimal Verifier registered under a test-only format
// name, so registration/assertion pipeline tests don't depend on the
// none/fidou2f/packed subpackages (which would otherwise import this
// package back).
type fakeVerifier struct {
	classify  AttestationType
	verifyErr error
}

func (v fakeVerifier) Classify(obj *AttestationObject) (AttestationType, error) {
	return v.classify, nil
}

func (v fakeVerifier) VerifySignature(obj *AttestationObject, clientDataHash []byte) error {
	return v.verifyErr
}

func (v fakeVerifier) TrustPath(obj *AttestationObject) ([]*x509.Certificate, error) {
	return nil, nil
}

func registerFakeFormat(t *testing.T, name string, v Verifier) {
	t.Helper()
	RegisterFormat(name, v)
}

// buildCOSEKey encodes a minimal ES256 COSE_Key CBOR map for pub.
func buildCOSEKey(t *testing.T, pub *ecdsa.PublicKey) []byte {
	t.Helper()
	m := map[interface{}]interface{}{
		int64(1):  int64(coseKtyEC2),
		int64(3):  int64(ES256),
		int64(-1): int64(coseCrvP256),
		int64(-2): pub.X.Bytes(),
		int64(-3): pub.Y.Bytes(),
	}
	b, err := cbor.Marshal(m)
	require.NoError(t, err)
	return b
}

// buildAuthData hand-assembles a raw authData byte string per spec §3's
// fixed layout: rpIdHash(32) || flags(1) || counter(4) || [attestedCredentialData].
func buildAuthData(t *testing.T, rpID string, flags Flags, counter uint32, aaguid AAGUID, credID []byte, coseKey []byte) []byte {
	t.Helper()
	h := rpIDHash(rpID)

	buf := make([]byte, 0, 37+16+2+len(credID)+len(coseKey))
	buf = append(buf, h[:]...)
	buf = append(buf, byte(flags))
	counterBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(counterBytes, counter)
	buf = append(buf, counterBytes...)

	if flags.AttestedCredentialData() {
		buf = append(buf, aaguid.Bytes()...)
		credLen := make([]byte, 2)
		binary.BigEndian.PutUint16(credLen, uint16(len(credID)))
		buf = append(buf, credLen...)
		buf = append(buf, credID...)
		buf = append(buf, coseKey...)
	}
	return buf
}

func buildAttestationObjectCBOR(t *testing.T, format string, authData []byte, attStmt map[string]interface{}) []byte {
	t.Helper()
	stmtBytes, err := cbor.Marshal(attStmt)
	require.NoError(t, err)

	obj := map[string]interface{}{
		"fmt":      format,
		"authData": authData,
		"attStmt":  cbor.RawMessage(stmtBytes),
	}
	b, err := cbor.Marshal(obj)
	require.NoError(t, err)
	return b
}

func generateCredential(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return priv, buildCOSEKey(t, &priv.PublicKey)
}
