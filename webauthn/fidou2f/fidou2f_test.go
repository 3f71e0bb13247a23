package fidou2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/fidocore/webauthn"
)

func signECDSA(t *testing.T, priv *ecdsa.PrivateKey, data []byte) []byte {
	t.Helper()
	hash := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, priv, hash[:])
	require.NoError(t, err)
	der, err := asn1.Marshal(struct{ R, S *big.Int }{r, s})
	require.NoError(t, err)
	return der
}

func selfSignedCert(t *testing.T, priv *ecdsa.PrivateKey) []byte {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"Authenticator Attestation"}},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).Add(100 * 365 * 24 * time.Hour),
		IsCA:         false,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)
	return der
}

func buildObject(t *testing.T, certKey, credKey *ecdsa.PrivateKey, rpIDHash [32]byte, credentialID, clientDataHash []byte) *webauthn.AttestationObject {
	t.Helper()
	certDER := selfSignedCert(t, certKey)

	payload := make([]byte, 0, 1+32+32+len(credentialID)+65)
	payload = append(payload, 0x00)
	payload = append(payload, rpIDHash[:]...)
	payload = append(payload, clientDataHash...)
	payload = append(payload, credentialID...)
	payload = append(payload, webauthn.UncompressedECPoint(&credKey.PublicKey)...)

	sig := signECDSA(t, certKey, payload)

	attStmt, err := cbor.Marshal(map[string]interface{}{
		"sig": sig,
		"x5c": []interface{}{certDER},
	})
	require.NoError(t, err)

	return &webauthn.AttestationObject{
		Format:  "fido-u2f",
		AttStmt: attStmt,
		AuthenticatorData: &webauthn.AuthenticatorData{
			RPIDHash: rpIDHash,
			AttestedCredentialData: &webauthn.AttestationData{
				CredentialID: credentialID,
				PublicKey:    &credKey.PublicKey,
				Algorithm:    webauthn.ES256,
			},
		},
	}
}

func TestVerifySignatureBasicAttestation(t *testing.T) {
	certKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	credKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	rpIDHash := [32]byte{1, 2, 3}
	clientDataHash := []byte("0123456789012345678901234567890x")[:32]
	credentialID := []byte("credential-id")

	obj := buildObject(t, certKey, credKey, rpIDHash, credentialID, clientDataHash)

	v := verifier{}
	require.NoError(t, v.VerifySignature(obj, clientDataHash))

	kind, err := v.Classify(obj)
	require.NoError(t, err)
	require.Equal(t, webauthn.AttestationBasic, kind)

	path, err := v.TrustPath(obj)
	require.NoError(t, err)
	require.Len(t, path, 1)
}

func TestVerifySignatureSelfAttestation(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	rpIDHash := [32]byte{9, 9, 9}
	clientDataHash := []byte("0123456789012345678901234567890x")[:32]
	credentialID := []byte("credential-id-2")

	// Self-attestation: the certificate key and the credential key are the
	// same key pair.
	obj := buildObject(t, key, key, rpIDHash, credentialID, clientDataHash)

	v := verifier{}
	require.NoError(t, v.VerifySignature(obj, clientDataHash))

	kind, err := v.Classify(obj)
	require.NoError(t, err)
	require.Equal(t, webauthn.AttestationSelf, kind)
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	certKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	credKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	rpIDHash := [32]byte{1, 2, 3}
	clientDataHash := []byte("0123456789012345678901234567890x")[:32]
	credentialID := []byte("credential-id")

	obj := buildObject(t, certKey, credKey, rpIDHash, credentialID, clientDataHash)

	wrongHash := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	err = verifier{}.VerifySignature(obj, wrongHash)
	require.Error(t, err)
	require.True(t, webauthn.IsKind(err, webauthn.KindContractViolation))
}
