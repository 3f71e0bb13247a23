package mds

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/fidocore/webauthn"
)

func selfSignedRoot(t *testing.T) (*x509.Certificate, []byte) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test MDS Root"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(100 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, der
}

func blobJWT(t *testing.T, aaguid string, rootDER []byte) string {
	t.Helper()
	claims := blobClaims{
		Entries: []metadataEntry{
			{
				AAGUID: aaguid,
				Metadata: metadataStatement{
					Description:                 "Test Authenticator",
					AttestationRootCertificates: []string{base64.StdEncoding.EncodeToString(rootDER)},
				},
			},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func TestGetAttestationTrustsKnownRoot(t *testing.T) {
	root, rootDER := selfSignedRoot(t)
	aaguid := webauthn.AAGUID{}
	service, err := NewFromBLOB(blobJWT(t, aaguid.String(), rootDER))
	require.NoError(t, err)

	attestation, err := service.GetAttestation([]*x509.Certificate{root})
	require.NoError(t, err)
	require.NotNil(t, attestation)
	require.True(t, attestation.IsTrusted)
	require.Equal(t, "Test Authenticator", attestation.Identifier)
}

func TestGetAttestationReturnsNilForUnknownChain(t *testing.T) {
	_, rootDER := selfSignedRoot(t)
	unrelated, _ := selfSignedRoot(t)

	aaguid := webauthn.AAGUID{}
	service, err := NewFromBLOB(blobJWT(t, aaguid.String(), rootDER))
	require.NoError(t, err)

	attestation, err := service.GetAttestation([]*x509.Certificate{unrelated})
	require.NoError(t, err)
	require.Nil(t, attestation)
}

func TestGetAttestationEmptyTrustPath(t *testing.T) {
	service := &Service{}
	attestation, err := service.GetAttestation(nil)
	require.NoError(t, err)
	require.Nil(t, attestation)
}
