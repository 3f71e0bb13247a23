package webauthn

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeMetadataService struct {
	attestation *Attestation
	err         error
}

func (m *fakeMetadataService) GetAttestation(trustPath []*x509.Certificate) (*Attestation, error) {
	return m.attestation, m.err
}

func TestTrustResolverSkipsServiceWhenTrustPathEmpty(t *testing.T) {
	r := newTrustResolver(nil)
	result, err := r.resolve(fakeVerifier{}, &AttestationObject{})
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestTrustResolverRequiresMetadataServiceForNonEmptyTrustPath(t *testing.T) {
	v := fakeVerifierWithTrustPath{cert: &x509.Certificate{}}
	r := newTrustResolver(nil)
	_, err := r.resolve(v, &AttestationObject{})
	require.Error(t, err)
	require.True(t, IsKind(err, KindInternal))
}

func TestTrustResolverDelegatesToMetadataService(t *testing.T) {
	v := fakeVerifierWithTrustPath{cert: &x509.Certificate{}}
	want := &Attestation{IsTrusted: true, Identifier: "known model"}
	r := newTrustResolver(&fakeMetadataService{attestation: want})

	got, err := r.resolve(v, &AttestationObject{})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

type fakeVerifierWithTrustPath struct {
	cert *x509.Certificate
}

func (v fakeVerifierWithTrustPath) Classify(obj *AttestationObject) (AttestationType, error) {
	return AttestationBasic, nil
}

func (v fakeVerifierWithTrustPath) VerifySignature(obj *AttestationObject, clientDataHash []byte) error {
	return nil
}

func (v fakeVerifierWithTrustPath) TrustPath(obj *AttestationObject) ([]*x509.Certificate, error) {
	return []*x509.Certificate{v.cert}, nil
}
