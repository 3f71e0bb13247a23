package webauthn

import (
	"crypto/ecdsa"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func signAssertion(t *testing.T, priv *ecdsa.PrivateKey, authData, cdHash []byte) []byte {
	t.Helper()
	signed := append(append([]byte{}, authData...), cdHash...)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, sha256sum(signed))
	require.NoError(t, err)
	return sig
}

func sha256sum(b []byte) []byte {
	h := clientDataHash(b)
	return h[:]
}

func setupAssertionFixture(t *testing.T, counter uint32) (*RelyingParty, *AssertionRequest, *AssertionResponse, *ecdsa.PrivateKey) {
	t.Helper()
	priv, _ := generateCredential(t)
	credID := []byte("assertion-credential")
	userHandle := []byte("user-1")

	repo := newFakeRepository()
	repo.byCredentialID[string(credID)] = &RegisteredCredential{
		CredentialID:   credID,
		UserHandle:     userHandle,
		Algorithm:      ES256,
		PublicKey:      &priv.PublicKey,
		SignatureCount: 5,
	}
	repo.usernameToUser["alice"] = userHandle
	repo.userToUsername[string(userHandle)] = "alice"

	rp := NewRelyingParty(Config{
		Identity:                 RPIdentity{ID: "example.com"},
		Origins:                  []string{"https://example.com"},
		ValidateSignatureCounter: true,
		CredentialRepository:     repo,
	})

	authData := buildAuthData(t, "example.com", Flags(1), counter, AAGUID{}, nil, nil)
	challenge := []byte("assertion-challenge")
	cdj := clientDataJSON(t, AssertCeremony, challenge, "https://example.com")
	cdHash := clientDataHash(cdj)
	sig := signAssertion(t, priv, authData, cdHash[:])

	req := &AssertionRequest{
		Challenge: challenge,
		Username:  "alice",
	}
	resp := &AssertionResponse{
		CredentialID:      credID,
		UserHandle:        userHandle,
		ClientDataJSON:    cdj,
		AuthenticatorData: authData,
		Signature:         sig,
	}
	return rp, req, resp, priv
}

func TestAuthenticateSucceeds(t *testing.T) {
	rp, req, resp, _ := setupAssertionFixture(t, 6)
	result, err := rp.Authenticate(req, resp)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "alice", result.Username)
	require.True(t, result.SignatureCounterValid)
	require.Equal(t, uint32(6), result.SignatureCount)
}

func TestAuthenticateRejectsCounterRegression(t *testing.T) {
	rp, req, resp, _ := setupAssertionFixture(t, 3) // repository has SignatureCount 5
	_, err := rp.Authenticate(req, resp)
	require.Error(t, err)
	require.True(t, IsKind(err, KindContractViolation))
}

func TestAuthenticateWarnsOnCounterRegressionWhenNotEnforced(t *testing.T) {
	rp, req, resp, _ := setupAssertionFixture(t, 3)
	rp.Config.ValidateSignatureCounter = false
	result, err := rp.Authenticate(req, resp)
	require.NoError(t, err)
	require.False(t, result.SignatureCounterValid)
	require.NotEmpty(t, result.Warnings)
}

func TestAuthenticateRejectsUnknownCredential(t *testing.T) {
	rp, req, resp, _ := setupAssertionFixture(t, 6)
	resp.CredentialID = []byte("does-not-exist")
	_, err := rp.Authenticate(req, resp)
	require.Error(t, err)
	require.True(t, IsKind(err, KindUnknownCredential))
}

func TestAuthenticateRejectsTamperedSignature(t *testing.T) {
	rp, req, resp, _ := setupAssertionFixture(t, 6)
	resp.Signature[0] ^= 0xFF
	_, err := rp.Authenticate(req, resp)
	require.Error(t, err)
	require.True(t, IsKind(err, KindContractViolation))
}

func TestAuthenticateRejectsCredentialIDNotInAllowList(t *testing.T) {
	rp, req, resp, _ := setupAssertionFixture(t, 6)
	req.AllowCredentialIDs = [][]byte{[]byte("some-other-credential")}
	_, err := rp.Authenticate(req, resp)
	require.Error(t, err)
	require.True(t, IsKind(err, KindContractViolation))
}
