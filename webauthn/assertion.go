package webauthn

import (
	"bytes"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// AssertionRequest carries the server-held state of a pending assertion
// (login) ceremony.
type AssertionRequest struct {
	Challenge []byte

	// Username and UserHandle are each optional; at least one must be
	// resolvable to the other via the CredentialRepository (spec §4.7
	// step 0).
	Username   string
	UserHandle []byte

	// AllowCredentialIDs, if non-empty, restricts which credential IDs the
	// response may use (spec §4.7 step 1).
	AllowCredentialIDs [][]byte

	UserVerification UserVerificationRequirement

	RequestedExtensions map[string]interface{}
	ClientExtensionIDs  []string

	TokenBindingID string
}

// AssertionResponse carries the client-produced credential assertion
// response.
type AssertionResponse struct {
	CredentialID []byte
	// UserHandle is the response's userHandle, if the authenticator
	// returned one (required for discoverable/passkey-style credentials,
	// optional otherwise).
	UserHandle []byte

	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         []byte
}

// AssertionResult is produced only by a fully successful assertion
// ceremony (spec §3).
type AssertionResult struct {
	Username   string
	UserHandle []byte

	CredentialID          []byte
	SignatureCount        uint32
	SignatureCounterValid bool
	Success               bool
	Warnings              []string
}

// Authenticate runs the full 17-step assertion pipeline of spec §4.7 /
// WebAuthn §7.2 against req/resp, returning a trusted AssertionResult or a
// classified *Error.
func (rp *RelyingParty) Authenticate(req *AssertionRequest, resp *AssertionResponse) (*AssertionResult, error) {
	repo, err := rp.repository()
	if err != nil {
		return nil, err
	}

	// Step 0.
	username, userHandle, err := resolveUserIdentity(repo, req.Username, req.UserHandle, resp.UserHandle)
	if err != nil {
		return nil, err
	}

	// Step 1.
	if len(req.AllowCredentialIDs) > 0 && !credentialIDAllowed(req.AllowCredentialIDs, resp.CredentialID) {
		return nil, ErrContractViolation.WithDetails("credential ID not in allowCredentials")
	}

	// Steps 2-3.
	cred, err := repo.Lookup(resp.CredentialID, userHandle)
	if err != nil {
		return nil, ErrInternal.WithDetails("credential repository lookup failed").WithCause(trace.Wrap(err))
	}
	if cred == nil {
		return nil, ErrUnknownCredential.WithDetails("no credential registered for this user")
	}
	if !bytes.Equal(cred.UserHandle, userHandle) {
		return nil, ErrUnknownCredential.WithDetails("credential does not belong to the resolved user")
	}

	// Step 4.
	if len(resp.ClientDataJSON) == 0 || len(resp.AuthenticatorData) == 0 || len(resp.Signature) == 0 {
		return nil, ErrMalformedInput.WithDetails("response missing clientDataJSON, authenticatorData, or signature")
	}

	// Defensive copies: the parsed views below alias their input buffers,
	// and the caller must not be able to mutate them mid-ceremony (spec §5).
	clientDataJSONBytes := append([]byte(nil), resp.ClientDataJSON...)
	authenticatorDataBytes := append([]byte(nil), resp.AuthenticatorData...)
	signature := append([]byte(nil), resp.Signature...)

	// Step 5: no-op.

	// Step 6.
	cd, err := parseClientData(clientDataJSONBytes)
	if err != nil {
		return nil, err
	}

	var warnings []string

	// Step 7.
	if err := checkCeremonyType(cd, AssertCeremony); err != nil {
		if rp.Config.ValidateTypeAttribute {
			return nil, err
		}
		warnings = append(warnings, err.Error())
		log.WithError(err).Debugf("WebAuthn: type attribute validation failed for user %q", username)
	}

	// Step 8.
	if err := checkChallenge(cd, req.Challenge); err != nil {
		return nil, err
	}

	// Step 9.
	if err := checkOrigin(cd, rp.Config.Origins); err != nil {
		return nil, err
	}

	// Step 10.
	if err := checkTokenBinding(cd.TokenBinding, req.TokenBindingID); err != nil {
		return nil, err
	}

	// Step 11.
	authData, err := ParseAuthenticatorData(authenticatorDataBytes)
	if err != nil {
		return nil, err
	}
	if err := checkRPIDHash(rp.Config.Identity.ID, authData.RPIDHash); err != nil {
		return nil, err
	}

	// Step 12.
	if req.UserVerification == UserVerificationRequired && !authData.Flags.UserVerified() {
		return nil, ErrContractViolation.WithDetails("user verification required but UV flag unset")
	}

	// Step 13.
	if req.UserVerification != UserVerificationRequired && !authData.Flags.UserPresent() {
		return nil, ErrContractViolation.WithDetails("UP flag unset")
	}

	// Step 14.
	authExtIDs, err := decodeAuthenticatorExtensionIDs(authData.Extensions)
	if err != nil {
		return nil, err
	}
	if err := checkExtensions(req.RequestedExtensions, req.ClientExtensionIDs, authExtIDs); err != nil {
		if rp.Config.AllowUnrequestedExtensions {
			warnings = append(warnings, err.Error())
		} else {
			return nil, err
		}
	}

	// Step 15.
	cdHash := clientDataHash(clientDataJSONBytes)

	// Step 16.
	signedData := append(append([]byte{}, authData.Raw...), cdHash[:]...)
	if err := VerifySignature(cred.PublicKey, cred.Algorithm, signedData, signature); err != nil {
		return nil, err
	}

	// Step 17.
	counterValid := authData.Counter == 0 || authData.Counter > cred.SignatureCount
	if !counterValid {
		if rp.Config.ValidateSignatureCounter {
			return nil, ErrContractViolation.WithDetails("signature counter did not increase")
		}
		warnings = append(warnings, "signature counter did not increase; possible cloned authenticator")
		log.Warnf("WebAuthn: clone warning detected for user %q / credential %x; counter may be malfunctioning", username, cred.CredentialID)
	}

	return &AssertionResult{
		Username:              username,
		UserHandle:            userHandle,
		CredentialID:          cred.CredentialID,
		SignatureCount:        authData.Counter,
		SignatureCounterValid: counterValid,
		Success:               true,
		Warnings:              warnings,
	}, nil
}

// resolveUserIdentity implements spec §4.7 step 0: at least one of
// username/userHandle must be supplied (from the request or the response),
// and the other is resolved via the CredentialRepository.
func resolveUserIdentity(repo CredentialRepository, reqUsername string, reqUserHandle, respUserHandle []byte) (string, []byte, error) {
	username := reqUsername
	userHandle := reqUserHandle
	if len(userHandle) == 0 {
		userHandle = respUserHandle
	}

	switch {
	case username == "" && len(userHandle) == 0:
		return "", nil, ErrMalformedInput.WithDetails("neither username nor userHandle present")
	case username == "":
		u, err := repo.GetUsernameForUserHandle(userHandle)
		if err != nil {
			return "", nil, ErrInternal.WithDetails("resolving username for user handle failed").WithCause(trace.Wrap(err))
		}
		if u == "" {
			return "", nil, ErrUnknownUser.WithDetails("no user for the given user handle")
		}
		username = u
	case len(userHandle) == 0:
		h, err := repo.GetUserHandleForUsername(username)
		if err != nil {
			return "", nil, ErrInternal.WithDetails("resolving user handle for username failed").WithCause(trace.Wrap(err))
		}
		if len(h) == 0 {
			return "", nil, ErrUnknownUser.WithDetails("no user handle for the given username")
		}
		userHandle = h
	}
	return username, userHandle, nil
}

func credentialIDAllowed(allow [][]byte, id []byte) bool {
	for _, a := range allow {
		if bytes.Equal(a, id) {
			return true
		}
	}
	return false
}
