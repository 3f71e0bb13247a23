package webauthn

import (
	"fmt"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// UserVerificationRequirement mirrors authenticatorSelection.userVerification.
type UserVerificationRequirement string

const (
	UserVerificationRequired    UserVerificationRequirement = "required"
	UserVerificationPreferred   UserVerificationRequirement = "preferred"
	UserVerificationDiscouraged UserVerificationRequirement = "discouraged"
)

// RegistrationRequest carries the server-held state of a pending
// registration ceremony: the challenge issued to the client plus the
// policy that was in effect when the ceremony began.
type RegistrationRequest struct {
	Challenge []byte

	UserVerification UserVerificationRequirement

	// RequestedExtensions is the extension-identifier set that was sent to
	// the authenticator, used by the spec §4.3 subset check. Nil means no
	// extensions were requested.
	RequestedExtensions map[string]interface{}

	// ClientExtensionIDs lists the client extension identifiers, if the
	// caller parsed clientExtensionResults itself; nil means the client
	// side is empty. The authenticator side is always derived by the
	// pipeline from AuthenticatorData.Extensions.
	ClientExtensionIDs []string

	// TokenBindingID is the RP's own Token Binding identifier for the
	// connection the registration request was served over, or "" if none
	// (spec §4.2).
	TokenBindingID string
}

// RegistrationResponse carries the client-produced credential creation
// response.
type RegistrationResponse struct {
	ClientDataJSON    []byte
	AttestationObject []byte
}

// RegistrationResult is produced only by a fully successful registration
// ceremony (spec §3).
type RegistrationResult struct {
	CredentialID        []byte
	AttestationType     AttestationType
	AttestationTrusted  bool
	AttestationMetadata *Attestation
	Algorithm           Algorithm
	COSEPublicKey       []byte
	PublicKey           interface{}

	// Warnings accumulates recoverable issues policy allowed through
	// (e.g. untrusted attestation accepted because AllowUntrustedAttestation
	// is set).
	Warnings []string
}

// Register runs the full 19-step registration pipeline of spec §4.6 /
// WebAuthn §7.1 against req/resp, returning a trusted RegistrationResult or
// a classified *Error. Steps execute in strict numeric order; a step's
// validations complete before the next step begins, and step k depends
// only on (req, resp, rp.Config, outputs of steps 1..k-1) — see DESIGN.md
// for why this is rendered as ordered helper calls rather than a literal
// per-step state-object chain.
func (rp *RelyingParty) Register(req *RegistrationRequest, resp *RegistrationResponse) (*RegistrationResult, error) {
	repo, err := rp.repository()
	if err != nil {
		return nil, err
	}

	// Defensive copies: the parsed views below alias their input buffers,
	// and the caller must not be able to mutate them mid-ceremony (spec §5).
	clientDataJSONBytes := append([]byte(nil), resp.ClientDataJSON...)
	attestationObjectBytes := append([]byte(nil), resp.AttestationObject...)

	// Steps 1-2: UTF-8 decode is intrinsic to json.Unmarshal; parse client
	// data.
	cd, err := parseClientData(clientDataJSONBytes)
	if err != nil {
		return nil, err
	}

	// Step 3.
	if err := checkCeremonyType(cd, CreateCeremony); err != nil {
		return nil, err
	}

	// Step 4.
	if err := checkChallenge(cd, req.Challenge); err != nil {
		return nil, err
	}

	// Step 5.
	if err := checkOrigin(cd, rp.Config.Origins); err != nil {
		return nil, err
	}

	// Step 6.
	if err := checkTokenBinding(cd.TokenBinding, req.TokenBindingID); err != nil {
		return nil, err
	}

	// Step 7.
	cdHash := clientDataHash(clientDataJSONBytes)

	// Step 8.
	attObj, err := ParseAttestationObject(attestationObjectBytes)
	if err != nil {
		return nil, err
	}
	authData := attObj.AuthenticatorData

	// Step 9.
	if err := checkRPIDHash(rp.Config.Identity.ID, authData.RPIDHash); err != nil {
		return nil, err
	}

	// Step 10.
	if req.UserVerification == UserVerificationRequired && !authData.Flags.UserVerified() {
		return nil, ErrContractViolation.WithDetails("user verification required but UV flag unset")
	}

	// Step 11.
	if req.UserVerification != UserVerificationRequired && !authData.Flags.UserPresent() {
		return nil, ErrContractViolation.WithDetails("UP flag unset")
	}

	// Step 12.
	authExtIDs, err := decodeAuthenticatorExtensionIDs(authData.Extensions)
	if err != nil {
		return nil, err
	}
	if err := checkExtensions(req.RequestedExtensions, req.ClientExtensionIDs, authExtIDs); err != nil {
		return nil, err
	}

	if authData.AttestedCredentialData == nil {
		return nil, ErrContractViolation.WithDetails("AT flag unset: no attested credential data in authData")
	}
	cred := authData.AttestedCredentialData

	// Step 13.
	verifier, err := LookupFormat(attObj.Format)
	if err != nil {
		return nil, err
	}

	// Step 14.
	if err := verifier.VerifySignature(attObj, cdHash[:]); err != nil {
		return nil, err
	}
	attestationType, err := verifier.Classify(attObj)
	if err != nil {
		return nil, err
	}
	trustPath, err := verifier.TrustPath(attObj)
	if err != nil {
		return nil, err
	}

	// Step 15.
	var metadataResult *Attestation
	switch attestationType {
	case AttestationBasic, AttestationAttCA:
		if rp.Config.MetadataService == nil {
			return nil, ErrContractViolation.WithDetails("BASIC attestation requires a configured metadata service")
		}
		if len(trustPath) == 0 {
			return nil, ErrContractViolation.WithDetails("BASIC attestation has no trust path")
		}
		resolver := newTrustResolver(rp.Config.MetadataService)
		metadataResult, err = resolver.resolve(verifier, attObj)
		if err != nil {
			return nil, err
		}
	case AttestationSelf, AttestationNone:
		// No resolver consulted.
	default:
		return nil, ErrUnsupportedFormat.WithDetails(fmt.Sprintf("unsupported attestation type %s", attestationType))
	}

	// Step 16.
	var warnings []string
	attestationTrusted := false
	switch attestationType {
	case AttestationNone, AttestationSelf:
		attestationTrusted = rp.Config.AllowUntrustedAttestation
	case AttestationBasic, AttestationAttCA:
		attestationTrusted = metadataResult != nil && metadataResult.IsTrusted
	}
	if !attestationTrusted {
		if !rp.Config.AllowUntrustedAttestation {
			return nil, ErrContractViolation.WithDetails("untrusted attestation rejected by policy")
		}
		warnings = append(warnings, "attestation is not trusted")
		log.Warnf("WebAuthn: registration accepted with untrusted %s attestation for credential %x", attestationType, cred.CredentialID)
	}

	// Step 17.
	existing, err := repo.LookupAll(cred.CredentialID)
	if err != nil {
		return nil, ErrInternal.WithDetails("credential repository lookup failed").WithCause(trace.Wrap(err))
	}
	if len(existing) > 0 {
		return nil, ErrContractViolation.WithDetails("credential ID is already registered")
	}

	// Step 18: registration itself is performed by the caller using the
	// result below; nothing to verify here.

	// Step 19: terminal result, warnings included.
	return &RegistrationResult{
		CredentialID:        cred.CredentialID,
		AttestationType:     attestationType,
		AttestationTrusted:  attestationTrusted,
		AttestationMetadata: metadataResult,
		Algorithm:           cred.Algorithm,
		COSEPublicKey:       cred.COSEPublicKey,
		PublicKey:           cred.PublicKey,
		Warnings:            warnings,
	}, nil
}

// checkRPIDHash verifies SHA-256(rpID) == got (spec §4.6 step 9 / §4.7 step
// 11).
func checkRPIDHash(rpID string, got [32]byte) error {
	want := rpIDHash(rpID)
	if want != got {
		return ErrContractViolation.WithDetails("authenticator data rpIdHash does not match relying party ID")
	}
	return nil
}
