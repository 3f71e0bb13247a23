package webauthn

// RPIdentity names the Relying Party (spec §6, "rpIdentity").
type RPIdentity struct {
	// ID is the RP ID: a valid DNS-style identifier. SHA-256(ID) is
	// compared against authData.rpIdHash.
	ID string
	// Name is a human-readable RP name, used only to construct creation/
	// request options (out of this core's scope, carried for convenience).
	Name string
}

// Config is the single immutable configuration object every ceremony is
// given explicitly (spec §6, §9 "Configuration"). There is no global or
// ambient state; two RelyingParty values built from different Configs may
// safely run ceremonies concurrently.
type Config struct {
	Identity RPIdentity

	// Origins is the ordered set of strings compared verbatim against
	// C.origin.
	Origins []string

	// PreferredPublicKeyAlgorithms is advisory only: it informs request/
	// creation-options construction and is never enforced by verification.
	PreferredPublicKeyAlgorithms []Algorithm

	// AllowUntrustedAttestation, when true, lets NONE/SELF_ATTESTATION and
	// BASIC-without-trusted-metadata registrations still succeed. For
	// NONE/SELF_ATTESTATION, RegistrationResult.AttestationTrusted equals
	// this flag (true); for BASIC without trusted metadata it is false and a
	// warning is added to the result.
	AllowUntrustedAttestation bool

	// AllowUnrequestedExtensions, when true, downgrades an extensions
	// §4.3 subset violation from a fatal ContractViolation to a warning on
	// the assertion result.
	AllowUnrequestedExtensions bool

	// ValidateTypeAttribute governs spec §4.7 step 7: true makes a C.type
	// mismatch fatal, false downgrades it to a warning.
	ValidateTypeAttribute bool

	// ValidateSignatureCounter governs spec §4.7 step 17: true makes a
	// signature-counter regression fatal, false downgrades it to
	// AssertionResult.SignatureCounterValid = false.
	ValidateSignatureCounter bool

	// MetadataService is optional; required only when a BASIC attestation
	// is encountered (spec §4.6 step 15).
	MetadataService MetadataService

	// CredentialRepository is required.
	CredentialRepository CredentialRepository
}

// RelyingParty executes registration and assertion ceremonies against a
// fixed Config. It holds no mutable state of its own: every exported method
// is a pure function of (Config, request, response, repository-view),
// safe to call concurrently from multiple goroutines for multiple
// ceremonies (spec §5).
type RelyingParty struct {
	Config Config
}

// NewRelyingParty constructs a RelyingParty from cfg. cfg.CredentialRepository
// must be non-nil; this is checked lazily on first use rather than here, to
// keep construction itself infallible (matching the teacher's plain-struct
// RelyingParty{ID, Origin} literal convention — most pack repos build their
// webauthn engine type as a struct literal, not through a fallible
// constructor).
func NewRelyingParty(cfg Config) *RelyingParty {
	return &RelyingParty{Config: cfg}
}

func (rp *RelyingParty) repository() (CredentialRepository, error) {
	if rp.Config.CredentialRepository == nil {
		return nil, ErrInternal.WithDetails("no credential repository configured")
	}
	return rp.Config.CredentialRepository, nil
}
