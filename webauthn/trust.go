package webauthn

import "github.com/gravitational/trace"

// trustResolver consults a MetadataService to decide whether an
// attestation's trust path chains to a trusted root (spec §4.5). The core
// never embeds trust roots itself; this type is a thin adapter between a
// Verifier's TrustPath and the caller-supplied MetadataService.
type trustResolver struct {
	metadata MetadataService
}

func newTrustResolver(metadata MetadataService) *trustResolver {
	return &trustResolver{metadata: metadata}
}

// resolve parses the trust path out of obj via verifier and asks the
// metadata service about it. A nil trust path (e.g. self-attestation, or a
// format with no certificates) is resolved without consulting the service:
// there is nothing for it to vouch for.
func (r *trustResolver) resolve(verifier Verifier, obj *AttestationObject) (*Attestation, error) {
	trustPath, err := verifier.TrustPath(obj)
	if err != nil {
		return nil, err
	}
	if len(trustPath) == 0 {
		return nil, nil
	}
	if r.metadata == nil {
		return nil, ErrInternal.WithDetails("no metadata service configured to resolve a certificate trust path")
	}
	attestation, err := r.metadata.GetAttestation(trustPath)
	if err != nil {
		return nil, ErrInternal.WithDetails("metadata service query failed").WithCause(trace.Wrap(err))
	}
	return attestation, nil
}
