// Package mds implements a MetadataService backed by a FIDO Metadata
// Service v3 BLOB, the signed JWT the FIDO Alliance publishes listing known
// authenticator models and their attestation root certificates.
//
// https://fidoalliance.org/metadata/
package mds

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fidocore/webauthn"
)

// Service answers MetadataService queries from a parsed MDS3 BLOB. It is
// read-only after construction and safe for concurrent use.
type Service struct {
	entries []entry
}

type entry struct {
	aaguid      webauthn.AAGUID
	description string
	roots       *x509.CertPool
}

// blobClaims is the subset of the MDS3 BLOB payload this package reads.
//
// https://fidoalliance.org/specs/mds/fido-metadata-service-v3.0-ps-20210518.html
type blobClaims struct {
	jwt.RegisteredClaims
	Entries []metadataEntry `json:"entries"`
}

type metadataEntry struct {
	AAID     string            `json:"aaid"`
	AAGUID   string            `json:"aaguid"`
	Metadata metadataStatement `json:"metadataStatement"`
}

// metadataStatement is the subset of the MDS3 metadata statement schema
// this package reads.
//
// https://fidoalliance.org/specs/mds/fido-metadata-statement-v3.0-ps-20210518.html#metadata-keys
type metadataStatement struct {
	Description                 string   `json:"description"`
	AttestationRootCertificates []string `json:"attestationRootCertificates"`
}

// NewFromBLOB parses a FIDO MDS3 BLOB JWT into a Service.
//
// The BLOB's own signature is not verified here: doing so correctly
// requires pinning the FIDO Alliance's BLOB-signing root, which is a
// deployment-specific trust decision outside this package's scope (see
// DESIGN.md). Callers that need BLOB-signature verification should fetch
// and pin that root themselves and validate the JWT before passing it here;
// NewFromBLOB only decodes the payload.
func NewFromBLOB(blobJWT string) (*Service, error) {
	var claims blobClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(blobJWT, &claims); err != nil {
		return nil, webauthn.ErrMalformedInput.WithDetails("invalid MDS3 BLOB JWT").WithCause(err)
	}

	entries := make([]entry, 0, len(claims.Entries))
	for _, e := range claims.Entries {
		if len(e.Metadata.AttestationRootCertificates) == 0 {
			continue
		}
		aaguid, err := webauthn.ParseAAGUIDString(e.AAGUID)
		if err != nil {
			// Entries keyed by AAID rather than AAGUID (U2F-era devices)
			// fall outside this core's AAGUID-keyed attestation model;
			// skip rather than fail the whole BLOB.
			continue
		}

		pool := x509.NewCertPool()
		for _, certB64 := range e.Metadata.AttestationRootCertificates {
			der, err := base64.StdEncoding.DecodeString(certB64)
			if err != nil {
				return nil, webauthn.ErrMalformedInput.WithDetails(fmt.Sprintf("invalid root certificate for aaguid %s", e.AAGUID)).WithCause(err)
			}
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				return nil, webauthn.ErrMalformedInput.WithDetails(fmt.Sprintf("invalid root certificate for aaguid %s", e.AAGUID)).WithCause(err)
			}
			pool.AddCert(cert)
		}

		entries = append(entries, entry{
			aaguid:      aaguid,
			description: e.Metadata.Description,
			roots:       pool,
		})
	}

	return &Service{entries: entries}, nil
}

// GetAttestation reports whether trustPath chains to a root certificate
// known by any entry in the BLOB (spec §4.5). The BLOB schema keys roots by
// AAGUID, but GetAttestation is not given one, so every known entry's root
// pool is tried in turn; the first that verifies wins.
func (s *Service) GetAttestation(trustPath []*x509.Certificate) (*Attestation, error) {
	if len(trustPath) == 0 {
		return nil, nil
	}
	leaf := trustPath[0]

	intermediates := x509.NewCertPool()
	for _, cert := range trustPath[1:] {
		intermediates.AddCert(cert)
	}

	for _, e := range s.entries {
		_, err := leaf.Verify(x509.VerifyOptions{
			Roots:         e.roots,
			Intermediates: intermediates,
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		})
		if err == nil {
			return &webauthn.Attestation{IsTrusted: true, Identifier: e.description}, nil
		}
	}
	return nil, nil
}

// Attestation is an alias for webauthn.Attestation, kept local so callers
// reading this package's godoc see the concrete return type inline.
type Attestation = webauthn.Attestation
