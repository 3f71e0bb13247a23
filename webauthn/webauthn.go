// Package webauthn implements the server-side core ceremony engine for Web
// Authentication (WebAuthn/FIDO2): verification of navigator.credentials.create()
// registration responses and navigator.credentials.get() assertion
// responses against a Relying Party's configuration, per WebAuthn §7.1 and
// §7.2.
//
// The package is a library, not a server: it has no HTTP handlers, no
// session storage, and no opinion about how a caller generates or stores
// challenges. Callers supply a Config (§6) naming their CredentialRepository
// and, optionally, a MetadataService, then call RelyingParty.Register and
// RelyingParty.Authenticate with the stored challenge and the client's
// response.
package webauthn

import "crypto/sha256"

// rpIDHash computes SHA-256(rpID), compared against authData.rpIdHash by
// both pipelines.
func rpIDHash(rpID string) [32]byte {
	return sha256.Sum256([]byte(rpID))
}
