package webauthn

import "fmt"

// checkExtensions implements the subset check of spec §4.3: every
// identifier the client or authenticator reports must have been present in
// the requested extension map. requested may be nil (no extensions were
// requested, so both reported sets must be empty); clientExtensionIDs and
// authenticatorExtensionIDs may each be nil/empty.
func checkExtensions(requested map[string]interface{}, clientExtensionIDs, authenticatorExtensionIDs []string) error {
	for _, id := range clientExtensionIDs {
		if !extensionRequested(requested, id) {
			return ErrContractViolation.WithDetails("unrequested client extension").
				WithInfo(fmt.Sprintf("extension %q was not requested", id))
		}
	}
	for _, id := range authenticatorExtensionIDs {
		if !extensionRequested(requested, id) {
			return ErrContractViolation.WithDetails("unrequested authenticator extension").
				WithInfo(fmt.Sprintf("extension %q was not requested", id))
		}
	}
	return nil
}

func extensionRequested(requested map[string]interface{}, id string) bool {
	if requested == nil {
		return false
	}
	_, ok := requested[id]
	return ok
}

// decodeAuthenticatorExtensionIDs decodes an extensions CBOR map (as found
// in AuthenticatorData.Extensions) into its set of top-level keys. A nil
// input (ED flag unset) yields an empty set, per spec §4.3.
func decodeAuthenticatorExtensionIDs(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	m, err := decodeCBORMap(raw)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m))
	for k := range m {
		s, ok := k.(string)
		if !ok {
			return nil, ErrMalformedInput.WithDetails("authenticator extension key is not a string")
		}
		ids = append(ids, s)
	}
	return ids, nil
}
