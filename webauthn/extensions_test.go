package webauthn

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestCheckExtensionsAllowsRequestedSubset(t *testing.T) {
	requested := map[string]interface{}{"credProtect": true, "hmac-secret": true}
	err := checkExtensions(requested, []string{"credProtect"}, []string{"hmac-secret"})
	require.NoError(t, err)
}

func TestCheckExtensionsRejectsUnrequested(t *testing.T) {
	err := checkExtensions(nil, nil, []string{"credProtect"})
	require.Error(t, err)
	require.True(t, IsKind(err, KindContractViolation))
}

func TestDecodeAuthenticatorExtensionIDsEmptyInput(t *testing.T) {
	ids, err := decodeAuthenticatorExtensionIDs(nil)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestDecodeAuthenticatorExtensionIDsDecodesKeys(t *testing.T) {
	raw, err := cbor.Marshal(map[string]interface{}{"credProtect": 2})
	require.NoError(t, err)

	ids, err := decodeAuthenticatorExtensionIDs(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"credProtect"}, ids)
}
