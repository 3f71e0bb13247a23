package webauthn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAAGUIDRoundTrip(t *testing.T) {
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i)
	}
	aaguid, err := ParseAAGUID(raw)
	require.NoError(t, err)
	require.Equal(t, raw, aaguid.Bytes())
}

func TestParseAAGUIDRejectsWrongLength(t *testing.T) {
	_, err := ParseAAGUID([]byte{1, 2, 3})
	require.Error(t, err)
	require.True(t, IsKind(err, KindMalformedInput))
}

func TestParseAAGUIDStringRoundTrip(t *testing.T) {
	aaguid, err := ParseAAGUIDString("01020304-0506-0708-090a-0b0c0d0e0f10")
	require.NoError(t, err)
	require.Equal(t, "01020304-0506-0708-090a-0b0c0d0e0f10", aaguid.String())
}

func TestAAGUIDJSONRoundTrip(t *testing.T) {
	raw := make([]byte, 16)
	raw[15] = 0x42
	aaguid, err := ParseAAGUID(raw)
	require.NoError(t, err)

	b, err := json.Marshal(aaguid)
	require.NoError(t, err)

	var decoded AAGUID
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, aaguid, decoded)
}

func TestNilAAGUIDIsAllZero(t *testing.T) {
	require.Equal(t, make([]byte, 16), NilAAGUID.Bytes())
}
