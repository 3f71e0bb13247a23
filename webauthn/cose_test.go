package webauthn

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestDecodeCOSEKeyEC2(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	raw := buildCOSEKey(t, &priv.PublicKey)

	key, err := decodeCOSEKey(raw)
	require.NoError(t, err)
	require.Equal(t, ES256, key.Algorithm)

	pub, ok := key.Public.(*ecdsa.PublicKey)
	require.True(t, ok)
	require.Equal(t, priv.PublicKey.X, pub.X)
	require.Equal(t, priv.PublicKey.Y, pub.Y)
}

func TestDecodeCOSEKeyOKP(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	m := map[interface{}]interface{}{
		int64(1):  int64(coseKtyOKP),
		int64(3):  int64(EdDSA),
		int64(-1): int64(coseCrvEd25519),
		int64(-2): []byte(pub),
	}
	raw, err := cbor.Marshal(m)
	require.NoError(t, err)

	key, err := decodeCOSEKey(raw)
	require.NoError(t, err)
	require.Equal(t, EdDSA, key.Algorithm)
	require.Equal(t, pub, key.Public)
}

func TestDecodeCOSEKeyRejectsUnsupportedKty(t *testing.T) {
	m := map[interface{}]interface{}{
		int64(1): int64(99),
		int64(3): int64(ES256),
	}
	raw, err := cbor.Marshal(m)
	require.NoError(t, err)

	_, err = decodeCOSEKey(raw)
	require.Error(t, err)
	require.True(t, IsKind(err, KindUnsupportedFormat))
}

func TestIsP256RejectsSecp256k1LookalikeBitSize(t *testing.T) {
	require.True(t, IsP256(elliptic.P256()))
	require.False(t, IsP256(elliptic.P384()))

	hexInt := func(s string) *big.Int {
		n, ok := new(big.Int).SetString(s, 16)
		require.True(t, ok)
		return n
	}
	secp256k1 := &elliptic.CurveParams{
		P:       hexInt("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F"),
		N:       hexInt("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"),
		B:       big.NewInt(7),
		Gx:      hexInt("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798"),
		Gy:      hexInt("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8"),
		BitSize: 256,
		Name:    "secp256k1",
	}
	require.False(t, IsP256(secp256k1))
}

func TestUncompressedECPointRoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	point := UncompressedECPoint(&priv.PublicKey)
	require.Equal(t, byte(0x04), point[0])
	require.Len(t, point, 65)
	require.Equal(t, 0, priv.PublicKey.X.Cmp(new(big.Int).SetBytes(point[1:33])))
	require.Equal(t, 0, priv.PublicKey.Y.Cmp(new(big.Int).SetBytes(point[33:65])))
}

func TestAlgorithmString(t *testing.T) {
	require.Equal(t, "ES256", ES256.String())
	require.Contains(t, Algorithm(12345).String(), "12345")
}
