package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	pub, priv := testKeypair(t)
	message := []byte("drip.lunark.dev wants you to sign in")

	sig := ed25519.Sign(priv, message)
	assert.True(t, VerifySignature(message, sig, pub))
}

func TestVerifySignatureRejectsTamperedMessage(t *testing.T) {
	pub, priv := testKeypair(t)
	message := []byte("original message")
	sig := ed25519.Sign(priv, message)

	tampered := append([]byte(nil), message...)
	tampered[0] ^= 0x01
	assert.False(t, VerifySignature(tampered, sig, pub))
}

func TestVerifySignatureRejectsFlippedSignatureByte(t *testing.T) {
	pub, priv := testKeypair(t)
	message := []byte("message")
	sig := ed25519.Sign(priv, message)

	for _, i := range []int{0, 31, 63} {
		flipped := append([]byte(nil), sig...)
		flipped[i] ^= 0x01
		assert.False(t, VerifySignature(message, flipped, pub), "flipped byte %d", i)
	}
}

func TestVerifySignatureRejectsWrongKey(t *testing.T) {
	_, priv := testKeypair(t)
	otherPub, _ := testKeypair(t)
	message := []byte("message")

	sig := ed25519.Sign(priv, message)
	assert.False(t, VerifySignature(message, sig, otherPub))
}

func TestVerifySignatureMalformedInputs(t *testing.T) {
	pub, priv := testKeypair(t)
	message := []byte("message")
	sig := ed25519.Sign(priv, message)

	assert.False(t, VerifySignature(message, sig[:63], pub))
	assert.False(t, VerifySignature(message, nil, pub))
	assert.False(t, VerifySignature(message, sig, pub[:31]))
	assert.False(t, VerifySignature(message, sig, nil))
}

func TestDecodeAddress(t *testing.T) {
	pub, _ := testKeypair(t)
	address := base58.Encode(pub)

	decoded, ok := DecodeAddress(address)
	require.True(t, ok)
	assert.Equal(t, ed25519.PublicKey(pub), decoded)
	assert.True(t, ValidAddress(address))
}

func TestDecodeAddressRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"too short":       "abc",
		"invalid base58":  "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl",
		"wrong byte size": base58.Encode([]byte("only sixteen byte")),
		"too long":        base58.Encode(make([]byte, 64)),
	}

	for name, address := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := DecodeAddress(address)
			assert.False(t, ok)
			assert.False(t, ValidAddress(address))
		})
	}
}

func TestDecodeSignature(t *testing.T) {
	_, priv := testKeypair(t)
	sig := ed25519.Sign(priv, []byte("message"))

	decoded, ok := DecodeSignature(base58.Encode(sig))
	require.True(t, ok)
	assert.Equal(t, sig, decoded)

	_, ok = DecodeSignature("")
	assert.False(t, ok)
	_, ok = DecodeSignature(base58.Encode(sig[:32]))
	assert.False(t, ok)
}
