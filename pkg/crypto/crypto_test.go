package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

func TestGCMRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, KeySize)
	nonce, err := NewGCMNonce()
	require.NoError(t, err)

	plaintext := []byte("hello.txt metadata payload")
	ciphertext, err := EncryptGCM(key, nonce, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := DecryptGCM(key, nonce, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestGCMTagMismatchIsGenericDecryptionFailed(t *testing.T) {
	key := bytes.Repeat([]byte{0x02}, KeySize)
	nonce, err := NewGCMNonce()
	require.NoError(t, err)

	ciphertext, err := EncryptGCM(key, nonce, []byte("ABCD"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = DecryptGCM(key, nonce, ciphertext)
	require.Error(t, err)
	assert.True(t, vaulterrors.IsDecryptionFailedError(err))
}

func TestCTRRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x03}, KeySize)
	nonce, err := NewCTRNonce()
	require.NoError(t, err)

	plaintext := []byte("A")
	ciphertext, err := EncryptCTR(key, nonce, plaintext)
	require.NoError(t, err)

	decrypted, err := DecryptCTR(key, nonce, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestCTRRangeDecrypt(t *testing.T) {
	key := bytes.Repeat([]byte{0x04}, KeySize)
	nonce, err := NewCTRNonce()
	require.NoError(t, err)

	plaintext := bytes.Repeat([]byte("0123456789"), 10) // 100 bytes, spans multiple AES blocks
	ciphertext, err := EncryptCTR(key, nonce, plaintext)
	require.NoError(t, err)

	for _, tc := range []struct{ offset, length int }{
		{0, 10}, {5, 20}, {16, 16}, {50, 50}, {90, 10},
	} {
		got, err := DecryptCTRRange(key, nonce, ciphertext, tc.offset, tc.length)
		require.NoError(t, err)
		assert.Equal(t, plaintext[tc.offset:tc.offset+tc.length], got)
	}
}

func TestECIESRoundTrip(t *testing.T) {
	priv, pub, err := GenerateSECP256K1KeyPair()
	require.NoError(t, err)

	for _, plaintext := range [][]byte{
		bytes.Repeat([]byte{0xAA}, 32),
		bytes.Repeat([]byte{0xBB}, 64),
	} {
		envelope, err := WrapECIES(plaintext, pub)
		require.NoError(t, err)
		assert.Equal(t, len(plaintext)+97, len(envelope), "ECIES overhead must be exactly 97 bytes")

		decrypted, err := UnwrapECIES(envelope, priv)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestECIESWrappedLengths(t *testing.T) {
	_, pub, err := GenerateSECP256K1KeyPair()
	require.NoError(t, err)

	env32, err := WrapECIES(make([]byte, 32), pub)
	require.NoError(t, err)
	assert.Len(t, env32, 129)

	env64, err := WrapECIES(make([]byte, 64), pub)
	require.NoError(t, err)
	assert.Len(t, env64, 161)
}

func TestEd25519SignVerify(t *testing.T) {
	seed, err := NewEd25519Seed()
	require.NoError(t, err)

	pub, err := Ed25519PublicKeyFromSeed(seed)
	require.NoError(t, err)

	message := []byte("pointer-record-value|sequence|validity")
	sig, err := SignEd25519(seed, message)
	require.NoError(t, err)

	assert.True(t, VerifyEd25519(pub, message, sig))
	assert.False(t, VerifyEd25519(pub, append(message, 'x'), sig))
}

func TestHKDFIsDeterministic(t *testing.T) {
	secret := []byte("vault-key-material")
	k1, err := DeriveKey(secret, "info-a", 32)
	require.NoError(t, err)
	k2, err := DeriveKey(secret, "info-a", 32)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := DeriveKey(secret, "info-b", 32)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}
