package crypto

import (
	"crypto/ed25519"
	"crypto/subtle"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// Ed25519SeedSize is the length in bytes of an Ed25519 private seed, used
// for every mutable-pointer signing key in the vault (root, folder, file).
const Ed25519SeedSize = ed25519.SeedSize

// Ed25519PublicKeySize is the length in bytes of an Ed25519 public key.
const Ed25519PublicKeySize = ed25519.PublicKeySize

// Ed25519SignatureSize is the length in bytes of a detached Ed25519 signature.
const Ed25519SignatureSize = ed25519.SignatureSize

// NewEd25519Seed generates a fresh random 32-byte Ed25519 seed.
func NewEd25519Seed() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, vaulterrors.NewSigningFailedError()
	}
	return priv.Seed(), nil
}

// Ed25519PublicKeyFromSeed derives the public key corresponding to a
// 32-byte Ed25519 seed.
func Ed25519PublicKeyFromSeed(seed []byte) ([]byte, error) {
	if len(seed) != Ed25519SeedSize {
		return nil, vaulterrors.NewInvalidPrivateKeySizeError()
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := make([]byte, Ed25519PublicKeySize)
	copy(pub, priv.Public().(ed25519.PublicKey))
	return pub, nil
}

// SignEd25519 produces a detached signature over message using the private
// key derived from the given 32-byte seed.
func SignEd25519(seed, message []byte) ([]byte, error) {
	if len(seed) != Ed25519SeedSize {
		return nil, vaulterrors.NewInvalidPrivateKeySizeError()
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return ed25519.Sign(priv, message), nil
}

// VerifyEd25519 verifies a detached signature over message under publicKey
// using constant-time comparison internally (crypto/ed25519 already
// verifies in constant time with respect to the signature contents).
func VerifyEd25519(publicKey, message, signature []byte) bool {
	if len(publicKey) != Ed25519PublicKeySize || len(signature) != Ed25519SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}

// ConstantTimeEqual reports whether a and b are equal, in constant time
// with respect to their contents. Used for comparisons that must not leak
// timing information (e.g. pointer identifier matching).
func ConstantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
