package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// KeySize is the length in bytes of every AES-256 key used by the vault core.
const KeySize = 32

// GCMNonceSize is the length in bytes of the nonce used for metadata and
// default file-body authenticated encryption.
const GCMNonceSize = 12

// NewGCMNonce returns a fresh cryptographically random nonce suitable for
// one AES-256-GCM encryption under a given key. Nonces must never repeat
// under the same key.
func NewGCMNonce() ([]byte, error) {
	nonce := make([]byte, GCMNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}
	return nonce, nil
}

// EncryptGCM encrypts plaintext under key with nonce, returning the
// ciphertext with the 16-byte authentication tag appended. key must be 32
// bytes and nonce must be GCMNonceSize bytes.
func EncryptGCM(key, nonce, plaintext []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, vaulterrors.NewInvalidKeySizeError()
	}
	if len(nonce) != GCMNonceSize {
		return nil, vaulterrors.NewInvalidIvSizeError()
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// DecryptGCM decrypts ciphertext (which must include the trailing 16-byte
// tag) under key with nonce. Any tag mismatch or shape error is reported as
// the generic DecryptionFailed kind, never disclosing which check failed.
func DecryptGCM(key, nonce, ciphertext []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, vaulterrors.NewInvalidKeySizeError()
	}
	if len(nonce) != GCMNonceSize {
		return nil, vaulterrors.NewInvalidIvSizeError()
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	return plaintext, nil
}
