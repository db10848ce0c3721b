package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// HKDFSalt is the fixed salt used for every vault-scoped HKDF-SHA256
// derivation. It is not a secret; it domain-separates CipherBox's
// derivations from any other use of the same input keying material.
const HKDFSalt = "CipherBox-v1"

// DeriveKey runs HKDF-SHA256 extract-then-expand over secret with the fixed
// vault salt and the given info string, producing length bytes of output
// keying material.
func DeriveKey(secret []byte, info string, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, []byte(HKDFSalt), []byte(info))
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}
	return out, nil
}
