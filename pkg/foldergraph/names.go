package foldergraph

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/cipherbox-vault/core/pkg/crypto"
)

// encryptName seals name under folderKey, returning the base64 ciphertext
// and hex nonce stored as a child entry's nameEncrypted/nameIv fields.
func encryptName(folderKey []byte, name string) (nameEncrypted, nameIv string, err error) {
	nonce, err := crypto.NewGCMNonce()
	if err != nil {
		return "", "", err
	}
	ciphertext, err := crypto.EncryptGCM(folderKey, nonce, []byte(name))
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), hex.EncodeToString(nonce), nil
}

// decryptName inverts encryptName.
func decryptName(folderKey []byte, nameEncrypted, nameIv string) (string, error) {
	nonce, err := hex.DecodeString(nameIv)
	if err != nil {
		return "", err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(nameEncrypted)
	if err != nil {
		return "", err
	}
	plaintext, err := crypto.DecryptGCM(folderKey, nonce, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
