package vaultmeta

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// Envelope is the on-the-wire shape of every encrypted metadata object:
// a hex-encoded GCM nonce and a base64-encoded ciphertext+tag. Go's
// encoding/json preserves struct declaration order on marshal, so this
// type doubles as the canonical-JSON serialization with no dedicated
// canonical-JSON library needed.
type Envelope struct {
	IV   string `json:"iv_hex"`
	Data string `json:"data_b64"`
}

// encryptEnvelope serializes obj to canonical JSON and seals it under key,
// returning the hex/base64 envelope shape stored on the network.
func encryptEnvelope(obj interface{}, key []byte) (*Envelope, error) {
	plaintext, err := json.Marshal(obj)
	if err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}

	nonce, err := crypto.NewGCMNonce()
	if err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}

	ciphertext, err := crypto.EncryptGCM(key, nonce, plaintext)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		IV:   hex.EncodeToString(nonce),
		Data: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// decryptEnvelopeToMap opens an encrypted blob under key and parses the
// recovered plaintext into a generic field map. Any failure along the way,
// malformed envelope JSON, bad hex/base64, a GCM tag mismatch, malformed
// plaintext JSON included, collapses to the single generic DecryptionFailed kind, so
// callers (and attackers) cannot distinguish which check failed.
func decryptEnvelopeToMap(blob []byte, key []byte) (map[string]interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}

	nonce, err := hex.DecodeString(env.IV)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}

	plaintext, err := crypto.DecryptGCM(key, nonce, ciphertext)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	return fields, nil
}
