package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// CTRNonceSize is the length in bytes of the counter block used for
// unauthenticated streaming file bodies: 8 bytes of random nonce followed
// by an 8-byte big-endian counter, starting at zero.
const CTRNonceSize = 16

const ctrRandomPrefixSize = 8

// NewCTRNonce returns a fresh 16-byte counter block: 8 random bytes
// followed by an all-zero 8-byte counter.
func NewCTRNonce() ([]byte, error) {
	block := make([]byte, CTRNonceSize)
	if _, err := rand.Read(block[:ctrRandomPrefixSize]); err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}
	// The trailing 8 bytes are the counter; it starts at zero.
	return block, nil
}

// EncryptCTR encrypts plaintext under key using AES-256-CTR with the given
// 16-byte counter block. Used only for file bodies whose integrity is
// covered by the pinning layer's content hash; CTR provides no
// authentication of its own.
func EncryptCTR(key, nonce, plaintext []byte) ([]byte, error) {
	stream, err := newCTRStream(key, nonce)
	if err != nil {
		return nil, err
	}
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)
	return ciphertext, nil
}

// DecryptCTR decrypts the full ciphertext under key using AES-256-CTR with
// the given 16-byte counter block.
func DecryptCTR(key, nonce, ciphertext []byte) ([]byte, error) {
	stream, err := newCTRStream(key, nonce)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// DecryptCTRRange decrypts the byte range [offset, offset+length) of the
// plaintext without decrypting the bytes outside it. It block-aligns the
// requested range, seeks the counter to the starting block, decrypts the
// block-aligned span of ciphertext, then slices out exactly the requested
// bytes.
func DecryptCTRRange(key, nonce, ciphertext []byte, offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > len(ciphertext) {
		return nil, vaulterrors.NewInvalidIvSizeError()
	}

	startBlock := offset / aes.BlockSize
	alignedStart := startBlock * aes.BlockSize
	alignedEnd := offset + length
	if rem := alignedEnd % aes.BlockSize; rem != 0 {
		alignedEnd += aes.BlockSize - rem
	}
	if alignedEnd > len(ciphertext) {
		alignedEnd = len(ciphertext)
	}

	seeked, err := seekCounter(nonce, uint64(startBlock))
	if err != nil {
		return nil, err
	}

	stream, err := newCTRStream(key, seeked)
	if err != nil {
		return nil, err
	}

	span := ciphertext[alignedStart:alignedEnd]
	plaintext := make([]byte, len(span))
	stream.XORKeyStream(plaintext, span)

	sliceStart := offset - alignedStart
	sliceEnd := sliceStart + length
	return plaintext[sliceStart:sliceEnd], nil
}

// seekCounter returns a copy of nonce with its trailing 8-byte big-endian
// counter advanced by blockOffset.
func seekCounter(nonce []byte, blockOffset uint64) ([]byte, error) {
	if len(nonce) != CTRNonceSize {
		return nil, vaulterrors.NewInvalidIvSizeError()
	}
	seeked := make([]byte, CTRNonceSize)
	copy(seeked, nonce)
	counter := binary.BigEndian.Uint64(seeked[ctrRandomPrefixSize:])
	binary.BigEndian.PutUint64(seeked[ctrRandomPrefixSize:], counter+blockOffset)
	return seeked, nil
}

func newCTRStream(key, nonce []byte) (cipher.Stream, error) {
	if len(key) != KeySize {
		return nil, vaulterrors.NewInvalidKeySizeError()
	}
	if len(nonce) != CTRNonceSize {
		return nil, vaulterrors.NewInvalidIvSizeError()
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterrors.NewInvalidKeySizeError()
	}
	return cipher.NewCTR(block, nonce), nil
}
