package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// eciesNonceSize is the GCM nonce size used inside an ECIES envelope. A
// 16-byte nonce (rather than the usual 12) is what makes the envelope
// overhead land on a constant 97 bytes: 65-byte uncompressed
// ephemeral public key + 16-byte nonce + 16-byte GCM tag.
const eciesNonceSize = 16

// eciesInfo domain-separates the ECIES key-derivation step from every other
// HKDF use in the vault core.
const eciesInfo = "cipherbox-ecies-v1"

// SECP256K1PublicKeySize is the length in bytes of an uncompressed
// secp256k1 public key (0x04 prefix + 32-byte X + 32-byte Y).
const SECP256K1PublicKeySize = 65

// SECP256K1PrivateKeySize is the length in bytes of a secp256k1 scalar
// private key.
const SECP256K1PrivateKeySize = 32

// WrapECIES encrypts plaintext to recipientPublicKey (65-byte uncompressed
// secp256k1 point) using ECIES: an ephemeral secp256k1 keypair is generated,
// ECDH'd against the recipient's public key, and the shared X-coordinate is
// fed through HKDF-SHA256 to derive an AES-256 key. The envelope is
// ephemeralPublicKey || nonce || ciphertext+tag: a constant 97-byte overhead
// regardless of plaintext length (65 + 16 + 16).
func WrapECIES(plaintext, recipientPublicKey []byte) ([]byte, error) {
	recipientPub, err := secp256k1.ParsePubKey(recipientPublicKey)
	if err != nil {
		return nil, vaulterrors.NewInvalidPublicKeySizeError()
	}

	ephemeralPriv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, vaulterrors.NewKeyWrappingFailedError()
	}
	defer ephemeralPriv.Zero()

	sharedSecret := ecdh(ephemeralPriv, recipientPub)
	defer Zeroize(sharedSecret)

	aesKey, err := DeriveKey(sharedSecret, eciesInfo, KeySize)
	if err != nil {
		return nil, vaulterrors.NewKeyWrappingFailedError()
	}
	defer Zeroize(aesKey)

	nonce := make([]byte, eciesNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, vaulterrors.NewKeyWrappingFailedError()
	}

	ciphertext, err := sealGCMWithNonceSize(aesKey, nonce, plaintext)
	if err != nil {
		return nil, vaulterrors.NewKeyWrappingFailedError()
	}

	ephemeralPub := ephemeralPriv.PubKey().SerializeUncompressed()

	envelope := make([]byte, 0, len(ephemeralPub)+len(nonce)+len(ciphertext))
	envelope = append(envelope, ephemeralPub...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, ciphertext...)
	return envelope, nil
}

// UnwrapECIES inverts WrapECIES using the recipient's 32-byte secp256k1
// private scalar. Any structural or cryptographic failure is reported as
// the generic KeyUnwrappingFailed kind with no further detail, to avoid
// giving an attacker an oracle on which check failed.
func UnwrapECIES(envelope, recipientPrivateKey []byte) ([]byte, error) {
	if len(recipientPrivateKey) != SECP256K1PrivateKeySize {
		return nil, vaulterrors.NewInvalidPrivateKeySizeError()
	}
	if len(envelope) < SECP256K1PublicKeySize+eciesNonceSize {
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}

	ephemeralPubBytes := envelope[:SECP256K1PublicKeySize]
	nonce := envelope[SECP256K1PublicKeySize : SECP256K1PublicKeySize+eciesNonceSize]
	ciphertext := envelope[SECP256K1PublicKeySize+eciesNonceSize:]

	ephemeralPub, err := secp256k1.ParsePubKey(ephemeralPubBytes)
	if err != nil {
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}

	priv := secp256k1.PrivKeyFromBytes(recipientPrivateKey)
	defer priv.Zero()

	sharedSecret := ecdh(priv, ephemeralPub)
	defer Zeroize(sharedSecret)

	aesKey, err := DeriveKey(sharedSecret, eciesInfo, KeySize)
	if err != nil {
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}
	defer Zeroize(aesKey)

	plaintext, err := openGCMWithNonceSize(aesKey, nonce, ciphertext)
	if err != nil {
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}
	return plaintext, nil
}

// ecdh computes the shared secret as the X-coordinate of priv*pub, the way
// every secp256k1 ECIES implementation in the retrieved pack derives its
// shared point before running it through a KDF.
func ecdh(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) []byte {
	var point secp256k1.JacobianPoint
	pub.AsJacobian(&point)

	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&priv.Key, &point, &result)
	result.ToAffine()

	secret := make([]byte, 32)
	result.X.PutBytesUnchecked(secret)
	return secret
}

func sealGCMWithNonceSize(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(nonce))
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

func openGCMWithNonceSize(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(nonce))
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// GenerateSECP256K1KeyPair generates a fresh secp256k1 keypair, returned as
// a 32-byte private scalar and a 65-byte uncompressed public key. Used by
// tests and by tooling that simulates the external identity issuer; the
// vault core itself only ever consumes an already-issued VaultKey.
func GenerateSECP256K1KeyPair() (privateKey, publicKey []byte, err error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, vaulterrors.NewKeyWrappingFailedError()
	}
	defer priv.Zero()

	privCopy := make([]byte, SECP256K1PrivateKeySize)
	privBytes := priv.Serialize()
	copy(privCopy, privBytes)
	Zeroize(privBytes)

	pub := priv.PubKey().SerializeUncompressed()
	return privCopy, pub, nil
}

// SECP256K1PublicKeyFromPrivate derives the 65-byte uncompressed public
// key for a 32-byte private scalar. Returns InvalidPrivateKeySize when the
// scalar has the wrong length.
func SECP256K1PublicKeyFromPrivate(privateKey []byte) ([]byte, error) {
	if len(privateKey) != SECP256K1PrivateKeySize {
		return nil, vaulterrors.NewInvalidPrivateKeySizeError()
	}
	priv := secp256k1.PrivKeyFromBytes(privateKey)
	defer priv.Zero()
	return priv.PubKey().SerializeUncompressed(), nil
}
