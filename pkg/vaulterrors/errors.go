// Package vaulterrors defines the tagged error kinds shared by every layer
// of the vault core, from the primitives package up through the publish
// pipeline. Errors are values, not exception hierarchies: callers switch on
// Code rather than on string matching or type assertions against many types.
package vaulterrors

import "fmt"

// VaultError is the single error type returned by every vault-core package.
type VaultError struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description. For the crypto-failure
	// codes this is deliberately generic: it must never disclose which
	// structural check failed, to avoid giving an attacker an oracle.
	Message string

	// PointerID is the mutable-pointer identifier related to the error,
	// when applicable (empty otherwise).
	PointerID string
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	if e.PointerID != "" {
		return e.Message + ": " + e.PointerID
	}
	return e.Message
}

// ErrorCode categorizes a VaultError.
type ErrorCode int

const (
	// ErrInvalidKeySize indicates a symmetric or seed key was not the
	// expected length. Programmer/input error, fatal to the operation.
	ErrInvalidKeySize ErrorCode = iota

	// ErrInvalidIvSize indicates a nonce/IV was not the expected length
	// for the cipher mode in use.
	ErrInvalidIvSize

	// ErrInvalidPublicKeySize indicates a secp256k1 or Ed25519 public key
	// was not the expected length.
	ErrInvalidPublicKeySize

	// ErrInvalidPrivateKeySize indicates a secp256k1 or Ed25519 private
	// key/seed was not the expected length.
	ErrInvalidPrivateKeySize

	// ErrInvalidSignatureSize indicates an Ed25519 signature was not
	// exactly 64 bytes.
	ErrInvalidSignatureSize

	// ErrEncryptionFailed is a generic symmetric-encryption failure.
	ErrEncryptionFailed

	// ErrDecryptionFailed is a generic symmetric-decryption or
	// metadata-validation failure. Covers both AEAD tag mismatches and
	// codec validation failures; the caller cannot distinguish
	// "wrong key" from "malformed metadata".
	ErrDecryptionFailed

	// ErrKeyWrappingFailed is a generic ECIES wrap failure.
	ErrKeyWrappingFailed

	// ErrKeyUnwrappingFailed is a generic ECIES unwrap failure.
	ErrKeyUnwrappingFailed

	// ErrSigningFailed is a generic Ed25519 signing failure.
	ErrSigningFailed

	// ErrSequenceUnknown indicates a publish was attempted on a pointer
	// with no cached sequence and an unresolvable remote sequence.
	ErrSequenceUnknown

	// ErrQuotaExceeded is surfaced from the façade; nothing was written.
	ErrQuotaExceeded

	// ErrNameCollision is returned before any upload side effect begins.
	ErrNameCollision

	// ErrRoutingUnavailable is transient; triggers the cached-fallback
	// resolve path.
	ErrRoutingUnavailable

	// ErrSignatureMismatch indicates a resolved pointer record's
	// signature failed verification; its value must be discarded.
	ErrSignatureMismatch

	// ErrIdentityMissing indicates Open was called without a usable
	// vault keypair.
	ErrIdentityMissing

	// ErrVaultNotInitialized indicates the façade has no root pointer
	// bootstrap record for this user yet.
	ErrVaultNotInitialized
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidKeySize:
		return "InvalidKeySize"
	case ErrInvalidIvSize:
		return "InvalidIvSize"
	case ErrInvalidPublicKeySize:
		return "InvalidPublicKeySize"
	case ErrInvalidPrivateKeySize:
		return "InvalidPrivateKeySize"
	case ErrInvalidSignatureSize:
		return "InvalidSignatureSize"
	case ErrEncryptionFailed:
		return "EncryptionFailed"
	case ErrDecryptionFailed:
		return "DecryptionFailed"
	case ErrKeyWrappingFailed:
		return "KeyWrappingFailed"
	case ErrKeyUnwrappingFailed:
		return "KeyUnwrappingFailed"
	case ErrSigningFailed:
		return "SigningFailed"
	case ErrSequenceUnknown:
		return "SequenceUnknown"
	case ErrQuotaExceeded:
		return "QuotaExceeded"
	case ErrNameCollision:
		return "NameCollision"
	case ErrRoutingUnavailable:
		return "RoutingUnavailable"
	case ErrSignatureMismatch:
		return "SignatureMismatch"
	case ErrIdentityMissing:
		return "IdentityMissing"
	case ErrVaultNotInitialized:
		return "VaultNotInitialized"
	default:
		return "Unknown"
	}
}

// ============================================================================
// Error factory functions
// ============================================================================

// NewInvalidKeySizeError creates a VaultError for a malformed symmetric key.
func NewInvalidKeySizeError() *VaultError {
	return &VaultError{Code: ErrInvalidKeySize, Message: "invalid key size"}
}

// NewInvalidIvSizeError creates a VaultError for a malformed nonce/IV.
func NewInvalidIvSizeError() *VaultError {
	return &VaultError{Code: ErrInvalidIvSize, Message: "invalid iv size"}
}

// NewInvalidPublicKeySizeError creates a VaultError for a malformed public key.
func NewInvalidPublicKeySizeError() *VaultError {
	return &VaultError{Code: ErrInvalidPublicKeySize, Message: "invalid public key size"}
}

// NewInvalidPrivateKeySizeError creates a VaultError for a malformed private key or seed.
func NewInvalidPrivateKeySizeError() *VaultError {
	return &VaultError{Code: ErrInvalidPrivateKeySize, Message: "invalid private key size"}
}

// NewInvalidSignatureSizeError creates a VaultError for a malformed signature.
func NewInvalidSignatureSizeError() *VaultError {
	return &VaultError{Code: ErrInvalidSignatureSize, Message: "invalid signature size"}
}

// NewEncryptionFailedError creates a generic symmetric-encryption VaultError.
func NewEncryptionFailedError() *VaultError {
	return &VaultError{Code: ErrEncryptionFailed, Message: "encryption failed"}
}

// NewDecryptionFailedError creates a generic symmetric-decryption or
// validation VaultError. The message is intentionally uninformative.
func NewDecryptionFailedError() *VaultError {
	return &VaultError{Code: ErrDecryptionFailed, Message: "decryption failed"}
}

// NewKeyWrappingFailedError creates a generic ECIES wrap VaultError.
func NewKeyWrappingFailedError() *VaultError {
	return &VaultError{Code: ErrKeyWrappingFailed, Message: "key wrapping failed"}
}

// NewKeyUnwrappingFailedError creates a generic ECIES unwrap VaultError.
func NewKeyUnwrappingFailedError() *VaultError {
	return &VaultError{Code: ErrKeyUnwrappingFailed, Message: "key unwrapping failed"}
}

// NewSigningFailedError creates a generic Ed25519 signing VaultError.
func NewSigningFailedError() *VaultError {
	return &VaultError{Code: ErrSigningFailed, Message: "signing failed"}
}

// NewSequenceUnknownError creates a VaultError for a publish attempted
// without any cached or resolvable sequence for pointerID.
func NewSequenceUnknownError(pointerID string) *VaultError {
	return &VaultError{
		Code:      ErrSequenceUnknown,
		Message:   "no cached or resolvable sequence for pointer",
		PointerID: pointerID,
	}
}

// NewQuotaExceededError creates a VaultError surfaced from the façade.
func NewQuotaExceededError() *VaultError {
	return &VaultError{Code: ErrQuotaExceeded, Message: "storage quota exceeded"}
}

// NewNameCollisionError creates a VaultError for a duplicate child name
// within a folder, detected before any upload side effect.
func NewNameCollisionError(name string) *VaultError {
	return &VaultError{Code: ErrNameCollision, Message: fmt.Sprintf("name already exists: %q", name)}
}

// NewRoutingUnavailableError creates a transient VaultError for the mutable
// pointer routing layer.
func NewRoutingUnavailableError(pointerID string) *VaultError {
	return &VaultError{
		Code:      ErrRoutingUnavailable,
		Message:   "pointer routing layer unavailable",
		PointerID: pointerID,
	}
}

// NewSignatureMismatchError creates a VaultError for a resolved pointer
// record whose signature failed verification.
func NewSignatureMismatchError(pointerID string) *VaultError {
	return &VaultError{
		Code:      ErrSignatureMismatch,
		Message:   "pointer record signature verification failed",
		PointerID: pointerID,
	}
}

// NewIdentityMissingError creates a VaultError for Open called without a
// usable vault keypair.
func NewIdentityMissingError() *VaultError {
	return &VaultError{Code: ErrIdentityMissing, Message: "no vault keypair supplied"}
}

// NewVaultNotInitializedError creates a VaultError for a façade with no
// root pointer bootstrap record for this user.
func NewVaultNotInitializedError() *VaultError {
	return &VaultError{Code: ErrVaultNotInitialized, Message: "vault not initialized"}
}

// ============================================================================
// Predicates
// ============================================================================

// Code extracts the ErrorCode from err, if it is a *VaultError.
func Code(err error) (ErrorCode, bool) {
	ve, ok := err.(*VaultError)
	if !ok {
		return 0, false
	}
	return ve.Code, true
}

// IsDecryptionFailedError reports whether err is a VaultError with ErrDecryptionFailed.
func IsDecryptionFailedError(err error) bool {
	c, ok := Code(err)
	return ok && c == ErrDecryptionFailed
}

// IsSequenceUnknownError reports whether err is a VaultError with ErrSequenceUnknown.
func IsSequenceUnknownError(err error) bool {
	c, ok := Code(err)
	return ok && c == ErrSequenceUnknown
}

// IsQuotaExceededError reports whether err is a VaultError with ErrQuotaExceeded.
func IsQuotaExceededError(err error) bool {
	c, ok := Code(err)
	return ok && c == ErrQuotaExceeded
}

// IsNameCollisionError reports whether err is a VaultError with ErrNameCollision.
func IsNameCollisionError(err error) bool {
	c, ok := Code(err)
	return ok && c == ErrNameCollision
}

// IsRoutingUnavailableError reports whether err is a VaultError with ErrRoutingUnavailable.
func IsRoutingUnavailableError(err error) bool {
	c, ok := Code(err)
	return ok && c == ErrRoutingUnavailable
}

// IsSignatureMismatchError reports whether err is a VaultError with ErrSignatureMismatch.
func IsSignatureMismatchError(err error) bool {
	c, ok := Code(err)
	return ok && c == ErrSignatureMismatch
}
