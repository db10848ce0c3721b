package fileobject

import "github.com/cipherbox-vault/core/pkg/crypto"

// legacyFilePointerSeedInfo domain-separates the legacy per-file seed
// derivation from every other HKDF use in the vault core.
const legacyFilePointerSeedInfo = "cipherbox-legacy-file-seed-v1:"

// DeriveLegacyFilePointerSeed rederives the Ed25519 seed for a file's own
// mutable pointer from the vault key and the file's id, for FilePointer
// records written before wrapped per-file signing keys existed
// (HasWrappedSigningKey false). The folder graph uses this only to
// read such a file; it opportunistically backfills IpnsPrivateKeyEncrypted
// the next time that folder's metadata is republished for any reason.
func DeriveLegacyFilePointerSeed(vaultPrivateKey []byte, fileID string) ([]byte, error) {
	return crypto.DeriveKey(vaultPrivateKey, legacyFilePointerSeedInfo+fileID, crypto.Ed25519SeedSize)
}
