// Package vault owns the root of trust of a CipherBox vault: the root
// folder key, the root mutable-pointer signing key, and their ECIES
// wrappings. It exposes Open, which materializes the in-memory vault root
// from an already-issued vault keypair, and Export, which produces an
// offline recovery bundle.
package vault

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

// Keypair is the user's secp256k1 identity, produced by an external
// identity issuer (threshold-MPC or external wallet). The vault core
// treats it only as a given input to Open; it never generates or recovers
// one itself.
type Keypair struct {
	PrivateKey []byte // 32-byte secp256k1 scalar
	PublicKey  []byte // 65-byte uncompressed secp256k1 point
}

// Root is the materialized in-memory vault root: the unwrapped root
// folder key, the unwrapped root mutable-pointer signing seed, the root
// pointer id, and the still-wrapped forms needed to rebuild an export
// bundle without asking the façade again.
//
// Root owns the only copies of the unwrapped keys; Close must be called
// on every exit path to zeroize them.
type Root struct {
	RootIpnsName string

	RootFolderKey      []byte // 32 bytes, unwrapped
	RootIpnsPrivateKey []byte // 32-byte Ed25519 seed, unwrapped
	RootIpnsPublicKey  []byte // derived from RootIpnsPrivateKey

	encryptedRootFolderKey      string
	encryptedRootIpnsPrivateKey string

	openedAt time.Time
}

// Open fetches the caller's root pointer bootstrap record from the façade
// and unwraps the root folder key and root signing key with vaultKeypair.
// Returns IdentityMissing if vaultKeypair is incomplete, VaultNotInitialized
// if the façade has no bootstrap record, or KeyUnwrappingFailed if either
// wrapped key fails to unwrap.
func Open(ctx context.Context, f facade.Facade, vaultKeypair Keypair) (*Root, error) {
	if len(vaultKeypair.PrivateKey) != crypto.SECP256K1PrivateKeySize || len(vaultKeypair.PublicKey) != crypto.SECP256K1PublicKeySize {
		return nil, vaulterrors.NewIdentityMissingError()
	}

	bootstrap, err := f.GetMyVault(ctx)
	if err != nil {
		return nil, err
	}
	if bootstrap == nil || bootstrap.RootIpnsName == "" {
		return nil, vaulterrors.NewVaultNotInitializedError()
	}

	rootFolderKeyEnvelope, err := hex.DecodeString(bootstrap.EncryptedRootFolderKey)
	if err != nil {
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}
	rootFolderKey, err := crypto.UnwrapECIES(rootFolderKeyEnvelope, vaultKeypair.PrivateKey)
	if err != nil {
		return nil, err
	}

	rootIpnsPrivateKeyEnvelope, err := hex.DecodeString(bootstrap.EncryptedRootIpnsPrivateKey)
	if err != nil {
		crypto.Zeroize(rootFolderKey)
		return nil, vaulterrors.NewKeyUnwrappingFailedError()
	}
	rootIpnsPrivateKey, err := crypto.UnwrapECIES(rootIpnsPrivateKeyEnvelope, vaultKeypair.PrivateKey)
	if err != nil {
		crypto.Zeroize(rootFolderKey)
		return nil, err
	}

	rootIpnsPublicKey, err := crypto.Ed25519PublicKeyFromSeed(rootIpnsPrivateKey)
	if err != nil {
		crypto.Zeroize(rootFolderKey)
		crypto.Zeroize(rootIpnsPrivateKey)
		return nil, err
	}

	logger.DebugCtx(ctx, "vault opened", "root_ipns_name", bootstrap.RootIpnsName)

	return &Root{
		RootIpnsName:                bootstrap.RootIpnsName,
		RootFolderKey:               rootFolderKey,
		RootIpnsPrivateKey:          rootIpnsPrivateKey,
		RootIpnsPublicKey:           rootIpnsPublicKey,
		encryptedRootFolderKey:      bootstrap.EncryptedRootFolderKey,
		encryptedRootIpnsPrivateKey: bootstrap.EncryptedRootIpnsPrivateKey,
		openedAt:                    time.Now(),
	}, nil
}

// Close zeroizes every unwrapped key this Root holds. Callers must call
// Close on every exit path of the session that opened the vault.
func (r *Root) Close() {
	crypto.Zeroize(r.RootFolderKey)
	crypto.Zeroize(r.RootIpnsPrivateKey)
}

// Export produces an offline recovery bundle independently usable by a
// recovery tool that holds the vault private key. It never stores the
// bundle on the network.
func (r *Root) Export(nowISO8601 string) *vaultmeta.VaultExport {
	return &vaultmeta.VaultExport{
		Format:                      vaultmeta.VaultExportFormat,
		Version:                     vaultmeta.VaultExportVersion,
		ExportedAt:                  nowISO8601,
		RootIpnsName:                r.RootIpnsName,
		EncryptedRootFolderKey:      r.encryptedRootFolderKey,
		EncryptedRootIpnsPrivateKey: r.encryptedRootIpnsPrivateKey,
		DerivationInfo: vaultmeta.DerivationInfo{
			Method:            "ecies-secp256k1",
			DerivationVersion: nil,
		},
	}
}
