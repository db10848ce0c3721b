package vault

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

type fakeFacade struct {
	facade.Facade
	bootstrap *facade.VaultBootstrap
	err       error
}

func (f *fakeFacade) GetMyVault(ctx context.Context) (*facade.VaultBootstrap, error) {
	return f.bootstrap, f.err
}

func issuedKeypair(t *testing.T) Keypair {
	t.Helper()
	priv, pub, err := crypto.GenerateSECP256K1KeyPair()
	require.NoError(t, err)
	return Keypair{PrivateKey: priv, PublicKey: pub}
}

func bootstrapFor(t *testing.T, kp Keypair) *facade.VaultBootstrap {
	t.Helper()
	folderKey := make([]byte, crypto.KeySize)
	for i := range folderKey {
		folderKey[i] = byte(i)
	}
	ipnsSeed, err := crypto.NewEd25519Seed()
	require.NoError(t, err)

	wrappedFolderKey, err := crypto.WrapECIES(folderKey, kp.PublicKey)
	require.NoError(t, err)
	wrappedIpnsKey, err := crypto.WrapECIES(ipnsSeed, kp.PublicKey)
	require.NoError(t, err)

	return &facade.VaultBootstrap{
		RootIpnsName:                "k51qzi5uqu5example",
		EncryptedRootFolderKey:      hex.EncodeToString(wrappedFolderKey),
		EncryptedRootIpnsPrivateKey: hex.EncodeToString(wrappedIpnsKey),
	}
}

func TestOpenUnwrapsRootKeys(t *testing.T) {
	kp := issuedKeypair(t)
	bootstrap := bootstrapFor(t, kp)
	f := &fakeFacade{bootstrap: bootstrap}

	root, err := Open(context.Background(), f, kp)
	require.NoError(t, err)
	defer root.Close()

	assert.Equal(t, bootstrap.RootIpnsName, root.RootIpnsName)
	assert.Len(t, root.RootFolderKey, crypto.KeySize)
	assert.Len(t, root.RootIpnsPrivateKey, crypto.Ed25519SeedSize)
}

func TestOpenWithWrongKeyFailsUnwrap(t *testing.T) {
	kp := issuedKeypair(t)
	bootstrap := bootstrapFor(t, kp)
	f := &fakeFacade{bootstrap: bootstrap}

	wrongKp := issuedKeypair(t)
	_, err := Open(context.Background(), f, wrongKp)
	require.Error(t, err)
	code, ok := vaulterrors.Code(err)
	require.True(t, ok)
	assert.Equal(t, vaulterrors.ErrKeyUnwrappingFailed, code)
}

func TestOpenWithoutBootstrapRecordIsNotInitialized(t *testing.T) {
	kp := issuedKeypair(t)
	f := &fakeFacade{bootstrap: &facade.VaultBootstrap{}}

	_, err := Open(context.Background(), f, kp)
	require.Error(t, err)
	code, ok := vaulterrors.Code(err)
	require.True(t, ok)
	assert.Equal(t, vaulterrors.ErrVaultNotInitialized, code)
}

func TestOpenWithMissingIdentity(t *testing.T) {
	f := &fakeFacade{}
	_, err := Open(context.Background(), f, Keypair{})
	require.Error(t, err)
	code, ok := vaulterrors.Code(err)
	require.True(t, ok)
	assert.Equal(t, vaulterrors.ErrIdentityMissing, code)
}

func TestExportProducesIndependentBundle(t *testing.T) {
	kp := issuedKeypair(t)
	bootstrap := bootstrapFor(t, kp)
	f := &fakeFacade{bootstrap: bootstrap}

	root, err := Open(context.Background(), f, kp)
	require.NoError(t, err)
	defer root.Close()

	export := root.Export("2026-07-29T00:00:00Z")
	assert.Equal(t, "cipherbox-vault-export", export.Format)
	assert.Equal(t, bootstrap.RootIpnsName, export.RootIpnsName)
	assert.Equal(t, bootstrap.EncryptedRootFolderKey, export.EncryptedRootFolderKey)
}
