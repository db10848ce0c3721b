package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherbox-vault/core/pkg/config"
	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/ipnsid"
	"github.com/cipherbox-vault/core/pkg/publish"
	"github.com/cipherbox-vault/core/pkg/vault"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

// fakeFacade is a complete in-memory façade: blocks, signed pointer
// records, the vault bootstrap record, and a quota counter.
type fakeFacade struct {
	mu        sync.Mutex
	blocks    map[string][]byte
	records   map[string]facade.ResolveResponse
	bootstrap *facade.VaultBootstrap
	used      int64
	limit     int64
	seq       int

	getBlockCalls int

	// failNextPublish makes the next PublishRecord fail once, simulating
	// a lost race against another device.
	failNextPublish bool
}

func newFakeFacade() *fakeFacade {
	return &fakeFacade{
		blocks:  make(map[string][]byte),
		records: make(map[string]facade.ResolveResponse),
		limit:   524288000,
	}
}

func (f *fakeFacade) GetMyVault(ctx context.Context) (*facade.VaultBootstrap, error) {
	if f.bootstrap == nil {
		return nil, vaulterrors.NewVaultNotInitializedError()
	}
	return f.bootstrap, nil
}

func (f *fakeFacade) PutBlock(ctx context.Context, blob []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	cid := "bafyfake" + hex.EncodeToString([]byte{byte(f.seq >> 8), byte(f.seq)})
	f.blocks[cid] = append([]byte(nil), blob...)
	f.used += int64(len(blob))
	return cid, nil
}

func (f *fakeFacade) GetBlock(ctx context.Context, cid string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getBlockCalls++
	blob, ok := f.blocks[cid]
	if !ok {
		return nil, vaulterrors.NewRoutingUnavailableError(cid)
	}
	return blob, nil
}

func (f *fakeFacade) UnpinBlock(ctx context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if blob, ok := f.blocks[cid]; ok {
		f.used -= int64(len(blob))
		delete(f.blocks, cid)
	}
	return nil
}

func (f *fakeFacade) PublishRecord(ctx context.Context, ipnsName string, record facade.PublishRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextPublish {
		f.failNextPublish = false
		return vaulterrors.NewRoutingUnavailableError(ipnsName)
	}
	f.records[ipnsName] = facade.ResolveResponse{
		Value:           record.Value,
		Sequence:        record.Sequence,
		Validity:        record.Validity,
		SignatureHex:    record.SignatureHex,
		SignerPublicKey: record.SignerPublicKey,
	}
	return nil
}

func (f *fakeFacade) ResolveRecord(ctx context.Context, ipnsName string) (*facade.ResolveResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[ipnsName]
	if !ok {
		return nil, vaulterrors.NewRoutingUnavailableError(ipnsName)
	}
	return &rec, nil
}

func (f *fakeFacade) Quota(ctx context.Context) (*facade.Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &facade.Quota{UsedBytes: f.used, LimitBytes: f.limit}, nil
}

var _ facade.Facade = (*fakeFacade)(nil)

// newTestSession bootstraps a vault with an empty root folder on a fake
// façade and opens a session against it.
func newTestSession(t *testing.T) (*Session, *fakeFacade) {
	t.Helper()
	ctx := context.Background()
	f := newFakeFacade()

	priv, pub, err := crypto.GenerateSECP256K1KeyPair()
	require.NoError(t, err)
	keypair := vault.Keypair{PrivateKey: priv, PublicKey: pub}

	rootFolderKey := make([]byte, crypto.KeySize)
	for i := range rootFolderKey {
		rootFolderKey[i] = byte(i + 1)
	}
	rootSeed, err := crypto.NewEd25519Seed()
	require.NoError(t, err)
	rootPub, err := crypto.Ed25519PublicKeyFromSeed(rootSeed)
	require.NoError(t, err)
	rootIpnsName, err := ipnsid.PointerIDFromPublicKey(rootPub)
	require.NoError(t, err)

	wrappedFolderKey, err := crypto.WrapECIES(rootFolderKey, pub)
	require.NoError(t, err)
	wrappedSeed, err := crypto.WrapECIES(rootSeed, pub)
	require.NoError(t, err)
	f.bootstrap = &facade.VaultBootstrap{
		RootIpnsName:                rootIpnsName,
		EncryptedRootFolderKey:      hex.EncodeToString(wrappedFolderKey),
		EncryptedRootIpnsPrivateKey: hex.EncodeToString(wrappedSeed),
	}

	emptyRoot := &vaultmeta.FolderMetadata{Version: vaultmeta.FolderMetadataVersion}
	envelope, err := vaultmeta.EncodeFolderMetadata(emptyRoot, rootFolderKey)
	require.NoError(t, err)
	blob, err := json.Marshal(envelope)
	require.NoError(t, err)
	cid, err := f.PutBlock(ctx, blob)
	require.NoError(t, err)
	bootstrapPipeline := publish.New(f, publish.NewMemStore())
	_, err = bootstrapPipeline.Publish(ctx, rootIpnsName, rootSeed, rootPub, cid, "")
	require.NoError(t, err)

	cfg := config.GetDefaultConfig()
	sess, err := OpenWithFacade(ctx, cfg, f, keypair)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess, f
}

func TestUploadAndDownload(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestSession(t)

	body := []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F}
	file, err := sess.Upload(ctx, "root", "hello.txt", "text/plain", body, vaultmeta.EncryptionModeGCM, 1000)
	require.NoError(t, err)

	plaintext, err := sess.FetchAndDownload(ctx, file, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, body, plaintext)

	children, err := sess.ListFolder(ctx, "root")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "hello.txt", children[0].Name)
}

func TestRenamePreservesBodyPointer(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestSession(t)

	file, err := sess.Upload(ctx, "root", "hello.txt", "text/plain", []byte("hello"), vaultmeta.EncryptionModeGCM, 1000)
	require.NoError(t, err)
	pointerBefore := file.IpnsName
	cidBefore := file.Meta.Cid

	require.NoError(t, sess.Rename(ctx, "root", file.ID, "world.txt", 2000))

	children, err := sess.ListFolder(ctx, "root")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "world.txt", children[0].Name)
	assert.Equal(t, pointerBefore, children[0].File.FileMetaIpnsName)

	reopened, err := sess.OpenFile(ctx, "root", file.ID)
	require.NoError(t, err)
	assert.Equal(t, cidBefore, reopened.Meta.Cid)
}

func TestUploadRejectedByQuotaPreflight(t *testing.T) {
	ctx := context.Background()
	sess, f := newTestSession(t)

	f.mu.Lock()
	f.limit = f.used + 2
	f.mu.Unlock()

	_, err := sess.Upload(ctx, "root", "big.bin", "application/octet-stream", []byte("too large"), vaultmeta.EncryptionModeGCM, 1000)
	require.Error(t, err)
	assert.True(t, vaulterrors.IsQuotaExceededError(err))

	children, err := sess.ListFolder(ctx, "root")
	require.NoError(t, err)
	assert.Empty(t, children, "rejected upload must leave no trace")
}

func TestDeviceRegistryRegisterListRevoke(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestSession(t)

	entry, err := sess.RegisterDevice(ctx, "work laptop", vaultmeta.DevicePlatformLinux, "1.4.2", "ThinkPad X1", hexString64(), hexString64(), 1000)
	require.NoError(t, err)
	assert.Equal(t, vaultmeta.DeviceStatusPending, entry.Status)

	devices, err := sess.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "work laptop", devices[0].Name)

	require.NoError(t, sess.RevokeDevice(ctx, entry.DeviceID, entry.DeviceID, 2000))

	devices, err = sess.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, vaultmeta.DeviceStatusRevoked, devices[0].Status)
	require.NotNil(t, devices[0].RevokedAt)
	assert.Equal(t, int64(2000), *devices[0].RevokedAt)
}

func TestDeviceRegistryRetriesOncePastPublishFailure(t *testing.T) {
	ctx := context.Background()
	sess, f := newTestSession(t)

	f.mu.Lock()
	f.failNextPublish = true
	f.mu.Unlock()

	_, err := sess.RegisterDevice(ctx, "phone", vaultmeta.DevicePlatformWeb, "1.0.0", "Pixel", hexString64(), hexString64(), 1000)
	require.NoError(t, err)

	devices, err := sess.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
}

func TestRangedCTRDownloadUsesStreamCache(t *testing.T) {
	ctx := context.Background()
	sess, f := newTestSession(t)

	body := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	file, err := sess.Upload(ctx, "root", "track.mp3", "audio/mpeg", body, vaultmeta.EncryptionModeCTR, 1000)
	require.NoError(t, err)

	f.mu.Lock()
	callsBefore := f.getBlockCalls
	f.mu.Unlock()

	offset, length := 10, 6
	plaintext, err := sess.FetchAndDownload(ctx, file, &offset, &length)
	require.NoError(t, err)
	assert.Equal(t, body[10:16], plaintext)

	offset2, length2 := 20, 10
	plaintext, err = sess.FetchAndDownload(ctx, file, &offset2, &length2)
	require.NoError(t, err)
	assert.Equal(t, body[20:30], plaintext)

	f.mu.Lock()
	callsAfter := f.getBlockCalls
	f.mu.Unlock()
	assert.Equal(t, callsBefore+1, callsAfter, "second range read must come from the stream cache")
}

func TestExportBundle(t *testing.T) {
	sess, _ := newTestSession(t)

	bundle := sess.Export()
	assert.Equal(t, vaultmeta.VaultExportFormat, bundle.Format)
	assert.Equal(t, vaultmeta.VaultExportVersion, bundle.Version)
	assert.Equal(t, sess.Root.RootIpnsName, bundle.RootIpnsName)
	assert.NotEmpty(t, bundle.EncryptedRootFolderKey)
	assert.NotEmpty(t, bundle.EncryptedRootIpnsPrivateKey)
}

// hexString64 returns a deterministic 64-char hex id for registry fields.
func hexString64() string {
	return "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
}
