package fileobject

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/publish"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

// fakeFacade is a minimal in-memory block store and pointer bus, enough to
// exercise the full create/update/restore/download cycle without a network.
type fakeFacade struct {
	facade.Facade

	mu      sync.Mutex
	blocks  map[string][]byte
	records map[string]facade.ResolveResponse
	nextID  int
}

func newFakeFacade() *fakeFacade {
	return &fakeFacade{
		blocks:  make(map[string][]byte),
		records: make(map[string]facade.ResolveResponse),
	}
}

func (f *fakeFacade) PutBlock(ctx context.Context, blob []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cid := "cid-" + string(rune('a'+f.nextID))
	f.blocks[cid] = append([]byte(nil), blob...)
	return cid, nil
}

func (f *fakeFacade) GetBlock(ctx context.Context, cid string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks[cid], nil
}

func (f *fakeFacade) UnpinBlock(ctx context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blocks, cid)
	return nil
}

func (f *fakeFacade) PublishRecord(ctx context.Context, ipnsName string, record facade.PublishRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
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

func testFolderKey() []byte {
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func TestCreateAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFakeFacade()
	pipeline := publish.New(f, publish.NewMemStore())
	folderKey := testFolderKey()
	vaultPriv, vaultPub, err := crypto.GenerateSECP256K1KeyPair()
	require.NoError(t, err)

	body := []byte("hello vault")
	file, pointer, err := Create(ctx, f, pipeline, folderKey, vaultPub, "file-1", "text/plain", body, vaultmeta.EncryptionModeGCM, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), file.Meta.Size)
	assert.Empty(t, pointer.NameEncrypted, "Create must leave naming to the folder graph")

	loaded, err := Load(ctx, f, pipeline, pointer, file.SigningSeed, folderKey)
	require.NoError(t, err)
	assert.Equal(t, file.Meta.Cid, loaded.Meta.Cid)

	blob, err := f.GetBlock(ctx, loaded.Meta.Cid)
	require.NoError(t, err)
	plaintext, err := Download(loaded.Meta, vaultPriv, blob, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, body, plaintext)
}

// decryptVersion fetches and decrypts the version entry at index.
func decryptVersion(t *testing.T, ctx context.Context, f *fakeFacade, file *File, vaultPriv []byte, index int) []byte {
	t.Helper()
	blob, err := f.GetBlock(ctx, file.Meta.Versions[index].Cid)
	require.NoError(t, err)
	plaintext, err := DownloadVersion(file.Meta, index, vaultPriv, blob)
	require.NoError(t, err)
	return plaintext
}

func TestUpdateBodyRespectsCooldownUnlessForced(t *testing.T) {
	ctx := context.Background()
	f := newFakeFacade()
	pipeline := publish.New(f, publish.NewMemStore())
	folderKey := testFolderKey()
	vaultPriv, vaultPub, err := crypto.GenerateSECP256K1KeyPair()
	require.NoError(t, err)

	file, _, err := Create(ctx, f, pipeline, folderKey, vaultPub, "file-1", "text/plain", []byte("A"), vaultmeta.EncryptionModeGCM, 0)
	require.NoError(t, err)

	// First update always creates the baseline version entry.
	_, _, err = file.UpdateBody(ctx, f, pipeline, vaultPub, []byte("AB"), vaultmeta.EncryptionModeGCM, false, 60_000)
	require.NoError(t, err)
	require.Len(t, file.Meta.Versions, 1)
	assert.Equal(t, []byte("A"), decryptVersion(t, ctx, f, file, vaultPriv, 0))

	// A second update inside the cooldown window collapses without
	// growing the chain.
	_, _, err = file.UpdateBody(ctx, f, pipeline, vaultPub, []byte("ABC"), vaultmeta.EncryptionModeGCM, false, 120_000)
	require.NoError(t, err)
	assert.Len(t, file.Meta.Versions, 1)

	// forceVersion bypasses the cooldown, archiving the state as of the
	// last checkpoint ("AB"), not the mid-cooldown body ("ABC").
	_, _, err = file.UpdateBody(ctx, f, pipeline, vaultPub, []byte("ABCD"), vaultmeta.EncryptionModeGCM, true, 180_000)
	require.NoError(t, err)
	require.Len(t, file.Meta.Versions, 2)
	assert.Equal(t, []byte("AB"), decryptVersion(t, ctx, f, file, vaultPriv, 0))
	assert.Equal(t, []byte("A"), decryptVersion(t, ctx, f, file, vaultPriv, 1))

	blob, err := f.GetBlock(ctx, file.Meta.Cid)
	require.NoError(t, err)
	current, err := Download(file.Meta, vaultPriv, blob, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCD"), current)
}

func TestUpdateBodyPrunesOldestPastCap(t *testing.T) {
	ctx := context.Background()
	f := newFakeFacade()
	pipeline := publish.New(f, publish.NewMemStore())
	folderKey := testFolderKey()
	_, vaultPub, err := crypto.GenerateSECP256K1KeyPair()
	require.NoError(t, err)

	file, _, err := Create(ctx, f, pipeline, folderKey, vaultPub, "file-1", "text/plain", []byte("v0"), vaultmeta.EncryptionModeGCM, 0)
	require.NoError(t, err)

	var lastPruned string
	var hadPruned bool
	for i := 1; i <= vaultmeta.MaxVersionsPerFile+1; i++ {
		now := int64(i) * (vaultmeta.VersionCooldownMillis + 1)
		lastPruned, hadPruned, err = file.UpdateBody(ctx, f, pipeline, vaultPub, []byte("body"), vaultmeta.EncryptionModeGCM, false, now)
		require.NoError(t, err)
	}

	assert.True(t, hadPruned)
	assert.NotEmpty(t, lastPruned)
	assert.Len(t, file.Meta.Versions, vaultmeta.MaxVersionsPerFile)
}

func TestRestorePromotesPastVersionAndKeepsChainLength(t *testing.T) {
	ctx := context.Background()
	f := newFakeFacade()
	pipeline := publish.New(f, publish.NewMemStore())
	folderKey := testFolderKey()
	_, vaultPub, err := crypto.GenerateSECP256K1KeyPair()
	require.NoError(t, err)

	file, _, err := Create(ctx, f, pipeline, folderKey, vaultPub, "file-1", "text/plain", []byte("v1"), vaultmeta.EncryptionModeGCM, 0)
	require.NoError(t, err)
	_, _, err = file.UpdateBody(ctx, f, pipeline, vaultPub, []byte("v2"), vaultmeta.EncryptionModeGCM, true, 1_000_000)
	require.NoError(t, err)

	currentCidBeforeRestore := file.Meta.Cid
	versionCountBefore := len(file.Meta.Versions)

	err = file.Restore(ctx, f, pipeline, 0, 2_000_000)
	require.NoError(t, err)

	assert.Len(t, file.Meta.Versions, versionCountBefore, "restoring must not lose history: the old current takes the restored entry's place in the chain")
	assert.Equal(t, currentCidBeforeRestore, file.Meta.Versions[0].Cid, "the pre-restore current state must be preserved as the new top version")
}

func TestDeleteVersionReturnsPrunedCid(t *testing.T) {
	ctx := context.Background()
	f := newFakeFacade()
	pipeline := publish.New(f, publish.NewMemStore())
	folderKey := testFolderKey()
	_, vaultPub, err := crypto.GenerateSECP256K1KeyPair()
	require.NoError(t, err)

	file, _, err := Create(ctx, f, pipeline, folderKey, vaultPub, "file-1", "text/plain", []byte("v1"), vaultmeta.EncryptionModeGCM, 0)
	require.NoError(t, err)
	_, _, err = file.UpdateBody(ctx, f, pipeline, vaultPub, []byte("v2"), vaultmeta.EncryptionModeGCM, true, 1_000_000)
	require.NoError(t, err)
	require.Len(t, file.Meta.Versions, 1)

	expectedCid := file.Meta.Versions[0].Cid
	prunedCid, err := file.DeleteVersion(ctx, f, pipeline, 0)
	require.NoError(t, err)
	assert.Equal(t, expectedCid, prunedCid)
	assert.Empty(t, file.Meta.Versions)
}
