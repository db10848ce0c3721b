// Package fileobject implements the per-file mutable pointer and version
// chain: a file's body, wrapped body key, nonce, encryption mode,
// and bounded version history are tracked independently of its parent
// folder, so a content update never touches the parent's pointer.
package fileobject

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/ipnsid"
	"github.com/cipherbox-vault/core/pkg/publish"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

func readRandom(buf []byte) (int, error) {
	return rand.Read(buf)
}

// File is the in-memory projection of one file's pointer: its metadata, the
// key that encrypts that metadata's envelope (the parent folder's key),
// and the Ed25519 seed that owns its
// mutable pointer.
type File struct {
	ID          string
	IpnsName    string
	SigningSeed []byte // Ed25519 seed owning this file's own pointer
	FolderKey   []byte // parent folder's symmetric key; encrypts this file's metadata envelope

	Meta *vaultmeta.FileMetadata

	// checkpoint is the current state as of the last version-creating
	// update (or create/load/restore). Cooldown-skipped body updates
	// replace Meta's current fields without touching it, so the next
	// version entry archives the last checkpointed state rather than
	// whatever body happened to be written mid-cooldown.
	checkpoint *vaultmeta.VersionEntry
}

// snapshotCurrent captures Meta's current fields as a VersionEntry
// timestamped ts.
func (file *File) snapshotCurrent(ts int64) vaultmeta.VersionEntry {
	return vaultmeta.VersionEntry{
		Cid:              file.Meta.Cid,
		FileKeyEncrypted: file.Meta.FileKeyEncrypted,
		FileIv:           file.Meta.FileIv,
		Size:             file.Meta.Size,
		Timestamp:        ts,
		EncryptionMode:   file.Meta.EncryptionMode,
	}
}

// setCheckpoint records Meta's current fields as the state the next
// version entry will archive.
func (file *File) setCheckpoint(ts int64) {
	snap := file.snapshotCurrent(ts)
	file.checkpoint = &snap
}

func publicKeyOf(signingSeed []byte) ([]byte, error) {
	return crypto.Ed25519PublicKeyFromSeed(signingSeed)
}

// Load resolves pointer's own mutable pointer, fetches its metadata block,
// and decrypts it under folderKey (the parent folder's symmetric key).
func Load(ctx context.Context, f facade.Facade, pipeline *publish.Pipeline, pointer *vaultmeta.FilePointer, signingSeed, folderKey []byte) (*File, error) {
	pub, err := publicKeyOf(signingSeed)
	if err != nil {
		return nil, err
	}

	resolved, err := pipeline.Resolve(ctx, pointer.FileMetaIpnsName, pub)
	if err != nil {
		return nil, err
	}

	blob, err := f.GetBlock(ctx, resolved.Value)
	if err != nil {
		return nil, err
	}

	meta, err := vaultmeta.DecodeFileMetadata(blob, folderKey)
	if err != nil {
		return nil, err
	}

	file := &File{
		ID:          pointer.ID,
		IpnsName:    pointer.FileMetaIpnsName,
		SigningSeed: signingSeed,
		FolderKey:   folderKey,
		Meta:        meta,
	}
	file.setCheckpoint(meta.ModifiedAt)
	return file, nil
}

// Create uploads body as a brand-new file: it wraps a fresh body key,
// encrypts and pins the body, mints a fresh mutable pointer for the file's
// own metadata, and publishes it. The returned FilePointer has no name
// fields set; the caller (the folder graph) encrypts and fills the name
// before inserting it into the parent folder's children.
func Create(ctx context.Context, f facade.Facade, pipeline *publish.Pipeline, folderKey, vaultPublicKey []byte, fileID, mimeType string, body []byte, mode vaultmeta.EncryptionMode, now int64) (*File, *vaultmeta.FilePointer, error) {
	if mode == "" {
		mode = vaultmeta.EncryptionModeGCM
	}

	fileKey := make([]byte, crypto.KeySize)
	if _, err := readRandom(fileKey); err != nil {
		return nil, nil, err
	}
	defer crypto.Zeroize(fileKey)

	cid, ivHex, err := encryptAndPutBody(ctx, f, fileKey, body, mode)
	if err != nil {
		return nil, nil, err
	}

	fileKeyEncrypted, err := wrapKey(fileKey, vaultPublicKey)
	if err != nil {
		return nil, nil, err
	}

	meta := &vaultmeta.FileMetadata{
		Version:          vaultmeta.FileMetadataVersion,
		Cid:              cid,
		FileKeyEncrypted: fileKeyEncrypted,
		FileIv:           ivHex,
		Size:             int64(len(body)),
		MimeType:         mimeType,
		EncryptionMode:   mode,
		CreatedAt:        now,
		ModifiedAt:       now,
	}

	signingSeed, err := crypto.NewEd25519Seed()
	if err != nil {
		return nil, nil, err
	}
	pub, err := publicKeyOf(signingSeed)
	if err != nil {
		return nil, nil, err
	}
	ipnsName, err := ipnsid.PointerIDFromPublicKey(pub)
	if err != nil {
		return nil, nil, err
	}

	file := &File{
		ID:          fileID,
		IpnsName:    ipnsName,
		SigningSeed: signingSeed,
		FolderKey:   folderKey,
		Meta:        meta,
	}
	file.setCheckpoint(now)

	if err := file.publish(ctx, f, pipeline); err != nil {
		return nil, nil, err
	}

	ipnsPrivateKeyEncrypted, err := wrapKey(signingSeed, vaultPublicKey)
	if err != nil {
		return nil, nil, err
	}

	pointer := &vaultmeta.FilePointer{
		Type:                    "file",
		ID:                      fileID,
		FileMetaIpnsName:        ipnsName,
		IpnsPrivateKeyEncrypted: ipnsPrivateKeyEncrypted,
		CreatedAt:               now,
		ModifiedAt:              now,
	}

	logger.DebugCtx(ctx, "file created", "file_id", fileID, "ipns_name", ipnsName)
	return file, pointer, nil
}

// UpdateBody replaces the file's current body. Unless forceVersion is set,
// a new VersionEntry is created only when there is no existing version
// within VersionCooldownMillis of now; rapid successive updates inside the
// cooldown simply replace the current state without growing the chain.
// When a version entry is created, it archives the state as of the last
// checkpoint, so a forced update after a run of cooldown-skipped writes
// still captures the body that was current at the last real checkpoint.
// If the version chain would exceed MaxVersionsPerFile, the oldest entry
// is dropped and its cid is returned for the caller to unpin.
func (file *File) UpdateBody(ctx context.Context, f facade.Facade, pipeline *publish.Pipeline, vaultPublicKey []byte, body []byte, mode vaultmeta.EncryptionMode, forceVersion bool, now int64) (prunedCid string, hadPruned bool, err error) {
	if mode == "" {
		mode = file.Meta.EncryptionMode
	}

	shouldVersion := true
	if len(file.Meta.Versions) > 0 && !forceVersion {
		newest := file.Meta.Versions[0]
		if now-newest.Timestamp < vaultmeta.VersionCooldownMillis {
			shouldVersion = false
		}
	}

	if shouldVersion {
		baseline := file.snapshotCurrent(file.Meta.ModifiedAt)
		if file.checkpoint != nil {
			baseline = *file.checkpoint
		}
		file.Meta.Versions = append([]vaultmeta.VersionEntry{baseline}, file.Meta.Versions...)
	}

	if len(file.Meta.Versions) > vaultmeta.MaxVersionsPerFile {
		oldestIdx := len(file.Meta.Versions) - 1
		prunedCid = file.Meta.Versions[oldestIdx].Cid
		hadPruned = true
		file.Meta.Versions = file.Meta.Versions[:oldestIdx]
	}

	fileKey := make([]byte, crypto.KeySize)
	if _, genErr := readRandom(fileKey); genErr != nil {
		return "", false, genErr
	}
	defer crypto.Zeroize(fileKey)

	cid, ivHex, err := encryptAndPutBody(ctx, f, fileKey, body, mode)
	if err != nil {
		return "", false, err
	}
	fileKeyEncrypted, err := wrapKey(fileKey, vaultPublicKey)
	if err != nil {
		return "", false, err
	}

	file.Meta.Cid = cid
	file.Meta.FileKeyEncrypted = fileKeyEncrypted
	file.Meta.FileIv = ivHex
	file.Meta.Size = int64(len(body))
	file.Meta.EncryptionMode = mode
	file.Meta.ModifiedAt = now
	if shouldVersion {
		file.setCheckpoint(now)
	}

	if err := file.publish(ctx, f, pipeline); err != nil {
		return "", false, err
	}
	return prunedCid, hadPruned, nil
}

// Restore promotes past version at versionIndex to current: the
// current state becomes a freshly-timestamped version entry at the top of
// the chain, and entry versionIndex's fields become the new current state
// while that entry is removed from the chain. The chain length is
// unchanged; no past version is lost.
func (file *File) Restore(ctx context.Context, f facade.Facade, pipeline *publish.Pipeline, versionIndex int, now int64) error {
	if versionIndex < 0 || versionIndex >= len(file.Meta.Versions) {
		return vaulterrors.NewDecryptionFailedError()
	}

	restored := file.Meta.Versions[versionIndex]
	newTop := vaultmeta.VersionEntry{
		Cid:              file.Meta.Cid,
		FileKeyEncrypted: file.Meta.FileKeyEncrypted,
		FileIv:           file.Meta.FileIv,
		Size:             file.Meta.Size,
		Timestamp:        now,
		EncryptionMode:   file.Meta.EncryptionMode,
	}

	remaining := make([]vaultmeta.VersionEntry, 0, len(file.Meta.Versions))
	remaining = append(remaining, newTop)
	for i, v := range file.Meta.Versions {
		if i == versionIndex {
			continue
		}
		remaining = append(remaining, v)
	}
	file.Meta.Versions = remaining

	file.Meta.Cid = restored.Cid
	file.Meta.FileKeyEncrypted = restored.FileKeyEncrypted
	file.Meta.FileIv = restored.FileIv
	file.Meta.Size = restored.Size
	file.Meta.EncryptionMode = restored.EncryptionMode
	file.Meta.ModifiedAt = now
	file.setCheckpoint(now)

	return file.publish(ctx, f, pipeline)
}

// DeleteVersion removes the version chain entry at versionIndex, returning
// its cid for the caller to unpin, and republishes the file's metadata
// pointer (the current body is untouched).
func (file *File) DeleteVersion(ctx context.Context, f facade.Facade, pipeline *publish.Pipeline, versionIndex int) (prunedCid string, err error) {
	if versionIndex < 0 || versionIndex >= len(file.Meta.Versions) {
		return "", vaulterrors.NewDecryptionFailedError()
	}
	prunedCid = file.Meta.Versions[versionIndex].Cid
	file.Meta.Versions = append(file.Meta.Versions[:versionIndex], file.Meta.Versions[versionIndex+1:]...)

	if err := file.publish(ctx, f, pipeline); err != nil {
		return "", err
	}
	return prunedCid, nil
}

// AllPinnedCids returns every cid referenced by this file's current state
// and its entire version chain, for recursive delete cleanup.
func (file *File) AllPinnedCids() []string {
	cids := make([]string, 0, 1+len(file.Meta.Versions))
	cids = append(cids, file.Meta.Cid)
	for _, v := range file.Meta.Versions {
		cids = append(cids, v.Cid)
	}
	return cids
}

// Download decrypts body under the file's current fileKey (ECIES-unwrapped
// with vaultPrivateKey), dispatching on the encryption mode: GCM bodies are
// fully decrypted and tag-verified; CTR bodies support a byte range.
func Download(meta *vaultmeta.FileMetadata, vaultPrivateKey, body []byte, rangeOffset, rangeLength *int) ([]byte, error) {
	fileKeyEnvelope, err := hex.DecodeString(meta.FileKeyEncrypted)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	fileKey, err := crypto.UnwrapECIES(fileKeyEnvelope, vaultPrivateKey)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(fileKey)

	iv, err := hex.DecodeString(meta.FileIv)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}

	switch meta.EncryptionMode {
	case vaultmeta.EncryptionModeCTR:
		if rangeOffset != nil && rangeLength != nil {
			return crypto.DecryptCTRRange(fileKey, iv, body, *rangeOffset, *rangeLength)
		}
		return crypto.DecryptCTR(fileKey, iv, body)
	default:
		return crypto.DecryptGCM(fileKey, iv, body)
	}
}

// DownloadVersion decrypts body under the crypto context of the retained
// version entry at versionIndex (newest-first). Past versions are always
// decrypted in full; the current name and a VersionEntry's own encryption
// mode apply.
func DownloadVersion(meta *vaultmeta.FileMetadata, versionIndex int, vaultPrivateKey, body []byte) ([]byte, error) {
	if versionIndex < 0 || versionIndex >= len(meta.Versions) {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	v := meta.Versions[versionIndex]

	fileKeyEnvelope, err := hex.DecodeString(v.FileKeyEncrypted)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	fileKey, err := crypto.UnwrapECIES(fileKeyEnvelope, vaultPrivateKey)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(fileKey)

	iv, err := hex.DecodeString(v.FileIv)
	if err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	if v.EncryptionMode == vaultmeta.EncryptionModeCTR {
		return crypto.DecryptCTR(fileKey, iv, body)
	}
	return crypto.DecryptGCM(fileKey, iv, body)
}

func (file *File) publish(ctx context.Context, f facade.Facade, pipeline *publish.Pipeline) error {
	envelope, err := vaultmeta.EncodeFileMetadata(file.Meta, file.FolderKey)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(envelope)
	if err != nil {
		return vaulterrors.NewEncryptionFailedError()
	}
	cid, err := f.PutBlock(ctx, blob)
	if err != nil {
		return err
	}

	pub, err := publicKeyOf(file.SigningSeed)
	if err != nil {
		return err
	}
	if _, err := pipeline.Publish(ctx, file.IpnsName, file.SigningSeed, pub, cid, ""); err != nil {
		return err
	}
	logger.DebugCtx(ctx, "file metadata published", "file_id", file.ID, "ipns_name", file.IpnsName, "cid", cid)
	return nil
}

func encryptAndPutBody(ctx context.Context, f facade.Facade, fileKey, body []byte, mode vaultmeta.EncryptionMode) (cid string, ivHex string, err error) {
	if mode == vaultmeta.EncryptionModeCTR {
		nonce, err := crypto.NewCTRNonce()
		if err != nil {
			return "", "", err
		}
		ciphertext, err := crypto.EncryptCTR(fileKey, nonce, body)
		if err != nil {
			return "", "", err
		}
		cid, err := f.PutBlock(ctx, ciphertext)
		if err != nil {
			return "", "", err
		}
		return cid, hex.EncodeToString(nonce), nil
	}

	nonce, err := crypto.NewGCMNonce()
	if err != nil {
		return "", "", err
	}
	ciphertext, err := crypto.EncryptGCM(fileKey, nonce, body)
	if err != nil {
		return "", "", err
	}
	cid, err = f.PutBlock(ctx, ciphertext)
	if err != nil {
		return "", "", err
	}
	return cid, hex.EncodeToString(nonce), nil
}

func wrapKey(key, vaultPublicKey []byte) (string, error) {
	envelope, err := crypto.WrapECIES(key, vaultPublicKey)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(envelope), nil
}
