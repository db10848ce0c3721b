package session

import (
	"context"
	"encoding/hex"

	"go.opentelemetry.io/otel/trace"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/internal/telemetry"
	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/fileobject"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

// checkQuota runs the client-side pre-flight quota check: when enabled,
// an upload that would exceed the façade's quota is
// rejected locally, before any block is written, rather than burning a
// network round trip to discover the same QuotaExceeded error server-side.
func (s *Session) checkQuota(ctx context.Context, additionalBytes int64) error {
	if !s.preflightQuota {
		return nil
	}
	q, err := s.Facade.Quota(ctx)
	if err != nil {
		// A quota lookup failure never blocks the upload; the façade's
		// own enforcement is still the authority; pre-flight only tightens
		// the common case.
		logger.WarnCtx(ctx, "quota preflight check failed, proceeding without it", "error", err.Error())
		return nil
	}
	if q.UsedBytes+additionalBytes > q.LimitBytes {
		return vaulterrors.NewQuotaExceededError()
	}
	return nil
}

// Upload creates a new file under parentID with the given name, MIME type
// and plaintext body, running the quota pre-flight check first.
func (s *Session) Upload(ctx context.Context, parentID, name, mimeType string, body []byte, mode vaultmeta.EncryptionMode, now int64) (*fileobject.File, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFileUpload, trace.WithAttributes(telemetry.FolderID(parentID)))
	defer span.End()
	ctx = s.logCtx(ctx, "upload")

	if err := s.checkQuota(ctx, int64(len(body))); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	file, err := s.Graph.Upload(ctx, parentID, name, mimeType, body, mode, now)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	telemetry.SetAttributes(ctx, telemetry.FileID(file.ID))
	return file, nil
}

// OpenFile resolves a file child of parentID for reading or further edits.
func (s *Session) OpenFile(ctx context.Context, parentID, fileID string) (*fileobject.File, error) {
	return s.Graph.OpenFile(ctx, parentID, fileID)
}

// Download decrypts file's current (or a ranged subset of its current)
// body. body must already be the raw bytes fetched from the façade for
// file.Meta.Cid.
func (s *Session) Download(ctx context.Context, file *fileobject.File, body []byte, rangeOffset, rangeLength *int) ([]byte, error) {
	_, span := telemetry.StartSpan(ctx, telemetry.SpanFileDownload, trace.WithAttributes(telemetry.FileID(file.ID)))
	defer span.End()

	plaintext, err := fileobject.Download(file.Meta, s.vaultKeypair.PrivateKey, body, rangeOffset, rangeLength)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return plaintext, nil
}

// FetchAndDownload fetches file's current body block from the façade and
// decrypts it, optionally restricted to a byte range. Ranged reads of CTR
// bodies go through the session's stream cache, so a media player seeking
// within one file fetches and unwraps it once.
func (s *Session) FetchAndDownload(ctx context.Context, file *fileobject.File, rangeOffset, rangeLength *int) ([]byte, error) {
	ranged := rangeOffset != nil && rangeLength != nil
	if ranged && file.Meta.EncryptionMode == vaultmeta.EncryptionModeCTR {
		if plaintext, ok, err := s.Streams.DecryptRange(file.Meta.Cid, *rangeOffset, *rangeLength); ok {
			return plaintext, err
		}
	}

	body, err := s.Facade.GetBlock(ctx, file.Meta.Cid)
	if err != nil {
		return nil, err
	}

	if ranged && file.Meta.EncryptionMode == vaultmeta.EncryptionModeCTR {
		s.registerStream(ctx, file, body)
	}
	return s.Download(ctx, file, body, rangeOffset, rangeLength)
}

// registerStream unwraps file's body key and registers the encrypted body
// with the stream cache. Failures only cost the caching; the surrounding
// download proceeds on its own copy of the key material.
func (s *Session) registerStream(ctx context.Context, file *fileobject.File, body []byte) {
	fileKeyEnvelope, err := hex.DecodeString(file.Meta.FileKeyEncrypted)
	if err != nil {
		return
	}
	fileKey, err := crypto.UnwrapECIES(fileKeyEnvelope, s.vaultKeypair.PrivateKey)
	if err != nil {
		return
	}
	defer crypto.Zeroize(fileKey)
	iv, err := hex.DecodeString(file.Meta.FileIv)
	if err != nil {
		return
	}
	s.Streams.Register(file.Meta.Cid, body, fileKey, iv, file.Meta.EncryptionMode)
	logger.DebugCtx(ctx, "stream registered", "cid", file.Meta.Cid)
}

// FetchAndDownloadVersion fetches and decrypts the retained past version
// at versionIndex (newest-first) of file's chain.
func (s *Session) FetchAndDownloadVersion(ctx context.Context, file *fileobject.File, versionIndex int) ([]byte, error) {
	if versionIndex < 0 || versionIndex >= len(file.Meta.Versions) {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	body, err := s.Facade.GetBlock(ctx, file.Meta.Versions[versionIndex].Cid)
	if err != nil {
		return nil, err
	}
	return fileobject.DownloadVersion(file.Meta, versionIndex, s.vaultKeypair.PrivateKey, body)
}

// UpdateBody replaces file's current body with a new plaintext body,
// running the quota pre-flight check first.
func (s *Session) UpdateBody(ctx context.Context, file *fileobject.File, body []byte, mode vaultmeta.EncryptionMode, forceVersion bool, now int64) (prunedCid string, hadPruned bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFileUpdateBody, trace.WithAttributes(telemetry.FileID(file.ID)))
	defer span.End()
	ctx = s.logCtx(ctx, "update_body")

	if err := s.checkQuota(ctx, int64(len(body))); err != nil {
		telemetry.RecordError(ctx, err)
		return "", false, err
	}

	prunedCid, hadPruned, err = file.UpdateBody(ctx, s.Facade, s.Pipeline, s.vaultKeypair.PublicKey, body, mode, forceVersion, now)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return "", false, err
	}
	if hadPruned {
		s.Streams.Unregister(prunedCid)
		if unpinErr := s.Facade.UnpinBlock(ctx, prunedCid); unpinErr != nil {
			logger.WarnCtx(ctx, "failed to unpin pruned version", "cid", prunedCid, "error", unpinErr.Error())
		}
	}
	return prunedCid, hadPruned, nil
}

// Restore rolls file back to a previous version in its retained chain.
func (s *Session) Restore(ctx context.Context, file *fileobject.File, versionIndex int, now int64) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFileRestore, trace.WithAttributes(telemetry.FileID(file.ID)))
	defer span.End()
	ctx = s.logCtx(ctx, "restore")

	if err := file.Restore(ctx, s.Facade, s.Pipeline, versionIndex, now); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

// DeleteVersion removes one retained past version from file's chain and
// unpins its body block.
func (s *Session) DeleteVersion(ctx context.Context, file *fileobject.File, versionIndex int) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFileDeleteVer, trace.WithAttributes(telemetry.FileID(file.ID)))
	defer span.End()

	cid, err := file.DeleteVersion(ctx, s.Facade, s.Pipeline, versionIndex)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	if cid != "" {
		s.Streams.Unregister(cid)
		if unpinErr := s.Facade.UnpinBlock(ctx, cid); unpinErr != nil {
			logger.WarnCtx(ctx, "failed to unpin deleted version", "cid", cid, "error", unpinErr.Error())
		}
	}
	return nil
}

// DeleteFile removes fileID from parentID, unpinning every CID the file's
// version chain and current body still held.
func (s *Session) DeleteFile(ctx context.Context, parentID, fileID string) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFileDelete, trace.WithAttributes(telemetry.FileID(fileID), telemetry.FolderID(parentID)))
	defer span.End()

	cids, err := s.Graph.DeleteFile(ctx, parentID, fileID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	for _, cid := range cids {
		s.Streams.Unregister(cid)
		if unpinErr := s.Facade.UnpinBlock(ctx, cid); unpinErr != nil {
			logger.WarnCtx(ctx, "failed to unpin deleted file cid", "cid", cid, "error", unpinErr.Error())
		}
	}
	return nil
}
