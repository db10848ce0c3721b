package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for vault-core spans, following OpenTelemetry semantic
// convention style where applicable.
const (
	AttrOperation = "vault.operation" // upload, download, rename, move, delete, restore, publish, resolve
	AttrVaultID   = "vault.id"        // root pointer id of the session
	AttrPointerID = "vault.pointer_id"
	AttrSequence  = "vault.sequence"
	AttrCID       = "vault.cid"
	AttrFileID    = "vault.file_id"
	AttrFolderID  = "vault.folder_id"

	AttrCacheHit = "resolve.cache_hit"
	AttrStale    = "resolve.stale"

	AttrErrorCode = "vault.error_code" // tagged vaulterrors.ErrorCode string
)

// Span names for vault-core operations.
const (
	SpanPublish = "publish.record"
	SpanResolve = "publish.resolve"

	SpanVaultOpen   = "vault.open"
	SpanVaultExport = "vault.export"

	SpanFolderCreate = "folder.create"
	SpanFolderRename = "folder.rename"
	SpanFolderMove   = "folder.move"
	SpanFolderDelete = "folder.delete"

	SpanFileUpload     = "file.upload"
	SpanFileDownload   = "file.download"
	SpanFileUpdateBody = "file.update_body"
	SpanFileRestore    = "file.restore"
	SpanFileDeleteVer  = "file.delete_version"
	SpanFileDelete     = "file.delete"

	SpanCryptoEncrypt = "crypto.encrypt"
	SpanCryptoDecrypt = "crypto.decrypt"
	SpanCryptoWrap    = "crypto.wrap"
	SpanCryptoUnwrap  = "crypto.unwrap"
	SpanCryptoSign    = "crypto.sign"
	SpanCryptoVerify  = "crypto.verify"

	SpanFacadePutBlock      = "facade.put_block"
	SpanFacadeGetBlock      = "facade.get_block"
	SpanFacadeUnpinBlock    = "facade.unpin_block"
	SpanFacadePublishRecord = "facade.publish_record"
	SpanFacadeResolveRecord = "facade.resolve_record"

	SpanDeviceRegister = "device.register"
	SpanDeviceRevoke   = "device.revoke"
)

// Operation returns an attribute for the vault operation name.
func Operation(op string) attribute.KeyValue { return attribute.String(AttrOperation, op) }

// VaultID returns an attribute for the session's root pointer id.
func VaultID(id string) attribute.KeyValue { return attribute.String(AttrVaultID, id) }

// PointerID returns an attribute for a mutable-pointer identifier.
func PointerID(id string) attribute.KeyValue { return attribute.String(AttrPointerID, id) }

// Sequence returns an attribute for a mutable-pointer sequence number.
func Sequence(seq int64) attribute.KeyValue { return attribute.Int64(AttrSequence, seq) }

// CID returns an attribute for a content identifier.
func CID(cid string) attribute.KeyValue { return attribute.String(AttrCID, cid) }

// FileID returns an attribute for a file id.
func FileID(id string) attribute.KeyValue { return attribute.String(AttrFileID, id) }

// FolderID returns an attribute for a folder id.
func FolderID(id string) attribute.KeyValue { return attribute.String(AttrFolderID, id) }

// CacheHit returns an attribute for a resolve cache-hit indicator.
func CacheHit(hit bool) attribute.KeyValue { return attribute.Bool(AttrCacheHit, hit) }

// Stale returns an attribute for a resolve staleness indicator.
func Stale(stale bool) attribute.KeyValue { return attribute.Bool(AttrStale, stale) }

// ErrorCode returns an attribute for a tagged vaulterrors error code string.
func ErrorCode(code string) attribute.KeyValue { return attribute.String(AttrErrorCode, code) }

// StartPublishSpan starts a span for a mutable-pointer publish.
func StartPublishSpan(ctx context.Context, pointerID string, sequence int64) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanPublish, trace.WithAttributes(PointerID(pointerID), Sequence(sequence)))
}

// StartResolveSpan starts a span for a mutable-pointer resolve.
func StartResolveSpan(ctx context.Context, pointerID string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanResolve, trace.WithAttributes(PointerID(pointerID)))
}

// StartCryptoSpan starts a span for a primitives-layer operation (encrypt,
// decrypt, wrap, unwrap, sign, verify).
func StartCryptoSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, spanName, trace.WithAttributes(attrs...))
}

// StartFacadeSpan starts a span for a façade call (put/get/unpin block,
// publish/resolve record).
func StartFacadeSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, spanName, trace.WithAttributes(attrs...))
}
