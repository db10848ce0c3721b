package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the vault core.
// Use these keys consistently so log aggregation and querying stay uniform
// across the publish pipeline, folder graph, file object, and façade client.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Vault Operations
	// ========================================================================
	KeyOperation = "operation"  // upload, download, rename, move, delete, restore, publish, resolve
	KeyVaultID   = "vault_id"   // root pointer id identifying the vault session
	KeyPointerID = "pointer_id" // mutable-pointer identifier (folder, file, or device registry)
	KeySequence  = "sequence"   // mutable-pointer sequence number
	KeyCID       = "cid"        // content identifier of a pinned block
	KeyFileID    = "file_id"    // opaque file id within its parent folder
	KeyFolderID  = "folder_id"  // folder id within the folder graph

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Tagged vaulterrors.ErrorCode string
	KeySource     = "source"      // Data source: cache, facade, local
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Resolve / Publish
	// ========================================================================
	KeyCacheHit  = "cache_hit"  // resolve satisfied from the local sequence cache
	KeyStale     = "stale"      // resolved value could not be freshly verified
	KeySizeBytes = "size_bytes" // body or metadata blob size in bytes
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Operation returns a slog.Attr for the vault operation name.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// VaultID returns a slog.Attr for the root pointer id of the session.
func VaultID(id string) slog.Attr { return slog.String(KeyVaultID, id) }

// PointerID returns a slog.Attr for a mutable-pointer identifier.
func PointerID(id string) slog.Attr { return slog.String(KeyPointerID, id) }

// Sequence returns a slog.Attr for a mutable-pointer sequence number.
func Sequence(seq int64) slog.Attr { return slog.Int64(KeySequence, seq) }

// CID returns a slog.Attr for a content identifier.
func CID(cid string) slog.Attr { return slog.String(KeyCID, cid) }

// FileID returns a slog.Attr for a file id.
func FileID(id string) slog.Attr { return slog.String(KeyFileID, id) }

// FolderID returns a slog.Attr for a folder id.
func FolderID(id string) slog.Attr { return slog.String(KeyFolderID, id) }

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a tagged vaulterrors error code string.
func ErrorCode(code string) slog.Attr { return slog.String(KeyErrorCode, code) }

// Source returns a slog.Attr for a resolve/cache data source.
func Source(src string) slog.Attr { return slog.String(KeySource, src) }

// Attempt returns a slog.Attr for retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// MaxRetries returns a slog.Attr for maximum retry attempts.
func MaxRetries(n int) slog.Attr { return slog.Int(KeyMaxRetries, n) }

// CacheHit returns a slog.Attr for a resolve cache-hit indicator.
func CacheHit(hit bool) slog.Attr { return slog.Bool(KeyCacheHit, hit) }

// Stale returns a slog.Attr for a resolve staleness indicator.
func Stale(stale bool) slog.Attr { return slog.Bool(KeyStale, stale) }

// SizeBytes returns a slog.Attr for a body or metadata blob size.
func SizeBytes(n int) slog.Attr { return slog.Int(KeySizeBytes, n) }
