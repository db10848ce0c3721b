package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "cipherbox", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	tracer = nil
	enabled = false

	require.NotNil(t, Tracer())
}

func TestStartSpanWithoutInit(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSpan(ctx, SpanVaultOpen)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	require.NotNil(t, SpanFromContext(context.Background()))
}

func TestRecordErrorAndStatusAreNoOpSafe(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() { RecordError(ctx, nil) })
	require.NotPanics(t, func() { RecordError(ctx, errors.New("resolve failed")) })
	require.NotPanics(t, func() { SetStatus(ctx, codes.Ok, "published") })
	require.NotPanics(t, func() { SetStatus(ctx, codes.Error, "publish failed") })
	require.NotPanics(t, func() { AddEvent(ctx, "resolve.cache_fallback") })
	require.NotPanics(t, func() { SetAttributes(ctx, PointerID("k51qzi5uqu5dgutdk")) })
}

func TestTraceAndSpanIDWithoutActiveSpan(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", TraceID(ctx))
	assert.Equal(t, "", SpanID(ctx))
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("Operation", func(t *testing.T) {
		attr := Operation("upload")
		assert.Equal(t, AttrOperation, string(attr.Key))
		assert.Equal(t, "upload", attr.Value.AsString())
	})

	t.Run("VaultID", func(t *testing.T) {
		attr := VaultID("k51qzi5uqu5dgutdk")
		assert.Equal(t, AttrVaultID, string(attr.Key))
		assert.Equal(t, "k51qzi5uqu5dgutdk", attr.Value.AsString())
	})

	t.Run("PointerID", func(t *testing.T) {
		attr := PointerID("k51qzi5uqu5dh9z3f")
		assert.Equal(t, AttrPointerID, string(attr.Key))
		assert.Equal(t, "k51qzi5uqu5dh9z3f", attr.Value.AsString())
	})

	t.Run("Sequence", func(t *testing.T) {
		attr := Sequence(42)
		assert.Equal(t, AttrSequence, string(attr.Key))
		assert.Equal(t, int64(42), attr.Value.AsInt64())
	})

	t.Run("CID", func(t *testing.T) {
		attr := CID("bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi")
		assert.Equal(t, AttrCID, string(attr.Key))
		assert.Equal(t, "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", attr.Value.AsString())
	})

	t.Run("FileID", func(t *testing.T) {
		attr := FileID("8a9c5a7e-3b21-4a6e-8c30-1f2d3e4a5b6c")
		assert.Equal(t, AttrFileID, string(attr.Key))
		assert.Equal(t, "8a9c5a7e-3b21-4a6e-8c30-1f2d3e4a5b6c", attr.Value.AsString())
	})

	t.Run("FolderID", func(t *testing.T) {
		attr := FolderID("root")
		assert.Equal(t, AttrFolderID, string(attr.Key))
		assert.Equal(t, "root", attr.Value.AsString())
	})

	t.Run("CacheHit", func(t *testing.T) {
		attr := CacheHit(true)
		assert.Equal(t, AttrCacheHit, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("Stale", func(t *testing.T) {
		attr := Stale(true)
		assert.Equal(t, AttrStale, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("ErrorCode", func(t *testing.T) {
		attr := ErrorCode("SequenceUnknown")
		assert.Equal(t, AttrErrorCode, string(attr.Key))
		assert.Equal(t, "SequenceUnknown", attr.Value.AsString())
	})
}

func TestStartPublishSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartPublishSpan(ctx, "k51qzi5uqu5dh9z3f", 7)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartResolveSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartResolveSpan(ctx, "k51qzi5uqu5dh9z3f")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartCryptoSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartCryptoSpan(ctx, SpanCryptoEncrypt)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartCryptoSpan(ctx, SpanCryptoUnwrap, FileID("8a9c5a7e"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartFacadeSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartFacadeSpan(ctx, SpanFacadePutBlock, CID("bafybeig"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
