// Package publish implements the mutable-pointer publish pipeline:
// per-pointer serialization, monotone sequence tracking, signature
// verification on resolve, single-flight resolve deduplication, and the
// cached-fallback read path used when the routing layer is unavailable.
package publish

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/internal/telemetry"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// PublishTimeout and ResolveTimeout are the default per-operation
// deadlines a caller should apply around Pipeline calls: 120s for a
// publish, 60s for a resolve (matching the 60s block-fetch default).
const (
	PublishTimeout = 120 * time.Second
	ResolveTimeout = 60 * time.Second
)

// ResolveResult is the outcome of a pointer resolve: the trusted value (or
// the best available cached one), its sequence, and whether Stale is set
// because the live resolve failed or its signature did not verify.
type ResolveResult struct {
	Value     string
	Sequence  int64
	FromCache bool
	Stale     bool
}

// Metrics is the optional observability hook a Pipeline reports to. A nil
// Metrics is valid and costs nothing.
type Metrics interface {
	ObservePublish(pointerID string, duration time.Duration, err error)
	ObserveResolve(pointerID string, duration time.Duration, cacheHit bool, stale bool)
}

// Pipeline serializes publishes per pointer, tracks the highest sequence
// ever used per pointer, deduplicates concurrent resolves of the same
// pointer, and falls back to the cached last-known value when the routing
// layer is unavailable or a resolve's signature fails to verify.
type Pipeline struct {
	facade facade.Facade
	store  Store

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	resolveGroup singleflight.Group

	metrics Metrics
}

// New creates a Pipeline over facade f, persisting pointer bookkeeping in
// store.
func New(f facade.Facade, store Store) *Pipeline {
	return &Pipeline{
		facade: f,
		store:  store,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithMetrics attaches an observability sink; nil detaches it.
func (p *Pipeline) WithMetrics(m Metrics) *Pipeline {
	p.metrics = m
	return p
}

func (p *Pipeline) pointerLock(pointerID string) *sync.Mutex {
	p.locksMu.Lock()
	defer p.locksMu.Unlock()
	l, ok := p.locks[pointerID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[pointerID] = l
	}
	return l
}

// Publish signs (value, newSequence, validity) with signingSeed and
// publishes it to pointerID, where newSequence is one greater than
// max(the locally cached sequence, a freshly verified remote-resolved
// sequence). At most one publish is in flight per pointer at a time;
// concurrent callers are serialized, never coalesced into fewer network
// calls (each still needs its own sequence and value).
func (p *Pipeline) Publish(ctx context.Context, pointerID string, signingSeed, signerPublicKey []byte, value, validity string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPublish, trace.WithAttributes(telemetry.PointerID(pointerID)))
	defer span.End()

	lock := p.pointerLock(pointerID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	seq, err := p.publishLocked(ctx, pointerID, signingSeed, signerPublicKey, value, validity)
	if err != nil {
		telemetry.RecordError(ctx, err)
	} else {
		telemetry.SetAttributes(ctx, telemetry.Sequence(seq))
	}
	if p.metrics != nil {
		p.metrics.ObservePublish(pointerID, time.Since(start), err)
	}
	return seq, err
}

func (p *Pipeline) publishLocked(ctx context.Context, pointerID string, signingSeed, signerPublicKey []byte, value, validity string) (int64, error) {
	cached, cachedFound, err := p.store.Get(pointerID)
	if err != nil {
		return 0, err
	}

	remoteSeq, remoteOK := p.verifiedRemoteSequence(ctx, pointerID, signerPublicKey)

	var base int64
	haveBase := false
	if cachedFound {
		base = cached.Sequence
		haveBase = true
	}
	if remoteOK && (!haveBase || remoteSeq > base) {
		base = remoteSeq
		haveBase = true
	}
	if !haveBase {
		return 0, vaulterrors.NewSequenceUnknownError(pointerID)
	}

	newSeq := base + 1
	// The cached sequence is never allowed to decrease; base is
	// already the max of everything we know, so this is always an
	// increase, but guard against a concurrent external write regressing
	// it anyway.
	if cachedFound && newSeq <= cached.Sequence {
		newSeq = cached.Sequence + 1
	}

	record, err := SignRecord(signingSeed, value, newSeq, validity)
	if err != nil {
		return 0, err
	}

	req := facade.PublishRequest{
		Value:           record.Value,
		Sequence:        record.Sequence,
		Validity:        record.Validity,
		SignatureHex:    hexEncode(record.Signature),
		SignerPublicKey: hexEncode(record.SignerPublicKey),
	}

	logger.DebugCtx(ctx, "publishing pointer record", "pointer_id", pointerID, "sequence", newSeq)
	if err := p.facade.PublishRecord(ctx, pointerID, req); err != nil {
		return 0, err
	}

	if err := p.store.Put(pointerID, pointerState{Sequence: newSeq, LastValue: value}); err != nil {
		return 0, err
	}
	return newSeq, nil
}

// verifiedRemoteSequence resolves pointerID live (bypassing the cached
// fallback) and reports its sequence only if the record's signature
// verifies; a transient failure or signature mismatch reports ok=false so
// the publish path never trusts an unverified or stale sequence.
func (p *Pipeline) verifiedRemoteSequence(ctx context.Context, pointerID string, signerPublicKey []byte) (int64, bool) {
	resp, err := p.facade.ResolveRecord(ctx, pointerID)
	if err != nil || resp == nil {
		return 0, false
	}
	record, err := responseToRecord(resp, signerPublicKey)
	if err != nil || !record.Verify() {
		return 0, false
	}
	return record.Sequence, true
}

// Resolve fetches the current value of pointerID, verifying its signature
// under signerPublicKey. Concurrent resolves of the same pointer share one
// in-flight network call. On a transient routing failure or a
// signature mismatch, the cached last-known value is returned with Stale
// set; the untrusted value is never decrypted or otherwise surfaced.
func (p *Pipeline) Resolve(ctx context.Context, pointerID string, signerPublicKey []byte) (*ResolveResult, error) {
	ctx, span := telemetry.StartResolveSpan(ctx, pointerID)
	defer span.End()

	start := time.Now()
	v, err, shared := p.resolveGroup.Do(pointerID, func() (interface{}, error) {
		return p.resolveUncached(ctx, pointerID, signerPublicKey)
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		if p.metrics != nil {
			p.metrics.ObserveResolve(pointerID, time.Since(start), false, false)
		}
		return nil, err
	}
	result := v.(*ResolveResult)
	telemetry.SetAttributes(ctx, telemetry.Sequence(result.Sequence), telemetry.CacheHit(shared || result.FromCache), telemetry.Stale(result.Stale))
	if p.metrics != nil {
		p.metrics.ObserveResolve(pointerID, time.Since(start), shared, result.Stale)
	}
	return result, nil
}

func (p *Pipeline) resolveUncached(ctx context.Context, pointerID string, signerPublicKey []byte) (*ResolveResult, error) {
	resp, err := p.facade.ResolveRecord(ctx, pointerID)
	if err != nil {
		logger.WarnCtx(ctx, "pointer resolve failed, falling back to cache", "pointer_id", pointerID, "error", err.Error())
		return p.cachedFallback(pointerID)
	}

	record, buildErr := responseToRecord(resp, signerPublicKey)
	if buildErr != nil || !record.Verify() {
		logger.WarnCtx(ctx, "pointer resolve signature verification failed", "pointer_id", pointerID)
		result, cacheErr := p.cachedFallback(pointerID)
		if cacheErr != nil {
			return nil, vaulterrors.NewSignatureMismatchError(pointerID)
		}
		return result, nil
	}

	cached, cachedFound, err := p.store.Get(pointerID)
	if err != nil {
		return nil, err
	}
	newSeq := record.Sequence
	if cachedFound && cached.Sequence > newSeq {
		newSeq = cached.Sequence
	}
	if err := p.store.Put(pointerID, pointerState{Sequence: newSeq, LastValue: record.Value}); err != nil {
		return nil, err
	}

	return &ResolveResult{
		Value:     record.Value,
		Sequence:  record.Sequence,
		FromCache: resp.FromCache,
		Stale:     false,
	}, nil
}

func (p *Pipeline) cachedFallback(pointerID string) (*ResolveResult, error) {
	cached, found, err := p.store.Get(pointerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, vaulterrors.NewRoutingUnavailableError(pointerID)
	}
	return &ResolveResult{
		Value:     cached.LastValue,
		Sequence:  cached.Sequence,
		FromCache: true,
		Stale:     true,
	}, nil
}

// responseToRecord builds a Record from a façade resolve reply. The
// verification key is always the caller's independently-held
// signerPublicKey: a self-certifying pointer means the caller already
// knows which key owns it, so the key the façade claims in the reply is
// never substituted into the trust check.
func responseToRecord(resp *facade.ResolveResponse, signerPublicKey []byte) (*Record, error) {
	signature, err := hexDecode(resp.SignatureHex)
	if err != nil {
		return nil, err
	}
	return &Record{
		Value:           resp.Value,
		Sequence:        resp.Sequence,
		Validity:        resp.Validity,
		Signature:       signature,
		SignerPublicKey: signerPublicKey,
	}, nil
}
