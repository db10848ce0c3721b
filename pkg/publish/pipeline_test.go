package publish

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// fakeFacade is an in-memory Facade double that records every publish and
// lets tests control resolve behavior (error injection, call counting).
type fakeFacade struct {
	facade.Facade

	mu           sync.Mutex
	published    map[string]facade.PublishRequest
	resolveErr   error
	resolveResp  *facade.ResolveResponse
	resolveCalls int32
}

func newFakeFacade() *fakeFacade {
	return &fakeFacade{published: make(map[string]facade.PublishRequest)}
}

func (f *fakeFacade) PublishRecord(ctx context.Context, ipnsName string, record facade.PublishRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[ipnsName] = record
	f.resolveResp = &facade.ResolveResponse{
		Value:           record.Value,
		Sequence:        record.Sequence,
		Validity:        record.Validity,
		SignatureHex:    record.SignatureHex,
		SignerPublicKey: record.SignerPublicKey,
	}
	return nil
}

func (f *fakeFacade) ResolveRecord(ctx context.Context, ipnsName string) (*facade.ResolveResponse, error) {
	atomic.AddInt32(&f.resolveCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if f.resolveResp == nil {
		return nil, vaulterrors.NewRoutingUnavailableError(ipnsName)
	}
	return f.resolveResp, nil
}

func newSigner(t *testing.T) (seed, pub []byte) {
	t.Helper()
	seed, err := crypto.NewEd25519Seed()
	require.NoError(t, err)
	pub, err = crypto.Ed25519PublicKeyFromSeed(seed)
	require.NoError(t, err)
	return seed, pub
}

func TestPublishSequenceMonotoneIncreasing(t *testing.T) {
	f := newFakeFacade()
	p := New(f, NewMemStore())
	seed, pub := newSigner(t)

	seq1, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidA", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq1)

	seq2, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidB", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq2)

	seq3, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidC", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq3)
}

func TestPublishWithoutCacheOrResolveFailsSequenceUnknown(t *testing.T) {
	f := newFakeFacade()
	f.resolveErr = vaulterrors.NewRoutingUnavailableError("pointer-1")
	p := New(f, NewMemStore())
	seed, pub := newSigner(t)

	_, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidA", "")
	require.Error(t, err)
	assert.True(t, vaulterrors.IsSequenceUnknownError(err))
}

func TestResolveVerifiesSignature(t *testing.T) {
	f := newFakeFacade()
	p := New(f, NewMemStore())
	seed, pub := newSigner(t)

	_, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidA", "")
	require.NoError(t, err)

	result, err := p.Resolve(context.Background(), "pointer-1", pub)
	require.NoError(t, err)
	assert.Equal(t, "cidA", result.Value)
	assert.False(t, result.Stale)
}

func TestResolveTamperedSignatureFallsBackToCache(t *testing.T) {
	f := newFakeFacade()
	p := New(f, NewMemStore())
	seed, pub := newSigner(t)

	_, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidA", "")
	require.NoError(t, err)

	// Tamper with the signed value after publish, as if a malicious relay
	// rewrote the record in flight.
	f.mu.Lock()
	f.resolveResp.Value = "cid-evil"
	f.mu.Unlock()

	result, err := p.Resolve(context.Background(), "pointer-1", pub)
	require.NoError(t, err)
	assert.True(t, result.Stale)
	assert.Equal(t, "cidA", result.Value, "must surface the cached value, never the tampered one")
}

func TestResolveRejectsFacadeSubstitutedSignerKey(t *testing.T) {
	f := newFakeFacade()
	p := New(f, NewMemStore())
	seed, pub := newSigner(t)

	_, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidA", "")
	require.NoError(t, err)

	// A compromised façade mints its own keypair, signs an arbitrary
	// record with it, and claims that key as the signer. The resolve must
	// verify against the caller's key and treat this as a mismatch.
	evilSeed, evilPub := newSigner(t)
	evilRecord, err := SignRecord(evilSeed, "cid-evil", 99, "")
	require.NoError(t, err)

	f.mu.Lock()
	f.resolveResp = &facade.ResolveResponse{
		Value:           evilRecord.Value,
		Sequence:        evilRecord.Sequence,
		Validity:        evilRecord.Validity,
		SignatureHex:    hexEncode(evilRecord.Signature),
		SignerPublicKey: hexEncode(evilPub),
	}
	f.mu.Unlock()

	result, err := p.Resolve(context.Background(), "pointer-1", pub)
	require.NoError(t, err)
	assert.True(t, result.Stale)
	assert.Equal(t, "cidA", result.Value, "a self-signed façade record must never be trusted")
}

func TestResolveRoutingUnavailableFallsBackToCache(t *testing.T) {
	f := newFakeFacade()
	p := New(f, NewMemStore())
	seed, pub := newSigner(t)

	_, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidA", "")
	require.NoError(t, err)

	f.mu.Lock()
	f.resolveErr = vaulterrors.NewRoutingUnavailableError("pointer-1")
	f.mu.Unlock()

	result, err := p.Resolve(context.Background(), "pointer-1", pub)
	require.NoError(t, err)
	assert.True(t, result.Stale)
	assert.Equal(t, "cidA", result.Value)
}

func TestResolveWithNoCacheAndNoRouteFails(t *testing.T) {
	f := newFakeFacade()
	f.resolveErr = vaulterrors.NewRoutingUnavailableError("pointer-1")
	p := New(f, NewMemStore())
	_, pub := newSigner(t)

	_, err := p.Resolve(context.Background(), "pointer-1", pub)
	require.Error(t, err)
}

func TestConcurrentResolvesShareOneNetworkCall(t *testing.T) {
	f := newFakeFacade()
	p := New(f, NewMemStore())
	seed, pub := newSigner(t)

	_, err := p.Publish(context.Background(), "pointer-1", seed, pub, "cidA", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = p.Resolve(context.Background(), "pointer-1", pub)
		}()
	}
	wg.Wait()

	// One resolve call happened during Publish's own sequence check, plus
	// at most one shared call for the concurrent batch (singleflight may
	// also run a second wave if the batch straddles two Do windows).
	assert.LessOrEqual(t, atomic.LoadInt32(&f.resolveCalls), int32(3))
}
