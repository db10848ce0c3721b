// Package session is the vault core's composition root: it wires the
// façade client, the publish pipeline, the vault root, and the folder
// graph into the single object a CLI or a filesystem-mount front end
// embeds, and layers two client-side policies on top that the lower
// packages intentionally don't know about: a quota pre-flight check
// before an upload and bounded-retry device registry reconciliation.
package session

import (
	"context"
	"time"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/internal/telemetry"
	"github.com/cipherbox-vault/core/pkg/config"
	"github.com/cipherbox-vault/core/pkg/facade"
	"github.com/cipherbox-vault/core/pkg/foldergraph"
	"github.com/cipherbox-vault/core/pkg/metrics"
	"github.com/cipherbox-vault/core/pkg/publish"
	"github.com/cipherbox-vault/core/pkg/streamcache"
	"github.com/cipherbox-vault/core/pkg/vault"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

// Session owns every long-lived resource a logged-in vault client needs:
// the façade client, the publish pipeline, the opened vault root, and the
// folder graph rooted at it.
type Session struct {
	cfg *config.Config

	Facade   facade.Facade
	Pipeline *publish.Pipeline
	Root     *vault.Root
	Graph    *foldergraph.Graph

	// Streams caches encrypted CTR bodies and their unwrapped keys so
	// successive range reads of the same file skip the block fetch and
	// the ECIES unwrap.
	Streams *streamcache.Cache

	vaultKeypair vault.Keypair

	preflightQuota bool
	store          publish.Store
}

// Open builds an HTTP façade client from cfg, opens the vault for
// vaultKeypair, and loads its root folder. Callers must call Close on
// every exit path to release the pointer store and zeroize the vault's
// unwrapped keys.
func Open(ctx context.Context, cfg *config.Config, vaultKeypair vault.Keypair) (*Session, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanVaultOpen)
	defer span.End()

	httpClient := facade.NewHTTPClient(cfg.Facade.BaseURL)
	if cfg.Facade.MaxAttempts > 0 {
		httpClient.MaxAttempts = cfg.Facade.MaxAttempts
	}
	if cfg.Facade.BaseDelay > 0 {
		httpClient.BaseDelay = cfg.Facade.BaseDelay
	}

	return OpenWithFacade(ctx, cfg, httpClient, vaultKeypair)
}

// OpenWithFacade is Open with an already-constructed façade client,
// letting callers substitute a test double or an already-authenticated
// client without reaching into Session's internals.
func OpenWithFacade(ctx context.Context, cfg *config.Config, f facade.Facade, vaultKeypair vault.Keypair) (*Session, error) {
	store, err := openStore(cfg.Publish.StorePath)
	if err != nil {
		return nil, err
	}

	pipeline := publish.New(f, store).WithMetrics(metrics.NewPublishMetrics())

	root, err := vault.Open(ctx, f, vaultKeypair)
	if err != nil {
		store.Close()
		return nil, err
	}

	graph := foldergraph.New(f, pipeline, vaultKeypair.PrivateKey, vaultKeypair.PublicKey)
	if _, err := graph.LoadRoot(ctx, root.RootIpnsName, root.RootFolderKey, root.RootIpnsPrivateKey); err != nil {
		root.Close()
		store.Close()
		return nil, err
	}

	logger.InfoCtx(ctx, "session opened", "vault_id", root.RootIpnsName)

	return &Session{
		cfg:            cfg,
		Facade:         f,
		Pipeline:       pipeline,
		Root:           root,
		Graph:          graph,
		Streams:        streamcache.New(cfg.StreamCache.MaxStreams),
		vaultKeypair:   vaultKeypair,
		preflightQuota: cfg.Quota.PreflightEnabled,
		store:          store,
	}, nil
}

func openStore(path string) (publish.Store, error) {
	if path == "" {
		return publish.NewMemStore(), nil
	}
	return publish.OpenBadgerStore(path)
}

// Close releases the pointer bookkeeping store and zeroizes the vault's
// unwrapped key material. Safe to call once; idempotent calls are not
// supported, matching vault.Root.Close.
func (s *Session) Close() {
	s.Streams.Close()
	s.Root.Close()
	if s.store != nil {
		_ = s.store.Close()
	}
}

// Quota reports the vault's current façade-enforced pin usage, recording
// it to the session's quota gauge if metrics are enabled.
func (s *Session) Quota(ctx context.Context) (*facade.Quota, error) {
	q, err := s.Facade.Quota(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordQuota(metrics.NewQuotaMetrics(), q.UsedBytes, q.LimitBytes)
	return q, nil
}

// Export produces the vault's offline recovery bundle.
func (s *Session) Export() *vaultmeta.VaultExport {
	return s.Root.Export(time.Now().UTC().Format(time.RFC3339))
}

func (s *Session) logCtx(ctx context.Context, operation string) context.Context {
	lc := logger.NewLogContext(s.Root.RootIpnsName).WithOperation(operation)
	return logger.WithContext(ctx, lc)
}
