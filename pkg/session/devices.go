package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/internal/telemetry"
	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/ipnsid"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

// deviceRegistryHandle derives the device registry's signing seed, public
// key and pointer id from the vault private key. Every session holding
// the vault key rederives the same handle without asking the façade
// (pkg/ipnsid.DeviceRegistrySeed).
type deviceRegistryHandle struct {
	seed      []byte
	publicKey []byte
	pointerID string
}

func (s *Session) deviceRegistryHandle() (*deviceRegistryHandle, error) {
	seed, err := ipnsid.DeviceRegistrySeed(s.vaultKeypair.PrivateKey)
	if err != nil {
		return nil, err
	}
	pub, err := crypto.Ed25519PublicKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	pointerID, err := ipnsid.PointerIDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &deviceRegistryHandle{seed: seed, publicKey: pub, pointerID: pointerID}, nil
}

// loadDeviceRegistry resolves the current device registry, returning an
// empty v1 registry (sequence 0) if none has ever been published.
func (s *Session) loadDeviceRegistry(ctx context.Context, h *deviceRegistryHandle) (*vaultmeta.DeviceRegistry, error) {
	result, err := s.Pipeline.Resolve(ctx, h.pointerID, h.publicKey)
	if err != nil {
		if vaulterrors.IsRoutingUnavailableError(err) {
			return &vaultmeta.DeviceRegistry{Version: vaultmeta.DeviceRegistryVersion}, nil
		}
		return nil, err
	}
	blob, err := s.Facade.GetBlock(ctx, result.Value)
	if err != nil {
		return nil, err
	}
	return vaultmeta.DecodeDeviceRegistry(blob, s.Root.RootFolderKey)
}

func (s *Session) publishDeviceRegistry(ctx context.Context, h *deviceRegistryHandle, reg *vaultmeta.DeviceRegistry) error {
	envelope, err := vaultmeta.EncodeDeviceRegistry(reg, s.Root.RootFolderKey)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(envelope)
	if err != nil {
		return vaulterrors.NewEncryptionFailedError()
	}
	cid, err := s.Facade.PutBlock(ctx, blob)
	if err != nil {
		return err
	}
	_, err = s.Pipeline.Publish(ctx, h.pointerID, h.seed, h.publicKey, cid, "")
	return err
}

// reconcileDeviceRegistry resolves the current registry, applies mutate,
// and publishes it. If the publish fails, it is retried exactly once
// after a fresh resolve-and-reapply cycle: another
// device may have published a newer registry between this session's
// resolve and its publish, and a single retry against the now-current
// state resolves the overwhelming majority of such races without forcing
// the caller to loop.
func (s *Session) reconcileDeviceRegistry(ctx context.Context, mutate func(*vaultmeta.DeviceRegistry) error) error {
	h, err := s.deviceRegistryHandle()
	if err != nil {
		return err
	}

	const maxAttempts = 2
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reg, err := s.loadDeviceRegistry(ctx, h)
		if err != nil {
			return err
		}
		if err := mutate(reg); err != nil {
			return err
		}
		reg.SequenceNumber++

		if err := s.publishDeviceRegistry(ctx, h, reg); err != nil {
			lastErr = err
			logger.WarnCtx(ctx, "device registry publish failed, retrying with fresh resolve",
				"attempt", attempt, "error", err.Error())
			continue
		}
		return nil
	}
	return lastErr
}

// ListDevices returns every device entry in the vault's device registry
// (pending, authorized, and revoked).
func (s *Session) ListDevices(ctx context.Context) ([]vaultmeta.DeviceEntry, error) {
	h, err := s.deviceRegistryHandle()
	if err != nil {
		return nil, err
	}
	reg, err := s.loadDeviceRegistry(ctx, h)
	if err != nil {
		return nil, err
	}
	return reg.Devices, nil
}

// RegisterDevice adds a new pending device entry to the registry, keyed by
// a freshly-generated random device id.
func (s *Session) RegisterDevice(ctx context.Context, name string, platform vaultmeta.DevicePlatform, appVersion, deviceModel string, publicKeyHex, ipHashHex string, now int64) (*vaultmeta.DeviceEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPublish)
	defer span.End()

	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}
	entry := vaultmeta.DeviceEntry{
		DeviceID:    hex.EncodeToString(idBytes),
		PublicKey:   publicKeyHex,
		Name:        name,
		Platform:    platform,
		AppVersion:  appVersion,
		DeviceModel: deviceModel,
		IPHash:      ipHashHex,
		Status:      vaultmeta.DeviceStatusPending,
		CreatedAt:   now,
		LastSeenAt:  now,
	}

	err := s.reconcileDeviceRegistry(ctx, func(reg *vaultmeta.DeviceRegistry) error {
		reg.Devices = append(reg.Devices, entry)
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return &entry, nil
}

// RevokeDevice marks deviceID as revoked, attributing the revocation to
// revokedBy (typically the calling device's own id).
func (s *Session) RevokeDevice(ctx context.Context, deviceID, revokedBy string, now int64) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPublish)
	defer span.End()

	err := s.reconcileDeviceRegistry(ctx, func(reg *vaultmeta.DeviceRegistry) error {
		for i := range reg.Devices {
			if reg.Devices[i].DeviceID == deviceID {
				reg.Devices[i].Status = vaultmeta.DeviceStatusRevoked
				revokedAt := now
				revokedByCopy := revokedBy
				reg.Devices[i].RevokedAt = &revokedAt
				reg.Devices[i].RevokedBy = &revokedByCopy
				return nil
			}
		}
		return vaulterrors.NewDecryptionFailedError()
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}
