// Package facade defines the abstract interface the vault core uses to
// reach the pinning backend and the mutable-name publish/resolve routing
// layer. The core never talks to IPFS or
// IPNS directly: it calls exactly the operations named here, so an
// alternative backend (a different pinning provider, a local test double)
// can be swapped in without touching the vault engine, folder graph, file
// object, or publish pipeline packages.
package facade

import "context"

// Quota reports a user's pin usage against their façade-enforced limit.
type Quota struct {
	UsedBytes  int64 `json:"usedBytes"`
	LimitBytes int64 `json:"limitBytes"`
}

// VaultBootstrap is the façade's record of a user's root pointer and its
// wrapped root keys, fetched once at session Open.
type VaultBootstrap struct {
	RootIpnsName                string `json:"rootIpnsName"`
	EncryptedRootFolderKey      string `json:"encryptedRootFolderKey"`
	EncryptedRootIpnsPrivateKey string `json:"encryptedRootIpnsPrivateKey"`
}

// PublishRequest is the signed mutable-pointer record the core asks the
// façade to publish. Value is the target content hash; Sequence and
// Validity are the fields the signature in SignatureHex covers, in the
// order the publish pipeline's signing bytes are built.
type PublishRequest struct {
	Value           string `json:"value"`
	Sequence        int64  `json:"sequence"`
	Validity        string `json:"validity"`
	SignatureHex    string `json:"signature"`
	SignerPublicKey string `json:"signerPublicKey"`
}

// ResolveResponse is the façade's answer to a mutable-pointer resolve. The
// caller (pkg/publish) must verify SignatureHex over (Value, Sequence,
// Validity) under SignerPublicKeyHex before trusting Value.
type ResolveResponse struct {
	Value           string `json:"cid"`
	Sequence        int64  `json:"sequence"`
	Validity        string `json:"validity"`
	SignatureHex    string `json:"signature"`
	SignerPublicKey string `json:"signerPublicKey"`
	FromCache       bool   `json:"fromCache"`
}

// Facade is the abstract block/pointer surface of the service, plus quota and
// vault bootstrap lookup. Every method may return a RoutingUnavailable or
// QuotaExceeded *vaulterrors.VaultError (see pkg/vaulterrors) alongside the
// usual Go error for transport-level failures.
type Facade interface {
	// GetMyVault fetches the caller's root pointer bootstrap record.
	GetMyVault(ctx context.Context) (*VaultBootstrap, error)

	// PutBlock uploads blob to the pinning backend, which pins it against
	// the caller's quota, and returns its content identifier.
	PutBlock(ctx context.Context, blob []byte) (cid string, err error)

	// GetBlock fetches the block addressed by cid.
	GetBlock(ctx context.Context, cid string) ([]byte, error)

	// UnpinBlock releases cid, freeing it against the caller's quota.
	// Idempotent: unpinning an already-unpinned or unknown cid is not an
	// error.
	UnpinBlock(ctx context.Context, cid string) error

	// PublishRecord publishes a signed mutable-pointer record for ipnsName.
	PublishRecord(ctx context.Context, ipnsName string, record PublishRequest) error

	// ResolveRecord resolves the current signed record for ipnsName.
	ResolveRecord(ctx context.Context, ipnsName string) (*ResolveResponse, error)

	// Quota reports the caller's current pin usage and limit.
	Quota(ctx context.Context) (*Quota, error)
}
