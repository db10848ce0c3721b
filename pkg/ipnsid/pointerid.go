// Package ipnsid derives mutable-pointer identifiers ("self-certifying
// names") from Ed25519 public keys, and the deterministic seed used for the
// device registry's special pointer.
package ipnsid

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"

	"github.com/cipherbox-vault/core/pkg/crypto"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// libp2pKeyEd25519Type is the key-type enum value for Ed25519 in the
// libp2p public key protobuf record (field 1).
const libp2pKeyEd25519Type = 1

// DeviceRegistryInfo is the fixed HKDF info string used to derive the
// device registry's Ed25519 seed from the vault key, so that any session
// holding the vault key can rediscover the registry pointer without asking
// the façade.
const DeviceRegistryInfo = "cipherbox-device-registry-ipns-v1"

// PointerIDFromPublicKey derives the mutable-pointer identifier for an
// Ed25519 public key: the public key is wrapped in a minimal libp2p public
// key record, hashed with the identity multihash (the record is small
// enough that no content-addressing hash is needed), wrapped in a CIDv1
// with the libp2p-key codec, and base36-encoded with the standard "k51…"
// prefix used by the underlying network's self-certifying names.
func PointerIDFromPublicKey(ed25519PublicKey []byte) (string, error) {
	if len(ed25519PublicKey) != crypto.Ed25519PublicKeySize {
		return "", vaulterrors.NewInvalidPublicKeySizeError()
	}

	record := marshalLibp2pEd25519PublicKey(ed25519PublicKey)

	mh, err := multihash.Sum(record, multihash.IDENTITY, -1)
	if err != nil {
		return "", vaulterrors.NewKeyWrappingFailedError()
	}

	pointerCid := cid.NewCidV1(cid.Libp2pKey, mh)

	encoded, err := pointerCid.StringOfBase(multibase.Base36)
	if err != nil {
		return "", vaulterrors.NewKeyWrappingFailedError()
	}
	return encoded, nil
}

// marshalLibp2pEd25519PublicKey produces the minimal protobuf encoding of a
// libp2p PublicKey record: field 1 (Type, varint) = Ed25519, field 2 (Data,
// length-delimited) = the raw 32-byte public key. Hand-rolled rather than
// pulling in a full protobuf runtime, since the wire shape is two fixed
// fields and never changes.
func marshalLibp2pEd25519PublicKey(pub []byte) []byte {
	out := make([]byte, 0, 2+1+2+len(pub))
	out = append(out, 0x08, libp2pKeyEd25519Type) // field 1, varint
	out = append(out, 0x12, byte(len(pub)))       // field 2, length-delimited
	out = append(out, pub...)
	return out
}

// DeviceRegistrySeed derives the Ed25519 seed for the device registry's
// mutable pointer from the vault key's secp256k1 private scalar, using a
// fixed HKDF info string so every session holding the vault key rederives
// the same seed without a round trip to the façade.
func DeviceRegistrySeed(vaultPrivateKey []byte) ([]byte, error) {
	return crypto.DeriveKey(vaultPrivateKey, DeviceRegistryInfo, crypto.Ed25519SeedSize)
}
