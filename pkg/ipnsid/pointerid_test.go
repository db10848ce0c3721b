package ipnsid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherbox-vault/core/pkg/crypto"
)

func TestPointerIDFromPublicKeyIsDeterministic(t *testing.T) {
	seed, err := crypto.NewEd25519Seed()
	require.NoError(t, err)
	pub, err := crypto.Ed25519PublicKeyFromSeed(seed)
	require.NoError(t, err)

	id1, err := PointerIDFromPublicKey(pub)
	require.NoError(t, err)
	id2, err := PointerIDFromPublicKey(pub)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.True(t, strings.HasPrefix(id1, "k51"))
}

func TestPointerIDFromPublicKeyDiffersPerKey(t *testing.T) {
	seedA, err := crypto.NewEd25519Seed()
	require.NoError(t, err)
	pubA, err := crypto.Ed25519PublicKeyFromSeed(seedA)
	require.NoError(t, err)

	seedB, err := crypto.NewEd25519Seed()
	require.NoError(t, err)
	pubB, err := crypto.Ed25519PublicKeyFromSeed(seedB)
	require.NoError(t, err)

	idA, err := PointerIDFromPublicKey(pubA)
	require.NoError(t, err)
	idB, err := PointerIDFromPublicKey(pubB)
	require.NoError(t, err)

	assert.NotEqual(t, idA, idB)
}

func TestPointerIDFromPublicKeyRejectsWrongLength(t *testing.T) {
	_, err := PointerIDFromPublicKey(make([]byte, 16))
	assert.Error(t, err)
}

func TestDeviceRegistrySeedIsDeterministicAndWellFormed(t *testing.T) {
	vaultPriv, _, err := crypto.GenerateSECP256K1KeyPair()
	require.NoError(t, err)

	seed1, err := DeviceRegistrySeed(vaultPriv)
	require.NoError(t, err)
	seed2, err := DeviceRegistrySeed(vaultPriv)
	require.NoError(t, err)

	assert.Equal(t, seed1, seed2)
	assert.Len(t, seed1, crypto.Ed25519SeedSize)
}
