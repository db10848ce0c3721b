package vaultmeta

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, 32)
}

func marshalEnvelope(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// marshalEnvelopeWithExtra re-serializes an envelope with an unrelated
// top-level field spliced in, to verify the envelope parser ignores it.
func marshalEnvelopeWithExtra(env *Envelope) ([]byte, error) {
	return json.Marshal(struct {
		IV       string `json:"iv_hex"`
		Data     string `json:"data_b64"`
		Reserved string `json:"reservedForFutureUse"`
	}{IV: env.IV, Data: env.Data, Reserved: "ignore-me"})
}

func TestFolderMetadataRoundTrip(t *testing.T) {
	key := testKey(0x01)
	meta := &FolderMetadata{
		Version: FolderMetadataVersion,
		Children: []ChildEntry{
			{Folder: &FolderEntry{
				ID:                      "f1",
				NameEncrypted:           "YWJjZA==",
				NameIv:                  "0011223344556677889900aabb",
				IpnsName:                "k51qzi5uqu5d...",
				FolderKeyEncrypted:      "aa",
				IpnsPrivateKeyEncrypted: "bb",
				CreatedAt:               1000,
				ModifiedAt:              1000,
			}},
			{File: &FilePointer{
				ID:               "file1",
				NameEncrypted:    "ZWZnaA==",
				NameIv:           "ffeeddccbbaa99887766554433",
				FileMetaIpnsName: "k51qzi5uqu5e...",
				CreatedAt:        2000,
				ModifiedAt:       2000,
			}},
		},
	}

	env, err := EncodeFolderMetadata(meta, key)
	require.NoError(t, err)

	blob, err := marshalEnvelope(env)
	require.NoError(t, err)

	decoded, err := DecodeFolderMetadata(blob, key)
	require.NoError(t, err)

	assert.Equal(t, meta.Version, decoded.Version)
	require.Len(t, decoded.Children, 2)
	assert.False(t, decoded.Children[0].IsFile())
	assert.Equal(t, meta.Children[0].Folder.ID, decoded.Children[0].Folder.ID)
	assert.True(t, decoded.Children[1].IsFile())
	assert.Equal(t, meta.Children[1].File.ID, decoded.Children[1].File.ID)
	assert.False(t, decoded.Children[1].File.HasWrappedSigningKey())
}

func TestFolderMetadataUnknownFieldsIgnored(t *testing.T) {
	key := testKey(0x02)
	meta := &FolderMetadata{Version: FolderMetadataVersion, Children: nil}
	env, err := EncodeFolderMetadata(meta, key)
	require.NoError(t, err)

	blob, err := marshalEnvelopeWithExtra(env)
	require.NoError(t, err)

	decoded, err := DecodeFolderMetadata(blob, key)
	require.NoError(t, err)
	assert.Equal(t, FolderMetadataVersion, decoded.Version)
}

func TestFileMetadataDefaultsApplied(t *testing.T) {
	key := testKey(0x03)
	meta := &FileMetadata{
		Cid:              "bafy...",
		FileKeyEncrypted: "aa",
		FileIv:           "00112233445566778899aabb",
		Size:             42,
		MimeType:         "text/plain",
		CreatedAt:        1,
		ModifiedAt:       1,
	}

	env, err := EncodeFileMetadata(meta, key)
	require.NoError(t, err)
	blob, err := marshalEnvelope(env)
	require.NoError(t, err)

	decoded, err := DecodeFileMetadata(blob, key)
	require.NoError(t, err)
	assert.Equal(t, EncryptionModeGCM, decoded.EncryptionMode)
	assert.Equal(t, FileMetadataVersion, decoded.Version)
	assert.Nil(t, decoded.Versions)
}

func TestFileMetadataTamperedCiphertextIsGenericDecryptionFailed(t *testing.T) {
	key := testKey(0x04)
	meta := &FileMetadata{Cid: "bafy...", FileKeyEncrypted: "aa", FileIv: "00112233445566778899aabb", Size: 1, MimeType: "text/plain"}
	env, err := EncodeFileMetadata(meta, key)
	require.NoError(t, err)

	env.Data = env.Data[:len(env.Data)-2] + "zz"
	blob, err := marshalEnvelope(env)
	require.NoError(t, err)

	_, err = DecodeFileMetadata(blob, key)
	require.Error(t, err)
}

func TestDeviceRegistryRoundTrip(t *testing.T) {
	key := testKey(0x05)
	hexID := bytes.Repeat([]byte{'a'}, 64)
	reg := &DeviceRegistry{
		Version:        DeviceRegistryVersion,
		SequenceNumber: 7,
		Devices: []DeviceEntry{{
			DeviceID:    string(hexID),
			PublicKey:   string(hexID),
			Name:        "laptop",
			Platform:    DevicePlatformMacOS,
			AppVersion:  "1.0.0",
			DeviceModel: "MacBookPro18,1",
			IPHash:      string(hexID),
			Status:      DeviceStatusAuthorized,
			CreatedAt:   1,
			LastSeenAt:  2,
		}},
	}

	env, err := EncodeDeviceRegistry(reg, key)
	require.NoError(t, err)
	blob, err := marshalEnvelope(env)
	require.NoError(t, err)

	decoded, err := DecodeDeviceRegistry(blob, key)
	require.NoError(t, err)
	require.Len(t, decoded.Devices, 1)
	assert.Equal(t, DeviceStatusAuthorized, decoded.Devices[0].Status)
	assert.Nil(t, decoded.Devices[0].RevokedAt)
}

func TestVaultExportRoundTrip(t *testing.T) {
	export := &VaultExport{
		Format:                      VaultExportFormat,
		Version:                     VaultExportVersion,
		ExportedAt:                  "2026-07-29T00:00:00Z",
		RootIpnsName:                "k51qzi5uqu5root",
		EncryptedRootFolderKey:      "aa",
		EncryptedRootIpnsPrivateKey: "bb",
		DerivationInfo:              DerivationInfo{Method: "ecies-secp256k1"},
	}

	blob, err := EncodeVaultExport(export)
	require.NoError(t, err)

	decoded, err := DecodeVaultExport(blob)
	require.NoError(t, err)
	assert.Equal(t, export.Format, decoded.Format)
	assert.Nil(t, decoded.DerivationInfo.DerivationVersion)
}

func TestVaultExportWrongFormatRejected(t *testing.T) {
	blob := []byte(`{"format":"not-cipherbox","version":"1.0","exportedAt":"x","rootIpnsName":"x","encryptedRootFolderKey":"x","encryptedRootIpnsPrivateKey":"x","derivationInfo":{"method":"x"}}`)
	_, err := DecodeVaultExport(blob)
	require.Error(t, err)
}
