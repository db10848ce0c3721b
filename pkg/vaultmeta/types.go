// Package vaultmeta implements the codec for the four versioned
// on-network object kinds (folder metadata, file metadata, device
// registry, vault export) with strict manual validation: unknown
// top-level fields are ignored, known fields are checked for
// type/range/length/format, and the codec (not the language's type
// system) is the single source of truth for backward compatibility.
package vaultmeta

import "encoding/json"

// EncryptionMode names the symmetric cipher protecting a file body.
type EncryptionMode string

const (
	// EncryptionModeGCM is the default, authenticated mode.
	EncryptionModeGCM EncryptionMode = "GCM"
	// EncryptionModeCTR is the unauthenticated streaming mode used for
	// media whose integrity is covered by the content hash.
	EncryptionModeCTR EncryptionMode = "CTR"
)

// DeviceStatus is the lifecycle state of a registered device.
type DeviceStatus string

const (
	DeviceStatusPending    DeviceStatus = "pending"
	DeviceStatusAuthorized DeviceStatus = "authorized"
	DeviceStatusRevoked    DeviceStatus = "revoked"
)

// DevicePlatform names the client platform of a registered device.
type DevicePlatform string

const (
	DevicePlatformWeb     DevicePlatform = "web"
	DevicePlatformMacOS   DevicePlatform = "macos"
	DevicePlatformLinux   DevicePlatform = "linux"
	DevicePlatformWindows DevicePlatform = "windows"
)

// FolderMetadataVersion is the current schema version of FolderMetadata.
const FolderMetadataVersion = "v2"

// FileMetadataVersion is the current schema version of FileMetadata.
const FileMetadataVersion = "v1"

// DeviceRegistryVersion is the current schema version of DeviceRegistry.
const DeviceRegistryVersion = "v1"

// VaultExportFormat and VaultExportVersion identify a recovery bundle.
const (
	VaultExportFormat  = "cipherbox-vault-export"
	VaultExportVersion = "1.0"
)

// MaxVersionsPerFile bounds the retained version chain of a single file.
const MaxVersionsPerFile = 10

// VersionCooldownMillis is the minimum elapsed time between two body
// updates that still produces a baseline version entry.
const VersionCooldownMillis = 15 * 60 * 1000

// String field length limits. Identifiers and wrapped-key blobs are
// bounded generously above their actual encoded size so a future key size
// bump doesn't require a codec change, while still rejecting obviously
// malformed or adversarial payloads.
const (
	HexIDLength          = 64 // deviceId, publicKey, ipHash: exactly 64 hex chars
	MaxDeviceNameLength  = 200
	MaxAppVersionLength  = 50
	MaxDeviceModelLength = 200

	MaxIDLength                = 128
	MaxEncryptedNameLength     = 1024
	MaxIvHexLength             = 64
	MaxPointerIDLength         = 128
	MaxWrappedKeyLength        = 512
	MaxMimeTypeLength          = 255
	MaxCidLength               = 256
	MaxDerivationMethodLength  = 64
	MaxDerivationVersionLength = 32
)

// FolderEntry is a child-folder reference inside a FolderMetadata's
// children list.
type FolderEntry struct {
	ID                      string `json:"id"`
	NameEncrypted           string `json:"nameEncrypted"`
	NameIv                  string `json:"nameIv"`
	IpnsName                string `json:"ipnsName"`
	FolderKeyEncrypted      string `json:"folderKeyEncrypted"`
	IpnsPrivateKeyEncrypted string `json:"ipnsPrivateKeyEncrypted"`
	CreatedAt               int64  `json:"createdAt"`
	ModifiedAt              int64  `json:"modifiedAt"`
}

// FilePointer is a file reference inside a FolderMetadata's children list.
// IpnsPrivateKeyEncrypted may be absent on records written before wrapped
// per-file signing keys existed; see HasWrappedSigningKey and the legacy
// seed derivation in package fileobject.
type FilePointer struct {
	Type                    string `json:"type"`
	ID                      string `json:"id"`
	NameEncrypted           string `json:"nameEncrypted"`
	NameIv                  string `json:"nameIv"`
	FileMetaIpnsName        string `json:"fileMetaIpnsName"`
	IpnsPrivateKeyEncrypted string `json:"ipnsPrivateKeyEncrypted,omitempty"`
	CreatedAt               int64  `json:"createdAt"`
	ModifiedAt              int64  `json:"modifiedAt"`
}

// HasWrappedSigningKey reports whether this pointer carries its own
// ECIES-wrapped signing key, as opposed to relying on the legacy HKDF
// fallback derivation.
func (p *FilePointer) HasWrappedSigningKey() bool {
	return p.IpnsPrivateKeyEncrypted != ""
}

// FolderMetadata is the children list of a directory.
type FolderMetadata struct {
	Version  string       `json:"version"`
	Children []ChildEntry `json:"children,omitempty"`
}

// ChildEntry is the tagged union of FolderEntry and FilePointer that makes
// up FolderMetadata.Children. Exactly one of Folder or File is non-nil.
type ChildEntry struct {
	Folder *FolderEntry `json:"-"`
	File   *FilePointer `json:"-"`
}

// IsFile reports whether this child entry is a FilePointer.
func (c ChildEntry) IsFile() bool {
	return c.File != nil
}

// NameEncrypted returns the encrypted name of either entry kind, for
// name-uniqueness comparisons performed after decryption by the caller.
func (c ChildEntry) NameEncrypted() string {
	if c.File != nil {
		return c.File.NameEncrypted
	}
	if c.Folder != nil {
		return c.Folder.NameEncrypted
	}
	return ""
}

// MarshalJSON writes whichever of Folder or File is set, tagging folder
// entries with an explicit "type":"folder" and file pointers with
// "type":"file" (Children is a mixed-kind list on the wire).
func (c ChildEntry) MarshalJSON() ([]byte, error) {
	if c.File != nil {
		file := *c.File
		file.Type = "file"
		return json.Marshal(&file)
	}
	if c.Folder != nil {
		return json.Marshal(struct {
			Type string `json:"type"`
			*FolderEntry
		}{Type: "folder", FolderEntry: c.Folder})
	}
	return []byte("null"), nil
}

// VersionEntry carries the full crypto context of one past version of a
// file's body.
type VersionEntry struct {
	Cid              string         `json:"cid"`
	FileKeyEncrypted string         `json:"fileKeyEncrypted"`
	FileIv           string         `json:"fileIv"`
	Size             int64          `json:"size"`
	Timestamp        int64          `json:"timestamp"`
	EncryptionMode   EncryptionMode `json:"encryptionMode"`
}

// FileMetadata is the body pointer, crypto context, and version chain for
// one file.
type FileMetadata struct {
	Version          string         `json:"version,omitempty"`
	Cid              string         `json:"cid"`
	FileKeyEncrypted string         `json:"fileKeyEncrypted"`
	FileIv           string         `json:"fileIv"`
	Size             int64          `json:"size"`
	MimeType         string         `json:"mimeType"`
	EncryptionMode   EncryptionMode `json:"encryptionMode,omitempty"`
	CreatedAt        int64          `json:"createdAt"`
	ModifiedAt       int64          `json:"modifiedAt"`
	Versions         []VersionEntry `json:"versions,omitempty"`
}

// DeviceEntry is one authorized (or pending/revoked) device in the
// registry.
type DeviceEntry struct {
	DeviceID    string         `json:"deviceId"`
	PublicKey   string         `json:"publicKey"`
	Name        string         `json:"name"`
	Platform    DevicePlatform `json:"platform"`
	AppVersion  string         `json:"appVersion"`
	DeviceModel string         `json:"deviceModel"`
	IPHash      string         `json:"ipHash"`
	Status      DeviceStatus   `json:"status"`
	CreatedAt   int64          `json:"createdAt"`
	LastSeenAt  int64          `json:"lastSeenAt"`
	RevokedAt   *int64         `json:"revokedAt,omitempty"`
	RevokedBy   *string        `json:"revokedBy,omitempty"`
}

// DeviceRegistry is the per-user list of authorized devices.
type DeviceRegistry struct {
	Version        string        `json:"version"`
	SequenceNumber int64         `json:"sequenceNumber"`
	Devices        []DeviceEntry `json:"devices"`
}

// DerivationInfo describes how a VaultExport's wrapped keys were derived,
// for a recovery tool's benefit.
type DerivationInfo struct {
	Method            string  `json:"method"`
	DerivationVersion *string `json:"derivationVersion"`
}

// VaultExport is the offline recovery bundle. It is
// never stored on the network; the user downloads it directly.
type VaultExport struct {
	Format                      string         `json:"format"`
	Version                     string         `json:"version"`
	ExportedAt                  string         `json:"exportedAt"`
	RootIpnsName                string         `json:"rootIpnsName"`
	EncryptedRootFolderKey      string         `json:"encryptedRootFolderKey"`
	EncryptedRootIpnsPrivateKey string         `json:"encryptedRootIpnsPrivateKey"`
	DerivationInfo              DerivationInfo `json:"derivationInfo"`
}
