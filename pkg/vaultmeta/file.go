package vaultmeta

// EncodeFileMetadata seals a FileMetadata under the file's AES-256 key.
func EncodeFileMetadata(meta *FileMetadata, fileKey []byte) (*Envelope, error) {
	return encryptEnvelope(meta, fileKey)
}

// DecodeFileMetadata opens and strictly validates a FileMetadata blob.
// A missing encryptionMode defaults to GCM; a missing versions list is
// treated as omitted (no version chain yet), never as null.
func DecodeFileMetadata(blob []byte, fileKey []byte) (*FileMetadata, error) {
	fields, err := decryptEnvelopeToMap(blob, fileKey)
	if err != nil {
		return nil, err
	}
	return validateFileMetadata(fields)
}

func validateFileMetadata(fields map[string]interface{}) (*FileMetadata, error) {
	version, err := optionalString(fields, "version", FileMetadataVersion, 16)
	if err != nil {
		return nil, err
	}
	cid, err := requireString(fields, "cid", MaxCidLength)
	if err != nil {
		return nil, err
	}
	fileKeyEncrypted, err := requireString(fields, "fileKeyEncrypted", MaxWrappedKeyLength)
	if err != nil {
		return nil, err
	}
	fileIv, err := requireHexOfLength(fields, "fileIv", 0)
	if err != nil || len(fileIv) > MaxIvHexLength {
		return nil, fieldFail()
	}
	size, err := requireNonNegativeInt64(fields, "size")
	if err != nil {
		return nil, err
	}
	mimeType, err := requireString(fields, "mimeType", MaxMimeTypeLength)
	if err != nil {
		return nil, err
	}
	encryptionModeStr, err := optionalString(fields, "encryptionMode", string(EncryptionModeGCM), 8)
	if err != nil {
		return nil, err
	}
	encryptionMode, err := validateEncryptionMode(encryptionModeStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := requireNonNegativeInt64(fields, "createdAt")
	if err != nil {
		return nil, err
	}
	modifiedAt, err := requireNonNegativeInt64(fields, "modifiedAt")
	if err != nil {
		return nil, err
	}

	rawVersions, err := optionalArray(fields, "versions")
	if err != nil {
		return nil, err
	}
	var versions []VersionEntry
	if rawVersions != nil {
		versions = make([]VersionEntry, 0, len(rawVersions))
		for _, rawVersion := range rawVersions {
			versionMap, err := requireObject(rawVersion)
			if err != nil {
				return nil, err
			}
			v, err := validateVersionEntry(versionMap)
			if err != nil {
				return nil, err
			}
			versions = append(versions, *v)
		}
	}

	return &FileMetadata{
		Version:          version,
		Cid:              cid,
		FileKeyEncrypted: fileKeyEncrypted,
		FileIv:           fileIv,
		Size:             size,
		MimeType:         mimeType,
		EncryptionMode:   encryptionMode,
		CreatedAt:        createdAt,
		ModifiedAt:       modifiedAt,
		Versions:         versions,
	}, nil
}

func validateVersionEntry(m map[string]interface{}) (*VersionEntry, error) {
	cid, err := requireString(m, "cid", MaxCidLength)
	if err != nil {
		return nil, err
	}
	fileKeyEncrypted, err := requireString(m, "fileKeyEncrypted", MaxWrappedKeyLength)
	if err != nil {
		return nil, err
	}
	fileIv, err := requireHexOfLength(m, "fileIv", 0)
	if err != nil || len(fileIv) > MaxIvHexLength {
		return nil, fieldFail()
	}
	size, err := requireNonNegativeInt64(m, "size")
	if err != nil {
		return nil, err
	}
	timestamp, err := requireNonNegativeInt64(m, "timestamp")
	if err != nil {
		return nil, err
	}
	encryptionModeStr, err := optionalString(m, "encryptionMode", string(EncryptionModeGCM), 8)
	if err != nil {
		return nil, err
	}
	encryptionMode, err := validateEncryptionMode(encryptionModeStr)
	if err != nil {
		return nil, err
	}

	return &VersionEntry{
		Cid:              cid,
		FileKeyEncrypted: fileKeyEncrypted,
		FileIv:           fileIv,
		Size:             size,
		Timestamp:        timestamp,
		EncryptionMode:   encryptionMode,
	}, nil
}

func validateEncryptionMode(s string) (EncryptionMode, error) {
	switch EncryptionMode(s) {
	case EncryptionModeGCM, EncryptionModeCTR:
		return EncryptionMode(s), nil
	default:
		return "", fieldFail()
	}
}
