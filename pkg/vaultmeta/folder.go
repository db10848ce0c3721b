package vaultmeta

// EncodeFolderMetadata seals a FolderMetadata under the folder's AES-256 key.
func EncodeFolderMetadata(meta *FolderMetadata, folderKey []byte) (*Envelope, error) {
	return encryptEnvelope(meta, folderKey)
}

// DecodeFolderMetadata opens and strictly validates a FolderMetadata blob.
// Unknown top-level fields on the object or on any child entry are ignored;
// every known field is type/range/length/format-checked, and any violation
// is reported as the generic DecryptionFailed kind.
func DecodeFolderMetadata(blob []byte, folderKey []byte) (*FolderMetadata, error) {
	fields, err := decryptEnvelopeToMap(blob, folderKey)
	if err != nil {
		return nil, err
	}
	return validateFolderMetadata(fields)
}

func validateFolderMetadata(fields map[string]interface{}) (*FolderMetadata, error) {
	version, err := optionalString(fields, "version", FolderMetadataVersion, 16)
	if err != nil {
		return nil, err
	}

	rawChildren, err := optionalArray(fields, "children")
	if err != nil {
		return nil, err
	}

	children := make([]ChildEntry, 0, len(rawChildren))
	for _, rawChild := range rawChildren {
		childMap, err := requireObject(rawChild)
		if err != nil {
			return nil, err
		}

		kind, err := optionalString(childMap, "type", "folder", 16)
		if err != nil {
			return nil, err
		}

		if kind == "file" {
			file, err := validateFilePointer(childMap)
			if err != nil {
				return nil, err
			}
			children = append(children, ChildEntry{File: file})
		} else {
			folder, err := validateFolderEntry(childMap)
			if err != nil {
				return nil, err
			}
			children = append(children, ChildEntry{Folder: folder})
		}
	}

	return &FolderMetadata{Version: version, Children: children}, nil
}

func validateFolderEntry(m map[string]interface{}) (*FolderEntry, error) {
	id, err := requireString(m, "id", MaxIDLength)
	if err != nil {
		return nil, err
	}
	nameEncrypted, err := requireString(m, "nameEncrypted", MaxEncryptedNameLength)
	if err != nil {
		return nil, err
	}
	nameIv, err := requireHexOfLength(m, "nameIv", 0)
	if err != nil || len(nameIv) > MaxIvHexLength {
		return nil, fieldFail()
	}
	ipnsName, err := requireString(m, "ipnsName", MaxPointerIDLength)
	if err != nil {
		return nil, err
	}
	folderKeyEncrypted, err := requireString(m, "folderKeyEncrypted", MaxWrappedKeyLength)
	if err != nil {
		return nil, err
	}
	ipnsPrivateKeyEncrypted, err := requireString(m, "ipnsPrivateKeyEncrypted", MaxWrappedKeyLength)
	if err != nil {
		return nil, err
	}
	createdAt, err := requireNonNegativeInt64(m, "createdAt")
	if err != nil {
		return nil, err
	}
	modifiedAt, err := requireNonNegativeInt64(m, "modifiedAt")
	if err != nil {
		return nil, err
	}

	return &FolderEntry{
		ID:                      id,
		NameEncrypted:           nameEncrypted,
		NameIv:                  nameIv,
		IpnsName:                ipnsName,
		FolderKeyEncrypted:      folderKeyEncrypted,
		IpnsPrivateKeyEncrypted: ipnsPrivateKeyEncrypted,
		CreatedAt:               createdAt,
		ModifiedAt:              modifiedAt,
	}, nil
}

func validateFilePointer(m map[string]interface{}) (*FilePointer, error) {
	id, err := requireString(m, "id", MaxIDLength)
	if err != nil {
		return nil, err
	}
	nameEncrypted, err := requireString(m, "nameEncrypted", MaxEncryptedNameLength)
	if err != nil {
		return nil, err
	}
	nameIv, err := requireHexOfLength(m, "nameIv", 0)
	if err != nil || len(nameIv) > MaxIvHexLength {
		return nil, fieldFail()
	}
	fileMetaIpnsName, err := requireString(m, "fileMetaIpnsName", MaxPointerIDLength)
	if err != nil {
		return nil, err
	}
	// ipnsPrivateKeyEncrypted may legitimately be absent on records written
	// before wrapped per-file signing keys existed; see DeriveLegacyFilePointerSeed.
	ipnsPrivateKeyEncrypted, err := optionalString(m, "ipnsPrivateKeyEncrypted", "", MaxWrappedKeyLength)
	if err != nil {
		return nil, err
	}
	createdAt, err := requireNonNegativeInt64(m, "createdAt")
	if err != nil {
		return nil, err
	}
	modifiedAt, err := requireNonNegativeInt64(m, "modifiedAt")
	if err != nil {
		return nil, err
	}

	return &FilePointer{
		Type:                    "file",
		ID:                      id,
		NameEncrypted:           nameEncrypted,
		NameIv:                  nameIv,
		FileMetaIpnsName:        fileMetaIpnsName,
		IpnsPrivateKeyEncrypted: ipnsPrivateKeyEncrypted,
		CreatedAt:               createdAt,
		ModifiedAt:              modifiedAt,
	}, nil
}
