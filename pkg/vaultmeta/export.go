package vaultmeta

import (
	"encoding/json"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// EncodeVaultExport serializes a VaultExport to plain JSON. Unlike every
// other object kind, an export bundle is never encrypted at rest on the
// network: it is downloaded directly by the user and never published to
// a pointer, so there is no vault-held key to protect it with.
func EncodeVaultExport(export *VaultExport) ([]byte, error) {
	data, err := json.Marshal(export)
	if err != nil {
		return nil, vaulterrors.NewEncryptionFailedError()
	}
	return data, nil
}

// DecodeVaultExport parses and strictly validates a VaultExport blob.
func DecodeVaultExport(blob []byte) (*VaultExport, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(blob, &fields); err != nil {
		return nil, vaulterrors.NewDecryptionFailedError()
	}
	return validateVaultExport(fields)
}

func validateVaultExport(fields map[string]interface{}) (*VaultExport, error) {
	format, err := requireExactString(fields, "format", VaultExportFormat)
	if err != nil {
		return nil, err
	}
	version, err := requireString(fields, "version", 16)
	if err != nil {
		return nil, err
	}
	exportedAt, err := requireString(fields, "exportedAt", 64)
	if err != nil {
		return nil, err
	}
	rootIpnsName, err := requireString(fields, "rootIpnsName", MaxPointerIDLength)
	if err != nil {
		return nil, err
	}
	encryptedRootFolderKey, err := requireString(fields, "encryptedRootFolderKey", MaxWrappedKeyLength)
	if err != nil {
		return nil, err
	}
	encryptedRootIpnsPrivateKey, err := requireString(fields, "encryptedRootIpnsPrivateKey", MaxWrappedKeyLength)
	if err != nil {
		return nil, err
	}

	derivationRaw, ok := fieldRaw(fields, "derivationInfo")
	if !ok {
		return nil, fieldFail()
	}
	derivationMap, err := requireObject(derivationRaw)
	if err != nil {
		return nil, err
	}
	derivationInfo, err := validateDerivationInfo(derivationMap)
	if err != nil {
		return nil, err
	}

	return &VaultExport{
		Format:                      format,
		Version:                     version,
		ExportedAt:                  exportedAt,
		RootIpnsName:                rootIpnsName,
		EncryptedRootFolderKey:      encryptedRootFolderKey,
		EncryptedRootIpnsPrivateKey: encryptedRootIpnsPrivateKey,
		DerivationInfo:              *derivationInfo,
	}, nil
}

func validateDerivationInfo(m map[string]interface{}) (*DerivationInfo, error) {
	method, err := requireString(m, "method", MaxDerivationMethodLength)
	if err != nil {
		return nil, err
	}
	derivationVersion, err := optionalNullableString(m, "derivationVersion", MaxDerivationVersionLength)
	if err != nil {
		return nil, err
	}
	return &DerivationInfo{Method: method, DerivationVersion: derivationVersion}, nil
}
