package vaultmeta

// EncodeDeviceRegistry seals a DeviceRegistry under the root folder key
// (the registry is a child of the vault root, not its own keyed subtree).
func EncodeDeviceRegistry(reg *DeviceRegistry, rootFolderKey []byte) (*Envelope, error) {
	return encryptEnvelope(reg, rootFolderKey)
}

// DecodeDeviceRegistry opens and strictly validates a DeviceRegistry blob.
func DecodeDeviceRegistry(blob []byte, rootFolderKey []byte) (*DeviceRegistry, error) {
	fields, err := decryptEnvelopeToMap(blob, rootFolderKey)
	if err != nil {
		return nil, err
	}
	return validateDeviceRegistry(fields)
}

func validateDeviceRegistry(fields map[string]interface{}) (*DeviceRegistry, error) {
	version, err := optionalString(fields, "version", DeviceRegistryVersion, 16)
	if err != nil {
		return nil, err
	}
	sequenceNumber, err := requireNonNegativeInt64(fields, "sequenceNumber")
	if err != nil {
		return nil, err
	}

	rawDevices, err := optionalArray(fields, "devices")
	if err != nil {
		return nil, err
	}
	devices := make([]DeviceEntry, 0, len(rawDevices))
	for _, rawDevice := range rawDevices {
		deviceMap, err := requireObject(rawDevice)
		if err != nil {
			return nil, err
		}
		d, err := validateDeviceEntry(deviceMap)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}

	return &DeviceRegistry{Version: version, SequenceNumber: sequenceNumber, Devices: devices}, nil
}

func validateDeviceEntry(m map[string]interface{}) (*DeviceEntry, error) {
	deviceID, err := requireHexOfLength(m, "deviceId", HexIDLength)
	if err != nil {
		return nil, err
	}
	publicKey, err := requireHexOfLength(m, "publicKey", HexIDLength)
	if err != nil {
		return nil, err
	}
	name, err := requireString(m, "name", MaxDeviceNameLength)
	if err != nil {
		return nil, err
	}
	platformStr, err := requireString(m, "platform", 16)
	if err != nil {
		return nil, err
	}
	platform, err := validateDevicePlatform(platformStr)
	if err != nil {
		return nil, err
	}
	appVersion, err := requireString(m, "appVersion", MaxAppVersionLength)
	if err != nil {
		return nil, err
	}
	deviceModel, err := requireString(m, "deviceModel", MaxDeviceModelLength)
	if err != nil {
		return nil, err
	}
	ipHash, err := requireHexOfLength(m, "ipHash", HexIDLength)
	if err != nil {
		return nil, err
	}
	statusStr, err := requireString(m, "status", 16)
	if err != nil {
		return nil, err
	}
	status, err := validateDeviceStatus(statusStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := requireNonNegativeInt64(m, "createdAt")
	if err != nil {
		return nil, err
	}
	lastSeenAt, err := requireNonNegativeInt64(m, "lastSeenAt")
	if err != nil {
		return nil, err
	}
	revokedAt, err := optionalNullableInt64(m, "revokedAt")
	if err != nil {
		return nil, err
	}
	revokedBy, err := optionalNullableString(m, "revokedBy", HexIDLength)
	if err != nil {
		return nil, err
	}

	return &DeviceEntry{
		DeviceID:    deviceID,
		PublicKey:   publicKey,
		Name:        name,
		Platform:    platform,
		AppVersion:  appVersion,
		DeviceModel: deviceModel,
		IPHash:      ipHash,
		Status:      status,
		CreatedAt:   createdAt,
		LastSeenAt:  lastSeenAt,
		RevokedAt:   revokedAt,
		RevokedBy:   revokedBy,
	}, nil
}

func validateDevicePlatform(s string) (DevicePlatform, error) {
	switch DevicePlatform(s) {
	case DevicePlatformWeb, DevicePlatformMacOS, DevicePlatformLinux, DevicePlatformWindows:
		return DevicePlatform(s), nil
	default:
		return "", fieldFail()
	}
}

func validateDeviceStatus(s string) (DeviceStatus, error) {
	switch DeviceStatus(s) {
	case DeviceStatusPending, DeviceStatusAuthorized, DeviceStatusRevoked:
		return DeviceStatus(s), nil
	default:
		return "", fieldFail()
	}
}
