package vaultmeta

import (
	"encoding/hex"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// fieldFail is the single error value every manual field check reports;
// unifying it here keeps the strict-validation contract (any malformed
// known field is a generic DecryptionFailed, never a descriptive one) in
// one place instead of scattered across every Decode* function.
func fieldFail() error {
	return vaulterrors.NewDecryptionFailedError()
}

func fieldRaw(m map[string]interface{}, key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

func requireString(m map[string]interface{}, key string, maxLen int) (string, error) {
	v, ok := fieldRaw(m, key)
	if !ok {
		return "", fieldFail()
	}
	s, ok := v.(string)
	if !ok {
		return "", fieldFail()
	}
	if maxLen > 0 && len(s) > maxLen {
		return "", fieldFail()
	}
	return s, nil
}

func optionalString(m map[string]interface{}, key, def string, maxLen int) (string, error) {
	if _, ok := fieldRaw(m, key); !ok {
		return def, nil
	}
	return requireString(m, key, maxLen)
}

func requireExactString(m map[string]interface{}, key string, oneOf ...string) (string, error) {
	s, err := requireString(m, key, 0)
	if err != nil {
		return "", err
	}
	for _, candidate := range oneOf {
		if s == candidate {
			return s, nil
		}
	}
	return "", fieldFail()
}

func requireHexOfLength(m map[string]interface{}, key string, length int) (string, error) {
	s, err := requireString(m, key, 0)
	if err != nil {
		return "", err
	}
	if length > 0 && len(s) != length {
		return "", fieldFail()
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fieldFail()
	}
	return s, nil
}

// requireNumber extracts a JSON number field. encoding/json decodes numbers
// into map[string]interface{} as float64; every on-network field that holds
// a count, size, or timestamp fits exactly in a float64 mantissa at the
// scales this system deals with.
func requireNumber(m map[string]interface{}, key string) (float64, error) {
	v, ok := fieldRaw(m, key)
	if !ok {
		return 0, fieldFail()
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fieldFail()
	}
	return f, nil
}

func requireInt64(m map[string]interface{}, key string) (int64, error) {
	f, err := requireNumber(m, key)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func requireNonNegativeInt64(m map[string]interface{}, key string) (int64, error) {
	n, err := requireInt64(m, key)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fieldFail()
	}
	return n, nil
}

func optionalInt64(m map[string]interface{}, key string, def int64) (int64, error) {
	if _, ok := fieldRaw(m, key); !ok {
		return def, nil
	}
	return requireInt64(m, key)
}

func optionalNullableInt64(m map[string]interface{}, key string) (*int64, error) {
	v, ok := fieldRaw(m, key)
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fieldFail()
	}
	n := int64(f)
	return &n, nil
}

func optionalNullableString(m map[string]interface{}, key string, maxLen int) (*string, error) {
	v, ok := fieldRaw(m, key)
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fieldFail()
	}
	if maxLen > 0 && len(s) > maxLen {
		return nil, fieldFail()
	}
	return &s, nil
}

func requireArray(m map[string]interface{}, key string) ([]interface{}, error) {
	v, ok := fieldRaw(m, key)
	if !ok {
		return nil, fieldFail()
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fieldFail()
	}
	return arr, nil
}

func optionalArray(m map[string]interface{}, key string) ([]interface{}, error) {
	if _, ok := fieldRaw(m, key); !ok {
		return nil, nil
	}
	return requireArray(m, key)
}

func requireObject(v interface{}) (map[string]interface{}, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fieldFail()
	}
	return obj, nil
}
