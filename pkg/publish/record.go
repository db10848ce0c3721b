package publish

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cipherbox-vault/core/pkg/crypto"
)

// Record is a mutable pointer's signed tuple: a target content hash, a
// monotone sequence number, and a validity string (an absolute expiry the
// caller may choose to ignore; the vault core itself never expires a
// pointer, so Validity is carried through unmodified for interoperability
// with the underlying mutable-name layer's own record format).
type Record struct {
	Value           string
	Sequence        int64
	Validity        string
	Signature       []byte
	SignerPublicKey []byte
}

// signingBytes builds the deterministic byte sequence signed over a
// record: value || 8-byte big-endian sequence || validity. Every
// implementation that verifies these records (this one and any
// interoperating one) must build the identical byte sequence.
func signingBytes(value string, sequence int64, validity string) []byte {
	out := make([]byte, 0, len(value)+8+len(validity))
	out = append(out, []byte(value)...)
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, uint64(sequence))
	out = append(out, seqBytes...)
	out = append(out, []byte(validity)...)
	return out
}

// SignRecord produces a Record for (value, sequence, validity) signed with
// signingSeed, the Ed25519 seed that owns this pointer.
func SignRecord(signingSeed []byte, value string, sequence int64, validity string) (*Record, error) {
	publicKey, err := crypto.Ed25519PublicKeyFromSeed(signingSeed)
	if err != nil {
		return nil, err
	}
	signature, err := crypto.SignEd25519(signingSeed, signingBytes(value, sequence, validity))
	if err != nil {
		return nil, err
	}
	return &Record{
		Value:           value,
		Sequence:        sequence,
		Validity:        validity,
		Signature:       signature,
		SignerPublicKey: publicKey,
	}, nil
}

// Verify reports whether r's signature over (Value, Sequence, Validity)
// verifies under r.SignerPublicKey.
func (r *Record) Verify() bool {
	return crypto.VerifyEd25519(r.SignerPublicKey, signingBytes(r.Value, r.Sequence, r.Validity), r.Signature)
}

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func hexDecode(s string) ([]byte, error) { return hex.DecodeString(s) }
