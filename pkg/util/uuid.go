package util

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// SamplesMd5 digests samples as big-endian 16 bit words, so equal frames
// hash equal regardless of how they were stored.
func SamplesMd5(samples []uint16) string {
	buf := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		buf = binary.BigEndian.AppendUint16(buf, s)
	}
	return Md5ThenHex(buf)
}

// HashUUID derives a stable uuid from the JSON form of value, e.g. to
// fingerprint stream metadata. It returns "" when value cannot be marshaled.
func HashUUID(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	hasher := md5.New()
	hasher.Write(raw)
	hash := hasher.Sum(nil)
	id, err := uuid.FromBytes(hash[:16])
	if err != nil {
		return ""
	}
	return id.String()
}

// NewRunID returns a random id tagging the log records of one invocation.
func NewRunID() string {
	return uuid.NewString()
}
