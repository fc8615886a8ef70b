package utils

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher provides deterministic hashing for assignment and cache keys
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

func (h *Hasher) sum(data []byte) [32]byte {
	switch h.algorithm {
	case SHA256:
		return sha256.Sum256(data)
	default:
		return sha256.Sum256(data)
	}
}

// Hash computes a hex digest of the input data
func (h *Hasher) Hash(data []byte) string {
	sum := h.sum(data)
	return hex.EncodeToString(sum[:])
}

// HashFields hashes fields joined with a delimiter. Field order is
// significant: ("a", "b") and ("b", "a") hash differently.
func (h *Hasher) HashFields(fields ...string) string {
	return h.Hash([]byte(strings.Join(fields, "|")))
}

// Bucket maps fields onto [0, buckets) using the leading 8 bytes of the
// digest. The same fields always land in the same bucket.
func (h *Hasher) Bucket(buckets uint32, fields ...string) uint32 {
	if buckets == 0 {
		return 0
	}
	sum := h.sum([]byte(strings.Join(fields, "|")))
	return uint32(binary.BigEndian.Uint64(sum[:8]) % uint64(buckets))
}
