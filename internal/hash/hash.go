// Package hash provides the hashing primitives used for identity derivation.
//
// Canonical filter keys use SHA-256: room identity must be collision-free
// across arbitrary client-supplied filter expressions. Channel ids only
// disambiguate visibility tuples within a single room, so the cheaper
// hardware-accelerated CRC32-Castagnoli is enough there.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/crc32"
	"strconv"
)

// crc32cTable is pre-computed for the CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
// Uses hardware acceleration when available (SSE4.2, ARM CRC).
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// CRC32CHex returns the CRC32C checksum of the concatenated parts as a
// fixed-width lowercase hex string.
func CRC32CHex(parts ...string) string {
	h := crc32.New(crc32cTable)
	for _, p := range parts {
		h.Write([]byte(p))
	}
	s := strconv.FormatUint(uint64(h.Sum32()), 16)
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}

// Sum256Hex returns the SHA-256 digest of the parts, each separated by a NUL
// byte so that part boundaries cannot be forged by concatenation.
func Sum256Hex(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
