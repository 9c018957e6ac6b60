package record

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash returns the hex-encoded BLAKE3-256 hash of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ComputeSourceHash records the hash of the source bytes the set was parsed
// from. Callers use it to correlate outputs with uploads.
func (s *Set) ComputeSourceHash(source []byte) {
	s.SourceHash = Hash(source)
}
