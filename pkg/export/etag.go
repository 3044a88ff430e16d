package export

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ContentHash returns a hex BLAKE2b-256 digest used as the export ETag.
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
