package dataprocessing

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Checksum identifies uploaded file content so repeated uploads can be detected
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
