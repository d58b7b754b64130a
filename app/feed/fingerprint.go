package feed

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint derives the dedup key for an item from its identity fields.
// Each field is length-prefixed before hashing so that shifting text across
// field boundaries ("ab","c" vs "a","bc") cannot produce the same digest.
func Fingerprint(title, url, description string) string {
	h := sha256.New()

	var prefix [4]byte
	for _, field := range []string{title, url, description} {
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(field)))
		h.Write(prefix[:])
		h.Write([]byte(field))
	}

	return hex.EncodeToString(h.Sum(nil))
}
