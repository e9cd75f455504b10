package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a SHA-256 content hash.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// Key hashes a module's name and bytes together with a salt describing the
// transform configuration. Each part is length-prefixed.
func Key(name string, data []byte, salt ...string) Digest {
	h := sha256.New()
	write := func(b []byte) {
		n := uint64(len(b))
		var prefix [8]byte
		for i := range prefix {
			prefix[i] = byte(n >> (56 - 8*i))
		}
		_, _ = h.Write(prefix[:])
		_, _ = h.Write(b)
	}
	write([]byte(name))
	write(data)
	for _, s := range salt {
		write([]byte(s))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
