// Package entropy resolves the seed a run starts from. Runs are reproducible
// from their seed; an unset seed is drawn from crypto/rand and logged.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
	"time"
)

// ResolveSeed returns seed unless it is zero, in which case a fresh seed is drawn.
func ResolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	s := CryptoSeed()
	slog.Debug("drew random seed", "seed", s)
	return s
}

// CryptoSeed returns a non-zero seed from crypto/rand, falling back to the
// clock if the system source fails.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano() | 1
	}
	s := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if s == 0 {
		s = 1
	}
	return s
}

// New returns the deterministic source a simulation draws from.
func New(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}
