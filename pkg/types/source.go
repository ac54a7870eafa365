package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// FingerprintPrefix identifies the hash algorithm used for fingerprints
const FingerprintPrefix = "sha256:"

// Fingerprint is a deterministic content-derived value used to detect changes
// without comparing full file contents
type Fingerprint string

// NewFingerprint builds a fingerprint from a raw SHA-256 digest
func NewFingerprint(sum [32]byte) Fingerprint {
	return Fingerprint(FingerprintPrefix + hex.EncodeToString(sum[:]))
}

// FingerprintOf hashes content directly
func FingerprintOf(content []byte) Fingerprint {
	return NewFingerprint(sha256.Sum256(content))
}

// Valid reports whether the fingerprint has the expected shape
func (f Fingerprint) Valid() bool {
	s := string(f)
	if !strings.HasPrefix(s, FingerprintPrefix) {
		return false
	}
	digest := strings.TrimPrefix(s, FingerprintPrefix)
	if len(digest) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil
}

// String returns the fingerprint as stored in the record file
func (f Fingerprint) String() string {
	return string(f)
}

// SourceFile is a PDF present in the source directory on this run
type SourceFile struct {
	Path        string // Slash-separated, relative to the source directory
	Fingerprint Fingerprint
	Size        int64 // Bytes
	ModTime     time.Time
}
