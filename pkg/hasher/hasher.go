// Package hasher computes content fingerprints used for duplicate
// detection and copy verification. A fingerprint is the SHA-256 hash of
// the full file content; size comparison is used as a fast rejection
// before any hashing happens.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Fingerprint computes the full SHA-256 hash of a file, hex encoded.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SameContent reports whether two files hold identical bytes. Sizes are
// compared first; only same-size files are hashed.
func SameContent(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, err
	}

	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	hashA, err := Fingerprint(a)
	if err != nil {
		return false, err
	}
	hashB, err := Fingerprint(b)
	if err != nil {
		return false, err
	}

	return hashA == hashB, nil
}
