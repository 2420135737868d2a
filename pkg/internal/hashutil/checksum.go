package hashutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// chunkSize bounds memory while fingerprinting arbitrarily large files
const chunkSize = 64 * 1024

// FileFingerprint calculates the SHA256 fingerprint of a file using
// chunked reads. The returned string is opaque to callers; only
// equality matters.
func FileFingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(hash, file, buf); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
