package checksum

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// FileChecksum returns the hex xxhash64 digest of a file's raw bytes.
func FileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	return ReaderChecksum(file)
}

func ReaderChecksum(r io.Reader) (string, error) {
	hasher := xxhash.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to copy content to hasher: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// FileChecksums digests every file, keyed by base name.
func FileChecksums(paths ...string) (map[string]string, error) {
	sums := make(map[string]string, len(paths))
	for _, p := range paths {
		sum, err := FileChecksum(p)
		if err != nil {
			return nil, err
		}
		sums[filepath.Base(p)] = sum
	}
	return sums, nil
}
