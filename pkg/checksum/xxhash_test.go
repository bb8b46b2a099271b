package checksum

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024-01-15_effective_dates.csv.bz2")
	require.NoError(t, os.WriteFile(path, []byte("QCC01:QNS01:CSCI:1,2024-01-15\n"), 0o644))

	sum, err := FileChecksum(path)
	require.NoError(t, err)
	assert.Len(t, sum, 16)

	again, err := ReaderChecksum(strings.NewReader("QCC01:QNS01:CSCI:1,2024-01-15\n"))
	require.NoError(t, err)
	assert.Equal(t, sum, again)

	assert.Equal(t, fmt.Sprintf("%016x", xxhash.Sum64String("QCC01:QNS01:CSCI:1,2024-01-15\n")), sum)
}

func TestFileChecksum_MissingFile(t *testing.T) {
	_, err := FileChecksum(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorContains(t, err, "failed to open file")
}

func TestFileChecksums(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv.bz2")
	b := filepath.Join(dir, "b.csv.bz2")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	sums, err := FileChecksums(a, b)
	require.NoError(t, err)
	assert.Len(t, sums, 2)
	assert.NotEqual(t, sums["a.csv.bz2"], sums["b.csv.bz2"])
}
