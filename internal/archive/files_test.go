package archive

import (
	"errors"
	"testing"

	"github.com/cvickery/rules-archive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	t.Run("Complete set", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir,
			"2024-01-15_effective_dates.csv.bz2",
			"2024-01-15_source_courses.csv.bz2",
			"2024-01-15_destination_courses.csv.bz2",
		)
		assert.NoError(t, Verify(models.ArchiveSet{Dir: dir, Date: "2024-01-15"}))
	})

	t.Run("Names each missing file", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "2024-01-15_source_courses.csv.bz2")

		err := Verify(models.ArchiveSet{Dir: dir, Date: "2024-01-15"})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrMissingArchiveFile)
		assert.Contains(t, err.Error(), "2024-01-15_effective_dates.csv.bz2 is not a file")
		assert.Contains(t, err.Error(), "2024-01-15_destination_courses.csv.bz2 is not a file")
		assert.NotContains(t, err.Error(), "source_courses")

		var missing *models.MissingFileError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "2024-01-15_effective_dates.csv.bz2", missing.Name)
	})
}
