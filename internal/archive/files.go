package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cvickery/rules-archive/internal/models"
)

// Verify checks that every file of the set exists. All missing files are reported together.
func Verify(set models.ArchiveSet) error {
	var errs []error
	for _, path := range set.Paths() {
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("error checking archive file %s: %w", path, err)
			}
			errs = append(errs, &models.MissingFileError{Name: filepath.Base(path)})
			continue
		}
		if !info.Mode().IsRegular() {
			errs = append(errs, &models.MissingFileError{Name: filepath.Base(path)})
		}
	}
	return errors.Join(errs...)
}
