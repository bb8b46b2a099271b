package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/cvickery/rules-archive/internal/archive"
	"github.com/cvickery/rules-archive/internal/database"
	"github.com/cvickery/rules-archive/internal/models"
	"github.com/cvickery/rules-archive/internal/parser"
	"github.com/cvickery/rules-archive/pkg/checksum"
	"go.uber.org/zap"
)

// Loader turns an archive set on disk into a snapshot schema.
type Loader struct {
	store   database.SnapshotStore
	locator *archive.Locator
	logger  *zap.SugaredLogger
}

func NewLoader(store database.SnapshotStore, locator *archive.Locator, logger *zap.SugaredLogger) *Loader {
	return &Loader{store: store, locator: locator, logger: logger}
}

// LoadDate loads the closest archive on or before the requested date.
func (l *Loader) LoadDate(ctx context.Context, requested string, now time.Time) (*models.LoadSummary, error) {
	set, err := l.locator.Find(requested, now)
	if err != nil {
		return nil, err
	}
	l.logger.Infof("archive_date=%s", set.Date)
	return l.Load(ctx, set)
}

// Load replaces the snapshot for set. Nothing in the database changes unless all three
// files exist and open.
func (l *Loader) Load(ctx context.Context, set models.ArchiveSet) (*models.LoadSummary, error) {
	if err := archive.Verify(set); err != nil {
		return nil, err
	}

	src, err := Open(set)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	l.logger.Infof("Loading %s into schema %s", set.Date, set.SchemaName())
	summary, err := l.store.ReplaceSnapshot(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive %s: %w", set.Date, err)
	}

	for _, f := range summary.Files {
		l.logger.Infof("%s: %d rows (xxhash %s)", f.Name, f.Rows, f.Checksum)
	}
	return summary, nil
}

// Open checksums the archive files and opens a streaming reader on each.
func Open(set models.ArchiveSet) (*models.SnapshotSource, error) {
	sums, err := checksum.FileChecksums(set.Paths()...)
	if err != nil {
		return nil, err
	}

	src := &models.SnapshotSource{Set: set, Checksums: sums}

	rules, err := parser.OpenRules(set.EffectiveDatesPath())
	if err != nil {
		return nil, err
	}
	src.Rules = rules

	sources, err := parser.OpenSourceCourses(set.SourceCoursesPath())
	if err != nil {
		src.Close()
		return nil, err
	}
	src.SourceCourses = sources

	destinations, err := parser.OpenDestinationCourses(set.DestinationCoursesPath())
	if err != nil {
		src.Close()
		return nil, err
	}
	src.DestinationCourses = destinations

	return src, nil
}
