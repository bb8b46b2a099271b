package database

import (
	"context"

	"github.com/cvickery/rules-archive/internal/models"
)

// SnapshotStore materializes archives as date-named schemas.
type SnapshotStore interface {
	ReplaceSnapshot(ctx context.Context, src *models.SnapshotSource) (*models.LoadSummary, error)
	ListSnapshots(ctx context.Context) ([]string, error)
	DropSnapshot(ctx context.Context, schema string) error
}

// CatalogStore reads the canonical course catalog.
type CatalogStore interface {
	ScanCatalog(ctx context.Context, fn func(models.CatalogEntry) error) error
}

// RuleStore reads the rules of one snapshot and writes their descriptions.
type RuleStore interface {
	RuleKeys(ctx context.Context, schema string) ([]string, error)
	RuleKeysForCourses(ctx context.Context, schema string, courses []models.CourseID) ([]string, error)
	SourceCourses(ctx context.Context, schema string, ruleKeys []string) (map[string][]models.SourceCourse, error)
	DestinationCourses(ctx context.Context, schema string, ruleKeys []string) (map[string][]models.DestinationCourse, error)
	UpdateDescriptions(ctx context.Context, schema string, descriptions []models.RuleDescription) (int64, error)
}

type StatisticsStore interface {
	RowsPerRule(ctx context.Context, schema, table string) (*models.RowsPerRule, error)
}

type DBManager interface {
	SnapshotStore
	CatalogStore
	RuleStore
	StatisticsStore
}
