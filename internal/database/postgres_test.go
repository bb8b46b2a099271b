package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cvickery/rules-archive/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestValidateSchemaName(t *testing.T) {
	assert.NoError(t, ValidateSchemaName("a20240115"))
	for _, name := range []string{"public", "a2024011", "a19991231", "a20240115; drop table x", ""} {
		assert.ErrorIs(t, ValidateSchemaName(name), models.ErrSnapshotNotFound, name)
	}
}

func TestWrapCopyError(t *testing.T) {
	t.Run("Foreign key violation", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23503", Detail: `Key (rule_key)=(QCC01:QNS01:X:9) is not present in table "transfer_rules".`}
		err := wrapCopyError("a20240115.source_courses", fmt.Errorf("copy: %w", pgErr))

		assert.ErrorIs(t, err, models.ErrForeignKeyViolation)
		assert.Contains(t, err.Error(), "QCC01:QNS01:X:9")
	})

	t.Run("Other errors keep their cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := wrapCopyError("a20240115.transfer_rules", cause)

		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, models.ErrForeignKeyViolation)
	})
}

func TestSnapshotTables(t *testing.T) {
	queries := snapshotTables("a20240115")
	assert.Len(t, queries, 4)
	assert.Contains(t, queries[0], `"a20240115"."transfer_rules"`)
	for _, q := range queries[1:3] {
		assert.Contains(t, q, `REFERENCES "a20240115"."transfer_rules"`)
	}
	assert.True(t, strings.Contains(queries[1], "src_institution") && strings.Contains(queries[1], "dst_institution"))
}

func TestNewPostgresDBManager_CatalogTable(t *testing.T) {
	m := NewPostgresDBManager(nil, "public.cuny_courses", 0, zap.NewNop().Sugar())
	assert.Equal(t, `"public"."cuny_courses"`, m.catalogTable.Sanitize())
	assert.Equal(t, int64(10000), m.progressInterval)
}

func TestSummarize(t *testing.T) {
	t.Run("Odd number of rules", func(t *testing.T) {
		mean, median := Summarize(map[int]int{1: 3, 2: 1, 5: 1})
		assert.InDelta(t, 2.0, mean, 1e-9)
		assert.Equal(t, 1.0, median)
	})

	t.Run("Even number of rules interpolates", func(t *testing.T) {
		mean, median := Summarize(map[int]int{1: 2, 3: 2})
		assert.InDelta(t, 2.0, mean, 1e-9)
		assert.Equal(t, 2.0, median)
	})

	t.Run("Empty", func(t *testing.T) {
		mean, median := Summarize(nil)
		assert.Zero(t, mean)
		assert.Zero(t, median)
	})
}
