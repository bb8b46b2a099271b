package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/cvickery/rules-archive/internal/archive"
	"github.com/cvickery/rules-archive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var archiveDir = filepath.Join("testdata", "archives")

// MockSnapshotStore is a mock implementation of the SnapshotStore interface.
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) ReplaceSnapshot(ctx context.Context, src *models.SnapshotSource) (*models.LoadSummary, error) {
	args := m.Called(ctx, src)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoadSummary), args.Error(1)
}

func (m *MockSnapshotStore) ListSnapshots(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSnapshotStore) DropSnapshot(ctx context.Context, schema string) error {
	args := m.Called(ctx, schema)
	return args.Error(0)
}

type memorySnapshot struct {
	rules        map[string]models.TransferRule
	sources      []models.SourceCourse
	destinations []models.DestinationCourse
}

// memoryStore swaps a snapshot in only once every row has loaded, like the
// transactional Postgres store.
type memoryStore struct {
	snapshots map[string]*memorySnapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snapshots: map[string]*memorySnapshot{}}
}

func drain[T any](r models.RowReader[T], fn func(T) error) (int64, error) {
	var n int64
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := fn(row); err != nil {
			return n, err
		}
		n++
	}
}

func (s *memoryStore) ReplaceSnapshot(ctx context.Context, src *models.SnapshotSource) (*models.LoadSummary, error) {
	snap := &memorySnapshot{rules: map[string]models.TransferRule{}}
	summary := &models.LoadSummary{Schema: src.Set.SchemaName(), LoadID: "test"}

	rules, err := drain(src.Rules, func(r models.TransferRule) error {
		snap.rules[r.RuleKey] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	sources, err := drain(src.SourceCourses, func(c models.SourceCourse) error {
		if _, ok := snap.rules[c.RuleKey]; !ok {
			return fmt.Errorf("%w: %s", models.ErrForeignKeyViolation, c.RuleKey)
		}
		snap.sources = append(snap.sources, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	destinations, err := drain(src.DestinationCourses, func(c models.DestinationCourse) error {
		if _, ok := snap.rules[c.RuleKey]; !ok {
			return fmt.Errorf("%w: %s", models.ErrForeignKeyViolation, c.RuleKey)
		}
		snap.destinations = append(snap.destinations, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	counts := []int64{rules, sources, destinations}
	for i, p := range src.Set.Paths() {
		name := filepath.Base(p)
		summary.Files = append(summary.Files, models.FileLoad{Name: name, Checksum: src.Checksums[name], Rows: counts[i]})
	}
	s.snapshots[summary.Schema] = snap
	return summary, nil
}

func (s *memoryStore) ListSnapshots(ctx context.Context) ([]string, error) {
	var names []string
	for name := range s.snapshots {
		names = append(names, name)
	}
	return names, nil
}

func (s *memoryStore) DropSnapshot(ctx context.Context, schema string) error {
	delete(s.snapshots, schema)
	return nil
}

func newTestLoader(store *memoryStore) *Loader {
	logger := zap.NewNop().Sugar()
	return NewLoader(store, archive.NewLocator(archiveDir, logger), logger)
}

func TestLoader_Load(t *testing.T) {
	t.Run("Success case - loads all three collections", func(t *testing.T) {
		store := newMemoryStore()
		loader := newTestLoader(store)

		summary, err := loader.Load(context.Background(), models.ArchiveSet{Dir: archiveDir, Date: "2024-01-15"})
		require.NoError(t, err)

		assert.Equal(t, "a20240115", summary.Schema)
		require.Len(t, summary.Files, 3)
		assert.Equal(t, models.FileLoad{Name: "2024-01-15_effective_dates.csv.bz2", Checksum: summary.Files[0].Checksum, Rows: 3}, summary.Files[0])
		assert.Equal(t, int64(3), summary.Files[1].Rows)
		assert.Equal(t, int64(3), summary.Files[2].Rows)
		for _, f := range summary.Files {
			assert.Len(t, f.Checksum, 16)
		}

		snap := store.snapshots["a20240115"]
		require.NotNil(t, snap)
		assert.Len(t, snap.rules, 3)
		assert.Equal(t, 0.0, snap.sources[1].MinGPA)
		assert.Equal(t, 4.0, snap.sources[1].MaxGPA)
		assert.Equal(t, "QCC01", snap.sources[0].SrcInstitution)
		assert.Equal(t, "QNS01", snap.sources[0].DstInstitution)

		// every course row references a loaded rule
		for _, c := range snap.sources {
			assert.Contains(t, snap.rules, c.RuleKey)
		}
		for _, c := range snap.destinations {
			assert.Contains(t, snap.rules, c.RuleKey)
		}
	})

	t.Run("Reloading the same date yields the same snapshot", func(t *testing.T) {
		store := newMemoryStore()
		loader := newTestLoader(store)
		set := models.ArchiveSet{Dir: archiveDir, Date: "2024-01-15"}

		_, err := loader.Load(context.Background(), set)
		require.NoError(t, err)
		first := *store.snapshots["a20240115"]

		_, err = loader.Load(context.Background(), set)
		require.NoError(t, err)
		second := *store.snapshots["a20240115"]

		assert.Equal(t, first, second)
		assert.Len(t, second.sources, 3)
	})

	t.Run("Missing files abort before the store is touched", func(t *testing.T) {
		store := new(MockSnapshotStore)
		logger := zap.NewNop().Sugar()
		loader := NewLoader(store, archive.NewLocator(archiveDir, logger), logger)

		_, err := loader.Load(context.Background(), models.ArchiveSet{Dir: archiveDir, Date: "2024-02-01"})

		assert.ErrorIs(t, err, models.ErrMissingArchiveFile)
		assert.Contains(t, err.Error(), "2024-02-01_source_courses.csv.bz2")
		assert.Contains(t, err.Error(), "2024-02-01_destination_courses.csv.bz2")
		store.AssertNotCalled(t, "ReplaceSnapshot", mock.Anything, mock.Anything)
	})

	t.Run("Foreign key violation leaves no snapshot", func(t *testing.T) {
		store := newMemoryStore()
		loader := newTestLoader(store)

		_, err := loader.Load(context.Background(), models.ArchiveSet{Dir: archiveDir, Date: "2024-03-01"})

		assert.ErrorIs(t, err, models.ErrForeignKeyViolation)
		assert.Contains(t, err.Error(), "QCC01:QNS01:CSCI:9")
		assert.NotContains(t, store.snapshots, "a20240301")
	})

	t.Run("Store errors are wrapped with the archive date", func(t *testing.T) {
		store := new(MockSnapshotStore)
		logger := zap.NewNop().Sugar()
		loader := NewLoader(store, archive.NewLocator(archiveDir, logger), logger)
		store.On("ReplaceSnapshot", mock.Anything, mock.AnythingOfType("*models.SnapshotSource")).
			Return(nil, errors.New("connection refused"))

		_, err := loader.Load(context.Background(), models.ArchiveSet{Dir: archiveDir, Date: "2024-01-15"})

		assert.EqualError(t, err, "failed to load archive 2024-01-15: connection refused")
		store.AssertExpectations(t)
	})
}

func TestLoader_LoadDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Uses the closest prior archive", func(t *testing.T) {
		store := newMemoryStore()
		loader := newTestLoader(store)

		summary, err := loader.LoadDate(context.Background(), "2024-01-31", now)
		require.NoError(t, err)
		assert.Equal(t, "a20240115", summary.Schema)
	})

	t.Run("Closest archive with missing files fails", func(t *testing.T) {
		store := newMemoryStore()
		loader := newTestLoader(store)

		_, err := loader.LoadDate(context.Background(), "2024-02-20", now)
		assert.ErrorIs(t, err, models.ErrMissingArchiveFile)
		assert.Empty(t, store.snapshots)
	})

	t.Run("Invalid date", func(t *testing.T) {
		store := newMemoryStore()
		loader := newTestLoader(store)

		_, err := loader.LoadDate(context.Background(), "the ides of march", now)
		assert.ErrorIs(t, err, models.ErrInvalidDate)
	})
}
