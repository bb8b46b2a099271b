package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/cvickery/rules-archive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCatalogStore is a mock implementation of the CatalogStore interface.
type MockCatalogStore struct {
	mock.Mock
	entries []models.CatalogEntry
}

func (m *MockCatalogStore) ScanCatalog(ctx context.Context, fn func(models.CatalogEntry) error) error {
	args := m.Called(ctx)
	for _, e := range m.entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return args.Error(0)
}

var testEntries = []models.CatalogEntry{
	{CourseID: 100, OfferNbr: 1, Institution: "QCC01", Discipline: "CSCI", CatalogNumber: "100", Title: "Intro", IsActive: true},
	{CourseID: 101, OfferNbr: 1, Institution: "QNS01", Discipline: "CSCI", CatalogNumber: "101", Title: "Programming", IsActive: true},
	{CourseID: 102, OfferNbr: 1, Institution: "QNS01", Discipline: "CSCI", CatalogNumber: "102", Title: "Data", IsActive: false},
	{CourseID: 102, OfferNbr: 2, Institution: "QNS01", Discipline: "SEYS", CatalogNumber: "490", Title: "Seminar", IsActive: true, IsMesg: true},
	{CourseID: 300, OfferNbr: 1, Institution: "BKL01", Discipline: "SEYS", CatalogNumber: "491W", Title: "Writing", IsActive: true, IsBkcr: true},
}

func TestBuild(t *testing.T) {
	t.Run("Success case - caches every entry", func(t *testing.T) {
		store := &MockCatalogStore{entries: testEntries}
		store.On("ScanCatalog", mock.Anything).Return(nil)

		cache, err := Build(context.Background(), store, zap.NewNop().Sugar())
		require.NoError(t, err)
		assert.Equal(t, 5, cache.Len())
		store.AssertNumberOfCalls(t, "ScanCatalog", 1)
	})

	t.Run("Error case - scan failure", func(t *testing.T) {
		store := &MockCatalogStore{}
		store.On("ScanCatalog", mock.Anything).Return(errors.New("relation \"cuny_courses\" does not exist"))

		_, err := Build(context.Background(), store, zap.NewNop().Sugar())
		assert.ErrorContains(t, err, "failed to build course cache")
	})
}

func TestCache_Lookup(t *testing.T) {
	cache := New(testEntries, zap.NewNop().Sugar())

	e, ok := cache.Lookup(models.CourseID{CourseID: 102, OfferNbr: 2})
	require.True(t, ok)
	assert.Equal(t, "SEYS 490", e.Label())

	// same course_id, different offer_nbr
	e, ok = cache.Lookup(models.CourseID{CourseID: 102, OfferNbr: 1})
	require.True(t, ok)
	assert.Equal(t, "CSCI 102", e.Label())

	_, ok = cache.Lookup(models.CourseID{CourseID: 102, OfferNbr: 3})
	assert.False(t, ok)
}

func TestCache_Resolve(t *testing.T) {
	cache := New(testEntries, zap.NewNop().Sugar())

	e, ok := cache.Resolve(models.CourseID{CourseID: 999, OfferNbr: 1})
	assert.False(t, ok)
	assert.Equal(t, "Unknown", e.Label())
	assert.False(t, e.IsActive)

	cache.Resolve(models.CourseID{CourseID: 999, OfferNbr: 1})
	cache.Resolve(models.CourseID{CourseID: 998, OfferNbr: 1})
	_, ok = cache.Resolve(models.CourseID{CourseID: 100, OfferNbr: 1})
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Misses())
}

func TestCache_Match(t *testing.T) {
	cache := New(testEntries, zap.NewNop().Sugar())

	t.Run("Subject and catalog number at either institution", func(t *testing.T) {
		got, err := cache.Match(Filter{Institutions: []string{"qcc", "qns"}, Subject: "^seys$", CatalogNumber: "^49"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.CourseID{CourseID: 102, OfferNbr: 2}, got[0].Key())
	})

	t.Run("Empty filter fields match everything", func(t *testing.T) {
		got, err := cache.Match(Filter{Subject: "csci"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "QCC01", got[0].Institution)
		assert.Equal(t, "CSCI 101", got[1].Label())
	})

	t.Run("Invalid pattern", func(t *testing.T) {
		_, err := cache.Match(Filter{Subject: "("})
		assert.ErrorContains(t, err, "invalid subject pattern")
	})
}
