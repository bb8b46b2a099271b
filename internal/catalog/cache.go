package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/cvickery/rules-archive/internal/database"
	"github.com/cvickery/rules-archive/internal/models"
	"go.uber.org/zap"
)

// Cache is an in-memory copy of the course catalog. Entries never change once built.
type Cache struct {
	courses map[models.CourseID]models.CatalogEntry
	misses  map[models.CourseID]bool
	logger  *zap.SugaredLogger
}

// Build scans the whole catalog once.
func Build(ctx context.Context, store database.CatalogStore, logger *zap.SugaredLogger) (*Cache, error) {
	c := New(nil, logger)
	err := store.ScanCatalog(ctx, func(e models.CatalogEntry) error {
		c.courses[e.Key()] = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build course cache: %w", err)
	}
	logger.Infof("Cached %d catalog courses", len(c.courses))
	return c, nil
}

func New(entries []models.CatalogEntry, logger *zap.SugaredLogger) *Cache {
	c := &Cache{
		courses: make(map[models.CourseID]models.CatalogEntry, len(entries)),
		misses:  make(map[models.CourseID]bool),
		logger:  logger,
	}
	for _, e := range entries {
		c.courses[e.Key()] = e
	}
	return c
}

func (c *Cache) Len() int {
	return len(c.courses)
}

func (c *Cache) Lookup(id models.CourseID) (models.CatalogEntry, bool) {
	e, ok := c.courses[id]
	return e, ok
}

// Resolve returns the catalog entry for id, or an inactive "Unknown" entry when the
// course has left the catalog since the archive was made.
func (c *Cache) Resolve(id models.CourseID) (models.CatalogEntry, bool) {
	if e, ok := c.courses[id]; ok {
		return e, true
	}
	if !c.misses[id] {
		c.misses[id] = true
		c.logger.Debugf("%v: course %s", models.ErrUnknownCourseReference, id)
	}
	return models.UnknownCourse(id), false
}

// Misses is the number of distinct course references Resolve could not find.
func (c *Cache) Misses() int {
	return len(c.misses)
}

// Filter selects catalog courses by case-insensitive regular expressions. An empty
// expression matches everything; Institutions matches if any of them does.
type Filter struct {
	Institutions  []string
	Subject       string
	CatalogNumber string
}

// Match returns the matching catalog entries ordered by institution and label.
func (c *Cache) Match(f Filter) ([]models.CatalogEntry, error) {
	var institutions []*regexp.Regexp
	for _, inst := range f.Institutions {
		if inst == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + inst)
		if err != nil {
			return nil, fmt.Errorf("invalid institution pattern %q: %w", inst, err)
		}
		institutions = append(institutions, re)
	}
	subject, err := compileOptional(f.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject pattern %q: %w", f.Subject, err)
	}
	catalogNumber, err := compileOptional(f.CatalogNumber)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog number pattern %q: %w", f.CatalogNumber, err)
	}

	var matches []models.CatalogEntry
	for _, e := range c.courses {
		if len(institutions) > 0 && !anyMatch(institutions, e.Institution) {
			continue
		}
		if subject != nil && !subject.MatchString(e.Discipline) {
			continue
		}
		if catalogNumber != nil && !catalogNumber.MatchString(e.CatalogNumber) {
			continue
		}
		matches = append(matches, e)
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Institution != b.Institution {
			return a.Institution < b.Institution
		}
		if a.Label() != b.Label() {
			return a.Label() < b.Label()
		}
		return a.Key().String() < b.Key().String()
	})
	return matches, nil
}

func compileOptional(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile("(?i)" + expr)
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
