package describe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cvickery/rules-archive/internal/catalog"
	"github.com/cvickery/rules-archive/internal/database"
	"github.com/cvickery/rules-archive/internal/models"
	"go.uber.org/zap"
)

// AllRules selects every rule in the snapshot.
const AllRules = "all"

var ErrNothingSelected = errors.New("no rule keys, institutions, or course filter given")

type Direction int

const (
	Both Direction = iota
	Sending
	Receiving
)

func (d Direction) String() string {
	switch d {
	case Sending:
		return "sending"
	case Receiving:
		return "receiving"
	default:
		return "both"
	}
}

// ParseDirection accepts any prefix of "sending", "receiving", or "both". Empty means both.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || strings.HasPrefix("both", s):
		return Both, nil
	case strings.HasPrefix("sending", s):
		return Sending, nil
	case strings.HasPrefix("receiving", s):
		return Receiving, nil
	}
	return Both, fmt.Errorf("%w: %q", models.ErrInvalidDirection, s)
}

type Selection struct {
	RuleKeys      []string
	Sending       string
	Receiving     string
	Direction     Direction
	Subject       string
	CatalogNumber string
}

func (s Selection) hasCourseFilter() bool {
	return s.Subject != "" || s.CatalogNumber != ""
}

// keeps reports whether the rule passes the institution filters under the direction policy.
func (s Selection) keeps(key models.RuleKey) bool {
	sending := s.Sending == "" || models.SameCollege(key.SrcInstitution, s.Sending)
	receiving := s.Receiving == "" || models.SameCollege(key.DstInstitution, s.Receiving)
	switch s.Direction {
	case Sending:
		return sending
	case Receiving:
		return receiving
	default:
		return sending && receiving
	}
}

// Selector turns a Selection into the sorted, unique rule keys to describe.
type Selector struct {
	store  database.RuleStore
	cache  *catalog.Cache
	logger *zap.SugaredLogger
}

func NewSelector(store database.RuleStore, cache *catalog.Cache, logger *zap.SugaredLogger) *Selector {
	return &Selector{store: store, cache: cache, logger: logger}
}

func (s *Selector) Select(ctx context.Context, schema string, sel Selection) ([]string, error) {
	for _, key := range sel.RuleKeys {
		if strings.EqualFold(key, AllRules) {
			return s.store.RuleKeys(ctx, schema)
		}
	}
	if len(sel.RuleKeys) > 0 {
		return unique(sel.RuleKeys), nil
	}

	var candidates []string
	var err error
	switch {
	case sel.hasCourseFilter():
		candidates, err = s.courseRules(ctx, schema, sel)
	case sel.Sending != "" || sel.Receiving != "":
		candidates, err = s.store.RuleKeys(ctx, schema)
	default:
		return nil, ErrNothingSelected
	}
	if err != nil {
		return nil, err
	}

	var selected []string
	for _, candidate := range candidates {
		key, err := models.ParseRuleKey(candidate)
		if err != nil {
			s.logger.Warnf("Skipping rule %s: %v", candidate, err)
			continue
		}
		if sel.keeps(key) {
			selected = append(selected, candidate)
		}
	}
	s.logger.Infof("Selected %d of %d rules (%s)", len(selected), len(candidates), sel.Direction)
	return unique(selected), nil
}

// courseRules finds catalog courses matching the filter and every rule that references them.
func (s *Selector) courseRules(ctx context.Context, schema string, sel Selection) ([]string, error) {
	filter := catalog.Filter{
		Institutions:  institutionPatterns(sel),
		Subject:       anchor(sel.Subject, true),
		CatalogNumber: anchor(sel.CatalogNumber, false),
	}
	courses, err := s.cache.Match(filter)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: subject %q catalog number %q", models.ErrNoMatchingCourses, sel.Subject, sel.CatalogNumber)
	}
	s.logger.Infof("There are %d matching courses", len(courses))

	ids := make([]models.CourseID, 0, len(courses))
	for _, c := range courses {
		s.logger.Debugf("%s %s %s", c.Institution, c.Label(), c.Title)
		ids = append(ids, c.Key())
	}
	return s.store.RuleKeysForCourses(ctx, schema, ids)
}

func institutionPatterns(sel Selection) []string {
	var patterns []string
	for _, inst := range []string{sel.Sending, sel.Receiving} {
		if inst == "" {
			continue
		}
		if len(inst) > 3 {
			inst = inst[:3]
		}
		patterns = append(patterns, "^"+inst)
	}
	return patterns
}

// anchor pins a pattern to the start (and optionally the end) of the field.
func anchor(pattern string, whole bool) string {
	pattern = strings.Trim(pattern, "^$")
	if pattern == "" {
		return ""
	}
	if whole {
		return "^(?:" + pattern + ")$"
	}
	return "^(?:" + pattern + ")"
}

func unique(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
