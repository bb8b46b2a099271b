package archive

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cvickery/rules-archive/internal/models"
	"go.uber.org/zap"
)

// Locator finds the archive set to load for a requested date.
type Locator struct {
	dir    string
	logger *zap.SugaredLogger
}

func NewLocator(dir string, logger *zap.SugaredLogger) *Locator {
	return &Locator{dir: dir, logger: logger}
}

// Find resolves the requested date to the closest archive on or before it.
func (l *Locator) Find(requested string, now time.Time) (models.ArchiveSet, error) {
	target, err := NormalizeDate(requested, now)
	if err != nil {
		return models.ArchiveSet{}, err
	}

	dates, err := ScanDates(l.dir)
	if err != nil {
		return models.ArchiveSet{}, err
	}
	l.logger.Infof("%d archives between %s and %s", len(dates), dates[0], dates[len(dates)-1])

	date, err := Locate(target, dates)
	if err != nil {
		return models.ArchiveSet{}, err
	}
	if date != target {
		l.logger.Infof("No archive for %s, using %s", target, date)
	}

	return models.ArchiveSet{Dir: l.dir, Date: date}, nil
}

// ScanDates lists the dates of the effective-dates files in dir, sorted ascending.
func ScanDates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: rules archive dir %s not found", models.ErrNoArchivesFound, dir)
		}
		return nil, fmt.Errorf("error reading archive dir %s: %w", dir, err)
	}

	seen := make(map[string]bool)
	var dates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.Contains(name, "effective") || len(name) < len(models.DateLayout) {
			continue
		}
		date := name[:len(models.DateLayout)]
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			continue
		}
		if !seen[date] {
			seen[date] = true
			dates = append(dates, date)
		}
	}

	if len(dates) == 0 {
		return nil, fmt.Errorf("%w in %s", models.ErrNoArchivesFound, dir)
	}
	sort.Strings(dates)
	return dates, nil
}

// Locate returns the latest date in the sorted dates that is not after target.
// A target before every archive gets the earliest one.
func Locate(target string, dates []string) (string, error) {
	if len(dates) == 0 {
		return "", models.ErrNoArchivesFound
	}
	i := sort.SearchStrings(dates, target)
	if i == len(dates) || dates[i] != target {
		i--
	}
	if i < 0 {
		i = 0
	}
	return dates[i], nil
}

var (
	agoPattern      = regexp.MustCompile(`^(\d+)\s+(day|week|month|year)s?\s+ago$`)
	snapshotPattern = regexp.MustCompile(`^a(\d{8})$`)
)

var dateLayouts = []string{
	models.DateLayout,
	"20060102",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// NormalizeDate turns a user-supplied date into YYYY-MM-DD. An empty string means today.
func NormalizeDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	switch lower {
	case "", "today", "now":
		return now.Format(models.DateLayout), nil
	case "yesterday":
		return now.AddDate(0, 0, -1).Format(models.DateLayout), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(models.DateLayout), nil
	}

	if m := agoPattern.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", fmt.Errorf("%w: %q", models.ErrInvalidDate, s)
		}
		switch m[2] {
		case "day":
			return now.AddDate(0, 0, -n).Format(models.DateLayout), nil
		case "week":
			return now.AddDate(0, 0, -7*n).Format(models.DateLayout), nil
		case "month":
			return now.AddDate(0, -n, 0).Format(models.DateLayout), nil
		default:
			return now.AddDate(-n, 0, 0).Format(models.DateLayout), nil
		}
	}

	if m := snapshotPattern.FindStringSubmatch(lower); m != nil {
		s = m[1]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", models.ErrInvalidDate, s)
}
