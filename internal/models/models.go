package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Archive file kinds, in the order they must be loaded.
const (
	EffectiveDatesFile     = "effective_dates"
	SourceCoursesFile      = "source_courses"
	DestinationCoursesFile = "destination_courses"
)

// ArchiveSet is the three co-dated files that make up one rules archive.
type ArchiveSet struct {
	Dir  string
	Date string
}

func (a ArchiveSet) path(kind string) string {
	return filepath.Join(a.Dir, fmt.Sprintf("%s_%s.csv.bz2", a.Date, kind))
}

func (a ArchiveSet) EffectiveDatesPath() string     { return a.path(EffectiveDatesFile) }
func (a ArchiveSet) SourceCoursesPath() string      { return a.path(SourceCoursesFile) }
func (a ArchiveSet) DestinationCoursesPath() string { return a.path(DestinationCoursesFile) }

// Paths returns the archive files in load order.
func (a ArchiveSet) Paths() []string {
	return []string{a.EffectiveDatesPath(), a.SourceCoursesPath(), a.DestinationCoursesPath()}
}

// SchemaName is the snapshot namespace for the archive: a20240115 for 2024-01-15.
func (a ArchiveSet) SchemaName() string {
	return SchemaName(a.Date)
}

func SchemaName(archiveDate string) string {
	return "a" + strings.ReplaceAll(archiveDate, "-", "")
}

// ArchiveDate decodes the effective_date column. Blank values stay zero.
type ArchiveDate struct {
	time.Time
}

func (d *ArchiveDate) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	// some exports carry a time part
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid effective date %q: %w", string(text), err)
	}
	d.Time = t
	return nil
}

// Value returns the date for a nullable date column.
func (d ArchiveDate) Value() any {
	if d.IsZero() {
		return nil
	}
	return d.Time
}

type TransferRule struct {
	RuleKey       string      `csv:"rule_key"`
	EffectiveDate ArchiveDate `csv:"effective_date"`
	Description   string      `csv:"-"`
}

type SourceCourse struct {
	RuleKey        string  `csv:"rule_key"`
	SrcInstitution string  `csv:"-"`
	DstInstitution string  `csv:"-"`
	CourseID       int     `csv:"course_id"`
	OfferNbr       int     `csv:"offer_nbr"`
	MinCredits     float64 `csv:"min_credits"`
	MaxCredits     float64 `csv:"max_credits"`
	CreditSrc      string  `csv:"credit_src"`
	MinGPA         float64 `csv:"min_gpa"`
	MaxGPA         float64 `csv:"max_gpa"`
}

// Grade points below the lowest passing grade mean "no minimum".
const (
	MinPassingGPA = 0.7
	MaxGPA        = 4.0
)

// Normalize fills the institution columns from the rule key and clamps the GPA bounds.
func (c *SourceCourse) Normalize() error {
	key, err := ParseRuleKey(c.RuleKey)
	if err != nil {
		return err
	}
	c.SrcInstitution = key.SrcInstitution
	c.DstInstitution = key.DstInstitution
	c.MinGPA = clampGPA(c.MinGPA)
	c.MaxGPA = clampGPA(c.MaxGPA)
	return nil
}

func clampGPA(v float64) float64 {
	if v < MinPassingGPA {
		return 0.0
	}
	if v > MaxGPA {
		return MaxGPA
	}
	return v
}

func (c SourceCourse) Course() CourseID {
	return CourseID{CourseID: c.CourseID, OfferNbr: c.OfferNbr}
}

type DestinationCourse struct {
	RuleKey  string  `csv:"rule_key"`
	CourseID int     `csv:"course_id"`
	OfferNbr int     `csv:"offer_nbr"`
	Credits  float64 `csv:"credits"`
}

func (c DestinationCourse) Course() CourseID {
	return CourseID{CourseID: c.CourseID, OfferNbr: c.OfferNbr}
}

// CourseID identifies a catalog course. course_id alone is not unique.
type CourseID struct {
	CourseID int
	OfferNbr int
}

func (c CourseID) String() string {
	return fmt.Sprintf("%06d:%d", c.CourseID, c.OfferNbr)
}

type CatalogEntry struct {
	CourseID      int
	OfferNbr      int
	Institution   string
	Discipline    string
	CatalogNumber string
	Title         string
	IsActive      bool
	IsMesg        bool
	IsBkcr        bool
}

func (e CatalogEntry) Key() CourseID {
	return CourseID{CourseID: e.CourseID, OfferNbr: e.OfferNbr}
}

// Label is the discipline and catalog number, e.g. "CSCI 101".
func (e CatalogEntry) Label() string {
	if e.Discipline == "" && e.CatalogNumber == "" {
		return UnknownCourseLabel
	}
	return strings.TrimSpace(e.Discipline + " " + e.CatalogNumber)
}

const UnknownCourseLabel = "Unknown"

// UnknownCourse stands in for catalog entries that no longer exist.
func UnknownCourse(id CourseID) CatalogEntry {
	return CatalogEntry{CourseID: id.CourseID, OfferNbr: id.OfferNbr, IsActive: false}
}

type RuleDescription struct {
	RuleKey     string
	Description string
}

// FileLoad records one archive file copied into a snapshot.
type FileLoad struct {
	Name     string
	Checksum string
	Rows     int64
}

type LoadSummary struct {
	Schema   string
	LoadID   string
	LoadedAt time.Time
	Files    []FileLoad
}

// RowsPerRule summarizes how many course rows each rule has in one snapshot table.
type RowsPerRule struct {
	Table        string
	Mean         float64
	Median       float64
	Distribution map[int]int
}
