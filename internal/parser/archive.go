package parser

import (
	"bufio"
	"compress/bzip2"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cvickery/rules-archive/internal/models"
	"github.com/jszwec/csvutil"
)

// Archive files have no header line; these name their positional columns.
var (
	RuleHeader              = []string{"rule_key", "effective_date"}
	SourceCourseHeader      = []string{"rule_key", "course_id", "offer_nbr", "min_credits", "max_credits", "credit_src", "min_gpa", "max_gpa"}
	DestinationCourseHeader = []string{"rule_key", "course_id", "offer_nbr", "credits"}
)

// ArchiveReader decodes one archive file a row at a time.
type ArchiveReader[T any] struct {
	name      string
	closer    io.Closer
	decoder   *csvutil.Decoder
	normalize func(*T) error
	line      int
}

// Open streams a bzip2-compressed archive file.
func Open[T any](path string, header []string, normalize func(*T) error) (*ArchiveReader[T], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	reader, err := NewReader(filepath.Base(path), bzip2.NewReader(bufio.NewReader(file)), header, normalize)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

// NewReader decodes uncompressed CSV rows from r.
func NewReader[T any](name string, r io.Reader, header []string, normalize func(*T) error) (*ArchiveReader[T], error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = len(header)

	decoder, err := csvutil.NewDecoder(csvReader, header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder for %s: %w", name, err)
	}
	decoder.Map = blankNumbers

	return &ArchiveReader[T]{name: name, decoder: decoder, normalize: normalize}, nil
}

// blankNumbers lets empty numeric fields decode as zero.
func blankNumbers(field, column string, v any) string {
	field = strings.TrimSpace(field)
	if field != "" {
		return field
	}
	switch v.(type) {
	case int, int64, float32, float64:
		return "0"
	}
	return field
}

func (r *ArchiveReader[T]) Next() (T, error) {
	var row T
	if err := r.decoder.Decode(&row); err != nil {
		if errors.Is(err, io.EOF) {
			return row, io.EOF
		}
		return row, &models.RowError{File: r.name, Line: r.line + 1, Err: err}
	}
	r.line++

	if r.normalize != nil {
		if err := r.normalize(&row); err != nil {
			return row, &models.RowError{File: r.name, Line: r.line, Err: err}
		}
	}
	return row, nil
}

// Rows is the number of rows decoded so far.
func (r *ArchiveReader[T]) Rows() int {
	return r.line
}

func (r *ArchiveReader[T]) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func OpenRules(path string) (*ArchiveReader[models.TransferRule], error) {
	return Open(path, RuleHeader, normalizeRule)
}

func OpenSourceCourses(path string) (*ArchiveReader[models.SourceCourse], error) {
	return Open(path, SourceCourseHeader, (*models.SourceCourse).Normalize)
}

func OpenDestinationCourses(path string) (*ArchiveReader[models.DestinationCourse], error) {
	return Open(path, DestinationCourseHeader, normalizeDestination)
}

func normalizeRule(r *models.TransferRule) error {
	r.RuleKey = strings.TrimSpace(r.RuleKey)
	_, err := models.ParseRuleKey(r.RuleKey)
	return err
}

func normalizeDestination(c *models.DestinationCourse) error {
	c.RuleKey = strings.TrimSpace(c.RuleKey)
	return nil
}
