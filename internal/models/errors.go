package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate            = errors.New("invalid date")
	ErrNoArchivesFound        = errors.New("no archives found")
	ErrMissingArchiveFile     = errors.New("missing archive file")
	ErrForeignKeyViolation    = errors.New("foreign key violation")
	ErrUnknownCourseReference = errors.New("unknown course reference")
	ErrInvalidGradeRange      = errors.New("invalid grade range")
	ErrInvalidConjunction     = errors.New("invalid conjunction")
	ErrInvalidDirection       = errors.New("invalid direction")
	ErrNoMatchingCourses      = errors.New("no matching courses")
	ErrSnapshotNotFound       = errors.New("snapshot not found")
	ErrInvalidRuleKey         = errors.New("invalid rule key")
)

// MissingFileError names an archive file that is not on disk.
type MissingFileError struct {
	Name string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s is not a file", e.Name)
}

func (e *MissingFileError) Unwrap() error {
	return ErrMissingArchiveFile
}

// RowError locates a bad row inside an archive file.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
