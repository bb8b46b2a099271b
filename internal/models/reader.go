package models

// RowReader yields archive rows one at a time. Next returns io.EOF once the file is exhausted.
type RowReader[T any] interface {
	Next() (T, error)
	Close() error
}

// SnapshotSource holds the three open readers of an archive set.
type SnapshotSource struct {
	Set                ArchiveSet
	Rules              RowReader[TransferRule]
	SourceCourses      RowReader[SourceCourse]
	DestinationCourses RowReader[DestinationCourse]
	Checksums          map[string]string
}

func (s *SnapshotSource) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{s.Rules, s.SourceCourses, s.DestinationCourses} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
