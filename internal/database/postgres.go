package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cvickery/rules-archive/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const foreignKeyViolation = "23503"

var snapshotPattern = regexp.MustCompile(`^a20\d{6}$`)

func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	return dbpool, nil
}

type PostgresDBManager struct {
	dbpool           *pgxpool.Pool
	catalogTable     pgx.Identifier
	progressInterval int64
	logger           *zap.SugaredLogger
}

func NewPostgresDBManager(pool *pgxpool.Pool, catalogTable string, progressInterval int, logger *zap.SugaredLogger) *PostgresDBManager {
	if progressInterval <= 0 {
		progressInterval = 10000
	}
	return &PostgresDBManager{
		dbpool:           pool,
		catalogTable:     pgx.Identifier(strings.Split(catalogTable, ".")),
		progressInterval: int64(progressInterval),
		logger:           logger,
	}
}

// ValidateSchemaName rejects anything that is not a snapshot schema like a20240115.
func ValidateSchemaName(schema string) error {
	if !snapshotPattern.MatchString(schema) {
		return fmt.Errorf("%w: %q is not a snapshot schema name", models.ErrSnapshotNotFound, schema)
	}
	return nil
}

func table(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func snapshotTables(schema string) []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE %s (
			rule_key       TEXT PRIMARY KEY,
			effective_date DATE,
			description    TEXT NOT NULL DEFAULT ''
		);`, table(schema, "transfer_rules")),
		fmt.Sprintf(`
		CREATE TABLE %s (
			id              SERIAL PRIMARY KEY,
			rule_key        TEXT NOT NULL REFERENCES %s,
			src_institution TEXT NOT NULL,
			dst_institution TEXT NOT NULL,
			course_id       INTEGER,
			offer_nbr       INTEGER,
			min_credits     REAL,
			max_credits     REAL,
			credit_src      TEXT,
			min_gpa         REAL,
			max_gpa         REAL
		);`, table(schema, "source_courses"), table(schema, "transfer_rules")),
		fmt.Sprintf(`
		CREATE TABLE %s (
			id        SERIAL PRIMARY KEY,
			rule_key  TEXT NOT NULL REFERENCES %s,
			course_id INTEGER,
			offer_nbr INTEGER,
			credits   REAL
		);`, table(schema, "destination_courses"), table(schema, "transfer_rules")),
		fmt.Sprintf(`
		CREATE TABLE %s (
			file_name TEXT PRIMARY KEY,
			checksum  TEXT,
			row_count BIGINT NOT NULL,
			load_id   TEXT NOT NULL,
			loaded_at TIMESTAMPTZ NOT NULL
		);`, table(schema, "archive_files")),
	}
}

func snapshotIndexes(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE INDEX ON %s (rule_key);`, table(schema, "source_courses")),
		fmt.Sprintf(`CREATE INDEX ON %s (course_id, offer_nbr);`, table(schema, "source_courses")),
		fmt.Sprintf(`CREATE INDEX ON %s (src_institution, dst_institution);`, table(schema, "source_courses")),
		fmt.Sprintf(`CREATE INDEX ON %s (rule_key);`, table(schema, "destination_courses")),
		fmt.Sprintf(`CREATE INDEX ON %s (course_id, offer_nbr);`, table(schema, "destination_courses")),
	}
}

// ReplaceSnapshot drops and rebuilds the archive's schema inside one transaction, so readers
// see either the previous snapshot or the complete new one.
func (m *PostgresDBManager) ReplaceSnapshot(ctx context.Context, src *models.SnapshotSource) (*models.LoadSummary, error) {
	schema := src.Set.SchemaName()
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}
	schemaIdent := pgx.Identifier{schema}.Sanitize()

	tx, err := m.dbpool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE;`, schemaIdent)); err != nil {
		return nil, fmt.Errorf("error dropping schema %s: %w", schema, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA %s;`, schemaIdent)); err != nil {
		return nil, fmt.Errorf("error creating schema %s: %w", schema, err)
	}
	for _, query := range snapshotTables(schema) {
		if _, err := tx.Exec(ctx, query); err != nil {
			return nil, fmt.Errorf("error creating snapshot tables in %s: %w", schema, err)
		}
	}

	summary := &models.LoadSummary{Schema: schema, LoadID: uuid.NewString(), LoadedAt: time.Now()}

	// Rules first: both course tables reference transfer_rules.
	rules, err := copyRows(ctx, tx, pgx.Identifier{schema, "transfer_rules"},
		[]string{"rule_key", "effective_date"},
		src.Rules, m.progress("transfer_rules"),
		func(r models.TransferRule) []any {
			return []any{r.RuleKey, r.EffectiveDate.Value()}
		})
	if err != nil {
		return nil, err
	}
	m.logger.Infof("transfer_rules:      %d", rules)

	sources, err := copyRows(ctx, tx, pgx.Identifier{schema, "source_courses"},
		[]string{"rule_key", "src_institution", "dst_institution", "course_id", "offer_nbr", "min_credits", "max_credits", "credit_src", "min_gpa", "max_gpa"},
		src.SourceCourses, m.progress("source_courses"),
		func(c models.SourceCourse) []any {
			return []any{c.RuleKey, c.SrcInstitution, c.DstInstitution, int32(c.CourseID), int32(c.OfferNbr),
				float32(c.MinCredits), float32(c.MaxCredits), c.CreditSrc, float32(c.MinGPA), float32(c.MaxGPA)}
		})
	if err != nil {
		return nil, err
	}
	m.logger.Infof("source courses:      %d", sources)

	destinations, err := copyRows(ctx, tx, pgx.Identifier{schema, "destination_courses"},
		[]string{"rule_key", "course_id", "offer_nbr", "credits"},
		src.DestinationCourses, m.progress("destination_courses"),
		func(c models.DestinationCourse) []any {
			return []any{c.RuleKey, int32(c.CourseID), int32(c.OfferNbr), float32(c.Credits)}
		})
	if err != nil {
		return nil, err
	}
	m.logger.Infof("destination courses: %d", destinations)

	for _, query := range snapshotIndexes(schema) {
		if _, err := tx.Exec(ctx, query); err != nil {
			return nil, fmt.Errorf("error creating index in %s: %w", schema, err)
		}
	}

	counts := []int64{rules, sources, destinations}
	for i, path := range src.Set.Paths() {
		name := filepath.Base(path)
		load := models.FileLoad{Name: name, Checksum: src.Checksums[name], Rows: counts[i]}
		_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (file_name, checksum, row_count, load_id, loaded_at)
		VALUES ($1, $2, $3, $4, $5);`, table(schema, "archive_files")),
			load.Name, load.Checksum, load.Rows, summary.LoadID, summary.LoadedAt)
		if err != nil {
			return nil, fmt.Errorf("error recording archive file %s: %w", name, err)
		}
		summary.Files = append(summary.Files, load)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing snapshot %s: %v", schema, err)
	}

	return summary, nil
}

func (m *PostgresDBManager) progress(tableName string) func(int64) {
	return func(n int64) {
		if n%m.progressInterval == 0 {
			m.logger.Infof("%s: %d rows", tableName, n)
		}
	}
}

// copyRows streams a reader into COPY without buffering the file.
func copyRows[T any](ctx context.Context, tx pgx.Tx, tableName pgx.Identifier, columns []string, reader models.RowReader[T], progress func(int64), toRow func(T) []any) (int64, error) {
	var n int64
	source := pgx.CopyFromFunc(func() ([]any, error) {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		n++
		progress(n)
		return toRow(row), nil
	})

	count, err := tx.CopyFrom(ctx, tableName, columns, source)
	if err != nil {
		return 0, wrapCopyError(strings.Join(tableName, "."), err)
	}
	return count, nil
}

func wrapCopyError(target string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: %s: %s", models.ErrForeignKeyViolation, target, pgErr.Detail)
	}
	return fmt.Errorf("error copying rows into %s: %w", target, err)
}

func (m *PostgresDBManager) ListSnapshots(ctx context.Context) ([]string, error) {
	query := `
	SELECT schema_name
	FROM information_schema.schemata
	WHERE schema_name ~ '^a20[0-9]{6}$'
	ORDER BY schema_name;`

	rows, err := m.dbpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing snapshots: %w", err)
	}
	schemata, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning snapshot names: %w", err)
	}
	return schemata, nil
}

func (m *PostgresDBManager) DropSnapshot(ctx context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	query := fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE;`, pgx.Identifier{schema}.Sanitize())
	if _, err := m.dbpool.Exec(ctx, query); err != nil {
		return fmt.Errorf("error dropping snapshot %s: %w", schema, err)
	}
	return nil
}

func (m *PostgresDBManager) ScanCatalog(ctx context.Context, fn func(models.CatalogEntry) error) error {
	query := fmt.Sprintf(`
	SELECT course_id, offer_nbr, institution, discipline, catalog_number, coalesce(title, ''),
		coalesce(course_status = 'A', false), coalesce(is_mesg, false), coalesce(is_bkcr, false)
	FROM %s;`, m.catalogTable.Sanitize())

	rows, err := m.dbpool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("error querying course catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.CourseID, &e.OfferNbr, &e.Institution, &e.Discipline, &e.CatalogNumber, &e.Title,
			&e.IsActive, &e.IsMesg, &e.IsBkcr); err != nil {
			return fmt.Errorf("error scanning catalog row: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating over catalog rows: %w", err)
	}
	return nil
}

func (m *PostgresDBManager) RuleKeys(ctx context.Context, schema string) ([]string, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT rule_key FROM %s ORDER BY rule_key;`, table(schema, "transfer_rules"))

	rows, err := m.dbpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying rule keys in %s: %w", schema, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning rule keys: %w", err)
	}
	return keys, nil
}

func (m *PostgresDBManager) RuleKeysForCourses(ctx context.Context, schema string, courses []models.CourseID) ([]string, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}
	courseIDs := make([]int32, len(courses))
	offerNbrs := make([]int32, len(courses))
	for i, c := range courses {
		courseIDs[i] = int32(c.CourseID)
		offerNbrs[i] = int32(c.OfferNbr)
	}

	query := fmt.Sprintf(`
	WITH courses AS (
		SELECT * FROM unnest($1::integer[], $2::integer[]) AS c(course_id, offer_nbr)
	)
	SELECT rule_key FROM %s JOIN courses USING (course_id, offer_nbr)
	UNION
	SELECT rule_key FROM %s JOIN courses USING (course_id, offer_nbr)
	ORDER BY rule_key;`, table(schema, "source_courses"), table(schema, "destination_courses"))

	rows, err := m.dbpool.Query(ctx, query, courseIDs, offerNbrs)
	if err != nil {
		return nil, fmt.Errorf("error querying rule keys for courses in %s: %w", schema, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning rule keys: %w", err)
	}
	return keys, nil
}

func (m *PostgresDBManager) SourceCourses(ctx context.Context, schema string, ruleKeys []string) (map[string][]models.SourceCourse, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
	SELECT rule_key, src_institution, dst_institution, course_id, offer_nbr,
		min_credits, max_credits, credit_src, min_gpa, max_gpa
	FROM %s
	WHERE rule_key = ANY($1)
	ORDER BY rule_key, id;`, table(schema, "source_courses"))

	rows, err := m.dbpool.Query(ctx, query, ruleKeys)
	if err != nil {
		return nil, fmt.Errorf("error querying source courses in %s: %w", schema, err)
	}
	defer rows.Close()

	courses := make(map[string][]models.SourceCourse, len(ruleKeys))
	for rows.Next() {
		var c models.SourceCourse
		if err := rows.Scan(&c.RuleKey, &c.SrcInstitution, &c.DstInstitution, &c.CourseID, &c.OfferNbr,
			&c.MinCredits, &c.MaxCredits, &c.CreditSrc, &c.MinGPA, &c.MaxGPA); err != nil {
			return nil, fmt.Errorf("error scanning source course: %w", err)
		}
		courses[c.RuleKey] = append(courses[c.RuleKey], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over source courses: %w", err)
	}
	return courses, nil
}

func (m *PostgresDBManager) DestinationCourses(ctx context.Context, schema string, ruleKeys []string) (map[string][]models.DestinationCourse, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
	SELECT rule_key, course_id, offer_nbr, credits
	FROM %s
	WHERE rule_key = ANY($1)
	ORDER BY rule_key, id;`, table(schema, "destination_courses"))

	rows, err := m.dbpool.Query(ctx, query, ruleKeys)
	if err != nil {
		return nil, fmt.Errorf("error querying destination courses in %s: %w", schema, err)
	}
	defer rows.Close()

	courses := make(map[string][]models.DestinationCourse, len(ruleKeys))
	for rows.Next() {
		var c models.DestinationCourse
		if err := rows.Scan(&c.RuleKey, &c.CourseID, &c.OfferNbr, &c.Credits); err != nil {
			return nil, fmt.Errorf("error scanning destination course: %w", err)
		}
		courses[c.RuleKey] = append(courses[c.RuleKey], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over destination courses: %w", err)
	}
	return courses, nil
}

// UpdateDescriptions writes a whole batch with one statement.
func (m *PostgresDBManager) UpdateDescriptions(ctx context.Context, schema string, descriptions []models.RuleDescription) (int64, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return 0, err
	}
	if len(descriptions) == 0 {
		return 0, nil
	}
	keys := make([]string, len(descriptions))
	texts := make([]string, len(descriptions))
	for i, d := range descriptions {
		keys[i] = d.RuleKey
		texts[i] = d.Description
	}

	query := fmt.Sprintf(`
	UPDATE %s AS r
	SET description = d.description
	FROM unnest($1::text[], $2::text[]) AS d(rule_key, description)
	WHERE r.rule_key = d.rule_key;`, table(schema, "transfer_rules"))

	tag, err := m.dbpool.Exec(ctx, query, keys, texts)
	if err != nil {
		return 0, fmt.Errorf("error updating descriptions in %s: %w", schema, err)
	}
	return tag.RowsAffected(), nil
}
