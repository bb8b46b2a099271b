package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/cvickery/rules-archive/internal/models"
)

var statisticsTables = map[string]bool{
	"source_courses":      true,
	"destination_courses": true,
}

// RowsPerRule reports the frequency distribution of course rows per rule in one snapshot table.
func (m *PostgresDBManager) RowsPerRule(ctx context.Context, schema, tableName string) (*models.RowsPerRule, error) {
	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}
	if !statisticsTables[tableName] {
		return nil, fmt.Errorf("no statistics for table %q", tableName)
	}

	query := fmt.Sprintf(`
	WITH rule_key_counts AS (
		SELECT rule_key, COUNT(*) AS row_count
		FROM %s
		GROUP BY rule_key
	)
	SELECT row_count, COUNT(*) AS frequency
	FROM rule_key_counts
	GROUP BY row_count
	ORDER BY row_count;`, table(schema, tableName))

	rows, err := m.dbpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying statistics for %s.%s: %w", schema, tableName, err)
	}
	defer rows.Close()

	distribution := make(map[int]int)
	for rows.Next() {
		var rowCount, frequency int
		if err := rows.Scan(&rowCount, &frequency); err != nil {
			return nil, fmt.Errorf("error scanning statistics row: %w", err)
		}
		distribution[rowCount] = frequency
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over statistics rows: %w", err)
	}

	mean, median := Summarize(distribution)
	return &models.RowsPerRule{Table: tableName, Mean: mean, Median: median, Distribution: distribution}, nil
}

// Summarize computes the mean and the interpolated median of a rows-per-rule distribution.
func Summarize(distribution map[int]int) (mean, median float64) {
	var total, sum int
	sizes := make([]int, 0, len(distribution))
	for size, freq := range distribution {
		sizes = append(sizes, size)
		total += freq
		sum += size * freq
	}
	if total == 0 {
		return 0, 0
	}
	sort.Ints(sizes)
	mean = float64(sum) / float64(total)

	at := func(i int) int {
		for _, size := range sizes {
			if i < distribution[size] {
				return size
			}
			i -= distribution[size]
		}
		return sizes[len(sizes)-1]
	}
	if total%2 == 1 {
		return mean, float64(at(total / 2))
	}
	return mean, float64(at(total/2-1)+at(total/2)) / 2
}
