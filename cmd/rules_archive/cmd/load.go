package cmd

import (
	"fmt"
	"time"

	"github.com/cvickery/rules-archive/internal/config"
	"github.com/cvickery/rules-archive/internal/database"
	"github.com/spf13/cobra"
)

var (
	archiveDate    string
	archiveDir     string
	loadStatistics bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Restore an archive into its snapshot schema",
	Long: `Restores the latest archive dated on or before --archive-date into the
schema aYYYYMMDD, replacing any snapshot already there.

Dates may be YYYY-MM-DD, YYYYMMDD, a schema name like a20240115, or words
such as "today", "yesterday", and "2 weeks ago".`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVarP(&archiveDate, "archive-date", "d", "today", "date of the archive to load")
	loadCmd.Flags().StringVar(&archiveDir, "archive-dir", "", "directory holding the archives (default: $ARCHIVE_DIR)")
	loadCmd.Flags().BoolVarP(&loadStatistics, "statistics", "s", false, "report rows per rule after loading")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	startTime := time.Now()

	a, err := connect(ctx, func(cfg *config.Config) {
		if archiveDir != "" {
			cfg.ArchiveDir = archiveDir
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Loader().LoadDate(ctx, archiveDate, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Loaded %s (load %s)\n", summary.Schema, summary.LoadID)
	for _, f := range summary.Files {
		fmt.Fprintf(out, "  %-45s %10d rows  %s\n", f.Name, f.Rows, f.Checksum)
	}

	if loadStatistics {
		if err := printStatistics(cmd, a.DB, summary.Schema); err != nil {
			return err
		}
	}
	logger.Infof("Execution time: %s", time.Since(startTime).Round(time.Millisecond))
	return nil
}

func printStatistics(cmd *cobra.Command, store database.StatisticsStore, schema string) error {
	out := cmd.OutOrStdout()
	for _, tableName := range []string{"source_courses", "destination_courses"} {
		stats, err := store.RowsPerRule(cmd.Context(), schema, tableName)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s.%s: mean %.2f, median %.1f rows per rule\n", schema, tableName, stats.Mean, stats.Median)
		for _, n := range sortedCounts(stats.Distribution) {
			fmt.Fprintf(out, "  %4d rows: %8d rules\n", n, stats.Distribution[n])
		}
	}
	return nil
}
