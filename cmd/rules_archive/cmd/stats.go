package cmd

import (
	"sort"

	"github.com/spf13/cobra"
)

var statsSchema string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report rows per rule in a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		schema, err := a.ResolveSchema(ctx, statsSchema)
		if err != nil {
			return err
		}
		return printStatistics(cmd, a.DB, schema)
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsSchema, "schema", "n", "", "snapshot schema (default: most recent)")
	rootCmd.AddCommand(statsCmd)
}

func sortedCounts(distribution map[int]int) []int {
	counts := make([]int, 0, len(distribution))
	for n := range distribution {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	return counts
}
