package cmd

import (
	"fmt"
	"os"

	"github.com/cvickery/rules-archive/internal/config"
	"github.com/cvickery/rules-archive/internal/describe"
	"github.com/spf13/cobra"
)

var (
	describeSchema string
	sending        string
	receiving      string
	subject        string
	catalogNumber  string
	direction      string
	persist        bool
	batchSize      int
)

var describeCmd = &cobra.Command{
	Use:   "describe [rule_key... | all]",
	Short: "Generate rule descriptions for a snapshot",
	Long: `Describes transfer rules in a snapshot as
"{source courses} => {destination courses}".

Rules are chosen by key, by "all", or by institution and course filters.
--direction decides whether the sending college, the receiving college, or
both have to match. With --persist the descriptions are written back to the
snapshot instead of printed.`,
	RunE: runDescribe,
}

func init() {
	f := describeCmd.Flags()
	f.StringVarP(&describeSchema, "schema", "n", "", "snapshot schema (default: most recent)")
	f.StringVarP(&sending, "sending", "s", "", "sending college, e.g. QCC")
	f.StringVarP(&receiving, "receiving", "r", "", "receiving college, e.g. QNS")
	f.StringVarP(&subject, "subject", "u", "", "discipline pattern, e.g. CSCI")
	f.StringVarP(&catalogNumber, "catalog-number", "c", "", "catalog number pattern, e.g. 1")
	f.StringVarP(&direction, "direction", "D", "both", "which side must match: sending, receiving, or both")
	f.BoolVarP(&persist, "persist", "p", false, "write descriptions to the snapshot")
	f.IntVar(&batchSize, "batch-size", 0, "rules per batch (default: $DESCRIPTION_BATCH_SIZE)")
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	dir, err := describe.ParseDirection(direction)
	if err != nil {
		return err
	}
	selection := describe.Selection{
		RuleKeys:      args,
		Sending:       sending,
		Receiving:     receiving,
		Direction:     dir,
		Subject:       subject,
		CatalogNumber: catalogNumber,
	}

	ctx := cmd.Context()
	a, err := connect(ctx, func(cfg *config.Config) {
		if batchSize > 0 {
			cfg.DescriptionBatchSize = batchSize
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	schema, err := a.ResolveSchema(ctx, describeSchema)
	if err != nil {
		return err
	}
	selector, err := a.Selector(ctx)
	if err != nil {
		return err
	}
	keys, err := selector.Select(ctx, schema, selection)
	if err != nil {
		return err
	}
	generator, err := a.Generator(ctx)
	if err != nil {
		return err
	}

	var result *describe.Result
	if persist {
		persister := describe.NewPersister(a.DB, len(keys), logger)
		result, err = generator.Run(ctx, schema, keys, persister)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d descriptions in %s\n", persister.Updated, schema)
	} else {
		printer := describe.NewTerminalPrinter(os.Stdout, len(keys))
		result, err = generator.Run(ctx, schema, keys, printer)
		if err != nil {
			return err
		}
		if err := printer.Finish(); err != nil {
			return err
		}
	}

	logger.Infof("Described %d rules in %d batches", result.Rules, result.Batches)
	if result.UnknownCourses > 0 {
		logger.Warnf("%d course references are no longer in the catalog", result.UnknownCourses)
	}
	return nil
}
