package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearConfirmed bool

var schemataCmd = &cobra.Command{
	Use:   "schemata",
	Short: "List or drop snapshot schemas",
}

var schemataListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshot schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		snapshots, err := a.DB.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		for _, s := range snapshots {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

var schemataClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every snapshot schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirmed {
			return fmt.Errorf("refusing to drop snapshots without --yes")
		}
		ctx := cmd.Context()
		a, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		snapshots, err := a.DB.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		for _, s := range snapshots {
			if err := a.DB.DropSnapshot(ctx, s); err != nil {
				return err
			}
			logger.Infof("Dropped %s", s)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d snapshots\n", len(snapshots))
		return nil
	},
}

func init() {
	schemataClearCmd.Flags().BoolVar(&clearConfirmed, "yes", false, "confirm dropping every snapshot")
	schemataCmd.AddCommand(schemataListCmd, schemataClearCmd)
	rootCmd.AddCommand(schemataCmd)
}
