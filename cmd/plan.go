package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridsim/config"
	"github.com/kilianp07/gridsim/pkg/export"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the chunk plan of the configured run",
	RunE:  printPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFormat, "format", "csv", "output format: csv or json")
	rootCmd.AddCommand(planCmd)
}

func printPlan(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	plan, err := cfg.Run.Plan()
	if err != nil {
		return err
	}
	idx, err := cfg.Run.Index()
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), planFormat, export.Entries(plan, idx))
}
