package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridsim/config"
	"github.com/kilianp07/gridsim/infra/logger"
	"github.com/kilianp07/gridsim/infra/store"
)

var (
	inspectDB      string
	inspectRunID   string
	inspectVersion int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <series-name>",
	Short: "Print summary statistics of a stored series",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectSeries,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDB, "db", "", "series database (defaults to store.sqlite_path)")
	inspectCmd.Flags().StringVar(&inspectRunID, "run", "", "restrict to a run id")
	inspectCmd.Flags().IntVar(&inspectVersion, "version", -1, "restrict to a version")
	rootCmd.AddCommand(inspectCmd)
}

func inspectSeries(cmd *cobra.Command, args []string) error {
	path := inspectDB
	if path == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Store.SQLitePath
	}
	if path == "" {
		return errors.New("no series database: set store.sqlite_path or --db")
	}
	s, err := store.NewSeriesStore(path, "", logger.New("series-store"))
	if err != nil {
		return err
	}
	defer s.Close()

	f := store.Filter{RunID: inspectRunID}
	if inspectVersion >= 0 {
		f.Version = &inspectVersion
	}
	sum, err := s.Summary(context.Background(), args[0], f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: count=%d mean=%g std=%g min=%g median=%g max=%g\n",
		sum.Name, sum.Count, sum.Mean, sum.StdDev, sum.Min, sum.Median, sum.Max)
	return nil
}
