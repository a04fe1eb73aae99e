package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridsim/app"
	"github.com/kilianp07/gridsim/config"
	"github.com/kilianp07/gridsim/core/runner"
	"github.com/kilianp07/gridsim/infra/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured batch (default command)",
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	rep, runErr := svc.Run(ctx)
	printSummary(cmd.OutOrStdout(), rep)
	if runErr != nil {
		return runErr
	}
	if n := len(rep.Failed()); n > 0 {
		return fmt.Errorf("%d of %d chunks failed", n, len(rep.Chunks))
	}
	return nil
}

func printSummary(w io.Writer, rep runner.RunReport) {
	fmt.Fprintf(w, "run %s: %d chunks in %s, %d succeeded\n", rep.RunID, len(rep.Chunks), rep.Duration, rep.Succeeded())
	for _, f := range rep.Failed() {
		fmt.Fprintf(w, "  %s: %s: %v\n", f.Task, f.Outcome, f.Err)
	}
}
