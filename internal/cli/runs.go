package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshua-d-miller/enrollpipe/internal/report"
	"github.com/joshua-d-miller/enrollpipe/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted run logs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all persisted runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runlog.DefaultStore()
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}

		logs, err := store.List()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		if len(logs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-38s %-9s %-22s %-22s %s\n", "RUN", "MODE", "START STAGE", "STARTED", "RESULT")
		fmt.Fprintf(w, "%-38s %-9s %-22s %-22s %s\n",
			strings.Repeat("-", 38),
			strings.Repeat("-", 9),
			strings.Repeat("-", 22),
			strings.Repeat("-", 22),
			strings.Repeat("-", 6))
		for i := range logs {
			log := &logs[i]
			fmt.Fprintf(w, "%-38s %-9s %-22s %-22s %s\n",
				log.ID, log.Mode, log.StartStage, log.StartedAt, report.Summary(log))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full run log for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runlog.DefaultStore()
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}

		log, err := store.Get(args[0])
		if err != nil {
			return err
		}

		report.Render(cmd.OutOrStdout(), log)
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a persisted run log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runlog.DefaultStore()
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}
