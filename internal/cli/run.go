package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshua-d-miller/enrollpipe/internal/report"
	"github.com/joshua-d-miller/enrollpipe/internal/stage"
)

var runCmd = &cobra.Command{
	Use:   "run [start-stage]",
	Short: "Run the full provisioning chain, optionally from a later stage",
	Long: `Runs every stage from the start stage through the end of the fixed order.
Failed stages are recorded and the chain continues; review the run summary
for stages needing follow-up. With no argument, starts at the first stage.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := stage.Order[0]
		if len(args) == 1 {
			s, err := stage.ParseStage(args[0])
			if err != nil {
				return err
			}
			start = s
		}

		cfg, err := loadValidConfig(cmd)
		if err != nil {
			return err
		}

		ctrl, cleanup, err := buildController(cmd, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		log, err := ctrl.Run(context.Background(), start, stage.ModeChained)
		// A late failure (e.g. persisting the log) must not swallow the
		// summary; the stages already ran.
		if log != nil {
			report.Render(cmd.OutOrStdout(), log)
		}
		if err != nil {
			return fmt.Errorf("run pipeline: %w", err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Duration("timeout", 0, "Per-stage timeout, overriding the configured value")
}
