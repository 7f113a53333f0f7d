package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshua-d-miller/enrollpipe/internal/report"
	"github.com/joshua-d-miller/enrollpipe/internal/stage"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Inspect and run individual provisioning stages",
}

var stageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the fixed stage order",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for i, s := range stage.Order {
			fmt.Fprintf(w, "%d. %s\n", i+1, s)
		}
		return nil
	},
}

var stageRunCmd = &cobra.Command{
	Use:   "run <stage>",
	Short: "Run exactly one stage, then stop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := stage.ParseStage(args[0])
		if err != nil {
			return err
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

		log, err := ctrl.Run(context.Background(), s, stage.ModeSingle)
		if log != nil {
			report.Render(cmd.OutOrStdout(), log)
		}
		if err != nil {
			return fmt.Errorf("run stage: %w", err)
		}
		return nil
	},
}

func init() {
	stageCmd.AddCommand(stageListCmd)
	stageCmd.AddCommand(stageRunCmd)
}
