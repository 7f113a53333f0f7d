package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "enrollpipe",
	Short: "Device-provisioning stage pipeline",
	Long: `enrollpipe walks a freshly enrolled device through a fixed sequence of
provisioning stages: naming, remote-access hardening, baseline settings,
inventory registration, admin account personalization, directory binding,
agent installation, and preference-pane unlocking.

A failed stage never stops the run; it is recorded in the run log for the
operator to remediate. Run logs live under ~/.enrollpipe/runs (JSON) and
events under ~/.enrollpipe/enrollpipe.db (SQLite).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to provisioning config YAML (default: ./enrollpipe.yaml, ~/.enrollpipe/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
