package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joshua-d-miller/enrollpipe/internal/db"
	"github.com/joshua-d-miller/enrollpipe/internal/stage"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the event database",
}

// openDB opens the default database and applies the schema.
func openDB() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date.")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all event data and re-apply the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database reset.")
		return nil
	},
}

var dbEventsCmd = &cobra.Command{
	Use:   "events [run-id]",
	Short: "Show recent events, or all events for one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		var events []db.ProvisionEvent
		if len(args) == 1 {
			events, err = d.EventsForRun(args[0])
		} else {
			limit, _ := cmd.Flags().GetInt("limit")
			events, err = d.RecentEvents(limit)
		}
		if err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events found.")
			return nil
		}

		w := cmd.OutOrStdout()
		for _, e := range events {
			line := fmt.Sprintf("%s  %-14s %-22s", e.Timestamp, e.Event, e.Stage)
			if e.Outcome != "" {
				line += "  " + e.Outcome
			}
			if e.Detail != "" {
				line += "  " + e.Detail
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}

var dbFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show per-stage failure counts across all recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		counts, err := d.FailureCounts()
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No failures recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		for _, s := range stage.Order {
			if n, ok := counts[string(s)]; ok {
				fmt.Fprintf(w, "%-24s %d\n", s, n)
				delete(counts, string(s))
			}
		}
		// Anything left is from a stage the current order table no longer
		// knows (e.g. events recorded by an older binary).
		rest := make([]string, 0, len(counts))
		for s := range counts {
			rest = append(rest, s)
		}
		sort.Strings(rest)
		for _, s := range rest {
			fmt.Fprintf(w, "%-24s %d\n", s, counts[s])
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbEventsCmd)
	dbCmd.AddCommand(dbFailuresCmd)

	dbEventsCmd.Flags().Int("limit", 50, "Maximum number of events to show")
}
