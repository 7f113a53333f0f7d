package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
	"github.com/joshua-d-miller/enrollpipe/internal/db"
	"github.com/joshua-d-miller/enrollpipe/internal/ops"
	"github.com/joshua-d-miller/enrollpipe/internal/pipeline"
	"github.com/joshua-d-miller/enrollpipe/internal/runlog"
)

// loadConfig loads the config named by --config, or searches the defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// loadValidConfig loads the config and rejects it if validation fails.
func loadValidConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "config error: %s\n", e)
		}
		return nil, fmt.Errorf("config has %d validation error(s)", len(errs))
	}
	return cfg, nil
}

// buildController assembles a fully wired controller: default registry,
// run-log store, event log, stderr progress, and the configured stage timeout.
func buildController(cmd *cobra.Command, cfg *config.Config) (*pipeline.Controller, func(), error) {
	registry := ops.DefaultRegistry(ops.New())
	ctrl := pipeline.New(registry, cfg)
	ctrl.SetProgress(os.Stderr)

	if cfg.Provisioning.StageTimeout != "" {
		if d, err := time.ParseDuration(cfg.Provisioning.StageTimeout); err == nil {
			ctrl.SetTimeout(d)
		}
	}
	// A --timeout flag, where the command defines one, wins over the config.
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		if d, err := time.ParseDuration(f.Value.String()); err == nil {
			ctrl.SetTimeout(d)
		}
	}

	store, err := runlog.DefaultStore()
	if err != nil {
		return nil, nil, fmt.Errorf("open run store: %w", err)
	}
	ctrl.SetStore(store)

	cleanup := func() {}
	dbPath, err := db.DefaultDBPath()
	if err == nil {
		if events, err := db.Open(dbPath); err == nil {
			if err := events.Migrate(); err == nil {
				ctrl.SetEventLog(events)
				cleanup = func() { events.Close() }
			} else {
				events.Close()
			}
		}
	}
	return ctrl, cleanup, nil
}
