package ops

import (
	"context"
	"fmt"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

// UnlockPreferencePanes opens the configured preference panes to all users,
// then enables location services and automatic time/time-zone so the device
// keeps itself on local time. Panes that are already unlocked are rewritten
// with the same rule, so re-invocation is harmless.
func (o *Ops) UnlockPreferencePanes(ctx context.Context, cfg *config.Config) error {
	for _, pane := range cfg.Provisioning.PreferencePanes {
		if _, err := o.cmd.Run(ctx, "/usr/bin/security", "authorizationdb", "write", pane, "allow"); err != nil {
			return fmt.Errorf("unlock %s: %w", pane, err)
		}
	}

	if err := o.enableLocationServices(ctx); err != nil {
		return err
	}
	return o.enableAutoTimeZone(ctx)
}

// enableLocationServices flips the locationd preference as the _locationd user
// and restarts the daemon so the change takes effect.
func (o *Ops) enableLocationServices(ctx context.Context) error {
	if _, err := o.cmd.Run(ctx, "/usr/bin/sudo", "-u", "_locationd",
		"/usr/bin/defaults", "-currentHost", "write", "com.apple.locationd",
		"LocationServicesEnabled", "-bool", "true"); err != nil {
		return fmt.Errorf("enable location services: %w", err)
	}
	if _, err := o.cmd.Run(ctx, "/bin/launchctl", "kickstart", "-k", "system/com.apple.locationd"); err != nil {
		return fmt.Errorf("restart locationd: %w", err)
	}
	return nil
}

// enableAutoTimeZone flips the timed preferences as the _timed user and
// restarts the daemon.
func (o *Ops) enableAutoTimeZone(ctx context.Context) error {
	for _, key := range []string{"TMAutomaticTimeOnlyEnabled", "TMAutomaticTimeZoneEnabled"} {
		if _, err := o.cmd.Run(ctx, "/usr/bin/sudo", "-u", "_timed",
			"/usr/bin/defaults", "-currentHost", "write", "com.apple.timed",
			key, "-bool", "true"); err != nil {
			return fmt.Errorf("enable %s: %w", key, err)
		}
	}
	if _, err := o.cmd.Run(ctx, "/bin/launchctl", "kickstart", "-k", "system/com.apple.timed"); err != nil {
		return fmt.Errorf("restart timed: %w", err)
	}
	return nil
}
