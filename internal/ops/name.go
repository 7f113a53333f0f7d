package ops

import (
	"context"
	"fmt"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

// NameComputer sets the computer name and local host name to Prefix-Serial.
func (o *Ops) NameComputer(ctx context.Context, cfg *config.Config) error {
	name, err := o.hostNameFor(ctx, cfg)
	if err != nil {
		return err
	}

	if _, err := o.cmd.Run(ctx, "/usr/sbin/scutil", "--set", "ComputerName", name); err != nil {
		return fmt.Errorf("set ComputerName: %w", err)
	}
	if _, err := o.cmd.Run(ctx, "/usr/sbin/scutil", "--set", "LocalHostName", name); err != nil {
		return fmt.Errorf("set LocalHostName: %w", err)
	}
	return nil
}
