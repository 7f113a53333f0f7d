package ops

import (
	"context"
	"fmt"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

// BindDirectory triggers the management-tool policy that binds the device to
// the directory service. The binding itself is the policy's job; this stage
// only reports whether the trigger succeeded.
func (o *Ops) BindDirectory(ctx context.Context, cfg *config.Config) error {
	d := cfg.Provisioning.Directory
	if _, err := o.cmd.Run(ctx, d.Tool, "policy", "-event", d.PolicyEvent); err != nil {
		return fmt.Errorf("trigger policy %s: %w", d.PolicyEvent, err)
	}
	return nil
}
