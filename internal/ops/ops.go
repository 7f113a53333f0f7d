// Package ops supplies the concrete stage operations: the real-world
// configuration changes behind the pipeline's registry boundary. Each operation
// performs exactly one externally observable change and reports success or
// failure; none of them retries, and all are safe for an operator to re-invoke
// after a failed run.
package ops

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
	"github.com/joshua-d-miller/enrollpipe/internal/stage"
)

// Ops holds the shared plumbing for all stage operations.
type Ops struct {
	cmd    CommandRunner
	client *http.Client

	// cached between stages within one process; naming and the baseline
	// daemon both need the same Prefix-Serial value.
	mu       sync.Mutex
	hostName string
}

// New creates an Ops backed by real command execution and a default HTTP client.
func New() *Ops {
	return &Ops{
		cmd:    &ExecRunner{},
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// NewWith creates an Ops with injected plumbing (for tests).
func NewWith(cmd CommandRunner, client *http.Client) *Ops {
	return &Ops{cmd: cmd, client: client}
}

// DefaultRegistry returns a registry with every stage bound to its operation.
func DefaultRegistry(o *Ops) *stage.Registry {
	r := stage.NewRegistry()
	r.Register(stage.NameComputer, o.NameComputer)
	r.Register(stage.HardenRemoteAccess, o.HardenRemoteAccess)
	r.Register(stage.ApplyBaselineSettings, o.ApplyBaselineSettings)
	r.Register(stage.RegisterInventory, o.RegisterInventory)
	r.Register(stage.PersonalizeAdminAccounts, o.PersonalizeAdminAccounts)
	r.Register(stage.BindDirectory, o.BindDirectory)
	r.Register(stage.InstallManagementAgent, o.InstallManagementAgent)
	r.Register(stage.UnlockPreferencePanes, o.UnlockPreferencePanes)
	return r
}

// serialNumber reads the platform serial from the IO registry.
func (o *Ops) serialNumber(ctx context.Context) (string, error) {
	out, err := o.cmd.Run(ctx, "/usr/sbin/ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
	if err != nil {
		return "", fmt.Errorf("read platform serial: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "IOPlatformSerialNumber") {
			continue
		}
		if _, rest, ok := strings.Cut(line, "="); ok {
			serial := strings.Trim(strings.TrimSpace(rest), `"`)
			if serial != "" {
				return serial, nil
			}
		}
	}
	return "", fmt.Errorf("IOPlatformSerialNumber not found in ioreg output")
}

// hostNameFor returns Prefix-Serial, computing and caching it on first use.
func (o *Ops) hostNameFor(ctx context.Context, cfg *config.Config) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hostName != "" {
		return o.hostName, nil
	}
	serial, err := o.serialNumber(ctx)
	if err != nil {
		return "", err
	}
	o.hostName = fmt.Sprintf("%s-%s", cfg.Provisioning.HostnamePrefix, serial)
	return o.hostName, nil
}
