package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

const kickstart = "/System/Library/CoreServices/RemoteManagement/" +
	"ARDAgent.app/Contents/Resources/kickstart"

const sshAccessGroup = "com.apple.access_ssh"

// HardenRemoteAccess restricts ARD and SSH to the configured admin accounts.
func (o *Ops) HardenRemoteAccess(ctx context.Context, cfg *config.Config) error {
	admins := cfg.Provisioning.AdminAccounts()
	if err := o.hardenARD(ctx, admins); err != nil {
		return err
	}
	return o.hardenSSH(ctx, admins)
}

// hardenARD wipes remote-management access and re-grants it to the admins only.
func (o *Ops) hardenARD(ctx context.Context, admins []string) error {
	steps := [][]string{
		{"-deactivate", "-configure", "-access", "-off"},
		{"-activate", "-configure", "-allowAccessFor", "-specifiedUsers"},
		{"-configure", "-users", strings.Join(admins, ","), "-access", "-on", "-privs", "-all"},
		{"-restart", "-agent"},
	}
	for _, args := range steps {
		if _, err := o.cmd.Run(ctx, kickstart, args...); err != nil {
			return fmt.Errorf("kickstart %s: %w", args[0], err)
		}
	}
	return nil
}

// hardenSSH rebuilds the SSH access group from scratch with the admins as its
// only members. Remote login is switched off while the group is rebuilt.
func (o *Ops) hardenSSH(ctx context.Context, admins []string) error {
	if _, err := o.cmd.Run(ctx, "/usr/sbin/systemsetup", "-f", "-setremotelogin", "off"); err != nil {
		return fmt.Errorf("disable remote login: %w", err)
	}

	// Stale group records are removed before the rebuild; absence is fine.
	_, _ = o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-delete", "/Groups/"+sshAccessGroup+"-disabled")
	_, _ = o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-delete", "/Groups/"+sshAccessGroup)

	if _, err := o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-create", "/Groups/"+sshAccessGroup); err != nil {
		return fmt.Errorf("create SSH access group: %w", err)
	}

	for _, account := range admins {
		uid, err := o.generatedUID(ctx, account)
		if err != nil {
			return err
		}
		if _, err := o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-append",
			"/Groups/"+sshAccessGroup, "GroupMembership", account); err != nil {
			return fmt.Errorf("add %s to SSH group: %w", account, err)
		}
		if _, err := o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-append",
			"/Groups/"+sshAccessGroup, "GroupMembers", uid); err != nil {
			return fmt.Errorf("add %s UID to SSH group: %w", account, err)
		}
	}

	if _, err := o.cmd.Run(ctx, "/usr/sbin/systemsetup", "-f", "-setremotelogin", "on"); err != nil {
		return fmt.Errorf("enable remote login: %w", err)
	}
	return nil
}

// generatedUID reads the GeneratedUID attribute for a local account.
func (o *Ops) generatedUID(ctx context.Context, account string) (string, error) {
	out, err := o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-read", "/Users/"+account, "GeneratedUID")
	if err != nil {
		return "", fmt.Errorf("read GeneratedUID for %s: %w", account, err)
	}
	// Output form: "GeneratedUID: XXXXXXXX-XXXX-..."
	if _, rest, ok := strings.Cut(out, ":"); ok {
		if uid := strings.TrimSpace(rest); uid != "" {
			return uid, nil
		}
	}
	return "", fmt.Errorf("no GeneratedUID for account %s", account)
}
