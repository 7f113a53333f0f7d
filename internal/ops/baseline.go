package ops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/template"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

// daemonPlist is the launch daemon that reasserts the computer name on every
// boot, so a directory bind or OS update cannot quietly rename the machine.
var daemonPlist = template.Must(template.New("daemon").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>RunAtLoad</key>
	<true/>
	<key>ProgramArguments</key>
	<array>
		<string>/usr/sbin/systemsetup</string>
		<string>-setcomputername</string>
		<string>{{.Name}}</string>
		<string>-setlocalsubnetname</string>
		<string>{{.Name}}</string>
	</array>
</dict>
</plist>
`))

// ApplyBaselineSettings sets the network time server and installs the
// keep-computer-name launch daemon.
func (o *Ops) ApplyBaselineSettings(ctx context.Context, cfg *config.Config) error {
	p := cfg.Provisioning

	if _, err := o.cmd.Run(ctx, "/usr/sbin/systemsetup", "-setnetworktimeserver", p.TimeServer); err != nil {
		return fmt.Errorf("set network time server: %w", err)
	}
	if _, err := o.cmd.Run(ctx, "/usr/sbin/systemsetup", "-setusingnetworktime", "on"); err != nil {
		return fmt.Errorf("enable network time: %w", err)
	}

	name, err := o.hostNameFor(ctx, cfg)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := daemonPlist.Execute(&buf, struct{ Label, Name string }{p.Daemon.Label, name}); err != nil {
		return fmt.Errorf("render daemon plist: %w", err)
	}
	if err := os.WriteFile(p.Daemon.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write daemon plist: %w", err)
	}
	return nil
}
