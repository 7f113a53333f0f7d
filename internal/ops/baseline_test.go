package ops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApplyBaselineSettings(t *testing.T) {
	cmd := newFakeRunner()
	o := testOps(t, cmd)
	cfg := testConfig()
	cfg.Provisioning.Daemon.Path = filepath.Join(t.TempDir(), "local.enrollpipe.keepcomputername.plist")

	if err := o.ApplyBaselineSettings(context.Background(), cfg); err != nil {
		t.Fatalf("ApplyBaselineSettings: %v", err)
	}

	if !cmd.called("systemsetup -setnetworktimeserver clock.example.edu") {
		t.Error("time server not set")
	}
	if !cmd.called("systemsetup -setusingnetworktime on") {
		t.Error("network time not enabled")
	}

	data, err := os.ReadFile(cfg.Provisioning.Daemon.Path)
	if err != nil {
		t.Fatalf("read daemon plist: %v", err)
	}
	plist := string(data)
	if !strings.Contains(plist, "<string>local.enrollpipe.keepcomputername</string>") {
		t.Error("plist missing daemon label")
	}
	if strings.Count(plist, "<string>E7-C02XL0GTJGH5</string>") != 2 {
		t.Errorf("plist should carry the host name twice:\n%s", plist)
	}
	if !strings.Contains(plist, "<key>RunAtLoad</key>") {
		t.Error("plist missing RunAtLoad")
	}
}

func TestApplyBaselineSettingsTimeServerFailure(t *testing.T) {
	cmd := newFakeRunner()
	cmd.errs["-setnetworktimeserver"] = errors.New("systemsetup exited 1")
	o := testOps(t, cmd)
	cfg := testConfig()
	cfg.Provisioning.Daemon.Path = filepath.Join(t.TempDir(), "daemon.plist")

	if err := o.ApplyBaselineSettings(context.Background(), cfg); err == nil {
		t.Error("expected error when systemsetup fails, got nil")
	}
	if _, err := os.Stat(cfg.Provisioning.Daemon.Path); !os.IsNotExist(err) {
		t.Error("daemon plist should not be written after time server failure")
	}
}

func TestApplyBaselineSettingsUnwritablePath(t *testing.T) {
	cmd := newFakeRunner()
	o := testOps(t, cmd)
	cfg := testConfig()
	cfg.Provisioning.Daemon.Path = filepath.Join(t.TempDir(), "missing", "daemon.plist")

	if err := o.ApplyBaselineSettings(context.Background(), cfg); err == nil {
		t.Error("expected error for unwritable daemon path, got nil")
	}
}
