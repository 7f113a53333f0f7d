package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a provisioning configuration from the given YAML file path.
// After parsing, it fills in defaults for fields the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a provisioning config in standard locations and loads
// the first one found. Search order: ./enrollpipe.yaml, ~/.enrollpipe/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"enrollpipe.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".enrollpipe", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no provisioning config found (searched: %v)", candidates)
}

// applyDefaults fills in values the deployment rarely needs to override.
func applyDefaults(cfg *Config) {
	p := &cfg.Provisioning

	if p.StageTimeout == "" {
		p.StageTimeout = "10m"
	}
	if p.Daemon.Label == "" {
		p.Daemon.Label = "local.enrollpipe.keepcomputername"
	}
	if p.Daemon.Path == "" {
		p.Daemon.Path = filepath.Join("/Library/LaunchDaemons", p.Daemon.Label+".plist")
	}
	if len(p.Inventory.Catalogs) == 0 {
		p.Inventory.Catalogs = []string{"production"}
	}
	if len(p.Inventory.IncludedManifests) == 0 {
		p.Inventory.IncludedManifests = []string{"global"}
	}
	if p.Directory.Tool == "" {
		p.Directory.Tool = "/usr/local/bin/jamf"
	}
	if p.Agent.ReleasesURL == "" {
		p.Agent.ReleasesURL = "https://api.github.com/repos/munki/munki/releases/latest"
	}
	if p.Agent.PackagePath == "" {
		p.Agent.PackagePath = "/tmp/management-agent.pkg"
	}
	if len(p.Agent.Bootstrap) == 0 {
		p.Agent.Bootstrap = []string{"/usr/local/munki/managedsoftwareupdate", "--set-bootstrap-mode"}
	}
	if len(p.PreferencePanes) == 0 {
		p.PreferencePanes = []string{
			"system.preferences",
			"system.preferences.datetime",
			"system.preferences.timemachine",
			"system.preferences.energysaver",
			"system.preferences.network",
		}
	}
}
