package config

// Config is the top-level configuration structure parsed from provisioning YAML.
type Config struct {
	Provisioning Provisioning `yaml:"provisioning"`
}

// Provisioning holds everything the stage operations need: host naming, time
// settings, inventory registration, directory binding, agent install, and the
// administrator accounts to harden and personalize.
type Provisioning struct {
	HostnamePrefix  string    `yaml:"hostname_prefix"`
	TimeServer      string    `yaml:"time_server"`
	StageTimeout    string    `yaml:"stage_timeout"`
	Daemon          Daemon    `yaml:"daemon"`
	Inventory       Inventory `yaml:"inventory"`
	Directory       Directory `yaml:"directory"`
	Agent           Agent     `yaml:"agent"`
	PreferencePanes []string  `yaml:"preference_panes"`
	Admins          []Admin   `yaml:"admins"`
}

// Daemon describes the launch daemon that reasserts the computer name on boot.
type Daemon struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

// Inventory points at the inventory web app where device manifests are registered.
type Inventory struct {
	Address           string   `yaml:"address"`
	Authorization     string   `yaml:"authorization"`
	Catalogs          []string `yaml:"catalogs"`
	IncludedManifests []string `yaml:"included_manifests"`
}

// Directory configures the management-tool policy event that binds the device
// to the directory service.
type Directory struct {
	Tool        string `yaml:"tool"`
	PolicyEvent string `yaml:"policy_event"`
}

// Agent configures where the management agent is fetched from and how it is
// bootstrapped after install.
type Agent struct {
	ReleasesURL string   `yaml:"releases_url"`
	PackagePath string   `yaml:"package_path"`
	Bootstrap   []string `yaml:"bootstrap"`
}

// Admin is one administrator account plus its display metadata.
type Admin struct {
	Account     string `yaml:"account"`
	DisplayName string `yaml:"display_name"`
	PictureURL  string `yaml:"picture_url"`
	PicturePath string `yaml:"picture_path"`
}

// AdminAccounts returns just the account names, in config order.
func (p *Provisioning) AdminAccounts() []string {
	accounts := make([]string, 0, len(p.Admins))
	for _, a := range p.Admins {
		accounts = append(accounts, a.Account)
	}
	return accounts
}
