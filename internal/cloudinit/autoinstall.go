package cloudinit

import "github.com/yanizio/autoinstall/internal/config"

// AutoInstallConfig is the Subiquity autoinstall section.
// See: https://canonical-subiquity.readthedocs-hosted.com/en/latest/reference/autoinstall-reference.html
type AutoInstallConfig struct {
	Version  int            `yaml:"version"`
	Identity IdentityConfig `yaml:"identity"`
	SSH      SSHConfig      `yaml:"ssh"`
	Storage  StorageConfig  `yaml:"storage"`
	Packages []string       `yaml:"packages"`
	RunCmd   []string       `yaml:"runcmd"`
}

// IdentityConfig represents the installed system's first user.
type IdentityConfig struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
	// Password is a crypt(3) hash, never cleartext.
	Password string `yaml:"password"`
}

// SSHConfig represents SSH server configuration.
type SSHConfig struct {
	InstallServer  bool     `yaml:"install-server"`
	AuthorizedKeys []string `yaml:"authorized-keys"`
}

// StorageConfig represents disk storage configuration.
type StorageConfig struct {
	Layout StorageLayoutConfig `yaml:"layout"`
}

// StorageLayoutConfig names the installer's partitioning strategy.
type StorageLayoutConfig struct {
	Name string `yaml:"name"`
}

// CloudConfigWrapper wraps the autoinstall section in cloud-config form.
type CloudConfigWrapper struct {
	AutoInstall AutoInstallConfig `yaml:"autoinstall"`
}

var (
	autoinstallPackages = []string{"openssh-server", "curl", "wget"}
	autoinstallRunCmd   = []string{"systemctl enable ssh", "systemctl start ssh"}
)

// Autoinstall renders a plain-text Subiquity autoinstall document.  The
// snapshot credential is embedded as a pre-hashed password.
type Autoinstall struct{}

func (Autoinstall) Variant() config.Variant { return config.VariantAutoinstall }

// UserData builds the autoinstall user-data for vmName.
func (a Autoinstall) UserData(s config.Snapshot, vmName string) ([]byte, error) {
	doc := CloudConfigWrapper{
		AutoInstall: AutoInstallConfig{
			Version: 1,
			Identity: IdentityConfig{
				Hostname: vmName,
				Username: s.Username,
				Password: s.Credential,
			},
			SSH: SSHConfig{
				InstallServer:  true,
				AuthorizedKeys: []string{s.SSHPublicKey},
			},
			Storage: StorageConfig{
				Layout: StorageLayoutConfig{Name: s.StorageLayout},
			},
			Packages: autoinstallPackages,
			RunCmd:   autoinstallRunCmd,
		},
	}

	out, err := encode(cloudConfigHeader, doc)
	return observe(DocUserData, a.Variant(), out, err)
}

func (a Autoinstall) MetaData(vmName string) ([]byte, error) {
	return renderMetaData(a.Variant(), vmName)
}
