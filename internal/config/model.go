// internal/config/model.go
//
// Typed configuration model for the autoinstall server.
//
// Context
// -------
// `Config` mirrors the merged koanf tree that `loader.go` builds from
// three layers (defaults, optional file, environment).  It is decoded and
// validated once, then collapsed into the flat `Snapshot` that handlers
// and renderers read.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`.  Koanf ignores `json` and `yaml` tags.
//   • `password` and `password_hash` both live in the tree.  Only the one
//     matching the rendering variant reaches `Snapshot.Credential`.
//   • Two spaces after periods.  No em-dash.

package config

//
// Variant
//

// Variant selects the user-data document shape for a deployment.
type Variant string

const (
	// VariantAutoinstall emits a Subiquity autoinstall document and treats
	// the credential as a pre-hashed password.
	VariantAutoinstall Variant = "autoinstall"

	// VariantUserCreate emits a plain cloud-config that creates the
	// `deploy` user, treats the credential as cleartext, and base64
	// encodes the result.
	VariantUserCreate Variant = "user-create"
)

// Sentinel placeholders mark values an operator never configured.
const (
	PasswordHashPlaceholder = "your_password_hash_here"
	PasswordPlaceholder     = "your_password_here"
	SSHKeyPlaceholder       = "your_ssh_key_here"

	// knownBadPassword shipped in an early sample config and must never
	// reach a real machine.
	knownBadPassword = "dlsvmfk00##"
)

// Placeholder returns the credential sentinel for v.
func (v Variant) Placeholder() string {
	if v == VariantUserCreate {
		return PasswordPlaceholder
	}
	return PasswordHashPlaceholder
}

//
// File / env tree
//

// DefaultUser is the `default_user` section.
type DefaultUser struct {
	Username     string `koanf:"username"      validate:"required"`
	Password     string `koanf:"password"`
	PasswordHash string `koanf:"password_hash"`
}

// SSH is the `ssh` section.
type SSH struct {
	PublicKey string `koanf:"public_key"`
}

// Server holds listener tunables.
type Server struct {
	Host    string `koanf:"host"     validate:"required"`
	Port    int    `koanf:"port"     validate:"min=1,max=65535"`
	GeoIPDB string `koanf:"geoip_db"`
}

// Storage is the `storage` section.
type Storage struct {
	LayoutName string `koanf:"layout_name" validate:"required"`
}

// Render selects the document variant.
type Render struct {
	Variant Variant `koanf:"variant" validate:"oneof=autoinstall user-create"`
}

// Logging controls the zap sinks.
type Logging struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	Dir   string `koanf:"dir"`
}

// Config is the decoded koanf tree.
type Config struct {
	DefaultUser DefaultUser `koanf:"default_user"`
	SSH         SSH         `koanf:"ssh"`
	Server      Server      `koanf:"server"`
	Storage     Storage     `koanf:"storage"`
	Render      Render      `koanf:"render"`
	Logging     Logging     `koanf:"logging"`
}

//
// Snapshot
//

// Snapshot is the resolved, read-only view handed to the HTTP layer and
// the renderers.  It is a plain value; copies share nothing mutable.
type Snapshot struct {
	Username      string
	Credential    string
	SSHPublicKey  string
	ServerHost    string
	ServerPort    int
	StorageLayout string

	Variant Variant
	Source  string // config file path consulted, present or not
	Logging Logging
	GeoIPDB string
}

// CredentialConfigured reports whether the credential differs from the
// variant's placeholder.
func (s Snapshot) CredentialConfigured() bool {
	return s.Credential != s.Variant.Placeholder()
}

// SSHKeyConfigured reports whether the SSH key differs from its
// placeholder.
func (s Snapshot) SSHKeyConfigured() bool {
	return s.SSHPublicKey != SSHKeyPlaceholder
}

// Diagnostics carries operator-facing output from Resolve.  Logging it is
// the caller's job.
type Diagnostics struct {
	EnvApplied []string
	Notes      []string
	Warnings   []string
}
