// internal/config/loader.go
//
// Configuration resolver.
//
/*
Context
--------
`Resolve()` builds one `Snapshot` from three layers (highest precedence
last):

  1. Hardcoded defaults (koanf confmap provider).
  2. Optional config file, JSON or YAML by extension.  Defaults to
     `config.json` in the working directory.
  3. A fixed set of environment variables (`DEFAULT_USERNAME`,
     `SSH_PUBLIC_KEY`, `SERVER_PORT`, …).  Empty values count as unset.

A broken file never stops the server: the whole file layer is dropped
and a warning is returned.  A broken environment override does stop it,
because the operator asked for that value explicitly.

The resolver does not log.  It returns `Diagnostics` and the caller
decides where they go.

Notes
-----
  • Secret references (`vault:<mount>/<path>#<key>`) in the credential or
    SSH key are resolved after merging, through `Options.Secrets`.
  • The snapshot is built once per process.  There is no reload.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"golang.org/x/crypto/ssh"
)

// DefaultFile is consulted when Options.File is empty.
const DefaultFile = "config.json"

// SecretPrefix marks a value that must be fetched from the secret store.
const SecretPrefix = "vault:"

// SecretResolver fetches the value behind a `vault:` reference (prefix
// already stripped).
type SecretResolver interface {
	Secret(ctx context.Context, ref string) (string, error)
}

// Options tunes Resolve.  The zero value reads DefaultFile and rejects
// secret references.
type Options struct {
	File    string
	Secrets SecretResolver
}

/*──────────────────────────── layer tables ────────────────────────────────*/

func defaults() map[string]any {
	return map[string]any{
		"default_user.username":      "root",
		"default_user.password":      PasswordPlaceholder,
		"default_user.password_hash": PasswordHashPlaceholder,
		"ssh.public_key":             SSHKeyPlaceholder,
		"server.host":                "0.0.0.0",
		"server.port":                8080,
		"server.geoip_db":            "",
		"storage.layout_name":        "direct",
		"render.variant":             string(VariantAutoinstall),
		"logging.level":              "info",
		"logging.dir":                "",
	}
}

type envBinding struct {
	name string // environment variable
	key  string // dotted koanf key
}

// envBindings is ordered; EnvApplied follows this order.
var envBindings = []envBinding{
	{"DEFAULT_USERNAME", "default_user.username"},
	{"DEFAULT_PASSWORD", "default_user.password"},
	{"DEFAULT_PASSWORD_HASH", "default_user.password_hash"},
	{"SSH_PUBLIC_KEY", "ssh.public_key"},
	{"SERVER_HOST", "server.host"},
	{"SERVER_PORT", "server.port"},
	{"STORAGE_LAYOUT", "storage.layout_name"},
	{"RENDER_VARIANT", "render.variant"},
	{"LOG_LEVEL", "logging.level"},
	{"LOG_DIR", "logging.dir"},
	{"GEOIP_DB", "server.geoip_db"},
}

// EnvVars lists every environment variable Resolve consults.
func EnvVars() []string {
	out := make([]string, len(envBindings))
	for i, b := range envBindings {
		out[i] = b.name
	}
	return out
}

/*─────────────────────────────── resolver ─────────────────────────────────*/

// Resolve merges defaults, the config file, and the environment into a
// Snapshot.  The only errors are *ConfigurationError values.
func Resolve(ctx context.Context, opts Options) (Snapshot, Diagnostics, error) {
	var diag Diagnostics

	path := opts.File
	if path == "" {
		path = DefaultFile
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Snapshot{}, diag, &ConfigurationError{Key: "defaults", Err: err}
	}

	k = mergeFile(k, path, &diag)

	applied, err := loadEnv(k)
	if err != nil {
		return Snapshot{}, diag, err
	}

	cfg, err := decode(k)
	if err != nil {
		return Snapshot{}, diag, &ConfigurationError{Key: invalidKey(err, "config"), Err: err}
	}

	snap := Snapshot{
		Username:      cfg.DefaultUser.Username,
		Credential:    cfg.DefaultUser.PasswordHash,
		SSHPublicKey:  cfg.SSH.PublicKey,
		ServerHost:    cfg.Server.Host,
		ServerPort:    cfg.Server.Port,
		StorageLayout: cfg.Storage.LayoutName,
		Variant:       cfg.Render.Variant,
		Source:        path,
		Logging:       cfg.Logging,
		GeoIPDB:       cfg.Server.GeoIPDB,
	}
	inactive := "DEFAULT_PASSWORD"
	if snap.Variant == VariantUserCreate {
		snap.Credential = cfg.DefaultUser.Password
		inactive = "DEFAULT_PASSWORD_HASH"
	}

	if snap.Credential, err = resolveSecret(ctx, opts.Secrets, credentialKey(snap.Variant), snap.Credential); err != nil {
		return Snapshot{}, diag, err
	}
	if snap.SSHPublicKey, err = resolveSecret(ctx, opts.Secrets, "ssh.public_key", snap.SSHPublicKey); err != nil {
		return Snapshot{}, diag, err
	}

	for _, b := range envBindings {
		if b.name != inactive && slices.Contains(applied, b.name) {
			diag.EnvApplied = append(diag.EnvApplied, b.name)
		}
	}
	diag.Warnings = append(diag.Warnings, securityWarnings(snap)...)

	return snap, diag, nil
}

/*──────────────────────────── file layer ──────────────────────────────────*/

// mergeFile returns k with the file layer applied, or k untouched when
// the file is missing or unusable.
func mergeFile(k *koanf.Koanf, path string, diag *Diagnostics) *koanf.Koanf {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		diag.Notes = append(diag.Notes,
			fmt.Sprintf("config file %s not found; using environment variables and defaults", path))
		return k
	}

	fk := koanf.New(".")
	if err := fk.Load(file.Provider(path), parserFor(path)); err != nil {
		diag.Warnings = append(diag.Warnings,
			fmt.Sprintf("config file %s could not be loaded, using defaults: %v", path, err))
		return k
	}

	merged := k.Copy()
	if err := merged.Merge(fk); err != nil {
		diag.Warnings = append(diag.Warnings,
			fmt.Sprintf("config file %s could not be merged, using defaults: %v", path, err))
		return k
	}
	if _, err := decode(merged); err != nil {
		diag.Warnings = append(diag.Warnings,
			fmt.Sprintf("config file %s has invalid %s, using defaults: %v", path, invalidKey(err, "values"), err))
		return k
	}

	diag.Notes = append(diag.Notes, fmt.Sprintf("config loaded from %s", path))
	return merged
}

// parserFor picks the koanf parser by extension.  Anything that is not
// YAML is read as JSON.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return json.Parser()
	}
}

/*──────────────────────────── env layer ───────────────────────────────────*/

// loadEnv overlays the bound environment variables onto k and returns the
// names that carried a value.
func loadEnv(k *koanf.Koanf) ([]string, error) {
	keys := make(map[string]string, len(envBindings))
	for _, b := range envBindings {
		keys[b.name] = b.key
	}

	var (
		applied []string
		portErr error
	)
	provider := env.ProviderWithValue("", ".", func(name, value string) (string, interface{}) {
		key, ok := keys[name]
		if !ok || value == "" {
			return "", nil
		}
		if key == "server.port" {
			port, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				portErr = err
				return "", nil
			}
			applied = append(applied, name)
			return key, port
		}
		applied = append(applied, name)
		return key, value
	})

	if err := k.Load(provider, nil); err != nil {
		return nil, &ConfigurationError{Key: "environment", Err: err}
	}
	if portErr != nil {
		return nil, &ConfigurationError{Key: "SERVER_PORT", Err: portErr}
	}
	return applied, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := validateStruct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func credentialKey(v Variant) string {
	if v == VariantUserCreate {
		return "default_user.password"
	}
	return "default_user.password_hash"
}

func resolveSecret(ctx context.Context, sr SecretResolver, key, value string) (string, error) {
	ref, ok := strings.CutPrefix(value, SecretPrefix)
	if !ok {
		return value, nil
	}
	if sr == nil {
		return "", &ConfigurationError{Key: key, Err: errors.New("secret reference set but no secret store is configured (VAULT_ADDR)")}
	}
	secret, err := sr.Secret(ctx, ref)
	if err != nil {
		return "", &ConfigurationError{Key: key, Err: err}
	}
	return secret, nil
}

// cryptHash matches the crypt(3) ids Subiquity accepts: MD5, bcrypt,
// SHA-256, SHA-512, and yescrypt.
var cryptHash = regexp.MustCompile(`^\$(1|2[abxy]|5|6|y|gy|7)\$`)

func securityWarnings(s Snapshot) []string {
	var out []string

	switch {
	case s.Credential == s.Variant.Placeholder() || s.Credential == knownBadPassword:
		out = append(out, fmt.Sprintf(
			"default password in use; set %s in the config file or %s",
			credentialKey(s.Variant), credentialEnv(s.Variant)))
	case s.Variant == VariantAutoinstall && !cryptHash.MatchString(s.Credential):
		out = append(out, "default_user.password_hash does not look like a crypt(3) hash; the installer will reject it")
	}

	switch {
	case s.SSHPublicKey == SSHKeyPlaceholder:
		out = append(out, "default SSH key in use; set ssh.public_key in the config file or SSH_PUBLIC_KEY")
	default:
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(s.SSHPublicKey)); err != nil {
			out = append(out, fmt.Sprintf("ssh.public_key does not parse as an authorized key: %v", err))
		}
	}
	return out
}

func credentialEnv(v Variant) string {
	if v == VariantUserCreate {
		return "DEFAULT_PASSWORD"
	}
	return "DEFAULT_PASSWORD_HASH"
}

// SSHKeyFingerprint returns the SHA256 fingerprint of the configured key,
// or "" when it does not parse.
func (s Snapshot) SSHKeyFingerprint() string {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(s.SSHPublicKey))
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(pub)
}
