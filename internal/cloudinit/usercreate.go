package cloudinit

import (
	"encoding/base64"

	"github.com/yanizio/autoinstall/internal/config"
)

// UserCreateConfig is a plain cloud-config that provisions one login user
// on an already installed image.
type UserCreateConfig struct {
	Growpart         GrowpartConfig `yaml:"growpart"`
	Locale           string         `yaml:"locale"`
	PreserveHostname bool           `yaml:"preserve_hostname"`
	ResizeRootfs     bool           `yaml:"resize_rootfs"`
	SSHPwauth        bool           `yaml:"ssh_pwauth"`
	Users            []UserConfig   `yaml:"users"`
}

// GrowpartConfig controls partition growth on first boot.
type GrowpartConfig struct {
	Mode string `yaml:"mode"`
}

// UserConfig is one entry of the cloud-config `users` list.
type UserConfig struct {
	Name              string   `yaml:"name"`
	Gecos             string   `yaml:"gecos"`
	Groups            []string `yaml:"groups"`
	LockPasswd        bool     `yaml:"lock_passwd"`
	PlainTextPasswd   string   `yaml:"plain_text_passwd"`
	Shell             string   `yaml:"shell"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys"`
}

// DeployUser is the account every user-create document provisions.
const DeployUser = "deploy"

var deployGroups = []string{"adm", "cdrom", "dip", "lxd", "plugdev", "sudo"}

// UserCreate renders a cloud-config creating the deploy user, base64
// encoded.  The snapshot credential is emitted as a cleartext password.
type UserCreate struct{}

func (UserCreate) Variant() config.Variant { return config.VariantUserCreate }

// UserData builds the document for vmName and returns it base64 encoded
// (standard alphabet, padded, no line breaks).
func (u UserCreate) UserData(s config.Snapshot, vmName string) ([]byte, error) {
	doc := UserCreateConfig{
		Growpart:         GrowpartConfig{Mode: "off"},
		Locale:           "en_US.UTF-8",
		PreserveHostname: true,
		ResizeRootfs:     false,
		SSHPwauth:        true,
		Users: []UserConfig{{
			Name:              DeployUser,
			Gecos:             vmName,
			Groups:            deployGroups,
			LockPasswd:        false,
			PlainTextPasswd:   s.Credential,
			Shell:             "/bin/bash",
			SSHAuthorizedKeys: []string{s.SSHPublicKey},
		}},
	}

	raw, err := encode(cloudConfigHeader, doc)
	if err != nil {
		return observe(DocUserData, u.Variant(), nil, err)
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return observe(DocUserData, u.Variant(), out, nil)
}

func (u UserCreate) MetaData(vmName string) ([]byte, error) {
	return renderMetaData(u.Variant(), vmName)
}
