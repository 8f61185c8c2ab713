package cloudinit

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yanizio/autoinstall/internal/config"
	"github.com/yanizio/autoinstall/internal/metrics"
)

func testSnapshot(v config.Variant) config.Snapshot {
	return config.Snapshot{
		Username:      "ubuntu",
		Credential:    "$6$saltsalt$hash",
		SSHPublicKey:  "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAITest test@example.com",
		ServerHost:    "0.0.0.0",
		ServerPort:    8080,
		StorageLayout: "lvm",
		Variant:       v,
	}
}

func TestNew(t *testing.T) {
	r, err := New(config.VariantAutoinstall)
	require.NoError(t, err)
	assert.Equal(t, config.VariantAutoinstall, r.Variant())

	r, err = New(config.VariantUserCreate)
	require.NoError(t, err)
	assert.Equal(t, config.VariantUserCreate, r.Variant())

	_, err = New("kickstart")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown render variant")
}

func TestMetaData_SameForBothVariants(t *testing.T) {
	for _, v := range []config.Variant{config.VariantAutoinstall, config.VariantUserCreate} {
		t.Run(string(v), func(t *testing.T) {
			r, err := New(v)
			require.NoError(t, err)

			out, err := r.MetaData("web01")
			require.NoError(t, err)
			assert.Equal(t, "instance-id: web01\nlocal-hostname: web01\n", string(out))
		})
	}
}

func TestAutoinstall_UserData(t *testing.T) {
	snap := testSnapshot(config.VariantAutoinstall)

	content, err := Autoinstall{}.UserData(snap, "web01")
	require.NoError(t, err)

	// Should start with cloud-config header
	require.True(t, strings.HasPrefix(string(content), "#cloud-config\n"))

	var wrapper CloudConfigWrapper
	require.NoError(t, yaml.Unmarshal(content[len("#cloud-config\n"):], &wrapper))

	ai := wrapper.AutoInstall
	assert.Equal(t, 1, ai.Version)
	assert.Equal(t, "web01", ai.Identity.Hostname)
	assert.Equal(t, "ubuntu", ai.Identity.Username)
	assert.Equal(t, snap.Credential, ai.Identity.Password)
	assert.True(t, ai.SSH.InstallServer)
	assert.Equal(t, []string{snap.SSHPublicKey}, ai.SSH.AuthorizedKeys)
	assert.Equal(t, "lvm", ai.Storage.Layout.Name)
	assert.ElementsMatch(t, []string{"openssh-server", "curl", "wget"}, ai.Packages)
	assert.Equal(t, []string{"systemctl enable ssh", "systemctl start ssh"}, ai.RunCmd)
}

func TestAutoinstall_HostileVMNameStaysScalar(t *testing.T) {
	snap := testSnapshot(config.VariantAutoinstall)
	name := "evil\n  username: root"

	content, err := Autoinstall{}.UserData(snap, name)
	require.NoError(t, err)

	var wrapper CloudConfigWrapper
	require.NoError(t, yaml.Unmarshal(content[len("#cloud-config\n"):], &wrapper))
	assert.Equal(t, name, wrapper.AutoInstall.Identity.Hostname)
	assert.Equal(t, "ubuntu", wrapper.AutoInstall.Identity.Username)
}

func TestUserCreate_UserData(t *testing.T) {
	snap := testSnapshot(config.VariantUserCreate)
	snap.Credential = "s3cret-cleartext"

	encoded, err := UserCreate{}.UserData(snap, "web01")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(string(encoded))
	require.NoError(t, err, "user-create output must be base64")
	require.True(t, strings.HasPrefix(string(raw), "#cloud-config\n"))

	var doc UserCreateConfig
	require.NoError(t, yaml.Unmarshal(raw, &doc))

	assert.Equal(t, "off", doc.Growpart.Mode)
	assert.Equal(t, "en_US.UTF-8", doc.Locale)
	assert.True(t, doc.PreserveHostname)
	assert.False(t, doc.ResizeRootfs)
	assert.True(t, doc.SSHPwauth)

	require.Len(t, doc.Users, 1)
	u := doc.Users[0]
	assert.Equal(t, "deploy", u.Name)
	assert.Equal(t, "web01", u.Gecos)
	assert.Equal(t, []string{"adm", "cdrom", "dip", "lxd", "plugdev", "sudo"}, u.Groups)
	assert.False(t, u.LockPasswd)
	assert.Equal(t, "s3cret-cleartext", u.PlainTextPasswd)
	assert.Equal(t, "/bin/bash", u.Shell)
	assert.Equal(t, []string{snap.SSHPublicKey}, u.SSHAuthorizedKeys)
}

func TestRender_IsPure(t *testing.T) {
	snap := testSnapshot(config.VariantAutoinstall)
	for _, r := range []Renderer{Autoinstall{}, UserCreate{}} {
		a, err := r.UserData(snap, "db02")
		require.NoError(t, err)
		b, err := r.UserData(snap, "db02")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestRender_CountsDocuments(t *testing.T) {
	c := metrics.DocumentsRendered.WithLabelValues(DocMetaData, string(config.VariantUserCreate))
	before := testutil.ToFloat64(c)

	_, err := UserCreate{}.MetaData("web01")
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
