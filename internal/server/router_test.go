// internal/server/router_test.go
//
// End-to-end tests for the chi router through httptest.  Each test builds
// a router from a literal Snapshot, so no files or environment variables
// are involved.
//
// Run: go test ./internal/server -v

package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/autoinstall/internal/cloudinit"
	"github.com/yanizio/autoinstall/internal/config"
)

const (
	testCredential = "$6$saltsalt$verysecrethash"
	testKey        = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIsecretkeymaterial ops@example.com"
)

func newTestRouter(t *testing.T, v config.Variant, cred string) http.Handler {
	t.Helper()
	r, err := cloudinit.New(v)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	snap := config.Snapshot{
		Username:      "ubuntu",
		Credential:    cred,
		SSHPublicKey:  testKey,
		ServerHost:    "0.0.0.0",
		ServerPort:    8080,
		StorageLayout: "direct",
		Variant:       v,
		Source:        "/etc/autoinstall/config.json",
	}
	return NewRouter(Deps{Snapshot: snap, Renderer: r})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRouter_MetaData(t *testing.T) {
	h := newTestRouter(t, config.VariantAutoinstall, testCredential)

	rr := get(t, h, "/vm/web01/meta-data")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain" {
		t.Fatalf("content-type = %q", ct)
	}
	if rr.Body.String() != "instance-id: web01\nlocal-hostname: web01\n" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestRouter_UserDataAutoinstall(t *testing.T) {
	h := newTestRouter(t, config.VariantAutoinstall, testCredential)

	rr := get(t, h, "/vm/web01/user-data")

	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "text/plain" {
		t.Fatalf("status = %d, content-type = %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	var doc cloudinit.CloudConfigWrapper
	if err := yaml.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if doc.AutoInstall.Identity.Hostname != "web01" || doc.AutoInstall.Identity.Username != "ubuntu" {
		t.Fatalf("identity = %+v", doc.AutoInstall.Identity)
	}
}

func TestRouter_UserDataUserCreate(t *testing.T) {
	h := newTestRouter(t, config.VariantUserCreate, "cleartext-pw")

	rr := get(t, h, "/vm/db02/user-data")

	raw, err := base64.StdEncoding.DecodeString(rr.Body.String())
	if err != nil {
		t.Fatalf("body is not base64: %v", err)
	}
	var doc cloudinit.UserCreateConfig
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(doc.Users) != 1 || doc.Users[0].Gecos != "db02" || doc.Users[0].PlainTextPasswd != "cleartext-pw" {
		t.Fatalf("users = %+v", doc.Users)
	}
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, config.VariantAutoinstall, testCredential)

	rr := get(t, h, "/health")

	if rr.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("content-type = %q", rr.Header().Get("Content-Type"))
	}
	var got Health
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	want := Health{Status: "healthy", ConfigSource: "config.json + environment variables"}
	if got != want {
		t.Fatalf("health = %+v, want %+v", got, want)
	}
}

func TestRouter_ConfigStatusHidesSecrets(t *testing.T) {
	h := newTestRouter(t, config.VariantAutoinstall, testCredential)

	rr := get(t, h, "/config/status")
	body := rr.Body.String()

	if strings.Contains(body, testCredential) || strings.Contains(body, "verysecrethash") {
		t.Fatalf("status leaks credential: %s", body)
	}
	if strings.Contains(body, "secretkeymaterial") {
		t.Fatalf("status leaks ssh key: %s", body)
	}

	var got Status
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	want := Status{
		Username:           "ubuntu",
		PasswordConfigured: "Yes",
		SSHKeyConfigured:   "Yes",
		ServerHost:         "0.0.0.0",
		ServerPort:         8080,
		StorageLayout:      "direct",
		RenderVariant:      "autoinstall",
	}
	if got != want {
		t.Fatalf("status = %+v, want %+v", got, want)
	}
}

func TestRouter_ConfigStatusPlaceholders(t *testing.T) {
	h := newTestRouter(t, config.VariantUserCreate, config.PasswordPlaceholder)

	var got Status
	if err := json.Unmarshal(get(t, h, "/config/status").Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.PasswordConfigured != "No (using default)" {
		t.Fatalf("password_configured = %q", got.PasswordConfigured)
	}
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	h := newTestRouter(t, config.VariantAutoinstall, testCredential)

	if rr := get(t, h, "/vm/web01/vendor-data"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d, want 404", rr.Code)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rr.Code)
	}
}

func TestRouter_MetricsAndRequestID(t *testing.T) {
	h := newTestRouter(t, config.VariantAutoinstall, testCredential)
	_ = get(t, h, "/vm/web01/meta-data")

	rr := get(t, h, "/metrics")

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "cloudinit_documents_rendered_total") {
		t.Fatalf("metrics missing render counter")
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id not echoed")
	}
}

func TestAddr(t *testing.T) {
	if got := Addr("0.0.0.0", 8080); got != "0.0.0.0:8080" {
		t.Fatalf("Addr = %q", got)
	}
	if got := Addr("::1", 9090); got != "[::1]:9090" {
		t.Fatalf("Addr = %q", got)
	}
}
