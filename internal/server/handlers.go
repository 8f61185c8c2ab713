package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/autoinstall/internal/cloudinit"
	"github.com/yanizio/autoinstall/internal/config"
	"github.com/yanizio/autoinstall/internal/requestinfo"
)

type handlers struct {
	snap   config.Snapshot
	render cloudinit.Renderer
	log    *zap.SugaredLogger
}

/*──────────────────────────── documents ───────────────────────────────────*/

func (h *handlers) userData(w http.ResponseWriter, r *http.Request) {
	vm := chi.URLParam(r, "vmname")
	out, err := h.render.UserData(h.snap, vm)
	h.writeDocument(w, r, cloudinit.DocUserData, vm, out, err)
}

func (h *handlers) metaData(w http.ResponseWriter, r *http.Request) {
	vm := chi.URLParam(r, "vmname")
	out, err := h.render.MetaData(vm)
	h.writeDocument(w, r, cloudinit.DocMetaData, vm, out, err)
}

func (h *handlers) writeDocument(w http.ResponseWriter, r *http.Request, doc, vm string, out []byte, err error) {
	if err != nil {
		fields := []any{"document", doc, "vm", vm, "err", err}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			fields = append(fields, "request_id", info.ID)
		}
		h.log.Errorw("render failed", fields...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

/*──────────────────────────── status ──────────────────────────────────────*/

// Health is the /health body.
type Health struct {
	Status       string `json:"status"`
	ConfigSource string `json:"config_source"`
}

// Status is the /config/status body.  It reports whether secrets are
// configured, never their values.
type Status struct {
	Username           string `json:"username"`
	PasswordConfigured string `json:"password_configured"`
	SSHKeyConfigured   string `json:"ssh_key_configured"`
	ServerHost         string `json:"server_host"`
	ServerPort         int    `json:"server_port"`
	StorageLayout      string `json:"storage_layout"`
	RenderVariant      string `json:"render_variant"`
}

// NewStatus summarises s without exposing the credential or SSH key.
func NewStatus(s config.Snapshot) Status {
	return Status{
		Username:           s.Username,
		PasswordConfigured: yesNo(s.CredentialConfigured()),
		SSHKeyConfigured:   yesNo(s.SSHKeyConfigured()),
		ServerHost:         s.ServerHost,
		ServerPort:         s.ServerPort,
		StorageLayout:      s.StorageLayout,
		RenderVariant:      string(s.Variant),
	}
}

// ConfigSource names the layers the snapshot was built from.
func ConfigSource(s config.Snapshot) string {
	src := s.Source
	if src == "" {
		src = config.DefaultFile
	}
	return filepath.Base(src) + " + environment variables"
}

func yesNo(ok bool) string {
	if ok {
		return "Yes"
	}
	return "No (using default)"
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, Health{Status: "healthy", ConfigSource: ConfigSource(h.snap)})
}

func (h *handlers) configStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, NewStatus(h.snap))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
