package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/autoinstall/internal/cloudinit"
	"github.com/yanizio/autoinstall/internal/config"
	"github.com/yanizio/autoinstall/internal/middleware"
	"github.com/yanizio/autoinstall/internal/requestinfo"
)

// Deps is everything the router needs.  Snapshot is copied in and never
// written afterwards, so handlers read it without locks.
type Deps struct {
	Snapshot config.Snapshot
	Renderer cloudinit.Renderer
	Log      *zap.SugaredLogger
	Geo      *requestinfo.GeoLookup // nil disables GeoIP
}

// Routes lists the public endpoints, relative to the server root.  The
// startup banner prints it.
var Routes = []string{
	"/vm/{vmname}/user-data",
	"/vm/{vmname}/meta-data",
	"/health",
	"/config/status",
	"/metrics",
}

// NewRouter builds the chi router with the middleware chain:
// enrich → access log → recoverer → security headers → handler.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	h := &handlers{snap: d.Snapshot, render: d.Renderer, log: d.Log}

	r := chi.NewRouter()
	r.Use(requestinfo.Enrich(d.Geo))
	r.Use(middleware.AccessLog(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)

	r.Route("/vm/{vmname}", func(r chi.Router) {
		r.Get("/"+cloudinit.DocUserData, h.userData)
		r.Get("/"+cloudinit.DocMetaData, h.metaData)
	})
	r.Get("/health", h.health)
	r.Get("/config/status", h.configStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
