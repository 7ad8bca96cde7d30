package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/timgst1/aegis/internal/audit"
	"github.com/timgst1/aegis/internal/gateway"
	"github.com/timgst1/aegis/internal/httpapi/handlers"
	"github.com/timgst1/aegis/internal/httpapi/middleware"
	"github.com/timgst1/aegis/internal/policy"
)

type Deps struct {
	Gateway *gateway.Gateway
	Store   *policy.Store
	Audit   audit.Recorder
	// Admin guards the policy and audit endpoints; nil disables them.
	Admin *middleware.AdminTokens
	Log   *slog.Logger
}

func NewRouter(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// Ready once at least one policy generation is loaded.
		if deps.Store.Version() == 0 {
			http.Error(w, "no policy loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})

	ah := handlers.AuthorizeHandler{Gateway: deps.Gateway, Audit: deps.Audit, Log: deps.Log}
	r.Post("/v1/authorize", ah.Authorize)

	ph := handlers.PolicyHandler{Store: deps.Store}
	lh := handlers.AuditHandler{Audit: deps.Audit}
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(deps.Admin))

		r.Put("/v1/policies/namespaces/{namespace}/roles/{name}", ph.PutRole)
		r.Delete("/v1/policies/namespaces/{namespace}/roles/{name}", ph.DeleteRole)
		r.Put("/v1/policies/clusterroles/{name}", ph.PutClusterRole)
		r.Delete("/v1/policies/clusterroles/{name}", ph.DeleteClusterRole)
		r.Put("/v1/policies/namespaces/{namespace}/rolebindings/{name}", ph.PutRoleBinding)
		r.Delete("/v1/policies/namespaces/{namespace}/rolebindings/{name}", ph.DeleteRoleBinding)
		r.Put("/v1/policies/clusterrolebindings/{name}", ph.PutClusterRoleBinding)
		r.Delete("/v1/policies/clusterrolebindings/{name}", ph.DeleteClusterRoleBinding)

		r.Get("/v1/audit", lh.Recent)
	})

	return r
}
