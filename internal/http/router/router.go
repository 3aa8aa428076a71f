// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctrl "github.com/dropDatabas3/littlejohn/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/littlejohn/internal/http/controllers/health"
	oidcctrl "github.com/dropDatabas3/littlejohn/internal/http/controllers/oidc"
	httperrors "github.com/dropDatabas3/littlejohn/internal/http/errors"
	mw "github.com/dropDatabas3/littlejohn/internal/http/middlewares"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Authorize *authctrl.AuthorizeController
	Callback  *authctrl.CallbackController
	JWKS      *oidcctrl.JWKSController
	Health    *healthctrl.Controller
}

// New construye el router con middlewares base y el contrato de boundary:
// ruta desconocida → 404, método no permitido en ruta definida → 405.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	r.Get("/authorize", deps.Authorize.Redirect)
	r.Post("/callback", deps.Callback.Callback)
	r.Get("/.well-known/jwks.json", deps.JWKS.Get)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return mw.Chain(r,
		mw.WithRequestContext(),
		mw.WithRecover(),
		mw.WithSecurityHeaders(),
	)
}
