package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/internal/auth/service"
	"github.com/pixelgrove/lensgate/internal/auth/store"
	"github.com/pixelgrove/lensgate/pkg/httpx"
	"github.com/pixelgrove/lensgate/pkg/slogx"

	_ "github.com/pixelgrove/lensgate/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	gate         *Gate
	policy       httpx.CookiePolicy
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	SessionService *service.SessionService
	UserService    *service.UserService
}

func NewRouter(
	gate *Gate,
	policy httpx.CookiePolicy,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		gate:         gate,
		policy:       policy,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Pixelgrove Auth Service API
//	@version		0.1.0
//	@description	Cookie-session authentication for the Pixelgrove portfolio. Access and refresh tokens are
//	@description	HS256 JWTs delivered exclusively as HttpOnly cookies; mutating requests additionally carry a
//	@description	CSRF token in the X-CSRF-Token header, validated against a keyed hash bound into the session.
//
//	@contact.name				Pixelgrove
//	@contact.url				https://github.com/pixelgrove/lensgate
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	h := &SessionHandler{
		SessionService: r.SessionService,
		Policy:         r.policy,
	}

	// POST /login - strict per-IP limit, plus a second track that only
	// counts rejected attempts, so a noisy attacker is cut off well before
	// the per-account lockout horizon.
	r.Mux.Handle("POST /v1/session/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.FailureLimitMiddleware(httpx.FailureLimit, httpx.IPKeyExtractor),
		),
	)

	// POST /refresh - strict limit; an honest client refreshes rarely.
	r.Mux.Handle("POST /v1/session/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /logout - needs a live session so the CSRF check applies;
	// a cross-site attacker must not be able to log users out.
	r.Mux.Handle("POST /v1/session/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.gate.Protect(domain.RoleViewer),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// GET /session - who am I; any authenticated role.
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleCurrent),
			r.gate.Protect(domain.RoleViewer),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	admin := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			r.gate.Protect(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/users", admin(h.HandleList))
	r.Mux.Handle("POST /v1/users", admin(h.HandleCreate))
	r.Mux.Handle("DELETE /v1/users/{id}", admin(h.HandleDelete))
	r.Mux.Handle("PUT /v1/users/{id}/password", admin(h.HandleUpdatePassword))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
