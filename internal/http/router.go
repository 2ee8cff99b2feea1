package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/daybookhq/daybook/internal/service"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/pkg/httpx"
	"github.com/daybookhq/daybook/pkg/jwtx"
	"github.com/daybookhq/daybook/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AuthService      *service.AuthService
	FederatedService *service.FederatedService
	TodoService      *service.TodoService

	// ClientURL is where the federated callback redirects the browser back to.
	ClientURL string
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
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
	r.registerAuth()
	r.registerFederated()
	r.registerTodos()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// POST /auth/register - moderate rate limit
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/login - strict rate limit (authentication attempts)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/verify-email-code - strict rate limit (guessing window)
	r.Mux.Handle("POST /auth/verify-email-code",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyEmailCode),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/verify-two-factor - strict rate limit (guessing window)
	r.Mux.Handle("POST /auth/verify-two-factor",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyTwoFactor),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerFederated() {
	h := &GoogleHandler{
		FederatedService: r.FederatedService,
		ClientURL:        r.ClientURL,
	}

	r.Mux.Handle("GET /auth/google",
		httpx.Chain(http.HandlerFunc(h.HandleBegin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /auth/google/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerTodos() {
	h := &TodoHandler{TodoService: r.TodoService}

	authn := httpx.AuthnMiddleware(r.verifier)

	register := func(pattern string, fn http.HandlerFunc) {
		r.Mux.Handle(pattern,
			httpx.Chain(fn,
				authn,
				httpx.RateLimitByUser(httpx.LenientLimit),
			),
		)
	}

	register("POST /todo", h.HandleCreate)
	register("GET /todo", h.HandleList)
	register("GET /todo/{id}", h.HandleGet)
	register("PATCH /todo/{id}", h.HandleUpdate)
	register("DELETE /todo/{id}", h.HandleDelete)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
