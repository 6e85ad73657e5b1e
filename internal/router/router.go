package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/claim"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/oauth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/transfer"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user"
)

// Deps holds everything the HTTP surface needs. OAuth is nil when no
// identity provider is configured.
type Deps struct {
	Logger      *zap.SugaredLogger
	Resolver    auth.Resolver
	CORSOrigins []string
	AuthLimit   RateLimitConfig
	Timeout     time.Duration

	Users     *user.Handler
	Settings  *setting.Handler
	Groups    *group.Handler
	Claims    *claim.Handler
	Transfers *transfer.Handler
	OAuth     *oauth.Handler
}

// RegisterRoutes builds the chi router for the whole API.
func RegisterRoutes(d Deps) http.Handler {
	r := chi.NewRouter()

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	authn := auth.Middleware(d.Resolver, d.Logger)

	r.Route("/auth", func(r chi.Router) {
		r.Use(RateLimiter(d.AuthLimit))
		r.Post("/signup", d.Users.Signup)
		r.Post("/login", d.Users.Login)
		r.With(authn).Post("/logout", d.Users.Logout)
		if d.OAuth != nil {
			r.Get("/oauth/login", d.OAuth.Login)
			r.Get("/oauth/callback", d.OAuth.Callback)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", d.Users.Profile)
			r.Patch("/complete", d.Users.CompleteSetup)
			r.Patch("/wallet", d.Users.UpdateWallet)
			r.Get("/settings", d.Settings.List)
			r.Put("/settings", d.Settings.Replace)
			r.Delete("/delete", d.Users.Delete)
			r.Post("/user-added-to-smart-contract", d.Users.AddedToSmartContract)
			r.With(auth.RequireCompletedAccount).Post("/transfer", d.Transfers.Create)
			r.With(auth.RequireCompletedAccount).Get("/transfers", d.Transfers.List)
			r.Get("/email/{email}", d.Users.ByEmail)
			r.Get("/{userID}", d.Users.ByID)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCompletedAccount)

			r.Route("/claims", func(r chi.Router) {
				r.Get("/", d.Claims.List)
				r.Post("/", d.Claims.Create)
				r.Get("/{claimID}", d.Claims.Get)
				r.Patch("/{claimID}", d.Claims.Edit)
				r.Post("/{claimID}/approve", d.Claims.Approve)
				r.Post("/{claimID}/deny", d.Claims.Deny)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", d.Groups.Get)
				r.Post("/", d.Groups.Create)
				r.Post("/subgroups/{name}/join", d.Groups.Join)
			})
		})
	})

	return r
}
