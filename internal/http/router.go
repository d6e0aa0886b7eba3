package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/beemart/server/internal/auth"
	"github.com/beemart/server/internal/http/handlers"
	"github.com/beemart/server/internal/middleware"
)

// RouterDeps carries everything the router mounts
type RouterDeps struct {
	Logger         zerolog.Logger
	Auth           *handlers.AuthHandler
	OAuth          *handlers.OAuthHandler
	Health         http.Handler
	Metrics        http.Handler
	Guard          *auth.AdminGuard
	Catalog        map[string]handlers.Mounter
	AllowedOrigins []string
	// AuthRequestsPerMinute bounds /v1/auth/* per client IP; 0 disables it.
	AuthRequestsPerMinute int
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(d RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(d.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if d.Health != nil {
		r.Method(http.MethodGet, "/health", d.Health)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/v1/auth", func(r chi.Router) {
		if d.AuthRequestsPerMinute > 0 {
			r.Use(httprate.Limit(d.AuthRequestsPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByRealIP),
				httprate.WithLimitHandler(middleware.RateLimitExceeded),
			))
		}
		r.Post("/register", d.Auth.HandleRegister)
		r.Post("/resend-otp", d.Auth.HandleResendOTP)
		r.Post("/verify-email", d.Auth.HandleVerifyEmail)
		r.Post("/login", d.Auth.HandleLogin)
	})

	if d.OAuth != nil {
		r.Route("/auth/google", func(r chi.Router) {
			r.Get("/login", d.OAuth.HandleLogin)
			r.Get("/callback", d.OAuth.HandleCallback)
		})
	}

	// Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(d.Guard))
		r.Get("/v1/my-profile", d.Auth.HandleMyProfile)
	})

	requireAdmin := middleware.RequireAdmin(d.Guard)
	for path, resource := range d.Catalog {
		r.Mount(path, resource.Routes(requireAdmin))
	}

	return r
}
