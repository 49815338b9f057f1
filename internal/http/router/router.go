package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cargolinq/freight-auth-service/internal/http/handler"
	"github.com/cargolinq/freight-auth-service/internal/http/middleware"
	"github.com/cargolinq/freight-auth-service/internal/http/response"
	"github.com/cargolinq/freight-auth-service/internal/security"
)

type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	MaintenanceHandler *handler.MaintenanceHandler
	JWTManager         *security.JWTManager
	AuthRateLimitRPM   int
	APIRateLimitRPM    int
	EnableOTelHTTP     bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())

	authLimiter := middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
			r.With(authLimiter).Post("/logout", dep.AuthHandler.Logout)
			r.With(middleware.AuthMiddleware(dep.JWTManager), authLimiter).
				Post("/password/reset", dep.AuthHandler.ResetPassword)
		})
		r.With(middleware.AuthMiddleware(dep.JWTManager)).Get("/me", dep.AuthHandler.Me)
	})

	r.Post("/internal/maintenance/sessions/cleanup", dep.MaintenanceHandler.CleanupSessions)

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
