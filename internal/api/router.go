package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/paytrack-be/internal/api/handlers"
	"github.com/isdelr/paytrack-be/internal/auth"
	"github.com/isdelr/paytrack-be/internal/config"
	"github.com/isdelr/paytrack-be/internal/services"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	cfg *config.Config,
	tokens *auth.TokenIssuer,
	db handlers.Pinger,
	userService services.UserServiceProvider,
	projectService services.ProjectServiceProvider,
	paymentService services.PaymentServiceProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokens, cfg.IsProduction())
	projectHandler := handlers.NewProjectHandler(projectService, cfg.MaxUploadBytes)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	healthHandler := handlers.NewHealthHandler(db)

	r.Get("/healthz", healthHandler.Check)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(tokens.Middleware).Get("/me", authHandler.Me)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Use(tokens.Middleware)

		r.Get("/", projectHandler.GetAll)
		r.Post("/", projectHandler.Create)
		r.Get("/export", projectHandler.Export)
		r.Post("/import", projectHandler.Import)
		r.Get("/earnings", projectHandler.Earnings)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", projectHandler.Get)
			r.Put("/", projectHandler.Update)
			r.Delete("/", projectHandler.Delete)

			r.Post("/payments", paymentHandler.Add)
			r.Put("/payments/{paymentId}", paymentHandler.UpdateStatus)
			r.Delete("/payments/{paymentId}", paymentHandler.Delete)
		})
	})

	return r
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			ev := log.Info()
			if ww.Status() >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}
