package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/ender-portal/internal/api/handlers"
	"github.com/isdelr/ender-portal/internal/auth"
	"github.com/isdelr/ender-portal/internal/services"
	"github.com/isdelr/ender-portal/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(userService services.UserServiceProvider, sessions *auth.SessionManager, pages *web.Renderer, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(sessions.LoadSession)

	userHandler := handlers.NewUserHandler(userService, sessions, pages)

	r.Get("/healthz", handlers.Health)

	r.Get("/", userHandler.LoginPage)
	r.Post("/login", userHandler.Login)
	r.Get("/register", userHandler.RegisterPage)
	r.Post("/register", userHandler.Register)
	r.Get("/logout", userHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession("/"))
		r.Get("/home", userHandler.Home)
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	level := zerolog.InfoLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
