// Package web is the HTTP surface of the site backend: form submission
// endpoints, the admin API and static file serving.
package web

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/OneTus27/site/internal/ratelimit"
)

// Bot is the slice of the notification bot the handlers need.
type Bot interface {
	SendMessage(ctx context.Context, text string) bool
	UpdatePassword(newSecret string) error
}

type Server struct {
	bot       Bot
	limiter   ratelimit.Limiter
	adminKey  string
	staticDir string
	log       *zerolog.Logger
}

func NewServer(bot Bot, limiter ratelimit.Limiter, adminKey, staticDir string, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "web").Logger()
	return &Server{
		bot:       bot,
		limiter:   limiter,
		adminKey:  adminKey,
		staticDir: staticDir,
		log:       &compLog,
	}
}

// Routes builds the router. Static pages are plain files; the backend only
// exposes JSON endpoints.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/submit-feedback", s.handleFeedback)
	r.Post("/submit-order", s.handleOrder)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdminKey)
		r.Post("/update_password", s.handleUpdatePassword)
	})

	if s.staticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir)))
		r.Handle("/static/*", fs)
		r.Get("/favicon.ico", func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, filepath.Join(s.staticDir, "favicon", "favicon.ico"))
		})
	}

	return r
}
