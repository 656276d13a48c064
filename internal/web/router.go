// Package web renders the chat for the browser and exposes the session
// over a small JSON API and a websocket feed of snapshots.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/comigor/leo-go/internal/auth"
	"github.com/comigor/leo-go/internal/config"
	"github.com/comigor/leo-go/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Options are the collaborators the HTTP layer needs.
type Options struct {
	Gate     *auth.Gate
	Sessions *session.Registry
	Auth     config.AuthConfig
	Tracer   trace.Tracer // optional
}

// Server holds the handlers. It keeps no conversation state of its own.
type Server struct {
	gate     *auth.Gate
	sessions *session.Registry
	cookie   config.AuthConfig
	tracer   trace.Tracer
	upgrader websocket.Upgrader
}

// NewRouter wires HTTP routes to the auth gate and session registry.
func NewRouter(opts Options) http.Handler {
	s := &Server{
		gate:     opts.Gate,
		sessions: opts.Sessions,
		cookie:   opts.Auth,
		tracer:   opts.Tracer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if s.cookie.CookieName == "" {
		s.cookie.CookieName = "leo_session"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.tracer != nil {
		r.Use(s.traceRequests)
	}

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(page chi.Router) {
		page.Use(s.requireSession(redirectToLogin))
		page.Get("/", s.handleChatPage)
		page.Post("/send", s.handleFormSend)
		page.Post("/sidebar", s.handleFormSidebar)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(s.requireSession(unauthorized))
		api.Get("/state", s.handleState)
		api.Put("/composer", s.handleComposer)
		api.Post("/sidebar", s.handleSidebar)
		api.Post("/messages", s.handleSend)
	})

	r.With(s.requireSession(unauthorized)).Get("/ws", s.handleWebSocket)

	return r
}
