package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/comigor/leo-go/internal/auth"
	"github.com/comigor/leo-go/internal/logger"
	"github.com/comigor/leo-go/internal/session"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	managerKey
)

// requestLogger writes one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.L.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
			),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func unauthorized(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusUnauthorized, "sign in required")
}

// requireSession resolves the cookie into an identity and its session.
// Requests without a valid sign-in are handed to onMissing.
func (s *Server) requireSession(onMissing http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(s.cookie.CookieName)
			if err != nil || c.Value == "" {
				onMissing(w, r)
				return
			}
			id, ok := s.gate.Lookup(c.Value)
			if !ok {
				// Expired sign-ins take their session with them.
				s.sessions.Close(c.Value)
				s.clearCookie(w)
				onMissing(w, r)
				return
			}
			m := s.sessions.GetOrOpen(id.Token, id.UserID)
			ctx := context.WithValue(r.Context(), identityKey, id)
			ctx = context.WithValue(ctx, managerKey, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func managerFrom(ctx context.Context) *session.Manager {
	m, _ := ctx.Value(managerKey).(*session.Manager)
	return m
}

func identityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey).(auth.Identity)
	return id
}

func (s *Server) setCookie(w http.ResponseWriter, id auth.Identity) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.CookieName,
		Value:    id.Token,
		Path:     "/",
		Expires:  id.Expires,
		HttpOnly: true,
		Secure:   s.cookie.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
