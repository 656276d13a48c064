package web

import (
	"errors"
	"net/http"

	"github.com/comigor/leo-go/internal/auth"
	"github.com/comigor/leo-go/internal/logger"
	"github.com/comigor/leo-go/internal/session"
)

type loginView struct {
	Username string
	Error    string
}

type chatView struct {
	Username string
	session.Snapshot
}

func render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		logger.L.Error("render failed", "template", name, "error", err)
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.cookie.CookieName); err == nil {
		if _, ok := s.gate.Lookup(c.Value); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	render(w, http.StatusOK, "login.html", loginView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		render(w, http.StatusBadRequest, "login.html", loginView{Error: "Invalid form."})
		return
	}
	username := r.PostFormValue("username")
	id, err := s.gate.SignIn(username, r.PostFormValue("password"))
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Sign-in failed, please try again."
		if errors.Is(err, auth.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
			msg = "Invalid username or password."
		}
		render(w, status, "login.html", loginView{Username: username, Error: msg})
		return
	}

	s.sessions.Open(id.Token, id.UserID)
	s.setCookie(w, id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout tears down the session. The cookie is cleared even when the
// gate no longer knows the token, so the browser always ends up signed out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.cookie.CookieName); err == nil && c.Value != "" {
		s.sessions.Close(c.Value)
		if err := s.gate.SignOut(c.Value); err != nil {
			logger.L.Warn("sign-out failed", "error", err)
		}
	}
	s.clearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	m := managerFrom(r.Context())
	render(w, http.StatusOK, "chat.html", chatView{
		Username: identityFrom(r.Context()).Username,
		Snapshot: m.Snapshot(),
	})
}

// handleFormSend is the no-script path for sending a message.
func (s *Server) handleFormSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	m := managerFrom(r.Context())
	if err := m.SetComposer(r.PostFormValue("message")); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if err := m.Send(r.Context()); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFormSidebar(w http.ResponseWriter, r *http.Request) {
	managerFrom(r.Context()).ToggleSidebar()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
