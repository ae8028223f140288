package server

import (
	"net/http"

	"relaydash/internal/observability"
	"relaydash/internal/sessions"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", "Log in", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if !s.users.Verify(username, password) {
		observability.ObserveLogin(false)
		s.log.Info().Str("username", username).Str("remote", r.RemoteAddr).Msg("login rejected")
		s.flash(w, r, "Invalid credentials")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	observability.ObserveLogin(true)

	// A fresh session ID on every login; queued notices carry over.
	sess := sessionFrom(r)
	if sess.ID != "" {
		if err := s.sessions.Delete(sess.ID); err != nil {
			s.log.Warn().Err(err).Msg("drop pre-login session")
		}
	}
	*sess = sessions.Session{LoggedIn: true, Username: username, Flashes: sess.Flashes}
	s.saveSession(w, r)
	s.codec.ClearFlashes(w)
	s.log.Info().Str("username", username).Msg("login")
	http.Redirect(w, r, s.defaultLanding(), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess.ID != "" {
		if err := s.sessions.Delete(sess.ID); err != nil {
			s.log.Warn().Err(err).Msg("session delete failed")
		}
	}
	*sess = sessions.Session{}
	s.codec.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
