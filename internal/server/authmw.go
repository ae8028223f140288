package server

import (
	"context"
	"net/http"

	"relaydash/internal/sessions"
)

type ctxKey string

const ctxSession ctxKey = "session"

const loginRequiredNotice = "You must be logged in to view this page."

const maxFlashes = 5

// withSession resolves the signed session cookie to a server-side session
// and stores it in the request context. Requests without a usable cookie get
// an anonymous session holding only the notices from the flash cookie.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *sessions.Session
		if id, ok := s.codec.DecodeFromRequest(r); ok {
			if stored, ok := s.sessions.Get(id); ok {
				sess = &stored
			}
		}
		if sess == nil {
			sess = &sessions.Session{Flashes: s.codec.DecodeFlashes(r)}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSession, sess)))
	})
}

// requireLogin redirects to /login with a notice unless the session is logged in.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFrom(r).LoggedIn {
			s.flash(w, r, loginRequiredNotice)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(r *http.Request) *sessions.Session {
	if sess, ok := r.Context().Value(ctxSession).(*sessions.Session); ok {
		return sess
	}
	return &sessions.Session{}
}

// saveSession persists the request's session and (re)issues its cookie.
// Anonymous sessions are never stored; their notices go to the flash cookie.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if len(sess.Flashes) > maxFlashes {
		sess.Flashes = sess.Flashes[len(sess.Flashes)-maxFlashes:]
	}
	if !sess.LoggedIn {
		if err := s.codec.EncodeFlashes(w, sess.Flashes); err != nil {
			s.log.Error().Err(err).Msg("flash cookie encode failed")
		}
		return
	}
	saved, err := s.sessions.Upsert(*sess)
	if err != nil {
		s.log.Error().Err(err).Msg("session persist failed")
	}
	*sess = saved
	if err := s.codec.EncodeToCookie(w, saved.ID); err != nil {
		s.log.Error().Err(err).Msg("session cookie encode failed")
	}
}

// flash queues msg for the next rendered page.
func (s *Server) flash(w http.ResponseWriter, r *http.Request, msg string) {
	sessionFrom(r).AddFlash(msg)
	s.saveSession(w, r)
}
