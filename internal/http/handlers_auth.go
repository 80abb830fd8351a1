package http

import (
	"context"
	"net/http"
	"time"

	"finanzas/internal/auth"
	applog "finanzas/internal/log"
)

type sessionView struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	s.startSession(w, r, applog.OpSignUp, http.StatusCreated, s.auth.SignUp)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	s.startSession(w, r, applog.OpSignIn, http.StatusOK, s.auth.SignIn)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, op string, status int,
	open func(ctx context.Context, email, password string) (auth.Session, error)) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, op, err)
		return
	}
	sess, err := open(r.Context(), p.Get("email"), p.Get("password"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Session opened",
		applog.FieldOperation, op, applog.FieldUserID, sess.UserID)

	http.SetCookie(w, s.sessionCookie(sess.Token, sess.ExpiresAt))
	NewResponse().
		Status(status).
		TriggerSessionChanged(true).
		JSON(sessionView{Token: sess.Token, UserID: sess.UserID, Email: sess.Email, ExpiresAt: sess.ExpiresAt}).
		Write(w)
}

// handleSignOut drops the session if any and always clears the cookie.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if tok := sessionToken(r); tok != "" {
		if err := s.auth.SignOut(r.Context(), tok); err != nil {
			s.fail(w, r, applog.OpSignOut, err)
			return
		}
	}
	c := s.sessionCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	NewResponse().Status(http.StatusNoContent).TriggerSessionChanged(false).Write(w)
}

func (s *Server) sessionCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
