package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

const (
	msgInvalidCredentials = "Invalid login credentials"
	msgEmailNotConfirmed  = "Email not confirmed"
	msgAlreadyRegistered  = "User already registered"
	msgAuthFailed         = "An error occurred during authentication"
	msgCheckEmail         = "Account created. Check your email for the confirmation link."
	msgInvalidLink        = "The confirmation link is invalid or has already been used."
	msgExpiredLink        = "The confirmation link has expired."
)

func setCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}

// safeRedirect accepts only same-origin absolute paths.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return common.DashboardPath
	}
	return target
}

func (s *HTTPServer) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Sign in")
	q := r.URL.Query()
	p.RedirectedFrom = q.Get(common.RedirectedFromParam)
	p.Error = q.Get("error")
	p.Message = q.Get("message")
	s.render(w, r, http.StatusOK, "login.html", p)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	redirectedFrom := r.PostFormValue(common.RedirectedFromParam)

	pair, err := s.identity.SignIn(r.Context(), email, password)
	if err != nil {
		p := s.newPage(r, "Sign in")
		p.Email = email
		p.RedirectedFrom = redirectedFrom

		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, common.ErrorUnauthorized):
			p.Error = msgInvalidCredentials
		case errors.Is(err, common.ErrorEmailNotConfirmed):
			p.Error = msgEmailNotConfirmed
			status = http.StatusForbidden
		default:
			s.logger.Error(r.Context(), "sign in", "error", err)
			p.Error = msgAuthFailed
			status = http.StatusInternalServerError
		}
		s.render(w, r, status, "login.html", p)
		return
	}

	setCookies(w, s.identity.SessionCookies(pair))
	http.Redirect(w, r, safeRedirect(redirectedFrom), http.StatusSeeOther)
}

func (s *HTTPServer) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup.html", s.newPage(r, "Create account"))
}

func (s *HTTPServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	res, err := s.identity.SignUp(r.Context(), email, password)
	if err != nil {
		p := s.newPage(r, "Create account")
		p.Email = email

		status := http.StatusBadRequest
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			p.Error = msgAlreadyRegistered
			status = http.StatusConflict
		case errors.Is(err, common.ErrorValidation):
			p.Error = validationMessage(err)
		default:
			s.logger.Error(r.Context(), "sign up", "error", err)
			p.Error = msgAuthFailed
			status = http.StatusInternalServerError
		}
		s.render(w, r, status, "signup.html", p)
		return
	}

	if res.Pair != nil {
		setCookies(w, s.identity.SessionCookies(res.Pair))
		http.Redirect(w, r, common.DashboardPath, http.StatusSeeOther)
		return
	}

	p := s.newPage(r, "Sign in")
	p.Email = res.User.Email
	p.Message = msgCheckEmail
	s.render(w, r, http.StatusOK, "login.html", p)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.identity.SignOut(r.Context(), credentialsFrom(r).RefreshToken); err != nil {
		s.logger.Warn(r.Context(), "sign out", "error", err)
	}
	setCookies(w, s.identity.ClearSessionCookies())
	http.Redirect(w, r, common.HomePath, http.StatusSeeOther)
}

// handleAuthCallback redeems the code from a confirmation link.
func (s *HTTPServer) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	pair, err := s.identity.ExchangeCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		msg := msgInvalidLink
		switch {
		case errors.Is(err, common.ErrAuthCodeExpired):
			msg = msgExpiredLink
		case errors.Is(err, common.ErrInvalidToken):
		default:
			s.logger.Error(r.Context(), "auth callback", "error", err)
			msg = msgAuthFailed
		}
		v := url.Values{}
		v.Set("error", msg)
		http.Redirect(w, r, common.LoginPath+"?"+v.Encode(), http.StatusSeeOther)
		return
	}

	setCookies(w, s.identity.SessionCookies(pair))
	http.Redirect(w, r, common.DashboardPath, http.StatusSeeOther)
}
