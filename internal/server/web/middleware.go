package web

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/auth"
	"github.com/dmitrijs2005/notekeeper/internal/server/gate"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
	"github.com/go-chi/chi/v5/middleware"
)

func credentialsFrom(r *http.Request) services.Credentials {
	var c services.Credentials
	if ck, err := r.Cookie(common.AccessTokenCookieName); err == nil {
		c.AccessToken = ck.Value
	}
	if ck, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		c.RefreshToken = ck.Value
	}
	return c
}

// gate resolves the caller once per request and applies the gate decision.
// Cookie mutations from the resolution are written in every outcome.
func (s *HTTPServer) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if gate.Exempt(path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		res, err := s.identity.Resolve(ctx, credentialsFrom(r))
		if err != nil {
			s.logger.Warn(ctx, "session resolution failed, continuing as anonymous", "path", path, "error", err)
			res = services.Resolution{}
		}

		for _, c := range res.Cookies {
			http.SetCookie(w, c)
		}

		switch gate.Decide(path, res.Authenticated()) {
		case gate.RedirectToLogin:
			http.Redirect(w, r, gate.LoginURL(path), http.StatusSeeOther)
		case gate.RedirectToApp:
			http.Redirect(w, r, common.DashboardPath, http.StatusSeeOther)
		default:
			if res.Authenticated() {
				r = r.WithContext(auth.WithUserID(ctx, res.UserID))
			}
			next.ServeHTTP(w, r)
		}
	})
}

// requireUser answers 401 JSON for API calls without a session.
func (s *HTTPServer) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserIDFromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			s.logger.Info(r.Context(), "request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// recoverer turns a panic into a 500: a JSON error body under /api/, plain
// text elsewhere. chi's middleware.Recoverer has no body, which would break
// the API error contract. The stack goes to the log only.
func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			s.logger.Error(r.Context(), "panic serving request",
				"path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))

			if strings.HasPrefix(r.URL.Path, "/api/") {
				msg := "Internal server error"
				if r.URL.Path == "/api/summarize" {
					msg = msgSummarizeUnexpected
				}
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: msg})
				return
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
