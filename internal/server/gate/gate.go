// Package gate decides, per request, whether the caller may proceed, must
// sign in first, or should be sent on to the application.
package gate

import (
	"net/url"
	"path"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// Decision is what Decide tells the request pipeline to do with a request.
type Decision int

const (
	Continue Decision = iota
	RedirectToLogin
	RedirectToApp
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToApp:
		return "redirect-to-app"
	default:
		return "unknown"
	}
}

const (
	apiPrefix  = "/api/"
	HealthPath = "/healthz"
)

var staticExtensions = map[string]struct{}{
	".svg": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".ico": {},
}

// Exempt reports paths the gate does not look at at all: static assets, the
// health probe and the credential-exchange callback.
func Exempt(p string) bool {
	if p == common.AuthCallbackPath || p == HealthPath {
		return true
	}
	if strings.HasPrefix(p, "/static/") || p == "/favicon.ico" {
		return true
	}
	_, ok := staticExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// Public reports the allow-listed paths reachable without a session.
func Public(p string) bool {
	switch p {
	case common.HomePath, common.LoginPath, common.SignupPath, common.AuthCallbackPath:
		return true
	}
	return false
}

// Decide maps a request path and the caller's authentication state to a
// Decision. Paths are compared exactly, so "/login/" is not "/login".
func Decide(p string, authenticated bool) Decision {
	if authenticated {
		switch p {
		case common.HomePath, common.LoginPath, common.SignupPath:
			return RedirectToApp
		}
		return Continue
	}

	if Public(p) || strings.HasPrefix(p, apiPrefix) {
		return Continue
	}
	return RedirectToLogin
}

// LoginURL is the sign-in page that returns the caller to p afterwards.
func LoginURL(p string) string {
	v := url.Values{}
	v.Set(common.RedirectedFromParam, p)
	return common.LoginPath + "?" + v.Encode()
}
