package common

// Cookie names carrying the session credential pair.
const (
	AccessTokenCookieName  = "nk-access-token"
	RefreshTokenCookieName = "nk-refresh-token"
)

// Well-known page paths shared by the gate, the handlers and the templates.
const (
	HomePath         = "/"
	LoginPath        = "/login"
	SignupPath       = "/signup"
	AuthCallbackPath = "/auth/callback"
	DashboardPath    = "/dashboard"

	// RedirectedFromParam carries the originally requested path to the login page.
	RedirectedFromParam = "redirectedFrom"
)
