package httpx

import (
	"net/http"
	"strings"
	"time"
)

// Session cookie names. The two token cookies are HttpOnly; the CSRF cookie
// is deliberately script-readable so the frontend can echo its value back in
// the X-CSRF-Token header.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
	CookieCSRFToken    = "csrf_token"
)

// HeaderCSRFToken is where mutating requests present the raw CSRF token.
const HeaderCSRFToken = "X-CSRF-Token"

// CookiePolicy carries the deployment-dependent cookie attributes.
type CookiePolicy struct {
	// Secure should be forced on outside local development.
	Secure bool

	// SameSite defaults to Lax when unset.
	SameSite http.SameSite

	// Domain is left empty for host-only cookies.
	Domain string
}

func (p CookiePolicy) sameSite() http.SameSite {
	if p.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return p.SameSite
}

// ParseSameSite maps the config strings onto http.SameSite. Unknown values
// fall back to Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax", "":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteLaxMode
	}
}

// SetSessionCookies writes the three session cookies. Tokens never travel in
// response bodies; this is the only way they reach the client.
func (p CookiePolicy) SetSessionCookies(
	w http.ResponseWriter,
	accessToken, refreshToken, csrfToken string,
	accessTTL, refreshTTL time.Duration,
) {
	http.SetCookie(w, p.cookie(CookieAccessToken, accessToken, accessTTL, true))
	http.SetCookie(w, p.cookie(CookieRefreshToken, refreshToken, refreshTTL, true))
	http.SetCookie(w, p.cookie(CookieCSRFToken, csrfToken, accessTTL, false))
}

// ClearSessionCookies expires all three session cookies.
func (p CookiePolicy) ClearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieCSRFToken} {
		c := p.cookie(name, "", 0, name != CookieCSRFToken)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (p CookiePolicy) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   p.Secure,
		HttpOnly: httpOnly,
		SameSite: p.sameSite(),
	}
}
