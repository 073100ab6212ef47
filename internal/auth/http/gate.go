package http

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/pkg/csrfx"
	"github.com/pixelgrove/lensgate/pkg/httpx"
	"github.com/pixelgrove/lensgate/pkg/jwtx"
	"github.com/pixelgrove/lensgate/pkg/slogx"
)

// Gate is the cookie-session perimeter. It authenticates requests from the
// access-token cookie, enforces role requirements and the CSRF check, and
// injects the caller's identity into the request context.
//
// The same pipeline serves two audiences: API routes answer JSON errors,
// while paths under UIPrefixes get redirects, so a browser hitting a page
// with a stale session lands on the login screen instead of raw JSON.
type Gate struct {
	// Verify checks an access token and returns its claims. Wire it to
	// (*jwtx.Codec).VerifyAccess.
	Verify func(token string) (jwtx.Claims, error)

	// CSRF validates header tokens against the hash bound in access claims.
	CSRF *csrfx.Guard

	// Policy is used to clear session cookies when a browser shows up with
	// a dead session.
	Policy httpx.CookiePolicy

	// PublicPaths bypass the gate entirely. An entry ending in "/" matches
	// as a prefix, otherwise exactly.
	PublicPaths []string

	// RolePrefixes maps path prefixes to the minimum role required.
	// The longest matching prefix wins. Paths with no match just need a
	// valid session.
	RolePrefixes map[string]domain.Role

	// UIPrefixes mark browser-facing paths that prefer redirects over JSON.
	UIPrefixes []string

	// LoginURL and UnauthorizedURL are the redirect targets for UI paths.
	LoginURL        string
	UnauthorizedURL string
}

// Middleware returns the full gate pipeline for wrapping a mux or sub-tree.
func (g *Gate) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, g.requiredRole(r.URL.Path), next)
		})
	}
}

// Protect returns a per-route middleware that requires a valid session with
// at least the given role. Use domain.RoleViewer for "any authenticated
// user".
func (g *Gate) Protect(required domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, required, next)
		})
	}
}

func (g *Gate) serve(w http.ResponseWriter, r *http.Request, required domain.Role, next http.Handler) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	cookie, err := r.Cookie(httpx.CookieAccessToken)
	if err != nil || cookie.Value == "" {
		g.unauthorized(w, r, "missing_token", "Authentication required")
		return
	}

	claims, err := g.Verify(cookie.Value)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			g.unauthorized(w, r, "token_expired", "Session expired")
			return
		}
		// A cookie that fails signature or shape checks did not come from
		// us; worth a log line.
		log.Warn("access cookie failed verification", "path", r.URL.Path)
		g.unauthorized(w, r, "invalid_token", "Invalid session")
		return
	}

	role := domain.Role(claims.Role)
	if required != "" && !role.Permits(required) {
		g.forbidden(w, r, "insufficient_permissions", "Insufficient permissions")
		return
	}

	if !isSafeMethod(r.Method) {
		header := r.Header.Get(httpx.HeaderCSRFToken)
		if !g.CSRF.Validate(header, claims.CSRF) {
			log.Warn("csrf validation failed",
				"path", r.URL.Path,
				"user_id", claims.Subject,
			)
			g.forbidden(w, r, "csrf_validation_failed", "CSRF token missing or invalid")
			return
		}
	}

	ctx = httpx.ContextWithIdentity(ctx, claims.Subject, claims.Role, claims)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// isSafeMethod reports whether the method never mutates state and therefore
// skips the CSRF check.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (g *Gate) isPublic(path string) bool {
	for _, p := range g.PublicPaths {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
		} else if path == p {
			return true
		}
	}
	return false
}

// requiredRole resolves the longest RolePrefixes entry matching path.
func (g *Gate) requiredRole(path string) domain.Role {
	prefixes := make([]string, 0, len(g.RolePrefixes))
	for p := range g.RolePrefixes {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return g.RolePrefixes[p]
		}
	}
	return ""
}

func (g *Gate) isUI(path string) bool {
	for _, p := range g.UIPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (g *Gate) unauthorized(w http.ResponseWriter, r *http.Request, code, desc string) {
	if g.isUI(r.URL.Path) && g.LoginURL != "" {
		// A dead session's cookies are useless; drop them before sending
		// the browser to log in again.
		g.Policy.ClearSessionCookies(w)
		http.Redirect(w, r, g.LoginURL, http.StatusFound)
		return
	}
	httpx.WriteError(w, http.StatusUnauthorized, code, desc)
}

func (g *Gate) forbidden(w http.ResponseWriter, r *http.Request, code, desc string) {
	if g.isUI(r.URL.Path) && g.UnauthorizedURL != "" {
		http.Redirect(w, r, g.UnauthorizedURL, http.StatusFound)
		return
	}
	httpx.WriteError(w, http.StatusForbidden, code, desc)
}
