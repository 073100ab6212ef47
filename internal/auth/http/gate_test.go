package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/pkg/csrfx"
	"github.com/pixelgrove/lensgate/pkg/httpx"
	"github.com/pixelgrove/lensgate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testAccessSecret = []byte("gate-test-access-secret-0123456789")

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()
	codec, err := jwtx.New(jwtx.Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: []byte("gate-test-refresh-secret-012345678"),
		Issuer:        "lensgate-test",
	})
	require.NoError(t, err)
	return codec
}

func newTestGate(t *testing.T) (*Gate, *jwtx.Codec, *csrfx.Guard) {
	t.Helper()

	codec := newTestCodec(t)
	csrfGuard, err := csrfx.New([]byte("gate-test-csrf-secret-0123456789"))
	require.NoError(t, err)

	gate := &Gate{
		Verify:          codec.VerifyAccess,
		CSRF:            csrfGuard,
		PublicPaths:     []string{"/livez", "/public/"},
		RolePrefixes:    map[string]domain.Role{"/admin/": domain.RoleAdmin},
		UIPrefixes:      []string{"/admin/"},
		LoginURL:        "/login",
		UnauthorizedURL: "/unauthorized",
	}
	return gate, codec, csrfGuard
}

// session mints an access cookie plus the matching raw CSRF token.
func session(t *testing.T, codec *jwtx.Codec, csrfGuard *csrfx.Guard, role domain.Role) (*http.Cookie, string) {
	t.Helper()

	csrfToken, err := csrfGuard.Generate()
	require.NoError(t, err)

	access, _, err := codec.IssueAccess("user-1", "alice", string(role), csrfGuard.Hash(csrfToken))
	require.NoError(t, err)

	return &http.Cookie{Name: httpx.CookieAccessToken, Value: access}, csrfToken
}

func okHandler() (http.Handler, *bool) {
	called := new(bool)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}), called
}

func TestGatePublicBypass(t *testing.T) {
	t.Parallel()
	gate, _, _ := newTestGate(t)

	next, called := okHandler()
	h := gate.Middleware()(next)

	t.Run("exact match", func(t *testing.T) {
		*called = false
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
		require.True(t, *called)
	})

	t.Run("prefix match", func(t *testing.T) {
		*called = false
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public/gallery.css", nil))
		require.True(t, *called)
	})

	t.Run("non-public still gated", func(t *testing.T) {
		*called = false
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things", nil))
		require.False(t, *called)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGateRejectsBadTokens(t *testing.T) {
	t.Parallel()
	gate, codec, _ := newTestGate(t)

	next, called := okHandler()
	h := gate.Protect(domain.RoleViewer)(next)

	t.Run("missing cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "missing_token")
	})

	t.Run("garbage cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
		req.AddCookie(&http.Cookie{Name: httpx.CookieAccessToken, Value: "garbage"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_token")
	})

	t.Run("expired token", func(t *testing.T) {
		expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "lensgate-test",
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				ID:        jwtx.NewJTI(),
			},
			TokenUse: jwtx.TokenUseAccess,
		})
		signed, err := expired.SignedString(testAccessSecret)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
		req.AddCookie(&http.Cookie{Name: httpx.CookieAccessToken, Value: signed})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "token_expired")
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		refresh, _, err := codec.IssueRefresh("user-1", "alice", "viewer")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
		req.AddCookie(&http.Cookie{Name: httpx.CookieAccessToken, Value: refresh})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	require.False(t, *called)
}

func TestGateRoles(t *testing.T) {
	t.Parallel()
	gate, codec, csrfGuard := newTestGate(t)

	next, _ := okHandler()
	h := gate.Protect(domain.RoleAdmin)(next)

	t.Run("viewer is refused admin routes", func(t *testing.T) {
		cookie, _ := session(t, codec, csrfGuard, domain.RoleViewer)
		req := httptest.NewRequest(http.MethodGet, "/api/admin/things", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "insufficient_permissions")
	})

	t.Run("admin passes", func(t *testing.T) {
		cookie, _ := session(t, codec, csrfGuard, domain.RoleAdmin)
		req := httptest.NewRequest(http.MethodGet, "/api/admin/things", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("editor outranks viewer requirements", func(t *testing.T) {
		viewerGate := gate.Protect(domain.RoleViewer)(next)
		cookie, _ := session(t, codec, csrfGuard, domain.RoleEditor)
		req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		viewerGate.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGateCSRF(t *testing.T) {
	t.Parallel()
	gate, codec, csrfGuard := newTestGate(t)

	next, _ := okHandler()
	h := gate.Protect(domain.RoleViewer)(next)
	cookie, csrfToken := session(t, codec, csrfGuard, domain.RoleEditor)

	post := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/things", nil)
		req.AddCookie(cookie)
		if token != "" {
			req.Header.Set(httpx.HeaderCSRFToken, token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("POST without header is refused", func(t *testing.T) {
		rec := post("")
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "csrf_validation_failed")
	})

	t.Run("POST with a wrong token is refused", func(t *testing.T) {
		other, err := csrfGuard.Generate()
		require.NoError(t, err)
		require.Equal(t, http.StatusForbidden, post(other).Code)
	})

	t.Run("POST with the session's token passes", func(t *testing.T) {
		require.Equal(t, http.StatusOK, post(csrfToken).Code)
	})

	t.Run("GET never requires the header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("a token from another session is refused", func(t *testing.T) {
		_, otherToken := session(t, codec, csrfGuard, domain.RoleEditor)
		require.Equal(t, http.StatusForbidden, post(otherToken).Code)
	})
}

func TestGateInjectsIdentity(t *testing.T) {
	t.Parallel()
	gate, codec, csrfGuard := newTestGate(t)

	var gotID, gotRole string
	h := gate.Protect(domain.RoleViewer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotRole, _ = httpx.IdentityFromContext(r.Context())
	}))

	cookie, _ := session(t, codec, csrfGuard, domain.RoleEditor)
	req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "user-1", gotID)
	require.Equal(t, "editor", gotRole)
}

func TestGateUIRedirects(t *testing.T) {
	t.Parallel()
	gate, codec, csrfGuard := newTestGate(t)

	next, _ := okHandler()
	h := gate.Middleware()(next)

	t.Run("unauthenticated browser is sent to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/photos", nil))
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))

		// The dead session cookies are cleared alongside the redirect.
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 3)
		for _, c := range cookies {
			require.Equal(t, -1, c.MaxAge)
		}
	})

	t.Run("underprivileged browser is sent to unauthorized", func(t *testing.T) {
		cookie, _ := session(t, codec, csrfGuard, domain.RoleViewer)
		req := httptest.NewRequest(http.MethodGet, "/admin/photos", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	})

	t.Run("admin browser passes through", func(t *testing.T) {
		cookie, _ := session(t, codec, csrfGuard, domain.RoleAdmin)
		req := httptest.NewRequest(http.MethodGet, "/admin/photos", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
