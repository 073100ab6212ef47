package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/internal/auth/guard"
	"github.com/pixelgrove/lensgate/internal/auth/service"
	"github.com/pixelgrove/lensgate/internal/auth/store"
	"github.com/pixelgrove/lensgate/internal/auth/store/drivers/sqlite"
	"github.com/pixelgrove/lensgate/pkg/csrfx"
	"github.com/pixelgrove/lensgate/pkg/httpx"
	"github.com/pixelgrove/lensgate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Router, store.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.New(jwtx.Config{
		AccessSecret:  []byte("router-test-access-secret-0123456"),
		RefreshSecret: []byte("router-test-refresh-secret-012345"),
		Issuer:        "lensgate-test",
	})
	require.NoError(t, err)

	csrfGuard, err := csrfx.New([]byte("router-test-csrf-secret-01234567"))
	require.NoError(t, err)

	sessionSvc := &service.SessionService{
		Store:       st,
		Codec:       codec,
		CSRF:        csrfGuard,
		Guard:       guard.New(nil, 3, 15*time.Minute),
		Credentials: &service.CredentialService{Store: st},
	}

	gate := &Gate{
		Verify: codec.VerifyAccess,
		CSRF:   csrfGuard,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(gate, httpx.CookiePolicy{}, "test", st, logger)
	r.SessionService = sessionSvc
	r.UserService = &service.UserService{Store: st}
	r.ApplyRoutes()

	return r, st
}

func seedUser(t *testing.T, st store.Store, username, password string, role domain.Role) {
	t.Helper()
	svc := &service.UserService{Store: st}
	_, err := svc.CreateUser(context.Background(), service.CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
		Role:     string(role),
	})
	require.NoError(t, err)
}

// doJSON issues a request with the given cookies and optional CSRF header.
func doJSON(
	t *testing.T,
	h http.Handler,
	method, path, ip string,
	body any,
	cookies []*http.Cookie,
	csrfToken string,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, buf)
	req.RemoteAddr = ip + ":50000"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if csrfToken != "" {
		req.Header.Set(httpx.HeaderCSRFToken, csrfToken)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, r *Router, username, password, ip string) ([]*http.Cookie, SessionResponse) {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/v1/session/login", ip,
		LoginRequest{Login: username, Password: password}, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	var res SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return rec.Result().Cookies(), res
}

func TestLoginEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	seedUser(t, st, "alice", "correct horse", domain.RoleEditor)

	rec := doJSON(t, r, http.MethodPost, "/v1/session/login", "203.0.113.1",
		LoginRequest{Login: "alice", Password: "correct horse"}, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 3)

	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	require.True(t, byName[httpx.CookieAccessToken].HttpOnly)
	require.True(t, byName[httpx.CookieRefreshToken].HttpOnly)
	require.False(t, byName[httpx.CookieCSRFToken].HttpOnly)

	var res SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "alice", res.User.Username)
	require.Equal(t, domain.RoleEditor, res.User.Role)
	require.NotEmpty(t, res.CSRFToken)
	require.Equal(t, res.CSRFToken, byName[httpx.CookieCSRFToken].Value)
	require.Positive(t, res.ExpiresIn)

	// The signed tokens live in cookies only, never in the body.
	body := rec.Body.String()
	require.NotContains(t, body, byName[httpx.CookieAccessToken].Value)
	require.NotContains(t, body, byName[httpx.CookieRefreshToken].Value)

	t.Run("responses are uncacheable", func(t *testing.T) {
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/session/login",
			bytes.NewReader([]byte("{not json")))
		req.RemoteAddr = "203.0.113.1:50000"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpointFailures(t *testing.T) {
	r, st := newTestRouter(t)
	seedUser(t, st, "alice", "correct horse", domain.RoleViewer)

	attempt := func(ip string) *httptest.ResponseRecorder {
		return doJSON(t, r, http.MethodPost, "/v1/session/login", ip,
			LoginRequest{Login: "alice", Password: "wrong"}, nil, "")
	}

	rec := attempt("203.0.113.7")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_credentials", body.Error)
	require.NotNil(t, body.AttemptsRemaining)
	require.Equal(t, 2, *body.AttemptsRemaining)

	// Second failure, then the third crosses the lockout threshold.
	require.Equal(t, http.StatusUnauthorized, attempt("203.0.113.7").Code)

	rec = attempt("203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	body = ErrorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "account_locked", body.Error)
	require.NotNil(t, body.RetryAfter)
	require.Positive(t, *body.RetryAfter)

	t.Run("correct password is also refused while locked", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/session/login", "203.0.113.7",
			LoginRequest{Login: "alice", Password: "correct horse"}, nil, "")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	seedUser(t, st, "alice", "correct horse", domain.RoleEditor)

	cookies, first := login(t, r, "alice", "correct horse", "203.0.113.2")

	rec := doJSON(t, r, http.MethodPost, "/v1/session/refresh", "203.0.113.2",
		nil, cookies, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rotated := rec.Result().Cookies()
	require.Len(t, rotated, 3)

	var second SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.Equal(t, first.User.ID, second.User.ID)
	require.NotEqual(t, first.CSRFToken, second.CSRFToken)

	t.Run("the old refresh cookie is dead after rotation", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/session/refresh", "203.0.113.2",
			nil, cookies, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		// And the handler clears the stale cookies.
		for _, c := range rec.Result().Cookies() {
			require.Equal(t, -1, c.MaxAge)
		}
	})

	t.Run("no cookie at all", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/session/refresh", "203.0.113.3",
			nil, nil, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSessionEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	seedUser(t, st, "alice", "correct horse", domain.RoleEditor)

	cookies, res := login(t, r, "alice", "correct horse", "203.0.113.4")

	rec := doJSON(t, r, http.MethodGet, "/v1/session", "203.0.113.4", nil, cookies, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body IdentityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, res.User.ID, body.User.ID)
	require.Equal(t, "alice", body.User.Username)
	require.Equal(t, domain.RoleEditor, body.User.Role)

	t.Run("unauthenticated", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/session", "203.0.113.4", nil, nil, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	seedUser(t, st, "alice", "correct horse", domain.RoleEditor)

	cookies, res := login(t, r, "alice", "correct horse", "203.0.113.5")

	t.Run("logout without the csrf header is refused", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/session/logout", "203.0.113.5",
			nil, cookies, "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec := doJSON(t, r, http.MethodPost, "/v1/session/logout", "203.0.113.5",
		nil, cookies, res.CSRFToken)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		require.Equal(t, -1, c.MaxAge)
	}

	t.Run("the refresh token is revoked", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/session/refresh", "203.0.113.5",
			nil, cookies, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUsersEndpoints(t *testing.T) {
	r, st := newTestRouter(t)
	seedUser(t, st, "root", "admin pass", domain.RoleAdmin)
	seedUser(t, st, "viewer", "viewer pass", domain.RoleViewer)

	adminCookies, adminRes := login(t, r, "root", "admin pass", "203.0.113.6")

	t.Run("viewer cannot touch user management", func(t *testing.T) {
		cookies, _ := login(t, r, "viewer", "viewer pass", "192.0.2.6")
		rec := doJSON(t, r, http.MethodGet, "/v1/users", "192.0.2.6", nil, cookies, "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("create requires the csrf header", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/users", "203.0.113.6",
			CreateUserRequest{Username: "bob", Email: "bob@example.com", Password: "pw", Role: "editor"},
			adminCookies, "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	var created UserResponse
	t.Run("admin creates a user", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/users", "203.0.113.6",
			CreateUserRequest{Username: "bob", Email: "bob@example.com", Password: "bob pass", Role: "editor"},
			adminCookies, adminRes.CSRFToken)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		require.Equal(t, "bob", created.Username)
		require.Equal(t, "editor", created.Role)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/users", "203.0.113.6",
			CreateUserRequest{Username: "bob", Email: "bob2@example.com", Password: "pw", Role: "viewer"},
			adminCookies, adminRes.CSRFToken)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad role is a 400", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/users", "203.0.113.6",
			CreateUserRequest{Username: "eve", Email: "eve@example.com", Password: "pw", Role: "owner"},
			adminCookies, adminRes.CSRFToken)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list shows everyone", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/users", "203.0.113.6", nil, adminCookies, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body ListUsersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Users, 3)
	})

	t.Run("password update", func(t *testing.T) {
		path := fmt.Sprintf("/v1/users/%s/password", created.ID)
		rec := doJSON(t, r, http.MethodPut, path, "203.0.113.6",
			UpdatePasswordRequest{Password: "new bob pass"}, adminCookies, adminRes.CSRFToken)
		require.Equal(t, http.StatusOK, rec.Code)

		_, _ = login(t, r, "bob", "new bob pass", "198.51.100.6")
	})

	t.Run("delete user", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/v1/users/"+created.ID, "203.0.113.6",
			nil, adminCookies, adminRes.CSRFToken)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, r, http.MethodDelete, "/v1/users/"+created.ID, "203.0.113.6",
			nil, adminCookies, adminRes.CSRFToken)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/livez", "203.0.113.9", nil, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)

	rec = doJSON(t, r, http.MethodGet, "/readyz", "203.0.113.9", nil, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}
