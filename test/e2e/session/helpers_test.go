package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for session end-to-end tests.
 * This includes container setup, a cookie-aware client, and assertions.
 */

const (
	testImageName = "lensgate-auth-test:latest"

	adminUsername = "admin"
	adminPassword = "Admin123!"

	accessSecret  = "e2e-access-secret-0123456789abcdef"
	refreshSecret = "e2e-refresh-secret-0123456789abcdef"
	csrfSecret    = "e2e-csrf-secret-0123456789abcdef"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_ACCESS_SECRET":  accessSecret,
		"AUTH_REFRESH_SECRET": refreshSecret,
		"AUTH_CSRF_SECRET":    csrfSecret,
		"AUTH_ISSUER":         "lensgate-e2e",
		"AUTH_DATABASE_FILE":  "/tmp/auth.db",
		"AUTH_PEPPER_FILE":    "/tmp/pepper",
		// The suite talks plain HTTP to the container; Secure cookies would
		// never make it back into the jar.
		"AUTH_COOKIE_SECURE":  "false",
		"AUTH_ADMIN_USERNAME": adminUsername,
		"AUTH_ADMIN_PASSWORD": adminPassword,
		"ENV":                 "test",
		"LOG_LEVEL":           "info",
		"LOG_FORMAT":          "json",
	}
}

// setupAuthContainer starts the auth service with relaxed per-route rate
// limits so busy tests are not throttled. Lockout behaviour is unaffected.
func setupAuthContainer(t *testing.T) (string, func()) {
	t.Helper()

	env := baseEnv()
	env["RATELIMIT_STRICT_REQUESTS"] = "1000"
	env["RATELIMIT_STRICT_WINDOW_SEC"] = "60"
	env["RATELIMIT_STRICT_BURST"] = "1000"
	env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
	env["RATELIMIT_MODERATE_BURST"] = "1000"
	env["RATELIMIT_FAILURE_REQUESTS"] = "1000"
	env["RATELIMIT_FAILURE_BURST"] = "1000"

	return startContainer(t, env)
}

// setupAuthContainerWithDefaultRateLimits starts the auth service with the
// production rate limit profiles. Only the rate limiting tests use this.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, baseEnv())
}

func startContainer(t *testing.T, env map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// Wire types mirrored from the service's JSON bodies.

type identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type sessionResponse struct {
	User      identity `json:"user"`
	CSRFToken string   `json:"csrf_token"`
	ExpiresIn int      `json:"expires_in"`
}

type errorResponse struct {
	Error             string `json:"error"`
	ErrorDescription  string `json:"error_description"`
	AttemptsRemaining *int   `json:"attempts_remaining"`
	RetryAfter        *int   `json:"retry_after"`
}

// sessionClient is a browser-shaped client: a cookie jar for the session
// cookies plus the raw CSRF token it echoes in X-CSRF-Token on mutations.
type sessionClient struct {
	baseURL string
	http    *http.Client
	csrf    string
}

func newSessionClient(t *testing.T, baseURL string) *sessionClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &sessionClient{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

// do issues a request with the jar's cookies. Mutating requests carry the
// client's current CSRF token unless it is empty.
func (c *sessionClient) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, c.baseURL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrf != "" && method != http.MethodGet && method != http.MethodHead {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// login authenticates and remembers the returned CSRF token.
func (c *sessionClient) login(t *testing.T, login, password string) (*http.Response, sessionResponse) {
	t.Helper()

	resp, data := c.do(t, http.MethodPost, "/v1/session/login",
		map[string]string{"login": login, "password": password})
	if resp.StatusCode != http.StatusOK {
		return resp, sessionResponse{}
	}

	var out sessionResponse
	require.NoError(t, json.Unmarshal(data, &out))
	c.csrf = out.CSRFToken
	return resp, out
}

// refresh rotates the session and updates the remembered CSRF token.
func (c *sessionClient) refresh(t *testing.T) (*http.Response, sessionResponse) {
	t.Helper()

	resp, data := c.do(t, http.MethodPost, "/v1/session/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		return resp, sessionResponse{}
	}

	var out sessionResponse
	require.NoError(t, json.Unmarshal(data, &out))
	c.csrf = out.CSRFToken
	return resp, out
}

// mustLogin fails the test unless login succeeds.
func (c *sessionClient) mustLogin(t *testing.T, login, password string) sessionResponse {
	t.Helper()

	resp, out := c.login(t, login, password)
	require.Equal(t, http.StatusOK, resp.StatusCode, "login as %s should succeed", login)
	return out
}

func decodeError(t *testing.T, data []byte) errorResponse {
	t.Helper()

	var out errorResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}
