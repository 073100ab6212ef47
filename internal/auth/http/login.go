package http

import (
	"encoding/json"
	"net/http"

	"github.com/pixelgrove/lensgate/internal/auth/service"
	"github.com/pixelgrove/lensgate/pkg/httpx"
)

// SessionHandler serves the login, refresh, logout and current-session
// endpoints.
type SessionHandler struct {
	SessionService *service.SessionService
	Policy         httpx.CookiePolicy
}

// HandleLogin handles POST /v1/session/login
//
//	@Summary		Log in with credentials
//	@Description	Verifies login (username or email) and password, plus a TOTP code when the account has one enrolled.
//	@Description	On success the session is delivered as cookies; the body carries the identity and the raw CSRF token.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	SessionResponse	"user, csrf_token, expires_in"
//	@Failure		400		{object}	ErrorResponse	"error, error_description"
//	@Failure		401		{object}	ErrorResponse	"invalid_credentials, otp_required or invalid_otp"
//	@Failure		429		{object}	ErrorResponse	"account_locked with retry_after"
//	@Router			/v1/session/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}
	if req.Login == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "login and password are required")
		return
	}

	res, err := h.SessionService.Login(ctx, service.LoginInput{
		Login:    req.Login,
		Password: req.Password,
		OTPCode:  req.OTPCode,
		ClientIP: httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.writeSession(w, res)
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, res service.LoginResult) {
	h.Policy.SetSessionCookies(w,
		res.Pair.AccessToken, res.Pair.RefreshToken, res.CSRFToken,
		res.AccessTTL, res.RefreshTTL,
	)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{
		User:      res.Identity,
		CSRFToken: res.CSRFToken,
		ExpiresIn: int(res.AccessTTL.Seconds()),
	})
}
