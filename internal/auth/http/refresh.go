package http

import (
	"net/http"

	"github.com/pixelgrove/lensgate/pkg/httpx"
)

// HandleRefresh handles POST /v1/session/refresh
//
//	@Summary		Rotate the session
//	@Description	Exchanges the refresh-token cookie for a fresh token pair and CSRF token. The old refresh token
//	@Description	is revoked; presenting it again is treated as replay and rejected.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	SessionResponse	"user, csrf_token, expires_in"
//	@Failure		401	{object}	ErrorResponse	"token_expired or invalid_token"
//	@Router			/v1/session/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(httpx.CookieRefreshToken)
	if err != nil || cookie.Value == "" {
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_token", "No refresh token")
		return
	}

	res, err := h.SessionService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		// A dead refresh token means the session is over; stop the browser
		// replaying the stale cookies on every request.
		h.Policy.ClearSessionCookies(w)
		writeServiceError(w, r, err)
		return
	}

	h.writeSession(w, res)
}
