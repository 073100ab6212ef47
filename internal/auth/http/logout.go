package http

import (
	"net/http"

	"github.com/pixelgrove/lensgate/pkg/httpx"
)

// HandleLogout handles POST /v1/session/logout
//
//	@Summary		Log out
//	@Description	Revokes the presented refresh token and clears the session cookies. Always succeeds:
//	@Description	a client with a broken or expired session still ends up logged out.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Router			/v1/session/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(httpx.CookieRefreshToken); err == nil && cookie.Value != "" {
		h.SessionService.Logout(r.Context(), cookie.Value)
	}

	h.Policy.ClearSessionCookies(w)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}
