package http

import (
	"net/http"

	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/pkg/httpx"
	"github.com/pixelgrove/lensgate/pkg/jwtx"
)

// HandleCurrent handles GET /v1/session
//
//	@Summary		Current session
//	@Description	Returns the identity bound to the access-token cookie. Gate-protected; an expired or missing
//	@Description	session answers 401.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	IdentityResponse
//	@Failure		401	{object}	ErrorResponse	"missing_token, token_expired or invalid_token"
//	@Router			/v1/session [get].
func (h *SessionHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, role, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized,
			"missing_token", "Authentication required")
		return
	}

	identity := domain.Identity{
		ID:   userID,
		Role: domain.Role(role),
	}
	if claims, ok := httpx.ClaimsFromContext(ctx).(jwtx.Claims); ok {
		identity.Username = claims.Username
	}

	httpx.WriteJSON(w, http.StatusOK, IdentityResponse{User: identity})
}
