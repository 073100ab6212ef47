package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pixelgrove/lensgate/internal/auth/service"
	"github.com/pixelgrove/lensgate/internal/auth/store"
	"github.com/pixelgrove/lensgate/pkg/httpx"
	"github.com/pixelgrove/lensgate/pkg/jwtx"
	"github.com/pixelgrove/lensgate/pkg/slogx"
)

// writeServiceError translates service-layer errors onto the wire. Anything
// unrecognised becomes a generic 500 with the detail kept in the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var lockErr *service.LockoutError
	if errors.As(err, &lockErr) {
		retry := int(lockErr.RetryAfter.Round(time.Second).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
		httpx.WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error:            "account_locked",
			ErrorDescription: "Too many failed attempts. Try again later.",
			RetryAfter:       &retry,
		})
		return
	}

	var credErr *service.CredentialsError
	if errors.As(err, &credErr) {
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:             "invalid_credentials",
			ErrorDescription:  "Invalid login or password",
			AttemptsRemaining: &credErr.AttemptsRemaining,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Invalid login or password")
	case errors.Is(err, service.ErrOTPRequired):
		httpx.WriteError(w, http.StatusUnauthorized,
			"otp_required", "A one-time code is required for this account")
	case errors.Is(err, service.ErrInvalidOTP):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_otp", "The one-time code is incorrect")
	case errors.Is(err, jwtx.ErrExpired):
		httpx.WriteError(w, http.StatusUnauthorized,
			"token_expired", "Session expired")
	case errors.Is(err, jwtx.ErrInvalid):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_token", "Invalid session")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_role", "Role must be admin, editor or viewer")
	case errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict,
			"already_exists", "Username or email already in use")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"not_found", "No such user")
	default:
		log.Error("unhandled service error", "error", err, "path", r.URL.Path)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Internal server error")
	}
}
