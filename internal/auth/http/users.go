package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pixelgrove/lensgate/internal/auth/service"
	"github.com/pixelgrove/lensgate/pkg/httpx"
	"github.com/pixelgrove/lensgate/pkg/slogx"
)

// UsersHandler serves the admin user-management endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleCreate handles POST /v1/users
//
//	@Summary		Create user
//	@Description	Creates a portfolio user with one of the fixed roles (admin, editor, viewer). Admin only.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateUserRequest	true	"New user"
//	@Success		201		{object}	UserResponse
//	@Failure		400		{object}	ErrorResponse	"invalid_request or invalid_role"
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"username or email taken"
//	@Router			/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "username, email and password are required")
		return
	}

	u, err := h.UserService.CreateUser(ctx, service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info("user created", "user_id", u.ID, "role", string(u.Role))
	httpx.WriteJSON(w, http.StatusCreated, UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	})
}

// HandleList handles GET /v1/users
//
//	@Summary		List users
//	@Description	Returns all users, newest first. Admin only.
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	ListUsersResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Router			/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = UserResponse{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      string(u.Role),
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		}
	}
	httpx.WriteJSON(w, http.StatusOK, ListUsersResponse{Users: out})
}

// HandleDelete handles DELETE /v1/users/{id}
//
//	@Summary		Delete user
//	@Description	Removes a user. Their sessions stop working at the next refresh. Admin only.
//	@Tags			Users
//	@Produce		json
//	@Param			id	path	string	true	"User ID (ULID)"
//	@Success		204	"User deleted"
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/v1/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.PathValue("id")
	if err := h.UserService.DeleteUser(ctx, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info("user deleted", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdatePassword handles PUT /v1/users/{id}/password
//
//	@Summary		Set user password
//	@Description	Replaces a user's password. Existing sessions keep working until they expire or rotate. Admin only.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"User ID (ULID)"
//	@Param			request	body		UpdatePasswordRequest	true	"New password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/v1/users/{id}/password [put].
func (h *UsersHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}
	if req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "password is required")
		return
	}

	userID := r.PathValue("id")
	if err := h.UserService.UpdatePassword(ctx, userID, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
}
