// internal/api/users/handlers.go
package users

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chalklinehq/chalkline/internal/api/apiutil"
	"github.com/chalklinehq/chalkline/internal/db"
)

const (
	userQueryTimeout = 5 * time.Second
	userIDParam      = "id"
)

var (
	queries     userQueries
	queriesOnce sync.Once
)

type userQueries interface {
	ListUsers(ctx context.Context) ([]db.User, error)
	GetUserByID(ctx context.Context, id int64) (db.User, error)
	UpdateUserRole(ctx context.Context, arg db.UpdateUserRoleParams) (db.User, error)
	ListRoles(ctx context.Context) ([]db.Role, error)
}

type roleUpdateRequest struct {
	RoleID *int64 `json:"roleId"`
}

type roleResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type userResponse struct {
	ID          int64     `json:"id"`
	GoogleID    string    `json:"googleId"`
	Email       *string   `json:"email"`
	DisplayName *string   `json:"displayName"`
	RoleID      *int64    `json:"roleId"`
	RoleName    *string   `json:"roleName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q userQueries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

func loadQueries() userQueries {
	return queries
}

// GET /api/users
func HandleListUsers(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), userQueryTimeout)
	defer cancel()

	users, err := q.ListUsers(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list users")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, newUserResponse(user))
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, responses)
}

// GET /api/users/{id}
func HandleUserDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	userID, err := apiutil.IDFromPath(r, userIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), userQueryTimeout)
	defer cancel()

	user, err := q.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to fetch user")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, newUserResponse(user))
}

// PUT /api/users/{id}/role
func HandleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	userID, err := apiutil.IDFromPath(r, userIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req roleUpdateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// A null roleId clears the role, demoting the user back to a plain
	// player.
	if req.RoleID != nil && *req.RoleID <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "roleId must be greater than 0")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), userQueryTimeout)
	defer cancel()

	user, err := q.UpdateUserRole(ctx, db.UpdateUserRoleParams{
		RoleID: apiutil.ToNullInt64(req.RoleID),
		ID:     userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to update user role")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	logEvent := logger.Info().Int64("user_id", userID)
	if req.RoleID != nil {
		logEvent = logEvent.Int64("role_id", *req.RoleID)
	}
	logEvent.Msg("User role updated")

	_ = apiutil.WriteJSON(w, http.StatusOK, newUserResponse(user))
}

// GET /api/roles
func HandleListRoles(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), userQueryTimeout)
	defer cancel()

	roles, err := q.ListRoles(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list roles")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	responses := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		responses = append(responses, roleResponse{ID: role.ID, Name: role.Name})
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, responses)
}

func newUserResponse(user db.User) userResponse {
	return userResponse{
		ID:          user.ID,
		GoogleID:    user.GoogleID,
		Email:       apiutil.NullStringPtr(user.Email),
		DisplayName: apiutil.NullStringPtr(user.DisplayName),
		RoleID:      apiutil.NullInt64Ptr(user.RoleID),
		RoleName:    apiutil.NullStringPtr(user.RoleName),
		CreatedAt:   user.CreatedAt,
	}
}
