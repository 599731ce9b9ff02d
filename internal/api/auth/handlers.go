package auth

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chalklinehq/chalkline/internal/api/apiutil"
	"github.com/chalklinehq/chalkline/internal/api/authz"
)

type statusUser struct {
	ID          int64     `json:"id"`
	GoogleID    string    `json:"googleId"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	RoleID      *int64    `json:"roleId"`
	RoleName    string    `json:"roleName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type statusResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *statusUser `json:"user"`
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GET /api/auth/status
func HandleAuthStatus(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		_ = apiutil.WriteJSON(w, http.StatusUnauthorized, statusResponse{
			Authenticated: false,
			User:          nil,
		})
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		User: &statusUser{
			ID:          user.ID,
			GoogleID:    user.GoogleID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			RoleID:      user.RoleID,
			RoleName:    user.RoleName,
			CreatedAt:   user.CreatedAt,
		},
	})
}

// GET /api/auth/logout
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())

	ClearSession(w, r)

	if user != nil {
		log.Ctx(r.Context()).Info().Int64("user_id", user.ID).Msg("User logged out")
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, logoutResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// GET /auth/failure
func HandleAuthFailure(w http.ResponseWriter, r *http.Request) {
	_ = apiutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "Authentication failed",
	})
}
