// internal/api/teams/handlers.go
package teams

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chalklinehq/chalkline/internal/api/apiutil"
	"github.com/chalklinehq/chalkline/internal/api/authz"
	"github.com/chalklinehq/chalkline/internal/db"
)

const (
	teamQueryTimeout = 5 * time.Second
	teamIDParam      = "id"
	memberIDParam    = "userId"
)

var (
	queries     teamQueries
	queriesOnce sync.Once
)

type teamQueries interface {
	CreateTeam(ctx context.Context, arg db.CreateTeamParams) (db.Team, error)
	GetTeamByID(ctx context.Context, id int64) (db.Team, error)
	ListTeams(ctx context.Context) ([]db.Team, error)
	ListTeamsForUser(ctx context.Context, userID int64) ([]db.Team, error)
	ListTeamMembers(ctx context.Context, teamID int64) ([]db.TeamMember, error)
	UpsertTeamMembership(ctx context.Context, arg db.UpsertTeamMembershipParams) (db.TeamMembership, error)
	DeleteTeamMembership(ctx context.Context, arg db.DeleteTeamMembershipParams) (int64, error)
}

type createTeamRequest struct {
	Name     string  `json:"name"`
	Venue    *string `json:"venue"`
	Division *string `json:"division"`
}

type addMemberRequest struct {
	UserID    *int64 `json:"userId"`
	IsCaptain bool   `json:"isCaptain"`
}

type teamResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Venue     *string   `json:"venue"`
	Division  *string   `json:"division"`
	CreatedAt time.Time `json:"createdAt"`
}

type memberResponse struct {
	ID          int64   `json:"id"`
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
	IsCaptain   bool    `json:"isCaptain"`
}

type membershipResponse struct {
	UserID    int64 `json:"userId"`
	TeamID    int64 `json:"teamId"`
	IsCaptain bool  `json:"isCaptain"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q teamQueries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

func loadQueries() teamQueries {
	return queries
}

// GET /api/teams
func HandleListTeams(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	teams, err := q.ListTeams(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list teams")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, newTeamResponses(teams))
}

// POST /api/teams
func HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	var req createTeamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	team, err := q.CreateTeam(ctx, db.CreateTeamParams{
		Name:     req.Name,
		Venue:    apiutil.ToNullString(req.Venue),
		Division: apiutil.ToNullString(req.Division),
	})
	if err != nil {
		logger.Error().Err(err).Str("name", req.Name).Msg("Failed to create team")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	logger.Info().Int64("team_id", team.ID).Str("name", team.Name).Msg("Team created")

	_ = apiutil.WriteJSON(w, http.StatusCreated, newTeamResponse(team))
}

// GET /api/teams/{id}
func HandleTeamDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	teamID, err := apiutil.IDFromPath(r, teamIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	team, err := q.GetTeamByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Team not found")
			return
		}
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to fetch team")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, newTeamResponse(team))
}

// GET /api/teams/{id}/members
func HandleListMembers(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	teamID, err := apiutil.IDFromPath(r, teamIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	members, err := q.ListTeamMembers(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to list team members")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	responses := make([]memberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, memberResponse{
			ID:          member.UserID,
			DisplayName: apiutil.NullStringPtr(member.DisplayName),
			Email:       apiutil.NullStringPtr(member.Email),
			IsCaptain:   member.IsCaptain,
		})
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, responses)
}

// POST /api/teams/{id}/members
func HandleAddMember(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	teamID, err := apiutil.IDFromPath(r, teamIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}

	var req addMemberRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == nil || *req.UserID <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "userId is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	// Upsert: re-adding an existing member only overwrites the captain flag.
	membership, err := q.UpsertTeamMembership(ctx, db.UpsertTeamMembershipParams{
		UserID:    *req.UserID,
		TeamID:    teamID,
		IsCaptain: req.IsCaptain,
	})
	if err != nil {
		logger.Error().Err(err).
			Int64("team_id", teamID).
			Int64("user_id", *req.UserID).
			Msg("Failed to add team member")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	logger.Info().
		Int64("team_id", teamID).
		Int64("user_id", membership.UserID).
		Bool("is_captain", membership.IsCaptain).
		Msg("Team member added")

	_ = apiutil.WriteJSON(w, http.StatusCreated, membershipResponse{
		UserID:    membership.UserID,
		TeamID:    membership.TeamID,
		IsCaptain: membership.IsCaptain,
	})
}

// DELETE /api/teams/{id}/members/{userId}
func HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	teamID, err := apiutil.IDFromPath(r, teamIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}

	userID, err := apiutil.IDFromPath(r, memberIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	deleted, err := q.DeleteTeamMembership(ctx, db.DeleteTeamMembershipParams{
		UserID: userID,
		TeamID: teamID,
	})
	if err != nil {
		logger.Error().Err(err).
			Int64("team_id", teamID).
			Int64("user_id", userID).
			Msg("Failed to remove team member")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if deleted == 0 {
		apiutil.WriteError(w, http.StatusNotFound, "Membership not found")
		return
	}

	logger.Info().Int64("team_id", teamID).Int64("user_id", userID).Msg("Team member removed")

	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/user/teams
func HandleUserTeams(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamQueryTimeout)
	defer cancel()

	teams, err := q.ListTeamsForUser(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list user teams")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, newTeamResponses(teams))
}

func newTeamResponse(team db.Team) teamResponse {
	return teamResponse{
		ID:        team.ID,
		Name:      team.Name,
		Venue:     apiutil.NullStringPtr(team.Venue),
		Division:  apiutil.NullStringPtr(team.Division),
		CreatedAt: team.CreatedAt,
	}
}

func newTeamResponses(teams []db.Team) []teamResponse {
	responses := make([]teamResponse, 0, len(teams))
	for _, team := range teams {
		responses = append(responses, newTeamResponse(team))
	}
	return responses
}
