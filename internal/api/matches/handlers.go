// internal/api/matches/handlers.go
package matches

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
	matchQueryTimeout = 5 * time.Second
	matchIDParam      = "id"

	statusScheduled = "scheduled"
	statusCompleted = "completed"
)

var (
	queries     matchQueries
	queriesOnce sync.Once
)

type matchQueries interface {
	CreateMatch(ctx context.Context, arg db.CreateMatchParams) (db.MatchWithTeams, error)
	GetMatchByID(ctx context.Context, id int64) (db.MatchWithTeams, error)
	ListMatches(ctx context.Context) ([]db.MatchWithTeams, error)
	ListMatchesForTeam(ctx context.Context, teamID int64) ([]db.MatchWithTeams, error)
	ListMatchesForUser(ctx context.Context, userID int64) ([]db.MatchWithTeams, error)
	UpdateMatchScore(ctx context.Context, arg db.UpdateMatchScoreParams) (db.MatchWithTeams, error)
	CreateGame(ctx context.Context, arg db.CreateGameParams) (db.GameWithPlayers, error)
	ListGamesForMatch(ctx context.Context, matchID int64) ([]db.GameWithPlayers, error)
}

type createMatchRequest struct {
	Date       string `json:"date"`
	HomeTeamID *int64 `json:"homeTeamId"`
	AwayTeamID *int64 `json:"awayTeamId"`
	Venue      string `json:"venue"`
	Status     string `json:"status"`
}

type updateScoreRequest struct {
	HomeScore *int64 `json:"homeScore"`
	AwayScore *int64 `json:"awayScore"`
	Status    string `json:"status"`
}

type createGameRequest struct {
	HomePlayerID *int64 `json:"homePlayerId"`
	AwayPlayerID *int64 `json:"awayPlayerId"`
	WinnerID     *int64 `json:"winnerId"`
	GameNumber   *int64 `json:"gameNumber"`
	GameType     string `json:"gameType"`
}

type matchResponse struct {
	ID            int64     `json:"id"`
	Date          time.Time `json:"date"`
	HomeTeamID    int64     `json:"homeTeamId"`
	AwayTeamID    int64     `json:"awayTeamId"`
	HomeTeamName  string    `json:"homeTeamName"`
	AwayTeamName  string    `json:"awayTeamName"`
	Venue         string    `json:"venue"`
	Status        string    `json:"status"`
	HomeScore     *int64    `json:"homeScore"`
	AwayScore     *int64    `json:"awayScore"`
	CreatedBy     *int64    `json:"createdBy"`
	CreatedByName *string   `json:"createdByName"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type gameResponse struct {
	ID             int64     `json:"id"`
	MatchID        int64     `json:"matchId"`
	HomePlayerID   int64     `json:"homePlayerId"`
	AwayPlayerID   int64     `json:"awayPlayerId"`
	HomePlayerName *string   `json:"homePlayerName"`
	AwayPlayerName *string   `json:"awayPlayerName"`
	WinnerID       *int64    `json:"winnerId"`
	WinnerName     *string   `json:"winnerName"`
	GameNumber     int64     `json:"gameNumber"`
	GameType       string    `json:"gameType"`
	CreatedAt      time.Time `json:"createdAt"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q matchQueries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

func loadQueries() matchQueries {
	return queries
}

// GET /api/matches
func HandleListMatches(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	matches, err := q.ListMatches(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list matches")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, newMatchResponses(matches))
}

// POST /api/matches
func HandleCreateMatch(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	var req createMatchRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Venue = strings.TrimSpace(req.Venue)
	if req.HomeTeamID == nil || req.AwayTeamID == nil || req.Venue == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	date, err := apiutil.ParseDateField(req.Date, "date")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	// Checked before any write; the schema enforces the same constraint.
	if *req.HomeTeamID == *req.AwayTeamID {
		apiutil.WriteError(w, http.StatusBadRequest, "Home team and away team must be different")
		return
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = statusScheduled
	}

	var createdBy sql.NullInt64
	if user := authz.UserFromContext(r.Context()); user != nil {
		createdBy = sql.NullInt64{Int64: user.ID, Valid: true}
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	match, err := q.CreateMatch(ctx, db.CreateMatchParams{
		Date:       date,
		HomeTeamID: *req.HomeTeamID,
		AwayTeamID: *req.AwayTeamID,
		Venue:      req.Venue,
		Status:     status,
		CreatedBy:  createdBy,
	})
	if err != nil {
		logger.Error().Err(err).
			Int64("home_team_id", *req.HomeTeamID).
			Int64("away_team_id", *req.AwayTeamID).
			Msg("Failed to create match")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	logger.Info().
		Int64("match_id", match.ID).
		Str("home_team", match.HomeTeamName).
		Str("away_team", match.AwayTeamName).
		Msg("Match created")

	_ = apiutil.WriteJSON(w, http.StatusCreated, newMatchResponse(match))
}

// GET /api/matches/{id}
func HandleMatchDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	matchID, err := apiutil.IDFromPath(r, matchIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	match, err := q.GetMatchByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Match not found")
			return
		}
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to fetch match")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, newMatchResponse(match))
}

// PUT /api/matches/{id}/score
func HandleUpdateScore(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	matchID, err := apiutil.IDFromPath(r, matchIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	var req updateScoreRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.HomeScore == nil || req.AwayScore == nil || *req.HomeScore < 0 || *req.AwayScore < 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "homeScore and awayScore are required")
		return
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = statusCompleted
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	match, err := q.UpdateMatchScore(ctx, db.UpdateMatchScoreParams{
		HomeScore: *req.HomeScore,
		AwayScore: *req.AwayScore,
		Status:    status,
		ID:        matchID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Match not found")
			return
		}
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to update match score")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	logger.Info().
		Int64("match_id", matchID).
		Int64("home_score", *req.HomeScore).
		Int64("away_score", *req.AwayScore).
		Str("status", status).
		Msg("Match score updated")

	_ = apiutil.WriteJSON(w, http.StatusOK, newMatchResponse(match))
}

// GET /api/matches/{id}/games
func HandleListGames(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	matchID, err := apiutil.IDFromPath(r, matchIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	games, err := q.ListGamesForMatch(ctx, matchID)
	if err != nil {
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to list games")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	responses := make([]gameResponse, 0, len(games))
	for _, game := range games {
		responses = append(responses, newGameResponse(game))
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, responses)
}

// POST /api/matches/{id}/games
func HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	matchID, err := apiutil.IDFromPath(r, matchIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	var req createGameRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.GameType = strings.TrimSpace(req.GameType)
	if req.HomePlayerID == nil || req.AwayPlayerID == nil || req.GameNumber == nil || req.GameType == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	game, err := q.CreateGame(ctx, db.CreateGameParams{
		MatchID:      matchID,
		HomePlayerID: *req.HomePlayerID,
		AwayPlayerID: *req.AwayPlayerID,
		WinnerID:     apiutil.ToNullInt64(req.WinnerID),
		GameNumber:   *req.GameNumber,
		GameType:     req.GameType,
	})
	if err != nil {
		logger.Error().Err(err).Int64("match_id", matchID).Msg("Failed to create game")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	logger.Info().
		Int64("match_id", matchID).
		Int64("game_id", game.ID).
		Int64("game_number", game.GameNumber).
		Msg("Game added to match")

	_ = apiutil.WriteJSON(w, http.StatusCreated, newGameResponse(game))
}

// GET /api/teams/{id}/matches
func HandleTeamMatches(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	teamID, err := apiutil.IDFromPath(r, matchIDParam)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid team ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	matches, err := q.ListMatchesForTeam(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", teamID).Msg("Failed to list team matches")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, newMatchResponses(matches))
}

// GET /api/user/matches
func HandleUserMatches(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), matchQueryTimeout)
	defer cancel()

	matches, err := q.ListMatchesForUser(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list user matches")
		apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, newMatchResponses(matches))
}

func newMatchResponse(match db.MatchWithTeams) matchResponse {
	return matchResponse{
		ID:            match.ID,
		Date:          match.Date,
		HomeTeamID:    match.HomeTeamID,
		AwayTeamID:    match.AwayTeamID,
		HomeTeamName:  match.HomeTeamName,
		AwayTeamName:  match.AwayTeamName,
		Venue:         match.Venue,
		Status:        match.Status,
		HomeScore:     apiutil.NullInt64Ptr(match.HomeScore),
		AwayScore:     apiutil.NullInt64Ptr(match.AwayScore),
		CreatedBy:     apiutil.NullInt64Ptr(match.CreatedBy),
		CreatedByName: apiutil.NullStringPtr(match.CreatedByName),
		CreatedAt:     match.CreatedAt,
		UpdatedAt:     match.UpdatedAt,
	}
}

func newMatchResponses(matches []db.MatchWithTeams) []matchResponse {
	responses := make([]matchResponse, 0, len(matches))
	for _, match := range matches {
		responses = append(responses, newMatchResponse(match))
	}
	return responses
}

func newGameResponse(game db.GameWithPlayers) gameResponse {
	return gameResponse{
		ID:             game.ID,
		MatchID:        game.MatchID,
		HomePlayerID:   game.HomePlayerID,
		AwayPlayerID:   game.AwayPlayerID,
		HomePlayerName: apiutil.NullStringPtr(game.HomePlayerName),
		AwayPlayerName: apiutil.NullStringPtr(game.AwayPlayerName),
		WinnerID:       apiutil.NullInt64Ptr(game.WinnerID),
		WinnerName:     apiutil.NullStringPtr(game.WinnerName),
		GameNumber:     game.GameNumber,
		GameType:       game.GameType,
		CreatedAt:      game.CreatedAt,
	}
}
