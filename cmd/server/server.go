// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chalklinehq/chalkline/internal/api"
	"github.com/chalklinehq/chalkline/internal/api/apiutil"
	"github.com/chalklinehq/chalkline/internal/api/auth"
	"github.com/chalklinehq/chalkline/internal/api/matches"
	"github.com/chalklinehq/chalkline/internal/api/teams"
	"github.com/chalklinehq/chalkline/internal/api/users"
	"github.com/chalklinehq/chalkline/internal/config"
)

func newServer(cfg *config.Config) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithAuth,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{"message": "API is working!"})
	})

	// OAuth redirect flow
	mux.HandleFunc("GET /auth/google", auth.HandleGoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", auth.HandleGoogleCallback)
	mux.HandleFunc("GET /auth/failure", auth.HandleAuthFailure)

	// Session routes
	mux.HandleFunc("GET /api/auth/status", auth.HandleAuthStatus)
	mux.HandleFunc("GET /api/auth/logout", api.RequireAuth(auth.HandleLogout))

	// User routes
	mux.HandleFunc("GET /api/users", api.RequireAdmin(users.HandleListUsers))
	mux.HandleFunc("GET /api/users/{id}", api.RequireAuth(users.HandleUserDetail))
	mux.HandleFunc("PUT /api/users/{id}/role", api.RequireAdmin(users.HandleUpdateUserRole))
	mux.HandleFunc("GET /api/roles", api.RequireAdmin(users.HandleListRoles))

	// Team routes
	mux.HandleFunc("GET /api/teams", api.RequireAuth(teams.HandleListTeams))
	mux.HandleFunc("POST /api/teams", api.RequireAuth(teams.HandleCreateTeam))
	mux.HandleFunc("GET /api/teams/{id}", api.RequireAuth(teams.HandleTeamDetail))
	mux.HandleFunc("GET /api/teams/{id}/members", api.RequireAuth(teams.HandleListMembers))
	mux.HandleFunc("POST /api/teams/{id}/members", api.RequireAuth(teams.HandleAddMember))
	mux.HandleFunc("DELETE /api/teams/{id}/members/{userId}", api.RequireAuth(teams.HandleRemoveMember))
	mux.HandleFunc("GET /api/teams/{id}/matches", api.RequireAuth(matches.HandleTeamMatches))
	mux.HandleFunc("GET /api/user/teams", api.RequireAuth(teams.HandleUserTeams))

	// Match routes
	mux.HandleFunc("GET /api/matches", api.RequireAuth(matches.HandleListMatches))
	mux.HandleFunc("POST /api/matches", api.RequireAuth(matches.HandleCreateMatch))
	mux.HandleFunc("GET /api/matches/{id}", api.RequireAuth(matches.HandleMatchDetail))
	mux.HandleFunc("PUT /api/matches/{id}/score", api.RequireAuth(matches.HandleUpdateScore))
	mux.HandleFunc("GET /api/matches/{id}/games", api.RequireAuth(matches.HandleListGames))
	mux.HandleFunc("POST /api/matches/{id}/games", api.RequireAuth(matches.HandleCreateGame))
	mux.HandleFunc("GET /api/user/matches", api.RequireAuth(matches.HandleUserMatches))
}
