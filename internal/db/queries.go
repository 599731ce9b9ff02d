// internal/db/queries.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run inside
// or outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds every single-statement store operation. Each method runs
// exactly one parameterized query.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// runInTx executes fn against a Queries bound to a fresh transaction. Write
// operations that read their row back use it so the returned row reflects
// exactly what the write produced. When the Queries is already bound to a
// transaction fn runs inline on it.
func (q *Queries) runInTx(ctx context.Context, fn func(*Queries) error) error {
	beginner, ok := q.db.(interface {
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	})
	if !ok {
		return fn(q)
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(NewQueries(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	return nil
}

const userColumns = `
	u.id, u.google_id, u.email, u.display_name, u.role_id, r.name, u.created_at
`

const selectUser = `
SELECT ` + userColumns + `
FROM users u
LEFT JOIN roles r ON u.role_id = r.id
`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.DisplayName, &u.RoleID, &u.RoleName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, selectUser+"WHERE u.id = ?", id)
	return scanUser(row)
}

func (q *Queries) GetUserByGoogleID(ctx context.Context, googleID string) (User, error) {
	row := q.db.QueryRowContext(ctx, selectUser+"WHERE u.google_id = ?", googleID)
	return scanUser(row)
}

type UpsertUserParams struct {
	GoogleID    string
	Email       sql.NullString
	DisplayName sql.NullString
}

// UpsertUserByGoogleID inserts a user for the given external identity or, if
// one already exists, refreshes its profile fields. The unique constraint on
// google_id guarantees at most one row per identity even under concurrent
// first logins.
func (q *Queries) UpsertUserByGoogleID(ctx context.Context, arg UpsertUserParams) (User, error) {
	const upsert = `
INSERT INTO users (google_id, email, display_name)
VALUES (?, ?, ?)
ON CONFLICT (google_id) DO UPDATE SET
	email = excluded.email,
	display_name = excluded.display_name
`
	var user User
	err := q.runInTx(ctx, func(tq *Queries) error {
		if _, err := tq.db.ExecContext(ctx, upsert, arg.GoogleID, arg.Email, arg.DisplayName); err != nil {
			return err
		}
		var err error
		user, err = tq.GetUserByGoogleID(ctx, arg.GoogleID)
		return err
	})
	return user, err
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, selectUser+"ORDER BY u.display_name, u.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateUserRoleParams struct {
	RoleID sql.NullInt64
	ID     int64
}

// UpdateUserRole sets or, when RoleID is null, clears the user's role.
func (q *Queries) UpdateUserRole(ctx context.Context, arg UpdateUserRoleParams) (User, error) {
	var user User
	err := q.runInTx(ctx, func(tq *Queries) error {
		result, err := tq.db.ExecContext(ctx, "UPDATE users SET role_id = ? WHERE id = ?", arg.RoleID, arg.ID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		user, err = tq.GetUserByID(ctx, arg.ID)
		return err
	})
	return user, err
}

func (q *Queries) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := q.db.QueryRowContext(ctx, "SELECT id, name FROM roles WHERE name = ?", name).
		Scan(&role.ID, &role.Name)
	return role, err
}

func (q *Queries) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, name FROM roles ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

const teamColumns = "id, name, venue, division, created_at"

func scanTeam(row interface{ Scan(...any) error }) (Team, error) {
	var t Team
	err := row.Scan(&t.ID, &t.Name, &t.Venue, &t.Division, &t.CreatedAt)
	return t, err
}

type CreateTeamParams struct {
	Name     string
	Venue    sql.NullString
	Division sql.NullString
}

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (Team, error) {
	var team Team
	err := q.runInTx(ctx, func(tq *Queries) error {
		result, err := tq.db.ExecContext(ctx,
			"INSERT INTO teams (name, venue, division) VALUES (?, ?, ?)",
			arg.Name, arg.Venue, arg.Division)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		team, err = tq.GetTeamByID(ctx, id)
		return err
	})
	return team, err
}

func (q *Queries) GetTeamByID(ctx context.Context, id int64) (Team, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+teamColumns+" FROM teams WHERE id = ?", id)
	return scanTeam(row)
}

func (q *Queries) ListTeams(ctx context.Context) ([]Team, error) {
	return q.queryTeams(ctx, "SELECT "+teamColumns+" FROM teams ORDER BY name")
}

func (q *Queries) ListTeamsForUser(ctx context.Context, userID int64) ([]Team, error) {
	const query = `
SELECT t.id, t.name, t.venue, t.division, t.created_at
FROM teams t
JOIN user_teams ut ON t.id = ut.team_id
WHERE ut.user_id = ?
ORDER BY t.name
`
	return q.queryTeams(ctx, query, userID)
}

func (q *Queries) queryTeams(ctx context.Context, query string, args ...any) ([]Team, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (q *Queries) ListTeamMembers(ctx context.Context, teamID int64) ([]TeamMember, error) {
	const query = `
SELECT u.id, u.display_name, u.email, ut.is_captain
FROM users u
JOIN user_teams ut ON u.id = ut.user_id
WHERE ut.team_id = ?
ORDER BY ut.is_captain DESC, u.display_name
`
	rows, err := q.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []TeamMember
	for rows.Next() {
		var m TeamMember
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.Email, &m.IsCaptain); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

type UpsertTeamMembershipParams struct {
	UserID    int64
	TeamID    int64
	IsCaptain bool
}

// UpsertTeamMembership adds a user to a team. A repeated insertion for the
// same (user, team) pair overwrites only the captain flag.
func (q *Queries) UpsertTeamMembership(ctx context.Context, arg UpsertTeamMembershipParams) (TeamMembership, error) {
	const upsert = `
INSERT INTO user_teams (user_id, team_id, is_captain)
VALUES (?, ?, ?)
ON CONFLICT (user_id, team_id) DO UPDATE SET is_captain = excluded.is_captain
`
	var membership TeamMembership
	err := q.runInTx(ctx, func(tq *Queries) error {
		if _, err := tq.db.ExecContext(ctx, upsert, arg.UserID, arg.TeamID, arg.IsCaptain); err != nil {
			return err
		}
		var err error
		membership, err = tq.GetTeamMembership(ctx, GetTeamMembershipParams{UserID: arg.UserID, TeamID: arg.TeamID})
		return err
	})
	return membership, err
}

type GetTeamMembershipParams struct {
	UserID int64
	TeamID int64
}

func (q *Queries) GetTeamMembership(ctx context.Context, arg GetTeamMembershipParams) (TeamMembership, error) {
	var m TeamMembership
	err := q.db.QueryRowContext(ctx,
		"SELECT user_id, team_id, is_captain FROM user_teams WHERE user_id = ? AND team_id = ?",
		arg.UserID, arg.TeamID).
		Scan(&m.UserID, &m.TeamID, &m.IsCaptain)
	return m, err
}

type DeleteTeamMembershipParams struct {
	UserID int64
	TeamID int64
}

func (q *Queries) DeleteTeamMembership(ctx context.Context, arg DeleteTeamMembershipParams) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		"DELETE FROM user_teams WHERE user_id = ? AND team_id = ?",
		arg.UserID, arg.TeamID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const matchColumns = `
	m.id, m.date, m.home_team_id, m.away_team_id, m.venue, m.status,
	m.home_score, m.away_score, m.created_by, m.created_at, m.updated_at
`

const selectMatchWithTeams = `
SELECT ` + matchColumns + `,
	ht.name, at.name, u.display_name
FROM matches m
JOIN teams ht ON m.home_team_id = ht.id
JOIN teams at ON m.away_team_id = at.id
LEFT JOIN users u ON m.created_by = u.id
`

func scanMatchWithTeams(row interface{ Scan(...any) error }) (MatchWithTeams, error) {
	var m MatchWithTeams
	err := row.Scan(
		&m.ID, &m.Date, &m.HomeTeamID, &m.AwayTeamID, &m.Venue, &m.Status,
		&m.HomeScore, &m.AwayScore, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt,
		&m.HomeTeamName, &m.AwayTeamName, &m.CreatedByName,
	)
	return m, err
}

type CreateMatchParams struct {
	Date       time.Time
	HomeTeamID int64
	AwayTeamID int64
	Venue      string
	Status     string
	CreatedBy  sql.NullInt64
}

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (MatchWithTeams, error) {
	const insert = `
INSERT INTO matches (date, home_team_id, away_team_id, venue, status, created_by)
VALUES (?, ?, ?, ?, ?, ?)
`
	var match MatchWithTeams
	err := q.runInTx(ctx, func(tq *Queries) error {
		result, err := tq.db.ExecContext(ctx, insert,
			arg.Date, arg.HomeTeamID, arg.AwayTeamID, arg.Venue, arg.Status, arg.CreatedBy)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		match, err = tq.GetMatchByID(ctx, id)
		return err
	})
	return match, err
}

func (q *Queries) GetMatchByID(ctx context.Context, id int64) (MatchWithTeams, error) {
	row := q.db.QueryRowContext(ctx, selectMatchWithTeams+"WHERE m.id = ?", id)
	return scanMatchWithTeams(row)
}

func (q *Queries) ListMatches(ctx context.Context) ([]MatchWithTeams, error) {
	return q.queryMatches(ctx, selectMatchWithTeams+"ORDER BY m.date DESC")
}

func (q *Queries) ListMatchesForTeam(ctx context.Context, teamID int64) ([]MatchWithTeams, error) {
	return q.queryMatches(ctx,
		selectMatchWithTeams+"WHERE m.home_team_id = ? OR m.away_team_id = ? ORDER BY m.date",
		teamID, teamID)
}

// ListMatchesForUser returns every match involving a team the user belongs
// to, each match once even when the user plays for both sides.
func (q *Queries) ListMatchesForUser(ctx context.Context, userID int64) ([]MatchWithTeams, error) {
	const query = selectMatchWithTeams + `
JOIN user_teams ut ON ut.team_id = m.home_team_id OR ut.team_id = m.away_team_id
WHERE ut.user_id = ?
GROUP BY m.id
ORDER BY m.date
`
	return q.queryMatches(ctx, query, userID)
}

func (q *Queries) queryMatches(ctx context.Context, query string, args ...any) ([]MatchWithTeams, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MatchWithTeams
	for rows.Next() {
		m, err := scanMatchWithTeams(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

type UpdateMatchScoreParams struct {
	HomeScore int64
	AwayScore int64
	Status    string
	ID        int64
}

func (q *Queries) UpdateMatchScore(ctx context.Context, arg UpdateMatchScoreParams) (MatchWithTeams, error) {
	const update = `
UPDATE matches
SET home_score = ?, away_score = ?, status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`
	var match MatchWithTeams
	err := q.runInTx(ctx, func(tq *Queries) error {
		result, err := tq.db.ExecContext(ctx, update, arg.HomeScore, arg.AwayScore, arg.Status, arg.ID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		match, err = tq.GetMatchByID(ctx, arg.ID)
		return err
	})
	return match, err
}

const selectGameWithPlayers = `
SELECT g.id, g.match_id, g.home_player_id, g.away_player_id, g.winner_id,
	g.game_number, g.game_type, g.created_at,
	hp.display_name, ap.display_name, w.display_name
FROM games g
JOIN users hp ON g.home_player_id = hp.id
JOIN users ap ON g.away_player_id = ap.id
LEFT JOIN users w ON g.winner_id = w.id
`

func scanGameWithPlayers(row interface{ Scan(...any) error }) (GameWithPlayers, error) {
	var g GameWithPlayers
	err := row.Scan(
		&g.ID, &g.MatchID, &g.HomePlayerID, &g.AwayPlayerID, &g.WinnerID,
		&g.GameNumber, &g.GameType, &g.CreatedAt,
		&g.HomePlayerName, &g.AwayPlayerName, &g.WinnerName,
	)
	return g, err
}

type CreateGameParams struct {
	MatchID      int64
	HomePlayerID int64
	AwayPlayerID int64
	WinnerID     sql.NullInt64
	GameNumber   int64
	GameType     string
}

func (q *Queries) CreateGame(ctx context.Context, arg CreateGameParams) (GameWithPlayers, error) {
	const insert = `
INSERT INTO games (match_id, home_player_id, away_player_id, winner_id, game_number, game_type)
VALUES (?, ?, ?, ?, ?, ?)
`
	var game GameWithPlayers
	err := q.runInTx(ctx, func(tq *Queries) error {
		result, err := tq.db.ExecContext(ctx, insert,
			arg.MatchID, arg.HomePlayerID, arg.AwayPlayerID, arg.WinnerID, arg.GameNumber, arg.GameType)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		game, err = tq.GetGameByID(ctx, id)
		return err
	})
	return game, err
}

func (q *Queries) GetGameByID(ctx context.Context, id int64) (GameWithPlayers, error) {
	row := q.db.QueryRowContext(ctx, selectGameWithPlayers+"WHERE g.id = ?", id)
	return scanGameWithPlayers(row)
}

func (q *Queries) ListGamesForMatch(ctx context.Context, matchID int64) ([]GameWithPlayers, error) {
	rows, err := q.db.QueryContext(ctx, selectGameWithPlayers+"WHERE g.match_id = ? ORDER BY g.game_number", matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []GameWithPlayers
	for rows.Next() {
		g, err := scanGameWithPlayers(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
