// internal/db/models.go
package db

import (
	"database/sql"
	"time"
)

type Role struct {
	ID   int64
	Name string
}

// User rows always carry the joined role name so callers never need a
// second lookup to evaluate the admin guard.
type User struct {
	ID          int64
	GoogleID    string
	Email       sql.NullString
	DisplayName sql.NullString
	RoleID      sql.NullInt64
	RoleName    sql.NullString
	CreatedAt   time.Time
}

type Team struct {
	ID        int64
	Name      string
	Venue     sql.NullString
	Division  sql.NullString
	CreatedAt time.Time
}

type TeamMember struct {
	UserID      int64
	DisplayName sql.NullString
	Email       sql.NullString
	IsCaptain   bool
}

type TeamMembership struct {
	UserID    int64
	TeamID    int64
	IsCaptain bool
}

type Match struct {
	ID         int64
	Date       time.Time
	HomeTeamID int64
	AwayTeamID int64
	Venue      string
	Status     string
	HomeScore  sql.NullInt64
	AwayScore  sql.NullInt64
	CreatedBy  sql.NullInt64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MatchWithTeams is a match row denormalized with team and creator display
// names for API responses.
type MatchWithTeams struct {
	Match
	HomeTeamName  string
	AwayTeamName  string
	CreatedByName sql.NullString
}

type Game struct {
	ID           int64
	MatchID      int64
	HomePlayerID int64
	AwayPlayerID int64
	WinnerID     sql.NullInt64
	GameNumber   int64
	GameType     string
	CreatedAt    time.Time
}

// GameWithPlayers is a game row denormalized with player display names.
type GameWithPlayers struct {
	Game
	HomePlayerName sql.NullString
	AwayPlayerName sql.NullString
	WinnerName     sql.NullString
}
