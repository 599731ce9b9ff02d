package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/chalklinehq/chalkline/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedUser inserts a user through the identity-exchange upsert and returns
// the stored record.
func SeedUser(t *testing.T, database *db.DB, googleID, displayName string) db.User {
	t.Helper()

	user, err := database.Queries.UpsertUserByGoogleID(context.Background(), db.UpsertUserParams{
		GoogleID:    googleID,
		Email:       sql.NullString{String: googleID + "@example.com", Valid: true},
		DisplayName: sql.NullString{String: displayName, Valid: true},
	})
	if err != nil {
		t.Fatalf("seed user %q: %v", googleID, err)
	}
	return user
}

// SeedTeam inserts a team with the given name.
func SeedTeam(t *testing.T, database *db.DB, name string) db.Team {
	t.Helper()

	team, err := database.Queries.CreateTeam(context.Background(), db.CreateTeamParams{Name: name})
	if err != nil {
		t.Fatalf("seed team %q: %v", name, err)
	}
	return team
}
