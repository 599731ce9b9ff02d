package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/chalklinehq/chalkline/internal/api/apiutil"
	"github.com/chalklinehq/chalkline/internal/api/authz"
	"github.com/chalklinehq/chalkline/internal/config"
	"github.com/chalklinehq/chalkline/internal/db"
)

const (
	sessionCookieName = "chalkline_session"
	sessionTokenBytes = 32
	defaultSessionTTL = 8 * time.Hour
)

var errAuthConfigMissing = errors.New("auth configuration missing")

type sessionRecord struct {
	UserID    int64
	ExpiresAt time.Time
}

var (
	appConfig *config.Config
	queries   *db.Queries

	sessionMu sync.RWMutex
	// Sessions are intentionally ephemeral: a restart logs everyone out and
	// they re-enter through the OAuth flow.
	sessionStore = make(map[string]sessionRecord)
)

// Init must be called during server startup before handling requests.
func Init(cfg *config.Config, q *db.Queries) {
	appConfig = cfg
	queries = q
}

func sessionTTL() time.Duration {
	if appConfig == nil || appConfig.Sessions.TTL <= 0 {
		return defaultSessionTTL
	}
	return appConfig.Sessions.TTL
}

func isSecureCookie() bool {
	return appConfig == nil || appConfig.App.Environment != "development"
}

// CreateSession issues a fresh session token for the user and sets the
// session cookie. Any previous sessions for the same user are dropped.
func CreateSession(w http.ResponseWriter, userID int64) error {
	if w == nil {
		return errors.New("session requires response writer")
	}

	clearExistingSessionsForUser(userID)

	token, err := newSessionToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(sessionTTL())
	sessionMu.Lock()
	sessionStore[token] = sessionRecord{
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	sessionMu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
		MaxAge:   int(sessionTTL().Seconds()),
	})

	return nil
}

// ClearSession removes the server-side session referenced by the request
// cookie and expires the cookie.
func ClearSession(w http.ResponseWriter, r *http.Request) {
	if r == nil {
		ClearSessionCookie(w)
		return
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		deleteSession(cookie.Value)
	}

	ClearSessionCookie(w)
}

func ClearSessionCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// UserFromRequest resolves the session cookie back to a full user record by
// primary-key lookup. A token that no longer resolves, or a user id that no
// longer exists, yields (nil, nil): unauthenticated, not an error.
func UserFromRequest(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, error) {
	if r == nil {
		return nil, nil
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	token := cookie.Value
	session, ok := getSession(token)
	if !ok {
		ClearSessionCookie(w)
		return nil, nil
	}

	if queries == nil {
		ClearSessionCookie(w)
		return nil, errAuthConfigMissing
	}

	user, err := queries.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			deleteSession(token)
			ClearSessionCookie(w)
			return nil, nil
		}
		return nil, err
	}

	return toAuthUser(user), nil
}

func toAuthUser(user db.User) *authz.AuthUser {
	return &authz.AuthUser{
		ID:          user.ID,
		GoogleID:    user.GoogleID,
		Email:       user.Email.String,
		DisplayName: user.DisplayName.String,
		RoleID:      apiutil.NullInt64Ptr(user.RoleID),
		RoleName:    user.RoleName.String,
		CreatedAt:   user.CreatedAt,
	}
}

// PruneExpiredSessions drops every expired session record and reports how
// many were removed. The scheduler runs this periodically.
func PruneExpiredSessions() int {
	now := time.Now()
	pruned := 0
	sessionMu.Lock()
	for token, session := range sessionStore {
		if session.ExpiresAt.Before(now) {
			delete(sessionStore, token)
			pruned++
		}
	}
	sessionMu.Unlock()
	return pruned
}

func clearExistingSessionsForUser(userID int64) {
	sessionMu.Lock()
	for token, session := range sessionStore {
		if session.UserID == userID {
			delete(sessionStore, token)
		}
	}
	sessionMu.Unlock()
}

func getSession(token string) (sessionRecord, bool) {
	sessionMu.RLock()
	session, ok := sessionStore[token]
	sessionMu.RUnlock()
	if !ok {
		return sessionRecord{}, false
	}

	if session.ExpiresAt.Before(time.Now()) {
		deleteSession(token)
		return sessionRecord{}, false
	}

	return session, true
}

func deleteSession(token string) {
	sessionMu.Lock()
	delete(sessionStore, token)
	sessionMu.Unlock()
}

func newSessionToken() (string, error) {
	token := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(token), nil
}
