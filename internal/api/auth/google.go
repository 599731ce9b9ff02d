package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/chalklinehq/chalkline/internal/db"
)

const (
	stateCookieName = "chalkline_oauth_state"
	stateTTL        = 10 * time.Minute
)

// Overridable in tests.
var userinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProfile is the identity assertion extracted from the provider after
// a successful login.
type GoogleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func oauthConfig() (*oauth2.Config, error) {
	if appConfig == nil || appConfig.Google.ClientID == "" || appConfig.Google.ClientSecret == "" {
		return nil, errAuthConfigMissing
	}

	return &oauth2.Config{
		ClientID:     appConfig.Google.ClientID,
		ClientSecret: appConfig.Google.ClientSecret,
		RedirectURL:  strings.TrimRight(appConfig.App.BaseURL, "/") + "/auth/google/callback",
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}, nil
}

// GET /auth/google
func HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	cfg, err := oauthConfig()
	if err != nil {
		logger.Error().Err(err).Msg("OAuth configuration missing")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	state, err := newSessionToken()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate OAuth state")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	signature, err := signPayload(state)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to sign OAuth state")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state + "." + signature,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(stateTTL),
		MaxAge:   int(stateTTL.Seconds()),
	})

	http.Redirect(w, r, cfg.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GET /auth/google/callback
func HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	clearStateCookie := func() {
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   isSecureCookie(),
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}

	failure := func(err error, msg string) {
		logger.Warn().Err(err).Msg(msg)
		clearStateCookie()
		http.Redirect(w, r, "/auth/failure", http.StatusTemporaryRedirect)
	}

	cfg, err := oauthConfig()
	if err != nil {
		failure(err, "OAuth configuration missing")
		return
	}

	if err := verifyStateCookie(r); err != nil {
		failure(err, "OAuth state verification failed")
		return
	}
	clearStateCookie()

	code := r.URL.Query().Get("code")
	if code == "" {
		failure(errors.New("missing authorization code"), "OAuth callback without code")
		return
	}

	token, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		failure(err, "OAuth code exchange failed")
		return
	}

	profile, err := fetchGoogleProfile(r.Context(), cfg, token)
	if err != nil {
		failure(err, "Failed to fetch Google profile")
		return
	}

	user, err := ExchangeIdentity(r.Context(), profile)
	if err != nil {
		logger.Error().Err(err).Str("google_id", profile.ID).Msg("Identity exchange failed")
		http.Redirect(w, r, "/auth/failure", http.StatusTemporaryRedirect)
		return
	}

	if err := CreateSession(w, user.ID); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create session")
		http.Redirect(w, r, "/auth/failure", http.StatusTemporaryRedirect)
		return
	}

	logger.Info().
		Int64("user_id", user.ID).
		Str("display_name", user.DisplayName.String).
		Msg("User logged in")

	http.Redirect(w, r, appConfig.App.ClientBaseURL, http.StatusTemporaryRedirect)
}

// ExchangeIdentity maps an external identity assertion to the internal user
// record, creating one if no record with that subject id exists. The store's
// unique constraint on google_id keeps concurrent first logins down to a
// single record.
func ExchangeIdentity(ctx context.Context, profile GoogleProfile) (db.User, error) {
	if queries == nil {
		return db.User{}, errAuthConfigMissing
	}
	if profile.ID == "" {
		return db.User{}, errors.New("identity assertion missing subject id")
	}

	return queries.UpsertUserByGoogleID(ctx, db.UpsertUserParams{
		GoogleID:    profile.ID,
		Email:       nullString(profile.Email),
		DisplayName: nullString(profile.Name),
	})
}

func fetchGoogleProfile(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (GoogleProfile, error) {
	client := cfg.Client(ctx, token)
	resp, err := client.Get(userinfoEndpoint)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleProfile{}, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return GoogleProfile{}, fmt.Errorf("decoding userinfo response: %w", err)
	}
	if profile.ID == "" {
		return GoogleProfile{}, errors.New("userinfo response missing subject id")
	}

	return profile, nil
}

func verifyStateCookie(r *http.Request) error {
	state := r.URL.Query().Get("state")
	if state == "" {
		return errors.New("missing state parameter")
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return fmt.Errorf("missing state cookie: %w", err)
	}

	parts := strings.SplitN(cookie.Value, ".", 2)
	if len(parts) != 2 {
		return errors.New("malformed state cookie")
	}

	expectedSignature, err := signPayload(parts[0])
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(parts[1]), []byte(expectedSignature)) {
		return errors.New("invalid state cookie signature")
	}

	if parts[0] != state {
		return errors.New("state mismatch")
	}

	return nil
}

func signPayload(payload string) (string, error) {
	if appConfig == nil || appConfig.App.SessionSecret == "" {
		return "", errAuthConfigMissing
	}

	mac := hmac.New(sha256.New, []byte(appConfig.App.SessionSecret))
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
