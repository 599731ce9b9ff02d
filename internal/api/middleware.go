// internal/api/middleware.go
package api

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chalklinehq/chalkline/internal/api/apiutil"
	"github.com/chalklinehq/chalkline/internal/api/auth"
	"github.com/chalklinehq/chalkline/internal/api/authz"
)

type Middleware func(http.Handler) http.Handler

func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		requestID, _ := r.Context().Value(requestIDContextKey{}).(string)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", time.Since(start)).
			Str("request_id", requestID).
			Msg("Request completed")
	})
}

func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger := log.Ctx(r.Context())
				stack := debug.Stack()
				logger.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Msg("Panic recovered")

				apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type requestIDContextKey struct{}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		logger := log.With().Str("request_id", requestID).Logger()

		ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithAuth resolves the session cookie into an AuthUser placed on the
// request context. Requests without a resolvable session continue
// unauthenticated; downstream guards decide whether that matters.
func WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.UserFromRequest(w, r)
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to load auth session")
			next.ServeHTTP(w, r)
			return
		}

		if user != nil {
			ctx := authz.ContextWithUser(r.Context(), user)
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAuth gates a handler behind a valid session.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authz.RequireAuthenticated(r.Context()); err != nil {
			log.Ctx(r.Context()).Warn().Msg("Access denied: unauthenticated")
			apiutil.WriteError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		next(w, r)
	}
}

// RequireAdmin gates a handler behind the admin role. A missing session and
// an insufficient role are different outcomes and use different statuses.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.Ctx(r.Context())
		if err := authz.RequireRole(r.Context(), authz.RoleAdmin); err != nil {
			user := authz.UserFromContext(r.Context())
			switch {
			case errors.Is(err, authz.ErrUnauthenticated):
				logger.Warn().Msg("Admin access denied: unauthenticated")
				apiutil.WriteError(w, http.StatusUnauthorized, "Not authenticated")
			case errors.Is(err, authz.ErrForbidden):
				logEvent := logger.Warn()
				if user != nil {
					logEvent = logEvent.Int64("user_id", user.ID)
				}
				logEvent.Msg("Admin access denied: forbidden")
				apiutil.WriteError(w, http.StatusForbidden, "Not authorized")
			default:
				logger.Error().Err(err).Msg("Admin access denied: error")
				apiutil.WriteError(w, http.StatusInternalServerError, "Server error")
			}
			return
		}

		next(w, r)
	}
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
